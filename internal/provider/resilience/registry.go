package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a point-in-time view of one upstream provider.
type ProviderHealth struct {
	Name         string
	CircuitState gobreaker.State
	Counts       gobreaker.Counts

	// LastSuccessAt and LastFailureAt are nil until the first request of
	// that kind completes.
	LastSuccessAt *time.Time
	LastFailureAt *time.Time

	// LastError is the most recent failure message, if any.
	LastError string
}

// Status maps the circuit state to "OK", "DEGRADED" or "FAIL". A closed
// circuit is DEGRADED once ProbeDegradedThreshold requests in a row failed.
func (h *ProviderHealth) Status() string {
	switch h.CircuitState {
	case gobreaker.StateClosed:
		if h.Counts.ConsecutiveFailures >= ProbeDegradedThreshold {
			return "DEGRADED"
		}
		return "OK"
	case gobreaker.StateHalfOpen:
		return "DEGRADED"
	default:
		return "FAIL"
	}
}

// IsHealthy reports whether Status is "OK".
func (h *ProviderHealth) IsHealthy() bool {
	return h.Status() == "OK"
}

// Registry tracks provider clients and the outcome of their last requests.
// It is safe for concurrent use.
type Registry struct {
	clock func() time.Time

	mu        sync.RWMutex
	providers map[string]*registeredProvider
}

type registeredProvider struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock sets the time source used for success and failure timestamps.
func WithClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		clock:     time.Now,
		providers: make(map[string]*registeredProvider),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds client under name, replacing any earlier client and its history.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &registeredProvider{client: client}
}

// RecordSuccess stamps the last successful request for name.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := r.clock()
		p.lastSuccessAt = &now
	}
}

// RecordFailure stamps the last failed request for name and keeps err's message.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := r.clock()
		p.lastFailureAt = &now
		if err != nil {
			p.lastError = err.Error()
		}
	}
}

// GetHealth returns the health of name, or nil if it is not registered.
func (r *Registry) GetHealth(name string) *ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil
	}
	return p.health(name)
}

// GetAllHealth returns the health of every provider, sorted by name.
func (r *Registry) GetAllHealth() []*ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]*ProviderHealth, 0, len(r.providers))
	for name, p := range r.providers {
		health = append(health, p.health(name))
	}
	slices.SortFunc(health, func(a, b *ProviderHealth) int { return strings.Compare(a.Name, b.Name) })
	return health
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (p *registeredProvider) health(name string) *ProviderHealth {
	return &ProviderHealth{
		Name:          name,
		CircuitState:  p.client.CircuitBreakerState(),
		Counts:        p.client.CircuitBreakerCounts(),
		LastSuccessAt: p.lastSuccessAt,
		LastFailureAt: p.lastFailureAt,
		LastError:     p.lastError,
	}
}
