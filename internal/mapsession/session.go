package mapsession

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/imagery"
)

// Resolver resolves imagery dates. *availability.Coordinator implements it.
type Resolver interface {
	Resolve(ctx context.Context, requested imagery.Date, lookback int) (*availability.Resolution, error)
	Today() imagery.Date
}

// Recorder receives every completed resolution.
type Recorder interface {
	RecordResolution(ctx context.Context, trigger string, res *availability.Resolution) error
}

// Resolution triggers passed to Recorder.
const (
	TriggerSessionCreated = "session-created"
	TriggerDateSubmitted  = "date-submitted"
)

// Session is one live map view. All methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	deps *deps

	mu        sync.Mutex
	state     State
	resolving bool
	lastSeen  time.Time
}

// deps are shared by every session of a store.
type deps struct {
	resolver Resolver
	recorder Recorder
	builder  *builder
	lookback int
	logger   zerolog.Logger
	clock    func() time.Time
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Resolving reports whether a date resolution is in flight.
func (s *Session) Resolving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolving
}

// Handle applies e and returns the resulting state.
//
// A date-submitted event while another resolution is running fails with
// ErrResolutionInProgress and leaves the state unchanged. Other events are
// applied immediately, even during a resolution.
func (s *Session) Handle(ctx context.Context, e Event) (State, error) {
	if err := e.Validate(); err != nil {
		return State{}, err
	}
	if e.Type == EventDateSubmitted {
		return s.submitDate(ctx, e.Date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := applyPure(s.state, e)
	if err != nil {
		return State{}, err
	}
	next.UpdatedAt = s.deps.clock()
	s.state = next
	return next.Clone(), nil
}

func (s *Session) submitDate(ctx context.Context, raw string) (State, error) {
	date, err := imagery.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return State{}, err
	}

	s.mu.Lock()
	if s.resolving {
		s.mu.Unlock()
		return State{}, ErrResolutionInProgress
	}
	s.resolving = true
	s.mu.Unlock()

	res, err := s.deps.resolver.Resolve(ctx, date, s.deps.lookback)

	s.mu.Lock()
	s.resolving = false
	if err != nil {
		s.mu.Unlock()
		return State{}, fmt.Errorf("resolve session %s: %w", s.ID, err)
	}
	s.state = s.deps.builder.rebuild(s.state, res, s.deps.clock())
	next := s.state.Clone()
	s.mu.Unlock()

	// Recording may block on storage and must not hold the session lock.
	s.deps.record(ctx, TriggerDateSubmitted, res)

	s.deps.logger.Info().
		Str("session_id", s.ID).
		Str("requested", res.Requested.String()).
		Str("current_date", next.CurrentDate.String()).
		Bool("exhausted", res.Exhausted()).
		Msg("session layers replaced")

	return next, nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.resolving && now.Sub(s.lastSeen) > ttl
}

func (d *deps) record(ctx context.Context, trigger string, res *availability.Resolution) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordResolution(ctx, trigger, res); err != nil {
		d.logger.Warn().Err(err).Str("trigger", trigger).Msg("failed to record resolution")
	}
}
