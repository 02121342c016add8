package mapsession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/imagery"
)

// StoreConfig holds configuration for the session store.
type StoreConfig struct {
	// Resolver resolves imagery dates (required).
	Resolver Resolver

	// Catalog provides tile templates (default: GIBS catalog).
	Catalog *imagery.Catalog

	// Heat generates placeholder heatmap points (default: randomly seeded).
	Heat *HeatGenerator

	// Recorder receives completed resolutions (optional).
	Recorder Recorder

	// Lookback is passed to every resolution; 0 uses the resolver default.
	Lookback int

	// TTL expires sessions not seen for this long (default: 30m).
	TTL time.Duration

	// Logger for session operations.
	Logger zerolog.Logger

	// Clock returns the current time (optional, for tests).
	Clock func() time.Time
}

// Store keeps live sessions in memory.
type Store struct {
	deps *deps
	ttl  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a session store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Resolver == nil {
		return nil, ErrNoResolver
	}
	if cfg.Catalog == nil {
		cfg.Catalog = imagery.NewCatalog("")
	}
	if cfg.Heat == nil {
		cfg.Heat = NewHeatGenerator()
	}
	if cfg.TTL == 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Store{
		deps: &deps{
			resolver: cfg.Resolver,
			recorder: cfg.Recorder,
			builder:  &builder{catalog: cfg.Catalog, heat: cfg.Heat},
			lookback: cfg.Lookback,
			logger:   cfg.Logger,
			clock:    cfg.Clock,
		},
		ttl:      cfg.TTL,
		sessions: make(map[string]*Session),
	}, nil
}

// Create opens a session and resolves today's imagery, like a page load.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	today := s.deps.resolver.Today()
	res, err := s.deps.resolver.Resolve(ctx, today, s.deps.lookback)
	if err != nil {
		return nil, fmt.Errorf("initial resolution: %w", err)
	}

	now := s.deps.clock()
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		deps:      s.deps,
		state:     s.deps.builder.initial(res, now),
		lastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.deps.record(ctx, TriggerSessionCreated, res)
	s.deps.logger.Info().
		Str("session_id", sess.ID).
		Str("current_date", sess.state.CurrentDate.String()).
		Msg("session created")

	return sess, nil
}

// Get returns a live session and marks it as seen.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	now := s.deps.clock()
	if !ok || sess.expired(now, s.ttl) {
		return nil, ErrSessionNotFound
	}
	sess.touch(now)
	return sess, nil
}

// Dispatch applies an event to the session with the given ID.
func (s *Store) Dispatch(ctx context.Context, id string, e Event) (State, error) {
	sess, err := s.Get(id)
	if err != nil {
		return State{}, err
	}
	return sess.Handle(ctx, e)
}

// Delete discards a session, like a page unload.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
// Sessions with a resolution in flight are kept.
func (s *Store) Sweep() int {
	now := s.deps.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.expired(now, s.ttl) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.deps.logger.Debug().Int("removed", removed).Msg("expired sessions swept")
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
