package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/availability"
)

// ServiceConfig holds configuration for the history service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// Clock returns the current time (optional, for tests).
	Clock func() time.Time
}

// Service records resolutions and serves the history log.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	clock  func() time.Time
}

// NewService creates a history service. A nil repository uses an
// in-memory one.
func NewService(cfg ServiceConfig) *Service {
	repo := cfg.Repository
	if repo == nil {
		repo = NewInMemoryRepository(0)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: repo, logger: cfg.Logger, clock: clock}
}

// RecordResolution appends res to the log.
func (s *Service) RecordResolution(ctx context.Context, trigger string, res *availability.Resolution) error {
	if res == nil {
		return nil
	}
	entry := NewEntry(trigger, res)
	entry.ID = uuid.New().String()
	entry.CreatedAt = s.clock().UTC()

	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("record resolution: %w", err)
	}

	s.logger.Debug().
		Str("entry_id", entry.ID).
		Str("trigger", trigger).
		Str("requested", entry.Requested).
		Bool("exhausted", entry.Exhausted).
		Msg("resolution recorded")
	return nil
}

// List returns recent entries, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	return s.repo.List(ctx, opts)
}

// Get returns one entry. IDs are UUIDs; anything else is ErrEntryNotFound
// without consulting the repository.
func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get entry %q: %w", id, ErrEntryNotFound)
	}
	return s.repo.Get(ctx, id)
}
