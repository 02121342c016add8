package history

import "context"

// ListOptions contains options for listing entries.
type ListOptions struct {
	// Limit caps the number of entries returned (default 50, max 500).
	Limit int

	// Trigger filters by trigger when set.
	Trigger string

	// ExhaustedOnly keeps only resolutions where a source was exhausted.
	ExhaustedOnly bool
}

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// EffectiveLimit returns Limit after applying the default and the cap.
func (o ListOptions) EffectiveLimit() int {
	switch {
	case o.Limit <= 0:
		return DefaultListLimit
	case o.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return o.Limit
	}
}

func (o ListOptions) matches(e *Entry) bool {
	if o.Trigger != "" && e.Trigger != o.Trigger {
		return false
	}
	if o.ExhaustedOnly && !e.Exhausted {
		return false
	}
	return true
}

// Repository defines the interface for resolution history persistence.
type Repository interface {
	// Append stores a new entry.
	Append(ctx context.Context, entry *Entry) error

	// Get retrieves an entry by ID.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns entries newest first.
	List(ctx context.Context, opts ListOptions) ([]*Entry, error)
}
