// Package history keeps an audit log of imagery date resolutions. The log
// is write-only from the resolver's point of view and never consulted when
// resolving.
package history

import (
	"errors"
	"time"

	"github.com/elninowatch/elninowatch/internal/availability"
)

// ErrEntryNotFound is returned when an entry does not exist.
var ErrEntryNotFound = errors.New("history entry not found")

// SourceEntry is the outcome for one source within an entry.
type SourceEntry struct {
	Source       string `json:"source"`
	Resolved     string `json:"resolved"`
	FallbackDays *int   `json:"fallbackDays"`
	Outcome      string `json:"outcome"`
	Checks       int    `json:"checks"`
}

// Entry is one recorded resolution.
type Entry struct {
	ID         string        `json:"id"`
	Trigger    string        `json:"trigger"`
	Requested  string        `json:"requested"`
	Lookback   int           `json:"lookback"`
	Exhausted  bool          `json:"exhausted"`
	FellBack   bool          `json:"fellBack"`
	Status     string        `json:"status"`
	Sources    []SourceEntry `json:"sources"`
	ResolvedAt time.Time     `json:"resolvedAt"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// NewEntry flattens a resolution into an entry. ID and CreatedAt are left
// for the caller.
func NewEntry(trigger string, res *availability.Resolution) *Entry {
	e := &Entry{
		Trigger:    trigger,
		Requested:  res.Requested.String(),
		Lookback:   res.Lookback,
		Exhausted:  res.Exhausted(),
		FellBack:   res.FellBack(),
		Status:     res.Status(),
		ResolvedAt: res.ResolvedAt,
		Sources:    make([]SourceEntry, 0, len(res.Results)),
	}
	for _, r := range res.Results {
		se := SourceEntry{
			Source:   string(r.Source),
			Resolved: r.Resolved.String(),
			Outcome:  string(r.Outcome),
			Checks:   r.Checks,
		}
		if r.FallbackDays != nil {
			days := *r.FallbackDays
			se.FallbackDays = &days
		}
		e.Sources = append(e.Sources, se)
	}
	return e
}

func (e *Entry) clone() *Entry {
	cpy := *e
	cpy.Sources = make([]SourceEntry, len(e.Sources))
	copy(cpy.Sources, e.Sources)
	return &cpy
}
