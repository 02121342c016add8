// Package availability finds the most recent date with published imagery for
// each configured source, searching backward from a requested date.
package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elninowatch/elninowatch/internal/imagery"
)

// Availability errors. Unavailable dates are never errors; these only signal
// programming or configuration mistakes.
var (
	ErrInvalidLookback = errors.New("lookback must be between 1 and 31 days")
	ErrNoSources       = errors.New("no imagery sources configured")
	ErrNoChecker       = errors.New("no availability checker configured")
)

// MaxLookback caps the search window so one resolution stays cheap upstream.
const MaxLookback = 31

// Outcome classifies how a source's date was resolved.
type Outcome string

const (
	// OutcomeExact means the requested date itself has tiles.
	OutcomeExact Outcome = "EXACT"
	// OutcomeFallback means an earlier date was substituted.
	OutcomeFallback Outcome = "FALLBACK"
	// OutcomeExhausted means no date within the lookback window had tiles.
	OutcomeExhausted Outcome = "EXHAUSTED"
)

// Result is the resolution of a single source.
type Result struct {
	Source    imagery.SourceID
	Title     string
	Requested imagery.Date
	Resolved  imagery.Date

	// FallbackDays is nil when Outcome is OutcomeExhausted, otherwise the
	// number of days between Requested and Resolved (0 for exact).
	FallbackDays *int

	Outcome Outcome
	Lookback int

	// Checks is the number of availability checks sent upstream.
	Checks int
}

func found(source imagery.Source, requested imagery.Date, offset, lookback, checks int) Result {
	days := offset
	outcome := OutcomeExact
	if offset > 0 {
		outcome = OutcomeFallback
	}
	return Result{
		Source:       source.ID,
		Title:        source.Title,
		Requested:    requested,
		Resolved:     requested.MinusDays(offset),
		FallbackDays: &days,
		Outcome:      outcome,
		Lookback:     lookback,
		Checks:       checks,
	}
}

func exhausted(source imagery.Source, requested imagery.Date, lookback, checks int) Result {
	return Result{
		Source:    source.ID,
		Title:     source.Title,
		Requested: requested,
		Resolved:  requested,
		Outcome:   OutcomeExhausted,
		Lookback:  lookback,
		Checks:    checks,
	}
}

// Found reports whether a date with tiles was confirmed.
func (r Result) Found() bool {
	return r.Outcome != OutcomeExhausted
}

// Message returns the user-facing note for this source.
func (r Result) Message() string {
	switch r.Outcome {
	case OutcomeFallback:
		return fmt.Sprintf("%s: using %s (no tiles for %s, fell back %s)",
			r.Title, r.Resolved, r.Requested, plural(*r.FallbackDays, "day"))
	case OutcomeExhausted:
		return fmt.Sprintf("%s: no imagery confirmed in the %s up to %s; tiles may be empty",
			r.Title, plural(r.Lookback, "day"), r.Requested)
	default:
		return fmt.Sprintf("%s: %s", r.Title, r.Resolved)
	}
}

// Resolution is the outcome of resolving one requested date across sources.
type Resolution struct {
	Requested  imagery.Date
	Lookback   int
	Results    []Result
	ResolvedAt time.Time
}

// Get returns the result for source.
func (r *Resolution) Get(source imagery.SourceID) (Result, bool) {
	for _, res := range r.Results {
		if res.Source == source {
			return res, true
		}
	}
	return Result{}, false
}

// PerSource returns results keyed by source.
func (r *Resolution) PerSource() map[imagery.SourceID]Result {
	out := make(map[imagery.SourceID]Result, len(r.Results))
	for _, res := range r.Results {
		out[res.Source] = res
	}
	return out
}

// Exhausted reports whether any source could not be confirmed.
func (r *Resolution) Exhausted() bool {
	for _, res := range r.Results {
		if res.Outcome == OutcomeExhausted {
			return true
		}
	}
	return false
}

// FellBack reports whether any source used a substitute date.
func (r *Resolution) FellBack() bool {
	for _, res := range r.Results {
		if res.Outcome == OutcomeFallback {
			return true
		}
	}
	return false
}

// TotalChecks returns the number of checks issued across all sources.
func (r *Resolution) TotalChecks() int {
	total := 0
	for _, res := range r.Results {
		total += res.Checks
	}
	return total
}

// Status returns the status line shown next to the map. When every source
// is exact it is the primary source's message alone; otherwise it joins the
// messages of the sources that fell back or were exhausted.
func (r *Resolution) Status() string {
	if len(r.Results) == 0 {
		return ""
	}
	var parts []string
	for _, res := range r.Results {
		if res.Outcome != OutcomeExact {
			parts = append(parts, res.Message())
		}
	}
	if len(parts) == 0 {
		return r.Results[0].Message()
	}
	return strings.Join(parts, "; ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
