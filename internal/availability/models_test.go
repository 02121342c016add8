package availability_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/imagery"
)

func TestResult_Message(t *testing.T) {
	source := trueColor(t)
	start := imagery.MustParseDate("2025-06-15")

	tests := []struct {
		name    string
		allowed []string
		want    string
	}{
		{"exact", []string{"2025-06-15"}, "MODIS Terra True Color: 2025-06-15"},
		{"one day", []string{"2025-06-14"}, "MODIS Terra True Color: using 2025-06-14 (no tiles for 2025-06-15, fell back 1 day)"},
		{"exhausted", nil, "MODIS Terra True Color: no imagery confirmed in the 3 days up to 2025-06-15; tiles may be empty"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checker := newFakeChecker()
			checker.allow(imagery.SourceTrueColor, tc.allowed...)
			probe := availability.NewProbe(checker, zerolog.Nop())

			result := probe.FindAvailableDate(context.Background(), source, start, 3)
			assert.Equal(t, tc.want, result.Message())
		})
	}
}

func TestResolution_EmptyStatus(t *testing.T) {
	r := &availability.Resolution{}
	assert.Empty(t, r.Status())
	assert.False(t, r.Exhausted())
	assert.False(t, r.FellBack())
	_, ok := r.Get(imagery.SourceTrueColor)
	assert.False(t, ok)
}

func TestResolution_Status(t *testing.T) {
	start := imagery.MustParseDate("2025-06-15")
	days := func(n int) *int { return &n }
	exact := func(id imagery.SourceID, title string) availability.Result {
		return availability.Result{
			Source: id, Title: title, Requested: start, Resolved: start,
			Outcome: availability.OutcomeExact, FallbackDays: days(0), Lookback: 7, Checks: 1,
		}
	}
	modis := exact(imagery.SourceTrueColor, "MODIS Terra True Color")
	imerg := exact(imagery.SourcePrecipitation, "IMERG Precipitation")

	t.Run("all exact names only the primary source", func(t *testing.T) {
		r := &availability.Resolution{Requested: start, Results: []availability.Result{modis, imerg}}
		assert.Equal(t, "MODIS Terra True Color: 2025-06-15", r.Status())
	})

	t.Run("exact sources are left out next to a fallback", func(t *testing.T) {
		late := imerg
		late.Outcome = availability.OutcomeFallback
		late.Resolved = start.MinusDays(2)
		late.FallbackDays = days(2)

		r := &availability.Resolution{Requested: start, Results: []availability.Result{modis, late}}
		assert.Equal(t,
			"IMERG Precipitation: using 2025-06-13 (no tiles for 2025-06-15, fell back 2 days)",
			r.Status())
	})

	t.Run("fallback and exhausted are both reported", func(t *testing.T) {
		late := modis
		late.Outcome = availability.OutcomeFallback
		late.Resolved = start.MinusDays(1)
		late.FallbackDays = days(1)
		missing := imerg
		missing.Outcome = availability.OutcomeExhausted
		missing.FallbackDays = nil

		r := &availability.Resolution{Requested: start, Results: []availability.Result{late, missing}}
		status := r.Status()
		assert.Contains(t, status, "MODIS Terra True Color: using 2025-06-14")
		assert.Contains(t, status, "IMERG Precipitation: no imagery confirmed in the 7 days up to 2025-06-15")
		assert.Equal(t, 1, strings.Count(status, "; "))
	})
}
