package imagery_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elninowatch/elninowatch/internal/imagery"
)

func TestParseDate(t *testing.T) {
	d, err := imagery.ParseDate("2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15", d.String())
	assert.Equal(t, time.UTC, d.Time().Location())
}

func TestParseDate_Invalid(t *testing.T) {
	for _, s := range []string{"", "2025-6-15", "15/06/2025", "2025-02-30", "2023-02-29", "not a date"} {
		t.Run(s, func(t *testing.T) {
			_, err := imagery.ParseDate(s)
			assert.ErrorIs(t, err, imagery.ErrInvalidDate)
		})
	}
}

func TestDate_MinusDays(t *testing.T) {
	tests := []struct {
		start string
		days  int
		want  string
	}{
		{"2024-03-02", 3, "2024-02-28"},
		{"2025-03-02", 3, "2025-02-27"},
		{"2024-03-01", 1, "2024-02-29"},
		{"2025-01-01", 1, "2024-12-31"},
		{"2025-06-15", 0, "2025-06-15"},
		{"2025-06-15", 3, "2025-06-12"},
		{"2024-12-31", -1, "2025-01-01"},
	}

	for _, tc := range tests {
		t.Run(tc.start, func(t *testing.T) {
			got := imagery.MustParseDate(tc.start).MinusDays(tc.days)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestDate_MinusDays_RoundTrip(t *testing.T) {
	start := imagery.MustParseDate("2023-11-20")
	for day := 0; day < 500; day++ {
		d := start.MinusDays(-day)
		for _, k := range []int{0, 1, 2, 7, 31, 365, 366} {
			assert.Equal(t, d.String(), d.MinusDays(k).MinusDays(-k).String(), "k=%d", k)
		}
	}
}

func TestDate_DaysSince(t *testing.T) {
	a := imagery.MustParseDate("2025-03-01")
	b := imagery.MustParseDate("2025-02-26")
	assert.Equal(t, 3, a.DaysSince(b))
	assert.Equal(t, -3, b.DaysSince(a))
	assert.True(t, b.Before(a))
}

func TestDateOf_NormalizesToUTC(t *testing.T) {
	lima := time.FixedZone("PET", -5*60*60)
	local := time.Date(2025, 6, 15, 21, 30, 0, 0, lima) // 02:30 UTC next day
	assert.Equal(t, "2025-06-16", imagery.DateOf(local).String())
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Date imagery.Date `json:"date"`
	}

	b, err := json.Marshal(payload{Date: imagery.MustParseDate("2025-06-12")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-06-12"}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-02-29"}`), &p))
	assert.Equal(t, "2024-02-29", p.Date.String())

	err = json.Unmarshal([]byte(`{"date":"2024-02-30"}`), &p)
	assert.ErrorIs(t, err, imagery.ErrInvalidDate)
}
