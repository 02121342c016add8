package imagery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultBaseURL is the NASA GIBS WMTS REST endpoint for the Web Mercator projection.
const DefaultBaseURL = "https://gibs.earthdata.nasa.gov/wmts/epsg3857/best"

// ErrUnknownSource is returned when a source identifier is not in the catalog.
var ErrUnknownSource = errors.New("unknown imagery source")

// SourceID identifies an imagery source.
type SourceID string

const (
	SourceTrueColor     SourceID = "true-color"
	SourcePrecipitation SourceID = "precipitation"
	SourceSeaSurface    SourceID = "sea-surface-temperature"
)

// ParseSourceID validates a source identifier.
func ParseSourceID(s string) (SourceID, error) {
	switch id := SourceID(strings.TrimSpace(s)); id {
	case SourceTrueColor, SourcePrecipitation, SourceSeaSurface:
		return id, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// TileCoord addresses a single tile in a tile matrix set.
type TileCoord struct {
	Z int
	X int
	Y int
}

// ParseTileCoord parses a "z/x/y" string.
func ParseTileCoord(s string) (TileCoord, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return TileCoord{}, fmt.Errorf("tile coordinate %q: want z/x/y", s)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return TileCoord{}, fmt.Errorf("tile coordinate %q: invalid component %q", s, p)
		}
		vals[i] = v
	}
	c := TileCoord{Z: vals[0], X: vals[1], Y: vals[2]}
	if size := 1 << c.Z; c.X >= size || c.Y >= size {
		return TileCoord{}, fmt.Errorf("tile coordinate %q: outside zoom %d grid", s, c.Z)
	}
	return c, nil
}

// String formats the coordinate as z/x/y.
func (c TileCoord) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

// Source is one imagery product published per day on the tile server.
type Source struct {
	ID            SourceID
	Title         string
	Attribution   string
	Layer         string
	TileMatrixSet string
	Format        string
	MaxZoom       int
	Opacity       float64

	baseURL string
}

// Template returns the tile address template for the given date, with the
// {z}, {y} and {x} placeholders left for the map widget to fill.
func (s Source) Template(d Date) string {
	return fmt.Sprintf("%s/%s/default/%s/%s/{z}/{y}/{x}.%s",
		s.baseURL, s.Layer, d, s.TileMatrixSet, s.Format)
}

// TileURL expands the template for the given date at a single tile.
func (s Source) TileURL(d Date, c TileCoord) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(c.Z),
		"{x}", strconv.Itoa(c.X),
		"{y}", strconv.Itoa(c.Y),
	)
	return r.Replace(s.Template(d))
}

// WithBaseURL returns a copy of s served from baseURL.
func (s Source) WithBaseURL(baseURL string) Source {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}
