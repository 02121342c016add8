package imagery

import (
	"fmt"
	"strings"
)

// builtin lists the GIBS products shown on the map.
var builtin = []Source{
	{
		ID:            SourceTrueColor,
		Title:         "MODIS Terra True Color",
		Attribution:   "NASA EOSDIS GIBS - MODIS Terra True Color",
		Layer:         "MODIS_Terra_CorrectedReflectance_TrueColor",
		TileMatrixSet: "GoogleMapsCompatible_Level9",
		Format:        "jpg",
		MaxZoom:       9,
		Opacity:       1,
	},
	{
		ID:            SourcePrecipitation,
		Title:         "IMERG Precipitation Rate (30min)",
		Attribution:   "NASA EOSDIS GIBS - IMERG Precipitation Rate (30min)",
		Layer:         "IMERG_Precipitation_Rate_30min",
		TileMatrixSet: "GoogleMapsCompatible_Level6",
		Format:        "png",
		MaxZoom:       6,
		Opacity:       0.65,
	},
	{
		ID:            SourceSeaSurface,
		Title:         "Sea Surface Temperature Anomalies",
		Attribution:   "NASA EOSDIS GIBS - Sea Surface Temperature Anomalies",
		Layer:         "Sea_Surface_Temperature_Anomalies_L4_MUR25",
		TileMatrixSet: "GoogleMapsCompatible_Level6",
		Format:        "png",
		MaxZoom:       6,
		Opacity:       0.75,
	},
}

// Catalog is an ordered, immutable set of sources served from one base URL.
type Catalog struct {
	baseURL string
	sources []Source
	byID    map[SourceID]Source
}

// NewCatalog builds the catalog of built-in sources served from baseURL.
// An empty baseURL uses DefaultBaseURL.
func NewCatalog(baseURL string) *Catalog {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Catalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		byID:    make(map[SourceID]Source, len(builtin)),
	}
	for _, s := range builtin {
		s = s.WithBaseURL(c.baseURL)
		c.sources = append(c.sources, s)
		c.byID[s.ID] = s
	}
	return c
}

// BaseURL returns the tile server base URL.
func (c *Catalog) BaseURL() string {
	return c.baseURL
}

// All returns every source in catalog order.
func (c *Catalog) All() []Source {
	out := make([]Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// Get returns the source with the given ID.
func (c *Catalog) Get(id SourceID) (Source, error) {
	s, ok := c.byID[id]
	if !ok {
		return Source{}, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
	return s, nil
}

// Select returns the sources for ids, in the order given.
func (c *Catalog) Select(ids []SourceID) ([]Source, error) {
	out := make([]Source, 0, len(ids))
	for _, id := range ids {
		s, err := c.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
