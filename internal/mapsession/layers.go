// Package mapsession owns the state of one map view: the active layer set,
// viewport, and the status line, updated by the named UI events.
package mapsession

import (
	"github.com/elninowatch/elninowatch/internal/imagery"
)

// Logical layer names. Renderers address layers by these keys.
const (
	LayerTrueColor     = "true-color"
	LayerPrecipitation = "precipitation"
	LayerSeaSurface    = "sea-surface-temperature"
	LayerStreets       = "streets"
	LayerEsri          = "esri-world-imagery"
	LayerHeatPiura     = "heat-piura"
	LayerHeatPeru      = "heat-peru"
	LayerHeatForecast  = "heat-forecast"
)

// LayerKind distinguishes raster tile layers from point heatmaps.
type LayerKind string

const (
	KindBase    LayerKind = "base"
	KindOverlay LayerKind = "overlay"
	KindHeatmap LayerKind = "heatmap"
)

const (
	streetsURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	esriURL    = "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}"
)

// Viewport constants.
const (
	InitialZoom = 5
	PiuraZoom   = 13

	// StreetsMinZoom is exclusive: streets are shown only above it.
	StreetsMinZoom = 10
)

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds is a south-west / north-east box.
type Bounds struct {
	SouthWest LatLng `json:"southWest"`
	NorthEast LatLng `json:"northEast"`
}

// Contains reports whether p lies within b, edges inclusive.
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lon >= b.SouthWest.Lon && p.Lon <= b.NorthEast.Lon
}

var (
	InitialCenter = LatLng{Lat: -9.2, Lon: -75}
	PeruBounds    = Bounds{SouthWest: LatLng{-18.5, -81.5}, NorthEast: LatLng{1.0, -68.0}}
	PiuraBounds   = Bounds{SouthWest: LatLng{-5.3, -80.75}, NorthEast: LatLng{-5.1, -80.55}}

	// ForecastBounds is the box the forecast placeholder is drawn from.
	ForecastBounds = Bounds{SouthWest: LatLng{-5, -80.75}, NorthEast: LatLng{-4.7, -80.55}}
)

// HeatPoint is one weighted heatmap sample.
type HeatPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Intensity float64 `json:"intensity"`
}

// Layer describes one renderable layer. Tile layers carry a URL template;
// heatmaps carry points.
type Layer struct {
	Name        string           `json:"name"`
	Label       string           `json:"label"`
	Kind        LayerKind        `json:"kind"`
	Source      imagery.SourceID `json:"source,omitempty"`
	Date        string           `json:"date,omitempty"`
	URL         string           `json:"url,omitempty"`
	Attribution string           `json:"attribution,omitempty"`
	MaxZoom     int              `json:"maxZoom,omitempty"`
	Opacity     float64          `json:"opacity"`
	Visible     bool             `json:"visible"`

	Radius int         `json:"radius,omitempty"`
	Blur   int         `json:"blur,omitempty"`
	Points []HeatPoint `json:"points,omitempty"`
}

func imageryLayer(name, label string, kind LayerKind, src imagery.Source, d imagery.Date, visible bool) Layer {
	return Layer{
		Name:        name,
		Label:       label,
		Kind:        kind,
		Source:      src.ID,
		Date:        d.String(),
		URL:         src.Template(d),
		Attribution: src.Attribution,
		MaxZoom:     src.MaxZoom,
		Opacity:     src.Opacity,
		Visible:     visible,
	}
}

func streetsLayer(zoom float64) Layer {
	return Layer{
		Name:        LayerStreets,
		Label:       "OSM streets (zoom > 10)",
		Kind:        KindOverlay,
		URL:         streetsURL,
		Attribution: "© OpenStreetMap contributors",
		Opacity:     0.8,
		Visible:     zoom > StreetsMinZoom,
	}
}

func esriLayer() Layer {
	return Layer{
		Name:        LayerEsri,
		Label:       "Esri World Imagery (fallback)",
		Kind:        KindBase,
		URL:         esriURL,
		Attribution: "Tiles © Esri",
		Opacity:     1,
	}
}

func heatLayer(name, label string, radius, blur, maxZoom int, opacity float64, points []HeatPoint, visible bool) Layer {
	return Layer{
		Name:    name,
		Label:   label,
		Kind:    KindHeatmap,
		MaxZoom: maxZoom,
		Opacity: opacity,
		Radius:  radius,
		Blur:    blur,
		Points:  points,
		Visible: visible,
	}
}
