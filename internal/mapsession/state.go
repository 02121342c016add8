package mapsession

import (
	"fmt"
	"math"
	"time"

	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/imagery"
)

// MaxZoom is the deepest zoom level accepted from clients.
const MaxZoom = 22

// Region names a viewport preset.
type Region string

const (
	RegionPeru  Region = "peru"
	RegionPiura Region = "piura"
)

// State is an immutable snapshot of a map view. Transitions return a new
// State and never modify their input.
type State struct {
	RequestedDate imagery.Date             `json:"requestedDate"`
	CurrentDate   imagery.Date             `json:"currentDate"`
	Zoom          float64                  `json:"zoom"`
	Center        LatLng                   `json:"center"`
	Bounds        Bounds                   `json:"bounds"`
	Layers        map[string]Layer         `json:"layers"`
	Status        string                   `json:"status"`
	Marker        *LatLng                  `json:"marker,omitempty"`
	Resolution    *availability.Resolution `json:"-"`
	UpdatedAt     time.Time                `json:"updatedAt"`
}

// Clone returns a deep copy of the layer map and marker.
func (s State) Clone() State {
	out := s
	out.Layers = make(map[string]Layer, len(s.Layers))
	for k, v := range s.Layers {
		out.Layers[k] = v
	}
	if s.Marker != nil {
		m := *s.Marker
		out.Marker = &m
	}
	return out
}

// Layer returns the named layer.
func (s State) Layer(name string) (Layer, bool) {
	l, ok := s.Layers[name]
	return l, ok
}

// VisibleLayers returns the names of visible layers.
func (s State) VisibleLayers() []string {
	var names []string
	for _, name := range layerOrder {
		if l, ok := s.Layers[name]; ok && l.Visible {
			names = append(names, name)
		}
	}
	return names
}

var layerOrder = []string{
	LayerTrueColor, LayerEsri, LayerPrecipitation, LayerSeaSurface,
	LayerStreets, LayerHeatPiura, LayerHeatPeru, LayerHeatForecast,
}

// ApplyZoom records a zoom change and toggles the streets layer.
func ApplyZoom(s State, zoom float64) (State, error) {
	if zoom < 0 || zoom > MaxZoom || math.IsNaN(zoom) {
		return s, fmt.Errorf("%w: got %v", ErrInvalidZoom, zoom)
	}
	out := s.Clone()
	out.Zoom = zoom
	updateStreets(&out)
	return out, nil
}

// ApplyRegion moves the viewport to a preset region. Piura additionally
// zooms in and shows the precipitation and Piura heatmap layers.
func ApplyRegion(s State, region Region) (State, error) {
	out := s.Clone()
	switch region {
	case RegionPeru:
		out.Bounds = PeruBounds
		out.Center = center(PeruBounds)
		out.Zoom = InitialZoom
	case RegionPiura:
		out.Bounds = PiuraBounds
		out.Center = center(PiuraBounds)
		out.Zoom = PiuraZoom
		setVisible(&out, LayerPrecipitation, true)
		setVisible(&out, LayerHeatPiura, true)
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	updateStreets(&out)
	return out, nil
}

// ApplyToggle shows or hides a layer, as the layer control does.
// Streets stay governed by zoom.
func ApplyToggle(s State, name string, visible bool) (State, error) {
	if _, ok := s.Layers[name]; !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}
	out := s.Clone()
	setVisible(&out, name, visible)
	updateStreets(&out)
	return out, nil
}

// ApplyClick places the coordinate marker, rounded to six decimals.
func ApplyClick(s State, p LatLng) (State, error) {
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return s, fmt.Errorf("%w: %v,%v", ErrInvalidCoordinate, p.Lat, p.Lon)
	}
	out := s.Clone()
	out.Marker = &LatLng{Lat: round6(p.Lat), Lon: round6(p.Lon)}
	return out, nil
}

func setVisible(s *State, name string, visible bool) {
	if l, ok := s.Layers[name]; ok {
		l.Visible = visible
		s.Layers[name] = l
	}
}

func updateStreets(s *State) {
	setVisible(s, LayerStreets, s.Zoom > StreetsMinZoom)
}

func center(b Bounds) LatLng {
	return LatLng{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lon: (b.SouthWest.Lon + b.NorthEast.Lon) / 2,
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
