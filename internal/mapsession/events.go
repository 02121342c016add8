package mapsession

import (
	"fmt"
	"strings"
)

// EventType names a UI event.
type EventType string

const (
	EventDateSubmitted EventType = "date-submitted"
	EventZoomChanged   EventType = "zoom-changed"
	EventRegionClicked EventType = "region-button-clicked"
	EventLayerToggled  EventType = "layer-toggled"
	EventMapClicked    EventType = "map-clicked"
)

// Event is a UI event with its payload. Only the fields of its type are read.
type Event struct {
	Type EventType `json:"type"`

	// date-submitted
	Date string `json:"date,omitempty"`

	// zoom-changed
	Zoom *float64 `json:"zoom,omitempty"`

	// region-button-clicked
	Region Region `json:"region,omitempty"`

	// layer-toggled
	Layer   string `json:"layer,omitempty"`
	Visible *bool  `json:"visible,omitempty"`

	// map-clicked
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
}

// Validate checks the payload required by the event type.
func (e Event) Validate() error {
	switch e.Type {
	case EventDateSubmitted:
		if strings.TrimSpace(e.Date) == "" {
			return ErrDateRequired
		}
	case EventZoomChanged:
		if e.Zoom == nil {
			return fmt.Errorf("%w: zoom is required", ErrInvalidZoom)
		}
	case EventRegionClicked:
		if e.Region != RegionPeru && e.Region != RegionPiura {
			return fmt.Errorf("%w: %q", ErrUnknownRegion, e.Region)
		}
	case EventLayerToggled:
		if e.Layer == "" || e.Visible == nil {
			return fmt.Errorf("%w: layer and visible are required", ErrUnknownLayer)
		}
	case EventMapClicked:
		if e.Lat == nil || e.Lon == nil {
			return fmt.Errorf("%w: lat and lon are required", ErrInvalidCoordinate)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
	return nil
}

// applyPure runs the transitions that need no I/O.
func applyPure(s State, e Event) (State, error) {
	switch e.Type {
	case EventZoomChanged:
		return ApplyZoom(s, *e.Zoom)
	case EventRegionClicked:
		return ApplyRegion(s, e.Region)
	case EventLayerToggled:
		return ApplyToggle(s, e.Layer, *e.Visible)
	case EventMapClicked:
		return ApplyClick(s, LatLng{Lat: *e.Lat, Lon: *e.Lon})
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
}
