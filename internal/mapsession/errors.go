package mapsession

import "errors"

// Session errors.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrResolutionInProgress = errors.New("a date resolution is already in progress for this session")
	ErrDateRequired         = errors.New("a date is required")
	ErrUnknownEvent         = errors.New("unknown event type")
	ErrUnknownRegion        = errors.New("unknown region")
	ErrUnknownLayer         = errors.New("unknown layer")
	ErrInvalidZoom          = errors.New("zoom must be between 0 and 22")
	ErrInvalidCoordinate    = errors.New("coordinate out of range")
	ErrNoResolver           = errors.New("no date resolver configured")
)
