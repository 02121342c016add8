package models

import "github.com/elninowatch/elninowatch/internal/mapsession"

// SessionResponse is a map session and its current view state.
type SessionResponse struct {
	ID            string           `json:"id"`
	CreatedAt     Timestamp        `json:"createdAt"`
	Resolving     bool             `json:"resolving"`
	VisibleLayers []string         `json:"visibleLayers"`
	State         mapsession.State `json:"state"`
}

// NewSessionResponse builds the response for s.
func NewSessionResponse(s *mapsession.Session) SessionResponse {
	state := s.State()
	visible := state.VisibleLayers()
	if visible == nil {
		visible = []string{}
	}
	return SessionResponse{
		ID:            s.ID,
		CreatedAt:     Timestamp(s.CreatedAt),
		Resolving:     s.Resolving(),
		VisibleLayers: visible,
		State:         state,
	}
}
