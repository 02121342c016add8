package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/api/middleware"
	"github.com/elninowatch/elninowatch/internal/api/models"
	"github.com/elninowatch/elninowatch/internal/api/response"
	"github.com/elninowatch/elninowatch/internal/imagery"
	"github.com/elninowatch/elninowatch/internal/mapsession"
)

// maxEventBody caps the size of an event payload.
const maxEventBody = 4 << 10

// SessionHandler handles map session endpoints.
type SessionHandler struct {
	store  *mapsession.Store
	logger zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(store *mapsession.Store, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{store: store, logger: logger}
}

// CreateSession handles POST /v1/sessions - open a map view for today.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Create(r.Context())
	if err != nil {
		h.sessionError(w, r, err)
		return
	}
	response.Created(w, r, "/v1/sessions/"+sess.ID, models.NewSessionResponse(sess))
}

// GetSession handles GET /v1/sessions/{sessionId}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(chi.URLParam(r, middleware.SessionIDParam))
	if err != nil {
		h.sessionError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewSessionResponse(sess))
}

// DeleteSession handles DELETE /v1/sessions/{sessionId}.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(chi.URLParam(r, middleware.SessionIDParam)); err != nil {
		h.sessionError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// PostEvent handles POST /v1/sessions/{sessionId}/events - apply one UI event.
func (h *SessionHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var event mapsession.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&event); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	id := chi.URLParam(r, middleware.SessionIDParam)
	if _, err := h.store.Dispatch(r.Context(), id, event); err != nil {
		h.sessionError(w, r, err)
		return
	}

	sess, err := h.store.Get(id)
	if err != nil {
		h.sessionError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewSessionResponse(sess))
}

func (h *SessionHandler) sessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, mapsession.ErrSessionNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, mapsession.ErrResolutionInProgress):
		response.Conflict(w, r, err.Error())
	case errors.Is(err, mapsession.ErrDateRequired):
		response.InvalidField(w, r, "date", models.CodeRequired, err.Error())
	case errors.Is(err, imagery.ErrInvalidDate):
		response.InvalidField(w, r, "date", models.CodeInvalidFormat, "date must be YYYY-MM-DD")
	case errors.Is(err, mapsession.ErrUnknownEvent):
		response.InvalidField(w, r, "type", models.CodeUnknownValue, err.Error())
	case errors.Is(err, mapsession.ErrUnknownRegion):
		response.InvalidField(w, r, "region", models.CodeUnknownValue, err.Error())
	case errors.Is(err, mapsession.ErrUnknownLayer):
		response.InvalidField(w, r, "layer", models.CodeUnknownValue, err.Error())
	case errors.Is(err, mapsession.ErrInvalidZoom):
		response.InvalidField(w, r, "zoom", models.CodeOutOfRange, err.Error())
	case errors.Is(err, mapsession.ErrInvalidCoordinate):
		response.InvalidField(w, r, "lat", models.CodeOutOfRange, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, "resolution did not complete")
	default:
		h.logger.Error().Err(err).Msg("session request failed")
		response.InternalError(w, r, "session request failed")
	}
}
