package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/api/models"
	"github.com/elninowatch/elninowatch/internal/api/response"
	"github.com/elninowatch/elninowatch/internal/history"
)

// AdminHandler serves the resolution history to operators.
type AdminHandler struct {
	history *history.Service
	logger  zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *history.Service, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{history: svc, logger: logger}
}

// ListResolutions handles GET /v1/admin/resolutions.
// Query: limit (1..500), trigger, exhausted=true.
func (h *AdminHandler) ListResolutions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := history.ListOptions{Trigger: q.Get("trigger")}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > history.MaxListLimit {
			response.InvalidField(w, r, "limit", models.CodeOutOfRange, "limit must be between 1 and 500")
			return
		}
		opts.Limit = n
	}
	if raw := q.Get("exhausted"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			response.InvalidField(w, r, "exhausted", models.CodeInvalidFormat, "exhausted must be a boolean")
			return
		}
		opts.ExhaustedOnly = b
	}

	entries, err := h.history.List(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list resolutions")
		response.InternalError(w, r, "failed to list resolutions")
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}

	response.JSON(w, r, http.StatusOK, models.HistoryListResponse{
		Items: entries,
		Meta:  models.PagedResponseMeta{Limit: opts.EffectiveLimit(), Count: len(entries)},
	})
}

// GetResolution handles GET /v1/admin/resolutions/{entryId}.
func (h *AdminHandler) GetResolution(w http.ResponseWriter, r *http.Request) {
	entry, err := h.history.Get(r.Context(), chi.URLParam(r, "entryId"))
	if err != nil {
		if errors.Is(err, history.ErrEntryNotFound) {
			response.NotFound(w, r, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("failed to get resolution")
		response.InternalError(w, r, "failed to get resolution")
		return
	}
	response.JSON(w, r, http.StatusOK, entry)
}
