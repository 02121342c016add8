package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/api/models"
	"github.com/elninowatch/elninowatch/internal/api/response"
	"github.com/elninowatch/elninowatch/internal/availability"
	"github.com/elninowatch/elninowatch/internal/imagery"
	"github.com/elninowatch/elninowatch/internal/imagery/gibs"
)

// TriggerAPIResolve marks history entries created by GET /v1/imagery/resolve.
const TriggerAPIResolve = "api-resolve"

// DateResolver resolves a requested date across the configured sources.
type DateResolver interface {
	Resolve(ctx context.Context, requested imagery.Date, lookback int) (*availability.Resolution, error)
	Today() imagery.Date
	DefaultLookback() int
	Sources() []imagery.Source
}

// TileChecker runs a single detailed availability check.
type TileChecker interface {
	Check(ctx context.Context, source imagery.Source, date imagery.Date) gibs.Check
}

// ResolutionRecorder stores resolutions for later inspection.
type ResolutionRecorder interface {
	RecordResolution(ctx context.Context, trigger string, res *availability.Resolution) error
}

// ImageryHandlerConfig holds the dependencies of an ImageryHandler.
type ImageryHandlerConfig struct {
	Resolver DateResolver
	Catalog  *imagery.Catalog
	Checker  TileChecker

	// Recorder receives every API resolution (optional).
	Recorder ResolutionRecorder

	Logger zerolog.Logger
}

// ImageryHandler handles imagery source and date resolution endpoints.
type ImageryHandler struct {
	resolver DateResolver
	catalog  *imagery.Catalog
	checker  TileChecker
	recorder ResolutionRecorder
	logger   zerolog.Logger
}

// NewImageryHandler creates a new ImageryHandler.
func NewImageryHandler(cfg ImageryHandlerConfig) *ImageryHandler {
	return &ImageryHandler{
		resolver: cfg.Resolver,
		catalog:  cfg.Catalog,
		checker:  cfg.Checker,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}
}

// ListSources handles GET /v1/imagery/sources - configured sources and
// their tile templates for ?date (default today).
func (h *ImageryHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	sources := h.resolver.Sources()
	resp := models.SourceListResponse{
		Date:    date.String(),
		Sources: make([]models.SourceResponse, 0, len(sources)),
	}
	for _, s := range sources {
		resp.Sources = append(resp.Sources, models.SourceResponse{
			ID:            string(s.ID),
			Title:         s.Title,
			Attribution:   s.Attribution,
			Layer:         s.Layer,
			TileMatrixSet: s.TileMatrixSet,
			Format:        s.Format,
			MaxZoom:       s.MaxZoom,
			Opacity:       s.Opacity,
			Template:      s.Template(date),
		})
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// Resolve handles GET /v1/imagery/resolve - one date resolution.
func (h *ImageryHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	lookback := h.resolver.DefaultLookback()
	if raw := r.URL.Query().Get("lookback"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.InvalidField(w, r, "lookback", models.CodeInvalidFormat, "lookback must be an integer")
			return
		}
		lookback = n
	}
	if lookback < 1 || lookback > availability.MaxLookback {
		response.InvalidField(w, r, "lookback", models.CodeOutOfRange, availability.ErrInvalidLookback.Error())
		return
	}

	res, err := h.resolver.Resolve(r.Context(), date, lookback)
	if err != nil {
		h.resolveError(w, r, err)
		return
	}

	if h.recorder != nil {
		if err := h.recorder.RecordResolution(r.Context(), TriggerAPIResolve, res); err != nil {
			h.logger.Warn().Err(err).Msg("failed to record resolution")
		}
	}

	response.JSON(w, r, http.StatusOK, h.resolutionResponse(res))
}

// Check handles GET /v1/imagery/check - one availability check.
func (h *ImageryHandler) Check(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("source"))
	if raw == "" {
		response.InvalidField(w, r, "source", models.CodeRequired, "source is required")
		return
	}
	id, err := imagery.ParseSourceID(raw)
	if err != nil {
		response.InvalidField(w, r, "source", models.CodeUnknownValue, err.Error())
		return
	}
	source, err := h.catalog.Get(id)
	if err != nil {
		response.InvalidField(w, r, "source", models.CodeUnknownValue, err.Error())
		return
	}

	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	c := h.checker.Check(r.Context(), source, date)
	response.JSON(w, r, http.StatusOK, models.CheckResponse{
		Source:      string(c.Source),
		Date:        c.Date.String(),
		URL:         c.URL,
		Available:   c.Available,
		Reason:      string(c.Reason),
		StatusCode:  c.StatusCode,
		ContentType: c.ContentType,
		DurationMs:  c.Duration.Milliseconds(),
	})
}

// dateParam reads ?date, defaulting to today. It writes a 400 and returns
// false when the value is malformed.
func (h *ImageryHandler) dateParam(w http.ResponseWriter, r *http.Request) (imagery.Date, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return h.resolver.Today(), true
	}
	d, err := imagery.ParseDate(raw)
	if err != nil {
		response.InvalidField(w, r, "date", models.CodeInvalidFormat, "date must be YYYY-MM-DD")
		return imagery.Date{}, false
	}
	return d, true
}

func (h *ImageryHandler) resolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, availability.ErrInvalidLookback):
		response.InvalidField(w, r, "lookback", models.CodeOutOfRange, err.Error())
	case errors.Is(err, imagery.ErrInvalidDate):
		response.InvalidField(w, r, "date", models.CodeInvalidFormat, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, "resolution did not complete")
	default:
		h.logger.Error().Err(err).Msg("date resolution failed")
		response.InternalError(w, r, "date resolution failed")
	}
}

func (h *ImageryHandler) resolutionResponse(res *availability.Resolution) models.ResolutionResponse {
	out := models.ResolutionResponse{
		Requested:   res.Requested.String(),
		Lookback:    res.Lookback,
		Exhausted:   res.Exhausted(),
		FellBack:    res.FellBack(),
		TotalChecks: res.TotalChecks(),
		Status:      res.Status(),
		Results:     make([]models.ResultResponse, 0, len(res.Results)),
		ResolvedAt:  models.Timestamp(res.ResolvedAt),
	}

	templates := make(map[imagery.SourceID]imagery.Source)
	for _, s := range h.resolver.Sources() {
		templates[s.ID] = s
	}

	for _, result := range res.Results {
		rr := models.ResultResponse{
			Source:       string(result.Source),
			Title:        result.Title,
			Requested:    result.Requested.String(),
			Resolved:     result.Resolved.String(),
			FallbackDays: result.FallbackDays,
			Outcome:      string(result.Outcome),
			Checks:       result.Checks,
			Message:      result.Message(),
		}
		if s, ok := templates[result.Source]; ok {
			rr.Template = s.Template(result.Resolved)
		}
		out.Results = append(out.Results, rr)
	}
	return out
}
