// Package handler provides the HTTP handlers of the imagery API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/elninowatch/elninowatch/internal/api/models"
	"github.com/elninowatch/elninowatch/internal/api/response"
	"github.com/elninowatch/elninowatch/internal/provider/resilience"
)

// readinessTimeout bounds all dependency checks of one readiness probe.
const readinessTimeout = 2 * time.Second

// DependencyCheck is a named readiness check, such as a database ping.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	checks    []DependencyCheck
	clock     func() time.Time
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, checks ...DependencyCheck) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		checks:    checks,
		clock:     time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.clock()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// Any failing dependency makes the service not ready.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.subsystems(r.Context())

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.clock()),
	}
	failed := map[string]any{}
	for _, s := range subsystems {
		if s.Status == models.HealthStatusFail {
			failed[s.Name] = *s.Detail
		}
	}
	if len(failed) > 0 {
		health.Status = models.HealthStatusFail
		health.Details = failed
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	subsystems := h.subsystems(r.Context())
	providers := h.providers()

	statuses := make([]models.HealthStatus, 0, len(subsystems)+len(providers))
	for _, s := range subsystems {
		statuses = append(statuses, s.Status)
	}
	// An open circuit degrades the service; resolutions still complete,
	// reporting the affected sources as unavailable.
	for _, p := range providers {
		if p.Status != models.HealthStatusOK {
			statuses = append(statuses, models.HealthStatusDegraded)
		}
	}

	status := models.SystemStatus{
		Status:     models.Worst(statuses...),
		Time:       models.Timestamp(h.clock()),
		Subsystems: subsystems,
		Providers:  providers,
	}
	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) subsystems(ctx context.Context) []models.SubsystemStatus {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	out := make([]models.SubsystemStatus, 0, len(h.checks))
	for _, c := range h.checks {
		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err := c.Check(ctx); err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) providers() []models.ProviderStatus {
	if h.registry == nil {
		return []models.ProviderStatus{}
	}
	all := h.registry.GetAllHealth()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, ph := range all {
		p := models.ProviderStatus{
			Provider:            ph.Name,
			Status:              models.HealthStatus(ph.Status()),
			CircuitState:        circuitState(ph.CircuitState),
			ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
		}
		if ph.LastSuccessAt != nil {
			p.LastSuccessAt = models.TimestampPtr(*ph.LastSuccessAt)
		}
		if ph.LastFailureAt != nil {
			p.LastFailureAt = models.TimestampPtr(*ph.LastFailureAt)
		}
		if ph.LastError != "" {
			msg := ph.LastError
			p.Message = &msg
		}
		out = append(out, p)
	}
	return out
}

func circuitState(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "CLOSED"
	case gobreaker.StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "OPEN"
	}
}
