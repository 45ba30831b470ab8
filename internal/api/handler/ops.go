package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/aqisense/aqisense/internal/api/models"
	"github.com/aqisense/aqisense/internal/api/response"
)

// Probe checks the availability of one dependency. A nil error means ready.
type Probe func(ctx context.Context) error

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string

	// Keyed probes for subsystems (database, cache, model) and
	// external providers. Nil maps skip the corresponding checks.
	subsystems map[string]Probe
	providers  map[string]Probe
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, subsystems, providers map[string]Probe) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		subsystems: subsystems,
		providers:  providers,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// Fails when any subsystem probe fails.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	details := map[string]interface{}{}
	status := models.HealthStatusOK
	for name, probe := range h.subsystems {
		if err := probe(ctx); err != nil {
			status = models.HealthStatusFail
			details[name] = err.Error()
		} else {
			details[name] = "ok"
		}
	}

	health := models.Health{
		Status:  status,
		Time:    models.Timestamp(time.Now()),
		Details: details,
	}
	code := http.StatusOK
	if status != models.HealthStatusOK {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	now := models.Timestamp(time.Now())
	overall := models.HealthStatusOK

	subsystems := make([]models.SubsystemStatus, 0, len(h.subsystems))
	for _, name := range sortedKeys(h.subsystems) {
		st := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := h.subsystems[name](ctx); err != nil {
			detail := err.Error()
			st.Status = models.HealthStatusFail
			st.Detail = &detail
			overall = models.HealthStatusDegraded
		}
		subsystems = append(subsystems, st)
	}

	providers := make([]models.ProviderStatus, 0, len(h.providers))
	for _, name := range sortedKeys(h.providers) {
		st := models.ProviderStatus{Provider: name, Status: models.HealthStatusOK}
		if err := h.providers[name](ctx); err != nil {
			msg := err.Error()
			st.Status = models.HealthStatusDegraded
			st.Message = &msg
			st.LastFailureAt = &now
			overall = models.HealthStatusDegraded
		} else {
			st.LastSuccessAt = &now
		}
		providers = append(providers, st)
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:     overall,
		Time:       now,
		Subsystems: subsystems,
		Providers:  providers,
	})
}

func sortedKeys(m map[string]Probe) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
