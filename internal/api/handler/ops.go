// Package handler provides HTTP handlers for the Vayu API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/vayulabs/vayu/internal/api/models"
	"github.com/vayulabs/vayu/internal/api/response"
	"github.com/vayulabs/vayu/internal/monitoring"
	"github.com/vayulabs/vayu/internal/provider/resilience"
)

// Pinger checks connectivity to a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	db         Pinger
	monitoring *monitoring.Service
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, db Pinger, mon *monitoring.Service) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		db:         db,
		monitoring: mon,
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

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Ready means
// the database answers a ping.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{"database": err.Error()}
			status = http.StatusServiceUnavailable
		}
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - data source freshness and
// external provider circuit state.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())
	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   now,
	}

	snap := h.monitoring.Snapshot(r.Context())
	for _, src := range snap.Sources {
		sub := models.SubsystemStatus{Name: src.Name, Status: models.HealthStatusOK}
		switch {
		case src.Error != "":
			detail := src.Error
			sub.Status = models.HealthStatusFail
			sub.Detail = &detail
			status.Status = models.HealthStatusDegraded
		case !src.Healthy:
			sub.Status = models.HealthStatusDegraded
			status.Status = models.HealthStatusDegraded
		}
		status.Subsystems = append(status.Subsystems, sub)
	}

	if !snap.Calibration {
		detail := "calibration endpoint unreachable"
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name:   "calibration",
			Status: models.HealthStatusDegraded,
			Detail: &detail,
		})
		status.Status = models.HealthStatusDegraded
	} else {
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name:   "calibration",
			Status: models.HealthStatusOK,
		})
	}

	for _, ph := range resilience.GlobalRegistry.GetAllHealth() {
		ps := models.ProviderStatus{Provider: ph.Name, Status: models.HealthStatusOK}
		switch ph.CircuitState {
		case gobreaker.StateOpen:
			ps.Status = models.HealthStatusFail
			status.Status = models.HealthStatusDegraded
		case gobreaker.StateHalfOpen:
			ps.Status = models.HealthStatusDegraded
		}
		if ph.LastSuccessAt != nil {
			ts := models.Timestamp(*ph.LastSuccessAt)
			ps.LastSuccessAt = &ts
		}
		if ph.LastFailureAt != nil {
			ts := models.Timestamp(*ph.LastFailureAt)
			ps.LastFailureAt = &ts
		}
		if ph.LastError != "" {
			msg := ph.LastError
			ps.Message = &msg
		}
		status.Providers = append(status.Providers, ps)
	}

	response.JSON(w, r, http.StatusOK, status)
}
