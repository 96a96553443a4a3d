package health

import (
	"encoding/json"
	"net/http"

	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	svc "github.com/dropDatabas3/authcore/internal/http/services/health"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

// HealthController handles the health check routes.
type HealthController struct {
	service svc.HealthService
}

// NewHealthController creates a new health check controller.
func NewHealthController(service svc.HealthService) *HealthController {
	return &HealthController{service: service}
}

// Healthz handles GET /healthz.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Healthz"))

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	resp := c.service.Check(ctx)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if resp.Version != "" {
		w.Header().Set("X-Service-Version", resp.Version)
	}
	status := http.StatusOK
	if resp.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}

	log.Debug("health check completed", logger.String("status", resp.Status))

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
