// Package health contains the service for health checks.
package health

import (
	"context"
	"time"

	"github.com/dropDatabas3/authcore/internal/cache"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/health"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

// HealthService defines the health check operations.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contains the probes the health service aggregates.
type Deps struct {
	Cache            cache.Client
	Version          string
	SessionsEnabled  bool
	OAuthProviders   int
	TrustedProviders int
}

type healthService struct {
	deps Deps
}

// NewHealthService creates a new health check service.
func NewHealthService(deps Deps) HealthService {
	return &healthService{deps: deps}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("health"),
		logger.Op("Check"),
	)

	resp := dto.HealthResponse{
		Components: make(map[string]dto.HealthStatus),
		Timestamp:  time.Now().UTC(),
		Version:    s.deps.Version,
	}

	degraded := false
	unavailable := false

	// The cache backs rate limiting only, so losing it degrades the
	// service instead of taking it down.
	if s.deps.Cache != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := s.deps.Cache.Ping(pctx); err != nil {
			resp.Components["cache"] = dto.HealthStatus{Status: "error", Message: err.Error()}
			degraded = true
			log.Warn("cache unavailable", logger.Err(err))
		} else {
			resp.Components["cache"] = dto.HealthStatus{Status: "ok"}
		}
		cancel()
	} else {
		resp.Components["cache"] = dto.HealthStatus{Status: "disabled"}
	}

	if s.deps.SessionsEnabled {
		resp.Components["sessions"] = dto.HealthStatus{Status: "ok"}
	} else {
		resp.Components["sessions"] = dto.HealthStatus{
			Status:  "disabled",
			Message: "no session secret configured",
		}
	}

	if s.deps.OAuthProviders+s.deps.TrustedProviders == 0 {
		resp.Components["providers"] = dto.HealthStatus{
			Status:  "error",
			Message: "no providers configured",
		}
		unavailable = true
	} else {
		resp.Components["providers"] = dto.HealthStatus{Status: "ok"}
	}

	switch {
	case unavailable:
		resp.Status = "unavailable"
	case degraded:
		resp.Status = "degraded"
	default:
		resp.Status = "ready"
	}
	return resp
}
