// Package health contains the health check controllers.
package health

import svc "github.com/dropDatabas3/authcore/internal/http/services/health"

// Controllers groups all controllers of the health domain.
type Controllers struct {
	Health *HealthController
}

// NewControllers creates the health controllers aggregator.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Health: NewHealthController(s.Health),
	}
}
