// Package health contains the health check services.
package health

// Services groups all services of the health domain.
type Services struct {
	Health HealthService
}

// NewServices creates the health services aggregator.
func NewServices(d Deps) Services {
	return Services{
		Health: NewHealthService(d),
	}
}
