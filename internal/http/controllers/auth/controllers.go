// Package auth contains the controllers for the login flow endpoints.
package auth

import svc "github.com/dropDatabas3/authcore/internal/http/services/auth"

// Controllers groups all controllers of the auth domain.
type Controllers struct {
	Initiate  *InitiateController
	Callback  *CallbackController
	Me        *MeController
	Logout    *LogoutController
	Providers *ProvidersController
}

// NewControllers creates the auth controllers aggregator.
func NewControllers(flow svc.FlowService) *Controllers {
	return &Controllers{
		Initiate:  NewInitiateController(flow),
		Callback:  NewCallbackController(flow),
		Me:        NewMeController(),
		Logout:    NewLogoutController(flow),
		Providers: NewProvidersController(flow),
	}
}
