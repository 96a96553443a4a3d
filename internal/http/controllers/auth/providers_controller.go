package auth

import (
	"encoding/json"
	"net/http"

	dto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	svc "github.com/dropDatabas3/authcore/internal/http/services/auth"
)

// ProvidersController handles GET /auth/providers.
type ProvidersController struct {
	flow svc.FlowService
}

// NewProvidersController creates a new providers controller.
func NewProvidersController(flow svc.FlowService) *ProvidersController {
	return &ProvidersController{flow: flow}
}

// GetProviders lists the provider ids a client may pass to /auth/initiate.
func (c *ProvidersController) GetProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	oauthIDs, trustedNames := c.flow.Providers()
	if oauthIDs == nil {
		oauthIDs = []string{}
	}
	if trustedNames == nil {
		trustedNames = []string{}
	}

	resp := dto.ProvidersResponse{
		Providers: oauthIDs,
		Trusted:   trustedNames,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
