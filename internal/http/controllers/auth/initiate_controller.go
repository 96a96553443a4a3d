package auth

import (
	"encoding/json"
	"net/http"

	httpx "github.com/dropDatabas3/authcore/internal/http"
	svc "github.com/dropDatabas3/authcore/internal/http/services/auth"
)

// InitiateController handles GET/POST /auth/initiate.
type InitiateController struct {
	flow svc.FlowService
}

// NewInitiateController creates a new initiate controller.
func NewInitiateController(flow svc.FlowService) *InitiateController {
	return &InitiateController{flow: flow}
}

// Initiate starts a login attempt. OAuth providers answer with a redirect to
// their authorization endpoint; trusted providers answer with the user they
// authenticated. The method split lives in the service: trusted providers
// reject anything but POST.
func (c *InitiateController) Initiate(w http.ResponseWriter, r *http.Request) {
	res, err := c.flow.Initiate(w, r)
	if err != nil {
		writeFlowError(w, r, err)
		return
	}
	if res.RedirectURL != "" {
		http.Redirect(w, r, res.RedirectURL, http.StatusFound)
		return
	}
	httpx.RecordLoginSuccess(res.User.Provider)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(res.User)
}
