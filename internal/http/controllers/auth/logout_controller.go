package auth

import (
	"net/http"

	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	svc "github.com/dropDatabas3/authcore/internal/http/services/auth"
)

// LogoutController handles POST /auth/logout.
type LogoutController struct {
	flow svc.FlowService
}

// NewLogoutController creates a new logout controller.
func NewLogoutController(flow svc.FlowService) *LogoutController {
	return &LogoutController{flow: flow}
}

// Logout clears the session cookie. Idempotent: logging out without a
// session is still a 204.
func (c *LogoutController) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	if err := c.flow.Logout(w, r); err != nil {
		writeFlowError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
