package auth

import (
	"encoding/json"
	"net/http"

	httpx "github.com/dropDatabas3/authcore/internal/http"
	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	svc "github.com/dropDatabas3/authcore/internal/http/services/auth"
)

// CallbackController handles GET /auth/callback.
type CallbackController struct {
	flow svc.FlowService
}

// NewCallbackController creates a new callback controller.
func NewCallbackController(flow svc.FlowService) *CallbackController {
	return &CallbackController{flow: flow}
}

// Callback finishes the OAuth round trip. The response body is the
// normalized user; the session token travels only in its cookie.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	res, err := c.flow.Complete(w, r)
	if err != nil {
		writeFlowError(w, r, err)
		return
	}
	httpx.RecordLoginSuccess(res.User.Provider)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(res.User)
}
