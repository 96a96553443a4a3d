package auth

import (
	"encoding/json"
	"net/http"

	dto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	mw "github.com/dropDatabas3/authcore/internal/http/middlewares"
)

// MeController handles GET /auth/me.
type MeController struct{}

// NewMeController creates a new me controller.
func NewMeController() *MeController {
	return &MeController{}
}

// Me returns the verified session payload for the calling user.
// The session itself is resolved by the RequireSession middleware.
func (c *MeController) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	sess := mw.GetSession(r.Context())
	if sess == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	resp := dto.MeResponse{
		Subject:           sess.Subject,
		Provider:          sess.Provider,
		ProviderAccountID: sess.AccountID,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
