package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
)

type LoginHandler struct {
	Sessions *service.SessionService
	Cookie   CookieConfig
}

// ServeHTTP godoc
//
//	@Summary		Login
//	@Description	Exchange email and password for an access token and a refresh cookie.
//	@Description	An unknown email and a wrong password get the same 401.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		tasksdk.LoginRequest	true	"credentials"
//	@Success		200		{object}	tasksdk.AuthResponse
//	@Failure		400		{object}	httpx.ErrorEnvelope
//	@Failure		401		{object}	httpx.ErrorEnvelope	"Invalid email or password"
//	@Failure		429		{object}	httpx.ErrorEnvelope
//	@Router			/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req tasksdk.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.Sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.Cookie.set(w, s.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, authResponse(s))
}
