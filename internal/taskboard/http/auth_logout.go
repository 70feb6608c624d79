package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
)

type LogoutHandler struct {
	Sessions *service.SessionService
	Cookie   CookieConfig
}

// ServeHTTP godoc
//
//	@Summary		Logout
//	@Description	Revoke the refresh token in the cookie, if any, and clear the cookie.
//	@Description	Always answers 200.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	tasksdk.MessageResponse
//	@Router			/auth/logout [post]
//	@Router			/auth/refresh/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout(r.Context(), h.Cookie.read(r))

	h.Cookie.clear(w)
	httpx.WriteJSON(w, http.StatusOK, tasksdk.MessageResponse{Message: "Logged out"})
}

type LogoutAllHandler struct {
	Sessions *service.SessionService
	Cookie   CookieConfig
}

// ServeHTTP godoc
//
//	@Summary		Logout everywhere
//	@Description	Revoke every refresh token of the authenticated account.
//	@Description	Access tokens already issued stay valid until they expire.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	tasksdk.MessageResponse
//	@Failure		401	{object}	httpx.ErrorEnvelope
//	@Router			/auth/logout-all [post].
func (h *LogoutAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	accountID, _ := httpx.SubjectFromContext(r.Context())

	if _, err := h.Sessions.LogoutAll(r.Context(), accountID); err != nil {
		writeError(w, r, err)
		return
	}

	h.Cookie.clear(w)
	httpx.WriteJSON(w, http.StatusOK, tasksdk.MessageResponse{Message: "Logged out from all sessions"})
}
