package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
)

type RefreshHandler struct {
	Sessions *service.SessionService
	Cookie   CookieConfig
}

// ServeHTTP godoc
//
//	@Summary		Refresh access token
//	@Description	Mint a new access token from the refresh cookie.
//	@Description	When rotation is enabled the cookie is replaced as well.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	tasksdk.RefreshResponse
//	@Failure		401	{object}	httpx.ErrorEnvelope	"Invalid refresh token"
//	@Failure		429	{object}	httpx.ErrorEnvelope
//	@Router			/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Refresh(r.Context(), h.Cookie.read(r))
	if err != nil {
		if service.KindOf(err) == service.KindUnauthorized {
			h.Cookie.clear(w)
		}
		writeError(w, r, err)
		return
	}

	if s.RefreshToken != "" {
		h.Cookie.set(w, s.RefreshToken)
	}
	httpx.WriteJSON(w, http.StatusOK, tasksdk.RefreshResponse{AccessToken: s.AccessToken})
}
