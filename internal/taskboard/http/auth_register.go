package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
)

type RegisterHandler struct {
	Sessions *service.SessionService
	Cookie   CookieConfig
}

// ServeHTTP godoc
//
//	@Summary		Register
//	@Description	Create an account and open its first session.
//	@Description	The refresh token is set as an HttpOnly cookie; the access token is in the body.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		tasksdk.RegisterRequest	true	"email, password, optional name"
//	@Success		201		{object}	tasksdk.AuthResponse
//	@Failure		400		{object}	httpx.ErrorEnvelope	"validation failed"
//	@Failure		409		{object}	httpx.ErrorEnvelope	"email already exists"
//	@Failure		429		{object}	httpx.ErrorEnvelope
//	@Router			/auth/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req tasksdk.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.Sessions.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.Cookie.set(w, s.RefreshToken)
	httpx.WriteJSON(w, http.StatusCreated, authResponse(s))
}

func authResponse(s service.Session) tasksdk.AuthResponse {
	return tasksdk.AuthResponse{AccessToken: s.AccessToken, User: userResponse(s.Account)}
}

func userResponse(a domain.Account) tasksdk.User {
	return tasksdk.User{ID: a.ID, Email: a.Email, Name: a.Name}
}
