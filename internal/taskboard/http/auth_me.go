package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
)

type MeHandler struct {
	Accounts *service.AccountService
}

// ServeHTTP godoc
//
//	@Summary		Current account
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	tasksdk.User
//	@Failure		401	{object}	httpx.ErrorEnvelope
//	@Failure		403	{object}	httpx.ErrorEnvelope	"account no longer exists"
//	@Router			/auth/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	accountID, _ := httpx.SubjectFromContext(r.Context())

	a, err := h.Accounts.Get(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(a))
}
