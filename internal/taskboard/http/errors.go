package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

// writeError is the single place service errors become responses.
// Internal failures are logged in full and answered generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		se = service.Internal(err)
	}

	switch se.Kind {
	case service.KindValidation, service.KindNotFound, service.KindConflict, service.KindForbidden:
		httpx.WriteError(w, se.Kind.Status(), se.Kind.String(), se.Message, se.Details)
	case service.KindUnauthorized:
		httpx.WriteError(w, se.Kind.Status(), se.Kind.String(), se.Message, nil)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, service.KindInternal.String(), "Internal server error", nil)
	}
}
