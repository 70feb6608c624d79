package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

// AuthnMiddleware requires "Authorization: Bearer <token>" and rejects
// anything the verifier does not accept. Every rejection carries the same
// message so callers cannot tell a forged token from an expired one.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			raw, ok := bearerToken(r)
			if !ok {
				writeBearerError(w, "No access token provided")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				if !errors.Is(err, jwtx.ErrExpired) {
					log.Warn("access token rejected", "err", err)
				}
				writeBearerError(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RFC 6750 style challenge plus the usual JSON error body.
func writeBearerError(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	WriteError(w, http.StatusUnauthorized, "unauthorized", msg, nil)
}
