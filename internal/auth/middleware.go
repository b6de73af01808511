package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskforge-app/taskforge/internal/authz"
	"github.com/taskforge-app/taskforge/internal/shared"
)

// Authenticator verifies bearer tokens and places the principal in the
// request context for the enforcement middleware downstream.
type Authenticator struct {
	Tokens *Tokens
	Logger *slog.Logger
}

// Middleware rejects requests without a valid access token. Malformed
// claims inside a validly signed token are a server bug and surface as a
// 500, not a 401: treating them as a routine deny could mask a broken
// issuing path.
func (a Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
			return
		}
		principal, err := a.Tokens.Verify(raw)
		if err != nil {
			if errors.Is(err, ErrMalformedClaims) {
				if a.Logger != nil {
					a.Logger.Error("signed token with malformed claims", slog.Any("error", err))
				}
				shared.RespondJSON(w, http.StatusInternalServerError, shared.ErrorBody{Error: "internal error"})
				return
			}
			shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
			return
		}
		ctx := authz.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
