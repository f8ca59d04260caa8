package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mailnotes/server/internal/auth"
)

// SessionCookie is the name of the cookie carrying the session credential.
const SessionCookie = "session"

type contextKey string

const resolutionKey contextKey = "resolution"

// Resolver turns a raw credential into a Resolution.
type Resolver interface {
	Resolve(ctx context.Context, credential string) auth.Resolution
}

// Session resolves the session cookie on every request and attaches the
// result to the context. It never rejects a request; routes that need an
// identity are wrapped in RequireIdentity.
func Session(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var raw string
			if c, err := r.Cookie(SessionCookie); err == nil {
				raw = c.Value
			}

			res := resolver.Resolve(r.Context(), raw)
			if res.IsAnonymous() && res.Reason != auth.ReasonNoCredential {
				slog.DebugContext(r.Context(), "session not resolved", "reason", res.Reason, "path", r.URL.Path)
			}

			ctx := context.WithValue(r.Context(), resolutionKey, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity answers 401 unless Session resolved an identity.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			respondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ResolutionFromContext returns the Resolution attached by Session, or an
// anonymous one when the middleware did not run.
func ResolutionFromContext(ctx context.Context) auth.Resolution {
	if res, ok := ctx.Value(resolutionKey).(auth.Resolution); ok {
		return res
	}
	return auth.Anonymous(auth.ReasonNoCredential)
}

// IdentityFromContext extracts the resolved identity
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	return ResolutionFromContext(ctx).Identity()
}

// WithResolution attaches res to ctx the way Session does.
func WithResolution(ctx context.Context, res auth.Resolution) context.Context {
	return context.WithValue(ctx, resolutionKey, res)
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": message})
}
