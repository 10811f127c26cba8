package auth

import (
	"log/slog"
	"net/http"

	"github.com/inkpress/inkpress/internal/platform/httpx"
	"github.com/inkpress/inkpress/internal/shared"
	"github.com/inkpress/inkpress/internal/users"
)

// Guard wires identity resolution and role checks into the middleware chain.
// Routes behind a guard read the identity from the request context; they
// never touch session claims directly.
type Guard struct {
	Logger *slog.Logger
}

// RequireSession resolves the session identity once per request and stores
// it in the context, rejecting the request as unauthorized otherwise.
func (g Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := CurrentUserFromSession(shared.SessionFromContext(r.Context()))
		if err != nil {
			httpx.RespondError(w, g.Logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithCurrentUser(r.Context(), user)))
	})
}

// RequireRole builds on RequireSession: an absent identity is unauthorized,
// a resolved identity outside the allowed set is forbidden.
func (g Guard) RequireRole(allowed ...users.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := CurrentUserFromSession(shared.SessionFromContext(r.Context()))
			if err != nil {
				httpx.RespondError(w, g.Logger, err)
				return
			}
			if err := RequireRoles(user, allowed...); err != nil {
				httpx.RespondError(w, g.Logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithCurrentUser(r.Context(), user)))
		})
	}
}
