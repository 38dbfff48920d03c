package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"facultyleave/internal/transport/http/api"
)

// PermissionStore answers whether a role holds a permission. auth.StaticPermissions is
// the production implementation.
type PermissionStore interface {
	HasPermission(ctx context.Context, role, permission string) (bool, error)
}

// RequirePermission stops anonymous callers with 401 and callers whose role lacks
// permission with 403. Finer checks (own department, own campus) stay in the domain.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := GetRequestID(r.Context())
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
				return
			}

			allowed, err := store.HasPermission(r.Context(), user.Role, permission)
			if err != nil {
				slog.Error("permission check failed", "role", user.Role, "permission", permission, "err", err, "requestId", reqID)
				api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", reqID)
				return
			}
			if !allowed {
				slog.Info("permission denied", "actor", user.EmployeeID, "role", user.Role, "permission", permission, "requestId", reqID)
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", reqID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
