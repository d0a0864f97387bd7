package middleware

import (
	"net/http"

	"github.com/angelmondragon/vendorops-backend/api/responses"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
)

// Authorizer decides whether a role may perform action on resource.
type Authorizer interface {
	Allowed(role enums.ActorRole, resource, action string) (bool, error)
}

// Authorize rejects requests whose actor role is not granted (resource, action).
// It must run after Auth.
func Authorize(authz Authorizer, resource, action string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := enums.ParseActorRole(RoleFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor role"))
				return
			}
			ok, err := authz.Allowed(role, resource, action)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "authorize request"))
				return
			}
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted").
					WithDetails(map[string]any{"role": role, "resource": resource, "action": action}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
