package auth

import (
	"net/http"

	"github.com/angelmondragon/vendorops-backend/api/responses"
	"github.com/angelmondragon/vendorops-backend/api/validators"
	"github.com/angelmondragon/vendorops-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
)

// VendorRegister issues a login code for the mobile in the body, creating
// the vendor on first use.
func VendorRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.VendorName = validators.SanitizeString(body.VendorName, 120)

		result, err := svc.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if result.IsNew {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// VendorVerify exchanges a login code for an access token.
func VendorVerify(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.VerifyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Verify(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("X-VendorOps-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}
