package orders

import (
	"net/http"
	"time"

	"github.com/angelmondragon/vendorops-backend/api/middleware"
	"github.com/angelmondragon/vendorops-backend/api/responses"
	"github.com/angelmondragon/vendorops-backend/api/validators"
	"github.com/angelmondragon/vendorops-backend/internal/mockorders"
	internalorders "github.com/angelmondragon/vendorops-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
)

type mockOrderResponse struct {
	Order      internalorders.OrderView `json:"order"`
	Idempotent bool                     `json:"idempotent"`
	CalledAt   time.Time                `json:"calledAt"`
}

// MockCreate creates an order for test harnesses. A repeated clientRequestId
// returns the original order with 200 instead of 201.
func MockCreate(svc mockorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mock order service unavailable"))
			return
		}
		raw, err := validators.ReadBody(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req MockOrderRequest
		if err := validators.DecodeJSON(raw, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrGet(r.Context(), req.toInput(), req.ClientRequestID, mockorders.RequestMeta{
			IPAddress: middleware.ClientIP(r),
			UserAgent: r.UserAgent(),
			Payload:   raw,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Idempotent {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, mockOrderResponse{
			Order:      internalorders.NewOrderView(result.Order),
			Idempotent: result.Idempotent,
			CalledAt:   result.CalledAt,
		})
	}
}

func MockStats(svc mockorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// MockCalls pages through the audit trail, newest first.
func MockCalls(svc mockorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		calls, err := svc.Calls(r.Context(), limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, calls)
	}
}
