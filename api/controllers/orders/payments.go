package orders

import (
	"net/http"

	"github.com/angelmondragon/vendorops-backend/api/responses"
	"github.com/angelmondragon/vendorops-backend/api/validators"
	internalorders "github.com/angelmondragon/vendorops-backend/internal/orders"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
)

// RequestPayment appends a ledger entry, optionally confirming it at once.
func RequestPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req paymentRequestBody
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RequestPayment(r.Context(), actor, orderID, internalorders.PaymentRequestInput{
			Amount:      req.Amount,
			Currency:    req.Currency,
			Notes:       validators.SanitizeString(req.Notes, 500),
			AutoConfirm: req.AutoConfirm,
			Meta:        req.Meta,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, paymentResponse{
			Order:          internalorders.NewOrderView(result.Order),
			PaymentRequest: result.PaymentRequest,
		})
	}
}

// ConfirmPayment marks a requested ledger entry confirmed.
func ConfirmPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.ParseUUIDParam(r, "paymentRequestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ConfirmPayment(r.Context(), actor, orderID, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentResponse{
			Order:          internalorders.NewOrderView(result.Order),
			PaymentRequest: result.PaymentRequest,
		})
	}
}
