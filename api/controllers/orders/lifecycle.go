package orders

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/api/responses"
	"github.com/angelmondragon/vendorops-backend/api/validators"
	internalorders "github.com/angelmondragon/vendorops-backend/internal/orders"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
)

type transitionFunc func(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID, r *http.Request) (*models.Order, error)

// transition wraps a body-less order mutation keyed by {orderId}.
func transition(logg *logger.Logger, fn transitionFunc) http.HandlerFunc {
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
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		order, err := fn(ctx, actor, orderID, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}

// Accept claims an order for the calling vendor.
func Accept(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, func(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID, _ *http.Request) (*models.Order, error) {
		return svc.Accept(ctx, actor, orderID)
	})
}

// Reject declines an order. The reason is optional.
func Reject(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, func(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID, r *http.Request) (*models.Order, error) {
		var req rejectRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.Reject(ctx, actor, orderID, validators.SanitizeString(req.Reason, 500))
	})
}

func Start(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, func(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID, _ *http.Request) (*models.Order, error) {
		return svc.Start(ctx, actor, orderID)
	})
}

func Complete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, func(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID, _ *http.Request) (*models.Order, error) {
		return svc.Complete(ctx, actor, orderID)
	})
}

// Cancel requires a reason.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, func(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID, r *http.Request) (*models.Order, error) {
		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.Cancel(ctx, actor, orderID, validators.SanitizeString(req.Reason, 500))
	})
}

// UpdateFare replaces the fare of an unpaid order.
func UpdateFare(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, func(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID, r *http.Request) (*models.Order, error) {
		var req fareRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.UpdateFare(ctx, actor, orderID, req.Fare)
	})
}
