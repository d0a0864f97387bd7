package orders

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/api/middleware"
	internalorders "github.com/angelmondragon/vendorops-backend/internal/orders"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

// CreateOrderRequest is the body of POST /api/orders. Field checks happen in
// the service so every failure is reported at once.
type CreateOrderRequest struct {
	CustomerID    *uuid.UUID          `json:"customerId,omitempty"`
	VendorID      *uuid.UUID          `json:"vendorId,omitempty"`
	AutoAssign    bool                `json:"autoAssign"`
	Pickup        types.Location      `json:"pickup"`
	Drop          types.Location      `json:"drop"`
	Items         []types.LineItem    `json:"items"`
	Fare          float64             `json:"fare"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	ScheduledAt   *time.Time          `json:"scheduledAt,omitempty"`
	CustomerNotes string              `json:"customerNotes,omitempty"`
	Metadata      map[string]any      `json:"metadata,omitempty"`
}

func (req CreateOrderRequest) toInput() internalorders.CreateOrderInput {
	return internalorders.CreateOrderInput{
		CustomerID:    req.CustomerID,
		VendorID:      req.VendorID,
		AutoAssign:    req.AutoAssign,
		Pickup:        req.Pickup,
		Drop:          req.Drop,
		Items:         req.Items,
		Fare:          req.Fare,
		PaymentMethod: req.PaymentMethod,
		ScheduledAt:   req.ScheduledAt,
		CustomerNotes: req.CustomerNotes,
		Metadata:      req.Metadata,
	}
}

// MockOrderRequest adds the caller's idempotency key to a create request.
type MockOrderRequest struct {
	CreateOrderRequest
	ClientRequestID string `json:"clientRequestId,omitempty" validate:"omitempty,max=128"`
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type fareRequest struct {
	Fare *float64 `json:"fare"`
}

type paymentRequestBody struct {
	Amount      *float64       `json:"amount,omitempty"`
	Currency    string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	Notes       string         `json:"notes,omitempty" validate:"omitempty,max=500"`
	AutoConfirm bool           `json:"autoConfirm"`
	Meta        map[string]any `json:"meta,omitempty"`
}

type otpRequestBody struct {
	Purpose    string `json:"purpose" validate:"required"`
	TTLSeconds int    `json:"ttlSeconds,omitempty" validate:"gte=0,lte=3600"`
}

type otpVerifyBody struct {
	Purpose string `json:"purpose" validate:"required"`
	Code    string `json:"code" validate:"required,numeric"`
}

// paymentResponse is the order after a ledger write plus the touched entry.
type paymentResponse struct {
	Order          internalorders.OrderView `json:"order"`
	PaymentRequest types.PaymentRequest     `json:"paymentRequest"`
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	id, err := uuid.Parse(middleware.ActorIDFromContext(r.Context()))
	if err != nil {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor missing")
	}
	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor role missing")
	}
	return internalorders.Actor{ID: id, Role: role}, nil
}
