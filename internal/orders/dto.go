package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

// Actor is the authenticated caller of an order operation.
type Actor struct {
	ID   uuid.UUID
	Role enums.ActorRole
}

// CreateOrderInput carries a new order plus its dispatch instructions.
type CreateOrderInput struct {
	CustomerID    *uuid.UUID
	VendorID      *uuid.UUID
	AutoAssign    bool
	Pickup        types.Location
	Drop          types.Location
	Items         []types.LineItem
	Fare          float64
	PaymentMethod enums.PaymentMethod
	ScheduledAt   *time.Time
	CustomerNotes string
	Metadata      map[string]any
}

// FieldError is one failed check of a create request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ListParams filters the vendor order list. Status accepts the "started" alias.
type ListParams struct {
	Status string
	Limit  int
	Offset int
}

// OrderList is one page of orders.
type OrderList struct {
	Items  []OrderView `json:"items"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// PaymentRequestInput appends a ledger entry. A nil Amount charges the fare.
type PaymentRequestInput struct {
	Amount      *float64
	Currency    string
	Notes       string
	AutoConfirm bool
	Meta        map[string]any
}

// PaymentRequestResult is the order after a ledger write and the touched entry.
type PaymentRequestResult struct {
	Order          *models.Order
	PaymentRequest types.PaymentRequest
}

// OTPRequestInput asks for a new challenge. Zero TTL uses the default.
type OTPRequestInput struct {
	Purpose    string
	TTLSeconds int
}

// OTPRequestResult describes an issued challenge. Code is only filled
// outside production.
type OTPRequestResult struct {
	ChallengeID uuid.UUID        `json:"challengeId"`
	Purpose     enums.OTPPurpose `json:"purpose"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	Code        string           `json:"code,omitempty"`
}

// OTPVerifyInput is a verification attempt.
type OTPVerifyInput struct {
	Purpose string
	Code    string
}

// OTPView is the public part of a challenge. The hash never leaves the service.
type OTPView struct {
	ID        uuid.UUID        `json:"id"`
	Purpose   enums.OTPPurpose `json:"purpose"`
	CreatedAt time.Time        `json:"createdAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Attempts  int              `json:"attempts"`
	Verified  bool             `json:"verified"`
}

// OrderView is the JSON representation of an order.
type OrderView struct {
	ID                 uuid.UUID             `json:"id"`
	CustomerID         *uuid.UUID            `json:"customerId,omitempty"`
	VendorID           *uuid.UUID            `json:"vendorId,omitempty"`
	Pickup             types.Location        `json:"pickup"`
	Drop               types.Location        `json:"drop"`
	Items              types.LineItems       `json:"items"`
	Fare               float64               `json:"fare"`
	PaymentMethod      enums.PaymentMethod   `json:"paymentMethod"`
	PaymentStatus      enums.PaymentStatus   `json:"paymentStatus"`
	Status             enums.OrderStatus     `json:"status"`
	ScheduledAt        *time.Time            `json:"scheduledAt,omitempty"`
	AssignedAt         *time.Time            `json:"assignedAt,omitempty"`
	AcceptedAt         *time.Time            `json:"acceptedAt,omitempty"`
	CompletedAt        *time.Time            `json:"completedAt,omitempty"`
	CancelledAt        *time.Time            `json:"cancelledAt,omitempty"`
	CancellationReason *string               `json:"cancellationReason,omitempty"`
	CancelledBy        *enums.ActorRole      `json:"cancelledBy,omitempty"`
	CustomerNotes      *string               `json:"customerNotes,omitempty"`
	VendorNotes        *string               `json:"vendorNotes,omitempty"`
	PaymentRequests    types.PaymentRequests `json:"paymentRequests"`
	OTP                *OTPView              `json:"otp,omitempty"`
	Metadata           types.JSONMap         `json:"metadata"`
	Version            int64                 `json:"version"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}

// NewOrderView maps a stored order to its API shape.
func NewOrderView(o *models.Order) OrderView {
	view := OrderView{
		ID:                 o.ID,
		CustomerID:         o.CustomerID,
		VendorID:           o.VendorID,
		Pickup:             o.Pickup,
		Drop:               o.Drop,
		Items:              o.Items,
		Fare:               o.Fare,
		PaymentMethod:      o.PaymentMethod,
		PaymentStatus:      o.PaymentStatus,
		Status:             o.Status,
		ScheduledAt:        o.ScheduledAt,
		AssignedAt:         o.AssignedAt,
		AcceptedAt:         o.AcceptedAt,
		CompletedAt:        o.CompletedAt,
		CancelledAt:        o.CancelledAt,
		CancellationReason: o.CancellationReason,
		CancelledBy:        o.CancelledBy,
		CustomerNotes:      o.CustomerNotes,
		VendorNotes:        o.VendorNotes,
		PaymentRequests:    o.PaymentRequests,
		Metadata:           o.Metadata,
		Version:            o.Version,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if view.Items == nil {
		view.Items = types.LineItems{}
	}
	if view.PaymentRequests == nil {
		view.PaymentRequests = types.PaymentRequests{}
	}
	if view.Metadata == nil {
		view.Metadata = types.JSONMap{}
	}
	if hasChallenge(o) {
		view.OTP = &OTPView{
			ID:        o.OTP.ID,
			Purpose:   o.OTP.Purpose,
			CreatedAt: o.OTP.CreatedAt,
			ExpiresAt: o.OTP.ExpiresAt,
			Attempts:  o.OTP.Attempts,
			Verified:  o.OTP.Verified,
		}
	}
	return view
}

func hasChallenge(o *models.Order) bool {
	return o != nil && o.OTP != nil && o.OTP.ID != uuid.Nil
}
