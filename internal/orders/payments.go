package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/internal/payments"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

// labelUpdateFare names fare writes in logs and errors. It is not a
// lifecycle event.
const labelUpdateFare Event = "update_fare"

// UpdateFare changes the fare until the order is paid. When a vendor is
// assigned only that vendor may change it.
func (s *service) UpdateFare(ctx context.Context, actor Actor, orderID uuid.UUID, fare *float64) (*models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if fare == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fare required").
			WithDetails([]FieldError{{Field: "fare", Message: "required"}})
	}
	amount, err := payments.ValidateFare(*fare)
	if err != nil {
		return nil, err
	}

	m, err := s.apply(ctx, actor, orderID, labelUpdateFare, func(current *models.Order, _ time.Time) (Expect, Change, error) {
		if current.VendorID != nil && *current.VendorID != actor.ID {
			return Expect{}, Change{}, pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to modify fare for this order")
		}
		if current.PaymentStatus == enums.PaymentStatusPaid {
			return Expect{}, Change{}, pkgerrors.New(pkgerrors.CodeValidation, "cannot modify fare of a paid order").
				WithDetails(map[string]any{"reason": "cannot_modify_fare", "paymentStatus": current.PaymentStatus})
		}
		version := current.Version
		return Expect{Version: &version}, Change{Fields: map[string]any{"fare": amount}}, nil
	})
	if err != nil {
		return nil, err
	}
	return m.after, nil
}

// RequestPayment appends a ledger entry and moves the order to
// payment_requested. A missing amount charges the fare of the snapshot the
// write is conditioned on. AutoConfirm settles the entry in the same write.
func (s *service) RequestPayment(ctx context.Context, actor Actor, orderID uuid.UUID, input PaymentRequestInput) (*PaymentRequestResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if input.Amount != nil {
		if _, err := payments.ValidateAmount(*input.Amount); err != nil {
			return nil, err
		}
	}

	var entry types.PaymentRequest
	m, err := s.apply(ctx, actor, orderID, EventRequestPayment, func(current *models.Order, now time.Time) (Expect, Change, error) {
		event := EventRequestPayment
		if current.Status == enums.OrderStatusPaymentRequested {
			event = EventAppendPayment
		}
		to, ok := Next(current.Status, event)
		if !ok {
			return Expect{}, Change{}, invalidTransition(current.Status, EventRequestPayment)
		}
		if err := owned(current, actor); err != nil {
			return Expect{}, Change{}, err
		}
		if current.PaymentStatus == enums.PaymentStatusPaid {
			return Expect{}, Change{}, pkgerrors.New(pkgerrors.CodeValidation, "order already paid").
				WithDetails(map[string]any{"paymentStatus": current.PaymentStatus})
		}

		ledger, appended, err := payments.Append(current.PaymentRequests, payments.NewRequest{
			Amount:   payments.ResolveAmount(input.Amount, current.Fare),
			Currency: input.Currency,
			Notes:    input.Notes,
			Meta:     input.Meta,
		}, s.cfg.DefaultCurrency, now)
		if err != nil {
			return Expect{}, Change{}, err
		}
		if input.AutoConfirm {
			ledger, appended, err = payments.Confirm(ledger, appended.ID, now)
			if err != nil {
				return Expect{}, Change{}, err
			}
			to, _ = Next(to, EventConfirmPayment)
		}
		entry = appended

		version := current.Version
		expect := Expect{Statuses: []enums.OrderStatus{current.Status}, Version: &version}
		return expect, Change{Status: to, Fields: map[string]any{"payment_requests": ledger}}, nil
	})
	if err != nil {
		return nil, err
	}

	if input.AutoConfirm {
		s.notifyPaymentConfirmed(ctx, m.after, entry)
	} else {
		s.notifyPaymentRequested(ctx, m.after, entry)
	}
	return &PaymentRequestResult{Order: m.after, PaymentRequest: entry}, nil
}

// ConfirmPayment settles one requested entry and moves the order to
// payment_confirmed. Payment status is left to the payment provider flow.
func (s *service) ConfirmPayment(ctx context.Context, actor Actor, orderID, paymentRequestID uuid.UUID) (*PaymentRequestResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if paymentRequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment request id required")
	}

	var entry types.PaymentRequest
	m, err := s.apply(ctx, actor, orderID, EventConfirmPayment, func(current *models.Order, now time.Time) (Expect, Change, error) {
		if err := owned(current, actor); err != nil {
			return Expect{}, Change{}, err
		}
		ledger, confirmed, err := payments.Confirm(current.PaymentRequests, paymentRequestID, now)
		if err != nil {
			return Expect{}, Change{}, err
		}
		to, ok := Next(current.Status, EventConfirmPayment)
		if !ok {
			return Expect{}, Change{}, invalidTransition(current.Status, EventConfirmPayment)
		}
		entry = confirmed

		version := current.Version
		expect := Expect{Statuses: []enums.OrderStatus{current.Status}, Version: &version}
		return expect, Change{Status: to, Fields: map[string]any{"payment_requests": ledger}}, nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyPaymentConfirmed(ctx, m.after, entry)
	return &PaymentRequestResult{Order: m.after, PaymentRequest: entry}, nil
}
