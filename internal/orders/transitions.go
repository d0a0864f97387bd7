package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
)

// Accept claims a pending order or confirms an assigned one. Concurrent
// accepts on the same pending order have exactly one winner.
func (s *service) Accept(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	m, err := s.apply(ctx, actor, orderID, EventAccept, func(current *models.Order, now time.Time) (Expect, Change, error) {
		if err := guard(current, actor, EventAccept); err != nil {
			return Expect{}, Change{}, err
		}
		to, _ := Next(current.Status, EventAccept)
		vendorID := actor.ID
		expect := Expect{
			Statuses:    []enums.OrderStatus{current.Status},
			ClaimableBy: &vendorID,
		}
		change := Change{
			Status: to,
			Fields: map[string]any{
				"vendor_id":   vendorID,
				"accepted_at": now,
				"assigned_at": gorm.Expr("COALESCE(assigned_at, ?)", now),
			},
		}
		return expect, change, nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyStatusChange(ctx, m.after)
	return m.after, nil
}

// Reject declines an order. A pending order becomes rejected; an order
// assigned to the caller is cancelled by the vendor.
func (s *service) Reject(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	m, err := s.apply(ctx, actor, orderID, EventReject, func(current *models.Order, now time.Time) (Expect, Change, error) {
		if err := guard(current, actor, EventReject); err != nil {
			return Expect{}, Change{}, err
		}
		to, _ := Next(current.Status, EventReject)
		version := current.Version
		expect := Expect{Statuses: []enums.OrderStatus{current.Status}, Version: &version}

		fields := map[string]any{}
		if current.Status == enums.OrderStatusAssigned {
			vendorID := actor.ID
			expect.VendorID = &vendorID
			fields["cancelled_at"] = now
			fields["cancelled_by"] = enums.ActorVendor
			if reason != "" {
				fields["cancellation_reason"] = reason
			}
		} else {
			metadata := current.Metadata.Clone()
			metadata["rejectedBy"] = actor.ID.String()
			if reason != "" {
				metadata["rejectionReason"] = reason
			}
			fields["metadata"] = metadata
		}
		return expect, Change{Status: to, Fields: fields}, nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyStatusChange(ctx, m.after)
	return m.after, nil
}

// Start moves an accepted order into progress.
func (s *service) Start(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	return s.ownedTransition(ctx, actor, orderID, EventStart, func(time.Time) map[string]any {
		return nil
	})
}

// Complete finishes an order that is in progress.
func (s *service) Complete(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	return s.ownedTransition(ctx, actor, orderID, EventComplete, func(now time.Time) map[string]any {
		return map[string]any{"completed_at": now}
	})
}

// Cancel aborts an accepted or in-progress order. A reason is required.
func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required").
			WithDetails([]FieldError{{Field: "reason", Message: "required"}})
	}
	cancelledBy := actor.Role
	if !cancelledBy.CanCancel() {
		cancelledBy = enums.ActorVendor
	}
	return s.ownedTransition(ctx, actor, orderID, EventCancel, func(now time.Time) map[string]any {
		return map[string]any{
			"cancelled_at":        now,
			"cancellation_reason": reason,
			"cancelled_by":        cancelledBy,
		}
	})
}

// ownedTransition runs an event that only the assigned vendor may fire.
func (s *service) ownedTransition(ctx context.Context, actor Actor, orderID uuid.UUID, event Event, fields func(now time.Time) map[string]any) (*models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	m, err := s.apply(ctx, actor, orderID, event, func(current *models.Order, now time.Time) (Expect, Change, error) {
		if err := guard(current, actor, event); err != nil {
			return Expect{}, Change{}, err
		}
		if current.VendorID == nil {
			return Expect{}, Change{}, pkgerrors.New(pkgerrors.CodeConflict, "order is not assigned to this vendor")
		}
		to, _ := Next(current.Status, event)
		vendorID := actor.ID
		return Expect{
			Statuses: []enums.OrderStatus{current.Status},
			VendorID: &vendorID,
		}, Change{Status: to, Fields: fields(now)}, nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyStatusChange(ctx, m.after)
	return m.after, nil
}

func requireActor(actor Actor) error {
	if actor.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	return nil
}
