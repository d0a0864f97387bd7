package orders

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/internal/payments"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

// AttachFunc writes rows that must commit together with a new order. An
// error rolls the order back and suppresses its notifications.
type AttachFunc func(tx *gorm.DB, order *models.Order) error

// Create validates and stores a new order. An explicit vendor assigns the
// order directly; AutoAssign picks the nearest online vendor. Orders left
// pending are broadcast to online vendors after commit.
func (s *service) Create(ctx context.Context, actor Actor, input CreateOrderInput) (*models.Order, error) {
	return s.CreateWith(ctx, actor, input, nil)
}

// CreateWith is Create with attach run inside the order's transaction.
func (s *service) CreateWith(ctx context.Context, actor Actor, input CreateOrderInput, attach AttachFunc) (*models.Order, error) {
	if problems := ValidateCreate(input); len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(problems)
	}

	now := s.now()
	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      input.CustomerID,
		Pickup:          normalizeLocation(input.Pickup),
		Drop:            normalizeLocation(input.Drop),
		Items:           normalizeItems(input.Items),
		Fare:            payments.Round(input.Fare),
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          enums.OrderStatusPending,
		ScheduledAt:     input.ScheduledAt,
		PaymentRequests: types.PaymentRequests{},
		Metadata:        types.JSONMap(input.Metadata).Clone(),
		Version:         1,
	}
	if actor.Role == enums.ActorCustomer {
		customerID := actor.ID
		order.CustomerID = &customerID
	}
	if notes := strings.TrimSpace(input.CustomerNotes); notes != "" {
		order.CustomerNotes = &notes
	}

	var candidates []uuid.UUID
	switch {
	case input.VendorID != nil:
		if err := s.ensureVendor(ctx, *input.VendorID); err != nil {
			return nil, err
		}
		s.assign(order, *input.VendorID)
	case input.AutoAssign:
		candidates = s.findVendors(ctx, order.Pickup)
		if len(candidates) > 0 {
			s.assign(order, candidates[0])
		}
	}
	order.CreatedAt = now

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		_, err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				VendorID:   order.VendorID,
				Status:     order.Status,
				Fare:       order.Fare,
				Source:     order.Metadata.String("source"),
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}
		if attach != nil {
			return attach(tx, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"status":   order.Status,
	})
	s.logg.Info(logCtx, "order created")

	if order.VendorID != nil {
		s.notifyNewOrder(ctx, *order.VendorID, order)
		return order, nil
	}
	if candidates == nil {
		candidates = s.findVendors(ctx, order.Pickup)
	}
	s.broadcast(ctx, order, candidates)
	return order, nil
}

func (s *service) assign(order *models.Order, vendorID uuid.UUID) {
	assignedAt := s.now()
	order.VendorID = &vendorID
	order.Status = enums.OrderStatusAssigned
	order.AssignedAt = &assignedAt
}

func (s *service) ensureVendor(ctx context.Context, vendorID uuid.UUID) error {
	if vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id invalid")
	}
	if s.vendors == nil {
		return nil
	}
	exists, err := s.vendors.Exists(ctx, vendorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup vendor")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	return nil
}

// findVendors asks the locator for online vendors near point. Failures are
// logged and yield no candidates.
func (s *service) findVendors(ctx context.Context, point types.Location) []uuid.UUID {
	if s.locator == nil {
		return nil
	}
	found, err := s.locator.FindOnlineVendors(ctx, point, s.cfg.DispatchRadiusMeters)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "vendor lookup failed")
		return nil
	}
	return found
}

// ValidateCreate returns one FieldError per failed check.
func ValidateCreate(input CreateOrderInput) []FieldError {
	var problems []FieldError
	add := func(field, msg string) {
		problems = append(problems, FieldError{Field: field, Message: msg})
	}

	validateLocation := func(prefix string, loc types.Location) {
		if !finite(loc.Lat) || loc.Lat < -90 || loc.Lat > 90 {
			add(prefix+".lat", "must be a number between -90 and 90")
		}
		if !finite(loc.Lng) || loc.Lng < -180 || loc.Lng > 180 {
			add(prefix+".lng", "must be a number between -180 and 180")
		}
		if strings.TrimSpace(loc.Address) == "" {
			add(prefix+".address", "is required")
		}
	}
	validateLocation("pickup", input.Pickup)
	validateLocation("drop", input.Drop)

	if len(input.Items) == 0 {
		add("items", "must be a non-empty array")
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.Title) == "" {
			add(fmt.Sprintf("items[%d].title", i), "is required")
		}
		if item.Qty < 1 {
			add(fmt.Sprintf("items[%d].qty", i), "must be a number >= 1")
		}
		if !finite(item.Price) || item.Price < 0 {
			add(fmt.Sprintf("items[%d].price", i), "must be a number >= 0")
		}
	}

	if !finite(input.Fare) || input.Fare < 0 {
		add("fare", "must be a number >= 0")
	}
	if !input.PaymentMethod.IsValid() {
		add("paymentMethod", "must be one of: cod, online, wallet")
	}
	return problems
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func normalizeLocation(loc types.Location) types.Location {
	loc.Address = strings.TrimSpace(loc.Address)
	return loc
}

func normalizeItems(items []types.LineItem) types.LineItems {
	out := make(types.LineItems, 0, len(items))
	for _, item := range items {
		item.Title = strings.TrimSpace(item.Title)
		out = append(out, item)
	}
	return out
}
