package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/internal/otp"
	"github.com/angelmondragon/vendorops-backend/pkg/config"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
	"github.com/angelmondragon/vendorops-backend/pkg/metrics"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/vendorops-backend/pkg/pagination"
)

// Service exposes the order lifecycle.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateOrderInput) (*models.Order, error)
	CreateWith(ctx context.Context, actor Actor, input CreateOrderInput, attach AttachFunc) (*models.Order, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	ListForVendor(ctx context.Context, actor Actor, params ListParams) (*OrderList, error)

	Accept(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	Reject(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (*models.Order, error)
	Start(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	Complete(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (*models.Order, error)

	UpdateFare(ctx context.Context, actor Actor, orderID uuid.UUID, fare *float64) (*models.Order, error)
	RequestPayment(ctx context.Context, actor Actor, orderID uuid.UUID, input PaymentRequestInput) (*PaymentRequestResult, error)
	ConfirmPayment(ctx context.Context, actor Actor, orderID, paymentRequestID uuid.UUID) (*PaymentRequestResult, error)

	RequestOTP(ctx context.Context, actor Actor, orderID uuid.UUID, input OTPRequestInput) (*OTPRequestResult, error)
	VerifyOTP(ctx context.Context, actor Actor, orderID uuid.UUID, input OTPVerifyInput) (*models.Order, error)
	ClearStaleChallenges(ctx context.Context, batchSize int) (int, error)
}

// Deps bundles the collaborators of the order service. Notifier, Locator and
// Vendors are optional.
type Deps struct {
	Repo      Repository
	Tx        txRunner
	Outbox    outboxEmitter
	OTP       *otp.Engine
	Notifier  notifier
	Locator   VendorLocator
	Vendors   VendorDirectory
	Metrics   *metrics.LifecycleMetrics
	Logger    *logger.Logger
	Lifecycle config.LifecycleConfig
	// ExposeOTP echoes plaintext codes back to the caller. Never set in production.
	ExposeOTP bool
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxEmitter
	otp       *otp.Engine
	notifier  notifier
	locator   VendorLocator
	vendors   VendorDirectory
	metrics   *metrics.LifecycleMetrics
	logg      *logger.Logger
	cfg       config.LifecycleConfig
	exposeOTP bool
	now       func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if deps.OTP == nil {
		return nil, fmt.Errorf("otp engine required")
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      deps.Repo,
		tx:        deps.Tx,
		outbox:    deps.Outbox,
		otp:       deps.OTP,
		notifier:  deps.Notifier,
		locator:   deps.Locator,
		vendors:   deps.Vendors,
		metrics:   deps.Metrics,
		logg:      logg,
		cfg:       deps.Lifecycle,
		exposeOTP: deps.ExposeOTP,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role == enums.ActorAdmin {
		return order, nil
	}
	if order.AssignedTo(actor.ID) {
		return order, nil
	}
	if order.VendorID == nil && order.Status == enums.OrderStatusPending {
		return order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order not visible to this vendor")
}

func (s *service) ListForVendor(ctx context.Context, actor Actor, params ListParams) (*OrderList, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity missing")
	}
	filter := VendorOrderFilter{Limit: params.Limit, Offset: params.Offset}
	if raw := strings.TrimSpace(params.Status); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Statuses = []enums.OrderStatus{status}
	}

	rows, total, err := s.repo.ListForVendor(ctx, actor.ID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	items := make([]OrderView, 0, len(rows))
	for i := range rows {
		items = append(items, NewOrderView(&rows[i]))
	}
	return &OrderList{
		Items:  items,
		Total:  total,
		Limit:  pagination.NormalizeLimit(params.Limit),
		Offset: pagination.NormalizeOffset(params.Offset),
	}, nil
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// plan turns the current snapshot into a conditional write, or refuses with
// the error the caller should see.
type plan func(current *models.Order, now time.Time) (Expect, Change, error)

// mutation is the outcome of apply.
type mutation struct {
	before *models.Order
	after  *models.Order
}

const maxWriteAttempts = 3

// apply loads the order, asks p for a conditional write and executes it in
// one transaction. When the write matches no row the order is re-read and p
// runs again, so the refusal reflects the state that won the race.
func (s *service) apply(ctx context.Context, actor Actor, orderID uuid.UUID, event Event, p plan) (*mutation, error) {
	var result mutation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for attempt := 0; attempt < maxWriteAttempts; attempt++ {
			current, err := s.load(ctx, repo, orderID)
			if err != nil {
				return err
			}
			expect, change, err := p(current, s.now())
			if err != nil {
				return err
			}

			updated, applied, err := repo.TryTransition(ctx, orderID, expect, change)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
			}
			if !applied {
				continue
			}

			result = mutation{before: current, after: updated}
			if change.Status == "" {
				return nil
			}
			return s.emitStateChanged(ctx, tx, actor, event, current.Status, updated)
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently, retry")
	})

	s.recordTransition(event, err)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// guard checks ownership then the transition table against a snapshot.
func guard(order *models.Order, actor Actor, event Event) error {
	if order.VendorID != nil && *order.VendorID != actor.ID {
		msg := "order is assigned to another vendor"
		if event == EventAccept {
			msg = "order already claimed"
		}
		return pkgerrors.New(pkgerrors.CodeConflict, msg).WithDetails(map[string]any{"status": order.Status})
	}
	if !Allowed(order.Status, event) {
		return invalidTransition(order.Status, event)
	}
	return nil
}

// owned rejects callers that are not the order's vendor.
func owned(order *models.Order, actor Actor) error {
	if !order.AssignedTo(actor.ID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this vendor")
	}
	return nil
}

func invalidTransition(status enums.OrderStatus, event Event) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot %s order in status %s", event, status)).
		WithDetails(map[string]any{"status": status, "event": event})
}

func (s *service) emitStateChanged(ctx context.Context, tx *gorm.DB, actor Actor, event Event, from enums.OrderStatus, order *models.Order) error {
	_, err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStateChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data: payloads.OrderStateChangedEvent{
			OrderID:    order.ID,
			VendorID:   order.VendorID,
			CustomerID: order.CustomerID,
			Event:      string(event),
			From:       from,
			To:         order.Status,
			Version:    order.Version,
			ChangedAt:  order.UpdatedAt,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order state change")
	}
	return nil
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.ID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{ActorID: actor.ID, Role: string(actor.Role)}
}

// recordTransition counts lifecycle events only; fare and OTP writes share
// apply but are not transitions.
func (s *service) recordTransition(event Event, err error) {
	if _, ok := transitions[event]; !ok {
		return
	}
	s.metrics.Transition(string(event), outcomeFor(err))
}

func outcomeFor(err error) string {
	if err == nil {
		return metrics.OutcomeApplied
	}
	switch pkgerrors.As(err).Code() {
	case pkgerrors.CodeConflict:
		return metrics.OutcomeConflict
	case pkgerrors.CodeInternal, pkgerrors.CodeDependency:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}

