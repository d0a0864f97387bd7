package notifications

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox/payloads"
)

// Message is a push addressed to a single recipient.
type Message struct {
	RecipientID   uuid.UUID
	RecipientRole enums.ActorRole
	Type          enums.NotificationType
	Title         string
	Body          string
	Data          map[string]any
}

// Delivery describes the hand-off of a Message. Queued means the request is
// durably stored and will be delivered by the worker.
type Delivery struct {
	Queued  bool
	EventID uuid.UUID
}

// Notifier delivers pushes. Callers treat failures as best-effort.
type Notifier interface {
	Notify(ctx context.Context, msg Message) (Delivery, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (uuid.UUID, error)
}

// OutboxNotifier queues notification requests in the outbox so the publisher
// forwards them to Pub/Sub.
type OutboxNotifier struct {
	tx     txRunner
	outbox outboxEmitter
	logg   *logger.Logger
}

// NewOutboxNotifier wires the outbox-backed notifier.
func NewOutboxNotifier(tx txRunner, emitter outboxEmitter, logg *logger.Logger) (*OutboxNotifier, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	return &OutboxNotifier{tx: tx, outbox: emitter, logg: logg}, nil
}

// Notify stores a notification_requested event in its own transaction.
func (n *OutboxNotifier) Notify(ctx context.Context, msg Message) (Delivery, error) {
	if err := validateMessage(msg); err != nil {
		return Delivery{}, err
	}

	var eventID uuid.UUID
	err := n.tx.WithTx(ctx, func(tx *gorm.DB) error {
		id, err := n.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   msg.RecipientID,
			Data: payloads.NotificationRequestedEvent{
				RecipientID:   msg.RecipientID,
				RecipientRole: msg.RecipientRole,
				Type:          msg.Type,
				Title:         msg.Title,
				Body:          msg.Body,
				Data:          msg.Data,
			},
		})
		eventID = id
		return err
	})
	if err != nil {
		return Delivery{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue notification")
	}
	return Delivery{Queued: true, EventID: eventID}, nil
}

func validateMessage(msg Message) error {
	if msg.RecipientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if !msg.RecipientRole.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient role invalid")
	}
	if !msg.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification type invalid")
	}
	if strings.TrimSpace(msg.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	return nil
}
