package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/pkg/db"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox/registry"
)

const notificationConsumer = "notification-consumer"

type creator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer drains notification_requested events and records each delivery.
type Consumer struct {
	repo         creator
	subscription *pubsub.Subscriber
	idempotency  processedGuard
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(repo creator, subscription *pubsub.Subscriber, guard processedGuard, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  guard,
		decoders:     registry.NewDecoderRegistry(),
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventNotificationRequested) {
		c.logg.Info(logCtx, "skipping non-notification event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	payload, err := registry.DecodeAs[payloads.NotificationRequestedEvent](c.decoders, enums.EventNotificationRequested, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	if payload.RecipientID == uuid.Nil {
		c.logg.Warn(logCtx, "notification without recipient dropped")
		return processResult{ack: true}
	}

	if err := c.record(ctx, eventID, payload); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Release(ctx, notificationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"recipient_id":   payload.RecipientID.String(),
		"recipient_role": payload.RecipientRole,
		"type":           payload.Type,
	}), "notification delivered")
	return processResult{ack: true}
}

func (c *Consumer) record(ctx context.Context, eventID uuid.UUID, payload payloads.NotificationRequestedEvent) error {
	notification := &models.Notification{
		ID:            uuid.New(),
		EventID:       eventID,
		RecipientID:   payload.RecipientID,
		RecipientRole: payload.RecipientRole,
		Type:          payload.Type,
		Title:         payload.Title,
		Body:          payload.Body,
		Data:          payload.Data,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		// the row already exists when the redis mark expired before a redelivery
		if db.IsUniqueViolation(err, "") {
			return nil
		}
		return err
	}
	return nil
}
