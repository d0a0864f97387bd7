package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once per created order.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	CustomerID *uuid.UUID        `json:"customer_id,omitempty"`
	VendorID   *uuid.UUID        `json:"vendor_id,omitempty"`
	Status     enums.OrderStatus `json:"status"`
	Fare       float64           `json:"fare"`
	Source     string            `json:"source,omitempty"`
}

// OrderStateChangedEvent is emitted for every applied status change.
type OrderStateChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	VendorID   *uuid.UUID        `json:"vendor_id,omitempty"`
	CustomerID *uuid.UUID        `json:"customer_id,omitempty"`
	Event      string            `json:"event"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
	Version    int64             `json:"version"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// NotificationRequestedEvent asks the worker to record a push for a recipient.
type NotificationRequestedEvent struct {
	RecipientID   uuid.UUID              `json:"recipient_id"`
	RecipientRole enums.ActorRole        `json:"recipient_role"`
	Type          enums.NotificationType `json:"type"`
	Title         string                 `json:"title"`
	Body          string                 `json:"body"`
	Data          map[string]any         `json:"data,omitempty"`
}
