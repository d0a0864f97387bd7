package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/internal/notifications"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

var customerStatusTitles = map[enums.OrderStatus]string{
	enums.OrderStatusAccepted:         "Order accepted",
	enums.OrderStatusInProgress:       "Order in progress",
	enums.OrderStatusArrivalConfirmed: "Vendor arrived",
	enums.OrderStatusCompleted:        "Order completed",
	enums.OrderStatusCancelled:        "Order cancelled",
	enums.OrderStatusRejected:         "Order rejected",
}

// notifyStatusChange tells the customer about a new status. Best effort.
func (s *service) notifyStatusChange(ctx context.Context, order *models.Order) {
	if order == nil || order.CustomerID == nil {
		return
	}
	title, ok := customerStatusTitles[order.Status]
	if !ok {
		title = "Order update"
	}
	s.send(ctx, notifications.Message{
		RecipientID:   *order.CustomerID,
		RecipientRole: enums.ActorCustomer,
		Type:          enums.NotificationTypeOrderStatus,
		Title:         title,
		Body:          fmt.Sprintf("Order #%s is now %s", shortID(order.ID), order.Status),
		Data: map[string]any{
			"orderId": order.ID.String(),
			"status":  string(order.Status),
		},
	})
}

func (s *service) notifyNewOrder(ctx context.Context, vendorID uuid.UUID, order *models.Order) {
	s.send(ctx, notifications.Message{
		RecipientID:   vendorID,
		RecipientRole: enums.ActorVendor,
		Type:          enums.NotificationTypeNewOrder,
		Title:         "New order",
		Body:          fmt.Sprintf("Order #%s - %.2f\nPickup: %s", shortID(order.ID), order.Fare, order.Pickup.Address),
		Data: map[string]any{
			"orderId":   order.ID.String(),
			"fare":      order.Fare,
			"pickupLat": order.Pickup.Lat,
			"pickupLng": order.Pickup.Lng,
			"dropLat":   order.Drop.Lat,
			"dropLng":   order.Drop.Lng,
		},
	})
}

// broadcast offers a pending order to every online candidate.
func (s *service) broadcast(ctx context.Context, order *models.Order, vendorIDs []uuid.UUID) {
	if len(vendorIDs) == 0 {
		s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "no online vendors to broadcast to")
		return
	}
	for _, vendorID := range vendorIDs {
		s.notifyNewOrder(ctx, vendorID, order)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"vendors":  len(vendorIDs),
	}), "order broadcast")
}

func (s *service) notifyPaymentRequested(ctx context.Context, order *models.Order, entry types.PaymentRequest) {
	if order.CustomerID == nil {
		return
	}
	s.send(ctx, notifications.Message{
		RecipientID:   *order.CustomerID,
		RecipientRole: enums.ActorCustomer,
		Type:          enums.NotificationTypePayment,
		Title:         "Payment requested",
		Body:          fmt.Sprintf("%.2f %s requested for order #%s", entry.Amount, entry.Currency, shortID(order.ID)),
		Data: map[string]any{
			"orderId":          order.ID.String(),
			"paymentRequestId": entry.ID.String(),
			"amount":           entry.Amount,
			"currency":         entry.Currency,
		},
	})
}

func (s *service) notifyPaymentConfirmed(ctx context.Context, order *models.Order, entry types.PaymentRequest) {
	if order.VendorID == nil {
		return
	}
	s.send(ctx, notifications.Message{
		RecipientID:   *order.VendorID,
		RecipientRole: enums.ActorVendor,
		Type:          enums.NotificationTypePayment,
		Title:         "Payment confirmed",
		Body:          fmt.Sprintf("Payment request %s confirmed for order #%s", entry.ID, shortID(order.ID)),
		Data: map[string]any{
			"orderId":          order.ID.String(),
			"paymentRequestId": entry.ID.String(),
			"status":           string(order.Status),
			"amount":           entry.Amount,
		},
	})
}

// notifyOTPIssued tells the customer a code is pending. The code itself is
// never part of a notification.
func (s *service) notifyOTPIssued(ctx context.Context, order *models.Order, challenge types.OTPChallenge) {
	if order.CustomerID == nil {
		s.logg.Warn(s.logg.WithField(ctx, "order_id", order.ID.String()), "order has no customer, otp notice skipped")
		return
	}
	s.send(ctx, notifications.Message{
		RecipientID:   *order.CustomerID,
		RecipientRole: enums.ActorCustomer,
		Type:          enums.NotificationTypeOTP,
		Title:         "Verification code sent",
		Body:          fmt.Sprintf("Share the %s code with your vendor for order #%s", challenge.Purpose, shortID(order.ID)),
		Data: map[string]any{
			"orderId":     order.ID.String(),
			"challengeId": challenge.ID.String(),
			"purpose":     string(challenge.Purpose),
			"expiresAt":   challenge.ExpiresAt,
		},
	})
}

func (s *service) send(ctx context.Context, msg notifications.Message) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, msg); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"recipient_id": msg.RecipientID.String(),
			"type":         msg.Type,
		})
		s.logg.Error(logCtx, "notification failed", err)
	}
}

func shortID(id uuid.UUID) string {
	str := id.String()
	return str[len(str)-6:]
}
