package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusAssigned         OrderStatus = "assigned"
	OrderStatusAccepted         OrderStatus = "accepted"
	OrderStatusInProgress       OrderStatus = "in_progress"
	OrderStatusPaymentRequested OrderStatus = "payment_requested"
	OrderStatusPaymentConfirmed OrderStatus = "payment_confirmed"
	OrderStatusArrivalConfirmed OrderStatus = "arrival_confirmed"
	OrderStatusCompleted        OrderStatus = "completed"
	OrderStatusCancelled        OrderStatus = "cancelled"
	OrderStatusRejected         OrderStatus = "rejected"
)

// orderStatusStartedAlias is accepted by list filters for in_progress.
const orderStatusStartedAlias = "started"

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAssigned,
	OrderStatusAccepted,
	OrderStatusInProgress,
	OrderStatusPaymentRequested,
	OrderStatusPaymentConfirmed,
	OrderStatusArrivalConfirmed,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusRejected,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions can leave the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// RequiresVendor reports whether an order in this status must carry a vendor.
func (s OrderStatus) RequiresVendor() bool {
	switch s {
	case OrderStatusPending, OrderStatusCancelled, OrderStatusRejected:
		return false
	}
	return s.IsValid()
}

// ParseOrderStatus converts raw input into an OrderStatus. The "started"
// alias maps to in_progress.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == orderStatusStartedAlias {
		return OrderStatusInProgress, nil
	}
	for _, candidate := range validOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
