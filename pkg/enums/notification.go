package enums

import "fmt"

// NotificationType groups push notifications for clients.
type NotificationType string

const (
	NotificationTypeNewOrder     NotificationType = "new_order"
	NotificationTypeOrderStatus  NotificationType = "order_status"
	NotificationTypePayment      NotificationType = "payment"
	NotificationTypeOTP          NotificationType = "otp"
	NotificationTypeVerification NotificationType = "verification"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeNewOrder,
	NotificationTypeOrderStatus,
	NotificationTypePayment,
	NotificationTypeOTP,
	NotificationTypeVerification,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
