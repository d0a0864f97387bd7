package enums

import "fmt"

// PaymentStatus tracks settlement of the order as a whole.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentStatus.
func (s PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// PaymentRequestStatus tracks a single entry in the payment request ledger.
type PaymentRequestStatus string

const (
	PaymentRequestRequested PaymentRequestStatus = "requested"
	PaymentRequestConfirmed PaymentRequestStatus = "confirmed"
	PaymentRequestRejected  PaymentRequestStatus = "rejected"
)

var validPaymentRequestStatuses = []PaymentRequestStatus{
	PaymentRequestRequested,
	PaymentRequestConfirmed,
	PaymentRequestRejected,
}

// IsValid reports whether the value is a known PaymentRequestStatus.
func (s PaymentRequestStatus) IsValid() bool {
	for _, candidate := range validPaymentRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
