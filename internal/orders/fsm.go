package orders

import (
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
)

// Event is something that can move an order between statuses.
type Event string

const (
	EventAccept         Event = "accept"
	EventReject         Event = "reject"
	EventStart          Event = "start"
	EventComplete       Event = "complete"
	EventCancel         Event = "cancel"
	EventVerifyArrival  Event = "verify_arrival"
	EventVerifyComplete Event = "verify_completion"
	EventRequestPayment Event = "request_payment"
	EventConfirmPayment Event = "confirm_payment"
	EventAppendPayment  Event = "append_payment"
)

// Edge is one legal move for an event.
type Edge struct {
	From enums.OrderStatus
	To   enums.OrderStatus
}

var transitions = map[Event][]Edge{
	EventAccept: {
		{From: enums.OrderStatusPending, To: enums.OrderStatusAccepted},
		{From: enums.OrderStatusAssigned, To: enums.OrderStatusAccepted},
	},
	EventReject: {
		{From: enums.OrderStatusAssigned, To: enums.OrderStatusCancelled},
		{From: enums.OrderStatusPending, To: enums.OrderStatusRejected},
	},
	EventStart: {
		{From: enums.OrderStatusAccepted, To: enums.OrderStatusInProgress},
	},
	EventComplete: {
		{From: enums.OrderStatusInProgress, To: enums.OrderStatusCompleted},
	},
	EventCancel: {
		{From: enums.OrderStatusAccepted, To: enums.OrderStatusCancelled},
		{From: enums.OrderStatusInProgress, To: enums.OrderStatusCancelled},
	},
	EventVerifyArrival: {
		{From: enums.OrderStatusAccepted, To: enums.OrderStatusArrivalConfirmed},
	},
	EventVerifyComplete: {
		{From: enums.OrderStatusInProgress, To: enums.OrderStatusCompleted},
		{From: enums.OrderStatusAccepted, To: enums.OrderStatusCompleted},
	},
	EventRequestPayment: {
		{From: enums.OrderStatusAccepted, To: enums.OrderStatusPaymentRequested},
		{From: enums.OrderStatusAssigned, To: enums.OrderStatusPaymentRequested},
		{From: enums.OrderStatusInProgress, To: enums.OrderStatusPaymentRequested},
	},
	EventConfirmPayment: {
		{From: enums.OrderStatusPaymentRequested, To: enums.OrderStatusPaymentConfirmed},
	},
	// additional charges on an order already awaiting payment
	EventAppendPayment: {
		{From: enums.OrderStatusPaymentRequested, To: enums.OrderStatusPaymentRequested},
	},
}

// Sources lists the statuses event may start from.
func Sources(event Event) []enums.OrderStatus {
	edges := transitions[event]
	out := make([]enums.OrderStatus, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.From)
	}
	return out
}

// Next returns the status event leads to from the given status.
func Next(from enums.OrderStatus, event Event) (enums.OrderStatus, bool) {
	for _, e := range transitions[event] {
		if e.From == from {
			return e.To, true
		}
	}
	return "", false
}

// Allowed reports whether event may fire from status.
func Allowed(from enums.OrderStatus, event Event) bool {
	_, ok := Next(from, event)
	return ok
}

func verifyEvent(purpose enums.OTPPurpose) Event {
	if purpose == enums.OTPPurposeCompletion {
		return EventVerifyComplete
	}
	return EventVerifyArrival
}
