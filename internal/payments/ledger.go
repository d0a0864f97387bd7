// Package payments holds the append-only payment request ledger embedded in
// each order. Functions return new slices and never touch prior entries.
package payments

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

// DefaultCurrency applies when a request omits one.
const DefaultCurrency = "INR"

// ResolveAmount picks the explicit amount or falls back to the order fare
// read in the same snapshot the append is conditioned on.
func ResolveAmount(explicit *float64, fare float64) float64 {
	if explicit != nil {
		return *explicit
	}
	return fare
}

// ValidateAmount requires a finite positive value and rounds it to cents.
func ValidateAmount(amount float64) (float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid amount").
			WithDetails(map[string]any{"field": "amount", "reason": "must be a positive number"})
	}
	return Round(amount), nil
}

// ValidateFare requires a finite non-negative value and rounds it to cents.
func ValidateFare(fare float64) (float64, error) {
	if math.IsNaN(fare) || math.IsInf(fare, 0) || fare < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid fare").
			WithDetails(map[string]any{"field": "fare", "reason": "must be a non-negative number"})
	}
	return Round(fare), nil
}

// Round rounds half away from zero to two decimals.
func Round(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// NewRequest is the input for Append.
type NewRequest struct {
	Amount   float64
	Currency string
	Notes    string
	Meta     map[string]any
}

// Append returns a copy of ledger with one new requested entry at the end.
func Append(ledger types.PaymentRequests, in NewRequest, defaultCurrency string, now time.Time) (types.PaymentRequests, types.PaymentRequest, error) {
	amount, err := ValidateAmount(in.Amount)
	if err != nil {
		return nil, types.PaymentRequest{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = strings.ToUpper(strings.TrimSpace(defaultCurrency))
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	entry := types.PaymentRequest{
		ID:        uuid.New(),
		Amount:    amount,
		Currency:  currency,
		Notes:     strings.TrimSpace(in.Notes),
		Status:    enums.PaymentRequestRequested,
		CreatedAt: now.UTC(),
		Meta:      in.Meta,
	}

	next := make(types.PaymentRequests, 0, len(ledger)+1)
	next = append(next, ledger...)
	next = append(next, entry)
	return next, entry, nil
}

// Confirm returns a copy of ledger with the entry requestID confirmed. Only
// status and confirmedAt change.
func Confirm(ledger types.PaymentRequests, requestID uuid.UUID, now time.Time) (types.PaymentRequests, types.PaymentRequest, error) {
	idx := ledger.Find(requestID)
	if idx < 0 {
		return nil, types.PaymentRequest{}, pkgerrors.New(pkgerrors.CodeNotFound, "payment request not found")
	}
	if ledger[idx].Status != enums.PaymentRequestRequested {
		return nil, types.PaymentRequest{}, pkgerrors.New(pkgerrors.CodeConflict, "payment request already settled").
			WithDetails(map[string]any{"status": ledger[idx].Status})
	}

	next := make(types.PaymentRequests, len(ledger))
	copy(next, ledger)
	confirmedAt := now.UTC()
	next[idx].Status = enums.PaymentRequestConfirmed
	next[idx].ConfirmedAt = &confirmedAt
	return next, next[idx], nil
}

// Totals splits a ledger into confirmed and outstanding sums.
type Totals struct {
	Confirmed decimal.Decimal
	Pending   decimal.Decimal
}

// Sum adds confirmed entries to Confirmed and requested entries to Pending.
// Rejected entries are ignored.
func Sum(ledger types.PaymentRequests) Totals {
	t := Totals{Confirmed: decimal.Zero, Pending: decimal.Zero}
	for _, pr := range ledger {
		amount := decimal.NewFromFloat(pr.Amount)
		switch pr.Status {
		case enums.PaymentRequestConfirmed:
			t.Confirmed = t.Confirmed.Add(amount)
		case enums.PaymentRequestRequested:
			t.Pending = t.Pending.Add(amount)
		}
	}
	return t
}
