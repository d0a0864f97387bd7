package types

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/pkg/enums"
)

// PaymentRequest is one entry of an order's append-only payment ledger.
// Amount and Currency never change after the entry is appended.
type PaymentRequest struct {
	ID          uuid.UUID                  `json:"id"`
	Amount      float64                    `json:"amount"`
	Currency    string                     `json:"currency"`
	Notes       string                     `json:"notes,omitempty"`
	Status      enums.PaymentRequestStatus `json:"status"`
	CreatedAt   time.Time                  `json:"createdAt"`
	ConfirmedAt *time.Time                 `json:"confirmedAt,omitempty"`
	Meta        map[string]any             `json:"meta,omitempty"`
}

// PaymentRequests is stored as a JSON array in insertion order.
type PaymentRequests []PaymentRequest

// Value implements driver.Valuer.
func (p PaymentRequests) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return jsonValue([]PaymentRequest(p))
}

// Scan implements sql.Scanner.
func (p *PaymentRequests) Scan(src any) error {
	if src == nil {
		*p = PaymentRequests{}
		return nil
	}
	decoded := []PaymentRequest{}
	if err := jsonScan(src, &decoded); err != nil {
		return fmt.Errorf("payment requests: %w", err)
	}
	*p = decoded
	return nil
}

// Find returns the index of the entry with the given id, or -1.
func (p PaymentRequests) Find(id uuid.UUID) int {
	for i := range p {
		if p[i].ID == id {
			return i
		}
	}
	return -1
}
