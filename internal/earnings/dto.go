package earnings

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/pkg/enums"
)

// SummaryParams narrows the confirmed totals to a confirmation window.
// TZ names the IANA zone that defines "today" and "this month".
type SummaryParams struct {
	Start *time.Time
	End   *time.Time
	TZ    string
}

// Summary is a vendor's earnings overview. Amounts are rounded to cents.
type Summary struct {
	Currency        string  `json:"currency"`
	TotalToday      float64 `json:"totalToday"`
	TotalMonth      float64 `json:"totalMonth"`
	TotalAllTime    float64 `json:"totalAllTime"`
	Pending         float64 `json:"pending"`
	CompletedOrders int64   `json:"completedOrders"`
}

// HistoryParams pages through confirmed payments, newest first.
type HistoryParams struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// HistoryRow is one confirmed payment request.
type HistoryRow struct {
	ID            uuid.UUID           `json:"id"`
	OrderID       uuid.UUID           `json:"orderId"`
	Amount        float64             `json:"amount"`
	Currency      string              `json:"currency"`
	ConfirmedAt   time.Time           `json:"confirmedAt"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	Status        enums.OrderStatus   `json:"status"`
	Notes         string              `json:"notes,omitempty"`
}

// History is one page of confirmed payments.
type History struct {
	Page       int          `json:"page"`
	PerPage    int          `json:"perPage"`
	TotalItems int          `json:"totalItems"`
	TotalPages int          `json:"totalPages"`
	Rows       []HistoryRow `json:"rows"`
}
