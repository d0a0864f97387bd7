package earnings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/pkg/db/dbtest"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func entry(amount float64, status enums.PaymentRequestStatus, confirmedAt time.Time) types.PaymentRequest {
	pr := types.PaymentRequest{
		ID:        uuid.New(),
		Amount:    amount,
		Currency:  "INR",
		Status:    status,
		CreatedAt: confirmedAt.Add(-time.Hour),
	}
	if status == enums.PaymentRequestConfirmed {
		at := confirmedAt
		pr.ConfirmedAt = &at
	}
	return pr
}

func seedOrder(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, status enums.OrderStatus, ledger ...types.PaymentRequest) {
	t.Helper()
	order := models.Order{
		ID:              uuid.New(),
		VendorID:        &vendorID,
		Pickup:          types.Location{Address: "a"},
		Drop:            types.Location{Address: "b"},
		Items:           types.LineItems{{Title: "x", Qty: 1}},
		PaymentMethod:   enums.PaymentMethodCOD,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          status,
		PaymentRequests: types.PaymentRequests(ledger),
		Metadata:        types.JSONMap{},
		Version:         1,
	}
	require.NoError(t, conn.Create(&order).Error)
}

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), "inr")
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }
	return impl, conn
}

func TestSummary(t *testing.T) {
	svc, conn := newTestService(t)
	vendorID := uuid.New()

	seedOrder(t, conn, vendorID, enums.OrderStatusCompleted,
		entry(100.105, enums.PaymentRequestConfirmed, fixedNow.Add(-2*time.Hour)),
		entry(50, enums.PaymentRequestRequested, fixedNow),
	)
	seedOrder(t, conn, vendorID, enums.OrderStatusCompleted,
		entry(200, enums.PaymentRequestConfirmed, fixedNow.AddDate(0, 0, -3)),
	)
	seedOrder(t, conn, vendorID, enums.OrderStatusPaymentConfirmed,
		entry(300, enums.PaymentRequestConfirmed, fixedNow.AddDate(0, -2, 0)),
		entry(25, enums.PaymentRequestRejected, fixedNow),
	)
	seedOrder(t, conn, vendorID, enums.OrderStatusAccepted)
	seedOrder(t, conn, uuid.New(), enums.OrderStatusCompleted,
		entry(999, enums.PaymentRequestConfirmed, fixedNow),
	)

	summary, err := svc.Summary(context.Background(), vendorID, SummaryParams{})
	require.NoError(t, err)
	assert.Equal(t, "INR", summary.Currency)
	assert.InDelta(t, 100.11, summary.TotalToday, 0.0001)
	assert.InDelta(t, 300.11, summary.TotalMonth, 0.0001)
	assert.InDelta(t, 600.11, summary.TotalAllTime, 0.0001)
	assert.InDelta(t, 50, summary.Pending, 0.0001)
	assert.EqualValues(t, 2, summary.CompletedOrders)

	start := fixedNow.AddDate(0, 0, -7)
	windowed, err := svc.Summary(context.Background(), vendorID, SummaryParams{Start: &start})
	require.NoError(t, err)
	assert.InDelta(t, 300.11, windowed.TotalAllTime, 0.0001)
}

func TestSummary_TimezoneShiftsToday(t *testing.T) {
	svc, conn := newTestService(t)
	vendorID := uuid.New()
	// 20:00 UTC on the 14th is already the 15th in Kolkata
	seedOrder(t, conn, vendorID, enums.OrderStatusCompleted,
		entry(80, enums.PaymentRequestConfirmed, time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC)),
	)

	utc, err := svc.Summary(context.Background(), vendorID, SummaryParams{})
	require.NoError(t, err)
	assert.Zero(t, utc.TotalToday)

	ist, err := svc.Summary(context.Background(), vendorID, SummaryParams{TZ: "Asia/Kolkata"})
	require.NoError(t, err)
	assert.InDelta(t, 80, ist.TotalToday, 0.0001)

	_, err = svc.Summary(context.Background(), vendorID, SummaryParams{TZ: "Mars/Olympus"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestHistory(t *testing.T) {
	svc, conn := newTestService(t)
	vendorID := uuid.New()
	for i := 0; i < 5; i++ {
		seedOrder(t, conn, vendorID, enums.OrderStatusCompleted,
			entry(float64(10*(i+1)), enums.PaymentRequestConfirmed, fixedNow.Add(-time.Duration(i)*time.Hour)),
			entry(1, enums.PaymentRequestRequested, fixedNow),
		)
	}

	page, err := svc.History(context.Background(), vendorID, HistoryParams{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PerPage)
	assert.Equal(t, 5, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Rows, 2)
	assert.InDelta(t, 30, page.Rows[0].Amount, 0.0001)
	assert.InDelta(t, 40, page.Rows[1].Amount, 0.0001)
	assert.Equal(t, enums.OrderStatusCompleted, page.Rows[0].Status)

	from := fixedNow.Add(-90 * time.Minute)
	recent, err := svc.History(context.Background(), vendorID, HistoryParams{From: &from})
	require.NoError(t, err)
	assert.Equal(t, 2, recent.TotalItems)
	assert.Equal(t, 50, recent.PerPage)

	past, err := svc.History(context.Background(), vendorID, HistoryParams{Offset: 100})
	require.NoError(t, err)
	assert.Empty(t, past.Rows)

	_, err = svc.History(context.Background(), vendorID, HistoryParams{From: &fixedNow, To: &from})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
