package earnings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/vendorops-backend/internal/payments"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/pagination"
)

// Service reports what a vendor has earned from confirmed payment requests.
type Service interface {
	Summary(ctx context.Context, vendorID uuid.UUID, params SummaryParams) (*Summary, error)
	History(ctx context.Context, vendorID uuid.UUID, params HistoryParams) (*History, error)
}

type service struct {
	repo     Repository
	currency string
	now      func() time.Time
}

// NewService builds the earnings service. currency labels the summary.
func NewService(repo Repository, currency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("earnings repository required")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = payments.DefaultCurrency
	}
	return &service{repo: repo, currency: currency, now: time.Now}, nil
}

func (s *service) Summary(ctx context.Context, vendorID uuid.UUID, params SummaryParams) (*Summary, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity missing")
	}
	loc, err := location(params.TZ)
	if err != nil {
		return nil, err
	}
	if err := checkRange(params.Start, params.End); err != nil {
		return nil, err
	}

	var (
		rows      []models.Order
		completed int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repo.LedgersForVendor(gctx, vendorID)
		return err
	})
	g.Go(func() error {
		var err error
		completed, err = s.repo.CountCompleted(gctx, vendorID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor earnings")
	}

	now := s.now().In(loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	today, month, allTime, pending := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for i := range rows {
		pending = pending.Add(payments.Sum(rows[i].PaymentRequests).Pending)
		for _, pr := range rows[i].PaymentRequests {
			if pr.Status != enums.PaymentRequestConfirmed || pr.ConfirmedAt == nil {
				continue
			}
			at := *pr.ConfirmedAt
			if !inRange(at, params.Start, params.End) {
				continue
			}
			amount := decimal.NewFromFloat(pr.Amount)
			allTime = allTime.Add(amount)
			if !at.Before(monthStart) {
				month = month.Add(amount)
			}
			if !at.Before(todayStart) {
				today = today.Add(amount)
			}
		}
	}

	return &Summary{
		Currency:        s.currency,
		TotalToday:      cents(today),
		TotalMonth:      cents(month),
		TotalAllTime:    cents(allTime),
		Pending:         cents(pending),
		CompletedOrders: completed,
	}, nil
}

func (s *service) History(ctx context.Context, vendorID uuid.UUID, params HistoryParams) (*History, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity missing")
	}
	if err := checkRange(params.From, params.To); err != nil {
		return nil, err
	}
	rows, err := s.repo.LedgersForVendor(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor earnings")
	}

	var confirmed []HistoryRow
	for i := range rows {
		order := &rows[i]
		for _, pr := range order.PaymentRequests {
			if pr.Status != enums.PaymentRequestConfirmed || pr.ConfirmedAt == nil {
				continue
			}
			if !inRange(*pr.ConfirmedAt, params.From, params.To) {
				continue
			}
			confirmed = append(confirmed, HistoryRow{
				ID:            pr.ID,
				OrderID:       order.ID,
				Amount:        payments.Round(pr.Amount),
				Currency:      pr.Currency,
				ConfirmedAt:   pr.ConfirmedAt.UTC(),
				PaymentMethod: order.PaymentMethod,
				Status:        order.Status,
				Notes:         pr.Notes,
			})
		}
	}
	sort.SliceStable(confirmed, func(i, j int) bool {
		return confirmed[i].ConfirmedAt.After(confirmed[j].ConfirmedAt)
	})

	limit := pagination.NormalizeLimit(params.Limit)
	offset := pagination.NormalizeOffset(params.Offset)
	total := len(confirmed)
	page := []HistoryRow{}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		page = confirmed[offset:end]
	}

	return &History{
		Page:       offset/limit + 1,
		PerPage:    limit,
		TotalItems: total,
		TotalPages: (total + limit - 1) / limit,
		Rows:       page,
	}, nil
}

func location(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid timezone").
			WithDetails(map[string]any{"tz": tz})
	}
	return loc, nil
}

func checkRange(from, to *time.Time) error {
	if from != nil && to != nil && to.Before(*from) {
		return pkgerrors.New(pkgerrors.CodeValidation, "range end precedes start")
	}
	return nil
}

func inRange(at time.Time, from, to *time.Time) bool {
	if from != nil && at.Before(*from) {
		return false
	}
	if to != nil && at.After(*to) {
		return false
	}
	return true
}

func cents(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
