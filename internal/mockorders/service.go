package mockorders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/internal/orders"
	"github.com/angelmondragon/vendorops-backend/pkg/db"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
	"github.com/angelmondragon/vendorops-backend/pkg/metrics"
	"github.com/angelmondragon/vendorops-backend/pkg/pagination"
	"github.com/angelmondragon/vendorops-backend/pkg/redis"
)

const (
	statusCreated = http.StatusCreated

	metadataSource    = "mock-api"
	replayCounterName = "mock:replays"
	maxClientKeyLen   = 128

	clientKeyConstraint = "ux_mock_order_calls_client_request_id"
)

var errKeyClaimed = errors.New("client request id already claimed")

// Service creates orders idempotently on behalf of test harnesses and keeps
// an audit record of every call.
type Service interface {
	CreateOrGet(ctx context.Context, input orders.CreateOrderInput, clientRequestID string, meta RequestMeta) (*Result, error)
	Stats(ctx context.Context) (*Stats, error)
	Calls(ctx context.Context, limit, offset int) (*CallList, error)
}

type orderCreator interface {
	CreateWith(ctx context.Context, actor orders.Actor, input orders.CreateOrderInput, attach orders.AttachFunc) (*models.Order, error)
}

type orderFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type replayCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (string, error)
	CounterKey(name string) string
}

// Deps bundles the collaborators of the mock order service. Counter and
// Metrics are optional.
type Deps struct {
	Repo    Repository
	Creator orderCreator
	Orders  orderFinder
	Counter replayCounter
	Metrics *metrics.LifecycleMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	creator orderCreator
	orders  orderFinder
	counter replayCounter
	metrics *metrics.LifecycleMetrics
	logg    *logger.Logger
}

// NewService wires the mock order service.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("mock call repository required")
	}
	if deps.Creator == nil || deps.Orders == nil {
		return nil, fmt.Errorf("order creator and finder required")
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    deps.Repo,
		creator: deps.Creator,
		orders:  deps.Orders,
		counter: deps.Counter,
		metrics: deps.Metrics,
		logg:    logg,
	}, nil
}

// CreateOrGet replays the order of an earlier call with the same client
// request id, or creates a new one. Every call that reaches creation leaves
// an audit record, failed ones included.
func (s *service) CreateOrGet(ctx context.Context, input orders.CreateOrderInput, clientRequestID string, meta RequestMeta) (*Result, error) {
	key := strings.TrimSpace(clientRequestID)
	if len(key) > maxClientKeyLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "clientRequestId too long").
			WithDetails(map[string]any{"max": maxClientKeyLen})
	}
	if key != "" {
		ctx = s.logg.WithField(ctx, "client_request_id", key)
		replay, err := s.replay(ctx, key)
		if err != nil || replay != nil {
			return replay, err
		}
	}

	input.Metadata = tagMetadata(input.Metadata, key)
	call := &models.MockOrderCall{
		RequestPayload: payloadFor(meta.Payload, input),
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
		AutoAssigned:   input.AutoAssign,
		ResponseStatus: statusCreated,
	}
	if key != "" {
		call.ClientRequestID = &key
	}

	order, err := s.creator.CreateWith(ctx, orders.Actor{}, input, func(tx *gorm.DB, order *models.Order) error {
		call.OrderID = &order.ID
		call.VendorID = order.VendorID
		if err := s.repo.WithTx(tx).Create(ctx, call); err != nil {
			if key != "" && db.IsUniqueViolation(err, clientKeyConstraint) {
				return errKeyClaimed
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist mock call audit")
		}
		return nil
	})
	switch {
	case errors.Is(err, errKeyClaimed):
		return s.lostRace(ctx, key)
	case err != nil:
		s.recordFailure(ctx, call, err)
		return nil, err
	}

	s.metrics.MockCall("created")
	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "mock order created")
	return &Result{Order: order, CalledAt: call.CreatedAt}, nil
}

// recordFailure audits a call whose order was not created. The key stays on
// the record so replay sees the failed attempt.
func (s *service) recordFailure(ctx context.Context, call *models.MockOrderCall, cause error) {
	s.metrics.MockCall("failed")
	msg := cause.Error()
	call.ID = uuid.Nil
	call.CreatedAt = time.Time{}
	call.OrderID = nil
	call.VendorID = nil
	call.ErrorMessage = &msg
	call.ResponseStatus = pkgerrors.MetadataFor(pkgerrors.As(cause).Code()).HTTPStatus

	err := s.repo.Create(ctx, call)
	if err != nil && call.ClientRequestID != nil && db.IsUniqueViolation(err, clientKeyConstraint) {
		// another call holds the key by now
		call.ID = uuid.Nil
		call.ClientRequestID = nil
		err = s.repo.Create(ctx, call)
	}
	if err != nil {
		s.logg.Error(ctx, "failed to persist mock call audit", err)
	}
}

// replay returns the earlier result for key. A record without a live order,
// failed or deleted, gives up its key and the call proceeds as new.
func (s *service) replay(ctx context.Context, key string) (*Result, error) {
	existing, err := s.repo.FindByClientRequestID(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup mock call")
	}
	if existing == nil {
		return nil, nil
	}
	logCtx := s.logg.WithField(ctx, "call_id", existing.ID.String())
	if existing.OrderID == nil {
		s.logg.Info(logCtx, "previous mock call failed, allowing retry")
	} else {
		order, err := s.orders.FindByID(ctx, *existing.OrderID)
		switch {
		case err == nil:
			s.countReplay(ctx)
			s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "idempotent mock order replay")
			return &Result{Order: order, Idempotent: true, CalledAt: existing.CreatedAt}, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load replayed order")
		}
		s.logg.Warn(logCtx, "original mock order not found, allowing re-creation")
	}

	if err := s.repo.ReleaseKey(ctx, existing.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release mock call key")
	}
	return nil, nil
}

// lostRace answers a call whose audit insert hit the key of a concurrent
// call. Its own order was rolled back with the insert, so the caller gets
// the winner's order.
func (s *service) lostRace(ctx context.Context, key string) (*Result, error) {
	s.logg.Warn(ctx, "concurrent mock call claimed the key first")

	winner, err := s.repo.FindByClientRequestID(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup winning mock call")
	}
	if winner == nil || winner.OrderID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "concurrent request with the same clientRequestId, retry")
	}
	order, err := s.orders.FindByID(ctx, *winner.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load winning order")
	}
	s.countReplay(ctx)
	return &Result{Order: order, Idempotent: true, CalledAt: winner.CreatedAt}, nil
}

func (s *service) countReplay(ctx context.Context) {
	s.metrics.MockCall("replayed")
	if s.counter == nil {
		return
	}
	if _, err := s.counter.Incr(ctx, s.counter.CounterKey(replayCounterName)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "replay counter increment failed")
	}
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count mock calls")
	}
	stats := &Stats{
		TotalCalls:      counts.Total,
		SuccessfulCalls: counts.Successful,
		FailedCalls:     counts.Failed,
	}
	if s.counter == nil {
		return stats, nil
	}
	raw, err := s.counter.Get(ctx, s.counter.CounterKey(replayCounterName))
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "replay counter unavailable")
	default:
		if n, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
			stats.IdempotentReplays = n
		}
	}
	return stats, nil
}

func (s *service) Calls(ctx context.Context, limit, offset int) (*CallList, error) {
	rows, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list mock calls")
	}
	items := make([]CallView, 0, len(rows))
	for i := range rows {
		items = append(items, newCallView(&rows[i]))
	}
	return &CallList{
		Items:  items,
		Total:  total,
		Limit:  pagination.NormalizeLimit(limit),
		Offset: pagination.NormalizeOffset(offset),
	}, nil
}

func tagMetadata(in map[string]any, key string) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	out["source"] = metadataSource
	if key != "" {
		out["mockRequestId"] = key
	} else {
		out["mockRequestId"] = nil
	}
	return out
}

func payloadFor(raw json.RawMessage, input orders.CreateOrderInput) json.RawMessage {
	if len(raw) > 0 && json.Valid(raw) {
		return raw
	}
	encoded, err := json.Marshal(input)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return encoded
}
