package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/internal/notifications"
	"github.com/angelmondragon/vendorops-backend/internal/otp"
	"github.com/angelmondragon/vendorops-backend/pkg/config"
	"github.com/angelmondragon/vendorops-backend/pkg/db/dbtest"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

type plainHasher struct{}

func (plainHasher) Hash(code string) (string, error) { return "h:" + code, nil }

func (plainHasher) Verify(code, encoded string) (bool, error) { return encoded == "h:"+code, nil }

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notifications.Message
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notifications.Message) (notifications.Delivery, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return notifications.Delivery{}, n.err
	}
	n.msgs = append(n.msgs, msg)
	return notifications.Delivery{Queued: true, EventID: uuid.New()}, nil
}

func (n *recordingNotifier) byType(typ enums.NotificationType) []notifications.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifications.Message
	for _, m := range n.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type stubLocator struct {
	vendors []uuid.UUID
	err     error
	calls   int
}

func (l *stubLocator) FindOnlineVendors(context.Context, types.Location, float64) ([]uuid.UUID, error) {
	l.calls++
	return l.vendors, l.err
}

type stubDirectory map[uuid.UUID]bool

func (d stubDirectory) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return d[id], nil
}

type fixture struct {
	svc      Service
	deps     Deps
	conn     *gorm.DB
	repo     Repository
	notifier *recordingNotifier
	locator  *stubLocator
	vendors  stubDirectory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	lifecycle := config.LifecycleConfig{
		OTPMaxAttempts:       5,
		OTPDefaultTTL:        5 * time.Minute,
		OTPCodeLength:        6,
		DispatchRadiusMeters: 10000,
		DefaultCurrency:      "INR",
	}
	f := &fixture{
		conn:     conn,
		repo:     NewRepository(conn),
		notifier: &recordingNotifier{},
		locator:  &stubLocator{},
		vendors:  stubDirectory{},
	}
	f.deps = Deps{
		Repo:      f.repo,
		Tx:        client,
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		OTP:       otp.NewEngine(plainHasher{}, lifecycle),
		Notifier:  f.notifier,
		Locator:   f.locator,
		Vendors:   f.vendors,
		Lifecycle: lifecycle,
		ExposeOTP: true,
	}
	svc, err := NewService(f.deps)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// serviceWith builds a second service over the fixture's database that reads
// and writes orders through repo.
func (f *fixture) serviceWith(t *testing.T, repo Repository) Service {
	t.Helper()
	deps := f.deps
	deps.Repo = repo
	svc, err := NewService(deps)
	require.NoError(t, err)
	return svc
}

// staleRepo serves a saved snapshot on the next read of its order, the way a
// caller sees the row just before a concurrent writer commits. It counts
// conditional writes that matched no row.
type staleRepo struct {
	Repository
	state *staleState
}

type staleState struct {
	mu       sync.Mutex
	snapshot *models.Order
	misses   int
}

func newStaleRepo(inner Repository) staleRepo {
	return staleRepo{Repository: inner, state: &staleState{}}
}

func (r staleRepo) serveOnce(order *models.Order) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	snapshot := *order
	r.state.snapshot = &snapshot
}

func (r staleRepo) missCount() int {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return r.state.misses
}

func (r staleRepo) WithTx(tx *gorm.DB) Repository {
	return staleRepo{Repository: r.Repository.WithTx(tx), state: r.state}
}

func (r staleRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	r.state.mu.Lock()
	snapshot := r.state.snapshot
	if snapshot != nil && snapshot.ID == id {
		r.state.snapshot = nil
	}
	r.state.mu.Unlock()
	if snapshot != nil && snapshot.ID == id {
		served := *snapshot
		return &served, nil
	}
	return r.Repository.FindByID(ctx, id)
}

func (r staleRepo) TryTransition(ctx context.Context, id uuid.UUID, expect Expect, change Change) (*models.Order, bool, error) {
	order, applied, err := r.Repository.TryTransition(ctx, id, expect, change)
	if err == nil && !applied {
		r.state.mu.Lock()
		r.state.misses++
		r.state.mu.Unlock()
	}
	return order, applied, err
}

func (f *fixture) seed(t *testing.T, mutate func(o *models.Order)) *models.Order {
	t.Helper()
	customerID := uuid.New()
	order := &models.Order{
		CustomerID:      &customerID,
		Pickup:          types.Location{Lat: 12.97, Lng: 77.59, Address: "MG Road"},
		Drop:            types.Location{Lat: 12.93, Lng: 77.62, Address: "Koramangala"},
		Items:           types.LineItems{{Title: "Sofa cleaning", Qty: 1, Price: 450}},
		Fare:            450,
		PaymentMethod:   enums.PaymentMethodCOD,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          enums.OrderStatusPending,
		PaymentRequests: types.PaymentRequests{},
		Metadata:        types.JSONMap{},
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, f.repo.Create(context.Background(), order))
	return order
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Order {
	t.Helper()
	order, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return order
}

func (f *fixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func assignedTo(vendorID uuid.UUID, status enums.OrderStatus) func(o *models.Order) {
	return func(o *models.Order) {
		id := vendorID
		o.VendorID = &id
		o.Status = status
	}
}

func vendor(id uuid.UUID) Actor {
	return Actor{ID: id, Role: enums.ActorVendor}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, pkgerrors.As(err).Code(), "unexpected error: %v", err)
}

var errLocatorDown = errors.New("presence store unavailable")
