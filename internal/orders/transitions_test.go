package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
)

func TestAccept_ConcurrentVendorsSingleWinner(t *testing.T) {
	f := newFixture(t)
	order := f.seed(t, nil)

	const contenders = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
		codes   []pkgerrors.Code
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(vendorID uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Accept(context.Background(), vendor(vendorID), order.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, vendorID)
				return
			}
			codes = append(codes, pkgerrors.As(err).Code())
		}(uuid.New())
	}
	wg.Wait()

	require.Len(t, winners, 1)
	require.Len(t, codes, contenders-1)
	for _, code := range codes {
		assert.Equal(t, pkgerrors.CodeConflict, code)
	}

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.OrderStatusAccepted, stored.Status)
	require.NotNil(t, stored.VendorID)
	assert.Equal(t, winners[0], *stored.VendorID)
	assert.NotNil(t, stored.AcceptedAt)
	assert.NotNil(t, stored.AssignedAt)
	assert.EqualValues(t, 2, stored.Version)
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventOrderStateChanged))
}

func TestAccept_StaleSnapshotLosesConditionalWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seed(t, nil)
	preClaim := f.reload(t, order.ID)

	first := uuid.New()
	_, err := f.svc.Accept(ctx, vendor(first), order.ID)
	require.NoError(t, err)

	repo := newStaleRepo(f.repo)
	repo.serveOnce(preClaim)
	_, err = f.serviceWith(t, repo).Accept(ctx, vendor(uuid.New()), order.ID)
	requireCode(t, err, pkgerrors.CodeConflict)
	assert.Equal(t, 1, repo.missCount())

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.OrderStatusAccepted, stored.Status)
	require.NotNil(t, stored.VendorID)
	assert.Equal(t, first, *stored.VendorID)
	assert.Equal(t, preClaim.Version+1, stored.Version)
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventOrderStateChanged))
}

func TestStart_StaleSnapshotIsReclassified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	order := f.seed(t, assignedTo(owner, enums.OrderStatusAccepted))
	beforeStart := f.reload(t, order.ID)

	_, err := f.svc.Start(ctx, vendor(owner), order.ID)
	require.NoError(t, err)
	started := f.reload(t, order.ID)

	repo := newStaleRepo(f.repo)
	repo.serveOnce(beforeStart)
	_, err = f.serviceWith(t, repo).Start(ctx, vendor(owner), order.ID)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	assert.Equal(t, 1, repo.missCount())
	assert.Equal(t, enums.OrderStatusInProgress, pkgerrors.As(err).Details().(map[string]any)["status"])

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.OrderStatusInProgress, stored.Status)
	assert.Equal(t, started.Version, stored.Version)
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventOrderStateChanged))
}

func TestAccept_AssignedOrder(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	order := f.seed(t, assignedTo(owner, enums.OrderStatusAssigned))

	_, err := f.svc.Accept(context.Background(), vendor(uuid.New()), order.ID)
	requireCode(t, err, pkgerrors.CodeConflict)

	accepted, err := f.svc.Accept(context.Background(), vendor(owner), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, accepted.Status)

	_, err = f.svc.Accept(context.Background(), vendor(owner), order.ID)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	statusChanges := f.notifier.byType(enums.NotificationTypeOrderStatus)
	require.Len(t, statusChanges, 1)
	assert.Equal(t, *order.CustomerID, statusChanges[0].RecipientID)
}

func TestAccept_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Accept(context.Background(), vendor(uuid.New()), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.Accept(context.Background(), Actor{}, uuid.New())
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	cancelled := f.seed(t, func(o *models.Order) { o.Status = enums.OrderStatusCancelled })
	_, err = f.svc.Accept(context.Background(), vendor(uuid.New()), cancelled.ID)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, enums.OrderStatusCancelled, details["status"])
}

func TestStart_RequiresAcceptedOrder(t *testing.T) {
	f := newFixture(t)
	pending := f.seed(t, nil)

	_, err := f.svc.Start(context.Background(), vendor(uuid.New()), pending.ID)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	assert.Equal(t, enums.OrderStatusPending, f.reload(t, pending.ID).Status)
}

func TestStartCompleteFlow(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	order := f.seed(t, assignedTo(owner, enums.OrderStatusAccepted))

	_, err := f.svc.Start(context.Background(), vendor(uuid.New()), order.ID)
	requireCode(t, err, pkgerrors.CodeConflict)

	started, err := f.svc.Start(context.Background(), vendor(owner), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusInProgress, started.Status)

	completed, err := f.svc.Complete(context.Background(), vendor(owner), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	_, err = f.svc.Complete(context.Background(), vendor(owner), order.ID)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	assert.EqualValues(t, 2, f.countEvents(t, enums.EventOrderStateChanged))
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.seed(t, nil)
	rejecter := uuid.New()
	rejected, err := f.svc.Reject(ctx, vendor(rejecter), pending.ID, " too far ")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRejected, rejected.Status)
	assert.Nil(t, rejected.VendorID)
	assert.Equal(t, rejecter.String(), rejected.Metadata.String("rejectedBy"))
	assert.Equal(t, "too far", rejected.Metadata.String("rejectionReason"))

	owner := uuid.New()
	assigned := f.seed(t, assignedTo(owner, enums.OrderStatusAssigned))
	_, err = f.svc.Reject(ctx, vendor(uuid.New()), assigned.ID, "")
	requireCode(t, err, pkgerrors.CodeConflict)

	cancelled, err := f.svc.Reject(ctx, vendor(owner), assigned.ID, "busy")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, enums.ActorVendor, *cancelled.CancelledBy)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "busy", *cancelled.CancellationReason)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	order := f.seed(t, assignedTo(owner, enums.OrderStatusInProgress))

	_, err := f.svc.Cancel(ctx, vendor(owner), order.ID, "  ")
	requireCode(t, err, pkgerrors.CodeValidation)

	cancelled, err := f.svc.Cancel(ctx, vendor(owner), order.ID, "customer unreachable")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, enums.ActorVendor, *cancelled.CancelledBy)

	pending := f.seed(t, nil)
	_, err = f.svc.Cancel(ctx, vendor(owner), pending.ID, "nope")
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	mine := f.seed(t, assignedTo(owner, enums.OrderStatusAccepted))
	open := f.seed(t, nil)

	_, err := f.svc.Get(ctx, vendor(owner), mine.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, vendor(uuid.New()), open.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, vendor(uuid.New()), mine.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = f.svc.Get(ctx, Actor{ID: uuid.New(), Role: enums.ActorAdmin}, mine.ID)
	require.NoError(t, err)
}

func TestListForVendor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	f.seed(t, assignedTo(owner, enums.OrderStatusAccepted))
	f.seed(t, assignedTo(owner, enums.OrderStatusInProgress))
	f.seed(t, assignedTo(uuid.New(), enums.OrderStatusAccepted))

	all, err := f.svc.ListForVendor(ctx, vendor(owner), ListParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)
	assert.Len(t, all.Items, 2)

	started, err := f.svc.ListForVendor(ctx, vendor(owner), ListParams{Status: "started"})
	require.NoError(t, err)
	require.Len(t, started.Items, 1)
	assert.Equal(t, enums.OrderStatusInProgress, started.Items[0].Status)

	_, err = f.svc.ListForVendor(ctx, vendor(owner), ListParams{Status: "teleported"})
	requireCode(t, err, pkgerrors.CodeValidation)
}
