package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorops-backend/pkg/enums"
)

func TestTryTransition_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seed(t, nil)

	stale := int64(7)
	_, applied, err := f.repo.TryTransition(ctx, order.ID, Expect{Version: &stale}, Change{Fields: map[string]any{"fare": 10.0}})
	require.NoError(t, err)
	assert.False(t, applied)

	_, applied, err = f.repo.TryTransition(ctx, order.ID,
		Expect{Statuses: []enums.OrderStatus{enums.OrderStatusAccepted}},
		Change{Status: enums.OrderStatusInProgress})
	require.NoError(t, err)
	assert.False(t, applied)

	claimer := uuid.New()
	updated, applied, err := f.repo.TryTransition(ctx, order.ID,
		Expect{Statuses: []enums.OrderStatus{enums.OrderStatusPending}, ClaimableBy: &claimer},
		Change{Status: enums.OrderStatusAccepted, Fields: map[string]any{"vendor_id": claimer}})
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, enums.OrderStatusAccepted, updated.Status)
	assert.EqualValues(t, 2, updated.Version)

	other := uuid.New()
	_, applied, err = f.repo.TryTransition(ctx, order.ID,
		Expect{ClaimableBy: &other},
		Change{Fields: map[string]any{"vendor_id": other}})
	require.NoError(t, err)
	assert.False(t, applied)

	_, applied, err = f.repo.TryTransition(ctx, order.ID, Expect{VendorID: &claimer}, Change{Fields: map[string]any{"fare": 99.0}})
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestFindByID_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, isNotFound(err))
}

func TestNotifierFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("outbox down")
	owner := uuid.New()
	order := f.seed(t, assignedTo(owner, enums.OrderStatusAccepted))

	started, err := f.svc.Start(context.Background(), vendor(owner), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusInProgress, started.Status)
}
