package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

func wrongCode(code string) string {
	last := '0'
	if code[len(code)-1] == '0' {
		last = '1'
	}
	return code[:len(code)-1] + string(last)
}

func TestRequestOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	order := f.seed(t, assignedTo(owner, enums.OrderStatusAccepted))

	issued, err := f.svc.RequestOTP(ctx, vendor(owner), order.ID, OTPRequestInput{Purpose: "arrival", TTLSeconds: 120})
	require.NoError(t, err)
	assert.Len(t, issued.Code, 6)
	assert.Equal(t, enums.OTPPurposeArrival, issued.Purpose)

	stored := f.reload(t, order.ID)
	require.True(t, hasChallenge(stored))
	assert.Equal(t, issued.ChallengeID, stored.OTP.ID)
	assert.Equal(t, "h:"+issued.Code, stored.OTP.CodeHash)
	assert.Equal(t, enums.OrderStatusAccepted, stored.Status)

	_, err = f.svc.RequestOTP(ctx, vendor(owner), order.ID, OTPRequestInput{Purpose: "arrival"})
	requireCode(t, err, pkgerrors.CodeRateLimit)

	msgs := f.notifier.byType(enums.NotificationTypeOTP)
	require.Len(t, msgs, 1)
	assert.Equal(t, *order.CustomerID, msgs[0].RecipientID)
	assert.NotContains(t, msgs[0].Data, "code")
	assert.NotContains(t, msgs[0].Body, issued.Code)
}

func TestRequestOTP_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	accepted := f.seed(t, assignedTo(owner, enums.OrderStatusAccepted))
	_, err := f.svc.RequestOTP(ctx, vendor(uuid.New()), accepted.ID, OTPRequestInput{Purpose: "arrival"})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.RequestOTP(ctx, vendor(owner), accepted.ID, OTPRequestInput{Purpose: "pickup"})
	requireCode(t, err, pkgerrors.CodeValidation)

	completed := f.seed(t, assignedTo(owner, enums.OrderStatusCompleted))
	_, err = f.svc.RequestOTP(ctx, vendor(owner), completed.ID, OTPRequestInput{Purpose: "completion"})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	unassigned := f.seed(t, nil)
	_, err = f.svc.RequestOTP(ctx, vendor(owner), unassigned.ID, OTPRequestInput{Purpose: "arrival"})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	assert.Nil(t, f.reload(t, unassigned.ID).OTP)
}

func TestVerifyOTP_AttemptCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	order := f.seed(t, assignedTo(owner, enums.OrderStatusAccepted))

	issued, err := f.svc.RequestOTP(ctx, vendor(owner), order.ID, OTPRequestInput{Purpose: "arrival"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := f.svc.VerifyOTP(ctx, vendor(owner), order.ID, OTPVerifyInput{Purpose: "arrival", Code: wrongCode(issued.Code)})
		requireCode(t, err, pkgerrors.CodeUnauthorized)
	}
	assert.Equal(t, 5, f.reload(t, order.ID).OTP.Attempts)

	_, err = f.svc.VerifyOTP(ctx, vendor(owner), order.ID, OTPVerifyInput{Purpose: "arrival", Code: issued.Code})
	requireCode(t, err, pkgerrors.CodeRateLimit)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "too_many_attempts", details["reason"])

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.OrderStatusAccepted, stored.Status)
	assert.False(t, stored.OTP.Verified)
}

func TestVerifyOTP_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	order := f.seed(t, assignedTo(owner, enums.OrderStatusAccepted))

	issued, err := f.svc.RequestOTP(ctx, vendor(owner), order.ID, OTPRequestInput{Purpose: "arrival"})
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, vendor(owner), order.ID, OTPVerifyInput{Purpose: "completion", Code: issued.Code})
	requireCode(t, err, pkgerrors.CodeValidation)

	verified, err := f.svc.VerifyOTP(ctx, vendor(owner), order.ID, OTPVerifyInput{Purpose: "arrival", Code: issued.Code})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusArrivalConfirmed, verified.Status)
	require.NotNil(t, verified.OTP)
	assert.True(t, verified.OTP.Verified)

	_, err = f.svc.VerifyOTP(ctx, vendor(owner), order.ID, OTPVerifyInput{Purpose: "arrival", Code: issued.Code})
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventOrderStateChanged))
}

func TestVerifyOTP_CompletionCompletesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	order := f.seed(t, assignedTo(owner, enums.OrderStatusInProgress))

	issued, err := f.svc.RequestOTP(ctx, vendor(owner), order.ID, OTPRequestInput{Purpose: "completion"})
	require.NoError(t, err)

	completed, err := f.svc.VerifyOTP(ctx, vendor(owner), order.ID, OTPVerifyInput{Purpose: "completion", Code: issued.Code})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
}

func TestVerifyOTP_IllegalTransitionKeepsChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	order := f.seed(t, assignedTo(owner, enums.OrderStatusInProgress))

	issued, err := f.svc.RequestOTP(ctx, vendor(owner), order.ID, OTPRequestInput{Purpose: "arrival"})
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, vendor(owner), order.ID, OTPVerifyInput{Purpose: "arrival", Code: issued.Code})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.OrderStatusInProgress, stored.Status)
	require.True(t, hasChallenge(stored))
	assert.False(t, stored.OTP.Verified)
	assert.Zero(t, stored.OTP.Attempts)
}

func TestVerifyOTP_Expired(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	order := f.seed(t, func(o *models.Order) {
		assignedTo(owner, enums.OrderStatusAccepted)(o)
		o.OTP = &types.OTPChallenge{
			ID:        uuid.New(),
			CodeHash:  "h:111111",
			Purpose:   enums.OTPPurposeArrival,
			CreatedAt: time.Now().Add(-10 * time.Minute).UTC(),
			ExpiresAt: time.Now().Add(-5 * time.Minute).UTC(),
		}
	})

	_, err := f.svc.VerifyOTP(context.Background(), vendor(owner), order.ID, OTPVerifyInput{Purpose: "arrival", Code: "111111"})
	requireCode(t, err, pkgerrors.CodeGone)
	assert.Equal(t, enums.OrderStatusAccepted, f.reload(t, order.ID).Status)
}

func TestClearStaleChallenges(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	withChallenge := func(expiresAt time.Time, verified bool) func(o *models.Order) {
		return func(o *models.Order) {
			o.OTP = &types.OTPChallenge{
				ID:        uuid.New(),
				CodeHash:  "h:000000",
				Purpose:   enums.OTPPurposeArrival,
				CreatedAt: now.Add(-time.Minute),
				ExpiresAt: expiresAt,
				Verified:  verified,
			}
		}
	}
	expired := f.seed(t, withChallenge(now.Add(-time.Minute), false))
	consumed := f.seed(t, withChallenge(now.Add(time.Hour), true))
	active := f.seed(t, withChallenge(now.Add(time.Hour), false))
	f.seed(t, nil)

	cleared, err := f.svc.ClearStaleChallenges(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	assert.False(t, hasChallenge(f.reload(t, expired.ID)))
	assert.False(t, hasChallenge(f.reload(t, consumed.ID)))
	assert.True(t, hasChallenge(f.reload(t, active.ID)))
}
