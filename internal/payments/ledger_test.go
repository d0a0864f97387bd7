package payments

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

func TestResolveAmount(t *testing.T) {
	explicit := 250.0
	assert.Equal(t, 250.0, ResolveAmount(&explicit, 700))
	assert.Equal(t, 700.0, ResolveAmount(nil, 700))
}

func TestValidateAmount(t *testing.T) {
	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := ValidateAmount(bad)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%v", bad)
	}
	got, err := ValidateAmount(10.005)
	require.NoError(t, err)
	assert.Equal(t, 10.01, got)
}

func TestValidateFare(t *testing.T) {
	got, err := ValidateFare(0)
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = ValidateFare(-0.5)
	assert.Error(t, err)
}

func TestAppendKeepsPriorEntries(t *testing.T) {
	now := time.Now()
	ledger, first, err := Append(nil, NewRequest{Amount: 100}, "inr", now)
	require.NoError(t, err)
	assert.Equal(t, "INR", first.Currency)
	assert.Equal(t, enums.PaymentRequestRequested, first.Status)

	next, second, err := Append(ledger, NewRequest{Amount: 50.5, Currency: "usd", Notes: " tip "}, "INR", now)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Len(t, ledger, 1, "input ledger untouched")
	assert.Equal(t, first, next[0])
	assert.Equal(t, "USD", second.Currency)
	assert.Equal(t, "tip", second.Notes)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestConfirmOnlyTouchesTarget(t *testing.T) {
	now := time.Now()
	ledger, a, err := Append(nil, NewRequest{Amount: 100}, "INR", now)
	require.NoError(t, err)
	ledger, b, err := Append(ledger, NewRequest{Amount: 40, Currency: "USD"}, "INR", now)
	require.NoError(t, err)

	next, confirmed, err := Confirm(ledger, a.ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentRequestConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, a.Amount, confirmed.Amount)
	assert.Equal(t, a.Currency, confirmed.Currency)
	assert.Equal(t, b, next[1])
	assert.Equal(t, enums.PaymentRequestRequested, ledger[0].Status, "input ledger untouched")

	_, _, err = Confirm(next, a.ID, now)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, _, err = Confirm(next, uuid.New(), now)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSum(t *testing.T) {
	ledger := types.PaymentRequests{
		{Amount: 100.10, Status: enums.PaymentRequestConfirmed},
		{Amount: 0.20, Status: enums.PaymentRequestConfirmed},
		{Amount: 40, Status: enums.PaymentRequestRequested},
		{Amount: 999, Status: enums.PaymentRequestRejected},
	}
	totals := Sum(ledger)
	assert.Equal(t, "100.3", totals.Confirmed.String())
	assert.Equal(t, "40", totals.Pending.String())
}
