package otp

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorops-backend/pkg/config"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/security"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

type plainHasher struct {
	hashErr error
}

func (h plainHasher) Hash(code string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "h:" + code, nil
}

func (plainHasher) Verify(code, encoded string) (bool, error) {
	return encoded == "h:"+code, nil
}

func newTestEngine() *Engine {
	e := NewEngine(plainHasher{}, config.LifecycleConfig{OTPMaxAttempts: 5, OTPCodeLength: 6, OTPDefaultTTL: 5 * time.Minute})
	e.generate = func(int) (string, error) { return "123456", nil }
	return e
}

func TestTTLClamp(t *testing.T) {
	e := newTestEngine()
	assert.Equal(t, 5*time.Minute, e.TTL(0))
	assert.Equal(t, MinTTL, e.TTL(time.Second))
	assert.Equal(t, MaxTTL, e.TTL(48*time.Hour))
	assert.Equal(t, 10*time.Minute, e.TTL(10*time.Minute))
}

func TestIssueStoresHashOnly(t *testing.T) {
	e := newTestEngine()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	issued, err := e.Issue(nil, enums.OTPPurposeArrival, 300*time.Second, now)
	require.NoError(t, err)
	assert.Equal(t, "123456", issued.Code)
	assert.Equal(t, "h:123456", issued.Challenge.CodeHash)
	assert.NotEqual(t, uuid.Nil, issued.Challenge.ID)
	assert.Equal(t, now.Add(300*time.Second), issued.Challenge.ExpiresAt)
	assert.Zero(t, issued.Challenge.Attempts)
	assert.False(t, issued.Challenge.Verified)
}

func TestIssueBlockedByActiveSamePurpose(t *testing.T) {
	e := newTestEngine()
	now := time.Now().UTC()
	existing := &types.OTPChallenge{
		ID:        uuid.New(),
		Purpose:   enums.OTPPurposeArrival,
		ExpiresAt: now.Add(time.Minute),
	}

	_, err := e.Issue(existing, enums.OTPPurposeArrival, 0, now)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeRateLimit, typed.Code())
	details := typed.Details().(map[string]any)
	assert.Equal(t, existing.ExpiresAt.UTC(), details["expires_at"])
}

func TestIssueSupersedesOtherPurposeExpiredOrVerified(t *testing.T) {
	e := newTestEngine()
	now := time.Now().UTC()

	cases := map[string]*types.OTPChallenge{
		"other purpose": {ID: uuid.New(), Purpose: enums.OTPPurposeCompletion, ExpiresAt: now.Add(time.Minute)},
		"expired":       {ID: uuid.New(), Purpose: enums.OTPPurposeArrival, ExpiresAt: now.Add(-time.Second)},
		"verified":      {ID: uuid.New(), Purpose: enums.OTPPurposeArrival, ExpiresAt: now.Add(time.Minute), Verified: true},
	}
	for name, existing := range cases {
		t.Run(name, func(t *testing.T) {
			issued, err := e.Issue(existing, enums.OTPPurposeArrival, 0, now)
			require.NoError(t, err)
			assert.NotEqual(t, existing.ID, issued.Challenge.ID)
		})
	}
}

func TestIssueRejectsBadPurposeAndHashFailure(t *testing.T) {
	e := newTestEngine()
	_, err := e.Issue(nil, enums.OTPPurpose("pickup"), 0, time.Now())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	e.hasher = plainHasher{hashErr: errors.New("boom")}
	_, err = e.Issue(nil, enums.OTPPurposeArrival, 0, time.Now())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestVerifyOrder(t *testing.T) {
	e := newTestEngine()
	now := time.Now().UTC()
	base := types.OTPChallenge{
		ID:        uuid.New(),
		CodeHash:  "h:123456",
		Purpose:   enums.OTPPurposeArrival,
		ExpiresAt: now.Add(time.Minute),
	}

	out, err := e.Verify(nil, enums.OTPPurposeArrival, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, ResultNoChallenge, out.Result)

	out, err = e.Verify(&base, enums.OTPPurposeCompletion, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, ResultPurposeMismatch, out.Result)

	expired := base
	expired.ExpiresAt = now.Add(-time.Millisecond)
	expired.Attempts = 9
	out, err = e.Verify(&expired, enums.OTPPurposeArrival, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, ResultExpired, out.Result, "expiry is checked before the attempt ceiling")

	exhausted := base
	exhausted.Attempts = 5
	out, err = e.Verify(&exhausted, enums.OTPPurposeArrival, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, ResultTooManyAttempts, out.Result)
	assert.False(t, out.Changed)

	out, err = e.Verify(&base, enums.OTPPurposeArrival, "000000", now)
	require.NoError(t, err)
	assert.Equal(t, ResultInvalid, out.Result)
	assert.True(t, out.Changed)
	assert.Equal(t, 1, out.Challenge.Attempts)
	assert.Zero(t, base.Attempts, "input challenge is not mutated")

	out, err = e.Verify(&base, enums.OTPPurposeArrival, " 123456 ", now)
	require.NoError(t, err)
	assert.Equal(t, ResultVerified, out.Result)
	assert.True(t, out.Challenge.Verified)

	out, err = e.Verify(&out.Challenge, enums.OTPPurposeArrival, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, ResultNoChallenge, out.Result, "a verified challenge cannot be reused")
}

func TestVerifyAttemptCeiling(t *testing.T) {
	e := newTestEngine()
	now := time.Now().UTC()
	challenge := types.OTPChallenge{ID: uuid.New(), CodeHash: "h:123456", Purpose: enums.OTPPurposeCompletion, ExpiresAt: now.Add(time.Minute)}

	for i := 0; i < 5; i++ {
		out, err := e.Verify(&challenge, enums.OTPPurposeCompletion, "999999", now)
		require.NoError(t, err)
		require.Equal(t, ResultInvalid, out.Result)
		challenge = out.Challenge
	}

	out, err := e.Verify(&challenge, enums.OTPPurposeCompletion, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, ResultTooManyAttempts, out.Result)
}

func TestOutcomeErrCodes(t *testing.T) {
	cases := map[Result]pkgerrors.Code{
		ResultNoChallenge:     pkgerrors.CodeValidation,
		ResultPurposeMismatch: pkgerrors.CodeValidation,
		ResultExpired:         pkgerrors.CodeGone,
		ResultTooManyAttempts: pkgerrors.CodeRateLimit,
		ResultInvalid:         pkgerrors.CodeUnauthorized,
	}
	for result, code := range cases {
		err := Outcome{Result: result}.Err(5)
		assert.True(t, pkgerrors.IsCode(err, code), "%s", result)
	}
	assert.NoError(t, Outcome{Result: ResultVerified}.Err(5))
}

func TestEngineWithArgonHasher(t *testing.T) {
	hasher := security.NewCodeHasher(config.HashingConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
	e := NewEngine(hasher, config.LifecycleConfig{})
	now := time.Now()

	issued, err := e.Issue(nil, enums.OTPPurposeArrival, 0, now)
	require.NoError(t, err)
	assert.Len(t, issued.Code, 6)
	assert.NotContains(t, issued.Challenge.CodeHash, issued.Code)

	out, err := e.Verify(&issued.Challenge, enums.OTPPurposeArrival, issued.Code, now)
	require.NoError(t, err)
	assert.Equal(t, ResultVerified, out.Result)
}
