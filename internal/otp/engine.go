// Package otp issues and verifies the one-time codes that gate arrival and
// completion checkpoints. It is pure: callers load the embedded challenge,
// hand it in with the current time and persist whatever comes back.
package otp

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/pkg/config"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/security"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

const (
	MinTTL = 30 * time.Second
	MaxTTL = time.Hour

	defaultMaxAttempts = 5
	defaultCodeLength  = 6
	defaultTTL         = 5 * time.Minute
)

// Hasher stores codes one-way.
type Hasher interface {
	Hash(code string) (string, error)
	Verify(code, encoded string) (bool, error)
}

// Engine issues and verifies order challenges.
type Engine struct {
	hasher      Hasher
	maxAttempts int
	codeLength  int
	defaultTTL  time.Duration
	generate    func(length int) (string, error)
}

// NewEngine builds an engine from the lifecycle settings.
func NewEngine(hasher Hasher, cfg config.LifecycleConfig) *Engine {
	e := &Engine{
		hasher:      hasher,
		maxAttempts: cfg.OTPMaxAttempts,
		codeLength:  cfg.OTPCodeLength,
		defaultTTL:  cfg.OTPDefaultTTL,
		generate:    security.GenerateNumericCode,
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = defaultMaxAttempts
	}
	if e.codeLength <= 0 {
		e.codeLength = defaultCodeLength
	}
	if e.defaultTTL <= 0 {
		e.defaultTTL = defaultTTL
	}
	return e
}

// MaxAttempts is the number of wrong codes tolerated per challenge.
func (e *Engine) MaxAttempts() int {
	return e.maxAttempts
}

// TTL resolves a requested lifetime; zero means the default.
func (e *Engine) TTL(requested time.Duration) time.Duration {
	if requested <= 0 {
		requested = e.defaultTTL
	}
	if requested < MinTTL {
		return MinTTL
	}
	if requested > MaxTTL {
		return MaxTTL
	}
	return requested
}

// Issued is a freshly created challenge plus its plaintext code. The code
// must only leave the process in non-production echoes.
type Issued struct {
	Challenge types.OTPChallenge
	Code      string
}

// Issue replaces the existing challenge with a new one. An unexpired,
// unverified challenge for the same purpose blocks the request.
func (e *Engine) Issue(existing *types.OTPChallenge, purpose enums.OTPPurpose, ttl time.Duration, now time.Time) (*Issued, error) {
	if !purpose.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid otp purpose").
			WithDetails(map[string]any{"purpose": purpose})
	}
	if present(existing) && existing.Purpose == purpose && existing.Active(now) {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "otp already active").
			WithDetails(map[string]any{
				"reason":     "otp_already_active",
				"expires_at": existing.ExpiresAt.UTC(),
			})
	}

	code, err := e.generate(e.codeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	hash, err := e.hasher.Hash(code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash otp")
	}

	now = now.UTC()
	return &Issued{
		Challenge: types.OTPChallenge{
			ID:        uuid.New(),
			CodeHash:  hash,
			Purpose:   purpose,
			CreatedAt: now,
			ExpiresAt: now.Add(e.TTL(ttl)),
			Attempts:  0,
			Verified:  false,
		},
		Code: code,
	}, nil
}

// Result classifies a verification attempt.
type Result string

const (
	ResultVerified        Result = "verified"
	ResultNoChallenge     Result = "no_challenge"
	ResultPurposeMismatch Result = "purpose_mismatch"
	ResultExpired         Result = "expired"
	ResultTooManyAttempts Result = "too_many_attempts"
	ResultInvalid         Result = "invalid"
)

// Outcome is the result of Verify. When Changed is set Challenge holds the
// state to persist (attempts incremented or verified flipped).
type Outcome struct {
	Result    Result
	Challenge types.OTPChallenge
	Changed   bool
}

// Verify checks code against the challenge in a fixed order: presence,
// purpose, expiry, attempt ceiling, then the hash.
func (e *Engine) Verify(existing *types.OTPChallenge, purpose enums.OTPPurpose, code string, now time.Time) (Outcome, error) {
	if !present(existing) || existing.Verified {
		return Outcome{Result: ResultNoChallenge}, nil
	}
	challenge := *existing
	if challenge.Purpose != purpose {
		return Outcome{Result: ResultPurposeMismatch, Challenge: challenge}, nil
	}
	if challenge.Expired(now) {
		return Outcome{Result: ResultExpired, Challenge: challenge}, nil
	}
	if challenge.Attempts >= e.maxAttempts {
		return Outcome{Result: ResultTooManyAttempts, Challenge: challenge}, nil
	}

	ok, err := e.hasher.Verify(strings.TrimSpace(code), challenge.CodeHash)
	if err != nil {
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify otp hash")
	}
	if !ok {
		challenge.Attempts++
		return Outcome{Result: ResultInvalid, Challenge: challenge, Changed: true}, nil
	}

	challenge.Verified = true
	return Outcome{Result: ResultVerified, Challenge: challenge, Changed: true}, nil
}

// Err maps a failed outcome onto the typed error surfaced to callers.
func (o Outcome) Err(maxAttempts int) error {
	switch o.Result {
	case ResultVerified:
		return nil
	case ResultNoChallenge:
		return failure(pkgerrors.CodeValidation, "no active otp challenge", o.Result, nil)
	case ResultPurposeMismatch:
		return failure(pkgerrors.CodeValidation, "otp purpose mismatch", o.Result, map[string]any{
			"expected": o.Challenge.Purpose,
		})
	case ResultExpired:
		return failure(pkgerrors.CodeGone, "otp expired", o.Result, map[string]any{
			"expires_at": o.Challenge.ExpiresAt.UTC(),
		})
	case ResultTooManyAttempts:
		return failure(pkgerrors.CodeRateLimit, "too many otp attempts", o.Result, map[string]any{
			"attempts": o.Challenge.Attempts,
		})
	case ResultInvalid:
		remaining := maxAttempts - o.Challenge.Attempts
		if remaining < 0 {
			remaining = 0
		}
		return failure(pkgerrors.CodeUnauthorized, "invalid otp", o.Result, map[string]any{
			"attempts_remaining": remaining,
		})
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown otp result %q", o.Result))
	}
}

func failure(code pkgerrors.Code, message string, result Result, extra map[string]any) error {
	details := map[string]any{"reason": string(result)}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(code, message).WithDetails(details)
}

func present(c *types.OTPChallenge) bool {
	return c != nil && c.ID != uuid.Nil
}
