package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/internal/otp"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/pagination"
)

const labelRequestOTP Event = "request_otp"

// RequestOTP issues a challenge for purpose on a live order owned by the
// caller. An unexpired challenge for the same purpose blocks the request.
func (s *service) RequestOTP(ctx context.Context, actor Actor, orderID uuid.UUID, input OTPRequestInput) (*OTPRequestResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	purpose, err := enums.ParseOTPPurpose(strings.TrimSpace(input.Purpose))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid otp purpose")
	}
	if input.TTLSeconds < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ttlSeconds must not be negative")
	}
	ttl := s.otp.TTL(time.Duration(input.TTLSeconds) * time.Second)

	var issued *otp.Issued
	m, err := s.apply(ctx, actor, orderID, labelRequestOTP, func(current *models.Order, now time.Time) (Expect, Change, error) {
		if current.Status.IsTerminal() {
			return Expect{}, Change{}, invalidTransition(current.Status, labelRequestOTP)
		}
		// an unassigned order has no checkpoint to gate yet
		if current.VendorID == nil && !Allowed(current.Status, verifyEvent(purpose)) {
			return Expect{}, Change{}, invalidTransition(current.Status, labelRequestOTP)
		}
		if err := owned(current, actor); err != nil {
			return Expect{}, Change{}, err
		}
		next, err := s.otp.Issue(current.OTP, purpose, ttl, now)
		if err != nil {
			return Expect{}, Change{}, err
		}
		issued = next

		version := current.Version
		return Expect{Version: &version}, Change{Fields: map[string]any{"otp": next.Challenge}}, nil
	})
	if err != nil {
		s.metrics.OTP(string(purpose), otpRequestOutcome(err))
		return nil, err
	}
	s.metrics.OTP(string(purpose), "issued")

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     orderID.String(),
		"challenge_id": issued.Challenge.ID.String(),
		"purpose":      purpose,
	})
	s.logg.Info(logCtx, "otp challenge issued")
	s.notifyOTPIssued(ctx, m.after, issued.Challenge)

	result := &OTPRequestResult{
		ChallengeID: issued.Challenge.ID,
		Purpose:     purpose,
		ExpiresAt:   issued.Challenge.ExpiresAt,
	}
	if s.exposeOTP {
		result.Code = issued.Code
	}
	return result, nil
}

// VerifyOTP checks a code against the order's challenge. A wrong code still
// persists the incremented attempt counter. Success consumes the challenge
// and applies the purpose's transition in the same write.
func (s *service) VerifyOTP(ctx context.Context, actor Actor, orderID uuid.UUID, input OTPVerifyInput) (*models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	purpose, err := enums.ParseOTPPurpose(strings.TrimSpace(input.Purpose))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid otp purpose")
	}
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "otp code required").
			WithDetails([]FieldError{{Field: "otp", Message: "required"}})
	}
	event := verifyEvent(purpose)

	var (
		outcome otp.Outcome
		updated *models.Order
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for attempt := 0; attempt < maxWriteAttempts; attempt++ {
			current, err := s.load(ctx, repo, orderID)
			if err != nil {
				return err
			}
			if err := owned(current, actor); err != nil {
				return err
			}
			now := s.now()
			outcome, err = s.otp.Verify(current.OTP, purpose, code, now)
			if err != nil {
				return err
			}

			version := current.Version
			expect := Expect{Version: &version}
			var change Change
			switch outcome.Result {
			case otp.ResultVerified:
				to, ok := Next(current.Status, event)
				if !ok {
					return invalidTransition(current.Status, event)
				}
				expect.Statuses = []enums.OrderStatus{current.Status}
				fields := map[string]any{"otp": outcome.Challenge}
				if to == enums.OrderStatusCompleted {
					fields["completed_at"] = now
				}
				change = Change{Status: to, Fields: fields}
			case otp.ResultInvalid:
				change = Change{Fields: map[string]any{"otp": outcome.Challenge}}
			default:
				return nil
			}

			order, applied, err := repo.TryTransition(ctx, orderID, expect, change)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order otp")
			}
			if !applied {
				continue
			}
			updated = order
			if change.Status == "" {
				return nil
			}
			return s.emitStateChanged(ctx, tx, actor, event, current.Status, order)
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently, retry")
	})
	if err != nil {
		s.metrics.OTP(string(purpose), "error")
		if outcome.Result == otp.ResultVerified {
			s.recordTransition(event, err)
		}
		return nil, err
	}

	s.metrics.OTP(string(purpose), string(outcome.Result))
	if outcome.Result != otp.ResultVerified {
		return nil, outcome.Err(s.otp.MaxAttempts())
	}
	s.recordTransition(event, nil)
	s.notifyStatusChange(ctx, updated)
	return updated, nil
}

// ClearStaleChallenges drops expired or already verified challenges. Expiry
// is enforced on read, so this only keeps rows tidy.
func (s *service) ClearStaleChallenges(ctx context.Context, batchSize int) (int, error) {
	limit := pagination.NormalizeLimit(batchSize)
	now := s.now()
	cleared := 0
	var errs error

	after := uuid.Nil
	for {
		rows, err := s.repo.ListWithChallenges(ctx, after, limit)
		if err != nil {
			return cleared, multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list otp challenges"))
		}
		for i := range rows {
			order := &rows[i]
			after = order.ID
			if hasChallenge(order) && order.OTP.Active(now) {
				continue
			}
			version := order.Version
			_, applied, err := s.repo.TryTransition(ctx, order.ID,
				Expect{Version: &version},
				Change{Fields: map[string]any{"otp": gorm.Expr("NULL")}},
			)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if applied {
				cleared++
			}
		}
		if len(rows) < limit {
			break
		}
	}
	return cleared, errs
}

func otpRequestOutcome(err error) string {
	if pkgerrors.IsCode(err, pkgerrors.CodeRateLimit) {
		return "rate_limited"
	}
	return "rejected"
}
