package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/vendorops-backend/pkg/logger"
)

const (
	otpHygieneBatchSize = 100
	otpHygieneEvery     = 15 * time.Minute
)

type OTPHygieneJobParams struct {
	Logger    *logger.Logger
	Orders    challengeCleaner
	BatchSize int
}

type challengeCleaner interface {
	ClearStaleChallenges(ctx context.Context, batchSize int) (int, error)
}

// NewOTPHygieneJob clears expired or verified OTP challenges from orders.
func NewOTPHygieneJob(params OTPHygieneJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = otpHygieneBatchSize
	}
	return &otpHygieneJob{logg: params.Logger, orders: params.Orders, batch: batch}, nil
}

type otpHygieneJob struct {
	logg   *logger.Logger
	orders challengeCleaner
	batch  int
}

func (j *otpHygieneJob) Name() string         { return "otp-hygiene" }
func (j *otpHygieneJob) Every() time.Duration { return otpHygieneEvery }

func (j *otpHygieneJob) Run(ctx context.Context) error {
	cleared, err := j.orders.ClearStaleChallenges(ctx, j.batch)
	logCtx := j.logg.WithField(ctx, "challenges_cleared", cleared)
	if err != nil {
		return fmt.Errorf("otp hygiene: %w", err)
	}
	j.logg.Info(logCtx, "otp hygiene complete")
	return nil
}
