package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/vendorops-backend/pkg/logger"
)

type PresenceSweepJobParams struct {
	Logger   *logger.Logger
	Presence presenceSweeper
}

type presenceSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// NewPresenceSweepJob drops vendors whose heartbeat expired from the geo set.
func NewPresenceSweepJob(params PresenceSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Presence == nil {
		return nil, fmt.Errorf("presence service required")
	}
	return &presenceSweepJob{logg: params.Logger, presence: params.Presence}, nil
}

type presenceSweepJob struct {
	logg     *logger.Logger
	presence presenceSweeper
}

func (j *presenceSweepJob) Name() string { return "presence-sweep" }

func (j *presenceSweepJob) Run(ctx context.Context) error {
	removed, err := j.presence.Sweep(ctx)
	if removed > 0 {
		j.logg.Info(j.logg.WithField(ctx, "members_removed", removed), "stale presence removed")
	}
	if err != nil {
		return fmt.Errorf("presence sweep: %w", err)
	}
	return nil
}
