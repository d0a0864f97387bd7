package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/vendorops-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type runner interface {
	Run(ctx context.Context) error
}

// Dependency is a named backend checked before the consumers start.
type Dependency struct {
	Name   string
	Pinger pinger
}

// Consumer is a named subscription loop.
type Consumer struct {
	Name   string
	Runner runner
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies []Dependency
	Consumers    []Consumer
}

type Service struct {
	logg         *logger.Logger
	dependencies []Dependency
	consumers    []Consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	for _, c := range params.Consumers {
		if c.Runner == nil {
			return nil, fmt.Errorf("consumer %q has no runner", c.Name)
		}
	}
	return &Service{
		logg:         params.Logger,
		dependencies: params.Dependencies,
		consumers:    params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.dependencies {
		if dep.Pinger == nil {
			continue
		}
		if err := dep.Pinger.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.Name), err)
			return fmt.Errorf("%s ping failed: %w", dep.Name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run starts every consumer and returns when the first one fails or ctx is
// cancelled. A failing consumer cancels the others.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.consumers {
		g.Go(func() error {
			cctx := s.logg.WithField(gctx, "consumer", c.Name)
			s.logg.Info(cctx, "consumer started")
			if err := c.Runner.Run(cctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(cctx, "consumer stopped unexpectedly", err)
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	s.logg.Info(ctx, "worker context canceled")
	return ctx.Err()
}
