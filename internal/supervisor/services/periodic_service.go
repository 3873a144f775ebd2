// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// PeriodicConfig controls a PeriodicService.
type PeriodicConfig struct {
	// Interval between runs. Required.
	Interval time.Duration

	// RunOnStartup runs the job once before the first tick.
	RunOnStartup bool

	// Timeout bounds one run. Zero means the run is bounded only by
	// shutdown.
	Timeout time.Duration
}

// PeriodicService runs a job on a ticker. Job errors are logged and the
// schedule continues; only shutdown ends Serve.
type PeriodicService struct {
	name   string
	job    Job
	config PeriodicConfig
	logger zerolog.Logger
}

// NewPeriodicService wraps job. A non-positive interval falls back to one
// minute.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPeriodicService(name string, job Job, cfg PeriodicConfig, logger zerolog.Logger) *PeriodicService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &PeriodicService{
		name:   name,
		job:    job,
		config: cfg,
		logger: logger.With().Str("service", name).Logger(),
	}
}

// Serve implements suture.Service.
func (s *PeriodicService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Bool("run_on_startup", s.config.RunOnStartup).
		Msg("periodic service starting")

	if s.config.RunOnStartup {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("periodic service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *PeriodicService) run(ctx context.Context) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}
	start := time.Now()
	if err := s.job(ctx); err != nil {
		if ctx.Err() != nil && errorsIsContext(err) {
			s.logger.Debug().Err(err).Msg("run interrupted")
			return
		}
		s.logger.Warn().Err(err).Dur("duration", time.Since(start)).Msg("run failed, retrying on schedule")
		return
	}
	s.logger.Debug().Dur("duration", time.Since(start)).Msg("run complete")
}

func (s *PeriodicService) String() string {
	return s.name
}
