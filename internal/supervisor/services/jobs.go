// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/civitas/internal/discovery"
	"github.com/tomtom215/civitas/internal/models"
)

// Service names as they appear in supervisor events.
const (
	DiscoveryServiceName = "discovery-service"
	BackfillServiceName  = "embed-backfill"
	PurgeServiceName     = "tombstone-purge"
)

// DiscoveryRunner runs one clustering pass.
type DiscoveryRunner interface {
	Run(ctx context.Context, trigger string) (*discovery.RunReport, error)
}

// Backfiller re-queues items missing a vector.
type Backfiller interface {
	Backfill(ctx context.Context, limit int) (int, error)
}

// Purger hard-deletes tombstoned items for which referenced returns false.
type Purger interface {
	Purge(ctx context.Context, limit int, referenced func(contentID string) bool) (int, error)
}

// NewDiscoveryService runs the clustering engine on its cadence. A tick
// that finds a run already in progress (an on-demand trigger) is skipped.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewDiscoveryService(engine DiscoveryRunner, cadence time.Duration, runOnStartup bool, logger zerolog.Logger) *PeriodicService {
	log := logger.With().Str("service", DiscoveryServiceName).Logger()
	startup := runOnStartup
	job := func(ctx context.Context) error {
		trigger := discovery.TriggerCadence
		if startup {
			trigger, startup = discovery.TriggerStartup, false
		}
		report, err := engine.Run(ctx, trigger)
		if errors.Is(err, models.ErrRunInProgress) {
			log.Debug().Msg("run in progress, skipping tick")
			return nil
		}
		if err != nil {
			return err
		}
		log.Info().
			Str("trigger", report.Trigger).
			Int("window", report.Window).
			Int("published", report.Published).
			Int("deferred", report.Deferred).
			Dur("duration", report.Duration).
			Msg("discovery run complete")
		return nil
	}
	return NewPeriodicService(DiscoveryServiceName, job, PeriodicConfig{Interval: cadence, RunOnStartup: runOnStartup}, logger)
}

// NewBackfillService re-queues up to batch unembedded items every interval.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBackfillService(b Backfiller, interval time.Duration, batch int, logger zerolog.Logger) *PeriodicService {
	log := logger.With().Str("service", BackfillServiceName).Logger()
	job := func(ctx context.Context) error {
		n, err := b.Backfill(ctx, batch)
		if n > 0 {
			log.Info().Int("queued", n).Msg("re-queued content for embedding")
		}
		return err
	}
	return NewPeriodicService(BackfillServiceName, job, PeriodicConfig{Interval: interval, Timeout: interval}, logger)
}

// NewPurgeService hard-deletes up to batch tombstoned items every interval,
// sparing items a live topic still lists.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPurgeService(p Purger, referenced func(contentID string) bool, interval time.Duration, batch int, logger zerolog.Logger) *PeriodicService {
	log := logger.With().Str("service", PurgeServiceName).Logger()
	job := func(ctx context.Context) error {
		n, err := p.Purge(ctx, batch, referenced)
		if n > 0 {
			log.Info().Int("purged", n).Msg("purged tombstoned content")
		}
		return err
	}
	return NewPeriodicService(PurgeServiceName, job, PeriodicConfig{Interval: interval, Timeout: interval}, logger)
}

func errorsIsContext(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
