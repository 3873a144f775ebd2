// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/civitas/internal/cache"
	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/logging"
	"github.com/tomtom215/civitas/internal/metrics"
	"github.com/tomtom215/civitas/internal/models"
	"github.com/tomtom215/civitas/internal/resilience"
)

const defaultCacheEntries = 50000

// Result is a resolved embedding.
type Result struct {
	Vector   []float32
	Tier     models.EmbeddingTier
	Degraded bool
}

// Tier binds a provider to its timeout. Network tiers get a circuit breaker.
type Tier struct {
	Provider Provider
	Timeout  time.Duration
}

type tier struct {
	Tier
	breaker *resilience.Breaker
}

// Resolver tries each tier in order and returns the first success.
type Resolver struct {
	tiers    []tier
	dims     int
	maxRunes int
	chain    string

	cache *cache.Cache[Result]
	group singleflight.Group
}

// NewResolver builds a resolver over explicit tiers.
func NewResolver(cfg config.EmbeddingConfig, tiers ...Tier) (*Resolver, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: no embedding tiers enabled", models.ErrConfiguration)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be positive", models.ErrConfiguration)
	}

	r := &Resolver{
		dims:     cfg.Dimensions,
		maxRunes: cfg.MaxTextRunes,
		cache:    cache.New[Result](cache.Options{TTL: cfg.CacheTTL, MaxEntries: defaultCacheEntries}),
	}
	names := make([]string, 0, len(tiers))
	for _, t := range tiers {
		rt := tier{Tier: t}
		if t.Provider.Tier() != models.TierKeyword {
			rt.breaker = resilience.NewBreaker("embedding-" + string(t.Provider.Tier()))
		}
		r.tiers = append(r.tiers, rt)
		names = append(names, t.Provider.Name())
	}
	r.chain = strings.Join(names, ">")
	return r, nil
}

// NewResolverFromConfig wires the enabled remote, local and keyword tiers.
func NewResolverFromConfig(cfg config.EmbeddingConfig) (*Resolver, error) {
	client := &http.Client{}
	var tiers []Tier
	if cfg.Remote.Enabled {
		tiers = append(tiers, Tier{Provider: NewRemote(cfg.Remote, cfg.Dimensions, client), Timeout: cfg.Remote.Timeout})
	}
	if cfg.Local.Enabled {
		tiers = append(tiers, Tier{Provider: NewLocal(cfg.Local, cfg.Dimensions, client), Timeout: cfg.Local.Timeout})
	}
	if cfg.Keyword.Enabled {
		tiers = append(tiers, Tier{Provider: NewKeyword(cfg.Dimensions)})
	}
	return NewResolver(cfg, tiers...)
}

// Dimensions is the length of every vector the resolver returns.
func (r *Resolver) Dimensions() int { return r.dims }

// Chain names the tiers in fallback order.
func (r *Resolver) Chain() string { return r.chain }

// Close stops the cache janitor.
func (r *Resolver) Close() { r.cache.Close() }

// Embed resolves text to a vector. The upstream call is detached from ctx:
// if ctx ends first Embed returns ctx.Err() and the result still lands in the
// cache once the tiers finish.
func (r *Resolver) Embed(ctx context.Context, text string) (Result, error) {
	text = Truncate(text, r.maxRunes)
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: %w", models.ErrEmbeddingUnavailable, errEmptyText)
	}

	key := cache.HashKey("embed", r.chain, text)
	if res, ok := r.cache.Get(key); ok {
		metrics.RecordEmbedding("cache", "cache_hit", 0)
		return res, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		res, err := r.resolve(detached, text)
		if err != nil {
			return Result{}, err
		}
		r.cache.Set(key, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case out := <-ch:
		if out.Err != nil {
			return Result{}, out.Err
		}
		return out.Val.(Result), nil
	}
}

func (r *Resolver) resolve(ctx context.Context, text string) (Result, error) {
	var errs []error
	for i, t := range r.tiers {
		name := t.Provider.Name()
		tierLabel := string(t.Provider.Tier())

		if t.breaker != nil && t.breaker.Open() {
			metrics.RecordEmbedding(tierLabel, "skipped", 0)
			errs = append(errs, fmt.Errorf("%s: circuit open", name))
			continue
		}

		start := time.Now()
		vec, err := r.call(ctx, t, text)
		elapsed := time.Since(start)
		if err == nil && len(vec) != r.dims {
			err = fmt.Errorf("got %d dimensions, want %d", len(vec), r.dims)
		}
		if err != nil {
			metrics.RecordEmbedding(tierLabel, "failure", elapsed)
			errs = append(errs, fmt.Errorf("%s: %w: %w", name, models.ErrTransientUpstream, err))
			logging.Ctx(ctx).Debug().Err(err).Str("provider", name).Msg("Embedding tier failed, falling back")
			continue
		}

		metrics.RecordEmbedding(tierLabel, "success", elapsed)
		if i > 0 {
			logging.Ctx(ctx).Debug().Str("provider", name).Int("tier_index", i).Msg("Embedding resolved by fallback tier")
		}
		return Result{
			Vector:   vec,
			Tier:     t.Provider.Tier(),
			Degraded: t.Provider.Tier() == models.TierKeyword,
		}, nil
	}

	metrics.EmbeddingUnavailable.Inc()
	err := errors.Join(errs...)
	logging.Ctx(ctx).Warn().Err(err).Str("chain", r.chain).Msg("All embedding tiers failed")
	return Result{}, fmt.Errorf("%w: %w", models.ErrEmbeddingUnavailable, err)
}

func (r *Resolver) call(ctx context.Context, t tier, text string) ([]float32, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	if t.breaker == nil {
		return t.Provider.Embed(ctx, text)
	}
	return resilience.Execute(t.breaker, func() ([]float32, error) {
		return t.Provider.Embed(ctx, text)
	})
}
