// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package ranking

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/civitas/internal/cache"
	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/embedding"
	"github.com/tomtom215/civitas/internal/metrics"
	"github.com/tomtom215/civitas/internal/models"
	"github.com/tomtom215/civitas/internal/store"
)

// Store is the read access the engine needs from the content store and the
// social graph.
type Store interface {
	Candidates(ctx context.Context, since time.Time, limit int) ([]*models.ContentItem, error)
	InterestVectors(ctx context.Context, userID string, limit int) ([][]float32, error)
	Follows(ctx context.Context, userID string) (out, in store.Set, err error)
	Blocked(ctx context.Context, userID string) (store.Set, error)
}

// Request is one DEFAULT-mode ranking request.
type Request struct {
	UserID string

	// Weights overrides the configured default weights when set.
	Weights *models.ScoreWeights

	PageSize int

	// Seen holds IDs already served this session. They are not drawn again.
	Seen map[string]struct{}

	// Seed makes the draw reproducible when non-zero.
	Seed int64
}

// ScoredItem is a drawn item with the signals behind its probability.
type ScoredItem struct {
	Item    *models.ContentItem `json:"item"`
	Score   float64             `json:"score"`
	Factors Factors             `json:"factors"`
}

// Result is the outcome of Rank. Items are in draw order.
type Result struct {
	Items     []ScoredItem
	PoolSize  int
	Truncated bool
	// Degraded is set when the social graph could not be read and the
	// social factor fell back to zero.
	Degraded bool
}

// Engine scores the candidate pool and samples a page from it. It is safe
// for concurrent use.
type Engine struct {
	cfg    config.RankingConfig
	store  Store
	logger zerolog.Logger
	now    func() time.Time

	rng   *rand.Rand
	rngMu sync.Mutex

	interest *cache.Cache[[]float32]
	refresh  singleflight.Group
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine validates cfg and builds an engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg config.RankingConfig, st Store, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("default ranking weights: %w", err)
	}
	if cfg.Window <= 0 || cfg.MaxCandidates <= 0 {
		return nil, fmt.Errorf("%w: ranking window and max_candidates must be positive", models.ErrConfiguration)
	}
	if cfg.MinProbabilityMass <= 0 {
		return nil, fmt.Errorf("%w: ranking min_probability_mass must be positive", models.ErrConfiguration)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &Engine{
		cfg:    cfg,
		store:  st,
		logger: logger.With().Str("component", "ranking").Logger(),
		now:    time.Now,
		rng:    rand.New(rand.NewSource(seed)), //nolint:gosec // feed sampling does not need crypto randomness
	}
	for _, opt := range opts {
		opt(e)
	}
	e.interest = cache.New[[]float32](cache.Options{
		TTL:        cfg.InterestTTL,
		StaleFor:   24 * time.Hour,
		MaxEntries: 100000,
		Now:        e.now,
	})
	return e, nil
}

// Close stops the interest cache janitor.
func (e *Engine) Close() { e.interest.Close() }

// DefaultWeights returns the configured weights.
func (e *Engine) DefaultWeights() models.ScoreWeights { return e.cfg.Weights }

// Rank draws a page for req.UserID. Weights are validated before the store
// is touched; malformed weights return an error wrapping
// models.ErrConfiguration.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Rank(ctx context.Context, req Request) (*Result, error) {
	weights := e.cfg.Weights
	if req.Weights != nil {
		weights = *req.Weights
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if req.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", req.PageSize)
	}

	now := e.now()
	logger := e.logger.With().Str("user_id", req.UserID).Logger()

	pool, truncated, err := e.pool(ctx, req, now)
	if err != nil {
		return nil, err
	}
	result := &Result{PoolSize: len(pool), Truncated: truncated}
	metrics.RankingPoolSize.Observe(float64(len(pool)))
	if len(pool) == 0 {
		return result, nil
	}

	following, followers, err := e.store.Follows(ctx, req.UserID)
	if err != nil {
		logger.Warn().Err(err).Msg("social graph unavailable, social factor set to zero")
		following, followers = nil, nil
		result.Degraded = true
	}
	interest := e.interestVector(ctx, req.UserID)

	velocities := make([]float64, len(pool))
	for i, it := range pool {
		velocities[i] = Velocity(it.Engagement, it.CreatedAt, now)
	}
	trending := TrendingPercentiles(velocities)

	scored := make([]ScoredItem, len(pool))
	probs := make([]float64, len(pool))
	for i, it := range pool {
		f := Factors{
			Recency:    Recency(it.CreatedAt, now, e.cfg.RecencyHalfLife),
			Similarity: Similarity(it.ModelVector(), interest),
			Social:     Social(req.UserID, it.AuthorID, following, followers),
			Trending:   trending[i],
		}
		score := f.Score(weights)
		if score < e.cfg.MinProbabilityMass {
			score = e.cfg.MinProbabilityMass
		}
		scored[i] = ScoredItem{Item: it, Score: score, Factors: f}
		probs[i] = score
	}

	for _, idx := range Sample(probs, req.PageSize, e.rngFor(req.Seed)) {
		result.Items = append(result.Items, scored[idx])
	}

	logger.Debug().
		Int("pool", len(pool)).
		Int("drawn", len(result.Items)).
		Bool("interest", interest != nil).
		Msg("feed ranked")
	return result, nil
}

// pool loads, truncates and filters the candidate pool.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) pool(ctx context.Context, req Request, now time.Time) ([]*models.ContentItem, bool, error) {
	items, err := e.store.Candidates(ctx, now.Add(-e.cfg.Window), e.cfg.MaxCandidates+1)
	if err != nil {
		return nil, false, fmt.Errorf("load candidates: %w", err)
	}
	truncated := false
	if len(items) > e.cfg.MaxCandidates {
		items = items[:e.cfg.MaxCandidates]
		truncated = true
		metrics.RecordResourceExhausted("candidate_pool")
		e.logger.Warn().Err(models.ErrResourceExhausted).Int("max_candidates", e.cfg.MaxCandidates).Msg("candidate pool truncated to newest items")
	}

	blocked, err := e.store.Blocked(ctx, req.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("load block list: %w", err)
	}

	out := items[:0:0]
	for _, it := range items {
		if it.Tombstoned() || blocked.Has(it.AuthorID) {
			continue
		}
		if _, seen := req.Seen[it.ID]; seen {
			continue
		}
		out = append(out, it)
	}
	return out, truncated, nil
}

// rngFor returns a private generator: seeded from req when given, otherwise
// seeded from the shared engine generator.
func (e *Engine) rngFor(seed int64) *rand.Rand {
	if seed == 0 {
		e.rngMu.Lock()
		seed = e.rng.Int63()
		e.rngMu.Unlock()
	}
	return rand.New(rand.NewSource(seed)) //nolint:gosec // feed sampling does not need crypto randomness
}

// interestVector returns the user's cached interest vector. A stale or
// missing entry is refreshed, waiting at most interest_refresh_timeout; a
// slower refresh finishes in the background and fills the cache, and this
// call falls back to the stale vector or none.
func (e *Engine) interestVector(ctx context.Context, userID string) []float32 {
	stale, fresh, ok := e.interest.GetStale(userID)
	if ok && fresh {
		return stale
	}

	detached := context.WithoutCancel(ctx)
	ch := e.refresh.DoChan(userID, func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(detached, e.backgroundRefreshTimeout())
		defer cancel()
		vectors, err := e.store.InterestVectors(refreshCtx, userID, e.cfg.InterestSampleSize)
		if err != nil {
			return nil, err
		}
		vec := embedding.Mean(vectors)
		e.interest.Set(userID, vec)
		return vec, nil
	})

	timer := time.NewTimer(e.cfg.InterestRefreshTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if res.Err != nil {
			e.logger.Debug().Err(res.Err).Str("user_id", userID).Msg("interest refresh failed")
			return stale
		}
		vec, _ := res.Val.([]float32)
		return vec
	case <-timer.C:
		e.logger.Debug().Str("user_id", userID).Msg("interest refresh still running, using previous vector")
		return stale
	case <-ctx.Done():
		return stale
	}
}

func (e *Engine) backgroundRefreshTimeout() time.Duration {
	d := 20 * e.cfg.InterestRefreshTimeout
	if d < 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
