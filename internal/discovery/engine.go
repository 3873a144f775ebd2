// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package discovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/tomtom215/civitas/internal/cache"
	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/embedding"
	"github.com/tomtom215/civitas/internal/metrics"
	"github.com/tomtom215/civitas/internal/models"
)

// Trigger labels used in metrics and logs.
const (
	TriggerCadence  = "cadence"
	TriggerOnDemand = "on_demand"
	TriggerStartup  = "startup"
)

// Source supplies the recent-content window.
type Source interface {
	RecentEmbedded(ctx context.Context, since time.Time, limit int) ([]*models.ContentItem, error)
}

// Summarizer synthesizes a title and both sides of a discussion.
type Summarizer interface {
	Synthesize(ctx context.Context, texts []string) (models.Synthesis, error)
}

// Observer is told about every publish. Implementations must not block.
type Observer interface {
	TopicsPublished(trending []*models.Topic)
}

// Options are the engine's tunables, taken from configuration.
type Options struct {
	Discovery config.DiscoveryConfig

	// Dimensions filters out vectors from a different embedding model.
	Dimensions int

	// SummarizerTimeout bounds a detached summarization call that outlives
	// the tick that started it.
	SummarizerTimeout time.Duration

	// MaxPayloadRunes caps the representative text per cluster.
	MaxPayloadRunes int

	// Gate, when set, enforces the on-demand cooldown across instances.
	// The local per-caller limiter still applies if the gate fails.
	Gate CooldownGate

	// Now overrides the clock for tests.
	Now func() time.Time
}

// RunReport describes one clustering run.
type RunReport struct {
	Trigger   string
	Window    int
	Truncated bool
	Formed    int
	Qualified int
	Published int
	Deferred  int
	Duration  time.Duration
}

// Engine discovers topics. Runs never overlap and only the engine writes to
// its TopicCache.
type Engine struct {
	opts       Options
	source     Source
	summarizer Summarizer
	topics     *TopicCache
	logger     zerolog.Logger
	now        func() time.Time

	runMu sync.Mutex

	summaries *cache.Cache[models.Synthesis]
	inflight  singleflight.Group
	limiters  *cache.Cache[*rate.Limiter]
	limiterMu sync.Mutex

	obsMu     sync.RWMutex
	observers []Observer
}

// NewEngine validates opts and creates an engine with an empty topic cache.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(opts Options, source Source, summarizer Summarizer, logger zerolog.Logger) (*Engine, error) {
	d := opts.Discovery
	switch {
	case d.Threshold < -1 || d.Threshold > 1:
		return nil, fmt.Errorf("%w: discovery threshold %g outside [-1, 1]", models.ErrConfiguration, d.Threshold)
	case d.MinClusterSize < 1:
		return nil, fmt.Errorf("%w: discovery min_cluster_size must be at least 1", models.ErrConfiguration)
	case d.Window <= 0 || d.MaxItems <= 0:
		return nil, fmt.Errorf("%w: discovery window and max_items must be positive", models.ErrConfiguration)
	case d.TopicTTL <= 0:
		return nil, fmt.Errorf("%w: discovery topic_ttl must be positive", models.ErrConfiguration)
	case d.SummarizeTimeout <= 0:
		return nil, fmt.Errorf("%w: discovery summarize_timeout must be positive", models.ErrConfiguration)
	}
	if d.SummarizeConcurrency <= 0 {
		opts.Discovery.SummarizeConcurrency = 1
	}
	if opts.SummarizerTimeout < d.SummarizeTimeout {
		opts.SummarizerTimeout = d.SummarizeTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cooldown := d.OnDemandCooldown
	if cooldown <= 0 {
		cooldown = time.Second
	}
	return &Engine{
		opts:       opts,
		source:     source,
		summarizer: summarizer,
		topics:     NewTopicCache(d.Regional.InterleaveWindow, d.Regional.Slot),
		logger:     logger.With().Str("component", "discovery").Logger(),
		now:        opts.Now,
		summaries: cache.New[models.Synthesis](cache.Options{
			TTL:        d.Window,
			MaxEntries: 4096,
			Now:        opts.Now,
		}),
		limiters: cache.New[*rate.Limiter](cache.Options{
			TTL:        4 * cooldown,
			MaxEntries: 10000,
			Now:        opts.Now,
		}),
	}, nil
}

// Topics returns the cache readers use.
func (e *Engine) Topics() *TopicCache { return e.topics }

// Subscribe registers an observer for future publishes.
func (e *Engine) Subscribe(o Observer) {
	e.obsMu.Lock()
	e.observers = append(e.observers, o)
	e.obsMu.Unlock()
}

// Close releases background cache janitors.
func (e *Engine) Close() {
	e.summaries.Close()
	e.limiters.Close()
}

// Trigger runs discovery on behalf of callerID, at most once per
// on_demand_cooldown per caller.
func (e *Engine) Trigger(ctx context.Context, callerID string) (*RunReport, error) {
	if !e.allow(ctx, callerID) {
		metrics.RecordDiscoveryRun(TriggerOnDemand, "rate_limited", 0)
		return nil, fmt.Errorf("discovery run for %s: %w", callerID, models.ErrRateLimited)
	}
	return e.Run(ctx, TriggerOnDemand)
}

func (e *Engine) allow(ctx context.Context, callerID string) bool {
	if gate := e.opts.Gate; gate != nil && e.opts.Discovery.OnDemandCooldown > 0 {
		ok, err := gate.Acquire(ctx, callerID, e.opts.Discovery.OnDemandCooldown)
		if err == nil {
			return ok
		}
		e.logger.Warn().Err(err).Msg("shared cooldown unavailable, using local limiter")
	}
	return e.allowLocal(callerID)
}

// allowLocal consults the caller's limiter and keeps it cached for at least
// one cooldown past this call, so an expired entry can never hand out a
// fresh burst inside the window.
func (e *Engine) allowLocal(callerID string) bool {
	e.limiterMu.Lock()
	defer e.limiterMu.Unlock()

	cooldown := e.opts.Discovery.OnDemandCooldown
	l, ok := e.limiters.Get(callerID)
	if !ok {
		limit := rate.Inf
		if cooldown > 0 {
			limit = rate.Every(cooldown)
		}
		l = rate.NewLimiter(limit, 1)
	}
	allowed := l.AllowN(e.now(), 1)
	if cooldown > 0 {
		e.limiters.SetWithTTL(callerID, l, 2*cooldown)
	} else {
		e.limiters.Set(callerID, l)
	}
	return allowed
}

// Run performs one clustering pass and publishes its topics. A concurrent
// call returns models.ErrRunInProgress without doing any work.
func (e *Engine) Run(ctx context.Context, trigger string) (*RunReport, error) {
	if !e.runMu.TryLock() {
		metrics.RecordDiscoveryRun(trigger, "skipped", 0)
		e.logger.Debug().Str("trigger", trigger).Msg("clustering run already in progress")
		return nil, models.ErrRunInProgress
	}
	defer e.runMu.Unlock()

	start := e.now()
	report := &RunReport{Trigger: trigger}
	d := e.opts.Discovery

	items, err := e.source.RecentEmbedded(ctx, start.Add(-d.Window), d.MaxItems+1)
	if err != nil {
		metrics.RecordDiscoveryRun(trigger, "error", e.now().Sub(start))
		return nil, fmt.Errorf("load discovery window: %w", err)
	}
	if len(items) > d.MaxItems {
		items = items[:d.MaxItems]
		report.Truncated = true
		metrics.RecordResourceExhausted("discovery_window")
		e.logger.Warn().Err(models.ErrResourceExhausted).Int("max_items", d.MaxItems).Msg("discovery window truncated to newest items")
	}
	items = e.usable(items)
	report.Window = len(items)

	clusters := Greedy(items, d.Threshold)
	qualified := Qualify(clusters, d.MinClusterSize)
	report.Formed, report.Qualified = len(clusters), len(qualified)

	entries, deferred := e.synthesizeAll(ctx, qualified)
	report.Deferred = deferred
	report.Published = len(entries)

	publishedAt := e.now()
	e.topics.publish(entries, publishedAt, deferred > 0)
	e.notify(publishedAt)

	report.Duration = e.now().Sub(start)
	result := "success"
	if deferred > 0 {
		result = "partial"
	}
	metrics.RecordDiscoveryRun(trigger, result, report.Duration)
	metrics.RecordClusterStages(report.Formed, report.Qualified, report.Published, report.Deferred)
	metrics.TopicsPublished.Set(float64(len(e.topics.Listed(publishedAt))))

	e.logger.Info().
		Str("trigger", trigger).
		Int("window", report.Window).
		Int("formed", report.Formed).
		Int("qualified", report.Qualified).
		Int("published", report.Published).
		Int("deferred", report.Deferred).
		Dur("duration", report.Duration).
		Msg("clustering run complete")
	return report, nil
}

// usable drops items whose vector does not match the configured model size,
// which happens for a while after the embedding provider changes.
func (e *Engine) usable(items []*models.ContentItem) []*models.ContentItem {
	out := items[:0:0]
	skipped := 0
	for _, it := range items {
		vec := it.Vector()
		if vec == nil || it.Tombstoned() {
			continue
		}
		if e.opts.Dimensions > 0 && len(vec) != e.opts.Dimensions {
			skipped++
			continue
		}
		out = append(out, it)
	}
	if skipped > 0 {
		e.logger.Warn().Int("skipped", skipped).Int("dimensions", e.opts.Dimensions).Msg("skipping vectors from a different embedding model")
	}
	return out
}

func (e *Engine) synthesizeAll(ctx context.Context, clusters []*Cluster) ([]*entry, int) {
	results := make([]*entry, len(clusters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Discovery.SummarizeConcurrency)

	for i, c := range clusters {
		g.Go(func() error {
			reps := Representatives(c, e.opts.Discovery.MaxRepresentatives)
			syn, err := e.synthesize(gctx, reps)
			if err != nil {
				e.logger.Warn().Err(err).Int("members", c.Size()).Msg("cluster deferred to next tick")
				return nil
			}
			results[i] = e.newEntry(c, syn, e.now())
			return nil
		})
	}
	_ = g.Wait()

	var out []*entry
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, len(clusters) - len(out)
}

// synthesize waits at most summarize_timeout. The upstream call itself runs
// detached, bounded by the summarizer timeout, and a late answer is cached
// under the representative set for the next tick.
func (e *Engine) synthesize(ctx context.Context, reps []*models.ContentItem) (models.Synthesis, error) {
	key := representativeKey(reps)
	if syn, ok := e.summaries.Get(key); ok {
		metrics.SummarizeRequests.WithLabelValues("cache_hit").Inc()
		return syn, nil
	}

	texts := e.payload(reps)
	detached := context.WithoutCancel(ctx)
	ch := e.inflight.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(detached, e.opts.SummarizerTimeout)
		defer cancel()
		syn, err := e.summarizer.Synthesize(callCtx, texts)
		if err != nil {
			return models.Synthesis{}, err
		}
		e.summaries.Set(key, syn)
		return syn, nil
	})

	timer := time.NewTimer(e.opts.Discovery.SummarizeTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return models.Synthesis{}, fmt.Errorf("%w: %w", models.ErrTransientUpstream, ctx.Err())
	case <-timer.C:
		metrics.SummarizeRequests.WithLabelValues("timeout").Inc()
		return models.Synthesis{}, fmt.Errorf("%w: summarization exceeded %s", models.ErrTransientUpstream, e.opts.Discovery.SummarizeTimeout)
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, models.ErrTransientUpstream) {
				return models.Synthesis{}, res.Err
			}
			return models.Synthesis{}, fmt.Errorf("%w: %w", models.ErrTransientUpstream, res.Err)
		}
		return res.Val.(models.Synthesis), nil
	}
}

// payload caps the combined representative text at MaxPayloadRunes,
// cutting the text that crosses the cap and dropping the rest.
func (e *Engine) payload(reps []*models.ContentItem) []string {
	limit := e.opts.MaxPayloadRunes
	texts := make([]string, 0, len(reps))
	used := 0
	for _, r := range reps {
		text := r.Text
		if limit > 0 {
			n := utf8.RuneCountInString(text)
			if used+n > limit {
				metrics.RecordResourceExhausted("summarize_payload")
				e.logger.Warn().Err(models.ErrResourceExhausted).Int("max_payload_runes", limit).Msg("summarization payload truncated")
				if remaining := limit - used; remaining > 0 {
					texts = append(texts, embedding.Truncate(text, remaining))
				}
				break
			}
			used += n
		}
		texts = append(texts, text)
	}
	return texts
}

func (e *Engine) newEntry(c *Cluster, syn models.Synthesis, now time.Time) *entry {
	d := e.opts.Discovery
	t := &models.Topic{
		ID:                 uuid.NewString(),
		MemberIDs:          make([]string, 0, c.Size()),
		Title:              syn.Title,
		PrevailingPosition: syn.PrevailingPosition,
		LeadingCritique:    syn.LeadingCritique,
		CreatedAt:          now,
		ExpiresAt:          now.Add(d.TopicTTL),
		Scope:              models.GeoScope{Level: models.GeoNational},
	}
	authors := make(map[string]string, c.Size())
	for _, m := range c.Members {
		t.MemberIDs = append(t.MemberIDs, m.ID)
		authors[m.ID] = m.AuthorID
	}
	t.ParticipantCount = distinctAuthors(authors)
	if d.Regional.Enabled {
		if region := dominantRegion(c.Members, d.Regional.MinShare); region != "" {
			t.Scope = models.GeoScope{Level: models.GeoRegional, Region: region}
		}
	}
	return &entry{topic: t, authors: authors}
}

// Forget evicts tombstoned content from every cached topic. Topics left
// without members are dropped.
func (e *Engine) Forget(contentIDs []string) {
	if len(contentIDs) == 0 {
		return
	}
	dropped := e.topics.forget(contentIDs)
	if len(dropped) > 0 {
		e.logger.Info().Strs("topics", dropped).Msg("evicted topics with no surviving members")
		now := e.now()
		metrics.TopicsPublished.Set(float64(len(e.topics.Listed(now))))
		e.notify(now)
	}
}

// Referenced reports whether a live topic still pins contentID.
func (e *Engine) Referenced(contentID string) bool {
	return e.topics.Referenced(contentID, e.now())
}

// Lookup returns an unexpired topic by ID.
func (e *Engine) Lookup(topicID string) (*models.Topic, bool) {
	return e.topics.Lookup(topicID, e.now())
}

// Trending returns the layered trending list for a caller's region.
func (e *Engine) Trending(region string) []*models.Topic {
	return e.topics.Trending(e.now(), region)
}

// PublishedAt returns when the current snapshot was published.
func (e *Engine) PublishedAt() time.Time {
	return e.topics.PublishedAt()
}

// TrendingVersion changes whenever Trending's output may change.
func (e *Engine) TrendingVersion() string {
	return e.topics.TrendingVersion(e.now())
}

func (e *Engine) notify(now time.Time) {
	e.obsMu.RLock()
	observers := e.observers
	e.obsMu.RUnlock()
	if len(observers) == 0 {
		return
	}
	trending := e.topics.Trending(now, "")
	for _, o := range observers {
		o.TopicsPublished(trending)
	}
}

func representativeKey(reps []*models.ContentItem) string {
	parts := make([]string, len(reps))
	for i, r := range reps {
		parts[i] = r.ID + "@" + strconv.Itoa(r.TextVersion)
	}
	return cache.HashKey("synth", strings.Join(parts, ","))
}
