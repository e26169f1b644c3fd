package s1_universe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/universe/internal/contracts"
	"github.com/wonny/universe/internal/metrics"
	"github.com/wonny/universe/internal/pipeline"
	"github.com/wonny/universe/pkg/logger"
	"github.com/wonny/universe/pkg/redis"
)

// Builder constructs the daily universe by running a screen through the engine
type Builder struct {
	engine   *pipeline.Engine
	screen   pipeline.Filter
	logger   *logger.Logger
	cache    *redis.Cache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
}

// BuilderOption configures optional Builder dependencies
type BuilderOption func(*Builder)

// WithCache serves repeated builds for the same screen and session from cache
func WithCache(cache *redis.Cache, ttl time.Duration) BuilderOption {
	return func(b *Builder) {
		b.cache = cache
		b.cacheTTL = ttl
	}
}

// WithMetrics records build outcomes
func WithMetrics(m *metrics.Metrics) BuilderOption {
	return func(b *Builder) {
		b.metrics = m
	}
}

// NewBuilder creates a new universe Builder
func NewBuilder(engine *pipeline.Engine, screen pipeline.Filter, log *logger.Logger, opts ...BuilderOption) *Builder {
	b := &Builder{
		engine: engine,
		screen: screen,
		logger: log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Screen returns the filter the builder evaluates
func (b *Builder) Screen() pipeline.Filter {
	return b.screen
}

// Build constructs the universe for the session on date
// ⭐ SSOT: 유니버스 생성
func (b *Builder) Build(ctx context.Context, date time.Time) (*contracts.Universe, error) {
	session := pipeline.SessionKey(date)

	hash, err := b.screen.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash screen: %w", err)
	}
	cacheKey := redis.UniverseKey(hash, session)

	if b.cache != nil {
		var cached contracts.Universe
		found, err := b.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			b.logger.WithError(err).Warn("Universe cache read failed")
		} else if found {
			if b.metrics != nil {
				b.metrics.CacheHits.Inc()
			}
			return &cached, nil
		}
	}

	start := time.Now()
	result, err := b.engine.Run(ctx, b.screen, date, date)
	if err != nil {
		b.observe("failure", start, nil)
		return nil, fmt.Errorf("run screen for %s: %w", session, err)
	}

	universe := &contracts.Universe{
		Date:     result.Sessions[0],
		RunID:    uuid.NewString(),
		Screen:   b.screen.String(),
		Stocks:   result.Selected(date),
		Excluded: make(map[string]string),
	}
	for _, code := range result.Entities {
		if reason := result.Explain(date, code); reason != "" {
			universe.Excluded[code] = reason
		}
	}
	universe.TotalCount = len(universe.Stocks)

	b.observe("success", start, universe)

	if b.cache != nil {
		if err := b.cache.Set(ctx, cacheKey, universe, b.cacheTTL); err != nil {
			b.logger.WithError(err).Warn("Universe cache write failed")
		}
	}

	b.logger.WithFields(map[string]interface{}{
		"stage":    contracts.StageUniverse.String(),
		"run_id":   universe.RunID,
		"date":     session,
		"included": universe.TotalCount,
		"excluded": len(universe.Excluded),
	}).Info("Universe built")

	return universe, nil
}

func (b *Builder) observe(status string, start time.Time, universe *contracts.Universe) {
	if b.metrics == nil {
		return
	}
	b.metrics.BuildsTotal.WithLabelValues(status).Inc()
	b.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	if universe != nil {
		b.metrics.UniverseSize.Set(float64(universe.TotalCount))
	}
}
