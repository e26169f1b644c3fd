package s1_universe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/universe/internal/metrics"
	"github.com/wonny/universe/internal/pipeline"
	"github.com/wonny/universe/pkg/config"
	"github.com/wonny/universe/pkg/logger"
	"github.com/wonny/universe/pkg/redis"
)

func builderFrame(t *testing.T) (*pipeline.Frame, time.Time) {
	t.Helper()

	penny := stock{category: "Domestic Common Stock", volume: repeat(1e6, 21), close: repeat(20, 21)}
	penny.close[15] = 0.80

	return testFrame(t, 21, map[string]stock{
		"005930": {category: "Domestic Common Stock", volume: repeat(1e6, 21), close: repeat(70000, 21)},
		"005935": {category: "Domestic Common Stock Secondary Class", volume: repeat(1e6, 21), close: repeat(60000, 21)},
		"PENNY":  penny,
		"ADR":    {category: "ADR Common Stock", volume: repeat(1e6, 21), close: repeat(30, 21)},
	})
}

func TestBuilder_Build(t *testing.T) {
	frame, last := builderFrame(t)
	engine := pipeline.NewEngine(pipeline.NewMemoryLoader(frame), logger.NewNop())
	m := metrics.New()

	builder := NewBuilder(engine, BaseUniverse(WithCommonStocksMask()), logger.NewNop(), WithMetrics(m))
	universe, err := builder.Build(context.Background(), last)
	require.NoError(t, err)

	assert.Equal(t, last, universe.Date)
	assert.NotEmpty(t, universe.RunID)
	assert.Equal(t, builder.Screen().String(), universe.Screen)
	assert.Equal(t, []string{"005930"}, universe.Stocks)
	assert.Equal(t, 1, universe.TotalCount)
	assert.True(t, universe.Contains("005930"))

	excluded, reason := universe.IsExcluded("005935")
	assert.True(t, excluded)
	assert.Contains(t, reason, Secondary)

	_, reason = universe.IsExcluded("PENNY")
	assert.Contains(t, reason, "all(21, close > 1")

	_, reason = universe.IsExcluded("ADR")
	assert.Contains(t, reason, DomesticCommon)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `universe_builder_builds_total{status="success"} 1`)
	assert.Contains(t, rec.Body.String(), "universe_builder_selected_stocks 1")
}

func TestBuilder_BuildRunIDsDiffer(t *testing.T) {
	frame, last := builderFrame(t)
	engine := pipeline.NewEngine(pipeline.NewMemoryLoader(frame), logger.NewNop())
	builder := NewBuilder(engine, BaseUniverse(WithCommonStocksMask()), logger.NewNop())

	first, err := builder.Build(context.Background(), last)
	require.NoError(t, err)
	second, err := builder.Build(context.Background(), last)
	require.NoError(t, err)

	assert.Equal(t, first.Stocks, second.Stocks)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestBuilder_DisabledCache(t *testing.T) {
	frame, last := builderFrame(t)
	engine := pipeline.NewEngine(pipeline.NewMemoryLoader(frame), logger.NewNop())

	client, err := redis.New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	m := metrics.New()

	builder := NewBuilder(engine, BaseUniverse(WithCommonStocksMask()), logger.NewNop(),
		WithCache(redis.NewCache(client, "test"), redis.TTLDaily),
		WithMetrics(m),
	)

	universe, err := builder.Build(context.Background(), last)
	require.NoError(t, err)
	assert.Equal(t, []string{"005930"}, universe.Stocks)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "universe_builder_cache_hits_total 0")
}

func TestBuilder_BuildFailure(t *testing.T) {
	frame, last := builderFrame(t)
	engine := pipeline.NewEngine(pipeline.NewMemoryLoader(frame), logger.NewNop())
	m := metrics.New()

	screen := pipeline.NumericColumn("market_cap").GT(0)
	builder := NewBuilder(engine, screen, logger.NewNop(), WithMetrics(m))

	_, err := builder.Build(context.Background(), last)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrUnknownColumn)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `universe_builder_builds_total{status="failure"} 1`)
}
