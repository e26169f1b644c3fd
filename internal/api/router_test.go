package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/universe/internal/api/handlers"
	"github.com/wonny/universe/internal/contracts"
	"github.com/wonny/universe/internal/metrics"
	"github.com/wonny/universe/internal/pipeline"
	"github.com/wonny/universe/internal/s1_universe"
	"github.com/wonny/universe/pkg/config"
	"github.com/wonny/universe/pkg/logger"
	"github.com/wonny/universe/pkg/redis"
)

type memoryStore struct {
	byDate map[string]*contracts.Universe
	latest *contracts.Universe
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byDate: make(map[string]*contracts.Universe)}
}

func (s *memoryStore) SaveUniverse(_ context.Context, u *contracts.Universe) error {
	s.byDate[pipeline.SessionKey(u.Date)] = u
	s.latest = u
	return nil
}

func (s *memoryStore) GetLatestUniverse(context.Context) (*contracts.Universe, error) {
	if s.latest == nil {
		return nil, s1_universe.ErrNotFound
	}
	return s.latest, nil
}

func (s *memoryStore) GetUniverse(_ context.Context, date time.Time) (*contracts.Universe, error) {
	u, ok := s.byDate[pipeline.SessionKey(date)]
	if !ok {
		return nil, s1_universe.ErrNotFound
	}
	return u, nil
}

type stubLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (l *stubLimiter) Allow(_ context.Context, cfg redis.RateLimitConfig) (bool, int, error) {
	l.calls++
	if l.err != nil {
		return false, 0, l.err
	}
	if !l.allowed {
		return false, 0, nil
	}
	return true, cfg.Limit - l.calls, nil
}

type panicBuilder struct{}

func (panicBuilder) Build(context.Context, time.Time) (*contracts.Universe, error) {
	panic("boom")
}

// testRouter serves a builder over a two-stock frame ending on 2026-10-16
func testRouter(t *testing.T) (http.Handler, *memoryStore) {
	t.Helper()
	h, m, store := testHandler(t)
	return NewRouter(h, m, nil, logger.NewNop()), store
}

func testHandler(t *testing.T) (*handlers.UniverseHandler, *metrics.Metrics, *memoryStore) {
	t.Helper()

	sessions := make([]time.Time, s1_universe.WindowLength)
	for i := range sessions {
		sessions[i] = time.Date(2026, 9, 16, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i+10)
	}
	f := pipeline.NewFrame(sessions, []string{"005930", "005935"})
	f.AddLabel(string(s1_universe.DefaultFields.Category))
	f.AddNumeric(string(s1_universe.DefaultFields.Volume))
	f.AddNumeric(string(s1_universe.DefaultFields.Close))
	require.NoError(t, f.FillLabel(string(s1_universe.DefaultFields.Category), "005930", "Domestic Common Stock"))
	require.NoError(t, f.FillLabel(string(s1_universe.DefaultFields.Category), "005935", "Domestic Common Stock Secondary Class"))
	for _, s := range sessions {
		for _, code := range []string{"005930", "005935"} {
			require.NoError(t, f.SetNumeric(string(s1_universe.DefaultFields.Volume), s, code, 1e6))
			require.NoError(t, f.SetNumeric(string(s1_universe.DefaultFields.Close), s, code, 60000))
		}
	}

	log := logger.NewNop()
	screen := s1_universe.BaseUniverse(s1_universe.WithCommonStocksMask())
	engine := pipeline.NewEngine(pipeline.NewMemoryLoader(f), log)
	m := metrics.New()
	builder := s1_universe.NewBuilder(engine, screen, log, s1_universe.WithMetrics(m))

	store := newMemoryStore()
	return handlers.NewUniverseHandler(builder, store, screen, log), m, store
}

func serve(router http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRouter_Health(t *testing.T) {
	router, _ := testRouter(t)

	rec := serve(router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRouter_BuildThenRead(t *testing.T) {
	router, store := testRouter(t)

	rec := serve(router, http.MethodGet, "/api/universe/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, http.MethodPost, "/api/universe/build?date=2026-10-16")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, store.latest)
	assert.Equal(t, []string{"005930"}, store.latest.Stocks)

	tests := []struct {
		name     string
		target   string
		wantCode int
		contains string
	}{
		{name: "latest", target: "/api/universe/latest", wantCode: http.StatusOK, contains: `"stocks":["005930"]`},
		{name: "by date", target: "/api/universe?date=2026-10-16", wantCode: http.StatusOK, contains: `"005930"`},
		{name: "missing date", target: "/api/universe?date=2026-10-15", wantCode: http.StatusNotFound},
		{name: "bad date", target: "/api/universe?date=16-10-2026", wantCode: http.StatusBadRequest},
		{name: "member", target: "/api/universe/stocks/005930?date=2026-10-16", wantCode: http.StatusOK, contains: `"included":true`},
		{name: "excluded member", target: "/api/universe/stocks/005935", wantCode: http.StatusOK, contains: "Secondary"},
		{name: "unknown member", target: "/api/universe/stocks/000660", wantCode: http.StatusNotFound},
		{name: "metrics", target: "/metrics", wantCode: http.StatusOK, contains: "universe_builder_builds_total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodGet, tt.target)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestRouter_BuildErrors(t *testing.T) {
	router, _ := testRouter(t)

	rec := serve(router, http.MethodPost, "/api/universe/build?date=2026/10/16")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPost, "/api/universe/build?date=2027-01-04")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no session in the frame")

	rec = serve(router, http.MethodGet, "/api/universe/build")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_BuildRateLimit(t *testing.T) {
	tests := []struct {
		name     string
		limiter  *stubLimiter
		wantCode int
	}{
		{name: "allowed", limiter: &stubLimiter{allowed: true}, wantCode: http.StatusCreated},
		{name: "limit exceeded", limiter: &stubLimiter{allowed: false}, wantCode: http.StatusTooManyRequests},
		{name: "limiter down lets builds through", limiter: &stubLimiter{err: errors.New("redis: connection refused")}, wantCode: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m, store := testHandler(t)
			limit := &BuildLimit{Limiter: tt.limiter, Config: redis.UniverseBuildLimit(3, time.Minute)}
			router := NewRouter(h, m, limit, logger.NewNop())

			rec := serve(router, http.MethodPost, "/api/universe/build?date=2026-10-16")
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, 1, tt.limiter.calls)

			if tt.wantCode == http.StatusTooManyRequests {
				assert.Equal(t, "60", rec.Header().Get("Retry-After"))
				assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
				assert.Nil(t, store.latest, "throttled builds never reach the store")
			}

			// reads are not throttled
			rec = serve(router, http.MethodGet, "/api/universe/screen")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, 1, tt.limiter.calls)
		})
	}
}

func TestRouter_BuildRateLimit_DisabledRedis(t *testing.T) {
	client, err := redis.New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)

	h, m, _ := testHandler(t)
	limit := &BuildLimit{
		Limiter: redis.NewRateLimiter(client, "test"),
		Config:  redis.UniverseBuildLimit(1, time.Minute),
	}
	router := NewRouter(h, m, limit, logger.NewNop())

	for i := 0; i < 3; i++ {
		rec := serve(router, http.MethodPost, "/api/universe/build?date=2026-10-16")
		assert.Equal(t, http.StatusCreated, rec.Code, "disabled redis allows every build")
	}
}

func TestRouter_Screen(t *testing.T) {
	router, _ := testRouter(t)

	rec := serve(router, http.MethodGet, "/api/universe/screen")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.ScreenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, s1_universe.BaseUniverse(s1_universe.WithCommonStocksMask()).String(), resp.Expression)
	assert.Len(t, resp.Hash, 64)
	assert.Equal(t, []string{"close", "security_category", "volume"}, resp.Columns)
	assert.Equal(t, s1_universe.WindowLength-1, resp.Lookback)
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	log := logger.NewNop()
	h := handlers.NewUniverseHandler(panicBuilder{}, newMemoryStore(), s1_universe.CommonStocks(), log)
	router := NewRouter(h, nil, nil, log)

	rec := serve(router, http.MethodPost, "/api/universe/build")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")

	rec = serve(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics disabled")
}
