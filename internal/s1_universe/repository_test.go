package s1_universe

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wonny/universe/internal/contracts"
	"github.com/wonny/universe/internal/pipeline"
	"github.com/wonny/universe/internal/s0_data"
	"github.com/wonny/universe/pkg/logger"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	dir := filepath.Join("..", "..", "sql", "postgres")
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	require.NoError(t, err)
	sort.Strings(files)

	for _, f := range files {
		sql, err := os.ReadFile(f)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "failed to execute migration: %s", f)
	}

	return pool
}

func TestRepository_Integration(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	securities := s0_data.NewSecurityRepository(pool)
	prices := s0_data.NewPriceRepository(pool)
	repo := NewRepository(pool)

	for _, s := range []contracts.Security{
		{Code: "005930", Name: "삼성전자", Category: "Domestic Common Stock"},
		{Code: "005935", Name: "삼성전자우", Category: "Domestic Common Stock Secondary Class"},
		{Code: "THIN", Name: "Thin Corp", Category: "Domestic Common Stock"},
	} {
		require.NoError(t, securities.Save(ctx, s))
	}

	var days []time.Time
	var bars []contracts.Price
	for d := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC); len(days) < WindowLength; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		thin := int64(10_000)
		if len(days) == 3 {
			thin = 0
		}
		days = append(days, d)
		bars = append(bars,
			contracts.Price{Code: "005930", Date: d, Close: 70_000, Volume: 10_000_000},
			contracts.Price{Code: "005935", Date: d, Close: 60_000, Volume: 1_000_000},
			contracts.Price{Code: "THIN", Date: d, Close: 5_000, Volume: thin},
		)
	}
	require.NoError(t, prices.SaveBatch(ctx, bars))
	last := days[len(days)-1]

	_, err := repo.GetLatestUniverse(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	engine := pipeline.NewEngine(s0_data.NewLoader(securities, prices), logger.NewNop())
	builder := NewBuilder(engine, BaseUniverse(WithCommonStocksMask()), logger.NewNop())

	universe, err := builder.Build(ctx, last)
	require.NoError(t, err)
	assert.Equal(t, []string{"005930"}, universe.Stocks)
	require.NoError(t, repo.SaveUniverse(ctx, universe))

	t.Run("latest", func(t *testing.T) {
		got, err := repo.GetLatestUniverse(ctx)
		require.NoError(t, err)
		assert.Equal(t, universe.RunID, got.RunID)
		assert.Equal(t, universe.Stocks, got.Stocks)
		assert.Equal(t, universe.Screen, got.Screen)
		assert.Equal(t, universe.Excluded, got.Excluded)
		assert.Equal(t, pipeline.SessionKey(last), pipeline.SessionKey(got.Date))
	})

	t.Run("by date", func(t *testing.T) {
		got, err := repo.GetUniverse(ctx, last)
		require.NoError(t, err)
		assert.Equal(t, 1, got.TotalCount)

		excluded, reason := got.IsExcluded("THIN")
		assert.True(t, excluded)
		assert.Contains(t, reason, "volume > 0")

		_, err = repo.GetUniverse(ctx, days[0])
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rebuild replaces snapshot", func(t *testing.T) {
		again, err := builder.Build(ctx, last)
		require.NoError(t, err)
		require.NoError(t, repo.SaveUniverse(ctx, again))

		got, err := repo.GetUniverse(ctx, last)
		require.NoError(t, err)
		assert.Equal(t, again.RunID, got.RunID)
	})
}
