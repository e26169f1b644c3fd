package commands

import (
	"context"
	"fmt"

	"github.com/wonny/universe/internal/metrics"
	"github.com/wonny/universe/internal/pipeline"
	"github.com/wonny/universe/internal/s0_data"
	"github.com/wonny/universe/internal/s1_universe"
	"github.com/wonny/universe/pkg/config"
	"github.com/wonny/universe/pkg/database"
	"github.com/wonny/universe/pkg/logger"
	"github.com/wonny/universe/pkg/redis"
)

// app wires the dependencies shared by every long-running command
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	metrics *metrics.Metrics

	screen  pipeline.Filter
	builder *s1_universe.Builder
	store   *s1_universe.Repository
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.New(cfg)

	screen, err := s1_universe.Config{
		MaskMode:   cfg.Universe.MaskMode,
		ScreenFile: cfg.Universe.ScreenFile,
	}.Screen()
	if err != nil {
		return nil, fmt.Errorf("resolve screen: %w", err)
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("Connected to database")

	rc, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		redis:  rc,
		screen: screen,
		store:  s1_universe.NewRepository(db.Pool),
	}

	opts := []s1_universe.BuilderOption{
		s1_universe.WithCache(redis.NewCache(rc, "universe"), cfg.Universe.CacheTTL),
	}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
		opts = append(opts, s1_universe.WithMetrics(a.metrics))
	}

	loader := s0_data.NewLoader(
		s0_data.NewSecurityRepository(db.Pool),
		s0_data.NewPriceRepository(db.Pool),
	)
	engine := pipeline.NewEngine(loader, log)
	a.builder = s1_universe.NewBuilder(engine, screen, log, opts...)

	log.WithFields(map[string]interface{}{
		"screen":        screen.String(),
		"mask_mode":     cfg.Universe.MaskMode,
		"redis_enabled": rc.Enabled(),
	}).Debug("Universe builder ready")

	return a, nil
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}
