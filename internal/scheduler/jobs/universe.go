package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/universe/internal/contracts"
	"github.com/wonny/universe/internal/pipeline"
	"github.com/wonny/universe/pkg/logger"
)

// UniverseJob builds and stores the universe after the close
// ⭐ SSOT: Universe 생성 스케줄은 이 Job에서만
type UniverseJob struct {
	builder  contracts.UniverseBuilder
	store    contracts.UniverseStore
	schedule string
	logger   *logger.Logger
	now      func() time.Time
}

// NewUniverseJob creates a new universe job running on schedule
func NewUniverseJob(builder contracts.UniverseBuilder, store contracts.UniverseStore, schedule string, log *logger.Logger) *UniverseJob {
	return &UniverseJob{
		builder:  builder,
		store:    store,
		schedule: schedule,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *UniverseJob) Name() string {
	return "universe_generation"
}

// Schedule returns the cron schedule
func (j *UniverseJob) Schedule() string {
	return j.schedule
}

// Run builds today's universe and saves the snapshot
func (j *UniverseJob) Run(ctx context.Context) error {
	today := j.now()
	j.logger.WithField("date", pipeline.SessionKey(today)).Info("Starting scheduled universe generation")

	universe, err := j.builder.Build(ctx, today)
	if errors.Is(err, pipeline.ErrNoSessions) {
		// 휴장일
		j.logger.WithField("date", pipeline.SessionKey(today)).Info("No session today, skipping universe generation")
		return nil
	}
	if err != nil {
		return fmt.Errorf("build universe: %w", err)
	}

	if err := j.store.SaveUniverse(ctx, universe); err != nil {
		return fmt.Errorf("save universe: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"stage":          contracts.StageUniverse.String(),
		"run_id":         universe.RunID,
		"included_count": len(universe.Stocks),
		"excluded_count": len(universe.Excluded),
	}).Info("Universe generated successfully")

	return nil
}
