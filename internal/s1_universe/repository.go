package s1_universe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/universe/internal/contracts"
)

// ErrNotFound is returned when no snapshot exists for the requested date
var ErrNotFound = errors.New("universe snapshot not found")

// Repository persists universe snapshots
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveUniverse upserts the snapshot for universe.Date
func (r *Repository) SaveUniverse(ctx context.Context, universe *contracts.Universe) error {
	excludedJSON, err := json.Marshal(universe.Excluded)
	if err != nil {
		return fmt.Errorf("marshal excluded: %w", err)
	}

	query := `
		INSERT INTO data.universe_snapshots (
			snapshot_date,
			run_id,
			screen,
			eligible_stocks,
			total_count,
			criteria,
			created_at
		) VALUES ($1, $2::text::uuid, $3, $4, $5, $6, NOW())
		ON CONFLICT (snapshot_date) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			screen = EXCLUDED.screen,
			eligible_stocks = EXCLUDED.eligible_stocks,
			total_count = EXCLUDED.total_count,
			criteria = EXCLUDED.criteria,
			created_at = NOW()
	`

	_, err = r.db.Exec(ctx, query,
		universe.Date,
		universe.RunID,
		universe.Screen,
		universe.Stocks,
		universe.TotalCount,
		excludedJSON,
	)
	if err != nil {
		return fmt.Errorf("insert universe: %w", err)
	}

	return nil
}

const selectSnapshot = `
	SELECT
		snapshot_date,
		run_id::text,
		screen,
		eligible_stocks,
		total_count,
		criteria
	FROM data.universe_snapshots
`

// GetLatestUniverse retrieves the most recent universe snapshot
func (r *Repository) GetLatestUniverse(ctx context.Context) (*contracts.Universe, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectSnapshot+`
		ORDER BY snapshot_date DESC
		LIMIT 1
	`))
}

// GetUniverse retrieves the snapshot for a specific session
func (r *Repository) GetUniverse(ctx context.Context, date time.Time) (*contracts.Universe, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectSnapshot+`
		WHERE snapshot_date = $1::date
	`, date))
}

func (r *Repository) scanOne(row pgx.Row) (*contracts.Universe, error) {
	universe := &contracts.Universe{
		Excluded: make(map[string]string),
	}

	var excludedJSON []byte
	err := row.Scan(
		&universe.Date,
		&universe.RunID,
		&universe.Screen,
		&universe.Stocks,
		&universe.TotalCount,
		&excludedJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query universe: %w", err)
	}

	if len(excludedJSON) > 0 {
		if err := json.Unmarshal(excludedJSON, &universe.Excluded); err != nil {
			return nil, fmt.Errorf("unmarshal excluded: %w", err)
		}
	}

	return universe, nil
}
