package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/universe/internal/contracts"
	"github.com/wonny/universe/internal/pipeline"
)

// PriceRepository reads and writes daily bars
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// Sessions returns the trading calendar derived from stored trade dates:
// up to lookback sessions before start, then every session in [start, end]
func (r *PriceRepository) Sessions(ctx context.Context, start, end time.Time, lookback int) ([]time.Time, error) {
	query := `
		(
			SELECT DISTINCT trade_date
			FROM data.daily_prices
			WHERE trade_date < $1::date
			ORDER BY trade_date DESC
			LIMIT $3
		)
		UNION
		(
			SELECT DISTINCT trade_date
			FROM data.daily_prices
			WHERE trade_date BETWEEN $1::date AND $2::date
		)
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, start, end, lookback)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	sessions, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}

	startKey := pipeline.SessionKey(start)
	if len(sessions) == 0 || pipeline.SessionKey(sessions[len(sessions)-1]) < startKey {
		return nil, fmt.Errorf("%w: %s ~ %s", pipeline.ErrNoSessions, startKey, pipeline.SessionKey(end))
	}
	return sessions, nil
}

// GetRange returns every bar with trade_date in [from, to]
func (r *PriceRepository) GetRange(ctx context.Context, from, to time.Time) ([]contracts.Price, error) {
	query := `
		SELECT stock_code, trade_date, close_price::float8, volume
		FROM data.daily_prices
		WHERE trade_date BETWEEN $1::date AND $2::date
		ORDER BY trade_date ASC, stock_code ASC
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	prices := make([]contracts.Price, 0)
	for rows.Next() {
		var p contracts.Price
		if err := rows.Scan(&p.Code, &p.Date, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prices: %w", err)
	}

	return prices, nil
}

// SaveBatch upserts daily bars in a single round trip
func (r *PriceRepository) SaveBatch(ctx context.Context, prices []contracts.Price) error {
	if len(prices) == 0 {
		return nil
	}

	query := `
		INSERT INTO data.daily_prices (stock_code, trade_date, close_price, volume)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (stock_code, trade_date) DO UPDATE SET
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(query, p.Code, p.Date, p.Close, p.Volume)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, p := range prices {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert price %s %s: %w", p.Code, pipeline.SessionKey(p.Date), err)
		}
	}
	return nil
}
