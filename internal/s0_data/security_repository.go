package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/universe/internal/contracts"
)

// SecurityRepository reads the securities master
type SecurityRepository struct {
	pool *pgxpool.Pool
}

// NewSecurityRepository creates a new security repository
func NewSecurityRepository(pool *pgxpool.Pool) *SecurityRepository {
	return &SecurityRepository{pool: pool}
}

// ListForRange returns the securities that are active now or traded between
// from and to, ordered by code
// 상장폐지 종목도 해당 기간에 거래가 있으면 포함 (생존 편향 방지)
func (r *SecurityRepository) ListForRange(ctx context.Context, from, to time.Time) ([]contracts.Security, error) {
	query := `
		SELECT s.code, s.name, COALESCE(s.category, '')
		FROM data.stocks s
		WHERE s.status = 'active'
		   OR EXISTS (
				SELECT 1 FROM data.daily_prices p
				WHERE p.stock_code = s.code
				  AND p.trade_date BETWEEN $1::date AND $2::date
		   )
		ORDER BY s.code
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query stocks: %w", err)
	}
	defer rows.Close()

	securities := make([]contracts.Security, 0)
	for rows.Next() {
		var s contracts.Security
		if err := rows.Scan(&s.Code, &s.Name, &s.Category); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		securities = append(securities, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stocks: %w", err)
	}

	return securities, nil
}

// Save upserts a security master record
func (r *SecurityRepository) Save(ctx context.Context, s contracts.Security) error {
	query := `
		INSERT INTO data.stocks (code, name, category, status)
		VALUES ($1, $2, NULLIF($3, ''), 'active')
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category
	`

	if _, err := r.pool.Exec(ctx, query, s.Code, s.Name, s.Category); err != nil {
		return fmt.Errorf("upsert stock %s: %w", s.Code, err)
	}
	return nil
}
