package s0_data

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/universe/internal/contracts"
	"github.com/wonny/universe/internal/pipeline"
)

// Loader serves securities master and daily price columns to the pipeline engine
type Loader struct {
	securities *SecurityRepository
	prices     *PriceRepository
}

// NewLoader creates a new database-backed loader
func NewLoader(securities *SecurityRepository, prices *PriceRepository) *Loader {
	return &Loader{
		securities: securities,
		prices:     prices,
	}
}

// Sessions implements pipeline.Loader
func (l *Loader) Sessions(ctx context.Context, start, end time.Time, lookback int) ([]time.Time, error) {
	return l.prices.Sessions(ctx, start, end, lookback)
}

// Load implements pipeline.Loader
func (l *Loader) Load(ctx context.Context, req pipeline.LoadRequest) (*pipeline.Frame, error) {
	if len(req.Sessions) == 0 {
		return nil, pipeline.ErrNoSessions
	}

	var needCategory, needPrices bool
	for _, col := range req.Columns {
		switch {
		case col == string(SecurityCategory):
			needCategory = true
		case isPriceColumn(col):
			needPrices = true
		default:
			return nil, fmt.Errorf("%w: %s", pipeline.ErrUnknownColumn, col)
		}
	}

	var (
		securities []contracts.Security
		prices     []contracts.Price
	)

	// 종목 마스터와 가격을 병렬로 조회
	from, to := req.Sessions[0], req.Sessions[len(req.Sessions)-1]
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		securities, err = l.securities.ListForRange(gctx, from, to)
		return err
	})
	if needPrices {
		g.Go(func() error {
			var err error
			prices, err = l.prices.GetRange(gctx, from, to)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildFrame(req, securities, prices, needCategory)
}

// buildFrame lays securities and bars out on the session x entity grid
// Bars for codes missing from the master are kept so that price-only screens
// still see them.
func buildFrame(req pipeline.LoadRequest, securities []contracts.Security, prices []contracts.Price, withCategory bool) (*pipeline.Frame, error) {
	seen := make(map[string]struct{}, len(securities))
	codes := make([]string, 0, len(securities))
	for _, s := range securities {
		if _, ok := seen[s.Code]; !ok {
			seen[s.Code] = struct{}{}
			codes = append(codes, s.Code)
		}
	}
	for _, p := range prices {
		if _, ok := seen[p.Code]; !ok {
			seen[p.Code] = struct{}{}
			codes = append(codes, p.Code)
		}
	}

	frame := pipeline.NewFrame(req.Sessions, codes)
	for _, col := range req.Columns {
		if col == string(SecurityCategory) {
			frame.AddLabel(col)
		} else {
			frame.AddNumeric(col)
		}
	}

	if withCategory {
		for _, s := range securities {
			if s.Category == "" {
				continue
			}
			if err := frame.FillLabel(string(SecurityCategory), s.Code, s.Category); err != nil {
				return nil, err
			}
		}
	}

	wanted := make(map[string]bool, len(req.Columns))
	for _, col := range req.Columns {
		wanted[col] = true
	}
	for _, p := range prices {
		if wanted[string(Volume)] {
			if err := frame.SetNumeric(string(Volume), p.Date, p.Code, float64(p.Volume)); err != nil {
				return nil, err
			}
		}
		if wanted[string(Close)] {
			if err := frame.SetNumeric(string(Close), p.Date, p.Code, p.Close); err != nil {
				return nil, err
			}
		}
	}

	return frame, nil
}
