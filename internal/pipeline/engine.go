package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/universe/pkg/logger"
)

// Engine evaluates screens over data supplied by a Loader
// ⭐ SSOT: 필터 평가는 이 엔진에서만
type Engine struct {
	loader Loader
	logger *logger.Logger
}

// NewEngine creates a new Engine
func NewEngine(loader Loader, log *logger.Logger) *Engine {
	return &Engine{
		loader: loader,
		logger: log,
	}
}

// Run evaluates screen for every session in [start, end]
func (e *Engine) Run(ctx context.Context, screen Filter, start, end time.Time) (*Result, error) {
	if err := screen.Validate(); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end %s before start %s", SessionKey(end), SessionKey(start))
	}

	started := time.Now()
	lookback := screen.Lookback()

	sessions, err := e.loader.Sessions(ctx, start, end, lookback)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	startKey := SessionKey(start)
	offset := 0
	for offset < len(sessions) && SessionKey(sessions[offset]) < startKey {
		offset++
	}
	if offset == len(sessions) {
		return nil, fmt.Errorf("%w: %s ~ %s", ErrNoSessions, startKey, SessionKey(end))
	}

	frame, err := e.loader.Load(ctx, LoadRequest{Sessions: sessions, Columns: screen.Columns()})
	if err != nil {
		return nil, fmt.Errorf("load columns: %w", err)
	}

	ev := newEvaluator(frame)
	if _, err := ev.eval(ctx, screen); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", screen, err)
	}

	result := newResult(screen, frame, offset, ev.memo)

	e.logger.WithFields(map[string]interface{}{
		"screen":   screen.String(),
		"sessions": len(result.Sessions),
		"lookback": offset,
		"entities": len(result.Entities),
		"duration": time.Since(started),
	}).Debug("Screen evaluated")

	return result, nil
}

// evaluator computes full session x entity matrices for every node, once
type evaluator struct {
	frame *Frame
	mu    sync.Mutex
	memo  map[string][]bool
	group singleflight.Group
}

func newEvaluator(frame *Frame) *evaluator {
	return &evaluator{
		frame: frame,
		memo:  make(map[string][]bool),
	}
}

func (ev *evaluator) eval(ctx context.Context, f Filter) ([]bool, error) {
	key := f.String()

	ev.mu.Lock()
	cached, ok := ev.memo[key]
	ev.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := ev.group.Do(key, func() (interface{}, error) {
		out, err := ev.compute(ctx, f)
		if err != nil {
			return nil, err
		}
		ev.mu.Lock()
		ev.memo[key] = out
		ev.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]bool), nil
}

func (ev *evaluator) compute(ctx context.Context, f Filter) ([]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]bool, ev.frame.cells())

	switch f.Kind {
	case KindCompare:
		vals, err := ev.frame.numericColumn(f.Column)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			// NaN 비교는 항상 false
			out[i] = f.Op.apply(v, f.Value)
		}

	case KindSubstring:
		vals, err := ev.frame.labelColumn(f.Column)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			out[i] = v != "" && strings.Contains(v, f.Pattern)
		}

	case KindAnd:
		parts := make([][]bool, len(f.Operands))
		g, gctx := errgroup.WithContext(ctx)
		for i, op := range f.Operands {
			i, op := i, op
			g.Go(func() error {
				vals, err := ev.eval(gctx, op)
				if err != nil {
					return err
				}
				parts[i] = vals
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = true
			for _, p := range parts {
				if !p[i] {
					out[i] = false
					break
				}
			}
		}

	case KindNot:
		inner, err := ev.eval(ctx, f.Operands[0])
		if err != nil {
			return nil, err
		}
		for i, v := range inner {
			out[i] = !v
		}

	case KindAll:
		pred, err := ev.eval(ctx, f.Operands[0])
		if err != nil {
			return nil, err
		}
		var mask []bool
		if f.Mask != nil {
			if mask, err = ev.eval(ctx, *f.Mask); err != nil {
				return nil, err
			}
		}

		width := len(ev.frame.entities)
		streak := make([]int, width)
		for s := range ev.frame.sessions {
			for e := 0; e < width; e++ {
				i := s*width + e
				if pred[i] {
					streak[e]++
				} else {
					streak[e] = 0
				}
				out[i] = streak[e] >= f.Window && (mask == nil || mask[i])
			}
		}

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidFilter, f.Kind)
	}

	return out, nil
}
