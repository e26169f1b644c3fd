package pipeline

import (
	"context"
	"fmt"
	"time"
)

// LoadRequest describes the data an engine run needs
type LoadRequest struct {
	Sessions []time.Time
	Columns  []string
}

// Loader supplies the trading calendar and column data for engine runs
// ⭐ SSOT: 엔진은 이 인터페이스로만 데이터에 접근
type Loader interface {
	// Sessions returns up to lookback sessions before start followed by every
	// session in [start, end], ascending
	Sessions(ctx context.Context, start, end time.Time, lookback int) ([]time.Time, error)

	// Load returns a frame covering req.Sessions with every requested column
	Load(ctx context.Context, req LoadRequest) (*Frame, error)
}

// MemoryLoader serves data from a prebuilt frame
type MemoryLoader struct {
	frame *Frame
}

// NewMemoryLoader creates a loader backed by frame
func NewMemoryLoader(frame *Frame) *MemoryLoader {
	return &MemoryLoader{frame: frame}
}

// Sessions implements Loader
func (l *MemoryLoader) Sessions(ctx context.Context, start, end time.Time, lookback int) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startKey, endKey := SessionKey(start), SessionKey(end)
	first := -1
	var out []time.Time
	for i, s := range l.frame.sessions {
		k := SessionKey(s)
		if k < startKey || k > endKey {
			continue
		}
		if first < 0 {
			first = i
		}
		out = append(out, s)
	}
	if first < 0 {
		return nil, fmt.Errorf("%w: %s ~ %s", ErrNoSessions, startKey, endKey)
	}

	from := first - lookback
	if from < 0 {
		from = 0
	}
	return append(append([]time.Time(nil), l.frame.sessions[from:first]...), out...), nil
}

// Load implements Loader
func (l *MemoryLoader) Load(ctx context.Context, req LoadRequest) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.frame.subset(req.Sessions, req.Columns)
}
