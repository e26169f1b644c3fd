package pipeline

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrUnknownColumn is returned when a filter references a column the frame does not carry
	ErrUnknownColumn = errors.New("unknown column")
	// ErrColumnType is returned when a column is used with the wrong value type
	ErrColumnType = errors.New("column type mismatch")
	// ErrNoSessions is returned when the requested range has no trading sessions
	ErrNoSessions = errors.New("no sessions in range")
)

const dateLayout = "2006-01-02"

// SessionKey normalizes a session timestamp to its calendar date
func SessionKey(t time.Time) string {
	return t.Format(dateLayout)
}

// Frame is a dense session x entity grid of column values
// Numeric gaps are NaN, label gaps are "".
type Frame struct {
	sessions   []time.Time
	entities   []string
	sessionIdx map[string]int
	entityIdx  map[string]int
	numeric    map[string][]float64
	labels     map[string][]string
}

// NewFrame creates an empty frame; sessions are sorted ascending and entities
// are sorted by code
func NewFrame(sessions []time.Time, entities []string) *Frame {
	ss := append([]time.Time(nil), sessions...)
	sort.Slice(ss, func(i, j int) bool { return ss[i].Before(ss[j]) })

	es := append([]string(nil), entities...)
	sort.Strings(es)

	f := &Frame{
		sessions:   ss,
		entities:   es,
		sessionIdx: make(map[string]int, len(ss)),
		entityIdx:  make(map[string]int, len(es)),
		numeric:    make(map[string][]float64),
		labels:     make(map[string][]string),
	}
	for i, s := range ss {
		f.sessionIdx[SessionKey(s)] = i
	}
	for i, e := range es {
		f.entityIdx[e] = i
	}
	return f
}

// Sessions returns the frame's sessions in ascending order
func (f *Frame) Sessions() []time.Time {
	return append([]time.Time(nil), f.sessions...)
}

// Entities returns the frame's entity codes in sorted order
func (f *Frame) Entities() []string {
	return append([]string(nil), f.entities...)
}

func (f *Frame) cells() int {
	return len(f.sessions) * len(f.entities)
}

func (f *Frame) index(session time.Time, entity string) (int, error) {
	s, ok := f.sessionIdx[SessionKey(session)]
	if !ok {
		return 0, fmt.Errorf("session %s not in frame", SessionKey(session))
	}
	e, ok := f.entityIdx[entity]
	if !ok {
		return 0, fmt.Errorf("entity %s not in frame", entity)
	}
	return s*len(f.entities) + e, nil
}

// AddNumeric declares a numeric column with every cell missing
func (f *Frame) AddNumeric(column string) {
	if _, ok := f.numeric[column]; ok {
		return
	}
	vals := make([]float64, f.cells())
	for i := range vals {
		vals[i] = math.NaN()
	}
	f.numeric[column] = vals
}

// AddLabel declares a label column with every cell missing
func (f *Frame) AddLabel(column string) {
	if _, ok := f.labels[column]; ok {
		return
	}
	f.labels[column] = make([]string, f.cells())
}

// SetNumeric stores a numeric value, declaring the column if needed
func (f *Frame) SetNumeric(column string, session time.Time, entity string, v float64) error {
	if _, ok := f.labels[column]; ok {
		return fmt.Errorf("%w: %s is a label column", ErrColumnType, column)
	}
	i, err := f.index(session, entity)
	if err != nil {
		return err
	}
	f.AddNumeric(column)
	f.numeric[column][i] = v
	return nil
}

// SetLabel stores a label value, declaring the column if needed
func (f *Frame) SetLabel(column string, session time.Time, entity string, v string) error {
	if _, ok := f.numeric[column]; ok {
		return fmt.Errorf("%w: %s is a numeric column", ErrColumnType, column)
	}
	i, err := f.index(session, entity)
	if err != nil {
		return err
	}
	f.AddLabel(column)
	f.labels[column][i] = v
	return nil
}

// FillLabel sets the same label for an entity on every session
// 종목 마스터처럼 날짜별 변화가 없는 속성에 사용
func (f *Frame) FillLabel(column string, entity string, v string) error {
	for _, s := range f.sessions {
		if err := f.SetLabel(column, s, entity, v); err != nil {
			return err
		}
	}
	return nil
}

func (f *Frame) numericColumn(column string) ([]float64, error) {
	if vals, ok := f.numeric[column]; ok {
		return vals, nil
	}
	if _, ok := f.labels[column]; ok {
		return nil, fmt.Errorf("%w: %s is a label column", ErrColumnType, column)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
}

func (f *Frame) labelColumn(column string) ([]string, error) {
	if vals, ok := f.labels[column]; ok {
		return vals, nil
	}
	if _, ok := f.numeric[column]; ok {
		return nil, fmt.Errorf("%w: %s is a numeric column", ErrColumnType, column)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
}

// subset returns a frame restricted to the given sessions, which must all be
// present in f
func (f *Frame) subset(sessions []time.Time, columns []string) (*Frame, error) {
	out := NewFrame(sessions, f.entities)
	for _, col := range columns {
		switch {
		case f.numeric[col] != nil:
			out.AddNumeric(col)
		case f.labels[col] != nil:
			out.AddLabel(col)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
		}
	}

	width := len(f.entities)
	for dst, s := range out.sessions {
		src, ok := f.sessionIdx[SessionKey(s)]
		if !ok {
			return nil, fmt.Errorf("session %s not in frame", SessionKey(s))
		}
		for _, col := range columns {
			if vals, ok := f.numeric[col]; ok {
				copy(out.numeric[col][dst*width:(dst+1)*width], vals[src*width:(src+1)*width])
			} else {
				copy(out.labels[col][dst*width:(dst+1)*width], f.labels[col][src*width:(src+1)*width])
			}
		}
	}
	return out, nil
}
