package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidFilter is returned when a filter tree is structurally malformed
var ErrInvalidFilter = errors.New("invalid filter")

// Kind tags the variant held by a Filter
type Kind string

const (
	KindCompare   Kind = "compare"   // column op value
	KindSubstring Kind = "substring" // label column contains pattern
	KindAnd       Kind = "and"
	KindNot       Kind = "not"
	KindAll       Kind = "all" // predicate held on every session of a trailing window
)

// Op is a numeric comparison operator
type Op string

const (
	OpGT  Op = ">"
	OpGTE Op = ">="
	OpLT  Op = "<"
	OpLTE Op = "<="
	OpEQ  Op = "=="
	OpNE  Op = "!="
)

func (o Op) valid() bool {
	switch o {
	case OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNE:
		return true
	}
	return false
}

func (o Op) apply(v, threshold float64) bool {
	switch o {
	case OpGT:
		return v > threshold
	case OpGTE:
		return v >= threshold
	case OpLT:
		return v < threshold
	case OpLTE:
		return v <= threshold
	case OpEQ:
		return v == threshold
	case OpNE:
		return v != threshold
	}
	return false
}

// Filter is a deferred boolean expression over entities and sessions
// ⭐ SSOT: 스크린 표현식은 이 타입으로만 표현
//
// A Filter encodes criteria, not a materialized result. Values are treated as
// immutable: combinators copy operands and never modify their receiver.
type Filter struct {
	Kind     Kind     `yaml:"kind" json:"kind"`
	Column   string   `yaml:"column,omitempty" json:"column,omitempty"`
	Op       Op       `yaml:"op,omitempty" json:"op,omitempty"`
	Value    float64  `yaml:"value,omitempty" json:"value,omitempty"`
	Pattern  string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Window   int      `yaml:"window,omitempty" json:"window,omitempty"`
	Operands []Filter `yaml:"operands,omitempty" json:"operands,omitempty"`
	Mask     *Filter  `yaml:"mask,omitempty" json:"mask,omitempty"`
}

// Compare builds a threshold filter on the latest value of a numeric column
func Compare(column string, op Op, value float64) Filter {
	return Filter{Kind: KindCompare, Column: column, Op: op, Value: value}
}

// HasSubstring builds a filter matching label values that contain pattern
func HasSubstring(column, pattern string) Filter {
	return Filter{Kind: KindSubstring, Column: column, Pattern: pattern}
}

// And returns the conjunction of all given filters
func And(filters ...Filter) Filter {
	return Filter{Kind: KindAnd, Operands: cloneAll(filters)}
}

// Not returns the logical inverse of f
func Not(f Filter) Filter {
	return Filter{Kind: KindNot, Operands: []Filter{f.clone()}}
}

// And returns f combined with others
func (f Filter) And(others ...Filter) Filter {
	return And(append([]Filter{f}, others...)...)
}

// Not returns the logical inverse of f
func (f Filter) Not() Filter {
	return Not(f)
}

// WindowOption configures a windowed reduction
type WindowOption func(*Filter)

// WithMask restricts a windowed reduction to entities passing mask
func WithMask(mask Filter) WindowOption {
	return func(f *Filter) {
		m := mask.clone()
		f.Mask = &m
	}
}

// All returns a filter that is true when f held on every one of the trailing
// window sessions
func (f Filter) All(window int, opts ...WindowOption) Filter {
	out := Filter{Kind: KindAll, Window: window, Operands: []Filter{f.clone()}}
	for _, opt := range opts {
		opt(&out)
	}
	return out
}

func (f Filter) clone() Filter {
	out := f
	out.Operands = cloneAll(f.Operands)
	if f.Mask != nil {
		m := f.Mask.clone()
		out.Mask = &m
	}
	return out
}

func cloneAll(filters []Filter) []Filter {
	if filters == nil {
		return nil
	}
	out := make([]Filter, len(filters))
	for i, f := range filters {
		out[i] = f.clone()
	}
	return out
}

// Validate checks the structure of the filter tree
func (f Filter) Validate() error {
	switch f.Kind {
	case KindCompare:
		if f.Column == "" {
			return fmt.Errorf("%w: compare without column", ErrInvalidFilter)
		}
		if !f.Op.valid() {
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, f.Op)
		}
	case KindSubstring:
		if f.Column == "" {
			return fmt.Errorf("%w: substring without column", ErrInvalidFilter)
		}
		if f.Pattern == "" {
			return fmt.Errorf("%w: empty substring pattern on %s", ErrInvalidFilter, f.Column)
		}
	case KindAnd:
		if len(f.Operands) == 0 {
			return fmt.Errorf("%w: and without operands", ErrInvalidFilter)
		}
	case KindNot:
		if len(f.Operands) != 1 {
			return fmt.Errorf("%w: not takes one operand, got %d", ErrInvalidFilter, len(f.Operands))
		}
	case KindAll:
		if len(f.Operands) != 1 {
			return fmt.Errorf("%w: all takes one operand, got %d", ErrInvalidFilter, len(f.Operands))
		}
		if f.Window < 1 {
			return fmt.Errorf("%w: window length must be positive, got %d", ErrInvalidFilter, f.Window)
		}
		if f.Mask != nil {
			if err := f.Mask.Validate(); err != nil {
				return fmt.Errorf("mask: %w", err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidFilter, f.Kind)
	}

	for i, op := range f.Operands {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("%s operand %d: %w", f.Kind, i, err)
		}
	}
	return nil
}

// String renders the filter in a canonical form
// Two filters with the same rendering evaluate identically on any frame.
func (f Filter) String() string {
	var sb strings.Builder
	f.write(&sb)
	return sb.String()
}

func (f Filter) write(sb *strings.Builder) {
	switch f.Kind {
	case KindCompare:
		sb.WriteString(f.Column)
		sb.WriteByte(' ')
		sb.WriteString(string(f.Op))
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(f.Value, 'g', -1, 64))
	case KindSubstring:
		sb.WriteString(f.Column)
		sb.WriteString(" has_substring ")
		sb.WriteString(strconv.Quote(f.Pattern))
	case KindAnd:
		if len(f.Operands) == 1 {
			f.Operands[0].write(sb)
			return
		}
		sb.WriteByte('(')
		for i, op := range f.Operands {
			if i > 0 {
				sb.WriteString(" & ")
			}
			op.write(sb)
		}
		sb.WriteByte(')')
	case KindNot:
		sb.WriteByte('~')
		if len(f.Operands) == 1 {
			f.Operands[0].write(sb)
		}
	case KindAll:
		sb.WriteString("all(")
		sb.WriteString(strconv.Itoa(f.Window))
		sb.WriteString(", ")
		if len(f.Operands) == 1 {
			f.Operands[0].write(sb)
		}
		if f.Mask != nil {
			sb.WriteString(", mask=")
			f.Mask.write(sb)
		}
		sb.WriteByte(')')
	default:
		sb.WriteString("<")
		sb.WriteString(string(f.Kind))
		sb.WriteString(">")
	}
}

// Equal reports whether two filters are structurally equal
func Equal(a, b Filter) bool {
	return a.String() == b.String()
}

// Columns returns the sorted set of columns referenced anywhere in the tree
func (f Filter) Columns() []string {
	seen := make(map[string]struct{})
	f.collectColumns(seen)

	cols := make([]string, 0, len(seen))
	for c := range seen {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func (f Filter) collectColumns(seen map[string]struct{}) {
	if f.Column != "" {
		seen[f.Column] = struct{}{}
	}
	for _, op := range f.Operands {
		op.collectColumns(seen)
	}
	if f.Mask != nil {
		f.Mask.collectColumns(seen)
	}
}

// Lookback returns how many sessions before the first output session must be
// loaded for every window in the tree to be fully populated
func (f Filter) Lookback() int {
	n := 0
	for _, op := range f.Operands {
		if lb := op.Lookback(); lb > n {
			n = lb
		}
	}
	if f.Kind == KindAll {
		n += f.Window - 1
		if f.Mask != nil {
			if lb := f.Mask.Lookback(); lb > n {
				n = lb
			}
		}
	}
	return n
}

// Hash returns a SHA-256 of the canonical form, so filters that are Equal
// share a hash
func (f Filter) Hash() (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(f.String()))
	return hex.EncodeToString(sum[:]), nil
}
