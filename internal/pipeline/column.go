package pipeline

// NumericColumn references a per-entity, per-session numeric field
type NumericColumn string

// LabelColumn references a per-entity, per-session categorical field
type LabelColumn string

func (c NumericColumn) GT(v float64) Filter  { return Compare(string(c), OpGT, v) }
func (c NumericColumn) GTE(v float64) Filter { return Compare(string(c), OpGTE, v) }
func (c NumericColumn) LT(v float64) Filter  { return Compare(string(c), OpLT, v) }
func (c NumericColumn) LTE(v float64) Filter { return Compare(string(c), OpLTE, v) }
func (c NumericColumn) EQ(v float64) Filter  { return Compare(string(c), OpEQ, v) }
func (c NumericColumn) NE(v float64) Filter  { return Compare(string(c), OpNE, v) }

// HasSubstring matches entities whose latest label contains pattern
func (c LabelColumn) HasSubstring(pattern string) Filter {
	return HasSubstring(string(c), pattern)
}
