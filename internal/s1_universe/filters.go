package s1_universe

import (
	"github.com/wonny/universe/internal/pipeline"
	"github.com/wonny/universe/internal/s0_data"
)

// Screen thresholds
const (
	WindowLength   = 21 // ≈ 1 trading month
	MinVolume      = 0  // strictly greater
	MinClose       = 1.00
	DomesticCommon = "Domestic Common"
	Secondary      = "Secondary"
)

// Fields are the data columns the universe filters read
type Fields struct {
	Category pipeline.LabelColumn
	Volume   pipeline.NumericColumn
	Close    pipeline.NumericColumn
}

// DefaultFields reads the securities master and daily prices served by s0_data
var DefaultFields = Fields{
	Category: s0_data.SecurityCategory,
	Volume:   s0_data.Volume,
	Close:    s0_data.Close,
}

// CommonStocks limits to domestic common stocks, excluding secondary shares
func (f Fields) CommonStocks() pipeline.Filter {
	return f.Category.HasSubstring(DomesticCommon).
		And(f.Category.HasSubstring(Secondary).Not())
}

// Option configures BaseUniverse
type Option func(*options)

type options struct {
	mask       *pipeline.Filter
	maskCommon bool
}

// WithMask restricts the volume window to entities passing mask
func WithMask(mask pipeline.Filter) Option {
	return func(o *options) {
		o.mask = &mask
		o.maskCommon = false
	}
}

// WithCommonStocksMask restricts the volume window to CommonStocks()
func WithCommonStocksMask() Option {
	return func(o *options) {
		o.mask = nil
		o.maskCommon = true
	}
}

// BaseUniverse selects stocks with positive volume and a close above MinClose
// on each of the last WindowLength sessions
//
// Without options the volume window is unmasked and the caller is expected
// to supply the initial universe.
func (f Fields) BaseUniverse(opts ...Option) pipeline.Filter {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var volumeOpts []pipeline.WindowOption
	switch {
	case o.maskCommon:
		volumeOpts = append(volumeOpts, pipeline.WithMask(f.CommonStocks()))
	case o.mask != nil:
		volumeOpts = append(volumeOpts, pipeline.WithMask(*o.mask))
	}

	traded := f.Volume.GT(MinVolume).All(WindowLength, volumeOpts...)
	return f.Close.GT(MinClose).All(WindowLength, pipeline.WithMask(traded))
}

// CommonStocks builds the common-stock filter on DefaultFields
func CommonStocks() pipeline.Filter {
	return DefaultFields.CommonStocks()
}

// BaseUniverse builds the base universe filter on DefaultFields
func BaseUniverse(opts ...Option) pipeline.Filter {
	return DefaultFields.BaseUniverse(opts...)
}
