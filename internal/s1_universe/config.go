package s1_universe

import (
	"fmt"

	"github.com/wonny/universe/internal/pipeline"
)

// Mask modes
const (
	MaskNone   = "none"   // initial universe supplied by the caller
	MaskCommon = "common" // volume window masked by CommonStocks()
)

// Config selects the screen the builder runs
type Config struct {
	MaskMode   string `yaml:"mask_mode"`
	ScreenFile string `yaml:"screen_file"` // overrides the built-in screen when set
}

// Screen returns the filter described by the config
func (c Config) Screen() (pipeline.Filter, error) {
	if c.ScreenFile != "" {
		f, err := pipeline.LoadScreen(c.ScreenFile)
		if err != nil {
			return pipeline.Filter{}, fmt.Errorf("load screen %s: %w", c.ScreenFile, err)
		}
		return f, nil
	}

	switch c.MaskMode {
	case MaskCommon:
		return BaseUniverse(WithCommonStocksMask()), nil
	case MaskNone:
		// 외부 마스크 없이 사용할 때는 CommonStocks 를 스크린에 직접 결합
		return CommonStocks().And(BaseUniverse()), nil
	default:
		return pipeline.Filter{}, fmt.Errorf("unknown mask mode %q", c.MaskMode)
	}
}
