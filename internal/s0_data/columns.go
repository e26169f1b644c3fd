package s0_data

import "github.com/wonny/universe/internal/pipeline"

// Columns served by Loader
// ⭐ SSOT: 스크린에서 참조 가능한 컬럼 이름은 여기서만 정의
const (
	SecurityCategory pipeline.LabelColumn   = "security_category" // data.stocks.category
	Volume           pipeline.NumericColumn = "volume"            // data.daily_prices.volume
	Close            pipeline.NumericColumn = "close"             // data.daily_prices.close_price
)

func isPriceColumn(column string) bool {
	return column == string(Volume) || column == string(Close)
}
