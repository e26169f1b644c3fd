package contracts

import "time"

// Universe represents the screened stocks for one session
// ⭐ SSOT: 유니버스 결과 전달 타입
type Universe struct {
	Date       time.Time         `json:"date"`
	RunID      string            `json:"run_id,omitempty"`
	Screen     string            `json:"screen"`                // canonical screen expression
	Stocks     []string          `json:"stocks"`                // 통과 종목 코드
	Excluded   map[string]string `json:"excluded"`              // 제외 종목: 사유
	TotalCount int               `json:"total_count,omitempty"` // 통과 종목 수
}

// Contains checks if a stock code is in the universe
func (u *Universe) Contains(code string) bool {
	for _, stock := range u.Stocks {
		if stock == code {
			return true
		}
	}
	return false
}

// IsExcluded checks if a stock code is excluded with reason
func (u *Universe) IsExcluded(code string) (bool, string) {
	reason, exists := u.Excluded[code]
	return exists, reason
}

// Count returns the number of screened stocks
func (u *Universe) Count() int {
	return len(u.Stocks)
}
