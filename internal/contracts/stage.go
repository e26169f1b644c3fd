package contracts

// Stage identifies which step of the daily flow emitted a log line or row
//
//   S0 → S1
//   Data  Universe
type Stage string

const (
	// StageData S0: 종목 마스터 / 일별 시세 로딩
	StageData Stage = "S0_DATA"

	// StageUniverse S1: 스크린 평가 및 유니버스 스냅샷
	StageUniverse Stage = "S1_UNIVERSE"
)

func (s Stage) String() string {
	return string(s)
}
