package contracts

import (
	"context"
	"time"
)

// UniverseBuilder creates the screened universe for a session
// ⭐ SSOT: 유니버스 생성 인터페이스
type UniverseBuilder interface {
	Build(ctx context.Context, date time.Time) (*Universe, error)
}

// UniverseStore persists universe snapshots
type UniverseStore interface {
	SaveUniverse(ctx context.Context, universe *Universe) error
	GetLatestUniverse(ctx context.Context) (*Universe, error)
	GetUniverse(ctx context.Context, date time.Time) (*Universe, error)
}
