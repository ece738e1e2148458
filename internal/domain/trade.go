package domain

import (
	"time"

	"github.com/yanun0323/decimal"
)

// Trade is a locally-observed fill, the unit the trade-log sink records.
type Trade struct {
	ID          string
	ConditionID string
	TokenID     string
	Side        Side
	Price       decimal.Decimal
	Size        decimal.Decimal
	Maker       bool
	Timestamp   time.Time
}

// RewardSnapshot is one row of the periodic reward/quote snapshot sink,
// one per open order.
type RewardSnapshot struct {
	ConditionID string
	TokenID     string
	Side        Side
	Price       decimal.Decimal
	Size        decimal.Decimal
	TakenAt     time.Time
}

// PositionSnapshot is one row of the periodic position snapshot sink.
type PositionSnapshot struct {
	ConditionID string
	TokenID     string
	Size        decimal.Decimal
	AvgPrice    decimal.Decimal
	TakenAt     time.Time
}
