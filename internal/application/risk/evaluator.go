// Package risk implements the pure Risk Evaluator: given a position, the
// current mid price/spread and a volatility reading, it decides whether a
// market should be tripped into risk-off and, if so, at what price the
// existing position should be liquidated.
package risk

import (
	"time"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/yanun0323/decimal"
)

// Input bundles the readings the evaluator needs for one market.
type Input struct {
	ConditionID string
	Position    domain.Position
	BestBid     decimal.Decimal
	Mid         decimal.Decimal
	Spread      float64
	Volatility  float64
	Params      domain.StrategyParameters
	Now         time.Time
}

// Verdict is the evaluator's output. Tripped is false unless one of the
// two triggers fires; Liquidate is only meaningful when Tripped is true.
type Verdict struct {
	Tripped   bool
	Record    domain.RiskOffRecord
	Liquidate domain.DesiredOrder
}

// Evaluate checks the stop-loss and volatility triggers against a single
// market's current readings. Stop-loss only fires while the spread is
// tight enough that the mid price is trustworthy; a wide spread suppresses
// it rather than firing on a stale or illiquid quote.
func Evaluate(in Input) Verdict {
	if in.Position.Size.IsZero() || in.Position.AvgPrice.IsZero() {
		return Verdict{}
	}

	reason, tripped := checkStopLoss(in)
	if !tripped {
		if in.Volatility > in.Params.VolatilityThreshold {
			reason, tripped = domain.RiskOffVolatility, true
		}
	}
	if !tripped {
		return Verdict{}
	}

	sleepUntil := in.Now.Add(time.Duration(in.Params.SleepPeriodHours * float64(time.Hour)))
	return Verdict{
		Tripped: true,
		Record: domain.RiskOffRecord{
			ConditionID: in.ConditionID,
			SleepUntil:  sleepUntil,
			Reason:      reason,
		},
		Liquidate: domain.DesiredOrder{
			Present: true,
			Price:   in.BestBid,
			Size:    in.Position.Size,
		},
	}
}

func checkStopLoss(in Input) (domain.RiskOffReason, bool) {
	if in.Spread > in.Params.SpreadThreshold {
		return "", false
	}

	diff := in.Mid.Sub(in.Position.AvgPrice)
	pnlPct, _ := diff.Div(in.Position.AvgPrice).Mul(decimal.NewFromFloat(100)).Float64()
	if pnlPct < in.Params.StopLossThreshold {
		return domain.RiskOffStopLoss, true
	}
	return "", false
}
