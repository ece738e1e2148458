// Package quote implements the pure quote-computation logic: given a book
// snapshot, a position, the resting orders on each side and the effective
// strategy parameters, it decides what the buy and sell orders on a token
// should look like and whether the resting orders need to be replaced.
//
// Nothing in this package touches the network, the clock (beyond values
// passed in) or shared state. It is deliberately a function of its inputs
// so that every scenario in the trading core's test suite can be expressed
// as a table-driven case.
package quote

import (
	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/yanun0323/decimal"
)

var (
	lowPriceCeiling = decimal.NewFromFloat(0.10)

	buyPriceThreshold  = decimal.NewFromFloat(0.015)
	buySizeThreshold   = decimal.NewFromFloat(0.25)
	sellPriceThreshold = decimal.NewFromFloat(0.05)
	sellSizeThreshold  = decimal.NewFromFloat(0.30)
)

// Input bundles everything the engine needs to price and gate a single
// token's quote for one decision cycle.
type Input struct {
	Market domain.Market
	Trade  domain.TradeConfig
	Params domain.StrategyParameters

	BestBid, BestAsk           decimal.Decimal
	BidSize, AskSize           decimal.Decimal
	HasBid, HasAsk             bool

	Position        domain.Position
	ReversePosition domain.Position
	Orders          domain.OrderPair

	Volatility float64
	RiskOff    bool
}

// Decide computes the desired buy/sell quotes for a token and whether the
// resting orders need to be cancelled and replaced to match them.
func Decide(in Input) domain.Decision {
	tick := decimal.NewFromFloat(in.Market.TickSize)
	minSize := decimal.NewFromFloat(in.Market.MinSize)

	buy := desiredBuy(in, tick, minSize)
	sell := desiredSell(in, tick, minSize)

	// The observed book crossing does not itself cancel a quote; it is
	// only ever a problem if it would leave the engine's own two desired
	// prices crossed against each other. Favor the take-profit exit.
	if buy.Present && sell.Present && !buy.Price.LessThan(sell.Price) {
		buy = domain.DesiredOrder{}
	}

	crossed := in.HasBid && in.HasAsk && !in.BestBid.LessThan(in.BestAsk)

	return domain.Decision{
		TokenID: in.Market.TokenA,
		Buy:     reconcileSide(in.Orders.Buy, buy, buyPriceThreshold, buySizeThreshold),
		Sell:    reconcileSide(in.Orders.Sell, sell, sellPriceThreshold, sellSizeThreshold),
		Crossed: crossed,
	}
}

func desiredBuy(in Input, tick, minSize decimal.Decimal) domain.DesiredOrder {
	if !gateBuy(in) || !in.HasBid || in.BestBid.IsZero() {
		return domain.DesiredOrder{}
	}

	buyPrice := RoundDownToTick(in.BestBid, tick)
	if buyPrice.IsNegative() || buyPrice.IsZero() {
		return domain.DesiredOrder{}
	}

	tradeSize := decimal.NewFromFloat(in.Trade.TradeSize)
	positionNotional := in.Position.Size.Mul(in.Position.AvgPrice)
	maxSize := decimal.NewFromFloat(in.Trade.MaxSize)
	remaining := maxSize.Sub(positionNotional)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	notional := tradeSize
	if remaining.LessThan(notional) {
		notional = remaining
	}
	if notional.IsNegative() || notional.IsZero() {
		return domain.DesiredOrder{}
	}

	shares := notional.Div(buyPrice)
	if buyPrice.LessThan(lowPriceCeiling) && in.Trade.LowPriceMultiplier > 1 {
		shares = shares.Mul(decimal.NewFromFloat(float64(in.Trade.LowPriceMultiplier)))
	}

	if shares.Mul(buyPrice).LessThan(minSize) {
		return domain.DesiredOrder{}
	}

	return domain.DesiredOrder{Present: true, Price: buyPrice, Size: shares}
}

func desiredSell(in Input, tick, minSize decimal.Decimal) domain.DesiredOrder {
	if in.Position.Size.IsZero() || in.Position.AvgPrice.IsZero() {
		return domain.DesiredOrder{}
	}

	tpMultiplier := decimal.NewFromFloat(1 + in.Params.TakeProfitThreshold/100)
	sellPrice := RoundUpToTick(in.Position.AvgPrice.Mul(tpMultiplier), tick)
	if sellPrice.IsNegative() || sellPrice.IsZero() {
		return domain.DesiredOrder{}
	}

	minSharesForSell := decimal.Zero
	if !sellPrice.IsZero() {
		minSharesForSell = minSize.Div(sellPrice)
	}
	if in.Position.Size.LessThan(minSharesForSell) {
		return domain.DesiredOrder{}
	}

	// The take-profit sell always targets the full position, not an
	// incremental slice: trade_size only bounds how much a buy adds per
	// cycle, it has no bearing on how much of the position an exit clears.
	return domain.DesiredOrder{Present: true, Price: sellPrice, Size: in.Position.Size}
}

// gateBuy applies the full checklist a buy must pass before it is desired
// at all. Every condition must hold.
func gateBuy(in Input) bool {
	if in.RiskOff || !in.Market.Enabled || !in.Trade.Enabled {
		return false
	}

	positionNotional := in.Position.Size.Mul(in.Position.AvgPrice)
	if !positionNotional.LessThan(decimal.NewFromFloat(in.Trade.MaxSize)) {
		return false
	}

	hardCap := decimal.NewFromFloat(float64(in.Params.HardCapShares))
	if hardCap.IsPositive() && !in.Position.Size.LessThan(hardCap) {
		return false
	}

	minSize := decimal.NewFromFloat(in.Market.MinSize)
	if in.ReversePosition.Size.GreaterThan(minSize) {
		return false
	}

	if !in.HasBid || !in.HasAsk {
		return false
	}
	// A crossed or locked book (best_bid >= best_ask) is passed through:
	// quoting still proceeds against the literal best bid/ask rather than
	// being guarded off. Decide flags it via Crossed for the Reconciler to
	// log; the negative spread here simply never exceeds MaxSpread.
	spread := in.BestAsk.Sub(in.BestBid)
	spreadFloat, _ := spread.Float64()
	if spreadFloat > in.Market.MaxSpread {
		return false
	}

	if in.Volatility > in.Params.VolatilityThreshold {
		return false
	}

	return true
}

// reconcileSide decides whether the resting order on one side needs to be
// cancelled and/or replaced with the desired order. A side with no resting
// order and nothing desired requires no action; a side with a resting
// order and nothing desired must be cancelled; otherwise the thresholds
// decide whether the drift is worth the cancel-replace round trip.
func reconcileSide(existing *domain.OpenOrder, desired domain.DesiredOrder, priceThreshold, sizeThreshold decimal.Decimal) domain.SideDecision {
	if existing == nil {
		return domain.SideDecision{Replace: desired.Present, Desired: desired}
	}
	if !desired.Present {
		return domain.SideDecision{Replace: true, Desired: desired}
	}

	priceDelta := existing.Price.Sub(desired.Price).Abs()
	if priceDelta.GreaterThan(priceThreshold) {
		return domain.SideDecision{Replace: true, Desired: desired}
	}

	if existing.Size.IsPositive() {
		sizeDelta := existing.Size.Sub(desired.Size).Abs().Div(existing.Size)
		if sizeDelta.GreaterThan(sizeThreshold) {
			return domain.SideDecision{Replace: true, Desired: desired}
		}
	}

	return domain.SideDecision{Replace: false, Desired: desired}
}
