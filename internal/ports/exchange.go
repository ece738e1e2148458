package ports

import (
	"context"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/yanun0323/decimal"
)

// Exchange is the consumed exchange REST surface. The core never signs
// requests or formats HTTP directly; a concrete implementation wraps
// whatever authenticated transport the deployment provides.
type Exchange interface {
	// CreateOrder submits a post-only limit maker order.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error)

	// CancelAllForToken cancels every resting order on one token. The
	// exchange has no per-side cancel, hence the Reconciler batches
	// cancellations before calling this.
	CancelAllForToken(ctx context.Context, tokenID string) error

	// ListOpenOrders returns every currently open order for the wallet.
	ListOpenOrders(ctx context.Context) ([]ExchangeOrder, error)

	// ListPositions returns every currently held position for the wallet.
	ListPositions(ctx context.Context) ([]ExchangePosition, error)

	// StablecoinBalance returns the available stablecoin balance.
	StablecoinBalance(ctx context.Context) (decimal.Decimal, error)

	// MergeComplementary merges amount microshares of the two
	// complementary tokens of conditionID back into stablecoin. Invoked
	// as an external tool call, not part of the quoting hot path.
	MergeComplementary(ctx context.Context, conditionID string, amountMicroshares int64, negRisk bool) error
}

// CreateOrderRequest is the exchange-agnostic order placement request.
type CreateOrderRequest struct {
	TokenID  string
	Side     domain.Side
	Price    decimal.Decimal
	Size     decimal.Decimal
	PostOnly bool
}

// ExchangeOrder is a resting order as reported by ListOpenOrders.
type ExchangeOrder struct {
	OrderID string
	TokenID string
	Side    domain.Side
	Price   decimal.Decimal
	Size    decimal.Decimal
}

// ExchangePosition is a held position as reported by ListPositions.
type ExchangePosition struct {
	TokenID  string
	Size     decimal.Decimal
	AvgPrice decimal.Decimal
}
