// Package exchange implements ports.Exchange against the CLOB REST
// surface. It never signs a request itself: callers provide an
// AuthTransport that attaches whatever headers or signatures the
// deployment's wallet setup requires. Rate limiting and retry-with-jitter
// follow the same shape regardless of what sits behind that transport.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/aidenzou-az/polymarket-mm/internal/ports"
	"github.com/yanun0323/decimal"
)

const (
	defaultBase = "https://clob.polymarket.com"

	// Outbound request rates per second: one limiter for order-management
	// calls, one for every other endpoint.
	ordersRatePerSec  = 30
	generalRatePerSec = 60

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client is a rate-limited, retrying ports.Exchange implementation.
type Client struct {
	log  *slog.Logger
	http *http.Client
	base string

	ordersLimiter  *rate.Limiter
	generalLimiter *rate.Limiter
}

// New returns a Client. base defaults to the production CLOB REST
// endpoint if empty. authTransport wraps the outbound request with
// whatever signing scheme the deployment uses; a nil transport leaves
// http.DefaultTransport in place, which only works against endpoints
// that need no signature (order placement will fail without one).
func New(log *slog.Logger, base string, authTransport http.RoundTripper) *Client {
	if base == "" {
		base = defaultBase
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}
	if authTransport != nil {
		httpClient.Transport = authTransport
	}
	return &Client{
		log:            log,
		http:           httpClient,
		base:           base,
		ordersLimiter:  rate.NewLimiter(ordersRatePerSec, 5),
		generalLimiter: rate.NewLimiter(generalRatePerSec, 10),
	}
}

func (c *Client) CreateOrder(ctx context.Context, req ports.CreateOrderRequest) (string, error) {
	// one client order id per call, reused by every retry attempt, lets a
	// retried POST (5xx, timeout) be deduplicated exchange-side instead of
	// risking a double order.
	body := createOrderRequest{
		ClientOrderID: uuid.NewString(),
		TokenID:       req.TokenID,
		Side:          string(req.Side),
		Price:         req.Price.String(),
		Size:          req.Size.String(),
		PostOnly:      req.PostOnly,
	}
	var out createOrderResponse
	if err := c.post(ctx, c.ordersLimiter, "/order", body, &out); err != nil {
		return "", fmt.Errorf("exchange: create order: %w", err)
	}
	return out.OrderID, nil
}

func (c *Client) CancelAllForToken(ctx context.Context, tokenID string) error {
	var out struct{}
	if err := c.post(ctx, c.ordersLimiter, "/cancel-all", cancelAllRequest{TokenID: tokenID}, &out); err != nil {
		return fmt.Errorf("exchange: cancel all for token %s: %w", tokenID, err)
	}
	return nil
}

func (c *Client) ListOpenOrders(ctx context.Context) ([]ports.ExchangeOrder, error) {
	var wire []wireOrder
	if err := c.get(ctx, c.generalLimiter, "/orders?state=open", &wire); err != nil {
		return nil, fmt.Errorf("exchange: list open orders: %w", err)
	}
	out := make([]ports.ExchangeOrder, 0, len(wire))
	for _, o := range wire {
		price, err := decimal.NewFromString(o.Price)
		if err != nil {
			c.log.Warn("exchange: skipping order with bad price", "order_id", o.OrderID)
			continue
		}
		size, err := decimal.NewFromString(o.Size)
		if err != nil {
			c.log.Warn("exchange: skipping order with bad size", "order_id", o.OrderID)
			continue
		}
		out = append(out, ports.ExchangeOrder{
			OrderID: o.OrderID,
			TokenID: o.TokenID,
			Side:    domain.Side(o.Side),
			Price:   price,
			Size:    size,
		})
	}
	return out, nil
}

func (c *Client) ListPositions(ctx context.Context) ([]ports.ExchangePosition, error) {
	var wire []wirePosition
	if err := c.get(ctx, c.generalLimiter, "/positions", &wire); err != nil {
		return nil, fmt.Errorf("exchange: list positions: %w", err)
	}
	out := make([]ports.ExchangePosition, 0, len(wire))
	for _, p := range wire {
		size, err := decimal.NewFromString(p.Size)
		if err != nil {
			c.log.Warn("exchange: skipping position with bad size", "token_id", p.TokenID)
			continue
		}
		avgPrice, err := decimal.NewFromString(p.AvgPrice)
		if err != nil {
			c.log.Warn("exchange: skipping position with bad avg price", "token_id", p.TokenID)
			continue
		}
		out = append(out, ports.ExchangePosition{TokenID: p.TokenID, Size: size, AvgPrice: avgPrice})
	}
	return out, nil
}

func (c *Client) StablecoinBalance(ctx context.Context) (decimal.Decimal, error) {
	var out struct {
		Balance string `json:"balance"`
	}
	if err := c.get(ctx, c.generalLimiter, "/balance", &out); err != nil {
		return decimal.Zero, fmt.Errorf("exchange: stablecoin balance: %w", err)
	}
	balance, err := decimal.NewFromString(out.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("exchange: stablecoin balance: bad value %q", out.Balance)
	}
	return balance, nil
}

func (c *Client) MergeComplementary(ctx context.Context, conditionID string, amountMicroshares int64, negRisk bool) error {
	var out struct{}
	req := mergeRequest{ConditionID: conditionID, Amount: amountMicroshares, NegRisk: negRisk}
	if err := c.post(ctx, c.generalLimiter, "/merge", req, &out); err != nil {
		return fmt.Errorf("exchange: merge complementary %s: %w", conditionID, err)
	}
	return nil
}

type createOrderRequest struct {
	ClientOrderID string `json:"client_order_id"`
	TokenID       string `json:"token_id"`
	Side          string `json:"side"`
	Price         string `json:"price"`
	Size          string `json:"size"`
	PostOnly      bool   `json:"post_only"`
}

type createOrderResponse struct {
	OrderID string `json:"order_id"`
}

type cancelAllRequest struct {
	TokenID string `json:"token_id"`
}

type mergeRequest struct {
	ConditionID string `json:"condition_id"`
	Amount      int64  `json:"amount"`
	NegRisk     bool   `json:"neg_risk"`
}

type wireOrder struct {
	OrderID string `json:"order_id"`
	TokenID string `json:"token_id"`
	Side    string `json:"side"`
	Price   string `json:"price"`
	Size    string `json:"size"`
}

type wirePosition struct {
	TokenID  string `json:"token_id"`
	Size     string `json:"size"`
	AvgPrice string `json:"avg_price"`
}

func (c *Client) get(ctx context.Context, limiter *rate.Limiter, path string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

func (c *Client) post(ctx context.Context, limiter *rate.Limiter, path string, body, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry drives one request to completion, retrying transport
// failures, 429s and 5xxs with backoff and giving up immediately on a
// 4xx. Every error it returns wraps a sentinel kind (ErrTransport,
// ErrExchangeSemantic or ErrInvariant); callers in reconcile/actor.go log
// that kind and treat every kind alike, leaving the next trigger to try
// again.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %v", domain.ErrTransport, err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("%w: request failed after %d retries: %v", domain.ErrTransport, maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("%w: rate limited after %d retries", domain.ErrTransport, maxRetries)
			}
			c.log.Warn("exchange: rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("%w: server error %d after %d retries", domain.ErrTransport, resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("%w: client error %d: %s", domain.ErrExchangeSemantic, resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", domain.ErrInvariant, err)
		}
		return nil
	}
	return fmt.Errorf("%w: exhausted %d retries", domain.ErrTransport, maxRetries)
}

// sleep waits out one backoff step under full jitter: a random duration
// in [0, 2^attempt * baseRetryWait) rather than the deterministic delay
// itself, so many per-market actors retrying at once don't all wake in
// lockstep and re-hammer the same rate limit.
func (c *Client) sleep(ctx context.Context, attempt int) {
	ceiling := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	wait := time.Duration(rand.Int63n(int64(ceiling)))
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
