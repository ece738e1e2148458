// Package notify implements ports.Sink: append-only destinations for
// trade fills, reward/quote snapshots, and position snapshots. Nothing
// here feeds back into the trading core, so a failing sink degrades
// observability, never quoting.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
)

// Console prints trades and position snapshots as human-readable lines
// and reward snapshots as small tables. It is meant for an operator
// watching a terminal, not for durable storage.
type Console struct {
	out io.Writer

	mu       sync.Mutex
	tradeRow int
}

// NewConsole returns a Console writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter returns a Console writing to w, for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

func (c *Console) RecordTrade(_ context.Context, t domain.Trade) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	role := "taker"
	if t.Maker {
		role = "maker"
	}
	c.tradeRow++
	fmt.Fprintf(c.out, "[%s] trade #%d %s %s %s price=%s size=%s (%s)\n",
		t.Timestamp.Format("15:04:05"), c.tradeRow, t.ConditionID, t.Side, role,
		t.Price.String(), t.Size.String(), t.TokenID)
	return nil
}

// RecordReward prints one reward snapshot (a single resting order) as a
// one-row table.
func (c *Console) RecordReward(_ context.Context, s domain.RewardSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	table := tablewriter.NewWriter(c.out)
	table.Header("Taken", "Condition", "Token", "Side", "Price", "Size")
	table.Append(
		s.TakenAt.Format("15:04:05"),
		s.ConditionID,
		s.TokenID,
		string(s.Side),
		s.Price.String(),
		s.Size.String(),
	)
	table.Render()
	return nil
}

func (c *Console) RecordPosition(_ context.Context, s domain.PositionSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "[%s] position %s %s size=%s avg=%s\n",
		s.TakenAt.Format("15:04:05"), s.ConditionID, s.TokenID, s.Size.String(), s.AvgPrice.String())
	return nil
}
