package notify

import (
	"context"
	"log/slog"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/aidenzou-az/polymarket-mm/internal/ports"
)

// LogSink records the same events as Console but as structured slog
// records, for deployments that ship logs to an aggregator instead of
// watching a terminal.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) RecordTrade(_ context.Context, t domain.Trade) error {
	s.log.Info("trade",
		"condition_id", t.ConditionID,
		"token_id", t.TokenID,
		"side", t.Side,
		"price", t.Price.String(),
		"size", t.Size.String(),
		"maker", t.Maker,
	)
	return nil
}

func (s *LogSink) RecordReward(_ context.Context, snap domain.RewardSnapshot) error {
	s.log.Info("quote",
		"condition_id", snap.ConditionID,
		"token_id", snap.TokenID,
		"side", snap.Side,
		"price", snap.Price.String(),
		"size", snap.Size.String(),
	)
	return nil
}

func (s *LogSink) RecordPosition(_ context.Context, snap domain.PositionSnapshot) error {
	s.log.Info("position",
		"condition_id", snap.ConditionID,
		"token_id", snap.TokenID,
		"size", snap.Size.String(),
		"avg_price", snap.AvgPrice.String(),
	)
	return nil
}

// MultiSink fans a single event out to every wrapped Sink, so a
// deployment can run Console and LogSink side by side. The first error
// encountered is returned, but every sink still runs.
type MultiSink struct {
	sinks []ports.Sink
}

func NewMultiSink(sinks ...ports.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordTrade(ctx context.Context, t domain.Trade) error {
	var first error
	for _, s := range m.sinks {
		if err := s.RecordTrade(ctx, t); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) RecordReward(ctx context.Context, snap domain.RewardSnapshot) error {
	var first error
	for _, s := range m.sinks {
		if err := s.RecordReward(ctx, snap); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) RecordPosition(ctx context.Context, snap domain.PositionSnapshot) error {
	var first error
	for _, s := range m.sinks {
		if err := s.RecordPosition(ctx, snap); err != nil && first == nil {
			first = err
		}
	}
	return first
}
