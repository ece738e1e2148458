package state_test

import (
	"testing"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/aidenzou-az/polymarket-mm/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/decimal"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestBookStore_SnapshotThenBest(t *testing.T) {
	s := state.NewBookStore()
	s.ApplySnapshot("tok1", map[string]decimal.Decimal{
		"0.50": d(100),
		"0.49": d(50),
	}, map[string]decimal.Decimal{
		"0.52": d(100),
		"0.53": d(20),
	})

	bid, ask, bidSize, askSize, ok := s.Best("tok1")
	require.True(t, ok)
	assert.True(t, bid.Equal(d(0.50)))
	assert.True(t, ask.Equal(d(0.52)))
	assert.True(t, bidSize.Equal(d(100)))
	assert.True(t, askSize.Equal(d(100)))
}

func TestBookStore_DeltaZeroSizeRemovesLevel(t *testing.T) {
	s := state.NewBookStore()
	s.ApplySnapshot("tok1", map[string]decimal.Decimal{"0.50": d(100)}, map[string]decimal.Decimal{"0.52": d(100)})

	s.ApplyDelta("tok1", domain.SideBuy, "0.50", d(0))
	bid, _, _, _, ok := s.Best("tok1")
	require.True(t, ok)
	assert.True(t, bid.IsZero(), "level with size 0 must be removed, best bid should fall back to empty")
}

func TestBookStore_UnseenTokenNotOK(t *testing.T) {
	s := state.NewBookStore()
	_, _, _, _, ok := s.Best("nope")
	assert.False(t, ok)
}
