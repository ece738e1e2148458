package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aidenzou-az/polymarket-mm/internal/ports"
)

func TestClassifyMaker_NoAddressConfiguredLeavesTaker(t *testing.T) {
	s := &UserStream{creds: Credentials{}}
	evt := ports.UserEvent{Side: "BUY"}
	s.classifyMaker(&evt, wireUserEvent{
		Side: "BUY",
		Maker: []struct {
			OrderID       string `json:"order_id"`
			MakerAddress  string `json:"maker_address"`
			Outcome       string `json:"outcome"`
			MatchedAmount string `json:"matched_amount"`
			Price         string `json:"price"`
		}{{MakerAddress: "0xabc", MatchedAmount: "5", Price: "0.5"}},
	})
	assert.False(t, evt.IsMaker)
}

func TestClassifyMaker_AddressMatchSameOutcomeFlipsSide(t *testing.T) {
	s := &UserStream{creds: Credentials{Address: "0xABC"}}
	evt := ports.UserEvent{Side: "SELL", Price: "0.6", Size: "10"}
	f := wireUserEvent{
		Side:    "SELL",
		Outcome: "YES",
		Maker: []struct {
			OrderID       string `json:"order_id"`
			MakerAddress  string `json:"maker_address"`
			Outcome       string `json:"outcome"`
			MatchedAmount string `json:"matched_amount"`
			Price         string `json:"price"`
		}{{MakerAddress: "0xabc", Outcome: "YES", MatchedAmount: "3", Price: "0.55"}},
	}
	s.classifyMaker(&evt, f)

	assert.True(t, evt.IsMaker)
	assert.False(t, evt.Complementary)
	assert.Equal(t, "BUY", evt.Side)
	assert.Equal(t, "3", evt.Size)
	assert.Equal(t, "0.55", evt.Price)
}

func TestClassifyMaker_AddressMatchDifferentOutcomeMarksComplementary(t *testing.T) {
	s := &UserStream{creds: Credentials{Address: "0xabc"}}
	evt := ports.UserEvent{Side: "BUY"}
	f := wireUserEvent{
		Side:    "BUY",
		Outcome: "YES",
		Maker: []struct {
			OrderID       string `json:"order_id"`
			MakerAddress  string `json:"maker_address"`
			Outcome       string `json:"outcome"`
			MatchedAmount string `json:"matched_amount"`
			Price         string `json:"price"`
		}{{MakerAddress: "0xABC", Outcome: "NO", MatchedAmount: "4", Price: "0.4"}},
	}
	s.classifyMaker(&evt, f)

	assert.True(t, evt.IsMaker)
	assert.True(t, evt.Complementary)
	assert.Equal(t, "BUY", evt.Side) // unflipped: the taker's reported side is already correct
}

func TestClassifyMaker_NoAddressMatchLeavesTaker(t *testing.T) {
	s := &UserStream{creds: Credentials{Address: "0xdead"}}
	evt := ports.UserEvent{Side: "BUY"}
	f := wireUserEvent{
		Maker: []struct {
			OrderID       string `json:"order_id"`
			MakerAddress  string `json:"maker_address"`
			Outcome       string `json:"outcome"`
			MatchedAmount string `json:"matched_amount"`
			Price         string `json:"price"`
		}{{MakerAddress: "0xbeef"}},
	}
	s.classifyMaker(&evt, f)
	assert.False(t, evt.IsMaker)
}

func TestFlipSide(t *testing.T) {
	assert.Equal(t, "SELL", flipSide("BUY"))
	assert.Equal(t, "BUY", flipSide("sell"))
	assert.Equal(t, "", flipSide(""))
}
