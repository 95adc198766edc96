package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunokit/luno-auto-trader/internal/state"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewEngine(store)
}

func TestNewEngine_SeedsDefaults(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, "USDTNGN", e.ActiveCoin())
	for _, pair := range SupportedPairs {
		cfg := e.CoinConfig(pair)
		assert.Equal(t, 3.0, cfg.BuyDropPct)
		assert.Equal(t, 10.0, cfg.SellProfitPct)
		assert.Equal(t, 5.0, cfg.StopLossPct)
		assert.Equal(t, 60.0, cfg.CompoundReinvestPct)
		assert.True(t, cfg.Enabled)
	}
}

func TestEngine_PersistsAcrossReload(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)

	e := NewEngine(store)
	require.NoError(t, e.SetActiveCoin("SOLNGN"))
	require.NoError(t, e.UpdateConfig("SOLNGN", map[string]interface{}{"buy_drop_pct": 5.5}))

	reloaded := NewEngine(store)
	assert.Equal(t, "SOLNGN", reloaded.ActiveCoin())
	assert.Equal(t, 5.5, reloaded.CoinConfig("SOLNGN").BuyDropPct)
}

func TestEngine_SetActiveCoin_RejectsUnsupported(t *testing.T) {
	e := newTestEngine(t)

	err := e.SetActiveCoin("DOGEUSD")
	require.Error(t, err)
	assert.Equal(t, "USDTNGN", e.ActiveCoin())
}

func TestEngine_UpdateConfig_PartialMerge(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.UpdateConfig("XBTNGN", map[string]interface{}{
		"sell_profit_pct": 12.0,
		"enabled":         false,
		"no_such_field":   "ignored",
	}))

	cfg := e.CoinConfig("XBTNGN")
	assert.Equal(t, 12.0, cfg.SellProfitPct)
	assert.False(t, cfg.Enabled)
	// Untouched fields keep their previous values.
	assert.Equal(t, 3.0, cfg.BuyDropPct)
	assert.Equal(t, 5.0, cfg.StopLossPct)
}

func TestEngine_UpdateConfig_ClampsReinvestPct(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.UpdateConfig("XBTNGN", map[string]interface{}{"compound_reinvest_pct": 150.0}))
	assert.Equal(t, 100.0, e.CoinConfig("XBTNGN").CompoundReinvestPct)

	require.NoError(t, e.UpdateConfig("XBTNGN", map[string]interface{}{"compound_reinvest_pct": -10.0}))
	assert.Equal(t, 0.0, e.CoinConfig("XBTNGN").CompoundReinvestPct)
}

func TestEngine_ShouldBuy(t *testing.T) {
	e := newTestEngine(t)

	// Default threshold is a 3% drop from the reference price.
	assert.True(t, e.ShouldBuy(97, 100, "XBTNGN"))
	assert.True(t, e.ShouldBuy(90, 100, "XBTNGN"))
	assert.False(t, e.ShouldBuy(98, 100, "XBTNGN"))
	assert.False(t, e.ShouldBuy(103, 100, "XBTNGN"))
	assert.False(t, e.ShouldBuy(97, 0, "XBTNGN"), "no reference price, no trigger")
}

func TestEngine_ShouldBuy_DisabledPair(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.UpdateConfig("XBTNGN", map[string]interface{}{"enabled": false}))

	assert.False(t, e.ShouldBuy(90, 100, "XBTNGN"))
}

func TestEngine_ShouldSell_ProfitTarget(t *testing.T) {
	e := newTestEngine(t)

	sig := e.ShouldSell(110, 100, "XBTNGN")
	assert.True(t, sig.Sell)
	assert.Equal(t, ReasonProfitTarget, sig.Reason)
	assert.InDelta(t, 10.0, sig.ProfitPct, 0.001)
	assert.Equal(t, "profit_target (10.00%)", sig.Describe())
}

func TestEngine_ShouldSell_StopLoss(t *testing.T) {
	e := newTestEngine(t)

	sig := e.ShouldSell(95, 100, "XBTNGN")
	assert.True(t, sig.Sell)
	assert.Equal(t, ReasonStopLoss, sig.Reason)
	assert.InDelta(t, -5.0, sig.ProfitPct, 0.001)
}

func TestEngine_ShouldSell_NeitherTrigger(t *testing.T) {
	e := newTestEngine(t)

	sig := e.ShouldSell(102, 100, "XBTNGN")
	assert.False(t, sig.Sell)
	assert.InDelta(t, 2.0, sig.ProfitPct, 0.001)
}

func TestEngine_ShouldSell_TriggersMutuallyExclusive(t *testing.T) {
	e := newTestEngine(t)

	// One evaluation can only ever report a single reason: the profit
	// target needs a positive move, the stop loss a negative one.
	for price := 80.0; price <= 120.0; price++ {
		sig := e.ShouldSell(price, 100, "XBTNGN")
		if !sig.Sell {
			continue
		}
		if sig.ProfitPct >= 0 {
			assert.Equal(t, ReasonProfitTarget, sig.Reason, "price %v", price)
		} else {
			assert.Equal(t, ReasonStopLoss, sig.Reason, "price %v", price)
		}
	}
}

func TestEngine_ReinvestSplit(t *testing.T) {
	e := newTestEngine(t)

	reinvest, savings := e.ReinvestSplit(100, "XBTNGN")
	assert.InDelta(t, 60.0, reinvest, 0.001)
	assert.InDelta(t, 40.0, savings, 0.001)
	assert.InDelta(t, 100.0, reinvest+savings, 0.001)
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("XBTNGN"))
	assert.True(t, IsSupported("USDTNGN"))
	assert.False(t, IsSupported("BTCUSDT"))
}
