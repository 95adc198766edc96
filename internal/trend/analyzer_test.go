package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func feedPrices(a *Analyzer, asset string, prices ...float64) {
	for _, p := range prices {
		a.AddPrice(asset, p)
	}
}

func TestAnalyzeTrend_InsufficientData(t *testing.T) {
	a := NewAnalyzer(12, 26)
	feedPrices(a, "XBT", 100, 101, 102)

	analysis := a.AnalyzeTrend("XBT")
	assert.Equal(t, Neutral, analysis.Trend)
	assert.Equal(t, 3, analysis.DataPoints)
	assert.Contains(t, analysis.Message, "insufficient data")
	assert.Zero(t, analysis.SignalStrength)
}

func TestAnalyzeTrend_EMAValues(t *testing.T) {
	a := NewAnalyzer(2, 3)
	feedPrices(a, "XBT", 1, 2, 3, 4)

	analysis := a.AnalyzeTrend("XBT")

	// Short EMA: seed SMA(1,2)=1.5, then k=2/3 folds in 3 and 4.
	assert.InDelta(t, 3.5, analysis.EMAShort, 0.001)
	// Long EMA: seed SMA(1,2,3)=2, then k=1/2 folds in 4.
	assert.InDelta(t, 3.0, analysis.EMALong, 0.001)
	assert.Equal(t, Uptrend, analysis.Trend)
	assert.Equal(t, 4.0, analysis.CurrentPrice)
}

func TestAnalyzeTrend_Downtrend(t *testing.T) {
	a := NewAnalyzer(2, 3)
	feedPrices(a, "SOL", 10, 9, 8, 7, 6)

	analysis := a.AnalyzeTrend("SOL")
	assert.Equal(t, Downtrend, analysis.Trend)
	assert.Greater(t, analysis.SignalStrength, 0.0)
	assert.Less(t, analysis.MomentumPct, 0.0)
}

func TestAnalyzeTrend_FlatIsNeutral(t *testing.T) {
	a := NewAnalyzer(2, 3)
	feedPrices(a, "USDT", 100, 100, 100, 100, 100)

	analysis := a.AnalyzeTrend("USDT")
	assert.Equal(t, Neutral, analysis.Trend)
	assert.Zero(t, analysis.SignalStrength)
}

func TestAddPrice_BoundedHistory(t *testing.T) {
	a := NewAnalyzer(12, 26)
	for i := 0; i < maxHistory+50; i++ {
		a.AddPrice("XBT", float64(i))
	}

	assert.Equal(t, maxHistory, a.DataPoints("XBT"))
}

func TestClearHistory(t *testing.T) {
	a := NewAnalyzer(12, 26)
	feedPrices(a, "XBT", 1, 2, 3)

	a.ClearHistory("XBT")
	assert.Zero(t, a.DataPoints("XBT"))
}

func TestBestBuyCandidate_PicksStrongestDowntrend(t *testing.T) {
	a := NewAnalyzer(2, 3)
	feedPrices(a, "XBT", 100, 99, 98, 97)    // mild downtrend
	feedPrices(a, "SOL", 100, 90, 80, 70)    // steep downtrend
	feedPrices(a, "ETH", 100, 101, 102, 103) // uptrend

	rec := a.BestBuyCandidate([]string{"XBT", "SOL", "ETH"})
	assert.Equal(t, "BUY", rec.Action)
	assert.Equal(t, "SOL", rec.Asset)
	assert.Len(t, rec.Signals, 3)
}

func TestBestBuyCandidate_HoldWhenNoDowntrend(t *testing.T) {
	a := NewAnalyzer(2, 3)
	feedPrices(a, "XBT", 100, 101, 102, 103)
	feedPrices(a, "ETH", 50, 51, 52, 53)

	rec := a.BestBuyCandidate([]string{"XBT", "ETH"})
	assert.Equal(t, "HOLD", rec.Action)
	assert.Empty(t, rec.Asset)
	assert.Contains(t, rec.Reason, "waiting")
}

func TestPredictionSummary_Buckets(t *testing.T) {
	a := NewAnalyzer(2, 3)
	feedPrices(a, "XBT", 100, 101, 102, 103)
	feedPrices(a, "SOL", 100, 90, 80, 70)
	feedPrices(a, "USDT", 1, 1, 1, 1)

	summary := a.PredictionSummary([]string{"XBT", "SOL", "USDT"})
	assert.Len(t, summary.Uptrends, 1)
	assert.Len(t, summary.Downtrends, 1)
	assert.Len(t, summary.Neutrals, 1)
	assert.Equal(t, "BUY", summary.BestBuy.Action)
}

func TestStrength_CappedAt100(t *testing.T) {
	assert.Equal(t, 100.0, strength(250))
	assert.Equal(t, 100.0, strength(-250))
	assert.InDelta(t, 12.5, strength(-12.5), 0.001)
}
