package trend

import (
	"fmt"
	"sync"
	"time"
)

// Direction classifies the relationship between the short and long EMA.
type Direction string

const (
	Uptrend   Direction = "UPTREND"
	Downtrend Direction = "DOWNTREND"
	Neutral   Direction = "NEUTRAL"
)

// Default EMA periods, the usual MACD-style pairing.
const (
	DefaultShortPeriod = 12
	DefaultLongPeriod  = 26
)

// noiseBand is the guard band around EMA equality: the short EMA must
// clear the long EMA by 0.2% before a trend is called.
const noiseBand = 0.002

// maxHistory bounds the per-asset price buffer. Must stay at least twice
// the longest EMA period in use.
const maxHistory = 100

// Analysis is the outcome of a trend evaluation for one asset.
type Analysis struct {
	Asset          string
	Trend          Direction
	EMAShort       float64
	EMALong        float64
	CurrentPrice   float64
	MomentumPct    float64
	SignalStrength float64
	DataPoints     int
	Message        string // set when there is not enough data for a signal
}

// Recommendation is the outcome of a best-buy scan across assets.
type Recommendation struct {
	Action  string // "BUY" or "HOLD"
	Asset   string
	Reason  string
	Signals []Analysis
}

// Summary buckets all analyzed assets by direction.
type Summary struct {
	Timestamp  time.Time
	Uptrends   []Analysis
	Downtrends []Analysis
	Neutrals   []Analysis
	BestBuy    Recommendation
}

// Analyzer maintains bounded per-asset price history and derives trend and
// momentum from a short and a long EMA. History lives only in memory and
// is rebuilt from live ticks after a restart.
type Analyzer struct {
	shortPeriod int
	longPeriod  int

	mu      sync.Mutex
	history map[string][]float64
}

// NewAnalyzer creates an analyzer with the given EMA periods.
func NewAnalyzer(shortPeriod, longPeriod int) *Analyzer {
	return &Analyzer{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		history:     make(map[string][]float64),
	}
}

// AddPrice records a price observation for an asset, evicting the oldest
// sample once the buffer is full.
func (a *Analyzer) AddPrice(asset string, price float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prices := append(a.history[asset], price)
	if len(prices) > maxHistory {
		prices = prices[len(prices)-maxHistory:]
	}
	a.history[asset] = prices
}

// ClearHistory drops the buffered prices for an asset, used when the
// traded pair changes and old samples would poison the EMAs.
func (a *Analyzer) ClearHistory(asset string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.history, asset)
}

// DataPoints returns the number of buffered samples for an asset.
func (a *Analyzer) DataPoints(asset string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.history[asset])
}

// AnalyzeTrend evaluates the current trend for one asset. With fewer than
// longPeriod samples it reports Neutral with an explicit insufficient-data
// message rather than fabricating a signal.
func (a *Analyzer) AnalyzeTrend(asset string) Analysis {
	a.mu.Lock()
	prices := append([]float64(nil), a.history[asset]...)
	a.mu.Unlock()

	if len(prices) < a.longPeriod {
		return Analysis{
			Asset:      asset,
			Trend:      Neutral,
			DataPoints: len(prices),
			Message:    fmt.Sprintf("insufficient data (%d prices, need %d)", len(prices), a.longPeriod),
		}
	}

	emaShort := ema(prices, a.shortPeriod)
	emaLong := ema(prices, a.longPeriod)
	current := prices[len(prices)-1]
	momentum := (current - emaLong) / emaLong * 100

	analysis := Analysis{
		Asset:        asset,
		EMAShort:     emaShort,
		EMALong:      emaLong,
		CurrentPrice: current,
		MomentumPct:  momentum,
		DataPoints:   len(prices),
	}

	switch {
	case emaShort > emaLong*(1+noiseBand):
		analysis.Trend = Uptrend
		analysis.SignalStrength = strength(momentum)
	case emaShort < emaLong*(1-noiseBand):
		analysis.Trend = Downtrend
		analysis.SignalStrength = strength(momentum)
	default:
		analysis.Trend = Neutral
	}
	return analysis
}

// BestBuyCandidate picks, among assets currently in a downtrend, the one
// with the strongest signal. When nothing is in a downtrend it returns an
// explicit HOLD recommendation instead of guessing.
func (a *Analyzer) BestBuyCandidate(assets []string) Recommendation {
	signals := make([]Analysis, 0, len(assets))
	var best *Analysis
	for _, asset := range assets {
		analysis := a.AnalyzeTrend(asset)
		signals = append(signals, analysis)
		if analysis.Trend != Downtrend {
			continue
		}
		if best == nil || analysis.SignalStrength > best.SignalStrength {
			copied := analysis
			best = &copied
		}
	}

	if best == nil {
		return Recommendation{
			Action:  "HOLD",
			Reason:  "no strong downtrend signals; consider waiting",
			Signals: signals,
		}
	}
	return Recommendation{
		Action:  "BUY",
		Asset:   best.Asset,
		Reason:  fmt.Sprintf("strong %s with signal strength %.1f%%", best.Trend, best.SignalStrength),
		Signals: signals,
	}
}

// PredictionSummary analyzes every asset and buckets the results.
func (a *Analyzer) PredictionSummary(assets []string) Summary {
	summary := Summary{Timestamp: time.Now(), BestBuy: a.BestBuyCandidate(assets)}
	for _, analysis := range summary.BestBuy.Signals {
		switch analysis.Trend {
		case Uptrend:
			summary.Uptrends = append(summary.Uptrends, analysis)
		case Downtrend:
			summary.Downtrends = append(summary.Downtrends, analysis)
		default:
			summary.Neutrals = append(summary.Neutrals, analysis)
		}
	}
	return summary
}

// ema computes the exponential moving average over prices: seeded with
// the simple average of the first period samples, then folded forward
// with k = 2/(period+1).
func ema(prices []float64, period int) float64 {
	if len(prices) < period {
		return 0
	}

	sum := 0.0
	for _, p := range prices[:period] {
		sum += p
	}
	value := sum / float64(period)

	k := 2.0 / float64(period+1)
	for _, p := range prices[period:] {
		value = p*k + value*(1-k)
	}
	return value
}

func strength(momentum float64) float64 {
	s := momentum
	if s < 0 {
		s = -s
	}
	if s > 100 {
		return 100
	}
	return s
}
