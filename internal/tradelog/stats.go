package tradelog

import (
	"strings"
	"time"
)

// PairStats is the replayed P/L for one trading pair.
type PairStats struct {
	Pair        string  `json:"pair"`
	Trades      int     `json:"trades"`
	BuyCount    int     `json:"buy_count"`
	SellCount   int     `json:"sell_count"`
	TotalBought float64 `json:"total_bought"`
	TotalSold   float64 `json:"total_sold"`
	PnL         float64 `json:"pnl"`
	PnLPct      float64 `json:"pnl_pct"`
}

// TotalStats is the replayed P/L across all pairs.
type TotalStats struct {
	TotalTrades int       `json:"total_trades"`
	UniquePairs int       `json:"unique_pairs"`
	TotalBought float64   `json:"total_bought"`
	TotalSold   float64   `json:"total_sold"`
	PnL         float64   `json:"pnl"`
	PnLPct      float64   `json:"pnl_pct"`
	Timestamp   time.Time `json:"timestamp"`
}

// DailyStats is the replayed P/L for one calendar day.
type DailyStats struct {
	Bought float64 `json:"bought"`
	Sold   float64 `json:"sold"`
	Trades int     `json:"trades"`
	PnL    float64 `json:"pnl"`
	PnLPct float64 `json:"pnl_pct"`
}

// ComputePairStats replays the log for one pair.
func (l *Log) ComputePairStats(pair string) (PairStats, error) {
	records, err := l.ReadAll()
	if err != nil {
		return PairStats{}, err
	}

	stats := PairStats{Pair: pair}
	for _, r := range records {
		if !strings.EqualFold(r.Pair, pair) {
			continue
		}
		stats.Trades++
		switch {
		case isBuy(r.Side):
			stats.BuyCount++
			stats.TotalBought += r.Price * r.Volume
		case isSell(r.Side):
			stats.SellCount++
			stats.TotalSold += r.Price * r.Volume
		}
	}
	stats.PnL = stats.TotalSold - stats.TotalBought
	if stats.TotalBought > 0 {
		stats.PnLPct = stats.PnL / stats.TotalBought * 100
	}
	return stats, nil
}

// ComputeTotalStats replays the whole log.
func (l *Log) ComputeTotalStats() (TotalStats, error) {
	records, err := l.ReadAll()
	if err != nil {
		return TotalStats{}, err
	}

	stats := TotalStats{Timestamp: time.Now()}
	pairs := make(map[string]struct{})
	for _, r := range records {
		stats.TotalTrades++
		if r.Pair != "" {
			pairs[strings.ToUpper(r.Pair)] = struct{}{}
		}
		switch {
		case isBuy(r.Side):
			stats.TotalBought += r.Price * r.Volume
		case isSell(r.Side):
			stats.TotalSold += r.Price * r.Volume
		}
	}
	stats.UniquePairs = len(pairs)
	stats.PnL = stats.TotalSold - stats.TotalBought
	if stats.TotalBought > 0 {
		stats.PnLPct = stats.PnL / stats.TotalBought * 100
	}
	return stats, nil
}

// ComputeDailyStats replays the log grouped by calendar day
// (YYYY-MM-DD keys).
func (l *Log) ComputeDailyStats() (map[string]DailyStats, error) {
	records, err := l.ReadAll()
	if err != nil {
		return nil, err
	}

	daily := make(map[string]DailyStats)
	for _, r := range records {
		if r.Timestamp.IsZero() {
			continue
		}
		key := r.Timestamp.Format("2006-01-02")
		day := daily[key]
		day.Trades++
		switch {
		case isBuy(r.Side):
			day.Bought += r.Price * r.Volume
		case isSell(r.Side):
			day.Sold += r.Price * r.Volume
		}
		daily[key] = day
	}

	for key, day := range daily {
		day.PnL = day.Sold - day.Bought
		if day.Bought > 0 {
			day.PnLPct = day.PnL / day.Bought * 100
		}
		daily[key] = day
	}
	return daily, nil
}
