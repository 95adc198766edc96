package strategy

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/lunokit/luno-auto-trader/internal/state"
)

// ConfigFile is the persisted strategy configuration document.
const ConfigFile = "strategy_config.json"

// SupportedPairs are the markets the engine will trade.
var SupportedPairs = []string{"XBTNGN", "XRPNGN", "SOLNGN", "ETHNGN", "USDCNGN", "USDTNGN"}

// Config holds the per-asset trading thresholds.
type Config struct {
	BuyDropPct          float64 `json:"buy_drop_pct"`
	SellProfitPct       float64 `json:"sell_profit_pct"`
	StopLossPct         float64 `json:"stop_loss_pct"`
	CompoundReinvestPct float64 `json:"compound_reinvest_pct"`
	Enabled             bool    `json:"enabled"`
}

// DefaultConfig returns the thresholds a pair starts with.
func DefaultConfig() Config {
	return Config{
		BuyDropPct:          3.0,
		SellProfitPct:       10.0,
		StopLossPct:         5.0,
		CompoundReinvestPct: 60.0,
		Enabled:             true,
	}
}

// SellReason identifies which trigger produced a sell signal.
type SellReason string

const (
	ReasonProfitTarget SellReason = "profit_target"
	ReasonStopLoss     SellReason = "stop_loss"
)

// SellSignal is the outcome of a sell evaluation.
type SellSignal struct {
	Sell      bool
	Reason    SellReason
	ProfitPct float64
}

// Describe renders the signal the way it is written to trade logs,
// e.g. "profit_target (10.52%)".
func (s SellSignal) Describe() string {
	return fmt.Sprintf("%s (%.2f%%)", s.Reason, s.ProfitPct)
}

type persistedState struct {
	ActiveCoin string            `json:"active_coin"`
	Coins      map[string]Config `json:"coins"`
}

// Engine evaluates per-asset buy/sell rules against configured thresholds.
// Configuration is persisted after every mutation so other processes
// observe the same rules.
type Engine struct {
	store *state.Store

	mu sync.Mutex
	st persistedState
}

// NewEngine loads the persisted configuration or seeds defaults for every
// supported pair. A corrupt document falls back to defaults and logs; it
// must never take down the owning loop.
func NewEngine(store *state.Store) *Engine {
	e := &Engine{store: store}

	err := store.Load(ConfigFile, &e.st)
	switch {
	case err == nil && e.st.Coins != nil:
		return e
	case err != nil && !os.IsNotExist(err):
		log.Printf("strategy: failed to load %s: %v, falling back to defaults", ConfigFile, err)
	}

	e.st = persistedState{
		ActiveCoin: "USDTNGN",
		Coins:      make(map[string]Config, len(SupportedPairs)),
	}
	for _, pair := range SupportedPairs {
		e.st.Coins[pair] = DefaultConfig()
	}
	e.persistLocked()
	return e
}

// ActiveCoin returns the pair currently live for single-asset flows.
func (e *Engine) ActiveCoin() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st.ActiveCoin == "" {
		return "USDTNGN"
	}
	return e.st.ActiveCoin
}

// SetActiveCoin switches the live pair. Only supported pairs are accepted.
func (e *Engine) SetActiveCoin(pair string) error {
	pair = strings.ToUpper(pair)
	if !IsSupported(pair) {
		return fmt.Errorf("unsupported pair %q, supported: %v", pair, SupportedPairs)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.ActiveCoin = pair
	e.persistLocked()
	return nil
}

// CoinConfig returns the configuration for a pair, creating it with
// defaults on first access.
func (e *Engine) CoinConfig(pair string) Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coinConfigLocked(strings.ToUpper(pair))
}

func (e *Engine) coinConfigLocked(pair string) Config {
	if cfg, ok := e.st.Coins[pair]; ok {
		return cfg
	}
	cfg := DefaultConfig()
	if e.st.Coins == nil {
		e.st.Coins = make(map[string]Config)
	}
	e.st.Coins[pair] = cfg
	e.persistLocked()
	return cfg
}

// UpdateConfig merges partial field updates into a pair's configuration
// and persists the result. Unknown fields are ignored so forward
// compatible callers do not error.
func (e *Engine) UpdateConfig(pair string, fields map[string]interface{}) error {
	pair = strings.ToUpper(pair)
	if !IsSupported(pair) {
		return fmt.Errorf("unsupported pair %q, supported: %v", pair, SupportedPairs)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.coinConfigLocked(pair)
	for key, value := range fields {
		switch key {
		case "buy_drop_pct":
			if f, ok := asFloat(value); ok {
				cfg.BuyDropPct = f
			}
		case "sell_profit_pct":
			if f, ok := asFloat(value); ok {
				cfg.SellProfitPct = f
			}
		case "stop_loss_pct":
			if f, ok := asFloat(value); ok {
				cfg.StopLossPct = f
			}
		case "compound_reinvest_pct":
			if f, ok := asFloat(value); ok {
				cfg.CompoundReinvestPct = clampPct(f)
			}
		case "enabled":
			if b, ok := value.(bool); ok {
				cfg.Enabled = b
			}
		}
	}
	e.st.Coins[pair] = cfg
	e.persistLocked()
	return nil
}

// ShouldBuy reports whether price has dropped far enough below the
// reference price to trigger a buy.
func (e *Engine) ShouldBuy(currentPrice, referencePrice float64, pair string) bool {
	cfg := e.CoinConfig(pair)
	if !cfg.Enabled || referencePrice <= 0 {
		return false
	}

	dropPct := (referencePrice - currentPrice) / referencePrice * 100
	return dropPct >= cfg.BuyDropPct
}

// ShouldSell evaluates the profit-target and stop-loss triggers for an
// open position. The profit target is checked first; the two triggers can
// never fire together because one requires a positive move and the other
// a negative one.
func (e *Engine) ShouldSell(currentPrice, buyPrice float64, pair string) SellSignal {
	cfg := e.CoinConfig(pair)
	if !cfg.Enabled || buyPrice <= 0 {
		return SellSignal{}
	}

	profitPct := (currentPrice - buyPrice) / buyPrice * 100

	if profitPct >= cfg.SellProfitPct {
		return SellSignal{Sell: true, Reason: ReasonProfitTarget, ProfitPct: profitPct}
	}
	if profitPct <= -cfg.StopLossPct {
		return SellSignal{Sell: true, Reason: ReasonStopLoss, ProfitPct: profitPct}
	}
	return SellSignal{ProfitPct: profitPct}
}

// ReinvestSplit divides a realized profit into reinvestment and savings
// amounts per the pair's compound percentage.
func (e *Engine) ReinvestSplit(profit float64, pair string) (reinvest, savings float64) {
	cfg := e.CoinConfig(pair)
	reinvest = profit * clampPct(cfg.CompoundReinvestPct) / 100
	return reinvest, profit - reinvest
}

// IsSupported reports whether the engine trades the given pair.
func IsSupported(pair string) bool {
	for _, p := range SupportedPairs {
		if p == pair {
			return true
		}
	}
	return false
}

func (e *Engine) persistLocked() {
	if err := e.store.Save(ConfigFile, &e.st); err != nil {
		log.Printf("strategy: failed to save config: %v", err)
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	}
	return 0, false
}

func clampPct(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
