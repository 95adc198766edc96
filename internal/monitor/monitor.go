package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lunokit/luno-auto-trader/internal/exchange/luno"
	"github.com/lunokit/luno-auto-trader/internal/state"
	"github.com/lunokit/luno-auto-trader/internal/tradelog"
)

// SnapshotFile is the monitoring snapshot persisted every poll iteration
// so external observers always see fresh numbers.
const SnapshotFile = "auto_sell_state.json"

// DefaultPollInterval is how often the monitor re-reads the ticker.
const DefaultPollInterval = 30 * time.Second

// ErrNoOpenPosition reports that the trade log holds no buy still
// awaiting its sell, so there is nothing to watch.
var ErrNoOpenPosition = errors.New("no open position to monitor")

// Exchange is the venue surface the monitor needs.
type Exchange interface {
	GetTicker(ctx context.Context, pair string) (*luno.Ticker, error)
	PlaceOrder(ctx context.Context, pair string, side luno.OrderSide, volume, price float64, orderType string) (*luno.OrderResponse, error)
}

// Position is a single open holding being watched to its profit target.
// Created when a buy is confirmed, owned exclusively by the monitor until
// the matching sell completes.
type Position struct {
	Pair     string    `json:"pair"`
	Volume   float64   `json:"volume"`
	BuyPrice float64   `json:"buy_price"`
	Spent    float64   `json:"spent"`
	OpenedAt time.Time `json:"opened_at"`
}

// Snapshot is the per-iteration monitoring record.
type Snapshot struct {
	Pair         string    `json:"pair"`
	Bid          float64   `json:"bid"`
	Volume       float64   `json:"volume"`
	BuyPrice     float64   `json:"buy_price"`
	Spent        float64   `json:"spent"`
	CurrentValue float64   `json:"current_value"`
	Profit       float64   `json:"profit"`
	ProfitPct    float64   `json:"profit_pct"`
	TargetPct    float64   `json:"target_pct"`
	Held         bool      `json:"held"`
	Sold         bool      `json:"sold"`
	SellOrderID  string    `json:"sell_order_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Monitor watches one open position and sells at most once when the
// profit target is reached. It coordinates with the supervisor purely
// through the persisted status record, never through in-process locks,
// so a crash here cannot take down the rest of the system.
type Monitor struct {
	handle       string
	exchange     Exchange
	trades       *tradelog.Log
	status       *StatusStore
	snapshots    *state.Store
	targetPct    float64
	pollInterval time.Duration
}

// Config wires a monitor instance.
type Config struct {
	Exchange     Exchange
	TradeLog     *tradelog.Log
	Status       *StatusStore
	Snapshots    *state.Store
	TargetPct    float64
	PollInterval time.Duration
}

// New creates a monitor instance with a fresh ownership handle.
func New(cfg Config) *Monitor {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		handle:       uuid.NewString(),
		exchange:     cfg.Exchange,
		trades:       cfg.TradeLog,
		status:       cfg.Status,
		snapshots:    cfg.Snapshots,
		targetPct:    cfg.TargetPct,
		pollInterval: interval,
	}
}

// Handle returns the instance's ownership handle as recorded in the
// status record.
func (m *Monitor) Handle() string {
	return m.handle
}

// OpenPositionFromLog reconstructs the position to watch from the most
// recent buy still awaiting its sell. The pair recorded in the log takes
// precedence over the configured pair so the position is never valued on
// a different market. Returns nil when no open buy exists, including
// when the last buy was already closed by a sell.
func (m *Monitor) OpenPositionFromLog(configuredPair string) (*Position, error) {
	lastBuy, err := m.trades.LastBuy(configuredPair)
	if err != nil {
		return nil, err
	}
	if lastBuy == nil || lastBuy.Volume <= 0 {
		return nil, nil
	}

	pair := lastBuy.Pair
	if pair == "" {
		pair = configuredPair
	}
	return &Position{
		Pair:     pair,
		Volume:   lastBuy.Volume,
		BuyPrice: lastBuy.Price,
		Spent:    lastBuy.Volume * lastBuy.Price,
		OpenedAt: lastBuy.Timestamp,
	}, nil
}

// Run watches the position until the sell fires or ctx is cancelled. It
// registers itself in the status record on entry and clears the running
// flag on clean exit. Iterations are strictly sequential: an iteration
// still in flight is never re-entered.
func (m *Monitor) Run(ctx context.Context, pos Position) error {
	if pos.Spent == 0 {
		pos.Spent = pos.Volume * pos.BuyPrice
	}

	m.status.MarkStarted(m.handle, m.targetPct)
	defer m.status.MarkStopped(m.handle)

	log.Printf("monitor: watching %s volume=%v bought@%v (spent %.2f) target=%.2f%%",
		pos.Pair, pos.Volume, pos.BuyPrice, pos.Spent, m.targetPct)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		done, err := m.iterate(ctx, pos)
		if err != nil {
			log.Printf("monitor: iteration failed: %v", err)
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// iterate performs one poll: value the position, persist the snapshot,
// and place the sell exactly once when the target is met and the pair is
// not held. Done means the watch is over, either because the sell went
// through or because another instance took ownership.
func (m *Monitor) iterate(ctx context.Context, pos Position) (bool, error) {
	m.status.RefreshHeartbeat(m.handle)

	tick, err := m.exchange.GetTicker(ctx, pos.Pair)
	if err != nil {
		// Transient poll failure: skip this iteration, the next poll
		// will retry.
		return false, err
	}

	bid := tick.BidPrice()
	currentValue := bid * pos.Volume
	profit := currentValue - pos.Spent
	profitPct := 0.0
	if pos.Spent != 0 {
		profitPct = profit / pos.Spent * 100
	}

	held := m.status.Load().IsHeld(pos.Pair)
	snap := Snapshot{
		Pair:         pos.Pair,
		Bid:          bid,
		Volume:       pos.Volume,
		BuyPrice:     pos.BuyPrice,
		Spent:        pos.Spent,
		CurrentValue: currentValue,
		Profit:       profit,
		ProfitPct:    profitPct,
		TargetPct:    m.targetPct,
		Held:         held,
		UpdatedAt:    time.Now(),
	}

	if profitPct < m.targetPct || held {
		if held && profitPct >= m.targetPct {
			log.Printf("monitor: %s hit %.2f%% but is held, not selling", pos.Pair, profitPct)
		}
		m.persistSnapshot(snap)
		return false, nil
	}

	// Ownership is re-verified at the point of sale: a replaced instance
	// caught mid-iteration must not race its successor into a duplicate
	// sell.
	if current := m.status.Load(); current.Handle != m.handle {
		log.Printf("monitor: handle %s superseded by %s, standing down", m.handle, current.Handle)
		return true, nil
	}

	log.Printf("monitor: target reached (%.2f%% >= %.2f%%), selling %v %s at %v",
		profitPct, m.targetPct, pos.Volume, pos.Pair, bid)

	var resp *luno.OrderResponse
	err = luno.Retry(ctx, luno.DefaultRetryConfig(), func() error {
		var placeErr error
		resp, placeErr = m.exchange.PlaceOrder(ctx, pos.Pair, luno.SideSell, pos.Volume, bid, luno.OrderTypeLimit)
		return placeErr
	})
	if err != nil {
		// The sell did not go through; keep watching.
		m.persistSnapshot(snap)
		return false, fmt.Errorf("failed to place sell order: %w", err)
	}

	if err := m.trades.Append(tradelog.Record{
		Timestamp: time.Now(),
		Pair:      pos.Pair,
		Side:      "sell",
		OrderID:   resp.OrderID,
		Price:     bid,
		Volume:    pos.Volume,
		Details:   fmt.Sprintf("auto_sell_target_%.1fpct", m.targetPct),
	}); err != nil {
		log.Printf("monitor: failed to append trade log: %v", err)
	}

	snap.Sold = true
	snap.SellOrderID = resp.OrderID
	m.persistSnapshot(snap)

	log.Printf("monitor: auto-sell complete (order %s)", resp.OrderID)
	return true, nil
}

func (m *Monitor) persistSnapshot(snap Snapshot) {
	if err := m.snapshots.Save(SnapshotFile, &snap); err != nil {
		log.Printf("monitor: failed to persist snapshot: %v", err)
	}
}
