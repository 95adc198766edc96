package monitor

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunokit/luno-auto-trader/internal/exchange/luno"
	"github.com/lunokit/luno-auto-trader/internal/state"
	"github.com/lunokit/luno-auto-trader/internal/tradelog"
)

type placedOrder struct {
	Pair   string
	Side   luno.OrderSide
	Volume float64
	Price  float64
}

// stubExchange serves a scripted sequence of bid prices and records
// every order it receives. The final price repeats once the script is
// exhausted.
type stubExchange struct {
	mu     sync.Mutex
	bids   []float64
	idx    int
	orders []placedOrder
}

func (s *stubExchange) GetTicker(ctx context.Context, pair string) (*luno.Ticker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bid := s.bids[s.idx]
	if s.idx < len(s.bids)-1 {
		s.idx++
	}
	return &luno.Ticker{Pair: pair, Bid: strconv.FormatFloat(bid, 'f', -1, 64)}, nil
}

func (s *stubExchange) PlaceOrder(ctx context.Context, pair string, side luno.OrderSide, volume, price float64, orderType string) (*luno.OrderResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, placedOrder{Pair: pair, Side: side, Volume: volume, Price: price})
	return &luno.OrderResponse{OrderID: "sell-1"}, nil
}

func (s *stubExchange) placed() []placedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]placedOrder(nil), s.orders...)
}

func newTestMonitor(t *testing.T, exchange Exchange, targetPct float64) (*Monitor, *StatusStore, *state.Store, *tradelog.Log) {
	t.Helper()
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	status := NewStatusStore(store)
	trades := tradelog.NewLog(filepath.Join(store.Dir(), "trades.csv"))
	m := New(Config{
		Exchange:     exchange,
		TradeLog:     trades,
		Status:       status,
		Snapshots:    store,
		TargetPct:    targetPct,
		PollInterval: time.Millisecond,
	})
	return m, status, store, trades
}

func TestMonitor_SellsExactlyOnceAtTarget(t *testing.T) {
	exchange := &stubExchange{bids: []float64{98, 99, 101, 102}}
	m, status, store, trades := newTestMonitor(t, exchange, 2.0)

	pos := Position{Pair: "XBTNGN", Volume: 10, BuyPrice: 100, Spent: 1000}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Run(ctx, pos))

	orders := exchange.placed()
	require.Len(t, orders, 1, "the sell must fire exactly once")
	assert.Equal(t, luno.SideSell, orders[0].Side)
	assert.Equal(t, 10.0, orders[0].Volume)
	assert.Equal(t, 102.0, orders[0].Price, "sells at the first bid meeting the target")

	// Clean exit clears the running flag but keeps the handle.
	st := status.Load()
	assert.False(t, st.Running)
	assert.Equal(t, m.Handle(), st.Handle)
	assert.False(t, st.Heartbeat.IsZero())

	// Final snapshot records the completed sell.
	var snap Snapshot
	require.NoError(t, store.Load(SnapshotFile, &snap))
	assert.True(t, snap.Sold)
	assert.Equal(t, "sell-1", snap.SellOrderID)
	assert.InDelta(t, 2.0, snap.ProfitPct, 0.001)

	// The sell lands in the trade log with the target note.
	records, err := trades.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "sell", records[0].Side)
	assert.Equal(t, "auto_sell_target_2.0pct", records[0].Details)
}

func TestMonitor_HeldPairNeverSold(t *testing.T) {
	exchange := &stubExchange{bids: []float64{150}}
	m, status, store, _ := newTestMonitor(t, exchange, 2.0)

	status.SetHeld("XBTNGN", true)
	pos := Position{Pair: "XBTNGN", Volume: 10, BuyPrice: 100, Spent: 1000}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := m.Run(ctx, pos)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Empty(t, exchange.placed(), "held pairs are never sold automatically")

	// Polling continued: snapshots kept flowing while held.
	var snap Snapshot
	require.NoError(t, store.Load(SnapshotFile, &snap))
	assert.True(t, snap.Held)
	assert.False(t, snap.Sold)
	assert.Greater(t, snap.ProfitPct, 2.0)
}

func TestMonitor_ZeroSpentReportsZeroProfit(t *testing.T) {
	exchange := &stubExchange{bids: []float64{100}}
	m, _, store, _ := newTestMonitor(t, exchange, 2.0)

	pos := Position{Pair: "XBTNGN", Volume: 0, BuyPrice: 0, Spent: 0}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_ = m.Run(ctx, pos)

	var snap Snapshot
	require.NoError(t, store.Load(SnapshotFile, &snap))
	assert.Zero(t, snap.ProfitPct)
}

func TestMonitor_OpenPositionFromLog(t *testing.T) {
	exchange := &stubExchange{bids: []float64{100}}
	m, _, _, trades := newTestMonitor(t, exchange, 2.0)

	require.NoError(t, trades.Append(tradelog.Record{
		Pair: "SOLNGN", Side: "buy", OrderID: "o1", Price: 50, Volume: 2,
	}))

	pos, err := m.OpenPositionFromLog("XBTNGN")
	require.NoError(t, err)
	require.NotNil(t, pos)

	// The logged pair wins over the configured one.
	assert.Equal(t, "SOLNGN", pos.Pair)
	assert.Equal(t, 2.0, pos.Volume)
	assert.InDelta(t, 100.0, pos.Spent, 0.001)
}

func TestMonitor_OpenPositionFromLog_ClosedBySell(t *testing.T) {
	exchange := &stubExchange{bids: []float64{100}}
	m, _, _, trades := newTestMonitor(t, exchange, 2.0)

	require.NoError(t, trades.Append(tradelog.Record{
		Pair: "XBTNGN", Side: "buy", OrderID: "o1", Price: 100, Volume: 1,
	}))
	require.NoError(t, trades.Append(tradelog.Record{
		Pair: "XBTNGN", Side: "sell", OrderID: "o2", Price: 110, Volume: 1,
	}))

	pos, err := m.OpenPositionFromLog("XBTNGN")
	require.NoError(t, err)
	assert.Nil(t, pos, "a buy closed by its sell leaves nothing to watch")
}

func TestMonitor_ReplacedInstanceStandsDown(t *testing.T) {
	exchange := &stubExchange{bids: []float64{150}}
	m, status, _, trades := newTestMonitor(t, exchange, 2.0)

	status.MarkStarted(m.Handle(), 2.0)
	status.MarkStarted("replacement", 2.0)

	pos := Position{Pair: "XBTNGN", Volume: 10, BuyPrice: 100, Spent: 1000}
	done, err := m.iterate(context.Background(), pos)
	require.NoError(t, err)
	assert.True(t, done, "a superseded instance stops watching")
	assert.Empty(t, exchange.placed(), "only the owning instance may sell")

	records, err := trades.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMonitor_OpenPositionFromLog_Empty(t *testing.T) {
	exchange := &stubExchange{bids: []float64{100}}
	m, _, _, _ := newTestMonitor(t, exchange, 2.0)

	pos, err := m.OpenPositionFromLog("XBTNGN")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestStatusStore_HeldPairsSurviveRestarts(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	status := NewStatusStore(store)

	status.SetHeld("xbtngn", true)
	status.MarkStarted("handle-1", 2.0)
	status.MarkStopped("handle-1")
	status.MarkStarted("handle-2", 2.0)

	st := status.Load()
	assert.True(t, st.Running)
	assert.Equal(t, "handle-2", st.Handle)
	assert.True(t, st.IsHeld("XBTNGN"), "held set survives start/stop cycles")

	status.SetHeld("XBTNGN", false)
	assert.False(t, status.Load().IsHeld("XBTNGN"))
}

func TestStatusStore_StaleHandleIgnored(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	status := NewStatusStore(store)

	status.MarkStarted("current", 2.0)
	before := status.Load().Heartbeat

	time.Sleep(time.Millisecond)
	status.RefreshHeartbeat("replaced")
	assert.Equal(t, before, status.Load().Heartbeat, "stale handles cannot refresh the heartbeat")

	status.MarkStopped("replaced")
	assert.True(t, status.Load().Running, "stale handles cannot stop the current instance")
}
