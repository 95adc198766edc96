package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lunokit/luno-auto-trader/internal/config"
	"github.com/lunokit/luno-auto-trader/internal/credentials"
	"github.com/lunokit/luno-auto-trader/internal/exchange/luno"
	"github.com/lunokit/luno-auto-trader/internal/ledger"
	"github.com/lunokit/luno-auto-trader/internal/logger"
	"github.com/lunokit/luno-auto-trader/internal/monitor"
	"github.com/lunokit/luno-auto-trader/internal/monitoring"
	"github.com/lunokit/luno-auto-trader/internal/notifications"
	"github.com/lunokit/luno-auto-trader/internal/state"
	"github.com/lunokit/luno-auto-trader/internal/strategy"
	"github.com/lunokit/luno-auto-trader/internal/tradelog"
	"github.com/lunokit/luno-auto-trader/internal/trend"
)

// knownQuotes are the quote currencies recognized when splitting a pair
// symbol into base and quote assets.
var knownQuotes = []string{"USDT", "USDC", "NGN", "ZAR", "USD", "EUR", "GBP"}

// Bot drives the trading decision loop: one cycle per interval, each
// cycle refreshing credentials, sampling the market, and evaluating the
// buy and sell rules for the configured pair.
type Bot struct {
	cfg      *config.Config
	creds    *credentials.Store
	engine   *strategy.Engine
	trend    *trend.Analyzer
	ledger   *ledger.Ledger
	trades   *tradelog.Log
	status   *monitor.StatusStore
	states   *state.Store
	notifier notifications.Notifier
	health   *monitoring.HealthChecker
	session  *logger.Logger

	mu            sync.Mutex
	client        *luno.Client
	snap          credentials.Snapshot
	pair          string
	reference     float64
	position      *monitor.Position
	monitorCancel context.CancelFunc
}

// NewBot wires the bot from already-constructed components, restoring
// any open position from the trade log.
func NewBot(
	cfg *config.Config,
	creds *credentials.Store,
	engine *strategy.Engine,
	analyzer *trend.Analyzer,
	compound *ledger.Ledger,
	trades *tradelog.Log,
	status *monitor.StatusStore,
	states *state.Store,
	notifier notifications.Notifier,
	health *monitoring.HealthChecker,
	session *logger.Logger,
) (*Bot, error) {
	snap := creds.Get()
	if !snap.Valid() && !snap.DryRun {
		return nil, fmt.Errorf("no API credentials configured")
	}

	b := &Bot{
		cfg:      cfg,
		creds:    creds,
		engine:   engine,
		trend:    analyzer,
		ledger:   compound,
		trades:   trades,
		status:   status,
		states:   states,
		notifier: notifier,
		health:   health,
		session:  session,
		snap:     snap,
		pair:     snap.Pair,
	}
	b.client = b.buildClient(snap)

	lastBuy, err := trades.LastBuy(b.pair)
	if err != nil {
		return nil, fmt.Errorf("failed to read trade log: %w", err)
	}
	if lastBuy != nil && lastBuy.Volume > 0 && strings.EqualFold(lastBuy.Pair, b.pair) {
		b.position = &monitor.Position{
			Pair:     lastBuy.Pair,
			Volume:   lastBuy.Volume,
			BuyPrice: lastBuy.Price,
			Spent:    lastBuy.Volume * lastBuy.Price,
			OpenedAt: lastBuy.Timestamp,
		}
		log.Printf("bot: restored open position: %v %s bought@%v",
			b.position.Volume, b.position.Pair, b.position.BuyPrice)
	}
	return b, nil
}

func (b *Bot) buildClient(snap credentials.Snapshot) *luno.Client {
	return luno.NewClient(luno.Config{
		APIKey:    snap.APIKey,
		APISecret: snap.APISecret,
		DryRun:    snap.DryRun,
		BaseURL:   b.cfg.Exchange.BaseURL,
		Timeout:   b.cfg.Exchange.Timeout,
	})
}

// Client returns the current exchange client. The instance is replaced,
// never mutated, when credentials rotate.
func (b *Bot) Client() *luno.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client
}

// Run executes the decision loop until ctx is cancelled. Cycles are
// single-flight: a slow cycle delays the next tick rather than
// overlapping it.
func (b *Bot) Run(ctx context.Context) error {
	log.Printf("bot: trading %s every %s (dry_run=%v)", b.pair, b.cfg.Trading.CycleInterval, b.snap.DryRun)

	// Resume watching an open position across restarts.
	if b.position != nil {
		if _, err := b.StartMonitor(ctx); err != nil {
			log.Printf("bot: failed to resume position monitor: %v", err)
		}
	}

	ticker := time.NewTicker(b.cfg.Trading.CycleInterval)
	defer ticker.Stop()

	for {
		if err := b.cycle(ctx); err != nil {
			log.Printf("bot: cycle error: %v", err)
			b.health.RecordError(err.Error())
			monitoring.RecordError("cycle")
		}

		select {
		case <-ctx.Done():
			log.Println("bot: decision loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// cycle performs one decision pass.
func (b *Bot) cycle(ctx context.Context) error {
	b.refreshCredentials()

	b.mu.Lock()
	client := b.client
	pair := b.pair
	b.mu.Unlock()

	tick, err := client.GetTicker(ctx, pair)
	if err != nil {
		b.health.SetConnected(false)
		return fmt.Errorf("ticker: %w", err)
	}
	last := tick.LastPrice()
	if last <= 0 {
		return fmt.Errorf("no usable price for %s", pair)
	}

	asset := baseAsset(pair)
	b.trend.AddPrice(asset, last)
	monitoring.UpdatePrice(pair, last)
	b.health.RecordPrice(last)

	analysis := b.trend.AnalyzeTrend(asset)
	monitoring.UpdateTrendStrength(asset, string(analysis.Trend), analysis.SignalStrength)

	b.mu.Lock()
	pos := b.position
	ref := b.reference
	b.mu.Unlock()

	var holding, entry float64
	if pos != nil {
		holding, entry = pos.Volume, pos.BuyPrice
	}
	b.session.LogMarketStatus(last, ref, string(analysis.Trend), holding, entry)

	if pos != nil {
		sig := b.engine.ShouldSell(last, pos.BuyPrice, pair)
		if sig.Sell {
			return b.sellPosition(ctx, client, tick, pos, sig)
		}
		return nil
	}

	if last > ref {
		b.mu.Lock()
		b.reference = last
		b.mu.Unlock()
		ref = last
	}
	if b.engine.ShouldBuy(last, ref, pair) {
		return b.buy(ctx, client, pair, last)
	}
	return nil
}

// refreshCredentials observes the credential store and reacts to edits:
// new keys rebuild the client, a new pair resets the per-pair working
// state so thresholds never act on another market's history.
func (b *Bot) refreshCredentials() {
	snap := b.creds.Get()

	b.mu.Lock()
	defer b.mu.Unlock()

	if snap == b.snap {
		return
	}

	var changed []string
	if snap.APIKey != b.snap.APIKey || snap.APISecret != b.snap.APISecret || snap.DryRun != b.snap.DryRun {
		b.client = b.buildClient(snap)
		changed = append(changed, "client")
	}
	if snap.Pair != b.snap.Pair {
		b.trend.ClearHistory(baseAsset(b.pair))
		b.pair = snap.Pair
		b.reference = 0
		b.position = nil
		changed = append(changed, "pair")
	}
	b.snap = snap
	b.session.LogCredentialRefresh(changed)
}

// buy spends the configured budget plus any accumulated reinvestment
// balance, capped at the available quote wallet.
func (b *Bot) buy(ctx context.Context, client *luno.Client, pair string, price float64) error {
	quote := quoteAsset(pair)

	budget := b.cfg.Trading.BuyAmountQuote
	reinvest := b.ledger.TotalReinvestable()
	if balances, err := client.GetBalances(ctx); err != nil {
		if budget <= 0 {
			return fmt.Errorf("balance unavailable and no fixed buy amount configured: %w", err)
		}
		log.Printf("bot: balance check unavailable, using configured amount: %v", err)
		budget += reinvest
	} else {
		available := balances.AvailableFor(quote)
		if budget <= 0 || budget > available {
			budget = available
		} else {
			budget += reinvest
			if budget > available {
				budget = available
			}
		}
		if budget <= 0 {
			log.Printf("bot: no %s available to buy %s", quote, pair)
			return nil
		}
	}

	volume := budget / price
	log.Printf("bot: buy trigger for %s: %.8f at %v (budget %.2f %s)", pair, volume, price, budget, quote)

	var resp *luno.OrderResponse
	err := luno.Retry(ctx, luno.DefaultRetryConfig(), func() error {
		var placeErr error
		resp, placeErr = client.PlaceOrder(ctx, pair, luno.SideBuy, volume, price, luno.OrderTypeLimit)
		return placeErr
	})
	if err != nil {
		return fmt.Errorf("buy order: %w", err)
	}

	if err := b.trades.Append(tradelog.Record{
		Pair:    pair,
		Side:    "buy",
		OrderID: resp.OrderID,
		Price:   price,
		Volume:  volume,
		Details: "buy_drop",
	}); err != nil {
		log.Printf("bot: failed to append trade log: %v", err)
	}
	if reinvest > 0 {
		b.ledger.ResetReinvestmentBalance()
	}

	monitoring.RecordTrade(pair, "buy", budget)
	b.health.RecordTrade()
	b.session.LogTradeExecution("BUY", resp.OrderID, volume, price, "buy_drop")
	b.notify("success", fmt.Sprintf("Buy order placed\nPair: %s\nVolume: %.8f\nPrice: %.2f", pair, volume, price))

	b.mu.Lock()
	b.position = &monitor.Position{
		Pair:     pair,
		Volume:   volume,
		BuyPrice: price,
		Spent:    budget,
		OpenedAt: time.Now(),
	}
	b.reference = price
	b.mu.Unlock()

	if _, err := b.StartMonitor(ctx); err != nil {
		log.Printf("bot: failed to start position monitor: %v", err)
	}
	return nil
}

// sellPosition closes the open position at the bid and records the
// profit split when the trade realized a gain.
func (b *Bot) sellPosition(ctx context.Context, client *luno.Client, tick *luno.Ticker, pos *monitor.Position, sig strategy.SellSignal) error {
	bid := tick.BidPrice()
	if bid <= 0 {
		return fmt.Errorf("no usable bid for %s", pos.Pair)
	}

	log.Printf("bot: sell trigger for %s: %s", pos.Pair, sig.Describe())

	var resp *luno.OrderResponse
	err := luno.Retry(ctx, luno.DefaultRetryConfig(), func() error {
		var placeErr error
		resp, placeErr = client.PlaceOrder(ctx, pos.Pair, luno.SideSell, pos.Volume, bid, luno.OrderTypeLimit)
		return placeErr
	})
	if err != nil {
		return fmt.Errorf("sell order: %w", err)
	}

	if err := b.trades.Append(tradelog.Record{
		Pair:    pos.Pair,
		Side:    "sell",
		OrderID: resp.OrderID,
		Price:   bid,
		Volume:  pos.Volume,
		Details: sig.Describe(),
	}); err != nil {
		log.Printf("bot: failed to append trade log: %v", err)
	}

	proceeds := bid * pos.Volume
	profit := proceeds - pos.Spent
	if profit > 0 {
		coinCfg := b.engine.CoinConfig(pos.Pair)
		if entry := b.ledger.RecordProfitSplit(profit, coinCfg.CompoundReinvestPct, resp.OrderID); entry != nil {
			b.session.LogProfitSplit(entry.Profit, entry.Reinvest, entry.Savings, entry.ReinvestPct)
		}
		monitoring.RecordProfit(profit)
	}

	monitoring.RecordTrade(pos.Pair, "sell", proceeds)
	b.health.RecordTrade()
	b.session.LogTradeExecution("SELL", resp.OrderID, pos.Volume, bid, sig.Describe())
	b.notify("success", fmt.Sprintf("Sell order placed (%s)\nPair: %s\nVolume: %.8f\nPrice: %.2f\nProfit: %.2f",
		sig.Reason, pos.Pair, pos.Volume, bid, profit))

	b.mu.Lock()
	b.position = nil
	b.reference = bid
	if b.monitorCancel != nil {
		b.monitorCancel()
		b.monitorCancel = nil
	}
	b.mu.Unlock()
	return nil
}

// StartMonitor launches the auto-sell watcher for the current open
// position. It doubles as the supervisor's restart hook; without an open
// position it reconstructs one from the trade log.
func (b *Bot) StartMonitor(ctx context.Context) (string, error) {
	b.mu.Lock()
	client := b.client
	pair := b.pair
	pos := b.position
	if b.monitorCancel != nil {
		b.monitorCancel()
		b.monitorCancel = nil
	}
	b.mu.Unlock()

	m := monitor.New(monitor.Config{
		Exchange:     client,
		TradeLog:     b.trades,
		Status:       b.status,
		Snapshots:    b.states,
		TargetPct:    b.cfg.Trading.AutoSellTargetPct,
		PollInterval: b.cfg.Trading.MonitorInterval,
	})

	if pos == nil {
		restored, err := m.OpenPositionFromLog(pair)
		if err != nil {
			return "", err
		}
		if restored == nil {
			return "", monitor.ErrNoOpenPosition
		}
		pos = restored
	}

	monCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.monitorCancel = cancel
	b.mu.Unlock()

	go func() {
		defer cancel()
		if err := m.Run(monCtx, *pos); err != nil && monCtx.Err() == nil {
			log.Printf("bot: position monitor exited: %v", err)
		}
	}()
	return m.Handle(), nil
}

func (b *Bot) notify(level, message string) {
	if err := b.notifier.SendAlert(level, message); err != nil {
		log.Printf("bot: failed to send notification: %v", err)
	}
}

func baseAsset(pair string) string {
	pair = strings.ToUpper(pair)
	for _, quote := range knownQuotes {
		if len(pair) > len(quote) && strings.HasSuffix(pair, quote) {
			return strings.TrimSuffix(pair, quote)
		}
	}
	return pair
}

func quoteAsset(pair string) string {
	pair = strings.ToUpper(pair)
	for _, quote := range knownQuotes {
		if len(pair) > len(quote) && strings.HasSuffix(pair, quote) {
			return quote
		}
	}
	return ""
}
