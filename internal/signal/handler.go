package signal

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/lunokit/luno-auto-trader/internal/exchange/luno"
	"github.com/lunokit/luno-auto-trader/internal/tradelog"
)

// DefaultQuotePriority is the order in which quote currencies are tried
// when a signal names a bare asset. Earlier entries win when funded.
var DefaultQuotePriority = []string{"USDT", "USDC", "NGN", "ZAR", "USD", "EUR", "GBP"}

// Price offsets applied to the last traded price so limit orders fill
// promptly without crossing at market.
const (
	buyDiscount = 0.99
	sellMarkup  = 1.01
)

// Exchange is the venue surface signal handling needs.
type Exchange interface {
	GetTicker(ctx context.Context, pair string) (*luno.Ticker, error)
	GetBalances(ctx context.Context) (*luno.BalanceResponse, error)
	PlaceOrder(ctx context.Context, pair string, side luno.OrderSide, volume, price float64, orderType string) (*luno.OrderResponse, error)
}

// Request is one inbound trading signal. Pair may be a full market
// ("SOLUSDT") or a bare asset ("SOL") to be resolved against funded
// quote wallets.
type Request struct {
	Signal string  `json:"signal"` // "buy" or "sell"
	Pair   string  `json:"pair"`
	Volume float64 `json:"volume,omitempty"`
}

// Result is the outcome of handling a signal.
type Result struct {
	Status  string  `json:"status"` // "ok" or "error"
	Message string  `json:"message,omitempty"`
	OrderID string  `json:"order_id,omitempty"`
	Pair    string  `json:"pair,omitempty"`
	Price   float64 `json:"price,omitempty"`
	Volume  float64 `json:"volume,omitempty"`
}

// Handler resolves and executes inbound signals.
type Handler struct {
	exchange      func() Exchange
	trades        *tradelog.Log
	defaultPair   string
	quotePriority []string
}

// Config wires a signal handler. Exchange is called per request rather
// than captured once, so a client rebuilt after a credential rotation
// takes effect on the next signal.
type Config struct {
	Exchange      func() Exchange
	TradeLog      *tradelog.Log
	DefaultPair   string
	QuotePriority []string
}

// New creates a signal handler.
func New(cfg Config) *Handler {
	priority := cfg.QuotePriority
	if len(priority) == 0 {
		priority = DefaultQuotePriority
	}
	pair := cfg.DefaultPair
	if pair == "" {
		pair = "XBTNGN"
	}
	return &Handler{
		exchange:      cfg.Exchange,
		trades:        cfg.TradeLog,
		defaultPair:   pair,
		quotePriority: priority,
	}
}

// Handle executes one signal. Rejections come back as structured error
// results; Handle never panics on malformed input.
func (h *Handler) Handle(ctx context.Context, req Request) Result {
	action := strings.ToLower(strings.TrimSpace(req.Signal))
	switch action {
	case "buy":
		return h.handleBuy(ctx, req)
	case "sell":
		return h.handleSell(ctx, req)
	default:
		return errResult(fmt.Sprintf("unknown signal %q, expected buy or sell", req.Signal))
	}
}

func (h *Handler) handleBuy(ctx context.Context, req Request) Result {
	if req.Volume <= 0 {
		return errResult("buy signal requires a positive volume")
	}

	venue := h.exchange()
	pair := h.ResolvePair(ctx, req.Pair)
	tick, err := venue.GetTicker(ctx, pair)
	if err != nil {
		return errResult(fmt.Sprintf("ticker for %s unavailable: %v", pair, err))
	}
	last := tick.LastPrice()
	if last <= 0 {
		return errResult(fmt.Sprintf("no usable price for %s", pair))
	}

	price := last * buyDiscount
	resp, err := venue.PlaceOrder(ctx, pair, luno.SideBuy, req.Volume, price, luno.OrderTypeLimit)
	if err != nil {
		return errResult(fmt.Sprintf("buy order rejected: %v", err))
	}

	h.record(pair, "buy", resp.OrderID, price, req.Volume, "signal_buy")
	return Result{
		Status:  "ok",
		Message: fmt.Sprintf("buy order placed for %s", pair),
		OrderID: resp.OrderID,
		Pair:    pair,
		Price:   price,
		Volume:  req.Volume,
	}
}

func (h *Handler) handleSell(ctx context.Context, req Request) Result {
	venue := h.exchange()
	pair := h.ResolvePair(ctx, req.Pair)
	base := h.baseAsset(pair)

	volume := req.Volume
	// Pre-check the base wallet so obviously unfillable sells are turned
	// away before touching the order endpoint. When balances are
	// unavailable the order is attempted anyway and the venue decides.
	if balances, err := venue.GetBalances(ctx); err != nil {
		log.Printf("signal: balance check unavailable, proceeding: %v", err)
	} else {
		available := balances.AvailableFor(base)
		if available <= 0 {
			return errResult(fmt.Sprintf("no %s available to sell", base))
		}
		if volume <= 0 || volume > available {
			volume = available
		}
	}
	if volume <= 0 {
		return errResult("sell signal requires a positive volume when balances are unavailable")
	}

	tick, err := venue.GetTicker(ctx, pair)
	if err != nil {
		return errResult(fmt.Sprintf("ticker for %s unavailable: %v", pair, err))
	}
	last := tick.LastPrice()
	if last <= 0 {
		return errResult(fmt.Sprintf("no usable price for %s", pair))
	}

	price := last * sellMarkup
	resp, err := venue.PlaceOrder(ctx, pair, luno.SideSell, volume, price, luno.OrderTypeLimit)
	if err != nil {
		return errResult(fmt.Sprintf("sell order rejected: %v", err))
	}

	h.record(pair, "sell", resp.OrderID, price, volume, "signal_sell")
	return Result{
		Status:  "ok",
		Message: fmt.Sprintf("sell order placed for %s", pair),
		OrderID: resp.OrderID,
		Pair:    pair,
		Price:   price,
		Volume:  volume,
	}
}

// ResolvePair turns a signal's pair field into a full market symbol. A
// pair already ending in a known quote passes through unchanged, as does
// a symbol that is itself a known quote. A bare asset gets the
// highest-priority quote whose wallet is funded, falling back to the
// configured default pair's quote. Unknown codes in the priority list
// never match and are simply inert.
func (h *Handler) ResolvePair(ctx context.Context, raw string) string {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return h.defaultPair
	}

	for _, quote := range h.quotePriority {
		if len(symbol) >= len(quote) && strings.HasSuffix(symbol, quote) {
			return symbol
		}
	}

	if balances, err := h.exchange().GetBalances(ctx); err == nil {
		for _, quote := range h.quotePriority {
			if balances.AvailableFor(quote) > 0 {
				return symbol + quote
			}
		}
	} else {
		log.Printf("signal: balance lookup failed during pair resolution: %v", err)
	}

	if quote := h.quoteOf(h.defaultPair); quote != "" {
		return symbol + quote
	}
	return symbol + "NGN"
}

func (h *Handler) quoteOf(pair string) string {
	pair = strings.ToUpper(pair)
	for _, quote := range h.quotePriority {
		if len(pair) > len(quote) && strings.HasSuffix(pair, quote) {
			return quote
		}
	}
	return ""
}

func (h *Handler) baseAsset(pair string) string {
	if quote := h.quoteOf(pair); quote != "" {
		return strings.TrimSuffix(strings.ToUpper(pair), quote)
	}
	return strings.ToUpper(pair)
}

func (h *Handler) record(pair, side, orderID string, price, volume float64, details string) {
	if h.trades == nil {
		return
	}
	if err := h.trades.Append(tradelog.Record{
		Pair:    pair,
		Side:    side,
		OrderID: orderID,
		Price:   price,
		Volume:  volume,
		Details: details,
	}); err != nil {
		log.Printf("signal: failed to append trade log: %v", err)
	}
}

func errResult(msg string) Result {
	return Result{Status: "error", Message: msg}
}
