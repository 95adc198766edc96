package luno

import (
	"net/url"
	"strconv"
)

// OrderSide represents the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// Luno order types accepted by the postorder endpoint.
const (
	OrderTypeLimit  = "limit"
	OrderTypeMarket = "market"
)

// Ticker is the venue ticker payload. Luno encodes prices as strings and
// sometimes omits fields, so every accessor carries an explicit fallback
// order instead of assuming a populated struct.
type Ticker struct {
	Pair      string `json:"pair"`
	Timestamp int64  `json:"timestamp"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	LastTrade string `json:"last_trade"`
}

// BidPrice returns the best bid, falling back to last trade then ask when
// the venue omits the field. Used by the position monitor, which values a
// holding at what it could be sold for.
func (t *Ticker) BidPrice() float64 {
	return firstPositive(t.Bid, t.LastTrade, t.Ask)
}

// LastPrice returns the last traded price, falling back to ask then bid.
// Used by the decision loop as the working market price.
func (t *Ticker) LastPrice() float64 {
	return firstPositive(t.LastTrade, t.Ask, t.Bid)
}

func firstPositive(values ...string) float64 {
	for _, v := range values {
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return 0
}

// AssetBalance is one wallet entry from the balance endpoint.
type AssetBalance struct {
	Asset    string `json:"asset"`
	Balance  string `json:"balance"`
	Reserved string `json:"reserved"`
}

// Available returns balance minus reserved.
func (b *AssetBalance) Available() float64 {
	bal, _ := strconv.ParseFloat(b.Balance, 64)
	res, _ := strconv.ParseFloat(b.Reserved, 64)
	return bal - res
}

// BalanceResponse is the balance endpoint payload.
type BalanceResponse struct {
	Wallet []AssetBalance `json:"balance"`
}

// AvailableFor returns the spendable amount for one asset, or zero when the
// wallet has no entry for it.
func (r *BalanceResponse) AvailableFor(asset string) float64 {
	for i := range r.Wallet {
		if r.Wallet[i].Asset == asset {
			return r.Wallet[i].Available()
		}
	}
	return 0
}

// OrderResponse is the acknowledgment for a placed or cancelled order. In
// dry-run mode Status is "dry_run" and Payload carries the exact form
// fields that would have been submitted.
type OrderResponse struct {
	OrderID string     `json:"order_id"`
	Status  string     `json:"status,omitempty"`
	Payload url.Values `json:"payload,omitempty"`
}

// OrderDetails is the getorder endpoint payload.
type OrderDetails struct {
	OrderID            string `json:"order_id"`
	State              string `json:"state"`
	Type               string `json:"type"`
	LimitPrice         string `json:"limit_price"`
	LimitVolume        string `json:"limit_volume"`
	Base               string `json:"base"`
	Counter            string `json:"counter"`
	CreationTimestamp  int64  `json:"creation_timestamp"`
	CompletedTimestamp int64  `json:"completed_timestamp"`
}
