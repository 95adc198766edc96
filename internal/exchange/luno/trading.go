package luno

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// PlaceOrder submits a limit or market order. The postorder endpoint
// expects form fields {pair, type: BID|ASK, volume: string, price:
// string(integer), order_type}; price is truncated to whole counter units
// before submission because the venue rejects fractional prices.
//
// In dry-run mode no network call is issued: the returned acknowledgment
// carries a synthetic order id and the exact payload that would have been
// sent, so surrounding logic can be exercised without network access.
func (c *Client) PlaceOrder(ctx context.Context, pair string, side OrderSide, volume, price float64, orderType string) (*OrderResponse, error) {
	if pair == "" {
		return nil, NewValidationError("pair", "pair must not be empty")
	}
	if side != SideBuy && side != SideSell {
		return nil, NewValidationError("side", fmt.Sprintf("side must be %q or %q, got %q", SideBuy, SideSell, side))
	}
	if volume <= 0 {
		return nil, NewValidationError("volume", "volume must be positive")
	}
	if price <= 0 {
		return nil, NewValidationError("price", "price must be positive")
	}
	if orderType != OrderTypeLimit && orderType != OrderTypeMarket {
		return nil, NewValidationError("order_type", fmt.Sprintf("order type must be %q or %q, got %q", OrderTypeLimit, OrderTypeMarket, orderType))
	}

	lunoType := "BID"
	if side == SideSell {
		lunoType = "ASK"
	}

	form := url.Values{}
	form.Set("pair", pair)
	form.Set("type", lunoType)
	form.Set("volume", strconv.FormatFloat(volume, 'f', -1, 64))
	form.Set("price", strconv.FormatInt(int64(price), 10))
	form.Set("order_type", orderType)

	if c.dryRun {
		return &OrderResponse{
			OrderID: "dry-" + uuid.NewString(),
			Status:  "dry_run",
			Payload: form,
		}, nil
	}

	status, body, err := c.postForm(ctx, "/postorder", form)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, NewExchangeRejection(status, venueError(body))
	}

	var resp OrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewTransportError("postorder", err)
	}
	return &resp, nil
}

// CancelOrder attempts to cancel an open order. Respects dry-run.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	if orderID == "" {
		return nil, NewValidationError("order_id", "order id must not be empty")
	}

	if c.dryRun {
		return &OrderResponse{OrderID: orderID, Status: "dry_run"}, nil
	}

	status, body, err := c.postForm(ctx, "/stoporder", urlValues("order_id", orderID))
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, NewExchangeRejection(status, venueError(body))
	}

	var resp OrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewTransportError("stoporder", err)
	}
	if resp.OrderID == "" {
		resp.OrderID = orderID
	}
	return &resp, nil
}

func urlValues(key, value string) url.Values {
	v := url.Values{}
	v.Set(key, value)
	return v
}
