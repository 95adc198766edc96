package luno

import (
	"context"
	"encoding/json"
)

// GetBalances returns all account wallet balances. Requires auth.
func (c *Client) GetBalances(ctx context.Context) (*BalanceResponse, error) {
	status, body, err := c.get(ctx, "/balance", nil)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, NewExchangeRejection(status, venueError(body))
	}

	var balances BalanceResponse
	if err := json.Unmarshal(body, &balances); err != nil {
		return nil, NewTransportError("balance", err)
	}
	return &balances, nil
}

// GetOrder returns details for a single order. Requires auth.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderDetails, error) {
	if orderID == "" {
		return nil, NewValidationError("order_id", "order id must not be empty")
	}

	status, body, err := c.get(ctx, "/getorder", urlValues("order_id", orderID))
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, NewExchangeRejection(status, venueError(body))
	}

	var details OrderDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, NewTransportError("getorder", err)
	}
	return &details, nil
}
