package luno

import (
	"context"
	"encoding/json"
	"net/url"
)

// GetTicker fetches the current ticker for a trading pair.
func (c *Client) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	if pair == "" {
		return nil, NewValidationError("pair", "pair must not be empty")
	}

	params := url.Values{}
	params.Set("pair", pair)

	status, body, err := c.get(ctx, "/ticker", params)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, NewExchangeRejection(status, venueError(body))
	}

	var ticker Ticker
	if err := json.Unmarshal(body, &ticker); err != nil {
		return nil, NewTransportError("ticker", err)
	}
	return &ticker, nil
}

// venueError extracts the {error} field from a non-2xx body, falling back
// to the raw body when it is not the documented JSON shape.
func venueError(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return string(body)
}
