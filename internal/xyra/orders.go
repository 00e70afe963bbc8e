package xyra

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"perpdesk/internal/model"
	"perpdesk/internal/types"

	json "github.com/goccy/go-json"
)

// BuildOrder asks the API for the entry-function payload that places the
// encoded order for userAddress. The payload is returned undecoded.
func (c *Client) BuildOrder(ctx context.Context, p model.EncodedOrderPayload, userAddress string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("marketId", strconv.FormatInt(p.MarketID, 10))
	params.Set("tradeSide", strconv.FormatBool(p.IsLong))
	params.Set("direction", strconv.FormatBool(p.IsClose))
	params.Set("size", p.SizeInteger)
	params.Set("leverage", strconv.FormatInt(p.Leverage, 10))
	params.Set("takeProfit", orZero(p.TakeProfit))
	params.Set("stopLoss", orZero(p.StopLoss))
	params.Set("userAddress", userAddress)

	endpoint := "placeMarketOrder"
	if p.Kind == types.OrderTypeLimit {
		if p.PriceInteger == "" {
			return nil, errors.New("price is required for limit orders")
		}
		params.Set("price", p.PriceInteger)
		endpoint = "placeLimitOrder"
	}
	var payload json.RawMessage
	if err := c.get(ctx, endpoint, params, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, &APIError{Endpoint: endpoint, Message: "empty order payload"}
	}
	return payload, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
