package xyra

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// DefaultFillsWindow is used when a fills query has no explicit range.
const DefaultFillsWindow = 30 * 24 * time.Hour

func (c *Client) list(ctx context.Context, endpoint string, params url.Values) ([]json.RawMessage, error) {
	var rows []json.RawMessage
	if err := c.get(ctx, endpoint, params, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []json.RawMessage{}
	}
	return rows, nil
}

func (c *Client) OpenOrders(ctx context.Context, address string) ([]json.RawMessage, error) {
	return c.list(ctx, "getOpenOrdersFromContract", userParams(address))
}

func (c *Client) OrderHistory(ctx context.Context, address string) ([]json.RawMessage, error) {
	return c.list(ctx, "getOrderHistory", userParams(address))
}

func (c *Client) TradeHistory(ctx context.Context, address string) ([]json.RawMessage, error) {
	return c.list(ctx, "getTradeHistory", userParams(address))
}

type FillsQuery struct {
	MarketID int64
	Address  string
	From     time.Time
	To       time.Time
}

// Fills returns fills for one market. A zero range means the last 30 days.
func (c *Client) Fills(ctx context.Context, q FillsQuery) ([]json.RawMessage, error) {
	if q.MarketID <= 0 {
		return nil, errors.New("fills: market id is required")
	}
	to := q.To
	if to.IsZero() {
		to = time.Now()
	}
	from := q.From
	if from.IsZero() {
		from = to.Add(-DefaultFillsWindow)
	}
	if from.After(to) {
		return nil, errors.New("fills: from is after to")
	}
	params := url.Values{}
	params.Set("marketId", strconv.FormatInt(q.MarketID, 10))
	params.Set("address", strings.TrimSpace(q.Address))
	params.Set("from", from.UTC().Format(time.RFC3339Nano))
	params.Set("to", to.UTC().Format(time.RFC3339Nano))
	return c.list(ctx, "getFills", params)
}
