package xyra

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"perpdesk/internal/model"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

type positionRecord struct {
	MarketID    flexInt     `json:"market_id"`
	Size        flexDecimal `json:"size"`
	EntryPrice  flexDecimal `json:"entry_price"`
	Leverage    flexInt     `json:"leverage"`
	TradeSide   bool        `json:"trade_side"`
	LiqPrice    flexDecimal `json:"liq_price"`
	OraclePrice flexDecimal `json:"oracle_price"`
	Margin      flexDecimal `json:"margin"`
	PnL         flexDecimal `json:"pnl"`
	TP          flexDecimal `json:"tp"`
	SL          flexDecimal `json:"sl"`
}

func (r positionRecord) toModel() model.Position {
	size := r.Size.Abs()
	if !r.TradeSide {
		size = size.Neg()
	}
	return model.Position{
		MarketID:    r.MarketID.Value,
		Size:        size,
		EntryPrice:  r.EntryPrice.Decimal,
		Leverage:    r.Leverage.Value,
		TradeSide:   r.TradeSide,
		LiqPrice:    r.LiqPrice.Decimal,
		OraclePrice: r.OraclePrice.Decimal,
		Margin:      r.Margin.Decimal,
		PnL:         r.PnL.Decimal,
		TakeProfit:  r.TP.Decimal,
		StopLoss:    r.SL.Decimal,
	}
}

func userParams(address string) url.Values {
	params := url.Values{}
	params.Set("userAddress", strings.TrimSpace(address))
	return params
}

// WalletBalance returns the wallet (funding) balance of userAddress.
func (c *Client) WalletBalance(ctx context.Context, userAddress string) (decimal.Decimal, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "getWalletAccountBalance", userParams(userAddress), &raw); err != nil {
		return decimal.Zero, err
	}
	v, err := decodeAmount(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode wallet balance: %w", err)
	}
	return v, nil
}

// ProfileBalance returns the trading-profile balance backing margin.
func (c *Client) ProfileBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if strings.TrimSpace(address) == "" {
		return decimal.Zero, fmt.Errorf("profile address is required")
	}
	var raw json.RawMessage
	if err := c.get(ctx, "getProfileBalanceSnapshot", userParams(address), &raw); err != nil {
		return decimal.Zero, err
	}
	v, err := decodeAmount(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode profile balance: %w", err)
	}
	return v, nil
}

// ProfileAddress returns the trading-profile address owned by userAddress.
func (c *Client) ProfileAddress(ctx context.Context, userAddress string) (string, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "getProfileAddress", userParams(userAddress), &raw); err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("decode profile address: %w", err)
	}
	for _, key := range []string{"profile_address", "profileAddress", "address"} {
		if v, ok := obj[key].(string); ok && v != "" {
			return strings.TrimSpace(v), nil
		}
	}
	return "", fmt.Errorf("decode profile address: field not found")
}

func (c *Client) Positions(ctx context.Context, address string) ([]model.Position, error) {
	var records []positionRecord
	if err := c.get(ctx, "getPositions", userParams(address), &records); err != nil {
		return nil, err
	}
	out := make([]model.Position, 0, len(records))
	for _, r := range records {
		out = append(out, r.toModel())
	}
	return out, nil
}
