package xyra

import (
	"context"
	"net/url"
	"strconv"

	"perpdesk/internal/model"
)

type marketInfoRecord struct {
	LotSize        flexDecimal `json:"lot_size"`
	BaseDecimals   flexInt     `json:"base_decimals"`
	QuotePrecision flexInt     `json:"quote_precision"`
	MaxLeverage    flexInt     `json:"max_leverage"`
}

// MarketInfo returns the live parameters of marketID. An empty answer yields
// a MarketInfo with no fields set.
func (c *Client) MarketInfo(ctx context.Context, marketID int64) (model.MarketInfo, error) {
	params := url.Values{}
	params.Set("marketId", strconv.FormatInt(marketID, 10))
	var records []marketInfoRecord
	if err := c.get(ctx, "getMarketInfo", params, &records); err != nil {
		return model.MarketInfo{}, err
	}
	if len(records) == 0 {
		return model.MarketInfo{}, nil
	}
	r := records[0]
	var info model.MarketInfo
	if r.LotSize.Set {
		v := r.LotSize.Decimal
		info.LotSize = &v
	}
	if r.BaseDecimals.Set {
		v := int32(r.BaseDecimals.Value)
		info.BaseDecimals = &v
	}
	if r.QuotePrecision.Set {
		v := int32(r.QuotePrecision.Value)
		info.QuotePrecision = &v
	}
	if r.MaxLeverage.Set {
		v := r.MaxLeverage.Value
		info.MaxLeverage = &v
	}
	return info, nil
}
