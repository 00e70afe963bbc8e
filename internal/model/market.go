package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Market is the static descriptor of a tradable perpetual instrument.
type Market struct {
	ID                int64  `json:"id" yaml:"id"`
	Symbol            string `json:"symbol" yaml:"symbol"`
	BaseDecimals      int32  `json:"base_decimals" yaml:"base_decimals"`
	LotSizeMultiplier int64  `json:"lot_size_multiplier" yaml:"lot_size_multiplier"`
	PricePrecision    int32  `json:"price_precision" yaml:"price_precision"`
	MaxLeverage       int64  `json:"max_leverage" yaml:"max_leverage"`
}

func (m Market) Validate() error {
	if strings.TrimSpace(m.Symbol) == "" {
		return errors.New("market symbol required")
	}
	if m.ID <= 0 {
		return fmt.Errorf("market %s: id must be positive", m.Symbol)
	}
	if m.BaseDecimals < 0 {
		return fmt.Errorf("market %s: base_decimals must be >= 0", m.Symbol)
	}
	if m.LotSizeMultiplier <= 0 {
		return fmt.Errorf("market %s: lot_size_multiplier must be > 0", m.Symbol)
	}
	if m.PricePrecision < 0 {
		return fmt.Errorf("market %s: price_precision must be >= 0", m.Symbol)
	}
	if m.MaxLeverage < 1 {
		return fmt.Errorf("market %s: max_leverage must be >= 1", m.Symbol)
	}
	return nil
}

// MarketInfo carries the values reported by the market-info service.
// A nil field means the service did not report it.
type MarketInfo struct {
	LotSize        *decimal.Decimal
	BaseDecimals   *int32
	QuotePrecision *int32
	MaxLeverage    *int64
}

// MarketParams are the scaling parameters in effect for one encode.
type MarketParams struct {
	MarketID       int64           `json:"market_id"`
	LotSize        decimal.Decimal `json:"lot_size"`
	BaseDecimals   int32           `json:"base_decimals"`
	PricePrecision int32           `json:"price_precision"`
	MaxLeverage    int64           `json:"max_leverage"`
	Dynamic        bool            `json:"dynamic"`
}

// StaticParams returns the parameters taken from the static descriptor only.
func (m Market) StaticParams() MarketParams {
	return MarketParams{
		MarketID:       m.ID,
		LotSize:        decimal.NewFromInt(m.LotSizeMultiplier),
		BaseDecimals:   m.BaseDecimals,
		PricePrecision: m.PricePrecision,
		MaxLeverage:    m.MaxLeverage,
	}
}

// Overlay applies the reported values on top of the static parameters.
// Values that are out of range are ignored.
func (p MarketParams) Overlay(info MarketInfo) MarketParams {
	out := p
	if info.LotSize != nil && info.LotSize.GreaterThan(decimal.Zero) {
		out.LotSize = *info.LotSize
		out.Dynamic = true
	}
	if info.BaseDecimals != nil && *info.BaseDecimals >= 0 {
		out.BaseDecimals = *info.BaseDecimals
		out.Dynamic = true
	}
	if info.QuotePrecision != nil && *info.QuotePrecision >= 0 {
		out.PricePrecision = *info.QuotePrecision
		out.Dynamic = true
	}
	if info.MaxLeverage != nil && *info.MaxLeverage >= 1 {
		out.MaxLeverage = *info.MaxLeverage
		out.Dynamic = true
	}
	return out
}
