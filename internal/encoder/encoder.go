// Package encoder scales decimal sizes and prices into the integer
// fixed-point form expected by the order builder. Rounding is always floor.
package encoder

import (
	"perpdesk/internal/model"
	"perpdesk/internal/sizing"
	"perpdesk/internal/tradeerr"
	"perpdesk/internal/types"

	"github.com/shopspring/decimal"
)

// Input is a validated order ready to be encoded. When Exact is defined the
// size integer is floored from it and Size is only reported back in errors.
type Input struct {
	Kind       types.OrderType
	IsLong     bool
	IsClose    bool
	Size       decimal.Decimal
	Exact      sizing.Fraction
	Price      decimal.Decimal
	Leverage   int64
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

// floorDiv returns floor(num / den) without intermediate rounding.
func floorDiv(num, den decimal.Decimal) decimal.Decimal {
	q, r := num.QuoRem(den, 0)
	if r.IsNegative() {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return q
}

// EncodeSize returns |floor(size * 10^baseDecimals / lotSize)|.
func EncodeSize(size decimal.Decimal, params model.MarketParams) (decimal.Decimal, error) {
	return EncodeFraction(sizing.Whole(size), params)
}

// EncodeFraction floors f.Num * 10^baseDecimals / (f.Den * lotSize) in a
// single division, so the result never exceeds the true lot count.
func EncodeFraction(f sizing.Fraction, params model.MarketParams) (decimal.Decimal, error) {
	if !params.LotSize.IsPositive() || params.BaseDecimals < 0 {
		return decimal.Zero, tradeerr.New(tradeerr.KindMarketConfigMissing,
			tradeerr.WithMessage("market scaling parameters missing"),
			tradeerr.WithAmount("lot_size", params.LotSize))
	}
	if !f.Defined() {
		return decimal.Zero, nil
	}
	num, den := f.Num.Shift(params.BaseDecimals), f.Den.Mul(params.LotSize)
	if den.IsNegative() {
		num, den = num.Neg(), den.Neg()
	}
	return floorDiv(num, den).Abs(), nil
}

// DecodeSize maps a size integer back to its base-currency size.
func DecodeSize(sizeInteger decimal.Decimal, params model.MarketParams) decimal.Decimal {
	return sizeInteger.Mul(params.LotSize).Shift(-params.BaseDecimals)
}

// EncodePrice returns floor(price * 10^pricePrecision).
func EncodePrice(price decimal.Decimal, params model.MarketParams) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, tradeerr.New(tradeerr.KindPriceRequiredForLimit,
			tradeerr.WithMessage("limit price is required"))
	}
	if params.PricePrecision < 0 {
		return decimal.Zero, tradeerr.New(tradeerr.KindMarketConfigMissing,
			tradeerr.WithMessage("market price precision missing"))
	}
	return price.Shift(params.PricePrecision).Floor(), nil
}

// Encode builds the payload for in. A size that floors to zero lots is
// rejected rather than submitted as an empty order.
func Encode(in Input, params model.MarketParams) (model.EncodedOrderPayload, error) {
	if !in.Kind.Valid() {
		return model.EncodedOrderPayload{}, tradeerr.New(tradeerr.KindInvalidOrder,
			tradeerr.WithMessage("unknown order kind"),
			tradeerr.WithField("kind", string(in.Kind)))
	}
	exact := in.Exact
	if !exact.Defined() {
		exact = sizing.Whole(in.Size)
	}
	size, err := EncodeFraction(exact, params)
	if err != nil {
		return model.EncodedOrderPayload{}, err
	}
	if size.IsZero() {
		return model.EncodedOrderPayload{}, tradeerr.New(tradeerr.KindInvalidAmount,
			tradeerr.WithMessage("order size is below one lot"),
			tradeerr.WithAmount("size", in.Size),
			tradeerr.WithAmount("lot", DecodeSize(decimal.NewFromInt(1), params)))
	}

	out := model.EncodedOrderPayload{
		MarketID:    params.MarketID,
		Kind:        in.Kind,
		IsLong:      in.IsLong,
		IsClose:     in.IsClose,
		SizeInteger: size.String(),
		Leverage:    in.Leverage,
		TakeProfit:  in.TakeProfit.String(),
		StopLoss:    in.StopLoss.String(),
	}
	if in.Kind == types.OrderTypeLimit {
		price, err := EncodePrice(in.Price, params)
		if err != nil {
			return model.EncodedOrderPayload{}, err
		}
		out.PriceInteger = price.String()
	}
	return out, nil
}
