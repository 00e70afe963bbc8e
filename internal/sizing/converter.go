// Package sizing converts trade-ticket amounts between quote-currency and
// base-currency units.
package sizing

import (
	"strings"

	"perpdesk/internal/tradeerr"
	"perpdesk/internal/types"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a user-entered amount; it must be a finite number > 0.
func ParseAmount(raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !v.GreaterThan(decimal.Zero) {
		return decimal.Zero, tradeerr.New(tradeerr.KindInvalidAmount,
			tradeerr.WithMessage("please enter a valid amount"),
			tradeerr.WithField("amount", raw))
	}
	return v, nil
}

// ParsePrice parses an execution or limit price; it must be > 0.
func ParsePrice(raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !v.GreaterThan(decimal.Zero) {
		return decimal.Zero, invalidPrice(raw)
	}
	return v, nil
}

func invalidPrice(raw string) error {
	return tradeerr.New(tradeerr.KindInvalidPrice,
		tradeerr.WithMessage("invalid price"),
		tradeerr.WithField("price", raw))
}

func checkInputs(tab types.Tab, currency types.AmountCurrency, price decimal.Decimal, leverage int64) error {
	if !price.GreaterThan(decimal.Zero) {
		return invalidPrice(price.String())
	}
	if leverage < 1 {
		return tradeerr.New(tradeerr.KindInvalidLeverage,
			tradeerr.WithMessage("leverage must be at least 1"),
			tradeerr.WithField("leverage", decimal.NewFromInt(leverage).String()))
	}
	if !tab.Valid() {
		return tradeerr.New(tradeerr.KindInvalidOrder, tradeerr.WithMessage("unknown tab "+string(tab)))
	}
	if !currency.Valid() {
		return tradeerr.New(tradeerr.KindInvalidOrder, tradeerr.WithMessage("unknown amount currency "+string(currency)))
	}
	return nil
}

// SizePlaces is the scale at which a base size is cut for display and
// validation. Encoding works from the unrounded Fraction.
const SizePlaces int32 = 18

// Fraction is a base size kept as Num/Den so it can be floored exactly.
type Fraction struct {
	Num decimal.Decimal
	Den decimal.Decimal
}

// Whole wraps a size that is already a plain decimal.
func Whole(size decimal.Decimal) Fraction {
	return Fraction{Num: size, Den: decimal.NewFromInt(1)}
}

// Defined reports whether f carries a usable denominator.
func (f Fraction) Defined() bool {
	return !f.Den.IsZero()
}

// Truncate returns f cut toward zero at places decimal places. It never
// rounds away from zero.
func (f Fraction) Truncate(places int32) decimal.Decimal {
	if !f.Defined() {
		return decimal.Zero
	}
	q, _ := f.Num.QuoRem(f.Den, places)
	return q
}

// BaseFraction converts amount into the canonical base-currency size without
// dividing.
//
// On the open tab a quote amount is margin, so size = amount * leverage / price.
// On the close tab a quote amount is the notional to close, so size = amount / price.
// Base amounts are already sizes.
func BaseFraction(amount decimal.Decimal, currency types.AmountCurrency, tab types.Tab, price decimal.Decimal, leverage int64) (Fraction, error) {
	if err := checkInputs(tab, currency, price, leverage); err != nil {
		return Fraction{}, err
	}
	if currency == types.AmountCurrencyBase {
		return Whole(amount), nil
	}
	if tab == types.TabOpen {
		return Fraction{Num: amount.Mul(decimal.NewFromInt(leverage)), Den: price}, nil
	}
	return Fraction{Num: amount, Den: price}, nil
}

// ToBaseSize is BaseFraction truncated to SizePlaces.
func ToBaseSize(amount decimal.Decimal, currency types.AmountCurrency, tab types.Tab, price decimal.Decimal, leverage int64) (decimal.Decimal, error) {
	f, err := BaseFraction(amount, currency, tab, price, leverage)
	if err != nil {
		return decimal.Zero, err
	}
	return f.Truncate(SizePlaces), nil
}

// FromBaseSize is the inverse of ToBaseSize, used to display a size in the
// currently selected input currency.
func FromBaseSize(size decimal.Decimal, currency types.AmountCurrency, tab types.Tab, price decimal.Decimal, leverage int64) (decimal.Decimal, error) {
	if err := checkInputs(tab, currency, price, leverage); err != nil {
		return decimal.Zero, err
	}
	if currency == types.AmountCurrencyBase {
		return size, nil
	}
	if tab == types.TabOpen {
		return size.Mul(price).Div(decimal.NewFromInt(leverage)), nil
	}
	return size.Mul(price), nil
}
