package sizing

import (
	"perpdesk/internal/model"
	"perpdesk/internal/tradeerr"
	"perpdesk/internal/types"

	"github.com/shopspring/decimal"
)

const (
	quoteDisplayPlaces int32 = 2
	baseDisplayPlaces  int32 = 6
)

var hundred = decimal.NewFromInt(100)

// PresetInput describes a "use N% of what is available" request.
type PresetInput struct {
	Tab            types.Tab
	Currency       types.AmountCurrency
	Percent        decimal.Decimal
	ProfileBalance decimal.Decimal
	Position       *model.Position
	Price          decimal.Decimal
	Leverage       int64
}

// PresetAmount fills the amount field with a percentage of the available
// margin (open tab) or of the open position (close tab). Results are
// truncated, never rounded up, to 2 places for quote and 6 places for base.
func PresetAmount(in PresetInput) (decimal.Decimal, error) {
	if in.Percent.LessThan(decimal.Zero) || in.Percent.GreaterThan(hundred) {
		return decimal.Zero, tradeerr.New(tradeerr.KindInvalidAmount,
			tradeerr.WithMessage("percentage must be between 0 and 100"),
			tradeerr.WithAmount("percent", in.Percent))
	}
	if err := checkInputs(in.Tab, in.Currency, in.Price, in.Leverage); err != nil {
		return decimal.Zero, err
	}
	share := in.Percent.Div(hundred)

	if in.Tab == types.TabOpen {
		if !in.ProfileBalance.GreaterThan(decimal.Zero) {
			return decimal.Zero, nil
		}
		margin := in.ProfileBalance.Mul(share)
		if in.Currency == types.AmountCurrencyQuote {
			return margin.Truncate(quoteDisplayPlaces), nil
		}
		size, err := ToBaseSize(margin, types.AmountCurrencyQuote, types.TabOpen, in.Price, in.Leverage)
		if err != nil {
			return decimal.Zero, err
		}
		return size.Truncate(baseDisplayPlaces), nil
	}

	if in.Position == nil {
		return decimal.Zero, tradeerr.New(tradeerr.KindNoPositionToClose,
			tradeerr.WithMessage("no open position to close"))
	}
	size := in.Position.Size.Abs().Mul(share)
	if in.Currency == types.AmountCurrencyBase {
		return size.Truncate(baseDisplayPlaces), nil
	}
	return size.Mul(in.Price).Truncate(quoteDisplayPlaces), nil
}
