// Package risk computes the display-facing risk figures for an order ticket
// and validates it against the current account snapshot.
package risk

import (
	"strconv"
	"strings"

	"perpdesk/internal/model"
	"perpdesk/internal/sizing"
	"perpdesk/internal/tradeerr"
	"perpdesk/internal/types"

	"github.com/shopspring/decimal"
)

var (
	// DefaultMaintenanceMarginRate is the fixed MMR used by the liquidation estimate.
	DefaultMaintenanceMarginRate = decimal.RequireFromString("0.005")
	// DefaultCloseTolerance lets a close request exceed the position by 1%.
	DefaultCloseTolerance = decimal.RequireFromString("0.01")
)

type Calculator struct {
	MaintenanceMarginRate decimal.Decimal
	CloseTolerance        decimal.Decimal
}

func NewCalculator() *Calculator {
	return &Calculator{
		MaintenanceMarginRate: DefaultMaintenanceMarginRate,
		CloseTolerance:        DefaultCloseTolerance,
	}
}

// Evaluation is a fully parsed and validated ticket.
type Evaluation struct {
	Amount     decimal.Decimal
	Price      decimal.Decimal
	Size       decimal.Decimal
	Exact      sizing.Fraction
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
	Summary    model.RiskSummary
}

func Notional(size, price decimal.Decimal) decimal.Decimal {
	return size.Mul(price)
}

func RequiredMargin(notional decimal.Decimal, leverage int64) decimal.Decimal {
	return notional.Div(decimal.NewFromInt(leverage))
}

// LiquidationPrices estimates where a long and a short opened at price would
// be liquidated. unreliable is set when 1/leverage <= MMR; the figures are
// still returned unclamped in that case.
func (c *Calculator) LiquidationPrices(price decimal.Decimal, leverage int64) (long, short decimal.Decimal, unreliable bool) {
	inv := decimal.NewFromInt(1).Div(decimal.NewFromInt(leverage))
	buffer := inv.Sub(c.MaintenanceMarginRate)
	long = price.Mul(decimal.NewFromInt(1).Sub(buffer))
	short = price.Mul(decimal.NewFromInt(1).Add(buffer))
	return long, short, inv.LessThanOrEqual(c.MaintenanceMarginRate)
}

// ValidateOpen checks that the margin for size at price fits in the profile
// balance. The comparison is notional <= balance * leverage, so no division
// is involved.
func (c *Calculator) ValidateOpen(size, price decimal.Decimal, leverage int64, profileBalance decimal.Decimal) error {
	notional := Notional(size, price)
	if notional.LessThanOrEqual(profileBalance.Mul(decimal.NewFromInt(leverage))) {
		return nil
	}
	return insufficientBalance(RequiredMargin(notional, leverage), profileBalance)
}

// ValidateMargin checks an entered margin directly against the profile balance.
func (c *Calculator) ValidateMargin(margin, profileBalance decimal.Decimal) error {
	if margin.GreaterThan(profileBalance) {
		return insufficientBalance(margin, profileBalance)
	}
	return nil
}

func insufficientBalance(required, available decimal.Decimal) error {
	return tradeerr.New(tradeerr.KindInsufficientBalance,
		tradeerr.WithMessage("insufficient profile balance"),
		tradeerr.WithAmount("required", required),
		tradeerr.WithAmount("available", available))
}

// ValidateClose checks that a position exists and size does not exceed it
// beyond the close tolerance.
func (c *Calculator) ValidateClose(size decimal.Decimal, position *model.Position) error {
	if position == nil || position.Size.IsZero() {
		return tradeerr.New(tradeerr.KindNoPositionToClose,
			tradeerr.WithMessage("no open position to close"))
	}
	available := position.Size.Abs()
	limit := available.Mul(decimal.NewFromInt(1).Add(c.CloseTolerance))
	if size.GreaterThan(limit) {
		return tradeerr.New(tradeerr.KindExceedsPositionSize,
			tradeerr.WithMessage("close size exceeds position size"),
			tradeerr.WithAmount("requested", size),
			tradeerr.WithAmount("available", available))
	}
	return nil
}

// Summary computes the risk figures for size at price. On the open tab with
// a quote amount the entered amount is the margin itself.
func (c *Calculator) Summary(intent model.OrderIntent, amount, size, price decimal.Decimal) model.RiskSummary {
	var notional, margin decimal.Decimal
	if intent.Tab == types.TabOpen && intent.AmountCurrency == types.AmountCurrencyQuote {
		margin = amount
		notional = amount.Mul(decimal.NewFromInt(intent.Leverage))
	} else {
		notional = Notional(size, price)
		margin = RequiredMargin(notional, intent.Leverage)
	}
	long, short, unreliable := c.LiquidationPrices(price, intent.Leverage)
	return model.RiskSummary{
		SizeBase:           size,
		NotionalQuote:      notional,
		RequiredMargin:     margin,
		EstLiqPriceLong:    long,
		EstLiqPriceShort:   short,
		LiqPriceUnreliable: unreliable,
	}
}

// Evaluate parses the ticket, converts it to a base size, computes its risk
// summary and validates it against the account snapshot. Nothing here
// performs I/O.
func (c *Calculator) Evaluate(intent model.OrderIntent, account model.AccountState, params model.MarketParams) (Evaluation, error) {
	if err := checkEnums(intent); err != nil {
		return Evaluation{}, err
	}
	amount, err := sizing.ParseAmount(intent.Amount)
	if err != nil {
		return Evaluation{}, err
	}
	if strings.TrimSpace(intent.Price) == "" && intent.Kind == types.OrderTypeLimit {
		return Evaluation{}, tradeerr.New(tradeerr.KindPriceRequiredForLimit,
			tradeerr.WithMessage("limit price is required"))
	}
	price, err := sizing.ParsePrice(intent.Price)
	if err != nil {
		return Evaluation{}, err
	}
	if err := checkLeverage(intent.Leverage, params.MaxLeverage); err != nil {
		return Evaluation{}, err
	}
	tp, err := parseTrigger("take_profit", intent.TakeProfit)
	if err != nil {
		return Evaluation{}, err
	}
	sl, err := parseTrigger("stop_loss", intent.StopLoss)
	if err != nil {
		return Evaluation{}, err
	}

	exact, err := sizing.BaseFraction(amount, intent.AmountCurrency, intent.Tab, price, intent.Leverage)
	if err != nil {
		return Evaluation{}, err
	}
	size := exact.Truncate(sizing.SizePlaces)
	ev := Evaluation{
		Amount:     amount,
		Price:      price,
		Size:       size,
		Exact:      exact,
		TakeProfit: tp,
		StopLoss:   sl,
		Summary:    c.Summary(intent, amount, size, price),
	}

	if intent.IsClose() {
		var pos *model.Position
		if p, ok := account.Position(params.MarketID); ok {
			pos = &p
		}
		err = c.ValidateClose(size, pos)
	} else if intent.AmountCurrency == types.AmountCurrencyQuote {
		err = c.ValidateMargin(amount, account.ProfileBalance)
	} else {
		err = c.ValidateOpen(size, price, intent.Leverage, account.ProfileBalance)
	}
	// The summary is returned alongside a validation error so the ticket can
	// still show the figures.
	return ev, err
}

func checkEnums(intent model.OrderIntent) error {
	switch {
	case !intent.Tab.Valid():
		return invalidOrder("tab", string(intent.Tab))
	case !intent.Side.Valid():
		return invalidOrder("side", string(intent.Side))
	case !intent.Kind.Valid():
		return invalidOrder("kind", string(intent.Kind))
	case !intent.AmountCurrency.Valid():
		return invalidOrder("amount_currency", string(intent.AmountCurrency))
	}
	return nil
}

func invalidOrder(field, value string) error {
	return tradeerr.New(tradeerr.KindInvalidOrder,
		tradeerr.WithMessage("unknown "+strings.ReplaceAll(field, "_", " ")),
		tradeerr.WithField(field, value))
}

func checkLeverage(leverage, max int64) error {
	if leverage >= 1 && (max < 1 || leverage <= max) {
		return nil
	}
	return tradeerr.New(tradeerr.KindInvalidLeverage,
		tradeerr.WithMessage("leverage out of range"),
		tradeerr.WithField("leverage", strconv.FormatInt(leverage, 10)),
		tradeerr.WithField("max", strconv.FormatInt(max, 10)))
}

// parseTrigger returns zero for an absent trigger.
func parseTrigger(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() {
		return decimal.Zero, tradeerr.New(tradeerr.KindInvalidTrigger,
			tradeerr.WithMessage("invalid "+strings.ReplaceAll(field, "_", " ")),
			tradeerr.WithField(field, raw))
	}
	return v, nil
}
