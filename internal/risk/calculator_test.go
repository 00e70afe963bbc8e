package risk

import (
	"testing"
	"time"

	"perpdesk/internal/model"
	"perpdesk/internal/tradeerr"
	"perpdesk/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var btc = model.MarketParams{MarketID: 15, LotSize: d("1000"), BaseDecimals: 8, PricePrecision: 0, MaxLeverage: 20}

func TestLiquidationPrices(t *testing.T) {
	c := NewCalculator()
	long, short, unreliable := c.LiquidationPrices(d("90000"), 10)
	require.True(t, long.Equal(d("81450")), long.String())
	require.True(t, short.Equal(d("98550")), short.String())
	require.False(t, unreliable)
}

func TestLiquidationPricesFlagsLowMarginBuffer(t *testing.T) {
	c := NewCalculator()
	for _, lev := range []int64{200, 250} {
		long, _, unreliable := c.LiquidationPrices(d("100"), lev)
		require.True(t, unreliable, "leverage %d", lev)
		require.True(t, long.GreaterThanOrEqual(d("100")), "long %s", long)
	}
	_, _, unreliable := c.LiquidationPrices(d("100"), 199)
	require.False(t, unreliable)
}

func TestMarginTimesLeverageIsNotional(t *testing.T) {
	tolerance := d("0.000000001")
	cases := []struct {
		size, price string
		leverage    int64
	}{
		{"1", "90000", 10},
		{"0.123456", "3127.71", 7},
		{"42", "12.345", 3},
		{"0.00001", "100000", 20},
	}
	for _, c := range cases {
		notional := Notional(d(c.size), d(c.price))
		margin := RequiredMargin(notional, c.leverage)
		diff := margin.Mul(decimal.NewFromInt(c.leverage)).Sub(notional).Abs()
		require.True(t, diff.LessThan(tolerance), "%+v diff %s", c, diff)
	}
}

func TestValidateClose(t *testing.T) {
	c := NewCalculator()
	pos := &model.Position{MarketID: 15, Size: d("1.0")}
	tests := []struct {
		name string
		size string
		kind tradeerr.Kind
	}{
		{"exact size", "1.0", ""},
		{"within buffer", "1.005", ""},
		{"at buffer edge", "1.01", ""},
		{"beyond buffer", "1.02", tradeerr.KindExceedsPositionSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.ValidateClose(d(tt.size), pos)
			if tt.kind == "" {
				require.NoError(t, err)
				return
			}
			require.True(t, tradeerr.IsKind(err, tt.kind), "%v", err)
		})
	}

	short := &model.Position{MarketID: 15, Size: d("-1.0")}
	require.NoError(t, c.ValidateClose(d("1.005"), short))

	err := c.ValidateClose(d("0.1"), nil)
	require.True(t, tradeerr.IsKind(err, tradeerr.KindNoPositionToClose))
}

func TestValidateOpen(t *testing.T) {
	c := NewCalculator()
	balance := d("100")

	err := c.ValidateOpen(d("1"), d("1000.1"), 10, balance)
	require.True(t, tradeerr.IsKind(err, tradeerr.KindInsufficientBalance))
	var te *tradeerr.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, "100.01", te.Context["required"])
	require.Equal(t, "100", te.Context["available"])

	require.NoError(t, c.ValidateOpen(d("1"), d("999.9"), 10, balance))
	require.NoError(t, c.ValidateOpen(d("1"), d("1000"), 10, balance))
}

func account(profile string, positions ...model.Position) model.AccountState {
	return model.NewAccountState("0xabc", d("0"), d(profile), positions, time.Now())
}

func TestEvaluateOpenQuote(t *testing.T) {
	c := NewCalculator()
	intent := model.OrderIntent{
		Market: "BTC", Tab: types.TabOpen, Side: types.OrderSideBuy, Kind: types.OrderTypeMarket,
		AmountCurrency: types.AmountCurrencyQuote, Amount: "900", Price: "90000", Leverage: 10,
	}
	ev, err := c.Evaluate(intent, account("1000"), btc)
	require.NoError(t, err)
	require.True(t, ev.Size.Equal(d("0.1")))
	require.True(t, ev.Summary.RequiredMargin.Equal(d("900")))
	require.True(t, ev.Summary.NotionalQuote.Equal(d("9000")))
	require.True(t, ev.Summary.EstLiqPriceLong.Equal(d("81450")))
	require.True(t, ev.TakeProfit.IsZero())
}

func TestEvaluateReturnsSummaryWithValidationError(t *testing.T) {
	c := NewCalculator()
	intent := model.OrderIntent{
		Tab: types.TabOpen, Side: types.OrderSideSell, Kind: types.OrderTypeLimit,
		AmountCurrency: types.AmountCurrencyBase, Amount: "1", Price: "1000.1", Leverage: 10,
	}
	ev, err := c.Evaluate(intent, account("100"), btc)
	require.True(t, tradeerr.IsKind(err, tradeerr.KindInsufficientBalance))
	require.True(t, ev.Summary.RequiredMargin.Equal(d("100.01")))
}

func TestEvaluateClose(t *testing.T) {
	c := NewCalculator()
	intent := model.OrderIntent{
		Tab: types.TabClose, Side: types.OrderSideSell, Kind: types.OrderTypeMarket,
		AmountCurrency: types.AmountCurrencyBase, Amount: "1.005", Price: "90000", Leverage: 10,
	}
	_, err := c.Evaluate(intent, account("0", model.Position{MarketID: 15, Size: d("1")}), btc)
	require.NoError(t, err)

	_, err = c.Evaluate(intent, account("0", model.Position{MarketID: 16, Size: d("1")}), btc)
	require.True(t, tradeerr.IsKind(err, tradeerr.KindNoPositionToClose))
}

func TestEvaluateInputErrors(t *testing.T) {
	c := NewCalculator()
	base := model.OrderIntent{
		Tab: types.TabOpen, Side: types.OrderSideBuy, Kind: types.OrderTypeLimit,
		AmountCurrency: types.AmountCurrencyQuote, Amount: "10", Price: "100", Leverage: 5,
	}
	tests := []struct {
		name   string
		mutate func(*model.OrderIntent)
		kind   tradeerr.Kind
	}{
		{"empty amount", func(o *model.OrderIntent) { o.Amount = "" }, tradeerr.KindInvalidAmount},
		{"negative amount", func(o *model.OrderIntent) { o.Amount = "-1" }, tradeerr.KindInvalidAmount},
		{"limit without price", func(o *model.OrderIntent) { o.Price = " " }, tradeerr.KindPriceRequiredForLimit},
		{"market without price", func(o *model.OrderIntent) { o.Kind = types.OrderTypeMarket; o.Price = "" }, tradeerr.KindInvalidPrice},
		{"zero price", func(o *model.OrderIntent) { o.Price = "0" }, tradeerr.KindInvalidPrice},
		{"zero leverage", func(o *model.OrderIntent) { o.Leverage = 0 }, tradeerr.KindInvalidLeverage},
		{"leverage above market max", func(o *model.OrderIntent) { o.Leverage = 21 }, tradeerr.KindInvalidLeverage},
		{"negative take profit", func(o *model.OrderIntent) { o.TakeProfit = "-5" }, tradeerr.KindInvalidTrigger},
		{"garbage stop loss", func(o *model.OrderIntent) { o.StopLoss = "soon" }, tradeerr.KindInvalidTrigger},
		{"unknown side", func(o *model.OrderIntent) { o.Side = "long" }, tradeerr.KindInvalidOrder},
		{"unknown kind", func(o *model.OrderIntent) { o.Kind = "stop" }, tradeerr.KindInvalidOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := base
			tt.mutate(&intent)
			_, err := c.Evaluate(intent, account("1000"), btc)
			require.True(t, tradeerr.IsKind(err, tt.kind), "got %v", err)
			require.True(t, tt.kind.Validation())
		})
	}
}

func TestEvaluateOpenQuoteCommitsWholeBalance(t *testing.T) {
	c := NewCalculator()
	intent := model.OrderIntent{
		Market: "BTC", Tab: types.TabOpen, Side: types.OrderSideBuy, Kind: types.OrderTypeMarket,
		AmountCurrency: types.AmountCurrencyQuote, Amount: "100", Price: "6", Leverage: 1,
	}
	ev, err := c.Evaluate(intent, account("100"), btc)
	require.NoError(t, err)
	require.True(t, ev.Summary.RequiredMargin.Equal(d("100")))
	require.True(t, ev.Size.Mul(d("6")).LessThanOrEqual(d("100")), "size %s", ev.Size)
	require.True(t, ev.Exact.Num.Equal(d("100")))
	require.True(t, ev.Exact.Den.Equal(d("6")))

	_, err = c.Evaluate(intent, account("99.99"), btc)
	require.True(t, tradeerr.IsKind(err, tradeerr.KindInsufficientBalance))
	var te *tradeerr.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, "100", te.Context["required"])
}

func TestValidateOpenIsExactOnUnevenPrices(t *testing.T) {
	c := NewCalculator()
	// notional equal to balance * leverage is accepted; one unit above it is not.
	require.NoError(t, c.ValidateOpen(d("1"), d("33.3333333333333333333"), 3, d("11.1111111111111111111")))
	err := c.ValidateOpen(d("1"), d("33.3333333333333333334"), 3, d("11.1111111111111111111"))
	require.True(t, tradeerr.IsKind(err, tradeerr.KindInsufficientBalance))
}
