package encoder

import (
	"testing"

	"perpdesk/internal/model"
	"perpdesk/internal/sizing"
	"perpdesk/internal/tradeerr"
	"perpdesk/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	btc = model.MarketParams{MarketID: 15, LotSize: d("1000"), BaseDecimals: 8, PricePrecision: 0, MaxLeverage: 20}
	apt = model.MarketParams{MarketID: 14, LotSize: d("100000"), BaseDecimals: 8, PricePrecision: 3, MaxLeverage: 20}
)

func TestEncodeSize(t *testing.T) {
	tests := []struct {
		name   string
		size   string
		params model.MarketParams
		want   string
	}{
		{"floors fractional lots", "0.123456", btc, "12345"},
		{"exact lots", "0.00001", btc, "1"},
		{"below one lot", "0.000009", btc, "0"},
		{"negative size floors before abs", "-0.123456", btc, "12346"},
		{"decimal lot size", "1.5", model.MarketParams{LotSize: d("0.5"), BaseDecimals: 0}, "3"},
		{"coarse lot", "12.34567", apt, "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeSize(d(tt.size), tt.params)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.String())
		})
	}
}

func TestEncodeSizeIsIdempotentOnAlignedSizes(t *testing.T) {
	for _, params := range []model.MarketParams{btc, apt} {
		for _, raw := range []string{"1", "7", "12345", "99999999"} {
			n := d(raw)
			size := DecodeSize(n, params)
			got, err := EncodeSize(size, params)
			require.NoError(t, err)
			require.True(t, got.Equal(n), "%s -> %s -> %s", raw, size, got)

			again, err := EncodeSize(DecodeSize(got, params), params)
			require.NoError(t, err)
			require.True(t, again.Equal(got))
		}
	}
}

func TestEncodeSizeRequiresLotSize(t *testing.T) {
	_, err := EncodeSize(d("1"), model.MarketParams{BaseDecimals: 8})
	require.True(t, tradeerr.IsKind(err, tradeerr.KindMarketConfigMissing))
}

func TestEncodePrice(t *testing.T) {
	got, err := EncodePrice(d("12.34567"), apt)
	require.NoError(t, err)
	require.Equal(t, "12345", got.String())

	got, err = EncodePrice(d("90000.99"), btc)
	require.NoError(t, err)
	require.Equal(t, "90000", got.String())

	_, err = EncodePrice(decimal.Zero, btc)
	require.True(t, tradeerr.IsKind(err, tradeerr.KindPriceRequiredForLimit))
}

func TestEncode(t *testing.T) {
	payload, err := Encode(Input{
		Kind:       types.OrderTypeLimit,
		IsLong:     true,
		Size:       d("0.123456"),
		Price:      d("89904.7"),
		Leverage:   10,
		TakeProfit: d("95000"),
	}, btc)
	require.NoError(t, err)
	require.Equal(t, model.EncodedOrderPayload{
		MarketID:     15,
		Kind:         types.OrderTypeLimit,
		IsLong:       true,
		SizeInteger:  "12345",
		PriceInteger: "89904",
		Leverage:     10,
		TakeProfit:   "95000",
		StopLoss:     "0",
	}, payload)
}

func TestEncodeMarketOrderOmitsPrice(t *testing.T) {
	payload, err := Encode(Input{Kind: types.OrderTypeMarket, IsClose: true, Size: d("2"), Leverage: 3}, apt)
	require.NoError(t, err)
	require.Empty(t, payload.PriceInteger)
	require.True(t, payload.IsClose)
	require.Equal(t, "2000", payload.SizeInteger)
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(Input{Kind: types.OrderTypeLimit, Size: d("1"), Leverage: 1}, btc)
	require.True(t, tradeerr.IsKind(err, tradeerr.KindPriceRequiredForLimit))

	_, err = Encode(Input{Kind: types.OrderTypeMarket, Size: d("0.000001"), Leverage: 1}, btc)
	require.True(t, tradeerr.IsKind(err, tradeerr.KindInvalidAmount))

	_, err = Encode(Input{Kind: "twap", Size: d("1"), Leverage: 1}, btc)
	require.True(t, tradeerr.IsKind(err, tradeerr.KindInvalidOrder))
}

func TestEncodeFractionFloorsBelowLotBoundary(t *testing.T) {
	// 1 / 1.00000000000000001 BTC sits just under 1 BTC, i.e. under lot 100000.
	f := sizing.Fraction{Num: d("1"), Den: d("1.00000000000000001")}
	got, err := EncodeFraction(f, btc)
	require.NoError(t, err)
	require.Equal(t, "99999", got.String())

	got, err = EncodeFraction(sizing.Fraction{Num: d("100"), Den: d("6")}, btc)
	require.NoError(t, err)
	require.Equal(t, "1666666", got.String())

	got, err = EncodeFraction(sizing.Fraction{Num: d("-100"), Den: d("6")}, btc)
	require.NoError(t, err)
	require.Equal(t, "1666667", got.String())
}

func TestEncodeUsesExactSize(t *testing.T) {
	exact := sizing.Fraction{Num: d("1"), Den: d("1.00000000000000001")}
	payload, err := Encode(Input{
		Kind:     types.OrderTypeMarket,
		Size:     exact.Truncate(sizing.SizePlaces),
		Exact:    exact,
		Leverage: 1,
	}, btc)
	require.NoError(t, err)
	require.Equal(t, "99999", payload.SizeInteger)
}
