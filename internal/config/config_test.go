package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("JWT_ISSUER", "perpdesk")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("WS_ORIGIN", "http://localhost:3000")
	t.Setenv("XYRA_API_BASE_URL", "https://api.example.com/")
	t.Setenv("XYRA_API_KEY", "key")
	t.Setenv("APTOS_PRIVATE_KEY", "ed25519-priv-0x01")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", cfg.XyraBaseURL)
	require.Equal(t, DefaultAptosNodeURL, cfg.AptosNodeURL)
	require.Equal(t, DefaultConfirmTimeout, cfg.ConfirmTimeout)
	require.Equal(t, DefaultAPIRateLimit, cfg.APIRateLimit)
	require.Equal(t, uint64(DefaultMaxGasAmount), cfg.MaxGasAmount)
	require.Equal(t, time.Hour, cfg.JWTTTL)
	require.Equal(t, slog.LevelInfo, cfg.LogLevel)
	require.Empty(t, cfg.DBDSN)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CONFIRM_TIMEOUT", "45s")
	t.Setenv("API_RATE_LIMIT", "2.5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APTOS_NODE_URL", "http://localhost:8080/v1/")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, cfg.ConfirmTimeout)
	require.Equal(t, 2.5, cfg.APIRateLimit)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)
	require.Equal(t, "http://localhost:8080/v1", cfg.AptosNodeURL)
}

func TestLoadReportsAllMissing(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "JWT_ISSUER", "JWT_SECRET", "JWT_TTL", "WS_ORIGIN", "XYRA_API_BASE_URL", "XYRA_API_KEY", "APTOS_PRIVATE_KEY"} {
		t.Setenv(k, "")
	}
	_, err := Load()
	require.EqualError(t, err, "missing required env: HTTP_ADDR,JWT_ISSUER,JWT_SECRET,JWT_TTL,WS_ORIGIN,XYRA_API_BASE_URL,XYRA_API_KEY,APTOS_PRIVATE_KEY")
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"CONFIRM_TIMEOUT":      "-1s",
		"API_RATE_LIMIT":       "zero",
		"LOG_LEVEL":            "loud",
		"APTOS_MAX_GAS_AMOUNT": "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadMarketsDefaults(t *testing.T) {
	markets, err := LoadMarkets("")
	require.NoError(t, err)
	require.Len(t, markets, 4)
	require.Equal(t, "BTC", markets[0].Symbol)
	require.EqualValues(t, 1000, markets[0].LotSizeMultiplier)
}

func TestLoadMarketsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markets.yaml")
	body := `markets:
  - id: 15
    symbol: btc
    base_decimals: 8
    lot_size_multiplier: 1000
    price_precision: 0
  - id: 40
    symbol: DOGE
    base_decimals: 8
    lot_size_multiplier: 1000000
    price_precision: 5
    max_leverage: 5
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	markets, err := LoadMarkets(path)
	require.NoError(t, err)
	require.Len(t, markets, 2)
	require.Equal(t, "BTC", markets[0].Symbol)
	require.EqualValues(t, DefaultMaxLeverage, markets[0].MaxLeverage)
	require.EqualValues(t, 5, markets[1].MaxLeverage)
}

func TestParseMarketsRejectsInvalid(t *testing.T) {
	_, err := ParseMarkets([]byte("markets:\n  - {id: 1, symbol: X, base_decimals: 8, lot_size_multiplier: 0}\n"))
	require.ErrorContains(t, err, "lot_size_multiplier")

	_, err = ParseMarkets([]byte("markets:\n  - {id: 1, symbol: X, lot_size_multiplier: 1}\n  - {id: 2, symbol: x, lot_size_multiplier: 1}\n"))
	require.ErrorContains(t, err, "duplicate symbol X")

	_, err = ParseMarkets([]byte("markets: []\n"))
	require.Error(t, err)
}
