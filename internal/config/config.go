package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAptosNodeURL   = "https://fullnode.mainnet.aptoslabs.com/v1"
	DefaultConfirmTimeout = 30 * time.Second
	DefaultAPIRateLimit   = 10.0
	DefaultMaxGasAmount   = 20000
	DefaultGasUnitPrice   = 100
)

type Config struct {
	HTTPAddr        string
	DBDSN           string
	JWTIssuer       string
	JWTSecret       string
	JWTTTL          time.Duration
	WebSocketOrigin string

	XyraBaseURL     string
	XyraAPIKey      string
	XyraUserAddress string
	APIRateLimit    float64

	AptosNodeURL    string
	AptosPrivateKey string
	MaxGasAmount    uint64
	GasUnitPrice    uint64
	ConfirmTimeout  time.Duration

	MarketsFile  string
	OTLPEndpoint string
	LogLevel     slog.Level
}

func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	// Optional: without a database the submission journal is disabled.
	c.DBDSN = os.Getenv("DB_DSN")
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	jwtTTL := os.Getenv("JWT_TTL")
	if jwtTTL == "" {
		missing = append(missing, "JWT_TTL")
	} else {
		d, err := time.ParseDuration(jwtTTL)
		if err != nil {
			return c, err
		}
		c.JWTTTL = d
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}

	c.XyraBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("XYRA_API_BASE_URL")), "/")
	if c.XyraBaseURL == "" {
		missing = append(missing, "XYRA_API_BASE_URL")
	}
	c.XyraAPIKey = os.Getenv("XYRA_API_KEY")
	if c.XyraAPIKey == "" {
		missing = append(missing, "XYRA_API_KEY")
	}
	c.XyraUserAddress = strings.ToLower(strings.TrimSpace(os.Getenv("XYRA_USER_ADDRESS")))
	rate := strings.TrimSpace(os.Getenv("API_RATE_LIMIT"))
	if rate == "" {
		c.APIRateLimit = DefaultAPIRateLimit
	} else {
		v, err := strconv.ParseFloat(rate, 64)
		if err != nil || v <= 0 {
			return c, errors.New("invalid API_RATE_LIMIT: must be a positive number")
		}
		c.APIRateLimit = v
	}

	c.AptosNodeURL = strings.TrimRight(strings.TrimSpace(os.Getenv("APTOS_NODE_URL")), "/")
	if c.AptosNodeURL == "" {
		c.AptosNodeURL = DefaultAptosNodeURL
	}
	c.AptosPrivateKey = strings.TrimSpace(os.Getenv("APTOS_PRIVATE_KEY"))
	if c.AptosPrivateKey == "" {
		missing = append(missing, "APTOS_PRIVATE_KEY")
	}
	maxGas, err := uintEnv("APTOS_MAX_GAS_AMOUNT", DefaultMaxGasAmount)
	if err != nil {
		return c, err
	}
	c.MaxGasAmount = maxGas
	gasPrice, err := uintEnv("APTOS_GAS_UNIT_PRICE", DefaultGasUnitPrice)
	if err != nil {
		return c, err
	}
	c.GasUnitPrice = gasPrice
	confirm := strings.TrimSpace(os.Getenv("CONFIRM_TIMEOUT"))
	if confirm == "" {
		c.ConfirmTimeout = DefaultConfirmTimeout
	} else {
		d, err := time.ParseDuration(confirm)
		if err != nil {
			return c, err
		}
		if d <= 0 {
			return c, errors.New("invalid CONFIRM_TIMEOUT: must be positive")
		}
		c.ConfirmTimeout = d
	}

	c.MarketsFile = os.Getenv("MARKETS_FILE")
	c.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level != "" {
		if err := c.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return c, errors.New("invalid LOG_LEVEL: use debug, info, warn or error")
		}
	}
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}

func uintEnv(key string, def uint64) (uint64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, errors.New("invalid " + key + ": must be a positive integer")
	}
	return v, nil
}
