package config

import (
	"fmt"
	"os"
	"strings"

	"perpdesk/internal/model"

	"gopkg.in/yaml.v3"
)

// DefaultMaxLeverage applies to catalogue entries that omit max_leverage.
const DefaultMaxLeverage = 20

// DefaultMarkets is the built-in catalogue used when no MARKETS_FILE is set.
func DefaultMarkets() []model.Market {
	return []model.Market{
		{ID: 15, Symbol: "BTC", BaseDecimals: 8, LotSizeMultiplier: 1000, PricePrecision: 0, MaxLeverage: DefaultMaxLeverage},
		{ID: 16, Symbol: "ETH", BaseDecimals: 8, LotSizeMultiplier: 10000, PricePrecision: 1, MaxLeverage: DefaultMaxLeverage},
		{ID: 14, Symbol: "APT", BaseDecimals: 8, LotSizeMultiplier: 100000, PricePrecision: 3, MaxLeverage: DefaultMaxLeverage},
		{ID: 31, Symbol: "SOL", BaseDecimals: 8, LotSizeMultiplier: 100000, PricePrecision: 2, MaxLeverage: DefaultMaxLeverage},
	}
}

type marketsFile struct {
	Markets []model.Market `yaml:"markets"`
}

// LoadMarkets reads the market catalogue from path, or returns the built-in
// catalogue when path is empty.
func LoadMarkets(path string) ([]model.Market, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultMarkets(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMarkets(data)
}

func ParseMarkets(data []byte) ([]model.Market, error) {
	var f marketsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse markets: %w", err)
	}
	if len(f.Markets) == 0 {
		return nil, fmt.Errorf("parse markets: no markets defined")
	}
	seen := make(map[string]struct{}, len(f.Markets))
	out := make([]model.Market, 0, len(f.Markets))
	for _, m := range f.Markets {
		m.Symbol = strings.ToUpper(strings.TrimSpace(m.Symbol))
		if m.MaxLeverage == 0 {
			m.MaxLeverage = DefaultMaxLeverage
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("invalid markets file: %w", err)
		}
		if _, dup := seen[m.Symbol]; dup {
			return nil, fmt.Errorf("invalid markets file: duplicate symbol %s", m.Symbol)
		}
		seen[m.Symbol] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}
