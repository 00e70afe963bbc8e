// Package markets resolves the scaling parameters of tradable markets,
// combining the static catalogue with values reported by the market-info
// service.
package markets

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"perpdesk/internal/model"
	"perpdesk/internal/tradeerr"
)

// InfoSource reports live market parameters.
type InfoSource interface {
	MarketInfo(ctx context.Context, marketID int64) (model.MarketInfo, error)
}

type Registry struct {
	bySymbol map[string]model.Market
	byID     map[int64]model.Market
	source   InfoSource
	log      *slog.Logger

	mu    sync.RWMutex
	cache map[int64]model.MarketParams
}

// NewRegistry builds a registry over markets. source may be nil, in which
// case only static parameters are used.
func NewRegistry(markets []model.Market, source InfoSource, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		bySymbol: make(map[string]model.Market, len(markets)),
		byID:     make(map[int64]model.Market, len(markets)),
		source:   source,
		log:      logger,
		cache:    make(map[int64]model.MarketParams),
	}
	for _, m := range markets {
		r.bySymbol[strings.ToUpper(m.Symbol)] = m
		r.byID[m.ID] = m
	}
	return r
}

func (r *Registry) Lookup(symbol string) (model.Market, error) {
	m, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return model.Market{}, tradeerr.New(tradeerr.KindMarketConfigMissing,
			tradeerr.WithMessage("market configuration not found"),
			tradeerr.WithField("market", symbol))
	}
	return m, nil
}

func (r *Registry) ByID(id int64) (model.Market, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// List returns the catalogue ordered by market id.
func (r *Registry) List() []model.Market {
	out := make([]model.Market, 0, len(r.byID))
	for _, m := range r.byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve fetches live parameters for m and overlays them on the static
// ones. A failed lookup is logged and the static parameters are returned.
func (r *Registry) Resolve(ctx context.Context, m model.Market) model.MarketParams {
	params := m.StaticParams()
	if r.source == nil {
		return params
	}
	info, err := r.source.MarketInfo(ctx, m.ID)
	if err != nil {
		r.log.Warn("market info lookup failed, using static parameters",
			"market", m.Symbol, "market_id", m.ID, "error", err)
		return params
	}
	params = params.Overlay(info)
	r.mu.Lock()
	r.cache[m.ID] = params
	r.mu.Unlock()
	r.log.Debug("market parameters resolved",
		"market", m.Symbol, "lot_size", params.LotSize.String(),
		"base_decimals", params.BaseDecimals, "price_precision", params.PricePrecision,
		"max_leverage", params.MaxLeverage, "dynamic", params.Dynamic)
	return params
}

// Effective returns the last resolved parameters for m without I/O, or the
// static parameters if m has never been resolved.
func (r *Registry) Effective(m model.Market) model.MarketParams {
	r.mu.RLock()
	params, ok := r.cache[m.ID]
	r.mu.RUnlock()
	if ok {
		return params
	}
	return m.StaticParams()
}
