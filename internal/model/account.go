package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountRef names the account an operation acts for.
type AccountRef struct {
	UserAddress string `json:"user_address"`
}

// Position is an open position. Size is signed: negative for shorts.
type Position struct {
	MarketID    int64           `json:"market_id"`
	Size        decimal.Decimal `json:"size"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	Leverage    int64           `json:"leverage"`
	TradeSide   bool            `json:"trade_side"`
	LiqPrice    decimal.Decimal `json:"liq_price"`
	OraclePrice decimal.Decimal `json:"oracle_price"`
	Margin      decimal.Decimal `json:"margin"`
	PnL         decimal.Decimal `json:"pnl"`
	TakeProfit  decimal.Decimal `json:"tp"`
	StopLoss    decimal.Decimal `json:"sl"`
}

// AccountState is an immutable snapshot of balances and open positions.
// A refresh builds a new value; snapshots are never patched in place.
type AccountState struct {
	Account        string             `json:"account"`
	WalletBalance  decimal.Decimal    `json:"wallet_balance"`
	ProfileBalance decimal.Decimal    `json:"profile_balance"`
	Positions      map[int64]Position `json:"positions"`
	FetchedAt      time.Time          `json:"fetched_at"`
}

// NewAccountState builds a snapshot, keeping the first position reported per market.
func NewAccountState(account string, wallet, profile decimal.Decimal, positions []Position, fetchedAt time.Time) AccountState {
	byMarket := make(map[int64]Position, len(positions))
	for _, p := range positions {
		if _, ok := byMarket[p.MarketID]; ok {
			continue
		}
		byMarket[p.MarketID] = p
	}
	return AccountState{
		Account:        account,
		WalletBalance:  wallet,
		ProfileBalance: profile,
		Positions:      byMarket,
		FetchedAt:      fetchedAt.UTC(),
	}
}

func (a AccountState) Position(marketID int64) (Position, bool) {
	p, ok := a.Positions[marketID]
	return p, ok
}
