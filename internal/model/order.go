package model

import (
	"time"

	"perpdesk/internal/types"

	"github.com/shopspring/decimal"
)

// OrderIntent is the in-progress trade ticket as entered by the user.
type OrderIntent struct {
	Market         string               `json:"market"`
	Tab            types.Tab            `json:"tab"`
	Side           types.OrderSide      `json:"side"`
	Kind           types.OrderType      `json:"kind"`
	AmountCurrency types.AmountCurrency `json:"amount_currency"`
	Amount         string               `json:"amount"`
	Price          string               `json:"price"`
	Leverage       int64                `json:"leverage"`
	TakeProfit     string               `json:"take_profit,omitempty"`
	StopLoss       string               `json:"stop_loss,omitempty"`
}

func (o OrderIntent) IsClose() bool {
	return o.Tab == types.TabClose
}

func (o OrderIntent) IsLong() bool {
	return o.Side == types.OrderSideBuy
}

type RiskSummary struct {
	SizeBase           decimal.Decimal `json:"size_base"`
	NotionalQuote      decimal.Decimal `json:"notional_quote"`
	RequiredMargin     decimal.Decimal `json:"required_margin"`
	EstLiqPriceLong    decimal.Decimal `json:"est_liq_price_long"`
	EstLiqPriceShort   decimal.Decimal `json:"est_liq_price_short"`
	LiqPriceUnreliable bool            `json:"liq_price_unreliable"`
}

// EncodedOrderPayload is the wire-ready order handed to the settlement layer.
type EncodedOrderPayload struct {
	MarketID     int64           `json:"market_id"`
	Kind         types.OrderType `json:"kind"`
	IsLong       bool            `json:"is_long"`
	IsClose      bool            `json:"is_close"`
	SizeInteger  string          `json:"size_integer"`
	PriceInteger string          `json:"price_integer,omitempty"`
	Leverage     int64           `json:"leverage"`
	TakeProfit   string          `json:"take_profit"`
	StopLoss     string          `json:"stop_loss"`
}

// TxHandle identifies a transaction accepted by the network.
type TxHandle struct {
	Hash        string    `json:"hash"`
	Sender      string    `json:"sender"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Confirmation struct {
	Success  bool   `json:"success"`
	VMStatus string `json:"vm_status"`
	Version  string `json:"version,omitempty"`
}

type OrderResult struct {
	SubmissionID string                `json:"submission_id"`
	FormID       string                `json:"form_id"`
	Account      string                `json:"account"`
	Market       string                `json:"market"`
	State        types.SubmissionState `json:"state"`
	Summary      *RiskSummary          `json:"summary,omitempty"`
	Payload      *EncodedOrderPayload  `json:"payload,omitempty"`
	TxHash       string                `json:"tx_hash,omitempty"`
	VMStatus     string                `json:"vm_status,omitempty"`
	ErrorKind    string                `json:"error_kind,omitempty"`
	Error        string                `json:"error,omitempty"`
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   time.Time             `json:"finished_at"`
}
