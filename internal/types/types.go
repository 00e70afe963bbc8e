package types

type OrderSide string

type OrderType string

type Tab string

type AmountCurrency string

type SubmissionState string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

const (
	TabOpen  Tab = "open"
	TabClose Tab = "close"
)

const (
	AmountCurrencyQuote AmountCurrency = "quote"
	AmountCurrencyBase  AmountCurrency = "base"
)

const (
	SubmissionIdle       SubmissionState = "idle"
	SubmissionValidating SubmissionState = "validating"
	SubmissionEncoding   SubmissionState = "encoding"
	SubmissionSubmitting SubmissionState = "submitting"
	SubmissionConfirming SubmissionState = "confirming"
	SubmissionSucceeded  SubmissionState = "succeeded"
	SubmissionFailed     SubmissionState = "failed"
)

func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

func (t OrderType) Valid() bool {
	return t == OrderTypeLimit || t == OrderTypeMarket
}

func (t Tab) Valid() bool {
	return t == TabOpen || t == TabClose
}

func (c AmountCurrency) Valid() bool {
	return c == AmountCurrencyQuote || c == AmountCurrencyBase
}

// Terminal reports whether the state ends a submission attempt.
func (s SubmissionState) Terminal() bool {
	return s == SubmissionSucceeded || s == SubmissionFailed
}
