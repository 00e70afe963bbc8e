// Package tradeerr defines the error envelope returned by the order sizing,
// risk and submission code.
package tradeerr

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies an error category.
type Kind string

const (
	KindInvalidPrice          Kind = "invalid_price"
	KindInvalidAmount         Kind = "invalid_amount"
	KindInvalidLeverage       Kind = "invalid_leverage"
	KindInvalidTrigger        Kind = "invalid_trigger"
	KindInvalidOrder          Kind = "invalid_order"
	KindInsufficientBalance   Kind = "insufficient_balance"
	KindNoPositionToClose     Kind = "no_position_to_close"
	KindExceedsPositionSize   Kind = "exceeds_position_size"
	KindPriceRequiredForLimit Kind = "price_required_for_limit"
	KindMarketConfigMissing   Kind = "market_config_missing"
	KindTransport             Kind = "transport_error"
	KindOnChainFailure        Kind = "on_chain_failure"
	KindTimeout               Kind = "timeout"
	KindSubmissionInFlight    Kind = "submission_in_flight"
)

// Validation reports whether errors of this kind are raised before any
// network call and leave nothing submitted.
func (k Kind) Validation() bool {
	switch k {
	case KindTransport, KindOnChainFailure, KindTimeout, KindSubmissionInFlight:
		return false
	}
	return true
}

// Error is the structured error carried across the engine.
type Error struct {
	Kind    Kind
	Message string
	// Context holds the numeric values behind the failure, e.g. required and available.
	Context map[string]string

	cause error
}

// Option configures an Error.
type Option func(*Error)

func New(kind Kind, opts ...Option) *Error {
	e := &Error{Kind: kind}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func WithMessage(msg string) Option {
	trimmed := strings.TrimSpace(msg)
	return func(e *Error) {
		e.Message = trimmed
	}
}

func WithCause(err error) Option {
	return func(e *Error) {
		e.cause = err
	}
}

func WithField(key, value string) Option {
	return func(e *Error) {
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		if e.Context == nil {
			e.Context = make(map[string]string, 2)
		}
		e.Context[key] = strings.TrimSpace(value)
	}
}

func WithAmount(key string, v decimal.Decimal) Option {
	return WithField(key, v.String())
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = strings.ReplaceAll(string(e.Kind), "_", " ")
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+e.Context[k])
		}
		msg += " (" + strings.Join(pairs, ", ") + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error of the same kind, so sentinel-style checks work:
// errors.Is(err, tradeerr.New(tradeerr.KindTimeout)).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Transport wraps err as a transport error unless it already carries a kind.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return New(KindTransport, WithMessage(op+" failed"), WithCause(err))
}
