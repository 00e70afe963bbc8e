// Package chain turns an encoded order into a committed transaction: the
// order builder returns an entry-function payload which is signed and
// submitted from the configured account.
package chain

import (
	"context"
	"errors"
	"log/slog"

	"perpdesk/internal/aptos"
	"perpdesk/internal/model"
	"perpdesk/internal/tradeerr"

	json "github.com/goccy/go-json"
)

type OrderBuilder interface {
	BuildOrder(ctx context.Context, p model.EncodedOrderPayload, userAddress string) (json.RawMessage, error)
}

type TxSigner interface {
	Address() string
	SignAndSubmit(ctx context.Context, fn aptos.EntryFunction) (aptos.Submitted, error)
}

type TxWaiter interface {
	WaitForTransaction(ctx context.Context, hash string) (aptos.Transaction, error)
}

type Executor struct {
	builder OrderBuilder
	signer  TxSigner
	waiter  TxWaiter
	log     *slog.Logger
}

func NewExecutor(builder OrderBuilder, signer TxSigner, waiter TxWaiter, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{builder: builder, signer: signer, waiter: waiter, log: logger}
}

// Account is the address orders are placed and signed for.
func (e *Executor) Account() string {
	return e.signer.Address()
}

// SubmitOrder builds, signs and submits p. Every failure is a transport
// error; nothing is retried.
func (e *Executor) SubmitOrder(ctx context.Context, p model.EncodedOrderPayload) (model.TxHandle, error) {
	raw, err := e.builder.BuildOrder(ctx, p, e.signer.Address())
	if err != nil {
		return model.TxHandle{}, tradeerr.Transport("build order payload", err)
	}
	fn, err := aptos.ParseEntryFunction(raw)
	if err != nil {
		return model.TxHandle{}, tradeerr.Transport("build order payload", err)
	}
	sub, err := e.signer.SignAndSubmit(ctx, fn)
	if err != nil {
		return model.TxHandle{}, tradeerr.Transport("submit transaction", err)
	}
	e.log.Debug("order transaction submitted", "hash", sub.Hash, "market_id", p.MarketID, "function", fn.Function)
	return model.TxHandle{Hash: sub.Hash, Sender: sub.Sender, SubmittedAt: sub.SubmittedAt}, nil
}

// AwaitConfirmation waits until h commits. A committed but failed
// transaction is reported through Confirmation, not as an error. Context
// expiry is returned wrapped so callers can match context.DeadlineExceeded.
func (e *Executor) AwaitConfirmation(ctx context.Context, h model.TxHandle) (model.Confirmation, error) {
	txn, err := e.waiter.WaitForTransaction(ctx, h.Hash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return model.Confirmation{}, tradeerr.New(tradeerr.KindTimeout,
				tradeerr.WithMessage("transaction not confirmed in time"),
				tradeerr.WithField("tx_hash", h.Hash),
				tradeerr.WithCause(err))
		}
		return model.Confirmation{}, tradeerr.Transport("confirm transaction", err)
	}
	return model.Confirmation{Success: txn.Success, VMStatus: txn.VMStatus, Version: txn.Version}, nil
}
