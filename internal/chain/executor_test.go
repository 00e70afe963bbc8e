package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"perpdesk/internal/aptos"
	"perpdesk/internal/model"
	"perpdesk/internal/tradeerr"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type fakeBuilder struct {
	payload json.RawMessage
	err     error
	gotUser string
}

func (f *fakeBuilder) BuildOrder(_ context.Context, _ model.EncodedOrderPayload, user string) (json.RawMessage, error) {
	f.gotUser = user
	return f.payload, f.err
}

type fakeSigner struct {
	fn  aptos.EntryFunction
	err error
}

func (f *fakeSigner) Address() string { return "0xsigner" }

func (f *fakeSigner) SignAndSubmit(_ context.Context, fn aptos.EntryFunction) (aptos.Submitted, error) {
	f.fn = fn
	if f.err != nil {
		return aptos.Submitted{}, f.err
	}
	return aptos.Submitted{Hash: "0xhash", Sender: "0xsigner", SubmittedAt: time.Unix(10, 0)}, nil
}

type fakeWaiter struct {
	txn aptos.Transaction
	err error
}

func (f fakeWaiter) WaitForTransaction(ctx context.Context, _ string) (aptos.Transaction, error) {
	if f.err != nil {
		return aptos.Transaction{}, f.err
	}
	return f.txn, nil
}

func TestSubmitOrder(t *testing.T) {
	b := &fakeBuilder{payload: json.RawMessage(`{"function":"0x1::perp::place_market_order","functionArguments":["15"]}`)}
	s := &fakeSigner{}
	e := NewExecutor(b, s, fakeWaiter{}, nil)

	h, err := e.SubmitOrder(context.Background(), model.EncodedOrderPayload{MarketID: 15})
	require.NoError(t, err)
	require.Equal(t, "0xhash", h.Hash)
	require.Equal(t, "0xsigner", b.gotUser)
	require.Equal(t, "0x1::perp::place_market_order", s.fn.Function)
	require.Equal(t, "0xsigner", e.Account())
}

func TestSubmitOrderErrorsAreTransport(t *testing.T) {
	cause := errors.New("connection refused")
	cases := map[string]*Executor{
		"builder": NewExecutor(&fakeBuilder{err: cause}, &fakeSigner{}, fakeWaiter{}, nil),
		"payload": NewExecutor(&fakeBuilder{payload: json.RawMessage(`{"function":"nope"}`)}, &fakeSigner{}, fakeWaiter{}, nil),
		"signer": NewExecutor(&fakeBuilder{payload: json.RawMessage(`{"function":"0x1::a::b"}`)},
			&fakeSigner{err: cause}, fakeWaiter{}, nil),
	}
	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.SubmitOrder(context.Background(), model.EncodedOrderPayload{})
			require.True(t, tradeerr.IsKind(err, tradeerr.KindTransport), "%v", err)
		})
	}
	_, err := cases["builder"].SubmitOrder(context.Background(), model.EncodedOrderPayload{})
	require.ErrorIs(t, err, cause)
}

func TestAwaitConfirmation(t *testing.T) {
	e := NewExecutor(nil, &fakeSigner{}, fakeWaiter{txn: aptos.Transaction{Success: false, VMStatus: "Move abort", Version: "9"}}, nil)
	c, err := e.AwaitConfirmation(context.Background(), model.TxHandle{Hash: "0xhash"})
	require.NoError(t, err)
	require.False(t, c.Success)
	require.Equal(t, "Move abort", c.VMStatus)

	e = NewExecutor(nil, &fakeSigner{}, fakeWaiter{err: context.DeadlineExceeded}, nil)
	_, err = e.AwaitConfirmation(context.Background(), model.TxHandle{Hash: "0xhash"})
	require.True(t, tradeerr.IsKind(err, tradeerr.KindTimeout))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	e = NewExecutor(nil, &fakeSigner{}, fakeWaiter{err: errors.New("502")}, nil)
	_, err = e.AwaitConfirmation(context.Background(), model.TxHandle{Hash: "0xhash"})
	require.True(t, tradeerr.IsKind(err, tradeerr.KindTransport))
}
