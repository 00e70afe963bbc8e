package aptos

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

const testSeedHex = "9bf49a6a0755f953811fce125f2683d50429c3bb49e074147e0089a52eae155f"

func TestParsePrivateKeyFormats(t *testing.T) {
	want, err := ParsePrivateKey(testSeedHex)
	require.NoError(t, err)
	for _, raw := range []string{"0x" + testSeedHex, "ed25519-priv-0x" + testSeedHex, "  " + testSeedHex + "\n"} {
		got, err := ParsePrivateKey(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got)
	}
	for _, raw := range []string{"", "0x", "zz", "0x0102"} {
		_, err := ParsePrivateKey(raw)
		require.Error(t, err, raw)
	}
}

func TestAddressFromPublicKey(t *testing.T) {
	key, err := ParsePrivateKey(testSeedHex)
	require.NoError(t, err)
	pub := key.Public().(ed25519.PublicKey)

	sum := sha3.Sum256(append(append([]byte{}, pub...), 0x00))
	addr := AddressFromPublicKey(pub)
	require.Equal(t, "0x"+hex.EncodeToString(sum[:]), addr)
	require.Len(t, addr, 66)
}

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("0x1")
	require.NoError(t, err)
	require.Equal(t, "0x"+strings.Repeat("0", 63)+"1", got)

	got, err = NormalizeAddress("0xABC")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(got, "abc"))

	_, err = NormalizeAddress("0xnothex")
	require.Error(t, err)
}

func TestParseEntryFunction(t *testing.T) {
	camel := `{"function":"0xabc::perp::place_market_order","typeArguments":["0x1::aptos_coin::AptosCoin"],"functionArguments":["15",true,"12345"]}`
	fn, err := ParseEntryFunction([]byte(camel))
	require.NoError(t, err)
	require.Equal(t, "0xabc::perp::place_market_order", fn.Function)
	require.Len(t, fn.TypeArguments, 1)
	require.Len(t, fn.Arguments, 3)
	require.JSONEq(t, `true`, string(fn.Arguments[1]))

	snake := `{"function":"0xabc::perp::close","type_arguments":[],"arguments":["1"]}`
	fn, err = ParseEntryFunction([]byte(snake))
	require.NoError(t, err)
	require.Empty(t, fn.TypeArguments)
	require.Len(t, fn.Arguments, 1)

	_, err = ParseEntryFunction([]byte(`{"function":"transfer"}`))
	require.Error(t, err)
}

type fakeNode struct {
	t         *testing.T
	key       ed25519.PublicKey
	lookups   atomic.Int32
	pendingN  int32
	vmStatus  string
	success   bool
	submitted atomic.Bool
}

func (f *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/accounts/"):
		_, _ = w.Write([]byte(`{"sequence_number":"7","authentication_key":"0x00"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v1":
		_, _ = w.Write([]byte(`{"chain_id":1,"ledger_version":"123","block_height":"45"}`))
	case r.URL.Path == "/v1/estimate_gas_price":
		_, _ = w.Write([]byte(`{"gas_estimate":150}`))
	case r.URL.Path == "/v1/transactions/encode_submission":
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(f.t, json.Unmarshal(body, &req))
		require.Equal(f.t, "7", req["sequence_number"])
		require.Equal(f.t, "150", req["gas_unit_price"])
		payload := req["payload"].(map[string]any)
		require.Equal(f.t, "entry_function_payload", payload["type"])
		_, _ = w.Write([]byte(`"0xb5e97db07fa0bd0e5598aa3643a9bc6f6693bddc1a9fec9e674a461eaa00b193cafe"`))
	case r.Method == http.MethodPost && r.URL.Path == "/v1/transactions":
		body, _ := io.ReadAll(r.Body)
		var txn struct {
			Signature struct {
				Type      string `json:"type"`
				PublicKey string `json:"public_key"`
				Signature string `json:"signature"`
			} `json:"signature"`
		}
		require.NoError(f.t, json.Unmarshal(body, &txn))
		require.Equal(f.t, "ed25519_signature", txn.Signature.Type)
		sig, err := hex.DecodeString(strings.TrimPrefix(txn.Signature.Signature, "0x"))
		require.NoError(f.t, err)
		msg, _ := hex.DecodeString("b5e97db07fa0bd0e5598aa3643a9bc6f6693bddc1a9fec9e674a461eaa00b193cafe")
		require.True(f.t, ed25519.Verify(f.key, msg, sig))
		f.submitted.Store(true)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"hash":"0xfeed","type":"pending_transaction"}`))
	case strings.HasPrefix(r.URL.Path, "/v1/transactions/by_hash/"):
		n := f.lookups.Add(1)
		switch {
		case n == 1:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Transaction not found","error_code":"transaction_not_found"}`))
		case n <= 1+f.pendingN:
			_, _ = w.Write([]byte(`{"type":"pending_transaction","hash":"0xfeed"}`))
		default:
			_, _ = w.Write([]byte(`{"type":"user_transaction","hash":"0xfeed","version":"42","success":` + boolJSON(f.success) + `,"vm_status":"` + f.vmStatus + `"}`))
		}
	default:
		http.NotFound(w, r)
	}
}

func boolJSON(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func newFakeNode(t *testing.T, key ed25519.PrivateKey, opts ...func(*fakeNode)) (*fakeNode, *Node) {
	f := &fakeNode{t: t, key: key.Public().(ed25519.PublicKey), pendingN: 1, success: true, vmStatus: "Executed successfully"}
	for _, opt := range opts {
		opt(f)
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	node := NewNode(srv.URL + "/v1/")
	node.PollInitial = time.Millisecond
	node.PollMax = 5 * time.Millisecond
	return f, node
}

func TestSignAndSubmitAndWait(t *testing.T) {
	key, err := ParsePrivateKey(testSeedHex)
	require.NoError(t, err)
	f, node := newFakeNode(t, key)
	signer := NewSigner(node, key, 20000, 100, nil)

	fn, err := ParseEntryFunction([]byte(`{"function":"0xabc::perp::place_market_order","functionArguments":["15"]}`))
	require.NoError(t, err)
	sub, err := signer.SignAndSubmit(context.Background(), fn)
	require.NoError(t, err)
	require.Equal(t, "0xfeed", sub.Hash)
	require.EqualValues(t, 7, sub.SequenceNumber)
	require.Equal(t, signer.Address(), sub.Sender)
	require.True(t, f.submitted.Load())

	txn, err := node.WaitForTransaction(context.Background(), sub.Hash)
	require.NoError(t, err)
	require.True(t, txn.Success)
	require.Equal(t, "42", txn.Version)
	require.EqualValues(t, 3, f.lookups.Load())
}

func TestWaitForTransactionReportsFailure(t *testing.T) {
	key, _ := ParsePrivateKey(testSeedHex)
	_, node := newFakeNode(t, key, func(f *fakeNode) {
		f.success = false
		f.vmStatus = "Move abort in 0xabc::perp: EINSUFFICIENT_MARGIN(0x1)"
	})
	txn, err := node.WaitForTransaction(context.Background(), "0xfeed")
	require.NoError(t, err)
	require.False(t, txn.Success)
	require.Contains(t, txn.VMStatus, "EINSUFFICIENT_MARGIN")
}

func TestWaitForTransactionHonoursDeadline(t *testing.T) {
	key, _ := ParsePrivateKey(testSeedHex)
	_, node := newFakeNode(t, key, func(f *fakeNode) { f.pendingN = 1 << 20 })
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := node.WaitForTransaction(ctx, "0xfeed")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNodeErrorDecodesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid transaction: SEQUENCE_NUMBER_TOO_OLD","error_code":"vm_error"}`))
	}))
	t.Cleanup(srv.Close)
	_, err := NewNode(srv.URL).EstimateGasPrice(context.Background())
	var nerr *NodeError
	require.ErrorAs(t, err, &nerr)
	require.Equal(t, http.StatusBadRequest, nerr.Status)
	require.Contains(t, err.Error(), "SEQUENCE_NUMBER_TOO_OLD")
}

func TestLedgerInfo(t *testing.T) {
	key, err := ParsePrivateKey(testSeedHex)
	require.NoError(t, err)
	_, node := newFakeNode(t, key)

	info, err := node.LedgerInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, info.ChainID)
	require.Equal(t, "123", info.LedgerVersion)
	require.NoError(t, node.Ping(context.Background()))
}
