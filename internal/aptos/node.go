package aptos

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
)

const (
	MainnetNodeURL = "https://fullnode.mainnet.aptoslabs.com/v1"

	defaultHTTPTimeout = 15 * time.Second
	maxErrorBody       = 4 << 10
)

// NodeError is a non-2xx answer from the fullnode.
type NodeError struct {
	Op        string
	Status    int
	Message   string
	ErrorCode string
}

func (e *NodeError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if e.ErrorCode != "" {
		msg += " (" + e.ErrorCode + ")"
	}
	return fmt.Sprintf("aptos %s: status %d: %s", e.Op, e.Status, msg)
}

// ErrNotFound is returned for 404 answers.
var ErrNotFound = errors.New("aptos: not found")

// Node is a minimal fullnode REST client.
type Node struct {
	baseURL    string
	httpClient *http.Client
	// PollInitial and PollMax bound the confirmation polling interval.
	PollInitial time.Duration
	PollMax     time.Duration
}

func NewNode(baseURL string) *Node {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = MainnetNodeURL
	}
	return &Node{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		PollInitial: 250 * time.Millisecond,
		PollMax:     2 * time.Second,
	}
}

func (n *Node) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, n.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		nerr := &NodeError{Op: op, Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var apiErr struct {
			Message   string `json:"message"`
			ErrorCode string `json:"error_code"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			nerr.Message = apiErr.Message
			nerr.ErrorCode = apiErr.ErrorCode
		}
		return nerr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", op, err)
	}
	return nil
}

// SequenceNumber returns the next sequence number of addr.
func (n *Node) SequenceNumber(ctx context.Context, addr string) (uint64, error) {
	var account struct {
		SequenceNumber string `json:"sequence_number"`
	}
	if err := n.do(ctx, "get account", http.MethodGet, "/accounts/"+addr, nil, &account); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, fmt.Errorf("aptos: account %s does not exist on chain", addr)
		}
		return 0, err
	}
	seq, err := strconv.ParseUint(account.SequenceNumber, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("aptos: bad sequence number %q", account.SequenceNumber)
	}
	return seq, nil
}

// EstimateGasPrice returns the node's current gas unit price estimate.
func (n *Node) EstimateGasPrice(ctx context.Context) (uint64, error) {
	var est struct {
		GasEstimate uint64 `json:"gas_estimate"`
	}
	if err := n.do(ctx, "estimate gas price", http.MethodGet, "/estimate_gas_price", nil, &est); err != nil {
		return 0, err
	}
	return est.GasEstimate, nil
}

// TransactionRequest is an unsigned user transaction.
type TransactionRequest struct {
	Sender                  string               `json:"sender"`
	SequenceNumber          string               `json:"sequence_number"`
	MaxGasAmount            string               `json:"max_gas_amount"`
	GasUnitPrice            string               `json:"gas_unit_price"`
	ExpirationTimestampSecs string               `json:"expiration_timestamp_secs"`
	Payload                 entryFunctionPayload `json:"payload"`
}

type signature struct {
	Type      string `json:"type"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

type SignedTransaction struct {
	TransactionRequest
	Signature signature `json:"signature"`
}

// EncodeSubmission returns the BCS signing message of req as computed by the node.
func (n *Node) EncodeSubmission(ctx context.Context, req TransactionRequest) ([]byte, error) {
	var hexMsg string
	if err := n.do(ctx, "encode submission", http.MethodPost, "/transactions/encode_submission", req, &hexMsg); err != nil {
		return nil, err
	}
	msg, err := decodeHex(hexMsg)
	if err != nil {
		return nil, fmt.Errorf("aptos: signing message: %w", err)
	}
	return msg, nil
}

// Submit posts a signed transaction and returns its hash.
func (n *Node) Submit(ctx context.Context, txn SignedTransaction) (string, error) {
	var pending struct {
		Hash string `json:"hash"`
	}
	if err := n.do(ctx, "submit transaction", http.MethodPost, "/transactions", txn, &pending); err != nil {
		return "", err
	}
	if pending.Hash == "" {
		return "", errors.New("aptos: node returned no transaction hash")
	}
	return pending.Hash, nil
}

// Transaction is the subset of a transaction record the engine reads.
type Transaction struct {
	Type     string `json:"type"`
	Hash     string `json:"hash"`
	Version  string `json:"version"`
	Success  bool   `json:"success"`
	VMStatus string `json:"vm_status"`
}

func (t Transaction) Pending() bool {
	return t.Type == "pending_transaction"
}

// TransactionByHash fetches a transaction. ErrNotFound means the node has
// not seen it yet.
func (n *Node) TransactionByHash(ctx context.Context, hash string) (Transaction, error) {
	var txn Transaction
	err := n.do(ctx, "get transaction", http.MethodGet, "/transactions/by_hash/"+hash, nil, &txn)
	return txn, err
}

// WaitForTransaction polls until hash is committed or ctx ends. Not found
// and pending answers are retried with exponential backoff; other errors
// are returned immediately.
func (n *Node) WaitForTransaction(ctx context.Context, hash string) (Transaction, error) {
	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = n.PollInitial
	backoffCfg.MaxInterval = n.PollMax
	for {
		txn, err := n.TransactionByHash(ctx, hash)
		switch {
		case err == nil && !txn.Pending():
			return txn, nil
		case err != nil && !errors.Is(err, ErrNotFound):
			if ctx.Err() != nil {
				return Transaction{}, ctx.Err()
			}
			return Transaction{}, err
		}
		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			sleep = n.PollMax
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Transaction{}, ctx.Err()
		case <-timer.C:
		}
	}
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
}

// LedgerInfo is the node's view of the chain head.
type LedgerInfo struct {
	ChainID       int    `json:"chain_id"`
	LedgerVersion string `json:"ledger_version"`
	BlockHeight   string `json:"block_height"`
}

func (n *Node) LedgerInfo(ctx context.Context) (LedgerInfo, error) {
	var info LedgerInfo
	if err := n.do(ctx, "get ledger info", http.MethodGet, "", nil, &info); err != nil {
		return LedgerInfo{}, err
	}
	return info, nil
}

// Ping reports whether the node answers.
func (n *Node) Ping(ctx context.Context) error {
	_, err := n.LedgerInfo(ctx)
	return err
}
