package aptos

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

const defaultExpiry = 60 * time.Second

// Signer signs transactions for one ed25519 account and submits them.
type Signer struct {
	node    *Node
	key     ed25519.PrivateKey
	address string
	log     *slog.Logger

	MaxGasAmount uint64
	// GasUnitPrice is used when the node's estimate is unavailable.
	GasUnitPrice uint64
	Expiry       time.Duration
	now          func() time.Time
}

func NewSigner(node *Node, key ed25519.PrivateKey, maxGas, gasUnitPrice uint64, logger *slog.Logger) *Signer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signer{
		node:         node,
		key:          key,
		address:      AddressFromPublicKey(key.Public().(ed25519.PublicKey)),
		log:          logger,
		MaxGasAmount: maxGas,
		GasUnitPrice: gasUnitPrice,
		Expiry:       defaultExpiry,
		now:          time.Now,
	}
}

func (s *Signer) Address() string { return s.address }

// Submitted is a transaction accepted by the node.
type Submitted struct {
	Hash           string
	Sender         string
	SequenceNumber uint64
	SubmittedAt    time.Time
}

// SignAndSubmit builds, signs and submits fn from the signer's account.
func (s *Signer) SignAndSubmit(ctx context.Context, fn EntryFunction) (Submitted, error) {
	seq, err := s.node.SequenceNumber(ctx, s.address)
	if err != nil {
		return Submitted{}, err
	}
	gasPrice := s.GasUnitPrice
	if est, err := s.node.EstimateGasPrice(ctx); err != nil {
		s.log.Warn("gas price estimate failed, using configured price", "error", err, "gas_unit_price", gasPrice)
	} else if est > 0 {
		gasPrice = est
	}

	req := TransactionRequest{
		Sender:                  s.address,
		SequenceNumber:          strconv.FormatUint(seq, 10),
		MaxGasAmount:            strconv.FormatUint(s.MaxGasAmount, 10),
		GasUnitPrice:            strconv.FormatUint(gasPrice, 10),
		ExpirationTimestampSecs: strconv.FormatInt(s.now().Add(s.Expiry).Unix(), 10),
		Payload:                 fn.restPayload(),
	}
	msg, err := s.node.EncodeSubmission(ctx, req)
	if err != nil {
		return Submitted{}, err
	}
	sig := ed25519.Sign(s.key, msg)
	hash, err := s.node.Submit(ctx, SignedTransaction{
		TransactionRequest: req,
		Signature: signature{
			Type:      "ed25519_signature",
			PublicKey: "0x" + hex.EncodeToString(s.key.Public().(ed25519.PublicKey)),
			Signature: "0x" + hex.EncodeToString(sig),
		},
	})
	if err != nil {
		return Submitted{}, err
	}
	s.log.Info("transaction submitted", "hash", hash, "sender", s.address, "sequence", seq, "function", fn.Function)
	return Submitted{Hash: hash, Sender: s.address, SequenceNumber: seq, SubmittedAt: s.now().UTC()}, nil
}

// String hides the key when the signer is logged.
func (s *Signer) String() string {
	return fmt.Sprintf("aptos.Signer{%s}", s.address)
}
