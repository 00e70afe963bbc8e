// Package aptos signs and submits entry-function transactions through an
// Aptos fullnode REST API and waits for them to commit.
package aptos

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ed25519Scheme is the single-signer authentication scheme byte.
const ed25519Scheme = 0x00

// ParsePrivateKey accepts an ed25519 seed as "ed25519-priv-0x…", "0x…" or
// bare hex.
func ParsePrivateKey(raw string) (ed25519.PrivateKey, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "ed25519-priv-")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, errors.New("aptos: private key is empty")
	}
	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("aptos: private key is not hex: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("aptos: private key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// AddressFromPublicKey derives the account address of a single-key ed25519
// account: sha3-256(pubkey || 0x00).
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	h := sha3.New256()
	h.Write(pub)
	h.Write([]byte{ed25519Scheme})
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// NormalizeAddress lowercases addr and left-pads it to 64 hex digits.
func NormalizeAddress(addr string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(addr))
	s = strings.TrimPrefix(s, "0x")
	if s == "" || len(s) > 64 {
		return "", fmt.Errorf("aptos: invalid address %q", addr)
	}
	if _, err := hex.DecodeString(strings.Repeat("0", len(s)%2) + s); err != nil {
		return "", fmt.Errorf("aptos: invalid address %q", addr)
	}
	return "0x" + strings.Repeat("0", 64-len(s)) + s, nil
}
