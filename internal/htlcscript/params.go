// Package htlcscript derives the Bitcoin HTLC redeem script and its P2SH
// address from swap parameters, and re-derives the same script to verify a
// counterparty's claim about it.
package htlcscript

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// Errors returned by Build.
var (
	ErrScriptTooLarge  = errors.New("redeem script exceeds standardness limit")
	ErrInvalidTimeout  = errors.New("timeout is not representable as a block-height locktime")
	ErrInvalidPubKey   = errors.New("public key must be 33-byte compressed form")
	ErrInvalidHash     = errors.New("hash must be 32 bytes")
)

// lockTimeThreshold is Bitcoin's boundary between block-height and Unix-time
// locktime interpretation (BIP-65 / nLockTime semantics).
const lockTimeThreshold = 500_000_000

// maxRedeemScriptSize is the standardness limit for a script pushed inside a
// scriptSig (BIP-16).
const maxRedeemScriptSize = 520

// Params are the inputs to Build. Immutable once constructed.
type Params struct {
	RecipientPubKey []byte // 33-byte compressed secp256k1 public key
	SenderPubKey    []byte // 33-byte compressed secp256k1 public key
	PaymentHash     []byte // 32 bytes, SHA-256(preimage)
	Timeout         int64  // absolute block height
	Network         *chaincfg.Params
}

// Validate checks the structural invariants every Params must satisfy before
// a script can be built from it.
func (p Params) Validate() error {
	if len(p.RecipientPubKey) != 33 || (p.RecipientPubKey[0] != 0x02 && p.RecipientPubKey[0] != 0x03) {
		return fmt.Errorf("%w: recipient_pubkey", ErrInvalidPubKey)
	}
	if len(p.SenderPubKey) != 33 || (p.SenderPubKey[0] != 0x02 && p.SenderPubKey[0] != 0x03) {
		return fmt.Errorf("%w: sender_pubkey", ErrInvalidPubKey)
	}
	if len(p.PaymentHash) != 32 {
		return fmt.Errorf("%w: payment_hash", ErrInvalidHash)
	}
	if p.Timeout <= 0 || p.Timeout >= lockTimeThreshold {
		return ErrInvalidTimeout
	}
	if p.Network == nil {
		return errors.New("network is required")
	}
	return nil
}
