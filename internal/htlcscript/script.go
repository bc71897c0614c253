package htlcscript

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

// Script is the deterministic result of building a redeem script from Params.
type Script struct {
	// RedeemScript is the opaque byte sequence committed to by P2SHAddress.
	RedeemScript []byte

	// ScriptHash is HASH256 (double SHA-256) of RedeemScript, kept only as an
	// identification aid. It is NOT what the P2SH address commits to; address
	// derivation uses HASH160 internally, per the script-hash field semantics
	// open question.
	ScriptHash [32]byte

	// P2SHAddress is the base58-encoded P2SH address for Params.Network.
	P2SHAddress string
}

// Build derives the HTLC redeem script and its P2SH address from params.
//
// Script layout:
//
//	OP_IF
//	    OP_SHA256 <payment_hash> OP_EQUALVERIFY
//	    <recipient_pubkey> OP_CHECKSIG
//	OP_ELSE
//	    <timeout> OP_CHECKLOCKTIMEVERIFY OP_DROP
//	    <sender_pubkey> OP_CHECKSIG
//	OP_ENDIF
//
// Claim branch (top stack item truthy): preimage + recipient signature.
// Refund branch (top stack item falsy): locktime ≥ timeout + sender signature.
func Build(params Params) (*Script, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_SHA256)
	builder.AddData(params.PaymentHash)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddData(params.RecipientPubKey)
	builder.AddOp(txscript.OP_CHECKSIG)

	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(params.Timeout)
	builder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(params.SenderPubKey)
	builder.AddOp(txscript.OP_CHECKSIG)

	builder.AddOp(txscript.OP_ENDIF)

	redeemScript, err := builder.Script()
	if err != nil {
		return nil, fmt.Errorf("assemble redeem script: %w", err)
	}
	if len(redeemScript) > maxRedeemScriptSize {
		return nil, ErrScriptTooLarge
	}

	address, err := btcutil.NewAddressScriptHash(redeemScript, params.Network)
	if err != nil {
		return nil, fmt.Errorf("derive p2sh address: %w", err)
	}

	return &Script{
		RedeemScript: redeemScript,
		ScriptHash:   [32]byte(chainhash.DoubleHashH(redeemScript)),
		P2SHAddress:  address.EncodeAddress(),
	}, nil
}

// ScriptPubKey returns the P2SH scriptPubKey (OP_HASH160 <hash160> OP_EQUAL)
// funding outputs must use, independent of network.
func ScriptPubKey(redeemScript []byte) ([]byte, error) {
	hash160 := btcutil.Hash160(redeemScript)
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(hash160)
	builder.AddOp(txscript.OP_EQUAL)
	return builder.Script()
}
