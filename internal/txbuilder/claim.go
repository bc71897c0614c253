package txbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ClaimParams describes spending an HTLC output via the preimage branch.
type ClaimParams struct {
	FundingTxID   string
	FundingVout   uint32
	HtlcValueSats int64
	RedeemScript  []byte
	Preimage      []byte
	RecipientKey  *btcec.PrivateKey
	DestAddress   string
	Network       *chaincfg.Params
	FeeSats       int64
}

// BuildClaim assembles and signs a transaction spending the HTLC output via
// the claim (preimage) branch. Single input, single output, locktime 0,
// RBF-signalling sequence — the claim branch has no locktime requirement.
//
// scriptSig, bottom to top: <signature‖SIGHASH_ALL>, <preimage>, <1>, <redeem_script>.
func BuildClaim(params ClaimParams) (*wire.MsgTx, error) {
	if len(params.Preimage) != 32 {
		return nil, fmt.Errorf("preimage must be 32 bytes, got %d", len(params.Preimage))
	}
	if params.FeeSats >= params.HtlcValueSats {
		return nil, ErrFeeExceedsValue
	}

	tx := wire.NewMsgTx(2)
	tx.LockTime = 0

	txHash, err := chainhash.NewHashFromStr(params.FundingTxID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTxID, params.FundingTxID)
	}
	txIn := wire.NewTxIn(wire.NewOutPoint(txHash, params.FundingVout), nil, nil)
	txIn.Sequence = wire.MaxTxInSequenceNum - 2 // RBF-signalling; no locktime needed
	tx.AddTxIn(txIn)

	destScript, err := addressToScript(params.DestAddress, params.Network)
	if err != nil {
		return nil, fmt.Errorf("destination address: %w", err)
	}
	tx.AddTxOut(wire.NewTxOut(params.HtlcValueSats-params.FeeSats, destScript))

	sighash, err := txscript.CalcSignatureHash(params.RedeemScript, txscript.SigHashAll, tx, 0)
	if err != nil {
		return nil, fmt.Errorf("compute sighash: %w", err)
	}

	sig := btcecdsa.Sign(params.RecipientKey, sighash)
	sigBytes := append(sig.Serialize(), byte(txscript.SigHashAll))

	scriptSig, err := txscript.NewScriptBuilder().
		AddData(sigBytes).
		AddData(params.Preimage).
		AddData([]byte{0x01}).
		AddData(params.RedeemScript).
		Script()
	if err != nil {
		return nil, fmt.Errorf("build scriptSig: %w", err)
	}
	tx.TxIn[0].SignatureScript = scriptSig

	return tx, nil
}
