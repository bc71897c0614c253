package txbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// FundingParams describes a funding transaction: spend a known set of inputs
// to pay the HTLC address, with any remainder returned to a change address.
type FundingParams struct {
	Inputs        []Input
	Network       *chaincfg.Params
	HtlcAddress   string
	FundingAmount int64
	ChangeAddress string
	FeeSats       int64
}

// BuildFunding assembles an unsigned funding transaction. Signing the
// caller-supplied inputs is the caller's responsibility — this builder only
// assembles the outputs and unsigned inputs.
//
// Version 2, locktime 0, RBF-signalling sequence on every input.
// Output[0] pays FundingAmount to HtlcAddress. Output[1] (change) is included
// only if the remainder exceeds the dust limit.
func BuildFunding(params FundingParams) (*wire.MsgTx, error) {
	if len(params.Inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs supplied", ErrInsufficientFunds)
	}

	var totalIn int64
	for _, in := range params.Inputs {
		totalIn += in.ValueSats
	}
	if totalIn < params.FundingAmount+params.FeeSats {
		return nil, ErrInsufficientFunds
	}

	tx := wire.NewMsgTx(2)
	tx.LockTime = 0

	for _, in := range params.Inputs {
		txHash, err := chainhash.NewHashFromStr(in.TxID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTxID, in.TxID)
		}
		txIn := wire.NewTxIn(wire.NewOutPoint(txHash, in.Vout), nil, nil)
		txIn.Sequence = wire.MaxTxInSequenceNum - 2 // RBF-signalling
		tx.AddTxIn(txIn)
	}

	htlcScript, err := addressToScript(params.HtlcAddress, params.Network)
	if err != nil {
		return nil, fmt.Errorf("htlc address: %w", err)
	}
	tx.AddTxOut(wire.NewTxOut(params.FundingAmount, htlcScript))

	change := totalIn - params.FundingAmount - params.FeeSats
	if change > DustLimit {
		changeScript, err := addressToScript(params.ChangeAddress, params.Network)
		if err != nil {
			return nil, fmt.Errorf("change address: %w", err)
		}
		tx.AddTxOut(wire.NewTxOut(change, changeScript))
	}

	return tx, nil
}
