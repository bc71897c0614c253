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

// RefundParams describes spending an HTLC output via the timeout branch.
type RefundParams struct {
	FundingTxID   string
	FundingVout   uint32
	HtlcValueSats int64
	RedeemScript  []byte
	TimeoutHeight int64
	SenderKey     *btcec.PrivateKey
	DestAddress   string
	Network       *chaincfg.Params
	FeeSats       int64
}

// BuildRefund assembles and signs a transaction spending the HTLC output via
// the refund (timeout) branch.
//
// Locktime = TimeoutHeight. Sequence must not be 0xFFFFFFFF, or CHECKLOCKTIMEVERIFY
// would be disabled entirely (BIP-65).
//
// scriptSig, bottom to top: <signature‖SIGHASH_ALL>, <0>, <redeem_script>.
func BuildRefund(params RefundParams) (*wire.MsgTx, error) {
	if params.TimeoutHeight <= 0 || params.TimeoutHeight >= lockTimeThreshold {
		return nil, ErrInvalidTimeout
	}
	if params.FeeSats >= params.HtlcValueSats {
		return nil, ErrFeeExceedsValue
	}

	tx := wire.NewMsgTx(2)
	tx.LockTime = uint32(params.TimeoutHeight)

	txHash, err := chainhash.NewHashFromStr(params.FundingTxID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTxID, params.FundingTxID)
	}
	txIn := wire.NewTxIn(wire.NewOutPoint(txHash, params.FundingVout), nil, nil)
	txIn.Sequence = wire.MaxTxInSequenceNum - 1 // enables locktime; must not be 0xFFFFFFFF
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

	sig := btcecdsa.Sign(params.SenderKey, sighash)
	sigBytes := append(sig.Serialize(), byte(txscript.SigHashAll))

	scriptSig, err := txscript.NewScriptBuilder().
		AddData(sigBytes).
		AddData([]byte{}).
		AddData(params.RedeemScript).
		Script()
	if err != nil {
		return nil, fmt.Errorf("build scriptSig: %w", err)
	}
	tx.TxIn[0].SignatureScript = scriptSig

	return tx, nil
}
