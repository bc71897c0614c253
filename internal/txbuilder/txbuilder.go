// Package txbuilder constructs and signs the three transactions in an HTLC's
// life: funding, claim-via-preimage, and refund-via-timeout.
package txbuilder

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// Errors shared across funding, claim, and refund construction.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrFeeExceedsValue   = errors.New("fee exceeds spend value")
	ErrInvalidTimeout    = errors.New("timeout is not representable as a block-height locktime")
	ErrInvalidTxID       = errors.New("invalid transaction id")
)

// DustLimit is the minimum non-dust output value, in satoshis.
const DustLimit = 546

// lockTimeThreshold mirrors htlcscript's boundary for block-height locktimes.
const lockTimeThreshold = 500_000_000

// Input is a UTXO the caller already knows is spendable.
type Input struct {
	TxID      string
	Vout      uint32
	ValueSats int64
}

func addressToScript(address string, network *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, network)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", address, err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("build scriptPubKey for %q: %w", address, err)
	}
	return script, nil
}
