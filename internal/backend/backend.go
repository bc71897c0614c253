// Package backend abstracts Bitcoin node RPC and block-explorer REST access behind
// one capability set, so the HTLC engine can drive either uniformly.
package backend

import (
	"context"
	"errors"
)

// Common errors returned across both backend variants.
var (
	ErrNotConnected    = errors.New("backend not connected")
	ErrTxNotFound      = errors.New("transaction not found")
	ErrAddressNotFound = errors.New("address not found")
	ErrBroadcastFailed = errors.New("broadcast failed")
	ErrRateLimited     = errors.New("rate limited")
	ErrBackendTimeout  = errors.New("backend request timed out")
)

// Type tags which backend variant a Backend value is.
type Type string

const (
	TypeNodeRPC      Type = "node_rpc"
	TypeRestExplorer Type = "rest_explorer"
)

// UTXO is a transient, backend-agnostic unspent output.
type UTXO struct {
	TxID        string
	Vout        uint32
	ValueSats   int64
	Confirmed   bool
	BlockHeight int64
}

// TxOutput is one output of a TransactionInfo.
type TxOutput struct {
	ValueSats    int64
	ScriptPubKey string // hex
	Address      string
}

// TxInput is one input of a TransactionInfo.
type TxInput struct {
	TxID     string
	Vout     uint32
	Sequence uint32
}

// TransactionInfo is the backend-agnostic view of a transaction, regardless of
// whether it came from a node or an explorer.
type TransactionInfo struct {
	TxID          string
	Confirmed     bool
	BlockHeight   int64
	BlockTime     int64
	FeeSats       int64
	Inputs        []TxInput
	Outputs       []TxOutput
	Confirmations int64
}

// FeeRate is satoshis per virtual byte for each confirmation target.
type FeeRate struct {
	FastestFee  uint32 // next block
	HalfHourFee uint32
	HourFee     uint32
	EconomyFee  uint32
}

// Backend is the one capability set the engine depends on. Both variants
// (NodeRPC and RestExplorer) implement it identically from the caller's view.
type Backend interface {
	Type() Type

	// TipHeight returns the current chain tip's block height.
	TipHeight(ctx context.Context) (int64, error)

	// GetTx fetches a transaction by txid.
	GetTx(ctx context.Context, txid string) (*TransactionInfo, error)

	// ListUTXOs lists unspent outputs paid to address.
	ListUTXOs(ctx context.Context, address string) ([]UTXO, error)

	// Broadcast submits a raw signed transaction (hex-encoded) to the network
	// and returns its txid.
	Broadcast(ctx context.Context, rawTxHex string) (string, error)

	// FeeEstimates returns current fee-rate estimates.
	FeeEstimates(ctx context.Context) (*FeeRate, error)
}

// DustLimit is the minimum non-dust output value, in satoshis.
const DustLimit = 546
