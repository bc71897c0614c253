// Package orders implements the swap order state machine and its persistent
// store: the unit of coordination between the Bitcoin-side HTLC engine and an
// external EVM-side proof stream.
package orders

import "time"

// Direction is which leg of the swap is denominated in Bitcoin.
type Direction string

const (
	DirectionEVMToBTC Direction = "EVM_TO_BTC"
	DirectionBTCToEVM Direction = "BTC_TO_EVM"
)

// Status is one of the fourteen states (twelve on-path, two terminal off-path)
// an order progresses through.
type Status string

const (
	StatusCreated               Status = "created"
	StatusAwaitingFusionProof   Status = "awaiting_fusion_proof"
	StatusFusionProofVerified   Status = "fusion_proof_verified"
	StatusBitcoinHtlcCreated    Status = "bitcoin_htlc_created"
	StatusBitcoinHtlcFunded     Status = "bitcoin_htlc_funded"
	StatusBitcoinHtlcConfirmed  Status = "bitcoin_htlc_confirmed"
	StatusFusionOrderFillable   Status = "fusion_order_fillable"
	StatusFusionOrderFilling    Status = "fusion_order_filling"
	StatusFusionOrderFilled     Status = "fusion_order_filled"
	StatusPreimageRevealed      Status = "preimage_revealed"
	StatusBitcoinHtlcClaimed    Status = "bitcoin_htlc_claimed"
	StatusCompleted             Status = "completed"
	StatusExpired               Status = "expired"
	StatusFailed                Status = "failed"
)

// IsTerminal reports whether no further transition can leave this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusExpired || s == StatusFailed
}

// SwapOrder is the persisted entity coordinating one atomic swap.
type SwapOrder struct {
	ID        string
	Direction Direction
	Status    Status

	PreimageHash []byte // 32 bytes

	BitcoinAmount     *int64  // satoshis
	BitcoinAddress    *string
	BitcoinPublicKey  *string // 33-byte compressed, hex

	EthereumAddress *string

	ResolverPublicKey string // 33-byte compressed, hex

	BitcoinTimeoutBlocks   int64
	EthereumTimeoutBlocks  int64

	BitcoinConfirmationsRequired  int64
	EthereumConfirmationsRequired int64

	FusionOrderID   *string
	FusionOrderHash *string

	HtlcID           *string
	HtlcAddress      *string
	HtlcRedeemScript *string // hex
	HtlcFundingTx    *string

	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// defaultExpiry is how long after creation an order expires absent further
// progress, per §4.5's CreateOrder effect.
const defaultExpiry = 60 * time.Minute
