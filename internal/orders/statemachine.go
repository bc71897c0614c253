package orders

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"

	"github.com/bitcoinswap/htlc-engine/internal/htlcscript"
)

// ErrInvalidOrderState is returned when a transition is attempted from a
// status not in its allow-list. The persisted row is left untouched.
var ErrInvalidOrderState = errors.New("invalid order state for this transition")

// Machine drives SwapOrder transitions against a Store, serialising mutations
// per order id (§5).
type Machine struct {
	store *Store
}

// NewMachine builds a state machine backed by store.
func NewMachine(store *Store) *Machine {
	return &Machine{store: store}
}

// CreateOrderParams are the caller-supplied fields for CreateOrder; everything
// else (id, status, timestamps) is computed here.
type CreateOrderParams struct {
	Direction                     Direction
	PreimageHash                  []byte
	BitcoinAmount                 *int64
	BitcoinAddress                *string
	BitcoinPublicKey              *string
	EthereumAddress               *string
	ResolverPublicKey             string
	BitcoinTimeoutBlocks          int64
	EthereumTimeoutBlocks         int64
	BitcoinConfirmationsRequired  int64
	EthereumConfirmationsRequired int64
}

// CreateOrder inserts a new order in Created, computing expires_at = now + 60m.
func (m *Machine) CreateOrder(params CreateOrderParams, now time.Time) (*SwapOrder, error) {
	if len(params.PreimageHash) != 32 {
		return nil, errors.New("preimage_hash must be 32 bytes")
	}
	o := &SwapOrder{
		ID:                            uuid.NewString(),
		Direction:                     params.Direction,
		Status:                        StatusCreated,
		PreimageHash:                  params.PreimageHash,
		BitcoinAmount:                 params.BitcoinAmount,
		BitcoinAddress:                params.BitcoinAddress,
		BitcoinPublicKey:              params.BitcoinPublicKey,
		EthereumAddress:               params.EthereumAddress,
		ResolverPublicKey:             params.ResolverPublicKey,
		BitcoinTimeoutBlocks:          params.BitcoinTimeoutBlocks,
		EthereumTimeoutBlocks:         params.EthereumTimeoutBlocks,
		BitcoinConfirmationsRequired:  params.BitcoinConfirmationsRequired,
		EthereumConfirmationsRequired: params.EthereumConfirmationsRequired,
		CreatedAt:                     now,
		UpdatedAt:                     now,
		ExpiresAt:                     now.Add(defaultExpiry),
	}
	if err := m.store.Insert(o); err != nil {
		return nil, err
	}
	return o, nil
}

// errSkipNoOp signals withOrder that mutate chose not to transition the
// order (e.g. a depth below the required threshold); the row is returned
// unchanged with a nil error rather than surfaced as a failure.
var errSkipNoOp = errors.New("no-op")

// withOrder loads id under its row lock, runs mutate, and persists the result
// unless mutate returns an error. errSkipNoOp is swallowed: the unmodified
// row is returned with a nil error. Any other error leaves the row untouched
// and is returned verbatim.
func (m *Machine) withOrder(id string, mutate func(o *SwapOrder) error) (*SwapOrder, error) {
	var result *SwapOrder
	err := m.store.WithOrderLock(id, func() error {
		o, err := m.store.Get(id)
		if err != nil {
			return err
		}
		if err := mutate(o); err != nil {
			if err == errSkipNoOp {
				result = o
				return nil
			}
			return err
		}
		// The store keeps whole seconds; match it so the returned row equals
		// what a later Get reads back.
		o.UpdatedAt = time.Now().UTC().Truncate(time.Second)
		if err := m.store.Update(o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

var submitFusionProofAllowed = map[Status]bool{
	StatusCreated:             true,
	StatusAwaitingFusionProof: true,
}

// SubmitFusionProofParams are the inputs needed to derive the HTLC when the
// direction requires it (EVM→BTC).
type SubmitFusionProofParams struct {
	FusionOrderID    string
	FusionOrderHash  string
	RecipientPubKey  []byte // 33-byte compressed; the claimer's key
	SenderPubKey     []byte // 33-byte compressed; the refunder's key
	TipHeight        int64  // current Bitcoin chain tip, queried live by the caller
	Network          *chaincfg.Params
}

// SubmitFusionProof records the EVM-side proof handle. For EVM→BTC it derives
// the HTLC params from the order's preimage_hash, timeout, and the supplied
// keys, storing htlc_address/redeem_script/htlc_id and moving to
// BitcoinHtlcCreated; for BTC→EVM it moves to FusionProofVerified.
// Resubmitting the same fusion_order_id when the order already reflects it is
// idempotent; any other resubmission fails with ErrInvalidOrderState.
func (m *Machine) SubmitFusionProof(id string, params SubmitFusionProofParams) (*SwapOrder, error) {
	return m.withOrder(id, func(o *SwapOrder) error {
		if !submitFusionProofAllowed[o.Status] {
			if (o.Status == StatusBitcoinHtlcCreated || o.Status == StatusFusionProofVerified) &&
				o.FusionOrderID != nil && *o.FusionOrderID == params.FusionOrderID {
				return errSkipNoOp
			}
			return ErrInvalidOrderState
		}

		o.FusionOrderID = &params.FusionOrderID
		o.FusionOrderHash = &params.FusionOrderHash

		if o.Direction == DirectionEVMToBTC {
			timeout := params.TipHeight + o.BitcoinTimeoutBlocks
			script, err := htlcscript.Build(htlcscript.Params{
				RecipientPubKey: params.RecipientPubKey,
				SenderPubKey:    params.SenderPubKey,
				PaymentHash:     o.PreimageHash,
				Timeout:         timeout,
				Network:         params.Network,
			})
			if err != nil {
				return fmt.Errorf("derive htlc script: %w", err)
			}
			redeemScriptHex := hex.EncodeToString(script.RedeemScript)
			htlcID := hex.EncodeToString(script.ScriptHash[:])
			o.HtlcRedeemScript = &redeemScriptHex
			o.HtlcAddress = &script.P2SHAddress
			o.HtlcID = &htlcID
			o.Status = StatusBitcoinHtlcCreated
		} else {
			o.Status = StatusFusionProofVerified
		}
		return nil
	})
}

var observeFundingAllowed = map[Status]bool{StatusBitcoinHtlcCreated: true}

// ObserveFunding records the funding txid and moves to BitcoinHtlcFunded.
func (m *Machine) ObserveFunding(id, txid string) (*SwapOrder, error) {
	return m.withOrder(id, func(o *SwapOrder) error {
		if !observeFundingAllowed[o.Status] {
			if o.Status == StatusBitcoinHtlcFunded && o.HtlcFundingTx != nil && *o.HtlcFundingTx == txid {
				return errSkipNoOp
			}
			return ErrInvalidOrderState
		}
		o.HtlcFundingTx = &txid
		o.Status = StatusBitcoinHtlcFunded
		return nil
	})
}

var observeConfirmationAllowed = map[Status]bool{StatusBitcoinHtlcFunded: true}

// ObserveConfirmation moves to BitcoinHtlcConfirmed (and onward to
// FusionOrderFillable for BTC→EVM) once depth reaches required. A depth lower
// than required is silently ignored, not an error — it simply isn't a
// confirmation event yet (§4.5 tie-break).
func (m *Machine) ObserveConfirmation(id string, depth, required int64) (*SwapOrder, error) {
	return m.withOrder(id, func(o *SwapOrder) error {
		if depth < required {
			return errSkipNoOp
		}
		if !observeConfirmationAllowed[o.Status] {
			return ErrInvalidOrderState
		}
		o.Status = StatusBitcoinHtlcConfirmed
		if o.Direction == DirectionBTCToEVM {
			o.Status = StatusFusionOrderFillable
		}
		return nil
	})
}

var observePreimageAllowed = map[Status]bool{
	StatusBitcoinHtlcConfirmed: true,
	StatusFusionOrderFillable:  true,
	StatusFusionOrderFilling:   true,
	StatusFusionOrderFilled:    true,
}

// ObservePreimage verifies sha256(preimage) == preimage_hash and moves to
// PreimageRevealed.
func (m *Machine) ObservePreimage(id string, preimage []byte) (*SwapOrder, error) {
	return m.withOrder(id, func(o *SwapOrder) error {
		if !observePreimageAllowed[o.Status] {
			return ErrInvalidOrderState
		}
		got := sha256.Sum256(preimage)
		if hex.EncodeToString(got[:]) != hex.EncodeToString(o.PreimageHash) {
			return errors.New("preimage does not match preimage_hash")
		}
		o.Status = StatusPreimageRevealed
		return nil
	})
}

var observeClaimAllowed = map[Status]bool{StatusPreimageRevealed: true}

// ObserveClaim moves PreimageRevealed through BitcoinHtlcClaimed to Completed.
func (m *Machine) ObserveClaim(id, txid string) (*SwapOrder, error) {
	return m.withOrder(id, func(o *SwapOrder) error {
		if !observeClaimAllowed[o.Status] {
			return ErrInvalidOrderState
		}
		_ = txid
		o.Status = StatusCompleted
		return nil
	})
}

// ExpirySweep transitions id to Expired if it is non-terminal and past
// expires_at. Running it twice on the same order yields the same terminal
// row (idempotent). Expiry wins over a late confirmation: once Expired, an
// order never re-enters the active path.
func (m *Machine) ExpirySweep(id string, now time.Time) error {
	_, err := m.withOrder(id, func(o *SwapOrder) error {
		if o.Status.IsTerminal() {
			return errSkipNoOp
		}
		if now.Before(o.ExpiresAt) {
			return errSkipNoOp
		}
		o.Status = StatusExpired
		return nil
	})
	return err
}
