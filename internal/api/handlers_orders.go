package api

import (
	"net/http"
	"time"

	"github.com/bitcoinswap/htlc-engine/internal/htlcscript"
	"github.com/bitcoinswap/htlc-engine/internal/orders"
)

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var details []string
	direction := orders.Direction(req.Direction)
	if direction != orders.DirectionEVMToBTC && direction != orders.DirectionBTCToEVM {
		details = append(details, "direction must be EVM_TO_BTC or BTC_TO_EVM")
	}
	preimageHash, err := decodeHash32("preimage_hash", req.PreimageHash)
	if err != nil {
		details = append(details, err.Error())
	}
	if err := validateTimeoutBlocks("bitcoin_timeout_blocks", req.BitcoinTimeoutBlocks); err != nil {
		details = append(details, err.Error())
	}
	if err := validateTimeoutBlocks("ethereum_timeout_blocks", req.EthereumTimeoutBlocks); err != nil {
		details = append(details, err.Error())
	}
	if req.BitcoinConfirmationsRequired < 1 {
		details = append(details, "bitcoin_confirmations_required must be at least 1")
	}
	if req.EthereumConfirmationsRequired < 1 {
		details = append(details, "ethereum_confirmations_required must be at least 1")
	}
	if req.BitcoinAddress != nil {
		if err := validateBitcoinAddress("bitcoin_address", *req.BitcoinAddress); err != nil {
			details = append(details, err.Error())
		}
	}
	if req.BitcoinPublicKey != nil {
		if err := validateCompressedPubKey("bitcoin_public_key", *req.BitcoinPublicKey); err != nil {
			details = append(details, err.Error())
		}
	}
	if req.EthereumAddress != nil {
		if err := validateEVMAddress("ethereum_address", *req.EthereumAddress); err != nil {
			details = append(details, err.Error())
		}
	}
	resolverPubKey := req.ResolverPublicKey
	if resolverPubKey == "" {
		resolverPubKey = s.resolverPubKey
	}
	if resolverPubKey == "" {
		details = append(details, "resolver_public_key is required (no default configured)")
	} else if err := validateCompressedPubKey("resolver_public_key", resolverPubKey); err != nil {
		details = append(details, err.Error())
	}
	if len(details) > 0 {
		s.writeError(w, r, validationError(details...))
		return
	}

	order, err := s.machine.CreateOrder(orders.CreateOrderParams{
		Direction:                     direction,
		PreimageHash:                  preimageHash,
		BitcoinAmount:                 req.BitcoinAmount,
		BitcoinAddress:                req.BitcoinAddress,
		BitcoinPublicKey:              req.BitcoinPublicKey,
		EthereumAddress:               req.EthereumAddress,
		ResolverPublicKey:             resolverPubKey,
		BitcoinTimeoutBlocks:          req.BitcoinTimeoutBlocks,
		EthereumTimeoutBlocks:         req.EthereumTimeoutBlocks,
		BitcoinConfirmationsRequired:  req.BitcoinConfirmationsRequired,
		EthereumConfirmationsRequired: req.EthereumConfirmationsRequired,
	}, time.Now().UTC())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, renderOrder(order))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, renderOrder(order))
}

func (s *Server) handleSubmitFusionProof(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req SubmitFusionProofRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.FusionOrderID == "" {
		s.writeError(w, r, validationError("fusion_order_id is required"))
		return
	}
	if err := validateEVMHash("fusion_order_hash", req.FusionOrderHash); err != nil {
		s.writeError(w, r, validationError(err.Error()))
		return
	}

	params := orders.SubmitFusionProofParams{
		FusionOrderID:   req.FusionOrderID,
		FusionOrderHash: req.FusionOrderHash,
		Network:         s.network,
	}

	if req.RecipientPubKey != "" || req.SenderPubKey != "" {
		recipientKey, err := decodePubKey("recipient_pubkey", req.RecipientPubKey)
		if err != nil {
			s.writeError(w, r, validationError(err.Error()))
			return
		}
		senderKey, err := decodePubKey("sender_pubkey", req.SenderPubKey)
		if err != nil {
			s.writeError(w, r, validationError(err.Error()))
			return
		}
		tip, err := s.backend.TipHeight(r.Context())
		if err != nil {
			s.writeError(w, r, backendTimeout("could not read current Bitcoin tip height: "+err.Error()))
			return
		}
		params.RecipientPubKey = recipientKey
		params.SenderPubKey = senderKey
		params.TipHeight = tip
	}

	order, err := s.machine.SubmitFusionProof(id, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, renderOrder(order))
}

func (s *Server) handleObserveFunding(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req ObserveFundingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.TxID == "" {
		s.writeError(w, r, validationError("txid is required"))
		return
	}
	order, err := s.machine.ObserveFunding(id, req.TxID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, renderOrder(order))
}

func (s *Server) handleObserveConfirmation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req ObserveConfirmationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Depth < 0 {
		s.writeError(w, r, validationError("depth must not be negative"))
		return
	}
	order, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	required := order.BitcoinConfirmationsRequired
	order, err = s.machine.ObserveConfirmation(id, req.Depth, required)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, renderOrder(order))
}

func (s *Server) handleObservePreimage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req ObservePreimageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	preimage, err := decodeHash32("preimage", req.Preimage)
	if err != nil {
		s.writeError(w, r, validationError(err.Error()))
		return
	}
	order, err := s.machine.ObservePreimage(id, preimage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, renderOrder(order))
}

// handleClaim validates the caller's preimage against the order, optionally
// broadcasts a caller-signed claim transaction, and advances the state
// machine. The engine never custodies the recipient's private key (a
// Non-goal), so it cannot build or sign the claim transaction itself — the
// caller supplies a fully-signed bitcoin_tx_hex, or omits it to only record
// the preimage reveal.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req ClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	preimage, err := decodeHash32("preimage", req.Preimage)
	if err != nil {
		s.writeError(w, r, validationError(err.Error()))
		return
	}

	order, err := s.machine.ObservePreimage(id, preimage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := ClaimResponse{Order: renderOrder(order)}
	if req.BitcoinTxHex != nil && *req.BitcoinTxHex != "" {
		txid, err := s.backend.Broadcast(r.Context(), *req.BitcoinTxHex)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		order, err = s.machine.ObserveClaim(id, txid)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.Order = renderOrder(order)
		resp.TxID = &txid
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleRefundReadiness reports whether id's HTLC has passed its timeout
// height and, if so, the redeem script and address the sender needs to build
// their own refund transaction — the engine never custodies the sender's key
// either, so it cannot build or sign a refund transaction (a Non-goal).
func (s *Server) handleRefundReadiness(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	order, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tip, err := s.backend.TipHeight(r.Context())
	if err != nil {
		s.writeError(w, r, backendTimeout("could not read current Bitcoin tip height: "+err.Error()))
		return
	}

	resp := RefundReadinessResponse{CurrentHeight: tip}
	if order.HtlcRedeemScript != nil {
		resp.RedeemScript = *order.HtlcRedeemScript
		timeoutHeight, ok := htlcscript.ExtractTimeout(*order.HtlcRedeemScript)
		if ok {
			resp.TimeoutHeight = timeoutHeight
			resp.Ready = tip >= timeoutHeight
		}
	}
	if order.HtlcAddress != nil {
		resp.HtlcAddress = *order.HtlcAddress
	}
	if order.HtlcFundingTx != nil {
		resp.FundingTxID = *order.HtlcFundingTx
	}
	s.writeJSON(w, http.StatusOK, resp)
}
