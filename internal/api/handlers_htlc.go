package api

import (
	"encoding/hex"
	"net/http"

	"github.com/bitcoinswap/htlc-engine/internal/htlcscript"
)

func (s *Server) handleHtlcBuild(w http.ResponseWriter, r *http.Request) {
	var req HtlcBuildRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	params, verr := s.parseHtlcParams(req.RecipientPubKey, req.SenderPubKey, req.PaymentHash, req.TimeoutHeight)
	if verr != nil {
		s.writeError(w, r, verr)
		return
	}

	script, err := htlcscript.Build(params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, HtlcBuildResponse{
		RedeemScript: hex.EncodeToString(script.RedeemScript),
		ScriptHash:   hex.EncodeToString(script.ScriptHash[:]),
		Address:      script.P2SHAddress,
	})
}

func (s *Server) handleHtlcVerify(w http.ResponseWriter, r *http.Request) {
	var req HtlcVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	params, verr := s.parseHtlcParams(req.RecipientPubKey, req.SenderPubKey, req.PaymentHash, req.TimeoutHeight)
	if verr != nil {
		s.writeError(w, r, verr)
		return
	}
	candidate, err := hex.DecodeString(req.RedeemScript)
	if err != nil {
		s.writeError(w, r, validationError("redeem_script is not valid hex"))
		return
	}

	valid, err := htlcscript.Verify(params, candidate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, HtlcVerifyResponse{Valid: valid})
}

func (s *Server) parseHtlcParams(recipientHex, senderHex, paymentHashHex string, timeout int64) (htlcscript.Params, *apiError) {
	var details []string
	recipientKey, err := decodePubKey("recipient_pubkey", recipientHex)
	if err != nil {
		details = append(details, err.Error())
	}
	senderKey, err := decodePubKey("sender_pubkey", senderHex)
	if err != nil {
		details = append(details, err.Error())
	}
	paymentHash, err := decodeHash32("payment_hash", paymentHashHex)
	if err != nil {
		details = append(details, err.Error())
	}
	if timeout <= 0 {
		details = append(details, "timeout_height must be a positive block height")
	}
	if len(details) > 0 {
		return htlcscript.Params{}, validationError(details...)
	}
	return htlcscript.Params{
		RecipientPubKey: recipientKey,
		SenderPubKey:    senderKey,
		PaymentHash:     paymentHash,
		Timeout:         timeout,
		Network:         s.network,
	}, nil
}
