package api

import "net/http"

func (s *Server) handleTxStatus(w http.ResponseWriter, r *http.Request) {
	txid := r.PathValue("txid")
	if len(txid) != 64 {
		s.writeError(w, r, validationError("txid must be a 64-character hex transaction id"))
		return
	}

	info, err := s.backend.GetTx(r.Context(), txid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TxStatusResponse{
		TxID:          info.TxID,
		Confirmed:     info.Confirmed,
		Confirmations: info.Confirmations,
		BlockHeight:   info.BlockHeight,
		BlockTime:     info.BlockTime,
		FeeSats:       info.FeeSats,
	})
}
