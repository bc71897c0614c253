package api

import (
	"net/http"

	"github.com/bitcoinswap/htlc-engine/internal/backend"
)

// typicalSpendVBytes approximates the virtual size of a single-input HTLC
// claim or refund transaction, used only to translate a sat/vB rate into a
// total fee estimate for the response; it is not used for any signing path.
const typicalSpendVBytes = 200

// handleFeeEstimate implements GET /v1/fees/estimate. §6 names query params
// direction/amount/urgent; amount and direction don't change the Bitcoin
// network fee (this engine charges per vbyte, not per swap value), so the
// handler does not read them and they do not appear in the response.
// urgent=true selects the fastest-confirmation fee rate;
// omitted or false selects the half-hour rate.
func (s *Server) handleFeeEstimate(w http.ResponseWriter, r *http.Request) {
	rate, err := s.backend.FeeEstimates(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	urgent := r.URL.Query().Get("urgent") == "true"
	satPerVByte := int64(rate.HalfHourFee)
	estimatedTime := "~30 minutes"
	if urgent {
		satPerVByte = int64(rate.FastestFee)
		estimatedTime = "~10 minutes"
	}

	networkFee := satPerVByte * typicalSpendVBytes
	// Resolver economics (the EVM-side counterparty's spread) are not modeled
	// by this engine; it only ever computes the Bitcoin-side network fee.
	const resolverFee = 0

	resp := FeeEstimateResponse{
		BitcoinNetworkFee: networkFee,
		ResolverFee:       resolverFee,
		TotalFee:          networkFee + resolverFee,
		EstimatedTime:     estimatedTime,
		MinimumAmount:     networkFee + int64(backend.DustLimit) + 1,
	}
	if satPerVByte == 0 {
		resp.Warnings = append(resp.Warnings, "fee estimate unavailable from backend; network fee reported as 0")
	}
	s.writeJSON(w, http.StatusOK, resp)
}
