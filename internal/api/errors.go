package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bitcoinswap/htlc-engine/internal/backend"
	"github.com/bitcoinswap/htlc-engine/internal/htlcscript"
	"github.com/bitcoinswap/htlc-engine/internal/orders"
	"github.com/bitcoinswap/htlc-engine/internal/txbuilder"
)

// errorResponse is the JSON envelope every non-2xx response uses, per §6/§7.
type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// apiError pairs an HTTP status with the code/message/details that fill
// errorResponse. Handlers return one of these (or a plain error, which
// writeError classifies or turns opaque) instead of writing the response directly.
type apiError struct {
	Status  int
	Code    string
	Message string
	Details []string
}

func (e *apiError) Error() string { return e.Message }

func badRequest(code, message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: code, Message: message}
}

func validationError(details ...string) *apiError {
	return &apiError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "VALIDATION_ERROR",
		Message: "one or more fields failed validation",
		Details: details,
	}
}

func notFound(code, message string) *apiError {
	return &apiError{Status: http.StatusNotFound, Code: code, Message: message}
}

func conflict(code, message string) *apiError {
	return &apiError{Status: http.StatusConflict, Code: code, Message: message}
}

func backendTimeout(message string) *apiError {
	return &apiError{Status: http.StatusGatewayTimeout, Code: "BACKEND_TIMEOUT", Message: message}
}

func internalError() *apiError {
	return &apiError{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "an internal error occurred"}
}

// writeError renders err as the §7 error taxonomy. A bare *apiError is used
// as given; any other error is logged in full and surfaced to the caller as
// an opaque InternalError, never leaking raw DB/RPC error text (§7).
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		s.writeJSON(w, ae.Status, errorResponse{Code: ae.Code, Message: ae.Message, Details: ae.Details})
		return
	}

	ae = classifyEngineError(err)
	if ae != nil {
		s.writeJSON(w, ae.Status, errorResponse{Code: ae.Code, Message: ae.Message})
		return
	}

	s.log.Error("unhandled error", "path", r.URL.Path, "request_id", requestIDFromContext(r.Context()), "error", err)
	ie := internalError()
	s.writeJSON(w, ie.Status, errorResponse{Code: ie.Code, Message: ie.Message})
}

// classifyEngineError maps sentinel errors raised by the engine packages to
// their §7 HTTP surface. Returns nil for errors with no specific mapping, so
// the caller falls back to an opaque InternalError.
func classifyEngineError(err error) *apiError {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		return notFound("ORDER_NOT_FOUND", "order not found")
	case errors.Is(err, orders.ErrInvalidOrderState):
		return conflict("INVALID_ORDER_STATE", "the requested transition is not allowed from the order's current status")
	case errors.Is(err, backend.ErrTxNotFound):
		return notFound("TX_NOT_FOUND", "transaction not found")
	case errors.Is(err, backend.ErrAddressNotFound):
		return notFound("ADDRESS_NOT_FOUND", "address not found")
	case errors.Is(err, backend.ErrConfirmationTimeout), errors.Is(err, backend.ErrBackendTimeout):
		return backendTimeout(err.Error())
	case errors.Is(err, htlcscript.ErrScriptTooLarge),
		errors.Is(err, htlcscript.ErrInvalidTimeout),
		errors.Is(err, htlcscript.ErrInvalidPubKey),
		errors.Is(err, htlcscript.ErrInvalidHash):
		return badRequest("INVALID_HTLC_PARAMS", err.Error())
	case errors.Is(err, txbuilder.ErrInsufficientFunds),
		errors.Is(err, txbuilder.ErrFeeExceedsValue),
		errors.Is(err, txbuilder.ErrInvalidTimeout),
		errors.Is(err, txbuilder.ErrInvalidTxID):
		return badRequest("INVALID_TRANSACTION", err.Error())
	default:
		return nil
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}
