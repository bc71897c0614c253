package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// requestIDMiddleware stamps every request with a unique id, echoed back in
// the X-Request-ID response header and available to handlers for logging.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// corsMiddleware allows cross-origin calls from any browser client; the API
// is admission-gated by API key, not by origin, per §6.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// apiKeyMiddleware admits any request carrying a non-empty X-API-Key header.
// Per §6 the engine checks presence, not a stored secret value — key
// issuance and revocation belong to a gateway in front of this service. A
// header that is absent entirely and one present but empty are distinct
// failures (MISSING_API_KEY vs INVALID_API_KEY).
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}
		values, present := r.Header["X-Api-Key"]
		if !present {
			s.writeError(w, r, &apiError{
				Status:  http.StatusUnauthorized,
				Code:    "MISSING_API_KEY",
				Message: "X-API-Key header is required",
			})
			return
		}
		if len(values) == 0 || values[0] == "" {
			s.writeError(w, r, &apiError{
				Status:  http.StatusUnauthorized,
				Code:    "INVALID_API_KEY",
				Message: "X-API-Key header must not be empty",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
