package api

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/bitcoinswap/htlc-engine/pkg/helpers"
)

var knownWebhookEvents = map[string]bool{
	"order.created":           true,
	"order.htlc_created":      true,
	"order.htlc_funded":       true,
	"order.htlc_confirmed":    true,
	"order.fillable":          true,
	"order.preimage_revealed": true,
	"order.claimed":           true,
	"order.completed":         true,
	"order.expired":           true,
	"order.failed":            true,
}

// handleCreateWebhook registers a delivery target for order lifecycle
// events. Delivery, retries, and payload signing remain an external
// collaborator (§1); this handler only records the registration and, when
// the caller omits one, mints a secret for that collaborator to sign with.
func (s *Server) handleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var details []string
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		details = append(details, "url must be an absolute http(s) URL")
	}
	if len(req.Events) == 0 {
		details = append(details, "events must list at least one event type")
	}
	for _, e := range req.Events {
		if !knownWebhookEvents[e] {
			details = append(details, "unknown event type: "+e)
		}
	}
	if len(details) > 0 {
		s.writeError(w, r, validationError(details...))
		return
	}

	secret := req.Secret
	if secret == "" {
		raw, err := helpers.GenerateSecureRandom(32)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		secret = bytesToHex(raw)
	}

	reg := WebhookResponse{
		ID:     uuid.NewString(),
		URL:    req.URL,
		Events: req.Events,
		Secret: secret,
	}

	s.webhooksMu.Lock()
	s.webhooks[reg.ID] = reg
	s.webhooksMu.Unlock()

	s.writeJSON(w, http.StatusCreated, reg)
}
