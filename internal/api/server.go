// Package api exposes the HTLC engine's HTTP front door: order lifecycle,
// HTLC script derivation/verification, transaction status, fee estimates,
// and webhook registration (§4.8/§6 of the specification).
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/bitcoinswap/htlc-engine/internal/backend"
	"github.com/bitcoinswap/htlc-engine/internal/orders"
	"github.com/bitcoinswap/htlc-engine/pkg/logging"
)

// Server wires the order store, state machine, and Bitcoin backend adapter
// into an http.Server. One Server handles every route in the spec.
type Server struct {
	store   *orders.Store
	machine *orders.Machine
	backend backend.Backend
	network *chaincfg.Params

	resolverPubKey string

	log       *logging.Logger
	startedAt time.Time

	httpServer *http.Server
	listener   net.Listener

	webhooksMu sync.Mutex
	webhooks   map[string]WebhookResponse
}

// Config collects the dependencies a Server needs; everything here is built
// once at process startup in cmd/htlcd.
type Config struct {
	Addr              string
	Store             *orders.Store
	Machine           *orders.Machine
	Backend           backend.Backend
	Network           *chaincfg.Params
	ResolverPublicKey string
}

// NewServer builds a Server and its route table but does not start listening.
func NewServer(cfg Config) *Server {
	s := &Server{
		store:          cfg.Store,
		machine:        cfg.Machine,
		backend:        cfg.Backend,
		network:        cfg.Network,
		resolverPubKey: cfg.ResolverPublicKey,
		log:            logging.GetDefault().Component("api"),
		startedAt:      time.Now().UTC(),
		webhooks:       make(map[string]WebhookResponse),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	handler = requestIDMiddleware(handler)
	handler = s.apiKeyMiddleware(handler)
	handler = corsMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/health", s.handleHealth)

	mux.HandleFunc("POST /v1/orders", s.handleCreateOrder)
	mux.HandleFunc("GET /v1/orders/{id}", s.handleGetOrder)
	mux.HandleFunc("POST /v1/orders/{id}/fusion-proof", s.handleSubmitFusionProof)
	mux.HandleFunc("POST /v1/orders/{id}/funding", s.handleObserveFunding)
	mux.HandleFunc("POST /v1/orders/{id}/confirmation", s.handleObserveConfirmation)
	mux.HandleFunc("POST /v1/orders/{id}/preimage", s.handleObservePreimage)
	mux.HandleFunc("POST /v1/orders/{id}/claim", s.handleClaim)
	mux.HandleFunc("GET /v1/orders/{id}/refund", s.handleRefundReadiness)

	// §6's literal route table addresses claim/refund by htlc_id rather than
	// order_id; this engine has no separate htlc entity, so the order's id
	// doubles as its htlc_id and both forms route to the same handlers.
	mux.HandleFunc("POST /v1/htlc/{id}/claim", s.handleClaim)
	mux.HandleFunc("GET /v1/htlc/{id}/refund", s.handleRefundReadiness)

	mux.HandleFunc("POST /v1/htlc/create", s.handleHtlcBuild)
	mux.HandleFunc("POST /v1/htlc/build", s.handleHtlcBuild)
	mux.HandleFunc("POST /v1/htlc/verify", s.handleHtlcVerify)

	mux.HandleFunc("GET /v1/transactions/{txid}/status", s.handleTxStatus)
	mux.HandleFunc("GET /v1/fees/estimate", s.handleFeeEstimate)

	mux.HandleFunc("POST /v1/webhooks", s.handleCreateWebhook)
}

// Start binds the listener and serves until Stop is called or the server
// fails. It blocks; callers run it in its own goroutine.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	s.log.Info("api server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down, waiting up to ctx's deadline for
// in-flight requests to finish.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("api server shutting down")
	return s.httpServer.Shutdown(ctx)
}
