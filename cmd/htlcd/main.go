// Command htlcd runs the Bitcoin-side HTLC engine: an HTTP service that
// creates, tracks, and advances cross-chain atomic swap orders against a
// Bitcoin node or block explorer backend.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitcoinswap/htlc-engine/internal/api"
	"github.com/bitcoinswap/htlc-engine/internal/backend"
	"github.com/bitcoinswap/htlc-engine/internal/config"
	"github.com/bitcoinswap/htlc-engine/internal/orders"
	"github.com/bitcoinswap/htlc-engine/pkg/logging"
)

var version = "dev"

// expirySweepInterval is how often the background sweeper checks for orders
// whose expires_at has passed while they're still on the active path.
const expirySweepInterval = 30 * time.Second

func main() {
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log := logging.New(&logging.Config{Level: *logLevel, TimeFormat: time.RFC3339, Prefix: "htlcd"})
	logging.SetDefault(log)

	log.Infof("htlcd %s starting up", version)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", "error", err)
	}

	store, err := orders.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open order store", "error", err)
	}
	defer store.Close()

	var bitcoinBackend backend.Backend
	switch cfg.BackendMode {
	case config.BackendNodeRPC:
		bitcoinBackend = backend.NewNodeRPC(cfg.BitcoinRPCURL, cfg.BitcoinRPCUser, cfg.BitcoinRPCPassword)
		log.Infof("Bitcoin backend: node_rpc (%s)", cfg.BitcoinRPCURL)
	case config.BackendRestExplorer:
		bitcoinBackend = backend.NewRestExplorer(cfg.BitcoinAPIURL)
		log.Infof("Bitcoin backend: rest_explorer (%s)", cfg.BitcoinAPIURL)
	default:
		log.Fatal("unreachable: config.Load returned an unknown backend mode", "mode", cfg.BackendMode)
	}

	machine := orders.NewMachine(store)

	server := api.NewServer(api.Config{
		Addr:              cfg.Addr(),
		Store:             store,
		Machine:           machine,
		Backend:           bitcoinBackend,
		Network:           cfg.ChainParams,
		ResolverPublicKey: cfg.ResolverPublicKey,
	})

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		log.Infof("HTTP API listening on %s", cfg.Addr())
		if err := server.Start(); err != nil {
			log.Error("HTTP server stopped", "error", err)
			cancel()
		}
	}()

	go runExpirySweep(ctx, log, store, machine)

	printBanner(log, cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Shutting down...")
	case <-ctx.Done():
		log.Info("Shutting down after server failure...")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing order store", "error", err)
	}

	log.Info("Goodbye!")
}

// runExpirySweep periodically advances any non-terminal order whose
// expires_at has passed into StatusExpired, per the expiry-wins-over-late-
// confirmation invariant. It runs until ctx is cancelled.
func runExpirySweep(ctx context.Context, log *logging.Logger, store *orders.Store, machine *orders.Machine) {
	sweepLog := log.Component("expiry-sweep")
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			ids, err := store.NonTerminalExpired(now)
			if err != nil {
				sweepLog.Error("list past-due orders", "error", err)
				continue
			}
			for _, id := range ids {
				if err := machine.ExpirySweep(id, now); err != nil {
					sweepLog.Error("expire order", "order_id", id, "error", err)
				}
			}
			if len(ids) > 0 {
				sweepLog.Debugf("expired %d order(s)", len(ids))
			}
		}
	}
}

func printBanner(log *logging.Logger, cfg *config.Config) {
	log.Info("")
	log.Info("=================================================")
	log.Infof("  Bitcoin HTLC Engine (%s)", cfg.BitcoinNetwork)
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  API: http://%s", cfg.Addr())
	log.Infof("  Backend: %s", cfg.BackendMode)
	log.Infof("  Database: %s", cfg.DatabaseURL)
	log.Info("")
	log.Info("=================================================")
	log.Info("")
}
