package config

import (
	"os"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
)

// clearEnv resets every env var Load reads so tests don't leak into each
// other or pick up variables set in the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HOST", "PORT", "DATABASE_URL", "BITCOIN_NETWORK",
		"BITCOIN_API_URL", "BITCOIN_RPC_URL", "BITCOIN_RPC_USER", "BITCOIN_RPC_PASSWORD",
		"RESOLVER_PUBLIC_KEY",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	os.Setenv("BITCOIN_API_URL", "https://mempool.space/testnet/api")
	defer clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when DATABASE_URL is missing")
	}
}

func TestLoadRequiresABackend(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "orders.db")
	defer clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when neither BITCOIN_API_URL nor a full RPC triple is set")
	}
}

func TestLoadPartialRPCTripleIsRejected(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "orders.db")
	os.Setenv("BITCOIN_RPC_URL", "http://127.0.0.1:8332")
	defer clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when BITCOIN_RPC_URL is set without user/password")
	}
}

func TestLoadRestExplorerBackend(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "orders.db")
	os.Setenv("BITCOIN_API_URL", "https://mempool.space/testnet/api/")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BackendMode != BackendRestExplorer {
		t.Errorf("BackendMode = %s, want %s", cfg.BackendMode, BackendRestExplorer)
	}
	if cfg.BitcoinAPIURL != "https://mempool.space/testnet/api" {
		t.Errorf("BitcoinAPIURL should have its trailing slash trimmed, got %q", cfg.BitcoinAPIURL)
	}
	// Defaults, since HOST/PORT were not set.
	if cfg.Host != "0.0.0.0" || cfg.Port != "8080" {
		t.Errorf("unexpected defaults: host=%q port=%q", cfg.Host, cfg.Port)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q, want 0.0.0.0:8080", cfg.Addr())
	}
	// Default network is testnet.
	if cfg.BitcoinNetwork != NetworkTestnet || cfg.ChainParams != &chaincfg.TestNet3Params {
		t.Errorf("expected testnet chain params by default")
	}
}

func TestLoadNodeRPCBackend(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "orders.db")
	os.Setenv("BITCOIN_RPC_URL", "http://127.0.0.1:8332")
	os.Setenv("BITCOIN_RPC_USER", "alice")
	os.Setenv("BITCOIN_RPC_PASSWORD", "hunter2")
	os.Setenv("BITCOIN_NETWORK", "mainnet")
	os.Setenv("HOST", "127.0.0.1")
	os.Setenv("PORT", "9090")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BackendMode != BackendNodeRPC {
		t.Errorf("BackendMode = %s, want %s", cfg.BackendMode, BackendNodeRPC)
	}
	if cfg.BitcoinRPCURL != "http://127.0.0.1:8332" || cfg.BitcoinRPCUser != "alice" || cfg.BitcoinRPCPassword != "hunter2" {
		t.Error("RPC credentials not propagated")
	}
	if cfg.ChainParams != &chaincfg.MainNetParams {
		t.Error("expected mainnet chain params")
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr() = %q, want 127.0.0.1:9090", cfg.Addr())
	}
}

func TestLoadRejectsUnknownNetwork(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "orders.db")
	os.Setenv("BITCOIN_API_URL", "https://mempool.space/api")
	os.Setenv("BITCOIN_NETWORK", "dogecoinland")
	defer clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an unrecognized BITCOIN_NETWORK")
	}
}

func TestLoadResolverPublicKeyOptional(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "orders.db")
	os.Setenv("BITCOIN_API_URL", "https://mempool.space/api")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ResolverPublicKey != "" {
		t.Errorf("expected empty ResolverPublicKey by default, got %q", cfg.ResolverPublicKey)
	}

	os.Setenv("RESOLVER_PUBLIC_KEY", "0288a5c4030ec344d5b6b21d9e4c0c9c0f2ca97f6b5a45e11c1b33ce2e8f4f2a1b")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ResolverPublicKey == "" {
		t.Error("expected RESOLVER_PUBLIC_KEY to propagate")
	}
}
