// Package config loads the HTLC engine's process configuration from the
// environment. The service is 12-factor: no config file, and every setting
// this package loads comes from an env var (§6 of the specification). The
// one command-line flag, -log-level, is parsed by cmd/htlcd, not here.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// BitcoinNetwork selects the chain parameters used for address derivation and
// locktime interpretation.
type BitcoinNetwork string

const (
	NetworkMainnet BitcoinNetwork = "mainnet"
	NetworkTestnet BitcoinNetwork = "testnet"
	NetworkRegtest BitcoinNetwork = "regtest"
)

// BackendMode selects which Bitcoin Backend Adapter variant the process
// constructs, per §4.4: a local full node over JSON-RPC, or a block-explorer
// over REST.
type BackendMode string

const (
	BackendNodeRPC      BackendMode = "node_rpc"
	BackendRestExplorer BackendMode = "rest_explorer"
)

// Config is the fully parsed, validated process configuration.
type Config struct {
	Host        string
	Port        string
	DatabaseURL string

	BitcoinNetwork BitcoinNetwork
	ChainParams    *chaincfg.Params

	BackendMode BackendMode

	// RestExplorer fields (set when BackendMode == BackendRestExplorer).
	BitcoinAPIURL string

	// NodeRPC fields (set when BackendMode == BackendNodeRPC).
	BitcoinRPCURL      string
	BitcoinRPCUser     string
	BitcoinRPCPassword string

	// ResolverPublicKey is the optional default counterparty-operator key
	// used when a create-order request omits one.
	ResolverPublicKey string
}

// Load reads and validates configuration from the process environment. It
// fails fast with a descriptive error if a required variable is missing or a
// variable's value is malformed; the caller (cmd/htlcd) exits non-zero on a
// non-nil error, per §6's "process exits non-zero if required variables
// missing."
func Load() (*Config, error) {
	cfg := &Config{
		Host: getEnvDefault("HOST", "0.0.0.0"),
		Port: getEnvDefault("PORT", "8080"),
	}

	var err error
	if cfg.DatabaseURL, err = requireEnv("DATABASE_URL"); err != nil {
		return nil, err
	}

	network := BitcoinNetwork(getEnvDefault("BITCOIN_NETWORK", string(NetworkTestnet)))
	switch network {
	case NetworkMainnet:
		cfg.ChainParams = &chaincfg.MainNetParams
	case NetworkTestnet:
		cfg.ChainParams = &chaincfg.TestNet3Params
	case NetworkRegtest:
		cfg.ChainParams = &chaincfg.RegressionNetParams
	default:
		return nil, fmt.Errorf("BITCOIN_NETWORK: unknown network %q (want mainnet, testnet, or regtest)", network)
	}
	cfg.BitcoinNetwork = network

	apiURL := os.Getenv("BITCOIN_API_URL")
	rpcURL := os.Getenv("BITCOIN_RPC_URL")
	rpcUser := os.Getenv("BITCOIN_RPC_USER")
	rpcPass := os.Getenv("BITCOIN_RPC_PASSWORD")

	switch {
	case apiURL != "":
		cfg.BackendMode = BackendRestExplorer
		cfg.BitcoinAPIURL = strings.TrimSuffix(apiURL, "/")
	case rpcURL != "" && rpcUser != "" && rpcPass != "":
		cfg.BackendMode = BackendNodeRPC
		cfg.BitcoinRPCURL = rpcURL
		cfg.BitcoinRPCUser = rpcUser
		cfg.BitcoinRPCPassword = rpcPass
	case rpcURL != "" || rpcUser != "" || rpcPass != "":
		return nil, fmt.Errorf("BITCOIN_RPC_URL, BITCOIN_RPC_USER, and BITCOIN_RPC_PASSWORD must all be set together")
	default:
		return nil, fmt.Errorf("either BITCOIN_API_URL or BITCOIN_RPC_URL+BITCOIN_RPC_USER+BITCOIN_RPC_PASSWORD must be set")
	}

	cfg.ResolverPublicKey = os.Getenv("RESOLVER_PUBLIC_KEY")

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("required environment variable %s is not set", name)
	}
	return v, nil
}

func getEnvDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
