package api

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitcoinswap/htlc-engine/pkg/helpers"
)

// hash32Re matches a 32-byte value hex-encoded: preimages and payment hashes.
var hash32Re = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// compressedPubKeyRe matches a 33-byte compressed secp256k1 public key,
// hex-encoded with its 0x02/0x03 leading byte.
var compressedPubKeyRe = regexp.MustCompile(`^0[23][0-9a-fA-F]{64}$`)

// evmHashRe matches a 32-byte EVM hash (tx hash, order hash), 0x-prefixed.
var evmHashRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// bitcoinAddressRe accepts bech32 testnet/mainnet (tb1/bc1) and base58
// P2PKH/P2SH (1/3/m/n/2) prefixes; full checksum validation happens when the
// address is actually decoded by txbuilder against chaincfg.Params.
var bitcoinAddressRe = regexp.MustCompile(`^(bc1|tb1|bcrt1|[13mn]|2)[a-zA-HJ-NP-Z0-9]{10,70}$`)

func validateHash32(field, value string) error {
	if !hash32Re.MatchString(value) {
		return fmt.Errorf("%s must be a 64-character hex string (32 bytes)", field)
	}
	return nil
}

func validateCompressedPubKey(field, value string) error {
	if !compressedPubKeyRe.MatchString(value) {
		return fmt.Errorf("%s must be a 33-byte compressed public key (66 hex chars, 02/03 prefix)", field)
	}
	return nil
}

// validateEVMAddress uses go-ethereum's own address-validation routine
// rather than a hand-rolled regex, per the engine's EVM-field boundary
// checks.
func validateEVMAddress(field, value string) error {
	if !strings.HasPrefix(value, "0x") || !common.IsHexAddress(value) {
		return fmt.Errorf("%s must be a 0x-prefixed 20-byte address", field)
	}
	return nil
}

func validateEVMHash(field, value string) error {
	if !evmHashRe.MatchString(value) {
		return fmt.Errorf("%s must be a 0x-prefixed 32-byte hash", field)
	}
	return nil
}

func validateBitcoinAddress(field, value string) error {
	if !bitcoinAddressRe.MatchString(value) {
		return fmt.Errorf("%s is not a recognizable Bitcoin address", field)
	}
	return nil
}

// validateTimeoutBlocks enforces the 1..999999 range shared by both legs'
// timeout fields.
func validateTimeoutBlocks(field string, v int64) error {
	if v < 1 || v > 999_999 {
		return fmt.Errorf("%s must be between 1 and 999999", field)
	}
	return nil
}

func decodeHash32(field, value string) ([]byte, error) {
	if err := validateHash32(field, value); err != nil {
		return nil, err
	}
	return hex.DecodeString(value)
}

func decodePubKey(field, value string) ([]byte, error) {
	if err := validateCompressedPubKey(field, value); err != nil {
		return nil, err
	}
	return hex.DecodeString(value)
}

// bytesToHex renders raw bytes as a plain (non 0x-prefixed) hex string, the
// convention every Bitcoin-side field in this API uses.
func bytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// satsToBTC formats a satoshi amount as a decimal BTC string via the shared
// fixed-point amount helpers, so every money field renders consistently.
func satsToBTC(sats int64) string {
	if sats < 0 {
		return "-" + helpers.SatoshisToBTC(uint64(-sats))
	}
	return helpers.SatoshisToBTC(uint64(sats))
}
