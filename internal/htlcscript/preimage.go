package htlcscript

import (
	"crypto/sha256"
	"fmt"

	"github.com/bitcoinswap/htlc-engine/pkg/helpers"
)

const preimageSize = 32

// GeneratePreimage fills a 32-byte preimage from a CSPRNG and returns it
// alongside its SHA-256 hash.
func GeneratePreimage() (preimage, hash []byte, err error) {
	preimage, err = helpers.GenerateSecureRandom(preimageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("generate preimage: %w", err)
	}
	h := sha256.Sum256(preimage)
	return preimage, h[:], nil
}

// HashPreimage returns SHA-256(preimage).
func HashPreimage(preimage []byte) []byte {
	h := sha256.Sum256(preimage)
	return h[:]
}

// VerifyPreimage reports whether preimage hashes to expectedHash, using a
// timing-safe comparison.
func VerifyPreimage(preimage, expectedHash []byte) bool {
	if len(preimage) != preimageSize || len(expectedHash) != 32 {
		return false
	}
	actual := sha256.Sum256(preimage)
	return helpers.ConstantTimeCompare(actual[:], expectedHash)
}
