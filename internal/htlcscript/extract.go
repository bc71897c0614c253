package htlcscript

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/txscript"
)

// ExtractTimeout parses a redeem script produced by Build and returns the
// absolute block-height timeout encoded in its refund branch. It reports
// false if redeemScriptHex is not well-formed or not in the expected layout.
func ExtractTimeout(redeemScriptHex string) (int64, bool) {
	script, err := hex.DecodeString(redeemScriptHex)
	if err != nil {
		return 0, false
	}

	tokenizer := txscript.MakeScriptTokenizer(0, script)
	sawElse := false
	for tokenizer.Next() {
		op := tokenizer.Opcode()
		if op == txscript.OP_ELSE {
			sawElse = true
			continue
		}
		if sawElse {
			data := tokenizer.Data()
			if data != nil {
				n, err := txscript.MakeScriptNum(data, true, 5)
				if err != nil {
					return 0, false
				}
				return int64(n), true
			}
			if op >= txscript.OP_1 && op <= txscript.OP_16 {
				return int64(op - txscript.OP_1 + 1), true
			}
			return 0, false
		}
	}
	return 0, false
}
