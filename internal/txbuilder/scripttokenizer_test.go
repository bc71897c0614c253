package txbuilder

import (
	"testing"

	"github.com/btcsuite/btcd/txscript"
)

// pushTokenizer wraps txscript's tokenizer to collect every data push in a
// scriptSig made only of pushes, for asserting stack order in tests. Small
// integer opcodes (OP_1..OP_16) are reported as the one-byte value they push.
type pushTokenizer struct {
	script []byte
}

func newPushTokenizer(script []byte) pushTokenizer {
	return pushTokenizer{script: script}
}

func (p pushTokenizer) allPushes(t *testing.T) [][]byte {
	t.Helper()
	var pushes [][]byte
	tok := txscript.MakeScriptTokenizer(0, p.script)
	for tok.Next() {
		if op := tok.Opcode(); op >= txscript.OP_1 && op <= txscript.OP_16 {
			pushes = append(pushes, []byte{op - txscript.OP_1 + 1})
			continue
		}
		pushes = append(pushes, append([]byte(nil), tok.Data()...))
	}
	if err := tok.Err(); err != nil {
		t.Fatalf("tokenize scriptSig: %v", err)
	}
	return pushes
}
