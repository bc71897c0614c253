package txbuilder

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/bitcoinswap/htlc-engine/internal/htlcscript"
)

const testDestAddress = "mqYt3pNzQAbCTwzEKF7yxAcvju36nTnk3m"
const testPrivKeyHex = "f3977f5e6c93bac68241309bce382f8663eac103b88709de990fbb72dd0796cc"

func testPrivKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	b, err := hex.DecodeString(testPrivKeyHex)
	if err != nil {
		t.Fatalf("decode priv key: %v", err)
	}
	key, _ := btcec.PrivKeyFromBytes(b)
	return key
}

func testRedeemScript(t *testing.T) []byte {
	t.Helper()
	priv := testPrivKey(t)
	pub := priv.PubKey().SerializeCompressed()
	s, err := htlcscript.Build(htlcscript.Params{
		RecipientPubKey: pub,
		SenderPubKey:    pub,
		PaymentHash:     mustHexBytes(t, "66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f5925"),
		Timeout:         500_000,
		Network:         &chaincfg.TestNet3Params,
	})
	if err != nil {
		t.Fatalf("htlcscript.Build() error = %v", err)
	}
	return s.RedeemScript
}

func mustHexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode hex: %v", err)
	}
	return b
}

func TestBuildClaimValuePreservation(t *testing.T) {
	tx, err := BuildClaim(ClaimParams{
		FundingTxID:   "66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f925",
		FundingVout:   0,
		HtlcValueSats: 100_000,
		RedeemScript:  testRedeemScript(t),
		Preimage:      make([]byte, 32),
		RecipientKey:  testPrivKey(t),
		DestAddress:   testDestAddress,
		Network:       &chaincfg.TestNet3Params,
		FeeSats:       5_000,
	})
	if err != nil {
		t.Fatalf("BuildClaim() error = %v", err)
	}
	if len(tx.TxOut) != 1 {
		t.Fatalf("len(TxOut) = %d, want 1", len(tx.TxOut))
	}
	if tx.TxOut[0].Value != 95_000 {
		t.Errorf("TxOut[0].Value = %d, want 95000", tx.TxOut[0].Value)
	}
}

func TestBuildClaimFailsWhenFeeExceedsValue(t *testing.T) {
	_, err := BuildClaim(ClaimParams{
		FundingTxID:   "66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f925",
		FundingVout:   0,
		HtlcValueSats: 1_000,
		RedeemScript:  testRedeemScript(t),
		Preimage:      make([]byte, 32),
		RecipientKey:  testPrivKey(t),
		DestAddress:   testDestAddress,
		Network:       &chaincfg.TestNet3Params,
		FeeSats:       5_000,
	})
	if err != ErrFeeExceedsValue {
		t.Errorf("BuildClaim() error = %v, want ErrFeeExceedsValue", err)
	}
}

func TestBuildClaimScriptSigOrder(t *testing.T) {
	preimage := make([]byte, 32)
	for i := range preimage {
		preimage[i] = byte(i)
	}
	redeemScript := testRedeemScript(t)

	tx, err := BuildClaim(ClaimParams{
		FundingTxID:   "66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f925",
		FundingVout:   0,
		HtlcValueSats: 100_000,
		RedeemScript:  redeemScript,
		Preimage:      preimage,
		RecipientKey:  testPrivKey(t),
		DestAddress:   testDestAddress,
		Network:       &chaincfg.TestNet3Params,
		FeeSats:       5_000,
	})
	if err != nil {
		t.Fatalf("BuildClaim() error = %v", err)
	}

	scriptSig := tx.TxIn[0].SignatureScript
	tokenizer := newPushTokenizer(scriptSig)
	pushes := tokenizer.allPushes(t)
	if len(pushes) != 4 {
		t.Fatalf("scriptSig has %d pushes, want 4", len(pushes))
	}
	if string(pushes[1]) != string(preimage) {
		t.Errorf("second push is not the preimage")
	}
	if len(pushes[2]) != 1 || pushes[2][0] != 0x01 {
		t.Errorf("third push = %x, want truthy selector 0x01", pushes[2])
	}
	if string(pushes[3]) != string(redeemScript) {
		t.Errorf("fourth push is not the redeem script")
	}
}
