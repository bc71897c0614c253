package htlcscript

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode hex %q: %v", s, err)
	}
	return b
}

func testParams(t *testing.T) Params {
	t.Helper()
	return Params{
		RecipientPubKey: mustHex(t, "03789ed0bb717d88f7d321a368d905e7430207ebbd82bd342cf11ae157a7ace5fd"),
		SenderPubKey:    mustHex(t, "02789ed0bb717d88f7d321a368d905e7430207ebbd82bd342cf11ae157a7ace5fd"),
		PaymentHash:     mustHex(t, "66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f5925"),
		Timeout:         500144,
		Network:         &chaincfg.TestNet3Params,
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	p := testParams(t)
	a, err := Build(p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	b, err := Build(p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if a.P2SHAddress != b.P2SHAddress {
		t.Errorf("addresses differ across calls: %s vs %s", a.P2SHAddress, b.P2SHAddress)
	}
	if string(a.RedeemScript) != string(b.RedeemScript) {
		t.Errorf("redeem scripts differ across calls")
	}
}

func TestBuildDistinctParamsYieldDistinctAddresses(t *testing.T) {
	p1 := testParams(t)
	p2 := testParams(t)
	p2.PaymentHash = mustHex(t, "0000000000000000000000000000000000000000000000000000000000000000")

	s1, err := Build(p1)
	if err != nil {
		t.Fatalf("Build(p1) error = %v", err)
	}
	s2, err := Build(p2)
	if err != nil {
		t.Fatalf("Build(p2) error = %v", err)
	}
	if s1.P2SHAddress == s2.P2SHAddress {
		t.Errorf("distinct payment hashes produced the same address")
	}
}

func TestBuildTestnetAddressPrefix(t *testing.T) {
	p := testParams(t)
	s, err := Build(p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if s.P2SHAddress[0] != '2' {
		t.Errorf("P2SHAddress = %s, want testnet P2SH prefix '2'", s.P2SHAddress)
	}
}

func TestBuildScriptSizeWithinBounds(t *testing.T) {
	p := testParams(t)
	s, err := Build(p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(s.RedeemScript) <= 50 || len(s.RedeemScript) >= 520 {
		t.Errorf("redeem script length = %d, want in (50, 520)", len(s.RedeemScript))
	}
}

func TestBuildRejectsOversizedTimeout(t *testing.T) {
	p := testParams(t)
	p.Timeout = 500_000_000
	if _, err := Build(p); err != ErrInvalidTimeout {
		t.Errorf("Build() error = %v, want ErrInvalidTimeout", err)
	}
}

func TestBuildRejectsUncompressedPubKey(t *testing.T) {
	p := testParams(t)
	p.RecipientPubKey = append([]byte{0x04}, make([]byte, 64)...)
	if _, err := Build(p); err == nil {
		t.Errorf("Build() expected error for uncompressed pubkey, got nil")
	}
}

func TestVerifyAcceptsMatchingScript(t *testing.T) {
	p := testParams(t)
	s, err := Build(p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	ok, err := Verify(p, s.RedeemScript)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Errorf("Verify() = false, want true for unmodified script")
	}
}

func TestVerifyRejectsFlippedByte(t *testing.T) {
	p := testParams(t)
	s, err := Build(p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	tampered := append([]byte(nil), s.RedeemScript...)
	tampered[len(tampered)/2] ^= 0xFF

	ok, err := Verify(p, tampered)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if ok {
		t.Errorf("Verify() = true, want false for tampered script")
	}
}

func TestGeneratePreimageRoundTrip(t *testing.T) {
	preimage, hash, err := GeneratePreimage()
	if err != nil {
		t.Fatalf("GeneratePreimage() error = %v", err)
	}
	if got := HashPreimage(preimage); string(got) != string(hash) {
		t.Errorf("HashPreimage(preimage) = %x, want %x", got, hash)
	}
	if !VerifyPreimage(preimage, hash) {
		t.Errorf("VerifyPreimage() = false, want true")
	}
}

func TestVerifyPreimageRejectsWrongSecret(t *testing.T) {
	_, hash, err := GeneratePreimage()
	if err != nil {
		t.Fatalf("GeneratePreimage() error = %v", err)
	}
	wrong := make([]byte, 32)
	if VerifyPreimage(wrong, hash) {
		t.Errorf("VerifyPreimage() = true for unrelated secret, want false")
	}
}
