package txbuilder

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
)

func TestBuildRefundLocktimeAndValue(t *testing.T) {
	tx, err := BuildRefund(RefundParams{
		FundingTxID:   "66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f925",
		FundingVout:   0,
		HtlcValueSats: 100_000,
		RedeemScript:  testRedeemScript(t),
		TimeoutHeight: 500_000,
		SenderKey:     testPrivKey(t),
		DestAddress:   testDestAddress,
		Network:       &chaincfg.TestNet3Params,
		FeeSats:       5_000,
	})
	if err != nil {
		t.Fatalf("BuildRefund() error = %v", err)
	}
	if tx.LockTime != 500_000 {
		t.Errorf("LockTime = %d, want 500000", tx.LockTime)
	}
	if tx.TxIn[0].Sequence == 0xFFFFFFFF {
		t.Errorf("input sequence = 0xFFFFFFFF, disables locktime")
	}
	if tx.TxOut[0].Value != 95_000 {
		t.Errorf("TxOut[0].Value = %d, want 95000", tx.TxOut[0].Value)
	}
}

func TestBuildRefundFailsWhenFeeExceedsValue(t *testing.T) {
	_, err := BuildRefund(RefundParams{
		FundingTxID:   "66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f925",
		FundingVout:   0,
		HtlcValueSats: 1_000,
		RedeemScript:  testRedeemScript(t),
		TimeoutHeight: 500_000,
		SenderKey:     testPrivKey(t),
		DestAddress:   testDestAddress,
		Network:       &chaincfg.TestNet3Params,
		FeeSats:       5_000,
	})
	if err != ErrFeeExceedsValue {
		t.Errorf("BuildRefund() error = %v, want ErrFeeExceedsValue", err)
	}
}

func TestBuildRefundRejectsOversizedTimeout(t *testing.T) {
	_, err := BuildRefund(RefundParams{
		FundingTxID:   "66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f925",
		FundingVout:   0,
		HtlcValueSats: 100_000,
		RedeemScript:  testRedeemScript(t),
		TimeoutHeight: 500_000_000,
		SenderKey:     testPrivKey(t),
		DestAddress:   testDestAddress,
		Network:       &chaincfg.TestNet3Params,
		FeeSats:       5_000,
	})
	if err != ErrInvalidTimeout {
		t.Errorf("BuildRefund() error = %v, want ErrInvalidTimeout", err)
	}
}

func TestBuildRefundScriptSigSelectsElseBranch(t *testing.T) {
	redeemScript := testRedeemScript(t)
	tx, err := BuildRefund(RefundParams{
		FundingTxID:   "66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f925",
		FundingVout:   0,
		HtlcValueSats: 100_000,
		RedeemScript:  redeemScript,
		TimeoutHeight: 500_000,
		SenderKey:     testPrivKey(t),
		DestAddress:   testDestAddress,
		Network:       &chaincfg.TestNet3Params,
		FeeSats:       5_000,
	})
	if err != nil {
		t.Fatalf("BuildRefund() error = %v", err)
	}

	pushes := newPushTokenizer(tx.TxIn[0].SignatureScript).allPushes(t)
	if len(pushes) != 3 {
		t.Fatalf("scriptSig has %d pushes, want 3", len(pushes))
	}
	if len(pushes[1]) != 0 {
		t.Errorf("second push = %x, want empty (ELSE-branch selector)", pushes[1])
	}
	if string(pushes[2]) != string(redeemScript) {
		t.Errorf("third push is not the redeem script")
	}
}
