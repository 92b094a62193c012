package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature_Valid(t *testing.T) {
	sig := sign("order_abc", "pay_xyz", "s3cret")
	if !VerifySignature("order_abc", "pay_xyz", sig, "s3cret") {
		t.Fatal("valid signature rejected")
	}
}

func TestVerifySignature_Mismatch(t *testing.T) {
	sig := sign("order_abc", "pay_xyz", "s3cret")

	if VerifySignature("order_abc", "pay_xyz", sig, "wrong-secret") {
		t.Fatal("signature accepted with wrong secret")
	}
	if VerifySignature("order_other", "pay_xyz", sig, "s3cret") {
		t.Fatal("signature accepted for different order")
	}
	if VerifySignature("order_abc", "pay_other", sig, "s3cret") {
		t.Fatal("signature accepted for different payment")
	}
	if VerifySignature("order_abc", "pay_xyz", sig[:len(sig)-2], "s3cret") {
		t.Fatal("truncated signature accepted")
	}
}

func TestVerifySignature_EmptyInputs(t *testing.T) {
	sig := sign("order_abc", "pay_xyz", "s3cret")
	cases := [][4]string{
		{"", "pay_xyz", sig, "s3cret"},
		{"order_abc", "", sig, "s3cret"},
		{"order_abc", "pay_xyz", "", "s3cret"},
		{"order_abc", "pay_xyz", sig, ""},
	}
	for _, c := range cases {
		if VerifySignature(c[0], c[1], c[2], c[3]) {
			t.Fatalf("empty input accepted: %v", c)
		}
	}
}
