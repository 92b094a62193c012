package payments

import (
	"context"
	"testing"
)

var _ Gateway = (*RazorpayGateway)(nil)

func TestNewRazorpayGateway(t *testing.T) {
	g := NewRazorpayGateway("rzp_test_key", "secret", 5)
	if g.KeyID() != "rzp_test_key" {
		t.Fatalf("KeyID = %q, want rzp_test_key", g.KeyID())
	}

	// Zero and negative timeouts keep the client default.
	if g := NewRazorpayGateway("rzp_test_key", "secret", 0); g == nil {
		t.Fatal("nil gateway for zero timeout")
	}
	if g := NewRazorpayGateway("rzp_test_key", "secret", -1); g == nil {
		t.Fatal("nil gateway for negative timeout")
	}
}

func TestRazorpayCreateOrder_CancelledContext(t *testing.T) {
	g := NewRazorpayGateway("rzp_test_key", "secret", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.CreateOrder(ctx, 500, "INR", "bk_1"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
