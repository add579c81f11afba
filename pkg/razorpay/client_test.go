package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/freshkart/freshkart-backend/pkg/config"
	"github.com/freshkart/freshkart-backend/pkg/logger"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	client, err := NewClient(context.Background(), config.RazorpayConfig{
		KeyID:          "rzp_test_key",
		KeySecret:      "test_secret",
		RequestTimeout: 5 * time.Second,
	}, logg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Parallel()

	logg := logger.New(logger.Options{ServiceName: "test"})
	if _, err := NewClient(context.Background(), config.RazorpayConfig{KeySecret: "s"}, logg); err == nil {
		t.Fatal("expected error for missing key id")
	}
	if _, err := NewClient(context.Background(), config.RazorpayConfig{KeyID: "k"}, logg); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := NewClient(context.Background(), config.RazorpayConfig{KeyID: "k", KeySecret: "s"}, nil); err == nil {
		t.Fatal("expected error for missing logger")
	}
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)

	mac := hmac.New(sha256.New, []byte("test_secret"))
	mac.Write([]byte("order_abc|pay_xyz"))
	valid := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifySignature("order_abc", "pay_xyz", valid) {
		t.Fatal("expected valid signature to verify")
	}
	if client.VerifySignature("order_abc", "pay_xyz", "tampered") {
		t.Fatal("expected tampered signature to fail")
	}
	if client.VerifySignature("order_abc", "pay_other", valid) {
		t.Fatal("expected signature for different payment to fail")
	}
	if client.VerifySignature("", "pay_xyz", valid) {
		t.Fatal("expected empty order id to fail")
	}
}
