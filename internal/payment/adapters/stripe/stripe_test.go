package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	paymentdomain "github.com/seawell/laguna/internal/payment/domain"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"checkout.session.completed","data":{"object":{}}}`)
	timestamp := time.Now().Unix()

	header := buildStripeSignatureHeader(secret, payload, timestamp)
	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", header)

	adapter := &Adapter{webhookSecret: secret}
	if err := adapter.Verify(context.Background(), payload, reqHeader); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("wrong", payload, timestamp))
	if !errors.Is(adapter.Verify(context.Background(), payload, reqHeader), paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error")
	}

	reqHeader.Del("Stripe-Signature")
	if !errors.Is(adapter.Verify(context.Background(), payload, reqHeader), paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error for missing header")
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","amount":1000}`)
	timestamp := time.Now().Unix()

	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, timestamp))

	adapter := &Adapter{webhookSecret: secret}
	tampered := []byte(`{"id":"evt_123","amount":9000}`)
	if !errors.Is(adapter.Verify(context.Background(), tampered, reqHeader), paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature for tampered payload")
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","amount":1000}`)
	adapter := &Adapter{webhookSecret: secret}

	// Correctly signed, but outside the replay tolerance.
	stale := time.Now().Add(-10 * time.Minute).Unix()
	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, stale))
	if !errors.Is(adapter.Verify(context.Background(), payload, reqHeader), paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature for stale timestamp")
	}

	future := time.Now().Add(10 * time.Minute).Unix()
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, future))
	if !errors.Is(adapter.Verify(context.Background(), payload, reqHeader), paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature for future timestamp")
	}

	reqHeader.Set("Stripe-Signature", "t=notanumber,v1=deadbeef")
	if !errors.Is(adapter.Verify(context.Background(), payload, reqHeader), paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature for malformed timestamp")
	}
}

func TestParseCheckoutSessionCompleted(t *testing.T) {
	created := time.Now().UTC().Unix()
	event := map[string]any{
		"id":      "evt_1",
		"type":    "checkout.session.completed",
		"created": created,
		"data": map[string]any{
			"object": map[string]any{
				"id":                  "cs_1",
				"client_reference_id": "user_42",
				"amount_total":        10000,
				"currency":            "USD",
				"created":             created,
				"customer_details": map[string]any{
					"email": "jamie@example.com",
					"name":  "Jamie",
				},
			},
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	adapter := &Adapter{webhookSecret: "whsec_test"}
	parsed, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if parsed.ProviderEventID != "evt_1" {
		t.Fatalf("expected provider event id evt_1, got %s", parsed.ProviderEventID)
	}
	if parsed.Type != paymentdomain.EventTypeCheckoutCompleted {
		t.Fatalf("expected type %s, got %s", paymentdomain.EventTypeCheckoutCompleted, parsed.Type)
	}
	if parsed.SessionID != "cs_1" {
		t.Fatalf("expected session cs_1, got %s", parsed.SessionID)
	}
	if parsed.UserRef != "user_42" {
		t.Fatalf("expected user_ref user_42, got %s", parsed.UserRef)
	}
	if parsed.CustomerEmail != "jamie@example.com" {
		t.Fatalf("expected customer email, got %s", parsed.CustomerEmail)
	}
	if parsed.AmountTotal != 10000 {
		t.Fatalf("expected amount 10000, got %d", parsed.AmountTotal)
	}
	if parsed.Currency != "usd" {
		t.Fatalf("expected lowercased currency, got %s", parsed.Currency)
	}
	if parsed.OccurredAt.Unix() != created {
		t.Fatalf("expected occurred_at %d, got %d", created, parsed.OccurredAt.Unix())
	}
}

func TestParseIgnoresOtherEventTypes(t *testing.T) {
	adapter := &Adapter{webhookSecret: "whsec_test"}

	payload := []byte(`{"id":"evt_2","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	if _, err := adapter.Parse(context.Background(), payload); !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestParseRejectsMalformedPayload(t *testing.T) {
	adapter := &Adapter{webhookSecret: "whsec_test"}

	if _, err := adapter.Parse(context.Background(), []byte(`{`)); !errors.Is(err, paymentdomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}

	if _, err := adapter.Parse(context.Background(), []byte(`{"type":"checkout.session.completed"}`)); !errors.Is(err, paymentdomain.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for missing event id, got %v", err)
	}

	payload := []byte(`{"id":"evt_3","type":"checkout.session.completed","data":{"object":{}}}`)
	if _, err := adapter.Parse(context.Background(), payload); !errors.Is(err, paymentdomain.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for missing session id, got %v", err)
	}
}

func TestNewAdapterRequiresWebhookSecret(t *testing.T) {
	factory := NewFactory()

	if _, err := factory.NewAdapter(paymentdomain.AdapterConfig{
		Provider: "stripe",
		Config:   map[string]any{},
	}); !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	adapter, err := factory.NewAdapter(paymentdomain.AdapterConfig{
		Provider: "stripe",
		Config:   map[string]any{"webhook_secret": "whsec_test"},
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	// No API key configured: line item retrieval is unavailable.
	if _, err := adapter.ListLineItems(context.Background(), "cs_1"); !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig without api key, got %v", err)
	}
}

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}
