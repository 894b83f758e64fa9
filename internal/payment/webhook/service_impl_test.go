package webhook_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/config"
	gatewaycrypto "github.com/seawell/laguna/internal/gatewayconfig/crypto"
	gatewaydomain "github.com/seawell/laguna/internal/gatewayconfig/domain"
	gatewayrepo "github.com/seawell/laguna/internal/gatewayconfig/repository"
	gatewayservice "github.com/seawell/laguna/internal/gatewayconfig/service"
	notificationrepo "github.com/seawell/laguna/internal/notification/repository"
	notificationservice "github.com/seawell/laguna/internal/notification/service"
	orderrepo "github.com/seawell/laguna/internal/order/repository"
	orderservice "github.com/seawell/laguna/internal/order/service"
	"github.com/seawell/laguna/internal/payment/adapters"
	"github.com/seawell/laguna/internal/payment/adapters/stripe"
	paymentdomain "github.com/seawell/laguna/internal/payment/domain"
	paymentrepo "github.com/seawell/laguna/internal/payment/repository"
	paymentservice "github.com/seawell/laguna/internal/payment/service"
	"github.com/seawell/laguna/internal/payment/webhook"
	"github.com/seawell/laguna/internal/providers/email"
)

const testWebhookSecret = "whsec_test_secret"

type nullEmailProvider struct{}

func (nullEmailProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (nullEmailProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]interface{}) error {
	return nil
}

var _ email.Provider = nullEmailProvider{}

type fixture struct {
	db         *gorm.DB
	gatewaySvc gatewaydomain.Service
	ingestSvc  paymentdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	gatewaySvc := gatewayservice.NewService(gatewayservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   gatewayrepo.Provide(),
		Cipher: gatewaycrypto.NewCipher("local-dev-secret"),
	})

	orderSvc := orderservice.NewService(orderservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  orderrepo.Provide(),
	})
	notifySvc := notificationservice.NewService(notificationservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     notificationrepo.Provide(),
		OrderSvc: orderSvc,
		Email:    nullEmailProvider{},
		Store:    setupStoreWatcher(t),
	})
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      paymentrepo.Provide(),
		OrderSvc:  orderSvc,
		NotifySvc: notifySvc,
	})

	ingestSvc := webhook.NewService(webhook.Params{
		Log:        zap.NewNop(),
		PaymentSvc: paymentSvc,
		GatewaySvc: gatewaySvc,
		Adapters:   adapters.NewRegistry(stripe.NewFactory()),
	})

	return &fixture{
		db:         db,
		gatewaySvc: gatewaySvc,
		ingestSvc:  ingestSvc,
	}
}

func (f *fixture) seedStripeConfig(t *testing.T) {
	t.Helper()
	err := f.gatewaySvc.Save(context.Background(), "stripe", map[string]any{
		"webhook_secret": testWebhookSecret,
	})
	if err != nil {
		t.Fatalf("seed stripe config: %v", err)
	}
}

func signedHeaders(payload []byte, secret string) http.Header {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return headers
}

func checkoutPayload(eventID string, sessionID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"created": %d,
		"data": {
			"object": {
				"id": %q,
				"client_reference_id": "user_42",
				"amount_total": 10000,
				"currency": "usd",
				"created": %d,
				"customer_details": {"email": "jamie@example.com", "name": "Jamie"}
			}
		}
	}`, eventID, time.Now().Unix(), sessionID, time.Now().Unix()))
}

func TestIngestWebhookUnknownProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedStripeConfig(t)

	payload := checkoutPayload("evt_1", "cs_1")
	err := f.ingestSvc.IngestWebhook(ctx, "adyen", payload, signedHeaders(payload, testWebhookSecret))
	if !errors.Is(err, paymentdomain.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestIngestWebhookNoActiveConfig(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	payload := checkoutPayload("evt_1", "cs_1")
	err := f.ingestSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload, testWebhookSecret))
	if !errors.Is(err, paymentdomain.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound without config, got %v", err)
	}
}

func TestIngestWebhookInvalidJSON(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedStripeConfig(t)

	payload := []byte(`{"id": "evt_1"`)
	err := f.ingestSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload, testWebhookSecret))
	if !errors.Is(err, paymentdomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestIngestWebhookBadSignature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedStripeConfig(t)

	payload := checkoutPayload("evt_1", "cs_1")
	err := f.ingestSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload, "whsec_wrong"))
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM webhook_events", 0)
}

func TestIngestWebhookUnhandledEventType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedStripeConfig(t)

	payload := []byte(`{"id": "evt_1", "type": "payment_intent.succeeded", "created": 1700000000, "data": {"object": {}}}`)
	err := f.ingestSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload, testWebhookSecret))
	if !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}

	// The delivery is still recorded in the ledger with an error outcome so
	// that a redelivery does not reprocess it.
	assertCount(t, f.db, "SELECT COUNT(1) FROM webhook_events", 1)

	var outcome string
	if err := f.db.Raw("SELECT outcome FROM webhook_events WHERE provider_event_id = ?", "evt_1").Scan(&outcome).Error; err != nil {
		t.Fatalf("scan outcome: %v", err)
	}
	if outcome != paymentdomain.OutcomeError {
		t.Fatalf("expected outcome %s, got %s", paymentdomain.OutcomeError, outcome)
	}

	err = f.ingestSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload, testWebhookSecret))
	if !errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected ErrEventAlreadyProcessed on redelivery, got %v", err)
	}
	assertCount(t, f.db, "SELECT COUNT(1) FROM webhook_events", 1)
	assertCount(t, f.db, "SELECT COUNT(1) FROM orders", 0)
}

func TestIngestWebhookRecordsFailedProcessing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedStripeConfig(t)

	// No API key is configured, so the line item fetch fails after the
	// delivery has been verified and recorded.
	payload := checkoutPayload("evt_2", "cs_2")
	err := f.ingestSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload, testWebhookSecret))
	if !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM webhook_events", 1)

	var outcome string
	if err := f.db.Raw("SELECT outcome FROM webhook_events LIMIT 1").Scan(&outcome).Error; err != nil {
		t.Fatalf("scan outcome: %v", err)
	}
	if outcome != paymentdomain.OutcomeError {
		t.Fatalf("expected outcome %s, got %s", paymentdomain.OutcomeError, outcome)
	}

	// A processed delivery is final no matter the outcome; the redelivery
	// is acknowledged without another processing attempt.
	err = f.ingestSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload, testWebhookSecret))
	if !errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected ErrEventAlreadyProcessed, got %v", err)
	}
	assertCount(t, f.db, "SELECT COUNT(1) FROM webhook_events", 1)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_webhook_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE payment_gateway_configs (
			id BIGINT PRIMARY KEY,
			provider TEXT NOT NULL,
			encrypted_config TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_payment_gateway_configs_provider ON payment_gateway_configs(provider)`,
		`CREATE TABLE webhook_events (
			id BIGINT PRIMARY KEY,
			provider TEXT NOT NULL,
			provider_event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			session_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			outcome TEXT NOT NULL DEFAULT '',
			processed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_webhook_events_provider_event ON webhook_events(provider, provider_event_id)`,
		`CREATE TABLE orders (
			id BIGINT PRIMARY KEY,
			session_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			product_id BIGINT NOT NULL,
			product_name TEXT NOT NULL DEFAULT '',
			quantity BIGINT NOT NULL,
			unit_amount BIGINT NOT NULL,
			total_amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			user_ref TEXT NOT NULL DEFAULT '',
			customer_email TEXT NOT NULL DEFAULT '',
			customer_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_orders_session_product ON orders(session_id, product_id)`,
		`CREATE TABLE notification_claims (
			id BIGINT PRIMARY KEY,
			session_id TEXT NOT NULL,
			purpose TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			sent_at TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX uq_notification_claims_session_purpose ON notification_claims(session_id, purpose)`,
	}

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}

func setupStoreWatcher(t *testing.T) *config.StoreWatcher {
	t.Helper()

	path := filepath.Join(t.TempDir(), "store.yml")
	contents := `store_name: Laguna Spa
currency: usd
operator_recipients:
  - owner@example.com
notification_delay_seconds: 0
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write store config: %v", err)
	}

	store, err := config.NewStoreWatcher(path, zap.NewNop())
	if err != nil {
		t.Fatalf("store watcher: %v", err)
	}
	return store
}

func assertCount(t *testing.T, db *gorm.DB, query string, expected int64) {
	t.Helper()

	var count int64
	if err := db.Raw(query).Scan(&count).Error; err != nil {
		t.Fatalf("query count: %v", err)
	}
	if count != expected {
		t.Fatalf("expected %d, got %d", expected, count)
	}
}
