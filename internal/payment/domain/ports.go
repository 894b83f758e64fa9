package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// AdapterConfig carries the decrypted provider configuration handed to a
// factory when instantiating an adapter.
type AdapterConfig struct {
	Provider string
	Config   map[string]any
}

// PaymentAdapter authenticates, parses and enriches gateway webhook events.
type PaymentAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*CheckoutEvent, error)

	// ListLineItems retrieves the session's line items with product
	// metadata expanded. The webhook payload alone does not include them.
	ListLineItems(ctx context.Context, sessionID string) ([]LineItem, error)
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}

// Repository persists the webhook event ledger.
type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time, outcome string) error
}

// Service ingests raw webhook deliveries.
type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}
