package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord is the idempotency ledger row for one delivered webhook event.
// The unique (provider, provider_event_id) index makes the insert an atomic
// claim under concurrent duplicate deliveries.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	SessionID       string         `json:"session_id" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	Outcome         string         `json:"outcome" gorm:"type:text;not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
	CreatedAt       time.Time      `json:"created_at" gorm:"not null"`
}

func (EventRecord) TableName() string { return "webhook_events" }

const (
	EventTypeCheckoutCompleted = "checkout_completed"
)

// Terminal outcomes recorded on the ledger row. An event that reached either
// outcome is never reprocessed.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// CheckoutEvent is the canonical paid-checkout event parsed by adapters.
type CheckoutEvent struct {
	Provider        string
	ProviderEventID string
	Type            string
	SessionID       string
	UserRef         string
	CustomerEmail   string
	CustomerName    string
	AmountTotal     int64
	Currency        string
	OccurredAt      time.Time
	RawPayload      []byte

	// Lines is populated by session retrieval after parsing; the webhook
	// payload itself does not carry the expanded line items.
	Lines []LineItem
}

// LineItem is one purchased product/quantity/price tuple within a session.
type LineItem struct {
	ProductID  string
	Name       string
	Quantity   int64
	UnitAmount int64
	Amount     int64
}
