package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Claim guards one notification purpose per checkout session. The unique
// (session_id, purpose) index makes the insert an atomic claim, so the
// customer and operator emails for a session are dispatched at most once
// even under concurrent duplicate event deliveries.
type Claim struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	SessionID string       `json:"session_id" gorm:"type:text;not null"`
	Purpose   string       `json:"purpose" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	SentAt    *time.Time   `json:"sent_at"`
}

func (Claim) TableName() string { return "notification_claims" }

const (
	PurposePaidSessionEmails = "paid_session_emails"
)

type Repository interface {
	InsertClaim(ctx context.Context, db *gorm.DB, claim *Claim) (bool, error)
	MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}
