package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Order is the permanent purchase record for one line item of a paid
// checkout session. Rows are created once and never mutated or deleted.
// The unique (session_id, product_id) pair makes re-materialization under
// duplicate webhook delivery a no-op.
type Order struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	SessionID     string       `json:"session_id" gorm:"type:text;not null"`
	Provider      string       `json:"provider" gorm:"type:text;not null"`
	ProductID     snowflake.ID `json:"product_id" gorm:"not null"`
	ProductName   string       `json:"product_name" gorm:"type:text"`
	Quantity      int64        `json:"quantity" gorm:"not null"`
	UnitAmount    int64        `json:"unit_amount" gorm:"not null"`
	TotalAmount   int64        `json:"total_amount" gorm:"not null"`
	Currency      string       `json:"currency" gorm:"type:text;not null"`
	UserRef       string       `json:"user_ref" gorm:"type:text"`
	CustomerEmail string       `json:"customer_email" gorm:"type:text"`
	CustomerName  string       `json:"customer_name" gorm:"type:text"`
	Status        string       `json:"status" gorm:"type:text;not null"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

const StatusPaid = "paid"

// Repository persists and queries order rows.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) (bool, error)
	CountBySession(ctx context.Context, db *gorm.DB, sessionID string) (int64, error)
	ListBySession(ctx context.Context, db *gorm.DB, sessionID string) ([]*Order, error)
	ListByEmail(ctx context.Context, db *gorm.DB, email string, limit int) ([]*Order, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
}
