package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/notification/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertClaim(ctx context.Context, db *gorm.DB, claim *domain.Claim) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO notification_claims (id, session_id, purpose, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id, purpose) DO NOTHING`,
		claim.ID,
		claim.SessionID,
		claim.Purpose,
		claim.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notification_claims SET sent_at = ? WHERE id = ?`,
		at,
		id,
	).Error
}
