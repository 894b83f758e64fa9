package domain

import (
	"time"
)

// Product is a bookable spa treatment or retail item.
type Product struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	CategoryID      int64     `json:"category_id" gorm:"index"`
	Name            string    `json:"name" gorm:"type:text;not null"`
	Slug            string    `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Description     string    `json:"description" gorm:"type:text"`
	PriceAmount     int64     `json:"price_amount" gorm:"not null"`
	Currency        string    `json:"currency" gorm:"type:text;not null"`
	DurationMinutes int       `json:"duration_minutes"`
	ImageURL        string    `json:"image_url" gorm:"type:text"`
	Active          bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }
