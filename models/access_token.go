package models

import "time"

// AccessToken grants time-bounded access to a product's protected URL after a
// completed payment. The unique index on PaymentIntentID is the idempotency
// boundary for minting; rows are never deleted, expired tokens just stop
// redeeming.
type AccessToken struct {
	ID              uint `gorm:"primaryKey"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProductID       string    `gorm:"size:32;not null;index"`
	Product         Product   `gorm:"foreignKey:ProductID;references:ID"`
	PaymentIntentID string    `gorm:"size:128;not null;uniqueIndex"`
	Token           string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt       time.Time `gorm:"index;not null"`
	UsedAt          *time.Time
}
