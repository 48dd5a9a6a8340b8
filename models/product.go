package models

import "time"

// Product is a payment link created during Stripe Connect onboarding.
// ProtectedURL is the real resource; when nil the buyer is redirected
// straight to DestinationURL after payment and no access token is minted.
type Product struct {
	ID              string `gorm:"size:32;primaryKey"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StripeAccountID string  `gorm:"size:64;not null;index"`
	Name            string  `gorm:"size:255;not null"`
	PriceInCents    int64   `gorm:"not null"` // smallest currency unit, minimum 200
	DestinationURL  string  `gorm:"size:2048;not null"`
	ProtectedURL    *string `gorm:"size:2048"`
	CreatorEmail    *string `gorm:"size:255"`
	IsActive        bool    `gorm:"default:true;index"`
}
