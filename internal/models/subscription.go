package models

import (
	"time"
)

// Subscription tiers
const (
	TierFree = "free"
	TierPro  = "pro"
)

// Subscription statuses, driven by payment provider webhook events
const (
	SubStatusActive   = "active"
	SubStatusCanceled = "canceled"
	SubStatusExpired  = "expired"
)

// Subscription mirrors the coarse billing state the payment provider reports
// for a user. The provider owns the subscription lifecycle; this row is only
// a cache of the latest webhook event.
type Subscription struct {
	UserID           string `gorm:"type:char(36);primaryKey"`
	Tier             string `gorm:"size:16;not null;default:free"`
	Status           string `gorm:"size:16;not null;default:active"`
	ProviderRef      string `gorm:"size:128"`
	CurrentPeriodEnd time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName overrides the table name for Subscription
func (Subscription) TableName() string {
	return "subscriptions"
}
