package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tenderwatch/tenderwatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Payment provider webhook event types
const (
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionRenewed   = "subscription.renewed"
	EventSubscriptionCanceled  = "subscription.canceled"
	EventSubscriptionExpired   = "subscription.expired"
)

// ErrBadSignature is returned when a webhook body fails HMAC verification.
var ErrBadSignature = errors.New("invalid webhook signature")

// WebhookEvent is the payload the payment provider posts on subscription
// lifecycle transitions.
type WebhookEvent struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	Plan      string `json:"plan"`
	Reference string `json:"reference"`
	PeriodEnd int64  `json:"period_end"`
}

// VerifySignature checks the hex HMAC-SHA256 signature of the raw webhook
// body against the shared secret.
func VerifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleWebhook verifies and applies one payment provider event, upserting
// the user's Subscription row. The provider owns the lifecycle; this is a
// pure projection of its latest event.
func HandleWebhook(db *gorm.DB, body []byte, signature, secret string) (*models.Subscription, error) {
	if !VerifySignature(body, signature, secret) {
		return nil, ErrBadSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("malformed webhook body: %w", err)
	}
	if event.UserID == "" {
		return nil, fmt.Errorf("webhook event missing user_id")
	}

	sub := models.Subscription{
		UserID:      event.UserID,
		ProviderRef: event.Reference,
	}

	switch event.Type {
	case EventSubscriptionActivated, EventSubscriptionRenewed:
		sub.Tier = tierForPlan(event.Plan)
		sub.Status = models.SubStatusActive
		sub.CurrentPeriodEnd = time.Unix(event.PeriodEnd, 0)
	case EventSubscriptionCanceled:
		sub.Tier = models.TierFree
		sub.Status = models.SubStatusCanceled
	case EventSubscriptionExpired:
		sub.Tier = models.TierFree
		sub.Status = models.SubStatusExpired
	default:
		return nil, fmt.Errorf("unknown webhook event type: %s", event.Type)
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"tier", "status", "provider_ref", "current_period_end", "updated_at",
		}),
	}).Create(&sub).Error
	if err != nil {
		return nil, err
	}

	log.Printf("Subscription %s for user %s: tier=%s status=%s", event.Type, event.UserID, sub.Tier, sub.Status)

	return &sub, nil
}

// GetTier resolves the user's effective tier. No row, canceled status, or a
// lapsed period all read as free.
func GetTier(db *gorm.DB, userID string) string {
	var sub models.Subscription
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("user_id = ?", userID).
		First(&sub).Error
	if err != nil {
		return models.TierFree
	}

	if sub.Status != models.SubStatusActive {
		return models.TierFree
	}
	if !sub.CurrentPeriodEnd.IsZero() && sub.CurrentPeriodEnd.Before(time.Now()) {
		return models.TierFree
	}

	return sub.Tier
}

func tierForPlan(plan string) string {
	if plan == models.TierPro {
		return models.TierPro
	}
	return models.TierFree
}
