package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/tenderwatch/tenderwatch/internal/models"
	"github.com/tenderwatch/tenderwatch/internal/pipeline"
	"gorm.io/gorm"
)

// CreateTestTender routes a raw upstream payload through the merge pipeline
// and returns the resulting tender ID.
func CreateTestTender(t *testing.T, db *gorm.DB, unitID, jobNumber, title string) string {
	raw := fmt.Sprintf(`{"unit_id":%q,"job_number":%q,"brief":{"title":%q}}`,
		unitID, jobNumber, title)

	merged, err := pipeline.Merge(db, pipeline.ParseRecord(json.RawMessage(raw)))
	if err != nil {
		t.Fatalf("Failed to create tender: %v", err)
	}
	return merged.Tender.TenderID
}

// CreateTestKeyword subscribes a user to a keyword directly, bypassing tier checks
func CreateTestKeyword(t *testing.T, db *gorm.DB, userID, text string) *models.Keyword {
	keyword := models.Keyword{UserID: userID, Text: text}
	if err := db.Create(&keyword).Error; err != nil {
		t.Fatalf("Failed to create keyword: %v", err)
	}
	return &keyword
}

// ActivateProSubscription marks a user as an active pro subscriber
func ActivateProSubscription(t *testing.T, db *gorm.DB, userID string) {
	sub := models.Subscription{
		UserID:           userID,
		Tier:             models.TierPro,
		Status:           models.SubStatusActive,
		CurrentPeriodEnd: time.Now().Add(30 * 24 * time.Hour),
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("Failed to create subscription: %v", err)
	}
}

// SignWebhookBody computes the hex HMAC-SHA256 signature a payment provider
// would attach to a webhook body
func SignWebhookBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// CountVersions returns the number of stored versions for a tender
func CountVersions(t *testing.T, db *gorm.DB, tenderID string) int64 {
	var count int64
	if err := db.Model(&models.TenderVersion{}).
		Where("tender_id = ?", tenderID).
		Count(&count).Error; err != nil {
		t.Fatalf("Failed to count versions: %v", err)
	}
	return count
}
