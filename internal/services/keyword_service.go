package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tenderwatch/tenderwatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrKeywordLimit is returned when adding a keyword would exceed the user's
// tier allowance.
var ErrKeywordLimit = errors.New("keyword limit reached")

// NormalizeKeyword produces the canonical form under which subscriptions are
// stored and compared: trimmed, lowercased, inner whitespace collapsed.
func NormalizeKeyword(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// AddKeyword subscribes the user to a keyword. An already-subscribed keyword
// (after normalization) is a no-op returning the existing row. The count
// check and insert run in one transaction so the tier limit holds under
// concurrent adds.
func AddKeyword(db *gorm.DB, userID, text string, limit int) (*models.Keyword, error) {
	canonical := NormalizeKeyword(text)
	if canonical == "" {
		return nil, fmt.Errorf("empty keyword")
	}

	var keyword models.Keyword

	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Where("user_id = ? AND text = ?", userID, canonical).
			First(&keyword).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var count int64
		if err := tx.Model(&models.Keyword{}).
			Where("user_id = ?", userID).
			Count(&count).Error; err != nil {
			return err
		}
		if limit > 0 && count >= int64(limit) {
			return ErrKeywordLimit
		}

		keyword = models.Keyword{UserID: userID, Text: canonical}
		return tx.Create(&keyword).Error
	})
	if err != nil {
		return nil, err
	}

	return &keyword, nil
}

// ListKeywords returns the user's subscriptions in creation order.
func ListKeywords(db *gorm.DB, userID string) ([]models.Keyword, error) {
	var keywords []models.Keyword
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("user_id = ?", userID).
		Order("keyword_id ASC").
		Find(&keywords).Error
	return keywords, err
}

// DeleteKeyword removes one of the user's subscriptions. Shared tender data
// is never touched. Returns "not found" when the keyword is not the user's.
func DeleteKeyword(db *gorm.DB, userID string, keywordID uint64) error {
	result := db.Where("user_id = ? AND keyword_id = ?", userID, keywordID).
		Delete(&models.Keyword{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("not found")
	}
	return nil
}

// KeywordTexts extracts the raw text list used for a search pass.
func KeywordTexts(keywords []models.Keyword) []string {
	texts := make([]string, 0, len(keywords))
	for _, k := range keywords {
		texts = append(texts, k.Text)
	}
	return texts
}
