package services

import (
	"errors"
	"fmt"

	"github.com/tenderwatch/tenderwatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SetArchived sets the archived flag on the user's view of a tender,
// creating the TenderView row on first interaction.
func SetArchived(db *gorm.DB, userID, tenderID string, value bool) (*models.TenderView, error) {
	return upsertView(db, userID, tenderID, "is_archived", value)
}

// SetHighlighted sets the highlighted flag on the user's view of a tender.
func SetHighlighted(db *gorm.DB, userID, tenderID string, value bool) (*models.TenderView, error) {
	return upsertView(db, userID, tenderID, "is_highlighted", value)
}

// upsertView writes one view flag for (userID, tenderID). The referenced
// tender must exist; ownership is enforced by the composite key, so no user
// can reach another user's row.
func upsertView(db *gorm.DB, userID, tenderID, column string, value bool) (*models.TenderView, error) {
	var view models.TenderView

	err := db.Transaction(func(tx *gorm.DB) error {
		var tender models.Tender
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Select("tender_id").
			Where("tender_id = ?", tenderID).
			First(&tender).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("not found")
			}
			return err
		}

		view = models.TenderView{UserID: userID, TenderID: tenderID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "tender_id"}},
			DoNothing: true,
		}).Create(&view).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.TenderView{}).
			Where("user_id = ? AND tender_id = ?", userID, tenderID).
			Update(column, value).Error; err != nil {
			return err
		}

		return tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Where("user_id = ? AND tender_id = ?", userID, tenderID).
			First(&view).Error
	})
	if err != nil {
		return nil, err
	}

	return &view, nil
}
