package pipeline

import (
	"github.com/tenderwatch/tenderwatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DecoratedTender is an aggregated entry overlaid with one user's view flags.
type DecoratedTender struct {
	AggregatedTender
	IsArchived    bool `json:"isArchived"`
	IsHighlighted bool `json:"isHighlighted"`
}

// Overlay decorates the aggregated list with the requesting user's archived
// and highlighted flags. Missing TenderView rows default to false. The shared
// tender data is never touched; this is a read-only per-user overlay.
func Overlay(db *gorm.DB, userID string, entries []AggregatedTender) ([]DecoratedTender, error) {
	decorated := make([]DecoratedTender, 0, len(entries))
	if len(entries) == 0 {
		return decorated, nil
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.Tender.TenderID)
	}

	var views []models.TenderView
	if err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("user_id = ? AND tender_id IN ?", userID, ids).
		Find(&views).Error; err != nil {
		return nil, err
	}

	byTender := make(map[string]models.TenderView, len(views))
	for _, view := range views {
		byTender[view.TenderID] = view
	}

	for _, entry := range entries {
		d := DecoratedTender{AggregatedTender: entry}
		if view, ok := byTender[entry.Tender.TenderID]; ok {
			d.IsArchived = view.IsArchived
			d.IsHighlighted = view.IsHighlighted
		}
		decorated = append(decorated, d)
	}

	return decorated, nil
}
