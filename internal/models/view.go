package models

import (
	"time"
)

// TenderView holds one user's display flags for one tender. At most one row
// per (user_id, tender_id); the tender itself is shared and never mutated
// through this overlay.
type TenderView struct {
	ViewID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID        string `gorm:"type:char(36);not null;index:idx_user_tender,unique"`
	TenderID      string `gorm:"size:191;not null;index:idx_user_tender,unique"`
	IsArchived    bool   `gorm:"not null;default:false"`
	IsHighlighted bool   `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Keyword is one user's subscription term, stored in canonical form
// (trimmed, lowercased, inner whitespace collapsed).
type Keyword struct {
	KeywordID uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"type:char(36);not null;index:idx_user_keyword,unique"`
	Text      string `gorm:"size:255;not null;index:idx_user_keyword,unique"`
	CreatedAt time.Time
}

// TableName overrides the table name for TenderView
func (TenderView) TableName() string {
	return "tender_views"
}

// TableName overrides the table name for Keyword
func (Keyword) TableName() string {
	return "keywords"
}
