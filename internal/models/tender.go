package models

import (
	"time"

	"gorm.io/datatypes"
)

// Tender is the canonical record for one procurement notice. Exactly one row
// exists per (unit_id, job_number) pair; TenderID is derived deterministically
// from that pair so repeated upserts are idempotent.
type Tender struct {
	TenderID  string `gorm:"primaryKey;size:191"`
	UnitID    string `gorm:"size:64;not null;index:idx_unit_job,unique"`
	JobNumber string `gorm:"size:64;not null;index:idx_unit_job,unique"`
	Title     string `gorm:"size:512;not null"`
	Type      string `gorm:"size:128"`
	Date      int64  `gorm:"not null;default:0"`
	Tags      datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Versions  []TenderVersion `gorm:"foreignKey:TenderID;constraint:OnDelete:CASCADE"`
}

// TenderVersion is an immutable snapshot of a tender's raw payload at one
// observation. Version numbers are gap-free per tender; the composite unique
// index is the serialization point for concurrent appends.
type TenderVersion struct {
	VersionID uint64 `gorm:"primaryKey;autoIncrement"`
	TenderID  string `gorm:"size:191;not null;index:idx_tender_version,unique"`
	Version   int    `gorm:"not null;index:idx_tender_version,unique"`
	Date      int64  `gorm:"not null;default:0"`
	Type      string `gorm:"size:128"`
	Data      datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time
}

// TableName overrides the table name for Tender
func (Tender) TableName() string {
	return "tenders"
}

// TableName overrides the table name for TenderVersion
func (TenderVersion) TableName() string {
	return "tender_versions"
}
