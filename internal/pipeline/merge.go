package pipeline

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/tenderwatch/tenderwatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrVersionConflict is returned when a concurrent append wins twice in a row
// for the same tender. The caller surfaces it as a retryable 409.
var ErrVersionConflict = errors.New("version conflict")

// volatileFields are upstream keys that change between fetches without the
// record itself changing. They are ignored when comparing payloads.
var volatileFields = map[string]struct{}{
	"fetched_at":  {},
	"fetch_time":  {},
	"page":        {},
	"total":       {},
	"total_pages": {},
}

// MergeResult reports what Merge did with one record.
type MergeResult struct {
	Tender      models.Tender `json:"tender"`
	IsNew       bool          `json:"isNew"`
	NewVersions int           `json:"newVersions"`
}

// Merge classifies a record against the stored tenders and either creates a
// new tender at version 1, appends a new version, or discards an exact
// duplicate. The (tender_id, version) unique index is the sole serialization
// point: a losing concurrent writer retries once against the refreshed latest
// version before giving up with ErrVersionConflict.
func Merge(db *gorm.DB, rec *RawRecord) (MergeResult, error) {
	result, err := mergeOnce(db, rec)
	if isDuplicateKey(err) {
		result, err = mergeOnce(db, rec)
		if isDuplicateKey(err) {
			return result, ErrVersionConflict
		}
	}
	return result, err
}

func mergeOnce(db *gorm.DB, rec *RawRecord) (MergeResult, error) {
	var result MergeResult

	key, err := IdentityKey(rec.UnitID.String(), rec.JobNumber.String())
	if err != nil {
		return result, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		n := Normalize(rec)

		// Lock the tender row for the duration of the compare-and-append.
		// SQLite serializes writers on its own and rejects FOR UPDATE.
		query := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)})
		if tx.Dialector.Name() != "sqlite" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var tender models.Tender
		err := query.Where("tender_id = ?", key).First(&tender).Error

		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			tags, err := json.Marshal(n.Tags)
			if err != nil {
				return err
			}

			tender = models.Tender{
				TenderID:  key,
				UnitID:    strings.TrimSpace(rec.UnitID.String()),
				JobNumber: strings.TrimSpace(rec.JobNumber.String()),
				Title:     n.Title,
				Type:      n.Type,
				Date:      n.Date,
				Tags:      tags,
			}
			if err := tx.Create(&tender).Error; err != nil {
				return err
			}

			version := models.TenderVersion{
				TenderID: key,
				Version:  1,
				Date:     n.Date,
				Type:     n.Type,
				Data:     []byte(rec.Raw),
			}
			if err := tx.Create(&version).Error; err != nil {
				return err
			}

			result = MergeResult{Tender: tender, IsNew: true, NewVersions: 1}
			return nil
		}

		// Known identity: compare against the latest stored version.
		var latest models.TenderVersion
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Where("tender_id = ?", key).
			Order("version DESC").
			First(&latest).Error; err != nil {
			return err
		}

		if semanticEqual(latest.Data, rec.Raw) {
			result = MergeResult{Tender: tender}
			return nil
		}

		version := models.TenderVersion{
			TenderID: key,
			Version:  latest.Version + 1,
			Date:     n.Date,
			Type:     n.Type,
			Data:     []byte(rec.Raw),
		}
		if err := tx.Create(&version).Error; err != nil {
			return err
		}

		// Refresh the denormalized display fields from the newest observation.
		updates := map[string]interface{}{"title": n.Title, "type": n.Type}
		if n.Date != 0 {
			updates["date"] = n.Date
		}
		if err := tx.Model(&tender).Updates(updates).Error; err != nil {
			return err
		}

		result = MergeResult{Tender: tender, NewVersions: 1}
		return nil
	})

	return result, err
}

// semanticEqual compares two raw payloads field by field, ignoring volatile
// keys. Byte-level differences in key order or whitespace do not count.
func semanticEqual(a, b []byte) bool {
	return reflect.DeepEqual(strippedMap(a), strippedMap(b))
}

func strippedMap(data []byte) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	for key := range volatileFields {
		delete(m, key)
	}
	return m
}

// isDuplicateKey detects a uniqueness violation on (tender_id, version) or
// the tender primary key across the supported dialects.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key")
}
