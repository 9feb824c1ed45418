package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tenderwatch/tenderwatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

// ErrUnidentifiableRecord marks a record missing unit_id or job_number. Such
// records are skipped and logged; they never fail the batch.
var ErrUnidentifiableRecord = errors.New("unidentifiable record")

// Classification is the resolver verdict for one incoming record.
// Exact-duplicate detection needs the raw payload and happens in Merge.
type Classification int

const (
	// ClassNew means no tender exists for the record's identity key.
	ClassNew Classification = iota
	// ClassPossibleUpdate means a tender exists; the merger must compare
	// the payload against its latest version.
	ClassPossibleUpdate
)

// IdentityKey derives the stable tender identifier from the composite
// (unit_id, job_number) key. The same inputs always produce the same key.
func IdentityKey(unitID, jobNumber string) (string, error) {
	unitID = strings.TrimSpace(unitID)
	jobNumber = strings.TrimSpace(jobNumber)
	if unitID == "" || jobNumber == "" {
		return "", ErrUnidentifiableRecord
	}
	return fmt.Sprintf("%s-%s", unitID, jobNumber), nil
}

// Resolve classifies a record against the known tender identities. It is
// read-only; callers needing a write-consistent verdict run the same lookup
// inside the Merge transaction.
func Resolve(db *gorm.DB, rec *RawRecord) (Classification, *models.Tender, error) {
	key, err := IdentityKey(rec.UnitID.String(), rec.JobNumber.String())
	if err != nil {
		return ClassNew, nil, err
	}
	return resolveKey(db, key)
}

// resolveKey looks up an existing tender by identity key.
func resolveKey(db *gorm.DB, key string) (Classification, *models.Tender, error) {
	query := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)})

	// Index hints are MySQL syntax; skip them on other dialects.
	if db.Dialector.Name() == "mysql" {
		query = query.Clauses(hints.UseIndex("PRIMARY"))
	}

	var tender models.Tender
	err := query.Where("tender_id = ?", key).First(&tender).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ClassNew, nil, nil
		}
		return ClassNew, nil, err
	}

	return ClassPossibleUpdate, &tender, nil
}
