package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenderwatch/tenderwatch/internal/models"
)

func TestOverlayDefaultsToFalse(t *testing.T) {
	db := setupTestDB(t)

	res, err := Merge(db, ParseRecord(json.RawMessage(
		`{"unit_id":"U1","job_number":"J1","brief":{"title":"T"}}`)))
	require.NoError(t, err)

	decorated, err := Overlay(db, "user-a", []AggregatedTender{{Tender: res.Tender, Keywords: []string{"road"}}})
	require.NoError(t, err)

	require.Len(t, decorated, 1)
	assert.False(t, decorated[0].IsArchived)
	assert.False(t, decorated[0].IsHighlighted)
}

func TestOverlayIsPerUser(t *testing.T) {
	db := setupTestDB(t)

	res, err := Merge(db, ParseRecord(json.RawMessage(
		`{"unit_id":"U1","job_number":"J1","brief":{"title":"T"}}`)))
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.TenderView{
		UserID:     "user-a",
		TenderID:   res.Tender.TenderID,
		IsArchived: true,
	}).Error)

	entries := []AggregatedTender{{Tender: res.Tender, Keywords: []string{"road"}}}

	forA, err := Overlay(db, "user-a", entries)
	require.NoError(t, err)
	assert.True(t, forA[0].IsArchived)

	// user-a's archive flag must not leak into user-b's view
	forB, err := Overlay(db, "user-b", entries)
	require.NoError(t, err)
	assert.False(t, forB[0].IsArchived)
}

func TestOverlayEmptyList(t *testing.T) {
	db := setupTestDB(t)

	decorated, err := Overlay(db, "user-a", nil)
	require.NoError(t, err)
	assert.Empty(t, decorated)
}
