package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenderwatch/tenderwatch/internal/models"
)

func mergeResult(id string, isNew bool, newVersions int) MergeResult {
	return MergeResult{
		Tender:      models.Tender{TenderID: id, Title: "T " + id},
		IsNew:       isNew,
		NewVersions: newVersions,
	}
}

func TestAggregateMergesKeywordSets(t *testing.T) {
	batches := []KeywordResult{
		{Keyword: "road", Results: []MergeResult{mergeResult("U1-J1", true, 1), mergeResult("U2-J2", false, 0)}},
		{Keyword: "bridge", Results: []MergeResult{mergeResult("U1-J1", false, 0)}},
	}

	combined := Aggregate(batches)

	require.Len(t, combined, 2)
	assert.Equal(t, "U1-J1", combined[0].Tender.TenderID)
	assert.Equal(t, []string{"bridge", "road"}, combined[0].Keywords)
	assert.Equal(t, []string{"road"}, combined[1].Keywords)
}

func TestAggregateUnionsNewFlags(t *testing.T) {
	batches := []KeywordResult{
		{Keyword: "road", Results: []MergeResult{mergeResult("U1-J1", false, 0)}},
		{Keyword: "bridge", Results: []MergeResult{mergeResult("U1-J1", true, 1)}},
	}

	combined := Aggregate(batches)

	require.Len(t, combined, 1)
	assert.True(t, combined[0].IsNew)
	assert.Equal(t, 1, combined[0].NewVersions)
}

func TestAggregateDuplicateKeywordOccurrence(t *testing.T) {
	// The same tender can appear twice in one keyword's pages.
	batches := []KeywordResult{
		{Keyword: "road", Results: []MergeResult{mergeResult("U1-J1", true, 1), mergeResult("U1-J1", false, 0)}},
	}

	combined := Aggregate(batches)

	require.Len(t, combined, 1)
	assert.Equal(t, []string{"road"}, combined[0].Keywords)
	assert.True(t, combined[0].IsNew)
}

func TestAggregateEmptyInput(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
	assert.Empty(t, Aggregate([]KeywordResult{{Keyword: "road"}}))
}
