package pipeline

import (
	"sort"

	"github.com/tenderwatch/tenderwatch/internal/models"
)

// KeywordResult is one keyword's merged result list, tagged with the
// keyword that produced it.
type KeywordResult struct {
	Keyword string
	Results []MergeResult
}

// AggregatedTender is one entry of the combined list: a tender, the set of
// keywords that matched it, and the union of the per-keyword merge outcomes.
type AggregatedTender struct {
	Tender      models.Tender `json:"tender"`
	Keywords    []string      `json:"keywords"`
	IsNew       bool          `json:"isNew"`
	NewVersions int           `json:"newVersions"`
}

// Aggregate merges per-keyword result lists into a single list with at most
// one entry per tender identity. An entry matched by N keywords carries all N
// keywords instead of appearing N times; IsNew and NewVersions reflect the
// union of the contributing occurrences. First-seen order is preserved,
// keyword sets are sorted for stable output.
func Aggregate(batches []KeywordResult) []AggregatedTender {
	index := make(map[string]int)
	var combined []AggregatedTender

	for _, batch := range batches {
		for _, res := range batch.Results {
			id := res.Tender.TenderID

			pos, seen := index[id]
			if !seen {
				index[id] = len(combined)
				combined = append(combined, AggregatedTender{
					Tender:      res.Tender,
					Keywords:    []string{batch.Keyword},
					IsNew:       res.IsNew,
					NewVersions: res.NewVersions,
				})
				continue
			}

			entry := &combined[pos]
			if !containsKeyword(entry.Keywords, batch.Keyword) {
				entry.Keywords = append(entry.Keywords, batch.Keyword)
			}
			entry.IsNew = entry.IsNew || res.IsNew
			if res.NewVersions > entry.NewVersions {
				entry.NewVersions = res.NewVersions
			}
		}
	}

	for i := range combined {
		sort.Strings(combined[i].Keywords)
	}

	return combined
}

func containsKeyword(keywords []string, keyword string) bool {
	for _, k := range keywords {
		if k == keyword {
			return true
		}
	}
	return false
}
