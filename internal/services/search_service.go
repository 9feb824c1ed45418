package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/tenderwatch/tenderwatch/internal/pipeline"
	"gorm.io/gorm"
)

// KeywordOutcome reports how one keyword's fetch went. A failed keyword never
// discards results that other keywords fetched successfully.
type KeywordOutcome struct {
	Keyword string `json:"keyword"`
	Error   string `json:"error,omitempty"`
	Fetched int    `json:"fetched"`
	Skipped int    `json:"skipped"`
}

// SearchResult is the full outcome of one search pass for a user.
type SearchResult struct {
	Tenders  []pipeline.DecoratedTender `json:"tenders"`
	Outcomes []KeywordOutcome           `json:"keywords"`
}

// Searcher is the upstream surface RunSearch needs; satisfied by
// *upstream.Client and by test fakes.
type Searcher interface {
	Search(ctx context.Context, keyword string) ([]json.RawMessage, error)
}

// RunSearch fans out one upstream fetch per keyword, merges every fetched
// record through the dedup/version pipeline, aggregates across keywords, and
// overlays the user's view flags. Each keyword fails independently; partial
// results are returned alongside per-keyword outcomes.
func RunSearch(ctx context.Context, db *gorm.DB, client Searcher, userID string, keywords []string) (*SearchResult, error) {
	type fetched struct {
		keyword string
		records []json.RawMessage
		err     error
	}

	results := make([]fetched, len(keywords))

	var wg sync.WaitGroup
	for i, keyword := range keywords {
		wg.Add(1)
		go func(i int, keyword string) {
			defer wg.Done()
			records, err := client.Search(ctx, keyword)
			results[i] = fetched{keyword: keyword, records: records, err: err}
		}(i, keyword)
	}
	wg.Wait()

	var batches []pipeline.KeywordResult
	outcomes := make([]KeywordOutcome, 0, len(keywords))

	for _, f := range results {
		outcome := KeywordOutcome{Keyword: f.keyword}

		if f.err != nil {
			log.Printf("Keyword %q fetch failed: %v", f.keyword, f.err)
			outcome.Error = f.err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}

		batch := pipeline.KeywordResult{Keyword: f.keyword}
		for _, raw := range f.records {
			rec := pipeline.ParseRecord(raw)

			merged, err := pipeline.Merge(db, rec)
			if err != nil {
				if errors.Is(err, pipeline.ErrUnidentifiableRecord) {
					log.Printf("Keyword %q: skipping unidentifiable record", f.keyword)
					outcome.Skipped++
					continue
				}
				return nil, err
			}

			batch.Results = append(batch.Results, merged)
			outcome.Fetched++
		}

		batches = append(batches, batch)
		outcomes = append(outcomes, outcome)
	}

	aggregated := pipeline.Aggregate(batches)

	decorated, err := pipeline.Overlay(db, userID, aggregated)
	if err != nil {
		return nil, err
	}

	return &SearchResult{Tenders: decorated, Outcomes: outcomes}, nil
}
