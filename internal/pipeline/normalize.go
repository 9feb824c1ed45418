package pipeline

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/tenderwatch/tenderwatch/internal/types"
)

// UntitledFallback is used when no title is present at any known location.
const UntitledFallback = "Untitled"

// Brief is the optional nested descriptor the upstream API attaches to a record.
type Brief struct {
	Title     string                 `json:"title"`
	Type      string                 `json:"type"`
	Category  string                 `json:"category"`
	Companies types.FlexList[string] `json:"companies"`
}

// RawRecord is one record as returned by the upstream tender API. Field
// presence and JSON types vary across endpoints, so scalars use the flexible
// types and the full payload is retained for version snapshots.
type RawRecord struct {
	UnitID    types.FlexString `json:"unit_id"`
	JobNumber types.FlexString `json:"job_number"`
	Date      types.FlexString `json:"date"`
	Title     types.FlexString `json:"title"`
	Type      types.FlexString `json:"type"`
	Brief     *Brief           `json:"brief"`

	// Raw is the undecoded payload as received, kept for TenderVersion.Data
	// and duplicate comparison.
	Raw json.RawMessage `json:"-"`
}

// ParseRecord decodes one raw upstream record and retains the original bytes.
// Decode failures degrade to an empty record; identification failures are
// reported later by Resolve, not here.
func ParseRecord(data json.RawMessage) *RawRecord {
	rec := &RawRecord{}
	_ = json.Unmarshal(data, rec)
	rec.Raw = append(json.RawMessage(nil), data...)
	return rec
}

// Normalized holds the canonical attributes derived from one raw record,
// sufficient to build or update a Tender.
type Normalized struct {
	Title string
	Type  string
	Date  int64
	Tags  []string
}

// Normalize maps a raw record to the canonical schema. It is pure and never
// fails: absent or malformed fields degrade to documented defaults.
func Normalize(rec *RawRecord) Normalized {
	n := Normalized{
		Title: UntitledFallback,
		Date:  NormalizeDate(rec.Date.String()),
	}

	if rec.Brief != nil && strings.TrimSpace(rec.Brief.Title) != "" {
		n.Title = strings.TrimSpace(rec.Brief.Title)
	} else if strings.TrimSpace(rec.Title.String()) != "" {
		n.Title = strings.TrimSpace(rec.Title.String())
	}

	if rec.Brief != nil && rec.Brief.Type != "" {
		n.Type = rec.Brief.Type
	} else {
		n.Type = rec.Type.String()
	}

	if rec.Brief != nil {
		if rec.Brief.Category != "" {
			n.Tags = append(n.Tags, rec.Brief.Category)
		}
		for _, company := range rec.Brief.Companies.Slice() {
			if company != "" {
				n.Tags = append(n.Tags, company)
			}
		}
	}

	return n
}

// NormalizeDate parses the upstream date field into unix seconds. The API
// emits compact yyyymmdd strings, occasionally RFC 3339 or dashed dates, and
// sometimes a bare unix timestamp. Unparsable or missing input yields 0.
func NormalizeDate(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	for _, layout := range []string{"20060102", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix()
		}
	}

	// Bare unix timestamp, seconds or milliseconds
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		if n > 1e12 {
			n /= 1000
		}
		return n
	}

	return 0
}
