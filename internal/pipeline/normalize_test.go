package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordRetainsRaw(t *testing.T) {
	raw := json.RawMessage(`{"unit_id":"U1","job_number":"J1","date":"20240101","brief":{"title":"Road Repair"}}`)

	rec := ParseRecord(raw)

	require.NotNil(t, rec)
	assert.Equal(t, "U1", rec.UnitID.String())
	assert.Equal(t, "J1", rec.JobNumber.String())
	assert.JSONEq(t, string(raw), string(rec.Raw))
}

func TestParseRecordNumericIdentifiers(t *testing.T) {
	rec := ParseRecord(json.RawMessage(`{"unit_id":3790,"job_number":112057,"date":20240101}`))

	assert.Equal(t, "3790", rec.UnitID.String())
	assert.Equal(t, "112057", rec.JobNumber.String())
	assert.Equal(t, "20240101", rec.Date.String())
}

func TestParseRecordMalformedInput(t *testing.T) {
	// Decode failures never panic or error; identification happens later.
	rec := ParseRecord(json.RawMessage(`not json at all`))

	require.NotNil(t, rec)
	assert.Empty(t, rec.UnitID.String())
}

func TestNormalizeTitleFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		title string
	}{
		{"brief title", `{"unit_id":"U1","job_number":"J1","brief":{"title":"Road Repair"}}`, "Road Repair"},
		{"top-level title", `{"unit_id":"U1","job_number":"J1","title":"Bridge Work"}`, "Bridge Work"},
		{"brief wins over top-level", `{"unit_id":"U1","job_number":"J1","title":"Other","brief":{"title":"Road Repair"}}`, "Road Repair"},
		{"no title anywhere", `{"unit_id":"U1","job_number":"J1"}`, UntitledFallback},
		{"blank brief title falls through", `{"unit_id":"U1","job_number":"J1","title":"Kept","brief":{"title":"  "}}`, "Kept"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(ParseRecord(json.RawMessage(tt.input)))
			assert.Equal(t, tt.title, n.Title)
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	rec := ParseRecord(json.RawMessage(
		`{"unit_id":"U1","job_number":"J1","brief":{"title":"T","category":"works","companies":["Acme","Bravo"]}}`))

	n := Normalize(rec)

	assert.Equal(t, []string{"works", "Acme", "Bravo"}, n.Tags)
}

func TestNormalizeTagsSingleCompanyObject(t *testing.T) {
	// The upstream API emits a bare string when there is one company.
	rec := ParseRecord(json.RawMessage(
		`{"unit_id":"U1","job_number":"J1","brief":{"title":"T","companies":"Acme"}}`))

	n := Normalize(rec)

	assert.Equal(t, []string{"Acme"}, n.Tags)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"compact", "20240101", 1704067200},
		{"dashed", "2024-01-01", 1704067200},
		{"rfc3339", "2024-01-01T00:00:00Z", 1704067200},
		{"unix seconds", "1704067200", 1704067200},
		{"unix millis", "1704067200000", 1704067200},
		{"empty", "", 0},
		{"garbage", "next tuesday", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.input))
		})
	}
}

func TestIdentityKeyDeterminism(t *testing.T) {
	a, err := IdentityKey("U1", "J1")
	require.NoError(t, err)
	b, err := IdentityKey(" U1 ", "J1")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "U1-J1", a)
}

func TestIdentityKeyMissingParts(t *testing.T) {
	_, err := IdentityKey("", "J1")
	assert.ErrorIs(t, err, ErrUnidentifiableRecord)

	_, err = IdentityKey("U1", "  ")
	assert.ErrorIs(t, err, ErrUnidentifiableRecord)
}
