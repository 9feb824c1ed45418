package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexString is a string that can be unmarshaled from either a JSON string or
// a JSON number. The upstream tender API is inconsistent about whether
// identifiers like unit_id and job_number are quoted.
type FlexString string

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	// Try unmarshaling as a string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	// Try unmarshaling as a number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}

	// Booleans occasionally appear in sloppy payloads
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexString(strconv.FormatBool(b))
		return nil
	}

	return fmt.Errorf("FlexString: unexpected type, expected string or number")
}

// MarshalJSON implements the json.Marshaler interface.
func (f FlexString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// String converts FlexString back to string.
func (f FlexString) String() string {
	return string(f)
}
