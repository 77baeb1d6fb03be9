package domain

import (
	"encoding/json"
	"time"
)

// apiTimeLayouts are the timestamp layouts the maintenance API is known to emit.
var apiTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp is an API timestamp. It accepts RFC 3339 and zone-less ISO 8601 values; zone-less values are UTC.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s with the known API layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	var lastErr error
	for _, layout := range apiTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Timestamp{Time: t.UTC()}, nil
		}
		lastErr = err
	}
	return Timestamp{}, lastErr
}

// UnmarshalJSON decodes a JSON string or null.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON encodes the timestamp as RFC 3339, or null when zero.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}
