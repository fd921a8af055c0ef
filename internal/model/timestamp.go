package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Timestamp is an optional backend timestamp. Missing, null and unparseable
// values decode to the zero Timestamp with Valid=false instead of failing the
// surrounding record.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// At wraps t as a valid timestamp.
func At(t time.Time) Timestamp { return Timestamp{Time: t, Valid: true} }

// ParseTimestamp accepts RFC 3339, zone-less ISO 8601 and date-only strings.
// Zone-less values are read as UTC.
func ParseTimestamp(s string) (Timestamp, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return At(t), true
		}
	}
	return Timestamp{}, false
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = Timestamp{}
		return nil
	}
	*t, _ = ParseTimestamp(s)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// Format renders the timestamp with layout, or the placeholder when missing.
func (t Timestamp) Format(layout string) string {
	if !t.Valid {
		return Placeholder
	}
	return t.Time.Format(layout)
}
