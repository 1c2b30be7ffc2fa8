package types

import (
	"fmt"
	"strings"
	"time"
)

// Time is a UTC instant carrying the wire format used by the HTTP API.
//
// Serialization emits ISO-8601 with nanosecond precision and then strips a
// leading "+00" if present, so a UTC instant never carries an expanded-year
// offset prefix. Existing consumers parse exactly this shape; keep the
// stripping step even though the base format here never produces the prefix.
type Time struct {
	time.Time
}

// parseLayouts are tried in order; offset-less forms are taken as UTC.
var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Now returns the current instant in UTC.
func Now() Time {
	return Time{time.Now().UTC()}
}

// NewTime wraps a time.Time, normalizing to UTC.
func NewTime(t time.Time) Time {
	return Time{t.UTC()}
}

// ParseTime parses the wire format, accepting both offset and offset-less
// forms.
func ParseTime(s string) (Time, error) {
	for _, layout := range parseLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Time{t.UTC()}, nil
		}
	}
	return Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// String renders the wire format.
func (t Time) String() string {
	s := t.UTC().Format(time.RFC3339Nano)
	return strings.TrimPrefix(s, "+00")
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Equal reports whether two instants are the same moment.
func (t Time) Equal(other Time) bool {
	return t.Time.Equal(other.Time)
}
