package dto

import (
	"encoding/json"
	"reflect"
	"time"
)

// Layouts accepted for event times, tried in order. Values without a zone
// (as sent by datetime-local inputs) are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Timestamp is an ISO-8601 date-time from a request body.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses value with the accepted ISO-8601 layouts.
func ParseTimestamp(value string) (Timestamp, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Timestamp{Time: t}, true
		}
	}
	return Timestamp{}, false
}

// UnmarshalJSON reports bad input as a type error so binding names the field.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &json.UnmarshalTypeError{Value: "non-string", Type: reflect.TypeOf(Timestamp{})}
	}
	ts, ok := ParseTimestamp(s)
	if !ok {
		return &json.UnmarshalTypeError{Value: "string", Type: reflect.TypeOf(Timestamp{})}
	}
	*t = ts
	return nil
}

// MarshalJSON writes RFC 3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// TimePtr returns the event time of o, or nil when absent or null.
func TimePtr(o Optional[Timestamp]) *time.Time {
	if !o.Present || o.Null {
		return nil
	}
	v := o.Value.Time
	return &v
}
