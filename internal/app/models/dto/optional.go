package dto

import (
	"bytes"
	"encoding/json"
)

// Optional is a request field that distinguishes absent, explicit null and a value.
// An empty JSON string sent for a non-string field counts as null.
type Optional[T any] struct {
	Present bool
	Null    bool
	Value   T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Value: v}
}

// Null returns a present Optional holding JSON null.
func Null[T any]() Optional[T] {
	return Optional[T]{Present: true, Null: true}
}

// UnmarshalJSON is only invoked for keys present in the body, null included.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(data, []byte("null")) {
		o.Null = true
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		if bytes.Equal(data, []byte(`""`)) {
			o.Null = true
			return nil
		}
		return err
	}
	o.Value = v
	o.Null = false
	return nil
}

// MarshalJSON writes null for absent and null values.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Ptr returns the value, or nil when absent or null.
func (o Optional[T]) Ptr() *T {
	if !o.Present || o.Null {
		return nil
	}
	v := o.Value
	return &v
}
