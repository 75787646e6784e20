package model

import "encoding/json"

// Optional is a JSON field that tells "omitted" apart from "explicitly null".
//
//	{}                 → Set=false
//	{"due_date": null} → Set=true, Value=nil
//	{"due_date": "…"}  → Set=true, Value=&date
//
// encoding/json only calls UnmarshalJSON for keys that are present, so a
// zero Optional always means the client left the field out.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns an Optional that was explicitly set to null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// IsNull reports whether the field was present and null.
func (o Optional[T]) IsNull() bool {
	return o.Set && o.Value == nil
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
