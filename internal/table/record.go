package table

import (
	"encoding/json"
	"fmt"
)

// Column names every record table carries.
const (
	FilenameColumn  = "Filename"
	ReadErrorColumn = "ReadError"
)

// Field is one key/value pair of a record.
type Field struct {
	Key   string `json:"k"`
	Value Value  `json:"v"`
}

// Record is the set of normalized values scraped from one file. Keys are
// unique; setting an existing key replaces its value in place.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord returns a record holding the given fields in order.
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Set stores v under key.
func (r *Record) Set(key string, v Value) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = v
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: v})
}

// Get returns the value stored under key.
func (r Record) Get(key string) (Value, bool) {
	i, ok := r.index[key]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Fields returns a copy of the fields in insertion order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Keys returns the keys in insertion order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Filename returns the Filename field as text.
func (r Record) Filename() string {
	v, _ := r.Get(FilenameColumn)
	s, _ := v.Str()
	return s
}

// ReadError returns the failure description of a placeholder record.
func (r Record) ReadError() (string, bool) {
	v, ok := r.Get(ReadErrorColumn)
	if !ok || v.IsNull() {
		return "", false
	}
	return v.String(), true
}

// Equal reports whether both records hold the same key/value pairs,
// regardless of order.
func (r Record) Equal(o Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	for _, f := range r.fields {
		ov, ok := o.Get(f.Key)
		if !ok || !ov.Equal(f.Value) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the record as an ordered list of fields.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.fields)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields []Field
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	out := Record{}
	for _, f := range fields {
		if out.Has(f.Key) {
			return fmt.Errorf("duplicate record key %q", f.Key)
		}
		out.Set(f.Key, f.Value)
	}
	*r = out
	return nil
}
