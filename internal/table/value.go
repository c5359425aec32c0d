// Package table holds the tabular data model produced by a scrape: normalized
// values, per-file records, the tag table and the record table.
package table

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindNull is an absent value.
	KindNull Kind = iota
	// KindString is a text value.
	KindString
	// KindInt is a signed integer value.
	KindInt
	// KindFloat is a floating-point value.
	KindFloat
	// KindFloats is an ordered, immutable sequence of floating-point values.
	KindFloats
)

// String returns the short name used in the serialized form.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "s"
	case KindInt:
		return "i"
	case KindFloat:
		return "f"
	case KindFloats:
		return "fs"
	default:
		return "n"
	}
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "n":
		return KindNull, nil
	case "s":
		return KindString, nil
	case "i":
		return KindInt, nil
	case "f":
		return KindFloat, nil
	case "fs":
		return KindFloats, nil
	default:
		return KindNull, fmt.Errorf("unknown value kind %q", s)
	}
}

// Value is a normalized tag value. The zero Value is Null.
type Value struct {
	kind   Kind
	str    string
	num    int64
	flt    float64
	floats []float64
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a text value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, num: i} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Floats returns a sequence value. The slice is copied.
func Floats(fs ...float64) Value {
	return Value{kind: KindFloats, floats: slices.Clone(fs)}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the text of a String value.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Int returns the integer of an Int value.
func (v Value) Int() (int64, bool) { return v.num, v.kind == KindInt }

// Float returns the number of a Float value.
func (v Value) Float() (float64, bool) { return v.flt, v.kind == KindFloat }

// Floats returns a copy of the sequence of a Floats value.
func (v Value) Floats() ([]float64, bool) {
	if v.kind != KindFloats {
		return nil, false
	}
	return slices.Clone(v.floats), true
}

// Number returns v as a float64 when it holds an Int or a Float.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.num), true
	case KindFloat:
		return v.flt, true
	}
	return 0, false
}

// Equal reports whether both values hold the same variant and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt
	case KindFloats:
		return slices.Equal(v.floats, o.floats)
	}
	return true
}

// String renders v for display. Null renders as an empty string and
// sequences use the DICOM multi-value delimiter.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return formatFloat(v.flt)
	case KindFloats:
		parts := make([]string, len(v.floats))
		for i, f := range v.floats {
			parts[i] = formatFloat(f)
		}
		return strings.Join(parts, `\`)
	}
	return ""
}

// Interface returns v as a plain Go value: nil, string, int64, float64 or
// []float64.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindFloats:
		return slices.Clone(v.floats)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type valueJSON struct {
	Kind  string          `json:"t"`
	Value json.RawMessage `json:"v,omitempty"`
}

// MarshalJSON encodes v with an explicit kind so that integers, floats and
// strings survive a round trip unchanged.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.kind {
	case KindString:
		payload = v.str
	case KindInt:
		payload = v.num
	case KindFloat:
		if math.IsNaN(v.flt) || math.IsInf(v.flt, 0) {
			return nil, fmt.Errorf("cannot encode non-finite float %v", v.flt)
		}
		payload = v.flt
	case KindFloats:
		payload = v.floats
	default:
		return json.Marshal(valueJSON{Kind: v.kind.String()})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueJSON{Kind: v.kind.String(), Value: raw})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var enc valueJSON
	if err := json.Unmarshal(data, &enc); err != nil {
		return err
	}
	kind, err := parseKind(enc.Kind)
	if err != nil {
		return err
	}
	out := Value{kind: kind}
	switch kind {
	case KindString:
		err = json.Unmarshal(enc.Value, &out.str)
	case KindInt:
		err = json.Unmarshal(enc.Value, &out.num)
	case KindFloat:
		err = json.Unmarshal(enc.Value, &out.flt)
	case KindFloats:
		err = json.Unmarshal(enc.Value, &out.floats)
		if out.floats == nil {
			out.floats = []float64{}
		}
	}
	if err != nil {
		return fmt.Errorf("decode %s value: %w", enc.Kind, err)
	}
	*v = out
	return nil
}
