package dicom

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/mrsinham/dicomtable/internal/table"
)

// multiValueDelimiter separates values of a multi-valued attribute.
const multiValueDelimiter = `\`

// charsetEncodings maps DICOM defined terms of (0008,0005) to encoding
// names understood by htmlindex. Missing terms mean ASCII or UTF-8.
var charsetEncodings = map[string]string{
	"ISO_IR 13":       "shift_jis",
	"ISO 2022 IR 13":  "shift_jis",
	"ISO_IR 100":      "iso-8859-1",
	"ISO 2022 IR 100": "iso-8859-1",
	"ISO_IR 101":      "iso-8859-2",
	"ISO 2022 IR 101": "iso-8859-2",
	"ISO_IR 109":      "iso-8859-3",
	"ISO 2022 IR 109": "iso-8859-3",
	"ISO_IR 110":      "iso-8859-4",
	"ISO 2022 IR 110": "iso-8859-4",
	"ISO_IR 126":      "iso-ir-126",
	"ISO 2022 IR 126": "iso-ir-126",
	"ISO_IR 127":      "iso-ir-127",
	"ISO 2022 IR 127": "iso-ir-127",
	"ISO_IR 138":      "iso-ir-138",
	"ISO 2022 IR 138": "iso-ir-138",
	"ISO_IR 144":      "iso-ir-144",
	"ISO 2022 IR 144": "iso-ir-144",
	"ISO_IR 148":      "iso-ir-148",
	"ISO 2022 IR 148": "iso-ir-148",
	"ISO 2022 IR 149": "euc-kr",
	"ISO 2022 IR 87":  "iso-2022-jp",
	"ISO 2022 IR 159": "iso-2022-jp",
	"ISO_IR 166":      "iso-ir-166",
	"ISO 2022 IR 166": "iso-ir-166",
	"GB18030":         "gb18030",
	"GBK":             "gbk",
}

// charsetDecoder returns the decoder for the dataset's specific character
// set, or nil when the text is ASCII, UTF-8 or an unknown set.
func charsetDecoder(ds dicom.Dataset) *encoding.Decoder {
	elem, err := ds.FindElementByTag(tag.SpecificCharacterSet)
	if err != nil || elem.Value == nil {
		return nil
	}
	terms, ok := elem.Value.GetValue().([]string)
	if !ok {
		return nil
	}
	for _, term := range terms {
		name, ok := charsetEncodings[strings.TrimSpace(term)]
		if !ok {
			continue
		}
		enc, err := htmlindex.Get(name)
		if err != nil {
			continue
		}
		return enc.NewDecoder()
	}
	return nil
}

// decodeText turns a binary value into text. It returns false when the
// bytes do not look like text in any known encoding.
func decodeText(b []byte, dec *encoding.Decoder) (string, bool) {
	b = bytes.TrimRight(b, "\x00 ")
	if dec != nil {
		if out, err := dec.Bytes(b); err == nil && printable(string(out)) {
			return string(out), true
		}
	}
	if utf8.Valid(b) && printable(string(b)) {
		return string(b), true
	}
	if out, err := charmap.ISO8859_1.NewDecoder().Bytes(b); err == nil && printable(string(out)) {
		return string(out), true
	}
	return "", false
}

func printable(s string) bool {
	for _, r := range s {
		if r == utf8.RuneError || (!unicode.IsPrint(r) && !unicode.IsSpace(r)) {
			return false
		}
	}
	return true
}

// rawString renders a parsed value the way it is stored when no coercion
// applies. Multiple values are joined with the DICOM delimiter.
func rawString(v dicom.Value, dec *encoding.Decoder) string {
	switch v.ValueType() {
	case dicom.Strings:
		if vals, ok := v.GetValue().([]string); ok {
			trimmed := make([]string, len(vals))
			for i, s := range vals {
				trimmed[i] = strings.TrimRight(s, " \x00")
			}
			return strings.Join(trimmed, multiValueDelimiter)
		}
	case dicom.Ints:
		if vals, ok := v.GetValue().([]int); ok {
			parts := make([]string, len(vals))
			for i, n := range vals {
				parts[i] = strconv.Itoa(n)
			}
			return strings.Join(parts, multiValueDelimiter)
		}
	case dicom.Floats:
		if vals, ok := v.GetValue().([]float64); ok {
			parts := make([]string, len(vals))
			for i, f := range vals {
				parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
			}
			return strings.Join(parts, multiValueDelimiter)
		}
	case dicom.Bytes:
		if b, ok := v.GetValue().([]byte); ok {
			if s, ok := decodeText(b, dec); ok {
				return s
			}
		}
	}
	return v.String()
}

// coerce normalizes one attribute value. It never fails: anything that
// cannot be converted is kept as its raw string form.
func coerce(t tag.Tag, vr string, v dicom.Value, dec *encoding.Decoder) table.Value {
	if v == nil {
		return table.Null()
	}
	raw := rawString(v, dec)

	switch t {
	case tag.SliceLocation, tag.SliceThickness:
		if f, ok := singleFloat(v); ok {
			return table.Float(f)
		}
		return emptyOrString(raw)
	case tag.PixelSpacing:
		if fs, ok := allFloats(v); ok {
			return table.Floats(fs...)
		}
		return emptyOrString(raw)
	}

	if strings.ContainsAny(raw, `\[`) {
		return table.String(raw)
	}

	switch v.ValueType() {
	case dicom.Strings:
		switch vr {
		case "IS", "SL", "US":
			if raw = strings.TrimSpace(raw); raw == "" {
				return table.Null()
			}
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return table.Int(n)
			}
		case "DS":
			if raw = strings.TrimSpace(raw); raw == "" {
				return table.Null()
			}
			if f, ok := parseFinite(raw); ok {
				return table.Float(f)
			}
		}
	case dicom.Ints:
		// Only SL and US are integers; UL, SS, FL, FD and the rest stay text.
		if vr == "SL" || vr == "US" {
			if vals, _ := v.GetValue().([]int); len(vals) == 1 {
				return table.Int(int64(vals[0]))
			}
			return emptyOrString(raw)
		}
	}
	return table.String(raw)
}

// emptyOrString maps an empty numeric value to Null and anything else to
// its raw text.
func emptyOrString(raw string) table.Value {
	if strings.TrimSpace(raw) == "" {
		return table.Null()
	}
	return table.String(raw)
}

func singleFloat(v dicom.Value) (float64, bool) {
	fs, ok := allFloats(v)
	if !ok || len(fs) != 1 {
		return 0, false
	}
	return fs[0], true
}

// allFloats converts every value of v to a float. It fails on empty
// values and on any value that is not a finite number.
func allFloats(v dicom.Value) ([]float64, bool) {
	var out []float64
	switch vals := v.GetValue().(type) {
	case []string:
		for _, s := range vals {
			f, ok := parseFinite(strings.TrimSpace(s))
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
	case []float64:
		for _, f := range vals {
			if !isFinite(f) {
				return nil, false
			}
			out = append(out, f)
		}
	case []int:
		for _, n := range vals {
			out = append(out, float64(n))
		}
	default:
		return nil, false
	}
	return out, len(out) > 0
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
