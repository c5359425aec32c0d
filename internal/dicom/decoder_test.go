package dicom

import (
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomtable/internal/dicom/fixture"
	"github.com/mrsinham/dicomtable/internal/table"
)

func sampleImage() fixture.Image {
	return fixture.Image{
		PatientName:     "DOE^JANE",
		PatientID:       "PAT002",
		AccessionNumber: "ACC00002",
		InstanceNumber:  3,
		SliceLocation:   fixture.Location(12.5),
		SliceThickness:  fixture.Location(2.5),
		PixelSpacing:    []float64{0.5, 0.5},
	}
}

func TestDecoder_Decode(t *testing.T) {
	elements := sampleImage().Elements()
	elements = append(elements, fixture.MustPrivateElement(tag.PixelData, "OW", []byte{0, 0, 0, 0}))
	ds := dicom.Dataset{Elements: elements}

	rec, tags := Decoder{Coerce: true}.Decode(ds)

	tests := []struct {
		key   string
		alias string
		want  table.Value
	}{
		{"SliceLocation", "X0020_1041", table.Float(12.5)},
		{"SliceThickness", "X0018_0050", table.Float(2.5)},
		{"PixelSpacing", "X0028_0030", table.Floats(0.5, 0.5)},
		{"InstanceNumber", "X0020_0013", table.Int(3)},
		{"Rows", "X0028_0010", table.Int(8)},
		{"PatientName", "X0010_0010", table.String("DOE^JANE")},
		{"AccessionNumber", "X0008_0050", table.String("ACC00002")},
		{"Modality", "X0008_0060", table.String("MR")},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got, ok := rec.Get(tc.key)
			if !ok {
				t.Fatalf("record has no %s", tc.key)
			}
			if !got.Equal(tc.want) {
				t.Errorf("%s = %#v, want %#v", tc.key, got, tc.want)
			}
			alias, ok := rec.Get(tc.alias)
			if !ok {
				t.Fatalf("record has no %s", tc.alias)
			}
			if !alias.Equal(got) {
				t.Errorf("%s = %v, want the same value as %s (%v)", tc.alias, alias, tc.key, got)
			}
		})
	}

	if rec.Has("PixelData") || rec.Has("X7fe0_0010") {
		t.Error("pixel data must never be decoded")
	}
	if _, ok := tags.Get("PixelData"); ok {
		t.Error("pixel data must not appear in the tag table")
	}
	if rec.Len() != 2*tags.Len() {
		t.Errorf("record has %d fields, want twice the %d tags", rec.Len(), tags.Len())
	}

	d, ok := tags.Get("SliceLocation")
	if !ok {
		t.Fatal("tag table has no SliceLocation")
	}
	want := table.TagDescriptor{Name: "SliceLocation", Group: 0x0020, Element: 0x1041, Tag: "0020_1041", VR: "DS"}
	if d != want {
		t.Errorf("SliceLocation descriptor = %+v, want %+v", d, want)
	}
}

func TestDecoder_NoCoerce(t *testing.T) {
	ds := dicom.Dataset{Elements: sampleImage().Elements()}
	rec, _ := Decoder{Coerce: false}.Decode(ds)

	for _, f := range rec.Fields() {
		if f.Value.Kind() != table.KindString && !f.Value.IsNull() {
			t.Errorf("%s = %#v, want a string without coercion", f.Key, f.Value)
		}
	}
	if v, _ := rec.Get("PixelSpacing"); !v.Equal(table.String(`0.5\0.5`)) {
		t.Errorf("PixelSpacing = %v, want 0.5\\0.5", v)
	}
	if v, _ := rec.Get("Rows"); !v.Equal(table.String("8")) {
		t.Errorf("Rows = %v, want \"8\"", v)
	}
}

func TestDecoder_VendorPrivateTags(t *testing.T) {
	for _, vendor := range fixture.AllVendors() {
		t.Run(string(vendor), func(t *testing.T) {
			img := sampleImage()
			img.Extra = fixture.VendorElements(vendor, rand.New(rand.NewPCG(42, 42)))
			rec, tags := Decoder{Coerce: true}.Decode(dicom.Dataset{Elements: img.Elements()})

			for _, elem := range img.Extra {
				key := NormalizeKey(TagName(elem.Tag))
				if !strings.HasPrefix(key, "Private") {
					t.Errorf("private tag %v decoded as %q", elem.Tag, key)
				}
				v, ok := rec.Get(key)
				if !ok {
					t.Errorf("record has no %s", key)
					continue
				}
				if _, ok := tags.Get(key); !ok {
					t.Errorf("tag table has no %s", key)
				}
				alias, _ := rec.Get(table.AliasKey(elem.Tag.Group, elem.Tag.Element))
				if !alias.Equal(v) {
					t.Errorf("alias of %s = %v, want %v", key, alias, v)
				}
			}
		})
	}
}

func TestDecoder_MultiValuedPrivateStaysString(t *testing.T) {
	img := sampleImage()
	img.Extra = fixture.VendorElements(fixture.GE, rand.New(rand.NewPCG(1, 2)))
	rec, _ := Decoder{Coerce: true}.Decode(dicom.Dataset{Elements: img.Elements()})

	v, ok := rec.Get(NormalizeKey(TagName(fixture.GEDiffusionTag)))
	if !ok {
		t.Fatal("GE diffusion values missing")
	}
	s, isString := v.Str()
	if !isString || strings.Count(s, `\`) != 3 {
		t.Errorf("GE diffusion values = %#v, want four backslash-separated values", v)
	}
}

func TestDecoder_Identifying(t *testing.T) {
	ds := dicom.Dataset{Elements: sampleImage().Elements()}
	rec := Decoder{Coerce: true}.Identifying(ds)

	for _, key := range []string{"AccessionNumber", "PatientID", "SOPInstanceUID"} {
		if !rec.Has(key) {
			t.Errorf("identifying record has no %s", key)
		}
	}
	if rec.Has("PatientName") || rec.Has("SliceLocation") {
		t.Errorf("identifying record holds more than identifiers: %v", rec.Keys())
	}

	if rec := (Decoder{}).Identifying(dicom.Dataset{}); rec.Len() != 0 {
		t.Errorf("empty dataset gave %v", rec.Keys())
	}
}

func TestDecoder_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.dcm")
	if err := fixture.Write(path, sampleImage()); err != nil {
		t.Fatal(err)
	}
	parsed, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}

	rec, tags := Decoder{Coerce: true}.Decode(parsed.Dataset())

	// File meta attributes share the namespace of the main dataset
	if _, ok := tags.Get("TransferSyntaxUID"); !ok {
		t.Error("file meta attribute TransferSyntaxUID missing from tag table")
	}
	if v, _ := rec.Get("SliceLocation"); !v.Equal(table.Float(12.5)) {
		t.Errorf("SliceLocation = %#v, want 12.5", v)
	}
	if v, _ := rec.Get("PatientName"); !v.Equal(table.String("DOE^JANE")) {
		t.Errorf("PatientName = %#v, want DOE^JANE", v)
	}
}
