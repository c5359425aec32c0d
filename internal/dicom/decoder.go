package dicom

import (
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomtable/internal/table"
)

// identifyingTags are recovered from partially parsed files so that failed
// rows can still be traced back to a study.
var identifyingTags = []tag.Tag{
	tag.AccessionNumber,
	tag.PatientID,
	tag.StudyInstanceUID,
	tag.SeriesInstanceUID,
	tag.SOPInstanceUID,
}

// Decoder converts parsed datasets into table records.
type Decoder struct {
	// Coerce enables type conversion of values. When false every value is
	// stored as its raw string form.
	Coerce bool
}

// Decode returns the record and tag descriptors of ds. Pixel data is never
// included. Each value is stored under its normalized name and under its
// Xgggg_eeee alias.
func (d Decoder) Decode(ds dicom.Dataset) (table.Record, table.TagTable) {
	var rec table.Record
	tags := table.NewTagTable()
	dec := charsetDecoder(ds)

	for _, elem := range ds.Elements {
		if elem == nil || elem.Tag == tag.PixelData {
			continue
		}
		name := TagName(elem.Tag)
		key := NormalizeKey(name)
		vr := elem.RawValueRepresentation

		var v table.Value
		if d.Coerce {
			v = coerce(elem.Tag, vr, elem.Value, dec)
		} else if elem.Value != nil {
			v = table.String(rawString(elem.Value, dec))
		}

		rec.Set(key, v)
		rec.Set(table.AliasKey(elem.Tag.Group, elem.Tag.Element), v)
		tags.Set(key, table.NewTagDescriptor(name, elem.Tag.Group, elem.Tag.Element, vr))
	}
	return rec, tags
}

// Identifying decodes the identifying attributes found in a partial
// dataset. Missing attributes are simply absent from the result.
func (d Decoder) Identifying(ds dicom.Dataset) table.Record {
	wanted := make(map[tag.Tag]bool, len(identifyingTags))
	for _, t := range identifyingTags {
		wanted[t] = true
	}
	var elements []*dicom.Element
	for _, elem := range ds.Elements {
		if elem != nil && wanted[elem.Tag] {
			elements = append(elements, elem)
		}
	}
	rec, _ := d.Decode(dicom.Dataset{Elements: elements})
	return rec
}
