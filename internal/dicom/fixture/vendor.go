package fixture

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Vendor selects a family of private attributes found in real scanner output.
type Vendor string

const (
	Siemens Vendor = "siemens"
	GE      Vendor = "ge"
	Philips Vendor = "philips"
)

// AllVendors returns all vendors.
func AllVendors() []Vendor {
	return []Vendor{Siemens, GE, Philips}
}

// Private tags used by the vendor fixtures.
var (
	GEDiffusionTag      = tag.Tag{Group: 0x0043, Element: 0x1039}
	GESoftwareTag       = tag.Tag{Group: 0x0009, Element: 0x10E3}
	PhilipsSequenceTag  = tag.Tag{Group: 0x2005, Element: 0x100E}
	SiemensCSAImageTag  = tag.Tag{Group: 0x0029, Element: 0x1010}
	SiemensCSASeriesTag = tag.Tag{Group: 0x0029, Element: 0x1020}
)

// VendorElements returns the private elements of vendor. Values vary with
// rng but the set of tags does not.
func VendorElements(vendor Vendor, rng *rand.Rand) []*dicom.Element {
	switch vendor {
	case Siemens:
		return siemensElements(rng)
	case GE:
		return geElements(rng)
	case Philips:
		return philipsElements(rng)
	}
	return nil
}

// geElements generates GE GEMS private tags.
func geElements(rng *rand.Rand) []*dicom.Element {
	softwareVersion := fmt.Sprintf("DV%d.%d_%d_M5", rng.IntN(10)+20, rng.IntN(10), rng.IntN(100))

	// 4 values as per GE convention
	diffusionValues := make([]string, 4)
	for i := range diffusionValues {
		diffusionValues[i] = fmt.Sprintf("%d", rng.IntN(1000))
	}

	return []*dicom.Element{
		MustPrivateElement(tag.Tag{Group: 0x0009, Element: 0x0010}, "LO", []string{"GEMS_IDEN_01"}),
		MustPrivateElement(tag.Tag{Group: 0x0043, Element: 0x0010}, "LO", []string{"GEMS_PARM_01"}),
		MustPrivateElement(GESoftwareTag, "LO", []string{softwareVersion}),
		MustPrivateElement(GEDiffusionTag, "IS", diffusionValues),
	}
}

// philipsElements generates Philips private tags with a nested private
// sequence.
func philipsElements(rng *rand.Rand) []*dicom.Element {
	item := []*dicom.Element{
		MustPrivateElement(tag.Tag{Group: 0x2005, Element: 0x0011}, "LO", []string{"Philips MR Imaging DD 005"}),
		MustPrivateElement(tag.Tag{Group: 0x2005, Element: 0x1100}, "DS", []string{fmt.Sprintf("%.10f", rng.Float64()*100+1.0)}),
		MustPrivateElement(tag.Tag{Group: 0x2005, Element: 0x1101}, "DS", []string{fmt.Sprintf("%.10f", rng.Float64()*10-5.0)}),
	}

	return []*dicom.Element{
		MustPrivateElement(tag.Tag{Group: 0x2001, Element: 0x0010}, "LO", []string{"Philips Imaging DD 001"}),
		MustPrivateElement(tag.Tag{Group: 0x2005, Element: 0x0010}, "LO", []string{"Philips MR Imaging DD 001"}),
		MustPrivateElement(PhilipsSequenceTag, "SQ", [][]*dicom.Element{item}),
	}
}

// csaElement is a single element of a Siemens CSA header.
type csaElement struct {
	Name     string
	VM       int32
	VR       string
	SyngoDT  int32
	NumItems int32
	Values   []string
}

// buildCSAHeader encodes elements into the "SV10" binary format used by
// Siemens scanners.
func buildCSAHeader(elements []csaElement) []byte {
	var buf bytes.Buffer

	buf.WriteString("SV10")
	buf.Write([]byte{0x04, 0x03, 0x02, 0x01})

	// binary.Write to bytes.Buffer never fails; discard errors explicitly.
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(elements)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0x4D))

	for _, elem := range elements {
		name := make([]byte, 64)
		copy(name, elem.Name)
		buf.Write(name)

		_ = binary.Write(&buf, binary.LittleEndian, elem.VM)

		vr := make([]byte, 4)
		copy(vr, elem.VR)
		buf.Write(vr)

		_ = binary.Write(&buf, binary.LittleEndian, elem.SyngoDT)
		_ = binary.Write(&buf, binary.LittleEndian, elem.NumItems)
		_ = binary.Write(&buf, binary.LittleEndian, uint32(0x4D))

		for i := int32(0); i < elem.NumItems; i++ {
			var val []byte
			if i < int32(len(elem.Values)) {
				val = []byte(elem.Values[i])
			}

			// Item length is repeated 4 times
			itemLen := uint32(len(val))
			for j := 0; j < 4; j++ {
				_ = binary.Write(&buf, binary.LittleEndian, itemLen)
			}
			buf.Write(val)

			if padding := (4 - len(val)%4) % 4; padding > 0 {
				buf.Write(make([]byte, padding))
			}
		}
	}

	// The DICOM writer requires an even value length
	if buf.Len()%2 == 1 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func siemensElements(rng *rand.Rand) []*dicom.Element {
	image := buildCSAHeader([]csaElement{
		{Name: "NumberOfImagesInMosaic", VM: 1, VR: "IS", SyngoDT: 6, NumItems: 1, Values: []string{"1"}},
		{Name: "SliceNormalVector", VM: 3, VR: "FD", SyngoDT: 3, NumItems: 3, Values: []string{"0.0", "0.0", "1.0"}},
		{Name: "B_value", VM: 1, VR: "IS", SyngoDT: 6, NumItems: 1, Values: []string{fmt.Sprintf("%d", rng.IntN(3)*500)}},
		{Name: "RealDwellTime", VM: 1, VR: "IS", SyngoDT: 6, NumItems: 1, Values: []string{"5700"}},
		{Name: "ImaCoilString", VM: 1, VR: "LO", SyngoDT: 19, NumItems: 1, Values: []string{"HEA;HEP"}},
	})
	series := buildCSAHeader([]csaElement{
		{Name: "UsedPatientWeight", VM: 1, VR: "DS", SyngoDT: 3, NumItems: 1, Values: []string{fmt.Sprintf("%.1f", 50+rng.Float64()*50)}},
		{Name: "MrProtocolVersion", VM: 1, VR: "IS", SyngoDT: 6, NumItems: 1, Values: []string{"1"}},
		{Name: "CoilForGradient", VM: 1, VR: "LO", SyngoDT: 19, NumItems: 1, Values: []string{"AS"}},
	})

	return []*dicom.Element{
		MustPrivateElement(tag.Tag{Group: 0x0029, Element: 0x0010}, "LO", []string{"SIEMENS CSA HEADER"}),
		MustPrivateElement(SiemensCSAImageTag, "OB", image),
		MustPrivateElement(SiemensCSASeriesTag, "OB", series),
	}
}
