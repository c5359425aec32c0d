// Package fixture writes small DICOM files for tests: valid series with
// slice positions, files truncated mid-element and files without the DICOM
// signature.
package fixture

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// ExplicitVRLittleEndian is the transfer syntax of every fixture.
const ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"

// mrImageStorage is the SOP class written into fixtures.
const mrImageStorage = "1.2.840.10008.5.1.4.1.1.4"

// MustElement creates a DICOM element, panicking on error.
func MustElement(t tag.Tag, data any) *dicom.Element {
	elem, err := dicom.NewElement(t, data)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

// MustPrivateElement creates an element with an explicit VR. This is
// required because dicom.NewElement fails on unregistered private tags.
func MustPrivateElement(t tag.Tag, rawVR string, data any) *dicom.Element {
	value, err := dicom.NewValue(data)
	if err != nil {
		panic(fmt.Sprintf("failed to create value for private element %v: %v", t, err))
	}
	return &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    tag.GetVRKind(t, rawVR),
		RawValueRepresentation: rawVR,
		Value:                  value,
	}
}

// Image describes one fixture file. Zero fields are left out of the file.
type Image struct {
	Modality        Modality // MR when empty
	CharacterSet    string   // SpecificCharacterSet, e.g. "ISO_IR 192"
	PatientName     string
	PatientID       string
	AccessionNumber string
	SOPInstanceUID  string
	InstanceNumber  int
	SliceLocation   *float64
	SliceThickness  *float64
	PixelSpacing    []float64
	Extra           []*dicom.Element
}

// Location returns a pointer to f, for Image.SliceLocation.
func Location(f float64) *float64 { return &f }

// Elements returns the dataset of img, sorted by tag.
func (img Image) Elements() []*dicom.Element {
	modality := img.Modality
	if modality == "" {
		modality = MR
	}
	sopUID := img.SOPInstanceUID
	if sopUID == "" {
		sopUID = fmt.Sprintf("1.2.826.0.1.3680043.8.498.%d", img.InstanceNumber+1)
	}
	elems := []*dicom.Element{
		MustElement(tag.MediaStorageSOPClassUID, []string{modality.SOPClassUID()}),
		MustElement(tag.MediaStorageSOPInstanceUID, []string{sopUID}),
		MustElement(tag.TransferSyntaxUID, []string{ExplicitVRLittleEndian}),
		MustElement(tag.SOPClassUID, []string{modality.SOPClassUID()}),
		MustElement(tag.SOPInstanceUID, []string{sopUID}),
		MustElement(tag.Modality, []string{string(modality)}),
		MustElement(tag.InstanceNumber, []string{fmt.Sprintf("%d", img.InstanceNumber)}),
		MustElement(tag.Rows, []int{8}),
		MustElement(tag.Columns, []int{8}),
	}
	if img.CharacterSet != "" {
		elems = append(elems, MustElement(tag.SpecificCharacterSet, []string{img.CharacterSet}))
	}
	if img.AccessionNumber != "" {
		elems = append(elems, MustElement(tag.AccessionNumber, []string{img.AccessionNumber}))
	}
	if img.PatientName != "" {
		elems = append(elems, MustElement(tag.PatientName, []string{img.PatientName}))
	}
	if img.PatientID != "" {
		elems = append(elems, MustElement(tag.PatientID, []string{img.PatientID}))
	}
	if img.SliceLocation != nil {
		elems = append(elems, MustElement(tag.SliceLocation, []string{fmt.Sprintf("%.6f", *img.SliceLocation)}))
	}
	if img.SliceThickness != nil {
		elems = append(elems, MustElement(tag.SliceThickness, []string{fmt.Sprintf("%.6f", *img.SliceThickness)}))
	}
	if len(img.PixelSpacing) > 0 {
		spacing := make([]string, len(img.PixelSpacing))
		for i, f := range img.PixelSpacing {
			spacing[i] = fmt.Sprintf("%g", f)
		}
		elems = append(elems, MustElement(tag.PixelSpacing, spacing))
	}
	elems = append(elems, img.Extra...)
	slices.SortStableFunc(elems, func(a, b *dicom.Element) int {
		if a.Tag.Group != b.Tag.Group {
			return int(a.Tag.Group) - int(b.Tag.Group)
		}
		return int(a.Tag.Element) - int(b.Tag.Element)
	})
	return elems
}

// WriteDataset writes a DICOM dataset to a file.
func WriteDataset(path string, ds dicom.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return dicom.Write(f, ds, dicom.SkipVRVerification(), dicom.SkipValueTypeVerification())
}

// Write writes img to path.
func Write(path string, img Image) error {
	if err := WriteDataset(path, dicom.Dataset{Elements: img.Elements()}); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Series writes n images named IM000001.dcm... into dir. Slice locations
// decrease with the instance number so that sorting reverses file order.
func Series(dir string, n int) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create series directory: %w", err)
	}
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("IM%06d.dcm", i+1))
		img := Image{
			PatientName:     "DOE^JOHN",
			PatientID:       "PAT001",
			AccessionNumber: "ACC00001",
			InstanceNumber:  i + 1,
			SliceLocation:   Location(float64(n-i) * 2.5),
			SliceThickness:  Location(2.5),
			PixelSpacing:    []float64{0.5, 0.5},
		}
		if err := Write(path, img); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Truncated writes img and cuts the file in the middle of the PatientName
// value, leaving the DICOM signature intact. Elements sorted before
// PatientName, such as AccessionNumber, remain readable.
func Truncated(path string, img Image) error {
	if img.PatientName == "" {
		img.PatientName = "TRUNCATED^PATIENT^WITH^A^LONG^NAME"
	}
	if err := Write(path, img); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file for truncation: %w", err)
	}
	pos := bytes.Index(data, []byte(img.PatientName))
	if pos < 0 {
		return fmt.Errorf("patient name not found in %s", path)
	}
	return os.WriteFile(path, data[:pos+len(img.PatientName)/2], 0600)
}

// NotDICOM writes a file without the DICM marker at offset 128.
func NotDICOM(path string) error {
	data := bytes.Repeat([]byte("not a dicom file\n"), 16)
	return os.WriteFile(path, data, 0600)
}

// SignatureOnly writes a 128-byte preamble and the DICM marker followed by
// garbage, so it passes the signature check but cannot be parsed.
func SignatureOnly(path string) error {
	data := make([]byte, 128, 160)
	data = append(data, "DICM"...)
	data = append(data, 0x02, 0x00, 0x00, 0x00, 'U', 'L', 0x04)
	return os.WriteFile(path, data, 0600)
}
