package fixture

import (
	"fmt"
	"math/rand/v2"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Modality represents a DICOM imaging modality type.
type Modality string

const (
	MR Modality = "MR" // Magnetic Resonance
	CT Modality = "CT" // Computed Tomography
)

// SOPClassUID returns the image storage SOP class of m.
func (m Modality) SOPClassUID() string {
	if m == CT {
		return "1.2.840.10008.5.1.4.1.1.2"
	}
	return mrImageStorage
}

// Scanner represents an imaging device configuration.
type Scanner struct {
	Manufacturer string
	Model        string
	// MR-specific
	FieldStrength float64 // Tesla (1.5, 3.0)
}

var mrScanners = []Scanner{
	{Manufacturer: "SIEMENS", Model: "Avanto", FieldStrength: 1.5},
	{Manufacturer: "SIEMENS", Model: "Skyra", FieldStrength: 3.0},
	{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Signa HDxt", FieldStrength: 1.5},
	{Manufacturer: "PHILIPS", Model: "Ingenia", FieldStrength: 3.0},
}

var ctScanners = []Scanner{
	{Manufacturer: "SIEMENS", Model: "SOMATOM Force"},
	{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Revolution CT"},
	{Manufacturer: "PHILIPS", Model: "Brilliance iCT"},
	{Manufacturer: "CANON", Model: "Aquilion ONE"},
}

// ModalityElements returns the scanner and acquisition elements of one
// series of modality m. Only MR images carry EchoTime and friends, only CT
// images carry KVP and the rescale attributes, so a directory mixing both
// yields a sparse record table.
func ModalityElements(m Modality, rng *rand.Rand) []*dicom.Element {
	switch m {
	case CT:
		return ctElements(rng)
	default:
		return mrElements(rng)
	}
}

func scannerElements(s Scanner) []*dicom.Element {
	return []*dicom.Element{
		MustElement(tag.Manufacturer, []string{s.Manufacturer}),
		MustElement(tag.ManufacturerModelName, []string{s.Model}),
	}
}

func mrElements(rng *rand.Rand) []*dicom.Element {
	scanner := mrScanners[rng.IntN(len(mrScanners))]
	sequences := []string{"T1_MPRAGE", "T1_SE", "T2_FSE", "T2_FLAIR"}

	return append(scannerElements(scanner),
		MustElement(tag.MagneticFieldStrength, []string{floatToDS(scanner.FieldStrength)}),
		MustElement(tag.ImagingFrequency, []string{floatToDS(scanner.FieldStrength * 42.58)}),
		MustElement(tag.EchoTime, []string{floatToDS(10.0 + rng.Float64()*20.0)}),
		MustElement(tag.RepetitionTime, []string{floatToDS(400.0 + rng.Float64()*400.0)}),
		MustElement(tag.FlipAngle, []string{floatToDS(60.0 + rng.Float64()*30.0)}),
		MustElement(tag.SequenceName, []string{sequences[rng.IntN(len(sequences))]}),
	)
}

func ctElements(rng *rand.Rand) []*dicom.Element {
	scanner := ctScanners[rng.IntN(len(ctScanners))]
	kvpOptions := []float64{80, 100, 120, 140}
	kernels := []string{"SOFT", "STANDARD", "BONE", "LUNG"}

	return append(scannerElements(scanner),
		MustElement(tag.KVP, []string{floatToDS(kvpOptions[rng.IntN(len(kvpOptions))])}),
		MustElement(tag.XRayTubeCurrent, []string{fmt.Sprintf("%d", 100+rng.IntN(301))}),
		MustElement(tag.ConvolutionKernel, []string{kernels[rng.IntN(len(kernels))]}),
		MustElement(tag.RescaleIntercept, []string{floatToDS(-1024)}),
		MustElement(tag.RescaleSlope, []string{floatToDS(1)}),
		MustElement(tag.RescaleType, []string{"HU"}),
	)
}

// floatToDS converts a float64 to a DICOM Decimal String.
func floatToDS(f float64) string {
	return fmt.Sprintf("%.6g", f)
}

// SpecialCharNames are patient names outside ASCII, for character set tests.
var SpecialCharNames = []string{
	"Müller-Schmidt^Jean-Pierre",
	"O'Connor^Siân",
	"García-López^José",
	"Østergaard^Søren",
	"Škvorecký^Łukasz",
	"Pérez-Rodríguez^Éléonore",
}
