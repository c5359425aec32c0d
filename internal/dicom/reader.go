package dicom

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/suyashkumar/dicom"
)

// Parsed holds the elements read from one file. After a failed read it
// holds whatever was parsed before the failure.
type Parsed struct {
	Meta     []*dicom.Element
	Elements []*dicom.Element
}

// Dataset merges the file meta group and the main elements into a single
// dataset, file meta first.
func (p Parsed) Dataset() dicom.Dataset {
	elements := make([]*dicom.Element, 0, len(p.Meta)+len(p.Elements))
	elements = append(elements, p.Meta...)
	elements = append(elements, p.Elements...)
	return dicom.Dataset{Elements: elements}
}

// ReadFile parses a DICOM file element by element without loading pixel
// data. On failure the returned Parsed keeps the elements read so far, so
// callers can still recover identifying attributes.
func ReadFile(path string) (Parsed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Parsed{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return Parsed{}, fmt.Errorf("stat file: %w", err)
	}

	p, err := dicom.NewParser(f, info.Size(), nil, dicom.SkipPixelData())
	if err != nil {
		return Parsed{}, fmt.Errorf("parse header: %w", err)
	}

	parsed := Parsed{Meta: p.GetMetadata().Elements}
	for {
		elem, err := p.Next()
		if err != nil {
			// Element errors wrap io.EOF when the file ends mid-element.
			if errors.Is(err, dicom.ErrorEndOfDICOM) || err == io.EOF {
				return parsed, nil
			}
			return parsed, fmt.Errorf("parse element %d: %w", len(parsed.Elements)+1, err)
		}
		parsed.Elements = append(parsed.Elements, elem)
	}
}
