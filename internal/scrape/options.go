// Package scrape turns a directory of DICOM files into a tag table and a
// record table.
package scrape

import (
	"fmt"
	"runtime"

	"github.com/mrsinham/dicomtable/internal/dicom"
	"github.com/mrsinham/dicomtable/internal/observability"
)

// Defaults used when an option is left empty.
const (
	DefaultRoot    = "."
	DefaultOutput  = "dicom.db"
	DefaultPattern = "*"
)

// Options contains all parameters of a scrape.
type Options struct {
	Root    string // directory to walk
	Output  string // database file; empty returns the tables without saving
	Pattern string // glob matched against file names

	Recursive         bool // descend into subdirectories
	SortSliceLocation bool // order rows by SliceLocation
	Coerce            bool // convert common fields to numbers
	Workers           int  // parallel decoders (0 or 1 = sequential, <0 = CPU cores)

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// DefaultOptions returns the options of a plain "scrape" call.
func DefaultOptions() Options {
	return Options{
		Root:              DefaultRoot,
		Output:            DefaultOutput,
		Pattern:           DefaultPattern,
		Recursive:         true,
		SortSliceLocation: true,
		Coerce:            true,
		Workers:           1,
	}
}

// Validate checks the options and fills empty fields with defaults.
func (o *Options) Validate() error {
	if o.Root == "" {
		o.Root = DefaultRoot
	}
	if o.Pattern == "" {
		o.Pattern = DefaultPattern
	}
	if err := dicom.ValidatePattern(o.Pattern); err != nil {
		return err
	}
	if o.Workers < 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Workers == 0 {
		o.Workers = 1
	}
	if o.Workers > 256 {
		return fmt.Errorf("workers must be <= 256, got %d", o.Workers)
	}
	return nil
}

func (o Options) walker() dicom.Walker {
	return dicom.Walker{
		Pattern:   o.Pattern,
		Recursive: o.Recursive,
		Logger:    o.Logger,
		Metrics:   o.Metrics,
	}
}

func (o Options) decoder() dicom.Decoder {
	return dicom.Decoder{Coerce: o.Coerce}
}
