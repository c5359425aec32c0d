package dicom

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/mrsinham/dicomtable/internal/observability"
)

// magicOffset is where the "DICM" marker follows the 128-byte preamble.
const magicOffset = 0x80

var magicWord = []byte("DICM")

// IsDICOM reports whether the file at path carries the DICOM signature.
// Any I/O failure counts as "not DICOM".
func IsDICOM(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(magicOffset, io.SeekStart); err != nil {
		return false
	}
	buf := make([]byte, len(magicWord))
	if _, err := io.ReadFull(f, buf); err != nil {
		return false
	}
	return string(buf) == string(magicWord)
}

// WalkStats counts what a walk saw besides the candidates it yielded.
type WalkStats struct {
	Directories int
	Skipped     int
}

// Walker enumerates DICOM files under a root directory.
type Walker struct {
	Pattern   string // shell glob matched against base names, "*" when empty
	Recursive bool   // descend into subdirectories
	Logger    *observability.Logger
	Metrics   *observability.Metrics
	Stats     *WalkStats // optional, updated while walking
}

// ValidatePattern checks that pattern is a well-formed glob.
func ValidatePattern(pattern string) error {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	return nil
}

func (w Walker) pattern() string {
	if w.Pattern == "" {
		return "*"
	}
	return w.Pattern
}

// Walk returns the candidate files under root in lexical order. The
// sequence can be ranged over more than once; each pass walks the tree
// again. A failure on the root itself is yielded as an error and ends the
// sequence. Unreadable subdirectories are logged and skipped.
func (w Walker) Walk(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		pattern := w.pattern()
		if err := ValidatePattern(pattern); err != nil {
			yield("", err)
			return
		}

		info, err := os.Stat(root)
		if err != nil {
			yield(root, fmt.Errorf("open root directory: %w", err))
			return
		}
		if !info.IsDir() {
			yield(root, fmt.Errorf("root %s is not a directory", root))
			return
		}

		stop := errors.New("stop")
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				w.Logger.DirectoryUnreadable(path, err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if path != root && !w.Recursive {
					return fs.SkipDir
				}
				w.Logger.DirectoryVisited(path)
				w.Metrics.DirectoryVisited()
				if w.Stats != nil {
					w.Stats.Directories++
				}
				return nil
			}

			if ok, _ := filepath.Match(pattern, d.Name()); !ok {
				return nil
			}
			if !IsDICOM(path) {
				w.Logger.FileSkipped(path, "no DICM signature")
				w.Metrics.FileSkipped()
				if w.Stats != nil {
					w.Stats.Skipped++
				}
				return nil
			}
			if !yield(path, nil) {
				return stop
			}
			return nil
		})
		if err != nil && !errors.Is(err, stop) {
			yield(root, fmt.Errorf("walk %s: %w", root, err))
		}
	}
}

// Files collects every candidate under root.
func (w Walker) Files(root string) ([]string, error) {
	var files []string
	for path, err := range w.Walk(root) {
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}
