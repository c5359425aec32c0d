package dicom

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// keyStripped lists the punctuation removed from attribute names to form
// column keys. Whitespace is removed separately.
const keyStripped = `'"/\[]()-`

// NormalizeKey turns an attribute name into a column key.
func NormalizeKey(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(keyStripped, r) {
			return -1
		}
		return r
	}, name)
}

// TagName returns the dictionary name of t. Attributes missing from the
// dictionary get a name built from their code so that they never share a
// column.
func TagName(t tag.Tag) string {
	if info, err := tag.Find(t); err == nil && info.Name != "" {
		return info.Name
	}
	if t.Group%2 == 1 {
		return fmt.Sprintf("Private %04X %04X", t.Group, t.Element)
	}
	return fmt.Sprintf("Unknown %04X %04X", t.Group, t.Element)
}
