package table

import (
	"fmt"
	"maps"
	"slices"
)

// TagDescriptor describes the DICOM attribute behind a column.
type TagDescriptor struct {
	Name    string `json:"name"`
	Group   uint16 `json:"group"`
	Element uint16 `json:"element"`
	Tag     string `json:"tag"`
	VR      string `json:"vr"`
}

// NewTagDescriptor fills in the canonical tag string.
func NewTagDescriptor(name string, group, element uint16, vr string) TagDescriptor {
	return TagDescriptor{
		Name:    name,
		Group:   group,
		Element: element,
		Tag:     HexPair(group, element),
		VR:      vr,
	}
}

// HexPair formats a tag as lowercase, zero-padded "gggg_eeee".
func HexPair(group, element uint16) string {
	return fmt.Sprintf("%04x_%04x", group, element)
}

// AliasKey returns the column key addressing a tag by its code, "Xgggg_eeee".
func AliasKey(group, element uint16) string {
	return "X" + HexPair(group, element)
}

// TagTable maps normalized keys to tag descriptors.
type TagTable struct {
	entries map[string]TagDescriptor
}

// NewTagTable returns an empty tag table.
func NewTagTable() TagTable {
	return TagTable{entries: make(map[string]TagDescriptor)}
}

// Set stores d under key, replacing any previous descriptor.
func (t *TagTable) Set(key string, d TagDescriptor) {
	if t.entries == nil {
		t.entries = make(map[string]TagDescriptor)
	}
	t.entries[key] = d
}

// Get returns the descriptor stored under key.
func (t TagTable) Get(key string) (TagDescriptor, bool) {
	d, ok := t.entries[key]
	return d, ok
}

// Len returns the number of entries.
func (t TagTable) Len() int { return len(t.entries) }

// Keys returns the keys in lexical order.
func (t TagTable) Keys() []string {
	return slices.Sorted(maps.Keys(t.entries))
}

// Merge copies every entry of other into t. Entries of other win.
func (t *TagTable) Merge(other TagTable) {
	for k, d := range other.entries {
		t.Set(k, d)
	}
}

// Equal reports whether both tables hold the same entries.
func (t TagTable) Equal(o TagTable) bool {
	return maps.Equal(t.entries, o.entries)
}
