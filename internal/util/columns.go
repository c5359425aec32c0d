// Package util provides column lookup helpers for record tables.
package util

import (
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// TagScope represents the DICOM hierarchy level an attribute belongs to.
type TagScope int

const (
	// ScopePatient indicates attributes shared by every image of a patient.
	ScopePatient TagScope = iota
	// ScopeStudy indicates attributes shared within a study.
	ScopeStudy
	// ScopeSeries indicates attributes shared within a series.
	ScopeSeries
	// ScopeImage indicates attributes that vary per image.
	ScopeImage
)

// String returns the string representation of a TagScope.
func (s TagScope) String() string {
	switch s {
	case ScopePatient:
		return "Patient"
	case ScopeStudy:
		return "Study"
	case ScopeSeries:
		return "Series"
	case ScopeImage:
		return "Image"
	default:
		return "Unknown"
	}
}

// ParseScope parses a scope name, case-insensitively.
func ParseScope(s string) (TagScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patient":
		return ScopePatient, nil
	case "study":
		return ScopeStudy, nil
	case "series":
		return ScopeSeries, nil
	case "image":
		return ScopeImage, nil
	default:
		return ScopeImage, fmt.Errorf("invalid scope: %s (valid: patient, study, series, image)", s)
	}
}

// ColumnInfo describes a well-known record table column.
type ColumnInfo struct {
	Name  string
	Tag   tag.Tag
	Scope TagScope
}

// wellKnown lists the columns shown by default, in display order.
var wellKnown = []ColumnInfo{
	{Name: "PatientName", Tag: tag.PatientName, Scope: ScopePatient},
	{Name: "PatientID", Tag: tag.PatientID, Scope: ScopePatient},
	{Name: "PatientBirthDate", Tag: tag.PatientBirthDate, Scope: ScopePatient},
	{Name: "PatientSex", Tag: tag.PatientSex, Scope: ScopePatient},

	{Name: "AccessionNumber", Tag: tag.AccessionNumber, Scope: ScopeStudy},
	{Name: "StudyDate", Tag: tag.StudyDate, Scope: ScopeStudy},
	{Name: "StudyDescription", Tag: tag.StudyDescription, Scope: ScopeStudy},
	{Name: "StudyInstanceUID", Tag: tag.StudyInstanceUID, Scope: ScopeStudy},
	{Name: "InstitutionName", Tag: tag.InstitutionName, Scope: ScopeStudy},

	{Name: "Modality", Tag: tag.Modality, Scope: ScopeSeries},
	{Name: "SeriesNumber", Tag: tag.SeriesNumber, Scope: ScopeSeries},
	{Name: "SeriesDescription", Tag: tag.SeriesDescription, Scope: ScopeSeries},
	{Name: "SeriesInstanceUID", Tag: tag.SeriesInstanceUID, Scope: ScopeSeries},
	{Name: "ProtocolName", Tag: tag.ProtocolName, Scope: ScopeSeries},
	{Name: "Manufacturer", Tag: tag.Manufacturer, Scope: ScopeSeries},

	{Name: "InstanceNumber", Tag: tag.InstanceNumber, Scope: ScopeImage},
	{Name: "SOPInstanceUID", Tag: tag.SOPInstanceUID, Scope: ScopeImage},
	{Name: "SliceLocation", Tag: tag.SliceLocation, Scope: ScopeImage},
	{Name: "SliceThickness", Tag: tag.SliceThickness, Scope: ScopeImage},
	{Name: "PixelSpacing", Tag: tag.PixelSpacing, Scope: ScopeImage},
}

// WellKnownColumns returns the well-known columns present in columns, in
// display order. When scopes is non-empty only those scopes are kept.
func WellKnownColumns(columns []string, scopes ...TagScope) []string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	keep := func(s TagScope) bool {
		if len(scopes) == 0 {
			return true
		}
		for _, want := range scopes {
			if s == want {
				return true
			}
		}
		return false
	}

	var out []string
	for _, info := range wellKnown {
		if present[info.Name] && keep(info.Scope) {
			out = append(out, info.Name)
		}
	}
	return out
}

// ResolveColumn returns the column of columns matching name. An exact
// match wins; otherwise the lookup is case-insensitive. If nothing matches,
// the error suggests the closest column name (using Levenshtein distance).
func ResolveColumn(columns []string, name string) (string, error) {
	name = strings.TrimSpace(name)
	for _, c := range columns {
		if c == name {
			return c, nil
		}
	}
	lower := strings.ToLower(name)
	for _, c := range columns {
		if strings.ToLower(c) == lower {
			return c, nil
		}
	}

	if suggestion := findClosestColumn(columns, lower); suggestion != "" {
		return "", fmt.Errorf("unknown column %q, did you mean %q?", name, suggestion)
	}
	return "", fmt.Errorf("unknown column %q", name)
}

// ResolveColumns resolves every name, stopping at the first unknown one.
func ResolveColumns(columns []string, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		c, err := ResolveColumn(columns, n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// findClosestColumn finds the closest matching column using Levenshtein distance.
// Returns empty string if no close match is found (distance > 5).
func findClosestColumn(columns []string, input string) string {
	const maxDistance = 5
	bestDistance := maxDistance + 1
	var bestMatch string

	for _, c := range columns {
		distance := levenshteinDistance(input, strings.ToLower(c))
		if distance < bestDistance {
			bestDistance = distance
			bestMatch = c
		}
	}

	if bestDistance <= maxDistance {
		return bestMatch
	}
	return ""
}

// levenshteinDistance calculates the Levenshtein distance between two strings.
// This is the minimum number of single-character edits (insertions, deletions,
// or substitutions) required to change one string into the other.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
