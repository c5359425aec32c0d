package table

import (
	"maps"
	"slices"
)

// RecordTable is the rectangular view of a list of records: one row per
// record, one column per key seen in any record.
type RecordTable struct {
	columns  []string
	colIndex map[string]int
	records  []Record
	rows     [][]Value
}

// Columns computes the column union of records. Filename and ReadError
// come first and always exist; the other keys follow in lexical order.
func Columns(records []Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for _, f := range r.fields {
			seen[f.Key] = struct{}{}
		}
	}
	delete(seen, FilenameColumn)
	delete(seen, ReadErrorColumn)
	return append([]string{FilenameColumn, ReadErrorColumn}, slices.Sorted(maps.Keys(seen))...)
}

// NewRecordTable materializes records. Keys missing from a row are Null.
func NewRecordTable(records []Record) *RecordTable {
	return newRecordTable(Columns(records), records)
}

// NewRecordTableWithColumns materializes records against a known column
// order, as restored from a database. Columns missing from the list but
// present in a record are appended in lexical order.
func NewRecordTableWithColumns(columns []string, records []Record) *RecordTable {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	extra := make(map[string]struct{})
	for _, r := range records {
		for _, f := range r.fields {
			if _, ok := known[f.Key]; !ok {
				extra[f.Key] = struct{}{}
			}
		}
	}
	cols := append(slices.Clone(columns), slices.Sorted(maps.Keys(extra))...)
	return newRecordTable(cols, records)
}

func newRecordTable(columns []string, records []Record) *RecordTable {
	t := &RecordTable{
		columns:  columns,
		colIndex: make(map[string]int, len(columns)),
		records:  slices.Clone(records),
		rows:     make([][]Value, len(records)),
	}
	for i, c := range columns {
		t.colIndex[c] = i
	}
	for i, r := range records {
		row := make([]Value, len(columns))
		for _, f := range r.fields {
			row[t.colIndex[f.Key]] = f.Value
		}
		t.rows[i] = row
	}
	return t
}

// Columns returns a copy of the column names.
func (t *RecordTable) Columns() []string { return slices.Clone(t.columns) }

// HasColumn reports whether name is a column.
func (t *RecordTable) HasColumn(name string) bool {
	_, ok := t.colIndex[name]
	return ok
}

// Len returns the number of rows.
func (t *RecordTable) Len() int { return len(t.rows) }

// Row returns a copy of row i, one value per column.
func (t *RecordTable) Row(i int) []Value { return slices.Clone(t.rows[i]) }

// Value returns the cell at row i and the given column. Unknown columns
// read as Null.
func (t *RecordTable) Value(i int, column string) Value {
	c, ok := t.colIndex[column]
	if !ok {
		return Null()
	}
	return t.rows[i][c]
}

// Record returns the sparse record behind row i.
func (t *RecordTable) Record(i int) Record { return t.records[i] }

// Records returns the sparse records in row order.
func (t *RecordTable) Records() []Record { return slices.Clone(t.records) }

// Failures returns the indexes of rows carrying a read error.
func (t *RecordTable) Failures() []int {
	var out []int
	for i := range t.rows {
		if !t.Value(i, ReadErrorColumn).IsNull() {
			out = append(out, i)
		}
	}
	return out
}

// Equal reports whether both tables have the same columns and rows.
func (t *RecordTable) Equal(o *RecordTable) bool {
	if !slices.Equal(t.columns, o.columns) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.rows {
		if !slices.EqualFunc(t.rows[i], o.rows[i], Value.Equal) {
			return false
		}
	}
	return true
}
