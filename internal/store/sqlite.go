package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mrsinham/dicomtable/internal/table"
)

// ExportSQLite writes db to a new SQLite file at path with two tables:
// "tags" holds one row per tag descriptor, "records" one row per record
// table row and one column per record table column. Sequences are stored
// as text joined with a backslash.
func ExportSQLite(path string, db *Database) (err error) {
	if db == nil || db.Records == nil {
		return fmt.Errorf("nothing to export")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dicomtable-*.sqlite")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	sdb, err := sql.Open("sqlite", tmpPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", tmpPath, err)
	}
	err = exportTables(sdb, db)
	if closeErr := sdb.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close sqlite: %w", closeErr)
	}
	if err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename export: %w", err)
	}
	return nil
}

func exportTables(sdb *sql.DB, db *Database) error {
	tx, err := sdb.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := exportTags(tx, db.Tags); err != nil {
		return err
	}
	if err := exportRecords(tx, db.Records); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return nil
}

func exportTags(tx *sql.Tx, tags table.TagTable) error {
	schema := `
		CREATE TABLE tags (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			tag TEXT NOT NULL,
			grp INTEGER NOT NULL,
			element INTEGER NOT NULL,
			vr TEXT NOT NULL
		);
		CREATE INDEX idx_tags_tag ON tags(tag);
	`
	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("create tags table: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO tags (key, name, tag, grp, element, vr) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare tags insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, key := range tags.Keys() {
		d, _ := tags.Get(key)
		if _, err := stmt.Exec(key, d.Name, d.Tag, int64(d.Group), int64(d.Element), d.VR); err != nil {
			return fmt.Errorf("insert tag %s: %w", key, err)
		}
	}
	return nil
}

func exportRecords(tx *sql.Tx, records *table.RecordTable) error {
	columns := SQLColumns(records.Columns())

	defs := make([]string, len(columns))
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		defs[i] = quoted[i]
		marks[i] = "?"
	}
	create := fmt.Sprintf("CREATE TABLE records (%s)", strings.Join(defs, ", "))
	if _, err := tx.Exec(create); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}

	insert := fmt.Sprintf("INSERT INTO records (%s) VALUES (%s)",
		strings.Join(quoted, ", "), strings.Join(marks, ", "))
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return fmt.Errorf("prepare records insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(columns))
	for i := 0; i < records.Len(); i++ {
		for j, v := range records.Row(i) {
			args[j] = sqlValue(v)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return nil
}

// SQLColumns returns the SQLite column names for the given record table
// columns. SQLite compares identifiers case-insensitively, so a name that
// collides with an earlier one gets a numeric suffix.
func SQLColumns(columns []string) []string {
	seen := make(map[string]bool, len(columns))
	out := make([]string, len(columns))
	for i, c := range columns {
		name := c
		for n := 2; seen[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d", c, n)
		}
		seen[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlValue(v table.Value) any {
	switch v.Kind() {
	case table.KindNull:
		return nil
	case table.KindFloats:
		return v.String()
	}
	return v.Interface()
}
