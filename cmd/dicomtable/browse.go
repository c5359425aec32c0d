package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mrsinham/dicomtable/internal/scrape"
	"github.com/mrsinham/dicomtable/internal/store"
	"github.com/mrsinham/dicomtable/internal/table"
	"github.com/mrsinham/dicomtable/internal/util"
)

func runInfo(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("info", "<DB>", stderr)
	if err := parseArgs(fs, args, 1, 1); err != nil {
		return err
	}
	path := fs.Arg(0)

	db, err := store.Load(path)
	if err != nil {
		return err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, TitleStyle.Render("dicomtable info"))
	fmt.Fprintln(stdout, label("Database", path))
	fmt.Fprintln(stdout, label("Format", db.Meta.Format))
	fmt.Fprintln(stdout, label("Run ID", db.Meta.RunID))
	if !db.Meta.CreatedAt.IsZero() {
		fmt.Fprintln(stdout, label("Created", fmt.Sprintf("%s (%s)",
			db.Meta.CreatedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(db.Meta.CreatedAt))))
	}
	fmt.Fprintln(stdout, label("Size", humanize.Bytes(uint64(fi.Size()))))
	fmt.Fprintln(stdout, label("Rows", humanize.Comma(int64(db.Records.Len()))))
	fmt.Fprintln(stdout, label("Columns", strconv.Itoa(len(db.Records.Columns()))))
	fmt.Fprintln(stdout, label("Tags", strconv.Itoa(db.Tags.Len())))
	fmt.Fprintln(stdout, label("Failures", strconv.Itoa(len(db.Records.Failures()))))
	fmt.Fprintln(stdout, label("Checksum", db.Meta.Checksum))
	return nil
}

func runShow(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("show", "<DB> [options]", stderr)
	columns := fs.StringSlice("columns", nil, "Columns to show, comma-separated (case-insensitive)")
	all := fs.Bool("all", false, "Show every column")
	scopes := fs.StringSlice("scope", nil, "Well-known columns to show: patient, study, series, image")
	errorsOnly := fs.Bool("errors", false, "Show only files that failed to decode")
	limit := fs.IntP("limit", "n", 0, "Show at most N rows (0 = all)")
	if err := parseArgs(fs, args, 1, 1); err != nil {
		return err
	}

	db, err := store.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	records := db.Records

	var selected []string
	switch {
	case len(*columns) > 0:
		selected, err = util.ResolveColumns(records.Columns(), *columns)
		if err != nil {
			return err
		}
	case *all:
		selected = records.Columns()
	default:
		var parsed []util.TagScope
		for _, s := range *scopes {
			scope, err := util.ParseScope(s)
			if err != nil {
				return err
			}
			parsed = append(parsed, scope)
		}
		selected = append([]string{table.FilenameColumn, table.ReadErrorColumn},
			util.WellKnownColumns(records.Columns(), parsed...)...)
	}

	var rows []int
	if *errorsOnly {
		rows = records.Failures()
	} else {
		for i := 0; i < records.Len(); i++ {
			rows = append(rows, i)
		}
	}
	total := len(rows)
	if *limit > 0 && len(rows) > *limit {
		rows = rows[:*limit]
	}

	headers := append([]string{"#"}, selected...)
	cells := make([][]string, len(rows))
	failed := make([]bool, len(rows))
	for i, row := range rows {
		line := []string{strconv.Itoa(row + 1)}
		for _, c := range selected {
			s := records.Value(row, c).String()
			if c != table.FilenameColumn {
				s = truncate(s, maxCellWidth)
			}
			line = append(line, s)
		}
		cells[i] = line
		_, failed[i] = records.Record(row).ReadError()
	}

	fmt.Fprintln(stdout, newTable(headers, cells, func(row int) bool { return failed[row] }))
	summary := fmt.Sprintf("%d rows", total)
	if len(rows) < total {
		summary = fmt.Sprintf("showing %d of %d rows", len(rows), total)
	}
	fmt.Fprintln(stdout, SubtitleStyle.Render(summary))
	return nil
}

func runTags(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("tags", "<DB> [options]", stderr)
	grep := fs.String("grep", "", "Show only tags whose key or name contains this text")
	if err := parseArgs(fs, args, 1, 1); err != nil {
		return err
	}

	db, err := store.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	needle := strings.ToLower(*grep)
	var cells [][]string
	for _, key := range db.Tags.Keys() {
		d, _ := db.Tags.Get(key)
		if needle != "" &&
			!strings.Contains(strings.ToLower(key), needle) &&
			!strings.Contains(strings.ToLower(d.Name), needle) {
			continue
		}
		cells = append(cells, []string{key, d.Tag, d.VR, d.Name})
	}

	fmt.Fprintln(stdout, newTable([]string{"Key", "Tag", "VR", "Name"}, cells, nil))
	fmt.Fprintln(stdout, SubtitleStyle.Render(fmt.Sprintf("%d tags", len(cells))))
	return nil
}

func runFile(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("file", "<PATH> [options]", stderr)
	coerce := fs.Bool("coerce", true, "Convert common fields to numbers")
	if err := parseArgs(fs, args, 1, 1); err != nil {
		return err
	}

	opts := scrape.DefaultOptions()
	opts.Coerce = *coerce
	rec, readErr := scrape.File(fs.Arg(0), opts)

	var cells [][]string
	for _, f := range rec.Fields() {
		cells = append(cells, []string{f.Key, f.Value.Kind().String(), truncate(f.Value.String(), 2*maxCellWidth)})
	}
	fmt.Fprintln(stdout, newTable([]string{"Key", "Type", "Value"}, cells, func(row int) bool {
		return cells[row][0] == table.ReadErrorColumn
	}))
	return readErr
}

func runExport(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("export", "<DB> <OUT.sqlite>", stderr)
	if err := parseArgs(fs, args, 2, 2); err != nil {
		return err
	}

	db, err := store.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := store.ExportSQLite(fs.Arg(1), db); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintln(stdout, SuccessStyle.Render(fmt.Sprintf("✓ Exported %d rows to %s", db.Records.Len(), fs.Arg(1))))
	return nil
}
