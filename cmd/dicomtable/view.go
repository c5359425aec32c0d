package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/kballard/go-shellquote"

	"github.com/mrsinham/dicomtable/internal/store"
	"github.com/mrsinham/dicomtable/internal/table"
	"github.com/mrsinham/dicomtable/internal/viewer"
)

func runView(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("view", "<DB> [ROW...] [options]", stderr)
	configPath := fs.StringP("config", "c", "", "Load the viewer command from YAML file")
	command := fs.String("viewer", "", "Viewer command line (default: "+viewer.DefaultCommand+")")
	pick := fs.Bool("pick", false, "Choose rows interactively")
	dryRun := fs.Bool("dry-run", false, "Print the viewer command instead of running it")
	if err := parseArgs(fs, args, 1, -1); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	launcher := cfg.Launcher()
	if fs.Changed("viewer") {
		launcher.Command = *command
	}

	db, err := store.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	var rows []int
	switch {
	case *pick:
		rows, err = pickRows(db.Records)
	case fs.NArg() > 1:
		rows, err = parseRows(fs.Args()[1:], db.Records.Len())
	default:
		rows = decodedRows(db.Records)
	}
	if err != nil {
		return err
	}

	paths := make([]string, len(rows))
	for i, row := range rows {
		paths[i] = db.Records.Record(row).Filename()
	}

	cmd, err := viewer.Command(launcher, paths)
	if err != nil {
		return err
	}
	if *dryRun {
		fmt.Fprintln(stdout, shellquote.Join(cmd.Args...))
		return nil
	}
	if err := viewer.Launch(launcher, paths); err != nil {
		return err
	}
	fmt.Fprintln(stdout, SuccessStyle.Render(fmt.Sprintf("✓ Opened %d files in %s", len(paths), filepath.Base(cmd.Args[0]))))
	return nil
}

// parseRows converts 1-based row numbers, as printed by show, to indexes.
func parseRows(args []string, n int) ([]int, error) {
	rows := make([]int, 0, len(args))
	for _, a := range args {
		row, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid row %q", a)
		}
		if row < 1 || row > n {
			return nil, fmt.Errorf("row %d out of range (1-%d)", row, n)
		}
		rows = append(rows, row-1)
	}
	return rows, nil
}

// decodedRows returns every row that decoded without error.
func decodedRows(records *table.RecordTable) []int {
	var rows []int
	for i := 0; i < records.Len(); i++ {
		if _, failed := records.Record(i).ReadError(); !failed {
			rows = append(rows, i)
		}
	}
	return rows
}

// pickRows asks which rows to open.
func pickRows(records *table.RecordTable) ([]int, error) {
	if records.Len() == 0 {
		return nil, errors.New("database has no rows")
	}

	options := make([]huh.Option[int], records.Len())
	for i := range options {
		options[i] = huh.NewOption(rowLabel(records, i), i)
	}

	var selected []int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[int]().
				Title("Files to open").
				Description("Space to select, enter to confirm").
				Options(options...).
				Height(15).
				Value(&selected).
				Validate(func(s []int) error {
					if len(s) == 0 {
						return errors.New("select at least one file")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}
	return selected, nil
}

func rowLabel(records *table.RecordTable, i int) string {
	rec := records.Record(i)
	s := fmt.Sprintf("%4d  %s", i+1, filepath.Base(rec.Filename()))
	if v, ok := rec.Get("SliceLocation"); ok && !v.IsNull() {
		s += "  @ " + v.String()
	}
	if msg, failed := rec.ReadError(); failed {
		s += "  (" + truncate(msg, maxCellWidth) + ")"
	}
	return s
}
