package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "scrape":
		err = runScrape(rest, stdout, stderr)
	case "info":
		err = runInfo(rest, stdout, stderr)
	case "show":
		err = runShow(rest, stdout, stderr)
	case "tags":
		err = runTags(rest, stdout, stderr)
	case "file":
		err = runFile(rest, stdout, stderr)
	case "view":
		err = runView(rest, stdout, stderr)
	case "export":
		err = runExport(rest, stdout, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "dicomtable %s\n", version)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", command)
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name, usage string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  dicomtable %s %s\n\nOptions:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses args and checks the number of positional arguments.
func parseArgs(fs *pflag.FlagSet, args []string, minArgs, maxArgs int) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	n := fs.NArg()
	switch {
	case n < minArgs:
		fs.Usage()
		return fmt.Errorf("%s: expected at least %d argument(s), got %d", fs.Name(), minArgs, n)
	case maxArgs >= 0 && n > maxArgs:
		fs.Usage()
		return fmt.Errorf("%s: expected at most %d argument(s), got %d", fs.Name(), maxArgs, n)
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, TitleStyle.Render("dicomtable"))
	fmt.Fprintln(w, "Scrape the tags of a directory of DICOM files into a table.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dicomtable <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  scrape [ROOT]          Scrape ROOT (default: current directory) into a database")
	fmt.Fprintln(w, "  info <DB>              Summarize a database")
	fmt.Fprintln(w, "  show <DB>              Print the record table")
	fmt.Fprintln(w, "  tags <DB>              Print the tag table")
	fmt.Fprintln(w, "  file <PATH>            Print the tags of one DICOM file")
	fmt.Fprintln(w, "  view <DB> [ROW...]     Open rows in the image viewer")
	fmt.Fprintln(w, "  export <DB> <OUT>      Export a database to SQLite")
	fmt.Fprintln(w, "  version                Show version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'dicomtable <command> --help' for the options of a command.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  # Scrape a study, 4 files at a time")
	fmt.Fprintln(w, "  dicomtable scrape /data/study -o study.db --workers 4")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Show patient and series columns of failed files only")
	fmt.Fprintln(w, "  dicomtable show study.db --scope patient,series --errors")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Pick rows and open them in a custom viewer")
	fmt.Fprintln(w, "  dicomtable view study.db --pick --viewer 'weasis --fit'")
}
