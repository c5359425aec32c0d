package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/mrsinham/dicomtable/internal/config"
	"github.com/mrsinham/dicomtable/internal/observability"
	"github.com/mrsinham/dicomtable/internal/scrape"
)

// loadConfig returns the configuration file at path, or the defaults when
// path is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromYAML(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func runScrape(args []string, stdout, stderr io.Writer) error {
	defaults := config.Default().Scrape

	fs := newFlagSet("scrape", "[ROOT] [options]", stderr)
	configPath := fs.StringP("config", "c", "", "Load options from YAML file (flags override it)")
	output := fs.StringP("output", "o", defaults.Output, "Database file to write")
	pattern := fs.StringP("pattern", "p", defaults.Pattern, "Glob matched against file names")
	recursive := fs.Bool("recursive", defaults.Recursive, "Descend into subdirectories")
	sortLocation := fs.Bool("sort-slice-location", defaults.SortSliceLocation, "Order rows by SliceLocation")
	coerce := fs.Bool("coerce", defaults.Coerce, "Convert common fields to numbers")
	workers := fs.IntP("workers", "w", defaults.Workers, "Parallel decoders (-1 = CPU cores)")
	verbose := fs.BoolP("verbose", "v", false, "Log progress to stderr")
	logJSON := fs.Bool("log-json", false, "Log JSON lines instead of console output")
	metricsFile := fs.String("metrics-file", "", "Write Prometheus metrics to this file")
	saveConfig := fs.String("save-config", "", "Save the effective configuration to YAML file (after scraping)")
	if err := parseArgs(fs, args, 0, 1); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "output":
			cfg.Scrape.Output = *output
		case "pattern":
			cfg.Scrape.Pattern = *pattern
		case "recursive":
			cfg.Scrape.Recursive = *recursive
		case "sort-slice-location":
			cfg.Scrape.SortSliceLocation = *sortLocation
		case "coerce":
			cfg.Scrape.Coerce = *coerce
		case "workers":
			cfg.Scrape.Workers = *workers
		case "verbose":
			cfg.Log.Verbose = *verbose
		case "log-json":
			cfg.Log.JSON = *logJSON
		case "metrics-file":
			cfg.Scrape.MetricsFile = *metricsFile
		}
	})
	if fs.NArg() == 1 {
		cfg.Scrape.Root = fs.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	opts := cfg.ScrapeOptions()
	opts.Logger = observability.NewLogger(stderr, observability.LogOptions{
		Verbose: cfg.Log.Verbose,
		JSON:    cfg.Log.JSON,
	})
	opts.Metrics = metrics

	result, err := scrape.Run(opts)
	if result == nil {
		return err
	}
	printScrapeSummary(stdout, opts, result, err == nil)

	if cfg.Scrape.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.Scrape.MetricsFile); werr != nil {
			err = errors.Join(err, fmt.Errorf("write metrics: %w", werr))
		}
	}
	if *saveConfig != "" && err == nil {
		if serr := config.SaveToYAML(cfg, *saveConfig); serr != nil {
			fmt.Fprintf(stderr, "Warning: could not save config: %v\n", serr)
		} else {
			fmt.Fprintf(stdout, "Configuration saved to %s\n", *saveConfig)
		}
	}
	return err
}

func printScrapeSummary(w io.Writer, opts scrape.Options, result *scrape.Result, saved bool) {
	s := result.Stats
	fmt.Fprintln(w, TitleStyle.Render("dicomtable scrape"))
	fmt.Fprintln(w, label("Root", opts.Root))
	fmt.Fprintln(w, label("Run ID", result.RunID))
	fmt.Fprintln(w, label("Files", fmt.Sprintf("%s scraped in %s directories: %d decoded, %d failed, %d skipped",
		humanize.Comma(int64(s.Candidates)), humanize.Comma(int64(s.Directories)), s.Decoded, s.Failed, s.Skipped)))
	fmt.Fprintln(w, label("Table", fmt.Sprintf("%d rows, %d columns, %d tags",
		result.Records.Len(), len(result.Records.Columns()), result.Tags.Len())))
	fmt.Fprintln(w, label("Duration", s.Duration.Round(time.Millisecond).String()))
	if opts.Output != "" && saved {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SuccessStyle.Render("✓ Database written to "+opts.Output))
	}
}
