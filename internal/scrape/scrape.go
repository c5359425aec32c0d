package scrape

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomtable/internal/dicom"
	"github.com/mrsinham/dicomtable/internal/store"
	"github.com/mrsinham/dicomtable/internal/table"
)

// sliceLocationKey is the column rows are sorted on.
var sliceLocationKey = dicom.NormalizeKey(dicom.TagName(tag.SliceLocation))

// Stats summarizes a scrape.
type Stats struct {
	Directories int
	Candidates  int
	Skipped     int
	Decoded     int
	Failed      int
	Duration    time.Duration
}

// Result is the output of a scrape.
type Result struct {
	RunID   string
	Tags    table.TagTable
	Records *table.RecordTable
	Stats   Stats
}

// Outcome is the result of decoding one file: either a record with its tag
// descriptors, or a placeholder record and the decode error.
type Outcome struct {
	Record table.Record
	Tags   table.TagTable
	Err    error
}

// Run scrapes opts.Root. A file that fails to decode becomes a row with a
// ReadError and never aborts the scrape; only walk and save errors are
// returned. When opts.Output is set the tables are also saved there.
func Run(opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	opts.Logger = opts.Logger.WithRun(runID)

	var walkStats dicom.WalkStats
	walker := opts.walker()
	walker.Stats = &walkStats
	paths, err := walker.Files(opts.Root)
	if err != nil {
		return nil, err
	}

	outcomes := decodeAll(paths, opts)

	stats := Stats{
		Directories: walkStats.Directories,
		Candidates:  len(paths),
		Skipped:     walkStats.Skipped,
	}
	tags := table.NewTagTable()
	records := make([]table.Record, 0, len(outcomes))
	for _, out := range outcomes {
		if out.Err != nil {
			stats.Failed++
		} else {
			stats.Decoded++
			tags.Merge(out.Tags)
		}
		records = append(records, out.Record)
	}

	if opts.SortSliceLocation {
		SortBySliceLocation(records)
	}

	result := &Result{
		RunID:   runID,
		Tags:    tags,
		Records: table.NewRecordTable(records),
	}
	stats.Duration = time.Since(start)
	result.Stats = stats

	opts.Logger.ScrapeCompleted(result.Records.Len(), len(result.Records.Columns()), stats.Failed, stats.Duration)
	opts.Metrics.ScrapeCompleted(result.Records.Len(), len(result.Records.Columns()), stats.Duration)

	if opts.Output != "" {
		db := &store.Database{
			Meta:    store.Meta{RunID: runID, CreatedAt: time.Now().UTC()},
			Tags:    result.Tags,
			Records: result.Records,
		}
		if err := store.Save(opts.Output, db); err != nil {
			return result, fmt.Errorf("save database: %w", err)
		}
		opts.Logger.DatabaseSaved(opts.Output, result.Records.Len())
	}
	return result, nil
}

// File scrapes a single file and returns its row. A file that cannot be
// decoded yields its placeholder row together with the error.
func File(path string, opts Options) (table.Record, error) {
	out := decodeFile(path, opts)
	return out.Record, out.Err
}

// decodeAll decodes paths and returns the outcomes in path order.
func decodeAll(paths []string, opts Options) []Outcome {
	outcomes := make([]Outcome, len(paths))

	workers := min(opts.Workers, len(paths))
	if workers <= 1 {
		for i, path := range paths {
			outcomes[i] = decodeFile(path, opts)
		}
		return outcomes
	}

	type task struct {
		index int
		path  string
	}
	type result struct {
		index   int
		outcome Outcome
	}

	taskChan := make(chan task, len(paths))
	resultChan := make(chan result, len(paths))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskChan {
				resultChan <- result{index: t.index, outcome: decodeFile(t.path, opts)}
			}
		}()
	}

	for i, path := range paths {
		taskChan <- task{index: i, path: path}
	}
	close(taskChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for r := range resultChan {
		outcomes[r.index] = r.outcome
	}
	return outcomes
}

func decodeFile(path string, opts Options) Outcome {
	opts.Logger.FileProcessing(path)
	dec := opts.decoder()

	parsed, err := dicom.ReadFile(path)
	if err != nil {
		opts.Logger.FileFailed(path, err)
		opts.Metrics.FileFailed()
		return Outcome{Record: placeholder(path, dec.Identifying(parsed.Dataset()), err), Err: err}
	}

	rec, tags := dec.Decode(parsed.Dataset())
	rec.Set(table.FilenameColumn, table.String(path))
	opts.Logger.FileDecoded(path, tags.Len())
	opts.Metrics.FileDecoded()
	return Outcome{Record: rec, Tags: tags}
}

// placeholder builds the row of a file that failed to decode.
func placeholder(path string, identifying table.Record, err error) table.Record {
	rec := table.NewRecord(
		table.Field{Key: table.FilenameColumn, Value: table.String(path)},
		table.Field{Key: table.ReadErrorColumn, Value: table.String(err.Error())},
	)
	for _, f := range identifying.Fields() {
		if !rec.Has(f.Key) {
			rec.Set(f.Key, f.Value)
		}
	}
	return rec
}

// SortBySliceLocation stable-sorts records by SliceLocation. Rows without
// a numeric slice location sort first, in their original order. Uncoerced
// string locations are parsed.
func SortBySliceLocation(records []table.Record) {
	slices.SortStableFunc(records, func(a, b table.Record) int {
		la, oka := sliceLocation(a)
		lb, okb := sliceLocation(b)
		switch {
		case !oka && !okb:
			return 0
		case !oka:
			return -1
		case !okb:
			return 1
		case la < lb:
			return -1
		case la > lb:
			return 1
		}
		return 0
	})
}

func sliceLocation(r table.Record) (float64, bool) {
	v, ok := r.Get(sliceLocationKey)
	if !ok {
		return 0, false
	}
	if s, ok := v.Str(); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil && !math.IsNaN(f)
	}
	return v.Number()
}
