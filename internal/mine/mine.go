// Package mine runs the full extraction pipeline for one repository:
// discovery, concurrent per-file pattern extraction, and the
// file-to-repository aggregation pass.
package mine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/patternminer/internal/aggregate"
	"github.com/phobologic/patternminer/internal/discover"
	"github.com/phobologic/patternminer/internal/extract"
	"github.com/phobologic/patternminer/internal/lang"
	"github.com/phobologic/patternminer/internal/model"
)

// Options tunes one repository run.
type Options struct {
	// Dialects restricts mining to the named dialects when non-empty.
	Dialects []string
	// MaxFileSize skips files larger than this many bytes when > 0.
	MaxFileSize int64
	// Workers caps the extraction worker pool; <= 0 means GOMAXPROCS.
	Workers int
	// Extract tunes per-node eligibility.
	Extract extract.Options
	// Thresholds filter the merged repository table.
	Thresholds aggregate.Thresholds
	// Warnings receives non-fatal per-file diagnostics; nil discards.
	Warnings io.Writer
}

// DefaultOptions mines every supported dialect with the default
// complexity floor and a 2 MB file cap.
func DefaultOptions() Options {
	return Options{
		MaxFileSize: 2 * 1024 * 1024,
		Extract:     extract.DefaultOptions(),
	}
}

// Repository mines the source tree at root and returns the ranked,
// triviality-filtered repository report. repoName labels the report;
// units inside it are files.
func Repository(ctx context.Context, root, repoName string, opts Options) (*model.Report, error) {
	warnings := opts.Warnings
	if warnings == nil {
		warnings = io.Discard
	}

	files, skips, err := discover.Files(root, discover.Options{
		Dialects:    opts.Dialects,
		MaxFileSize: opts.MaxFileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no parseable files found in %s", root)
	}

	tables := extractConcurrent(ctx, root, files, opts, warnings)
	if len(tables) == 0 {
		return nil, fmt.Errorf("no files could be parsed in %s", root)
	}

	// Discovery-level skips belong to the unit's statistics too.
	report, err := aggregate.Aggregate(repoName, tables, opts.Thresholds)
	if err != nil {
		return nil, err
	}
	for reason, n := range skips {
		report.Stats.FilesSkipped += n
		if report.Stats.SkipReasons == nil {
			report.Stats.SkipReasons = make(map[string]int)
		}
		report.Stats.SkipReasons[reason] += n
	}

	aggregate.DropTrivial(report)
	return report, nil
}

func extractConcurrent(ctx context.Context, root string, files []discover.FileEntry, opts Options, warnings io.Writer) []*model.Table {
	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan *model.Table, len(files))

	var wg sync.WaitGroup
	var warnMu sync.Mutex

	warnf := func(format string, args ...any) {
		warnMu.Lock()
		fmt.Fprintf(warnings, format, args...)
		warnMu.Unlock()
	}

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own parsers
			parsers := make(map[string]*sitter.Parser)

			for idx := range work {
				f := files[idx]
				parser, ok := parsers[f.Dialect]
				if !ok {
					parser = lang.Dialects[f.Dialect].NewParser()
					parsers[f.Dialect] = parser
				}

				table := extractFile(ctx, root, f, parser, opts.Extract, warnf)
				if table != nil {
					results <- table
				}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	var tables []*model.Table
	for t := range results {
		tables = append(tables, t)
	}
	return tables
}

// extractFile owns its table exclusively for the duration of the walk.
// A panic mid-walk marks the file skipped and never crosses the unit
// boundary.
func extractFile(ctx context.Context, root string, f discover.FileEntry, parser *sitter.Parser, opts extract.Options, warnf func(string, ...any)) (table *model.Table) {
	table = model.NewTable(f.Path)

	defer func() {
		if r := recover(); r != nil {
			warnf("Warning: %s: extraction failed: %v\n", f.Path, r)
			table = model.NewTable(f.Path)
			table.Stats.Skip("extraction_error")
		}
	}()

	source, err := os.ReadFile(filepath.Join(root, f.Path))
	if err != nil {
		warnf("Warning: %s: %v\n", f.Path, err)
		table.Stats.Skip("read_error")
		return table
	}

	parsed, err := lang.Parse(ctx, parser, f.Dialect, source)
	if err != nil {
		warnf("Warning: %s: %v\n", f.Path, err)
		table.Stats.Skip(skipReason(err))
		return table
	}
	defer parsed.Tree.Close()

	extract.Walk(table, parsed.Tree.RootNode(), source, f.Path, opts)
	table.Stats.FilesProcessed = 1
	if parsed.Partial {
		table.Stats.ParseErrors = 1
	}
	return table
}

func skipReason(err error) string {
	if errors.Is(err, lang.ErrBinary) {
		return "binary"
	}
	return "parse_error"
}
