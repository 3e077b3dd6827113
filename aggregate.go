package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/phobologic/patternminer/internal/aggregate"
	"github.com/phobologic/patternminer/internal/export"
	"github.com/phobologic/patternminer/internal/model"
)

// runAggregate implements the `patternminer aggregate` subcommand: it
// merges saved per-repository pattern tables into one corpus-level
// ranked report.
func runAggregate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("patternminer aggregate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		topK       int
		format     string
		outputBase string
		name       string
		minRepos   int
		minFreq    int
	)

	fs.IntVar(&topK, "n", 0, "maximum number of patterns to report")
	fs.IntVar(&topK, "top-k", 0, "maximum number of patterns to report")
	fs.StringVar(&format, "format", "toon", "output format: json, markdown, csv, toon, or all")
	fs.StringVar(&outputBase, "o", "", "output base path (required for -format all)")
	fs.StringVar(&outputBase, "output", "", "output base path (required for -format all)")
	fs.StringVar(&name, "name", "corpus", "label for the aggregated report")
	fs.IntVar(&minRepos, "min-repos", 0, "drop patterns seen in fewer repositories")
	fs.IntVar(&minFreq, "min-freq", 0, "drop patterns with total frequency below this")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: patternminer aggregate [flags] <tables-dir>

Merge per-repository pattern tables (written by the mine command's
-table flag, or by orchestrate) into one corpus-level ranked report.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if !validFormat(format) {
		return fmt.Errorf("unsupported format %q", format)
	}
	if format == "all" && outputBase == "" {
		return fmt.Errorf("-format all requires -o")
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("missing tables directory")
	}

	tables, err := loadTables(fs.Arg(0))
	if err != nil {
		return err
	}

	th := aggregate.Thresholds{MinUnits: minRepos, MinFrequency: minFreq}
	report, err := aggregate.Aggregate(name, tables, th)
	if err != nil {
		return err
	}
	aggregate.DropTrivial(report)
	aggregate.TopK(report, topK)

	return writeReport(report, format, outputBase, stdout)
}

// loadTables reads every *.json table under dir, sorted by path so the
// merge input order is reproducible.
func loadTables(dir string) ([]*model.Table, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no pattern tables found in %s", dir)
	}
	sort.Strings(paths)

	tables := make([]*model.Table, 0, len(paths))
	for _, path := range paths {
		t, err := export.LoadTable(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}
