// patternminer mines recurring syntactic idioms from JavaScript-family
// source trees and reports them as ranked pattern tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/patternminer/internal/aggregate"
	"github.com/phobologic/patternminer/internal/export"
	"github.com/phobologic/patternminer/internal/extract"
	"github.com/phobologic/patternminer/internal/lang"
	"github.com/phobologic/patternminer/internal/mine"
	"github.com/phobologic/patternminer/internal/model"
	"github.com/phobologic/patternminer/internal/rules"
	"github.com/phobologic/patternminer/internal/toon"
)

var version = "dev"

const defaultMaxFileSize = 2_000_000 // 2 MB

func main() {
	args := os.Args[1:]

	var err error
	switch {
	case len(args) > 0 && args[0] == "aggregate":
		err = runAggregate(args[1:], os.Stdout, os.Stderr)
	case len(args) > 0 && args[0] == "orchestrate":
		err = runOrchestrate(args[1:], os.Stdout, os.Stderr)
	case len(args) > 0 && args[0] == "init":
		err = runInit(args[1:], os.Stdout, os.Stderr)
	default:
		err = run(args, os.Stdout, os.Stderr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("patternminer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		topK          int
		langs         string
		format        string
		outputBase    string
		tablePath     string
		rulesFile     string
		minFreq       int
		minComplexity int
		maxFileSize   int
		workers       int
		showVersion   bool
	)

	fs.IntVar(&topK, "n", 0, "maximum number of patterns to report")
	fs.IntVar(&topK, "top-k", 0, "maximum number of patterns to report")
	fs.StringVar(&langs, "l", "", "comma-separated dialects to include")
	fs.StringVar(&langs, "langs", "", "comma-separated dialects to include")
	fs.StringVar(&format, "format", "toon", "output format: json, markdown, csv, toon, or all")
	fs.StringVar(&outputBase, "o", "", "output base path (required for -format all)")
	fs.StringVar(&outputBase, "output", "", "output base path (required for -format all)")
	fs.StringVar(&tablePath, "table", "", "also save the raw pattern table as JSON for later aggregation")
	fs.StringVar(&rulesFile, "rules", "", "YAML file extending anchors, method tags, and categories")
	fs.IntVar(&minFreq, "min-freq", 0, "drop patterns with total frequency below this")
	fs.IntVar(&minComplexity, "min-complexity", extract.DefaultOptions().MinComplexity, "minimum node complexity score to extract")
	fs.IntVar(&maxFileSize, "max-file-size", defaultMaxFileSize, "skip files larger than this many bytes")
	fs.IntVar(&workers, "workers", 0, "extraction workers (default GOMAXPROCS)")
	fs.BoolVar(&showVersion, "V", false, "show version and exit")
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "patternminer %s\n", version)
		return nil
	}

	if !validFormat(format) {
		return fmt.Errorf("unsupported format %q", format)
	}
	if format == "all" && outputBase == "" {
		return fmt.Errorf("-format all requires -o")
	}

	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", root)
	}

	dialectFilter, err := parseDialects(langs)
	if err != nil {
		return err
	}

	if rulesFile != "" {
		if err := rules.LoadExtensions(rulesFile); err != nil {
			return fmt.Errorf("loading rules: %w", err)
		}
	}

	opts := mine.Options{
		Dialects:    dialectFilter,
		MaxFileSize: int64(maxFileSize),
		Workers:     workers,
		Extract:     extract.Options{MinComplexity: minComplexity},
		Thresholds:  aggregate.Thresholds{MinFrequency: minFreq},
		Warnings:    stderr,
	}

	report, err := mine.Repository(context.Background(), root, filepath.Base(root), opts)
	if err != nil {
		return err
	}

	if tablePath != "" {
		t := aggregate.ToTable(report.Repository, report)
		if err := export.SaveTable(tablePath, t); err != nil {
			return fmt.Errorf("saving table: %w", err)
		}
	}

	aggregate.TopK(report, topK)

	return writeReport(report, format, outputBase, stdout)
}

func validFormat(format string) bool {
	switch format {
	case "json", "markdown", "csv", "toon", "all":
		return true
	}
	return false
}

func parseDialects(langs string) ([]string, error) {
	if langs == "" {
		return nil, nil
	}
	var filter []string
	for _, name := range strings.Split(langs, ",") {
		name = strings.TrimSpace(name)
		if _, ok := lang.Dialects[name]; !ok {
			return nil, fmt.Errorf("unsupported dialect %q", name)
		}
		filter = append(filter, name)
	}
	return filter, nil
}

// writeReport fans a report out to the requested format(s). A single
// format goes to stdout unless -o names a file; "all" writes the full
// set next to the output base.
func writeReport(report *model.Report, format, outputBase string, stdout io.Writer) error {
	if format != "all" {
		w := stdout
		if outputBase != "" {
			f, err := os.Create(outputBase)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return writeFormat(w, report, format)
	}

	outputs := []struct{ ext, format string }{
		{".json", "json"},
		{".md", "markdown"},
		{".csv", "csv"},
		{".toon", "toon"},
	}
	for _, out := range outputs {
		path := outputBase + out.ext
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := writeFormat(f, report, out.format); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func writeFormat(w io.Writer, report *model.Report, format string) error {
	switch format {
	case "json":
		return export.WriteJSON(w, report)
	case "markdown":
		return export.WriteMarkdown(w, report)
	case "csv":
		return export.WriteCategoryCSV(w, report)
	case "toon":
		_, err := fmt.Fprintln(w, toon.Encode(report))
		return err
	}
	return fmt.Errorf("unsupported format %q", format)
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-n": true, "--n": true,
	"-top-k": true, "--top-k": true,
	"-l": true, "--l": true,
	"-langs": true, "--langs": true,
	"-format": true, "--format": true,
	"-o": true, "--o": true,
	"-output": true, "--output": true,
	"-table": true, "--table": true,
	"-rules": true, "--rules": true,
	"-min-freq": true, "--min-freq": true,
	"-min-complexity": true, "--min-complexity": true,
	"-max-file-size": true, "--max-file-size": true,
	"-workers": true, "--workers": true,
	"-name": true, "--name": true,
	"-min-repos": true, "--min-repos": true,
	"-config": true, "--config": true,
	"-repos": true, "--repos": true,
	"-max": true, "--max": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// sees every flag regardless of argument order.
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
