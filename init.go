package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	sentinelStart = "<!-- patternminer:start -->"
	sentinelEnd   = "<!-- patternminer:end -->"
)

// runInit implements the `patternminer init` subcommand, which writes (or
// updates) a patternminer usage section in a CLAUDE.md file.
func runInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("patternminer init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: patternminer init [flags] [path-to-CLAUDE.md]

Write a patternminer usage section to a CLAUDE.md file. The section is wrapped
in sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

path-to-CLAUDE.md defaults to ./CLAUDE.md.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && fs.NArg() == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := "CLAUDE.md"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote patternminer section to %s\n", path)
	return nil
}

// generateSection returns the full sentinel-wrapped patternminer documentation block.
func generateSection() string {
	body := `## patternminer — Idiom Mining

Run ` + "`patternminer`" + ` on a JavaScript or TypeScript codebase to get a ranked
table of its recurring syntactic idioms. Use it to learn a codebase's house
style before writing code that has to blend in.

**Availability:** Check with ` + "`patternminer --version`" + ` first; skip gracefully
if not found.

**Run it:**
` + "```" + `bash
patternminer                                 # current directory, all dialects
patternminer /path/to/repo                   # explicit path
patternminer -l typescript,tsx               # filter by dialect
patternminer -n 50                           # top 50 patterns only
patternminer -format markdown -o report.md   # human-readable report
patternminer -format all -o report           # report.{json,md,csv,toon}
` + "```" + `

**All flags:** ` + "`patternminer --help`" + `

**How to use the output — follow these rules:**

1. **Read the categories table first.** It shows which concern dominates the
   codebase (async flows, React hooks, error handling) before any single
   pattern matters.

2. **Prefer high-prevalence patterns over high-frequency ones.** A pattern in
   90% of files is house style; a pattern used 200 times in one file is not.

3. **Read the examples, not just the signatures.** Each pattern carries up to
   five concrete excerpts with file and line so you can see the idiom in situ.

4. **Mimic the top patterns when adding code.** New code that re-uses the
   ranked idioms reads as native to the repository.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
