// Package export serializes ranked pattern reports to on-disk formats
// and round-trips per-repository tables between orchestration runs.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/phobologic/patternminer/internal/aggregate"
	"github.com/phobologic/patternminer/internal/model"
)

type metadata struct {
	Repository       string `json:"repository"`
	GeneratedAt      string `json:"generated_at"`
	TotalPatterns    int    `json:"total_patterns"`
	TotalOccurrences int    `json:"total_occurrences"`
	UnitCount        int    `json:"unit_count"`
	FilesProcessed   int    `json:"files_processed"`
	FilesSkipped     int    `json:"files_skipped"`
	FilesWithErrors  int    `json:"files_with_errors"`
}

type jsonReport struct {
	Metadata metadata              `json:"metadata"`
	Patterns []model.RankedPattern `json:"patterns"`
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *model.Report) error {
	out := jsonReport{
		Metadata: metadata{
			Repository:       r.Repository,
			GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
			TotalPatterns:    len(r.Patterns),
			TotalOccurrences: r.TotalOccurrences(),
			UnitCount:        r.UnitCount,
			FilesProcessed:   r.Stats.FilesProcessed,
			FilesSkipped:     r.Stats.FilesSkipped,
			FilesWithErrors:  r.Stats.ParseErrors,
		},
		Patterns: r.Patterns,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteMarkdown writes a categorized human-readable report.
func WriteMarkdown(w io.Writer, r *model.Report) error {
	total := r.TotalOccurrences()

	fmt.Fprintf(w, "# Code Pattern Analysis\n\n")
	fmt.Fprintf(w, "**Repository:** `%s`\n\n", r.Repository)
	fmt.Fprintf(w, "**Files Processed:** %d\n\n", r.Stats.FilesProcessed)
	fmt.Fprintf(w, "**Total Unique Patterns:** %d\n\n", len(r.Patterns))
	fmt.Fprintf(w, "**Total Occurrences:** %d\n\n", total)
	fmt.Fprintf(w, "---\n\n")

	byCategory := make(map[string][]*model.RankedPattern)
	for i := range r.Patterns {
		p := &r.Patterns[i]
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	fmt.Fprintf(w, "## Category Summary\n\n")
	fmt.Fprintf(w, "| Category | Patterns | Total Occurrences |\n")
	fmt.Fprintf(w, "|----------|----------|-------------------|\n")
	for _, c := range categories {
		freq := 0
		for _, p := range byCategory[c] {
			freq += p.TotalFrequency
		}
		fmt.Fprintf(w, "| %s | %d | %d |\n", c, len(byCategory[c]), freq)
	}
	fmt.Fprintf(w, "\n---\n\n")

	for _, c := range categories {
		fmt.Fprintf(w, "## %s\n\n", c)
		for _, p := range byCategory[c] {
			fmt.Fprintf(w, "### %d. %s\n\n", p.Rank, p.Abstract)
			fmt.Fprintf(w, "- **Frequency:** %d", p.TotalFrequency)
			if total > 0 {
				fmt.Fprintf(w, " (%.2f%%)", float64(p.TotalFrequency)/float64(total)*100)
			}
			fmt.Fprintf(w, "\n")
			if p.UnitCount > 0 {
				fmt.Fprintf(w, "- **Prevalence:** %.1f%% (%d units)\n", p.PrevalencePct, p.UnitCount)
			}
			fmt.Fprintf(w, "- **Node Type:** `%s`\n", p.NodeKind)
			if p.Semantic != "" && p.Semantic != p.Abstract {
				fmt.Fprintf(w, "- **Semantic:** `%s`\n", p.Semantic)
			}
			fmt.Fprintf(w, "\n")

			if len(p.Examples) > 0 {
				fmt.Fprintf(w, "**Examples:**\n\n")
				for _, ex := range p.Examples[:minInt(2, len(p.Examples))] {
					fmt.Fprintf(w, "```javascript\n%s\n```\n", ex.Excerpt)
					fmt.Fprintf(w, "*%s:%d*\n\n", ex.File, ex.Line)
				}
			}
		}
		fmt.Fprintf(w, "---\n\n")
	}

	return nil
}

// WriteCategoryCSV writes the per-category rollup.
func WriteCategoryCSV(w io.Writer, r *model.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"category", "pattern_count", "total_frequency", "avg_unit_count"}); err != nil {
		return err
	}
	for _, s := range aggregate.Summarize(r) {
		row := []string{
			s.Category,
			strconv.Itoa(s.PatternCount),
			strconv.Itoa(s.TotalFrequency),
			strconv.FormatFloat(s.AvgUnitCount, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveTable writes a per-repository pattern table as JSON, atomically.
func SaveTable(path string, t *model.Table) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding table: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadTable reads a table written by SaveTable.
func LoadTable(path string) (*model.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	var t model.Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decoding table %s: %w", filepath.Base(path), err)
	}
	if t.Patterns == nil {
		t.Patterns = make(map[string]*model.Pattern)
	}
	return &t, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
