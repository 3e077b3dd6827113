// Package toon implements TOON (Token-Oriented Object Notation)
// encoding of a ranked pattern report.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/patternminer/internal/aggregate"
	"github.com/phobologic/patternminer/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a Report into TOON format.
func Encode(r *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("repository: %s", encodeValue(r.Repository)))
	parts = append(parts, fmt.Sprintf("units: %d", r.UnitCount))
	parts = append(parts, fmt.Sprintf("occurrences: %d", r.TotalOccurrences()))

	var patternRows [][]string
	for i := range r.Patterns {
		p := &r.Patterns[i]
		semantic := p.Semantic
		if semantic == p.Abstract {
			semantic = ""
		}
		patternRows = append(patternRows, []string{
			fmt.Sprintf("%d", p.Rank),
			p.Hash,
			p.Category,
			p.NodeKind,
			fmt.Sprintf("%d", p.TotalFrequency),
			fmt.Sprintf("%d", p.UnitCount),
			fmt.Sprintf("%.2f", p.PrevalencePct),
			p.Abstract,
			semantic,
		})
	}
	parts = append(parts, formatTabular("patterns",
		[]string{"rank", "hash", "category", "node", "frequency", "units", "prevalence", "abstract", "semantic"},
		patternRows))

	var catRows [][]string
	for _, s := range aggregate.Summarize(r) {
		catRows = append(catRows, []string{
			s.Category,
			fmt.Sprintf("%d", s.PatternCount),
			fmt.Sprintf("%d", s.TotalFrequency),
		})
	}
	parts = append(parts, formatTabular("categories",
		[]string{"category", "patterns", "occurrences"},
		catRows))

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
