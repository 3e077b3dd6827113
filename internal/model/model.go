// Package model defines core data structures for patternminer.
package model

// Level selects the normalization mode for a signature.
type Level string

const (
	// Abstract keeps structure only: identifiers and literals become
	// placeholder tokens, operators and keywords are kept verbatim.
	Abstract Level = "abstract"
	// Semantic is Abstract plus well-known API and method names replaced
	// with domain tags from the rule tables.
	Semantic Level = "semantic"
)

// MaxExamples caps the evidence list of a pattern, before and after merge.
const MaxExamples = 5

// ExcerptLen bounds the verbatim code excerpt stored per occurrence.
const ExcerptLen = 200

// Occurrence records one place a pattern was seen. The excerpt is for
// human review only and never participates in hashing or equality.
type Occurrence struct {
	File    string `json:"file_path"`
	Line    int    `json:"line_number"`
	Excerpt string `json:"concrete_code"`
}

// Pattern is one class of syntactic occurrences sharing a grouping
// signature. Semantic is empty when identical to Abstract.
type Pattern struct {
	Hash      string       `json:"hash"`
	Abstract  string       `json:"abstract_signature"`
	Semantic  string       `json:"semantic_signature,omitempty"`
	NodeKind  string       `json:"node_type"`
	Category  string       `json:"category"`
	Frequency int          `json:"frequency"`
	Examples  []Occurrence `json:"examples"`
}

// GroupingSignature returns the deduplication key for the pattern: the
// semantic signature when it carries a substitution, else the abstract one.
func (p *Pattern) GroupingSignature() string {
	if p.Semantic != "" && p.Semantic != p.Abstract {
		return p.Semantic
	}
	return p.Abstract
}

// Table is the per-unit pattern map produced by one extraction pass.
// A table is owned exclusively by the walk that populates it.
type Table struct {
	Unit     string              `json:"unit"`
	Patterns map[string]*Pattern `json:"patterns"`
	Stats    UnitStats           `json:"stats"`
}

// NewTable returns an empty table for the named unit (a file path at the
// file level, a repository name above it).
func NewTable(unit string) *Table {
	return &Table{
		Unit:     unit,
		Patterns: make(map[string]*Pattern),
		Stats:    UnitStats{SkipReasons: make(map[string]int)},
	}
}

// UnitStats accumulates bookkeeping for one unit's extraction.
type UnitStats struct {
	FilesProcessed    int            `json:"files_processed"`
	FilesSkipped      int            `json:"files_skipped"`
	ParseErrors       int            `json:"parse_errors"`
	PatternsExtracted int            `json:"patterns_extracted"`
	SkipReasons       map[string]int `json:"skip_reasons,omitempty"`
}

// Skip records one skipped file under the given reason.
func (s *UnitStats) Skip(reason string) {
	s.FilesSkipped++
	if s.SkipReasons == nil {
		s.SkipReasons = make(map[string]int)
	}
	s.SkipReasons[reason]++
}

// Merge folds other into s.
func (s *UnitStats) Merge(other UnitStats) {
	s.FilesProcessed += other.FilesProcessed
	s.FilesSkipped += other.FilesSkipped
	s.ParseErrors += other.ParseErrors
	s.PatternsExtracted += other.PatternsExtracted
	for reason, n := range other.SkipReasons {
		if s.SkipReasons == nil {
			s.SkipReasons = make(map[string]int)
		}
		s.SkipReasons[reason] += n
	}
}

// RankedPattern is one row of an aggregated, ordered pattern table.
type RankedPattern struct {
	Rank           int          `json:"rank"`
	Hash           string       `json:"pattern_hash"`
	Abstract       string       `json:"abstract_signature"`
	Semantic       string       `json:"semantic_signature,omitempty"`
	NodeKind       string       `json:"node_type"`
	Category       string       `json:"category"`
	TotalFrequency int          `json:"total_frequency"`
	UnitCount      int          `json:"repo_count"`
	PrevalencePct  float64      `json:"prevalence_pct"`
	Units          []string     `json:"repos_list,omitempty"`
	Examples       []Occurrence `json:"examples"`
}

// Report is a complete ranked pattern table ready for export.
type Report struct {
	Repository string          `json:"repository"`
	UnitCount  int             `json:"unit_count"`
	Patterns   []RankedPattern `json:"patterns"`
	Stats      UnitStats       `json:"stats"`
}

// TotalOccurrences sums frequency over all ranked rows.
func (r *Report) TotalOccurrences() int {
	total := 0
	for i := range r.Patterns {
		total += r.Patterns[i].TotalFrequency
	}
	return total
}
