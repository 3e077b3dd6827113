// Package extract walks one syntax tree and populates a per-unit
// pattern table. Each walk owns its table exclusively; concurrency, if
// any, happens one table per worker above this package.
package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/patternminer/internal/model"
	"github.com/phobologic/patternminer/internal/normalize"
	"github.com/phobologic/patternminer/internal/rules"
)

// patternKinds is the allow-list of pattern-bearing node kinds.
var patternKinds = map[string]struct{}{
	"call_expression":       {},
	"lexical_declaration":   {},
	"variable_declaration":  {},
	"arrow_function":        {},
	"function_declaration":  {},
	"method_definition":     {},
	"assignment_expression": {},
	"member_expression":     {},
	"await_expression":      {},
	"for_in_statement":      {},
	"for_of_statement":      {},
	"if_statement":          {},
	"try_statement":         {},
	"return_statement":      {},
	"class_declaration":     {},
	"new_expression":        {},
	"import_statement":      {},
	"export_statement":      {},
}

// Options tunes extraction eligibility.
type Options struct {
	// MinComplexity is the minimum structural complexity score
	// (normalize.Complexity) a node needs before it is extracted.
	MinComplexity int
}

// DefaultOptions suppresses trivial one-token patterns while keeping
// simple two-level shapes.
func DefaultOptions() Options {
	return Options{MinComplexity: 2}
}

// Eligible reports whether node should be extracted as a pattern: its
// kind must be on the allow-list, it must not be malformed, and it must
// meet the complexity floor.
func Eligible(node *sitter.Node, opts Options) bool {
	if _, ok := patternKinds[node.Type()]; !ok {
		return false
	}
	if node.HasError() {
		return false
	}
	return normalize.Complexity(node) >= opts.MinComplexity
}

// Outcome is the explicit result of one recording attempt, so a skipped
// node is observable instead of vanishing.
type Outcome int

const (
	// Recorded means the node contributed an occurrence to the table.
	Recorded Outcome = iota
	// EmptySignature means the node normalized to nothing and was
	// skipped. Expected for malformed subtrees; never an error.
	EmptySignature
)

// Record normalizes one eligible node at both levels and folds it into
// the table: first sight of a hash creates the pattern, every sight
// increments frequency, and examples append until the cap.
func Record(t *model.Table, node *sitter.Node, source []byte, file string) Outcome {
	abstract := normalize.Signature(node, source, model.Abstract)
	if abstract == "" {
		return EmptySignature
	}
	semantic := normalize.Signature(node, source, model.Semantic)

	grouping := abstract
	if semantic != "" && semantic != abstract {
		grouping = semantic
	}
	hash := normalize.HashSignature(grouping)

	p, ok := t.Patterns[hash]
	if !ok {
		p = &model.Pattern{
			Hash:     hash,
			Abstract: abstract,
			Semantic: semantic,
			NodeKind: node.Type(),
			Category: rules.Categorize(abstract, semantic, node.Type()),
		}
		t.Patterns[hash] = p
	}

	p.Frequency++
	if len(p.Examples) < model.MaxExamples {
		p.Examples = append(p.Examples, model.Occurrence{
			File:    file,
			Line:    int(node.StartPoint().Row) + 1,
			Excerpt: excerpt(node, source),
		})
	}

	t.Stats.PatternsExtracted++
	return Recorded
}

// Walk traverses every node depth-first and records the eligible ones.
func Walk(t *model.Table, root *sitter.Node, source []byte, file string, opts Options) {
	if Eligible(root, opts) {
		Record(t, root, source, file)
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		Walk(t, root.Child(i), source, file, opts)
	}
}

// FilterTrivial removes low-value patterns from a finished table. It
// must run only after the walk completes so frequencies are final.
func FilterTrivial(t *model.Table) {
	for hash, p := range t.Patterns {
		if normalize.IsTrivial(p.Abstract, p.Frequency) {
			delete(t.Patterns, hash)
		}
	}
}

// excerpt truncates rune-safe so a multi-byte character is never split.
func excerpt(node *sitter.Node, source []byte) string {
	text := []rune(string(source[node.StartByte():node.EndByte()]))
	if len(text) > model.ExcerptLen {
		text = text[:model.ExcerptLen]
	}
	return string(text)
}
