package extract

import (
	"context"
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/patternminer/internal/lang"
	"github.com/phobologic/patternminer/internal/model"
)

func walkSource(t *testing.T, source string, opts Options) *model.Table {
	t.Helper()
	parser := lang.Dialects["javascript"].NewParser()
	res, err := lang.Parse(context.Background(), parser, "javascript", []byte(source))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer res.Tree.Close()

	table := model.NewTable("test.js")
	Walk(table, res.Tree.RootNode(), []byte(source), "test.js", opts)
	return table
}

func findBySemantic(t *model.Table, substr, kind string) *model.Pattern {
	for _, p := range t.Patterns {
		if p.NodeKind == kind && strings.Contains(p.Semantic, substr) {
			return p
		}
	}
	return nil
}

func TestWalkGroupsBySemanticSignature(t *testing.T) {
	t.Parallel()
	source := "const a = items.map(x => x * 2);\nconst b = values.map(y => y * 3);\n"
	table := walkSource(t, source, DefaultOptions())

	p := findBySemantic(table, "ARRAY_TRANSFORM", "call_expression")
	if p == nil {
		t.Fatal("no ARRAY_TRANSFORM call pattern recorded")
	}
	if p.Frequency != 2 {
		t.Errorf("frequency = %d, want 2", p.Frequency)
	}
	if len(p.Examples) != 2 {
		t.Fatalf("examples = %d, want 2", len(p.Examples))
	}
	if p.Examples[0].Line != 1 || p.Examples[1].Line != 2 {
		t.Errorf("example lines = %d, %d", p.Examples[0].Line, p.Examples[1].Line)
	}
	if !strings.Contains(p.Examples[0].Excerpt, "items.map") {
		t.Errorf("excerpt = %q", p.Examples[0].Excerpt)
	}
	if p.Abstract != "IDENTIFIER.map(() => BODY)" {
		t.Errorf("abstract = %q", p.Abstract)
	}
}

func TestWalkMergesDifferingAbstractsUnderOneTag(t *testing.T) {
	t.Parallel()
	// find and findIndex have distinct abstract signatures but share the
	// ARRAY_SEARCH tag, so the grouping key must be the semantic form.
	source := "const a = items.find(cb);\nconst b = items.findIndex(cb);\n"
	table := walkSource(t, source, DefaultOptions())

	p := findBySemantic(table, "ARRAY_SEARCH", "call_expression")
	if p == nil {
		t.Fatal("no ARRAY_SEARCH call pattern recorded")
	}
	if p.Frequency != 2 {
		t.Errorf("frequency = %d, want 2", p.Frequency)
	}
	if p.Abstract != "IDENTIFIER.find(IDENTIFIER)" {
		t.Errorf("abstract = %q", p.Abstract)
	}
	if q := findBySemantic(table, "findIndex", "call_expression"); q != nil {
		t.Errorf("findIndex call left ungrouped: %q", q.Semantic)
	}
}

func TestWalkCountsStats(t *testing.T) {
	t.Parallel()
	table := walkSource(t, "const a = items.map(x => x * 2);\n", DefaultOptions())

	if table.Stats.PatternsExtracted == 0 {
		t.Error("no patterns extracted")
	}
	if len(table.Patterns) == 0 {
		t.Error("pattern map empty")
	}
}

func TestExamplesCapped(t *testing.T) {
	t.Parallel()
	line := "items.map(x => x * 2);\n"
	table := walkSource(t, strings.Repeat(line, 7), DefaultOptions())

	p := findBySemantic(table, "ARRAY_TRANSFORM", "call_expression")
	if p == nil {
		t.Fatal("no ARRAY_TRANSFORM call pattern recorded")
	}
	if p.Frequency != 7 {
		t.Errorf("frequency = %d, want 7", p.Frequency)
	}
	if len(p.Examples) != model.MaxExamples {
		t.Errorf("examples = %d, want %d", len(p.Examples), model.MaxExamples)
	}
}

func TestEligibleRejectsUnlistedKinds(t *testing.T) {
	t.Parallel()
	parser := lang.Dialects["javascript"].NewParser()
	res, err := lang.Parse(context.Background(), parser, "javascript", []byte(`items.map(x => x * 2);`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer res.Tree.Close()

	root := res.Tree.RootNode()
	if Eligible(root, DefaultOptions()) {
		t.Error("program node should not be eligible")
	}

	var ident *sitter.Node
	var find func(n *sitter.Node)
	find = func(n *sitter.Node) {
		if ident != nil {
			return
		}
		if n.Type() == "identifier" {
			ident = n
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			find(n.Child(i))
		}
	}
	find(root)
	if ident == nil {
		t.Fatal("no identifier found")
	}
	if Eligible(ident, DefaultOptions()) {
		t.Error("bare identifier should not be eligible")
	}
}

func TestComplexityFloorFiltersShallowNodes(t *testing.T) {
	t.Parallel()
	table := walkSource(t, "f(x);\n", Options{MinComplexity: 4})

	if len(table.Patterns) != 0 {
		t.Errorf("got %d patterns, want 0 at complexity floor 4", len(table.Patterns))
	}
}

func TestRecordMalformedNode(t *testing.T) {
	t.Parallel()
	parser := lang.Dialects["javascript"].NewParser()
	res, err := lang.Parse(context.Background(), parser, "javascript", []byte(`const = ;`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer res.Tree.Close()

	table := model.NewTable("broken.js")
	outcome := Record(table, res.Tree.RootNode(), []byte(`const = ;`), "broken.js")
	if outcome != EmptySignature {
		t.Errorf("outcome = %v, want EmptySignature", outcome)
	}
	if len(table.Patterns) != 0 {
		t.Errorf("malformed node recorded %d patterns", len(table.Patterns))
	}
	if table.Stats.PatternsExtracted != 0 {
		t.Errorf("stats counted %d extractions", table.Stats.PatternsExtracted)
	}
}

func TestFilterTrivial(t *testing.T) {
	t.Parallel()
	table := model.NewTable("unit")
	table.Patterns["aa"] = &model.Pattern{Hash: "aa", Abstract: "IDENTIFIER", Frequency: 9}
	table.Patterns["bb"] = &model.Pattern{Hash: "bb", Abstract: "const IDENTIFIER = NUMBER", Frequency: 1}
	table.Patterns["cc"] = &model.Pattern{Hash: "cc", Abstract: "const IDENTIFIER = await fetch(STRING)", Frequency: 3}

	FilterTrivial(table)

	if _, ok := table.Patterns["aa"]; ok {
		t.Error("degenerate pattern survived")
	}
	if _, ok := table.Patterns["bb"]; ok {
		t.Error("single-occurrence pattern survived")
	}
	if _, ok := table.Patterns["cc"]; !ok {
		t.Error("real pattern was dropped")
	}
}
