package aggregate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phobologic/patternminer/internal/model"
)

const fetchSig = "const IDENTIFIER = await fetch(STRING)"

func tableWith(unit string, patterns ...*model.Pattern) *model.Table {
	t := model.NewTable(unit)
	for _, p := range patterns {
		t.Patterns[p.Hash] = p
	}
	return t
}

func pattern(hash, abstract string, freq int, examples ...model.Occurrence) *model.Pattern {
	return &model.Pattern{
		Hash:      hash,
		Abstract:  abstract,
		NodeKind:  "call_expression",
		Category:  "DATA_FETCHING",
		Frequency: freq,
		Examples:  examples,
	}
}

func TestAggregateSharedIdiom(t *testing.T) {
	t.Parallel()
	a := tableWith("repoA", pattern("f1", fetchSig, 3,
		model.Occurrence{File: "a.js", Line: 10, Excerpt: "const r = await fetch(url)"}))
	b := tableWith("repoB", pattern("f1", fetchSig, 2,
		model.Occurrence{File: "b.js", Line: 4, Excerpt: "const d = await fetch(api)"}))

	report, err := Aggregate("corpus", []*model.Table{a, b}, Thresholds{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if report.UnitCount != 2 {
		t.Errorf("unit count = %d, want 2", report.UnitCount)
	}
	if len(report.Patterns) != 1 {
		t.Fatalf("patterns = %d, want 1", len(report.Patterns))
	}
	row := report.Patterns[0]
	if row.TotalFrequency != 5 {
		t.Errorf("total frequency = %d, want 5", row.TotalFrequency)
	}
	if row.UnitCount != 2 {
		t.Errorf("pattern unit count = %d, want 2", row.UnitCount)
	}
	if row.PrevalencePct != 100 {
		t.Errorf("prevalence = %v, want 100", row.PrevalencePct)
	}
	if row.Rank != 1 {
		t.Errorf("rank = %d, want 1", row.Rank)
	}
	if len(row.Examples) != 2 {
		t.Errorf("examples = %d, want 2", len(row.Examples))
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	t.Parallel()
	mk := func() []*model.Table {
		return []*model.Table{
			tableWith("u1", pattern("h1", fetchSig, 3), pattern("h2", "IDENTIFIER(STRING)", 1)),
			tableWith("u2", pattern("h1", fetchSig, 2), pattern("h3", "new IDENTIFIER()", 4)),
			tableWith("u3", pattern("h2", "IDENTIFIER(STRING)", 6)),
		}
	}

	base, err := Aggregate("corpus", mk(), Thresholds{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	perms := [][]int{{0, 2, 1}, {1, 0, 2}, {2, 1, 0}}
	for _, perm := range perms {
		tables := mk()
		shuffled := make([]*model.Table, len(tables))
		for i, j := range perm {
			shuffled[i] = tables[j]
		}
		got, err := Aggregate("corpus", shuffled, Thresholds{})
		if err != nil {
			t.Fatalf("Aggregate(%v): %v", perm, err)
		}

		if len(got.Patterns) != len(base.Patterns) {
			t.Fatalf("perm %v: %d rows, want %d", perm, len(got.Patterns), len(base.Patterns))
		}
		for i := range base.Patterns {
			w, g := base.Patterns[i], got.Patterns[i]
			if g.Hash != w.Hash || g.TotalFrequency != w.TotalFrequency || g.UnitCount != w.UnitCount || g.Rank != w.Rank {
				t.Errorf("perm %v row %d: got %s/%d/%d/%d, want %s/%d/%d/%d",
					perm, i, g.Hash, g.TotalFrequency, g.UnitCount, g.Rank,
					w.Hash, w.TotalFrequency, w.UnitCount, w.Rank)
			}
		}
	}
}

func TestAggregateRankingTieBreak(t *testing.T) {
	t.Parallel()
	tbl := tableWith("u1",
		pattern("zz", "IDENTIFIER(STRING)", 3),
		pattern("aa", "new IDENTIFIER()", 3),
		pattern("mm", fetchSig, 9),
	)

	report, err := Aggregate("r", []*model.Table{tbl}, Thresholds{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	hashes := make([]string, len(report.Patterns))
	for i, p := range report.Patterns {
		hashes[i] = p.Hash
	}
	want := []string{"mm", "aa", "zz"}
	for i := range want {
		if hashes[i] != want[i] {
			t.Fatalf("order = %v, want %v", hashes, want)
		}
	}
	for i, p := range report.Patterns {
		if p.Rank != i+1 {
			t.Errorf("rank[%d] = %d", i, p.Rank)
		}
	}
}

func TestAggregateThresholdsMonotonic(t *testing.T) {
	t.Parallel()
	tables := []*model.Table{
		tableWith("u1", pattern("h1", fetchSig, 5), pattern("h2", "IDENTIFIER(STRING)", 1)),
		tableWith("u2", pattern("h1", fetchSig, 1)),
		tableWith("u3", pattern("h3", "new IDENTIFIER()", 2)),
	}

	strict, err := Aggregate("r", tables, Thresholds{MinUnits: 2, MinFrequency: 3})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	loose, err := Aggregate("r", tables, Thresholds{MinUnits: 1, MinFrequency: 1})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	looseHashes := make(map[string]struct{})
	for _, p := range loose.Patterns {
		looseHashes[p.Hash] = struct{}{}
	}
	for _, p := range strict.Patterns {
		if _, ok := looseHashes[p.Hash]; !ok {
			t.Errorf("row %s passed strict thresholds but not loose ones", p.Hash)
		}
	}
	if len(strict.Patterns) != 1 || strict.Patterns[0].Hash != "h1" {
		t.Errorf("strict rows = %+v, want only h1", strict.Patterns)
	}
}

func TestAggregateEvidenceBounded(t *testing.T) {
	t.Parallel()
	var tables []*model.Table
	for i := 0; i < 10; i++ {
		unit := fmt.Sprintf("u%d", i)
		tables = append(tables, tableWith(unit, pattern("h1", fetchSig, 2,
			model.Occurrence{File: unit + "/a.js", Line: 1},
			model.Occurrence{File: unit + "/b.js", Line: 2},
			model.Occurrence{File: unit + "/c.js", Line: 3},
		)))
	}

	report, err := Aggregate("r", tables, Thresholds{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(report.Patterns) != 1 {
		t.Fatalf("patterns = %d, want 1", len(report.Patterns))
	}
	if n := len(report.Patterns[0].Examples); n > model.MaxExamples {
		t.Errorf("examples = %d, exceeds cap %d", n, model.MaxExamples)
	}
	if report.Patterns[0].UnitCount != 10 {
		t.Errorf("unit count = %d, want 10", report.Patterns[0].UnitCount)
	}
}

func TestAggregateNoTables(t *testing.T) {
	t.Parallel()
	_, err := Aggregate("r", nil, Thresholds{})
	if !errors.Is(err, ErrNoTables) {
		t.Errorf("err = %v, want ErrNoTables", err)
	}
}

func TestAggregateMergesStats(t *testing.T) {
	t.Parallel()
	a := tableWith("u1", pattern("h1", fetchSig, 2))
	a.Stats.FilesProcessed = 3
	a.Stats.Skip("binary")
	b := tableWith("u2", pattern("h1", fetchSig, 2))
	b.Stats.FilesProcessed = 2
	b.Stats.Skip("binary")
	b.Stats.ParseErrors = 1

	report, err := Aggregate("r", []*model.Table{a, b}, Thresholds{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if report.Stats.FilesProcessed != 5 {
		t.Errorf("files processed = %d, want 5", report.Stats.FilesProcessed)
	}
	if report.Stats.SkipReasons["binary"] != 2 {
		t.Errorf("binary skips = %d, want 2", report.Stats.SkipReasons["binary"])
	}
	if report.Stats.ParseErrors != 1 {
		t.Errorf("parse errors = %d, want 1", report.Stats.ParseErrors)
	}
}

func TestDropTrivialReRanks(t *testing.T) {
	t.Parallel()
	tbl := tableWith("u1",
		pattern("h1", "IDENTIFIER.IDENTIFIER", 50),
		pattern("h2", fetchSig, 3),
		pattern("h3", "items.ARRAY_TRANSFORM(() => BODY)", 2),
	)

	report, err := Aggregate("r", []*model.Table{tbl}, Thresholds{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	DropTrivial(report)

	if len(report.Patterns) != 2 {
		t.Fatalf("patterns = %d, want 2 after triviality filter", len(report.Patterns))
	}
	if report.Patterns[0].Hash != "h2" || report.Patterns[0].Rank != 1 {
		t.Errorf("top row = %s rank %d", report.Patterns[0].Hash, report.Patterns[0].Rank)
	}
	if report.Patterns[1].Rank != 2 {
		t.Errorf("second rank = %d", report.Patterns[1].Rank)
	}
}

func TestTopK(t *testing.T) {
	t.Parallel()
	tbl := tableWith("u1",
		pattern("h1", fetchSig, 9),
		pattern("h2", "new IDENTIFIER(STRING)", 5),
		pattern("h3", "IDENTIFIER(STRING)", 2),
	)
	report, err := Aggregate("r", []*model.Table{tbl}, Thresholds{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	TopK(report, 2)
	if len(report.Patterns) != 2 {
		t.Fatalf("patterns = %d, want 2", len(report.Patterns))
	}
	if report.Patterns[0].Hash != "h1" {
		t.Errorf("top hash = %s, want h1", report.Patterns[0].Hash)
	}

	TopK(report, 0) // no-op
	if len(report.Patterns) != 2 {
		t.Errorf("TopK(0) truncated to %d", len(report.Patterns))
	}
}

func TestToTableRoundTrip(t *testing.T) {
	t.Parallel()
	a := tableWith("repoA", pattern("h1", fetchSig, 3))
	b := tableWith("repoB", pattern("h1", fetchSig, 2))

	repoReport, err := Aggregate("repoA", []*model.Table{a, b}, Thresholds{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	unit := ToTable("repoAB", repoReport)
	if unit.Unit != "repoAB" {
		t.Errorf("unit = %q", unit.Unit)
	}
	p, ok := unit.Patterns["h1"]
	if !ok {
		t.Fatal("h1 missing from converted table")
	}
	if p.Frequency != 5 {
		t.Errorf("frequency = %d, want 5", p.Frequency)
	}

	corpus, err := Aggregate("corpus", []*model.Table{unit}, Thresholds{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if corpus.Patterns[0].TotalFrequency != 5 {
		t.Errorf("corpus frequency = %d, want 5", corpus.Patterns[0].TotalFrequency)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	tbl := model.NewTable("u1")
	tbl.Patterns["h1"] = &model.Pattern{Hash: "h1", Abstract: fetchSig, NodeKind: "call_expression", Category: "DATA_FETCHING", Frequency: 6}
	tbl.Patterns["h2"] = &model.Pattern{Hash: "h2", Abstract: "try { BODY } catch", NodeKind: "try_statement", Category: "ERROR_HANDLING", Frequency: 2}
	tbl.Patterns["h3"] = &model.Pattern{Hash: "h3", Abstract: "await IDENTIFIER(STRING)", NodeKind: "await_expression", Category: "DATA_FETCHING", Frequency: 1}

	report, err := Aggregate("r", []*model.Table{tbl}, Thresholds{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	summary := Summarize(report)
	if len(summary) != 2 {
		t.Fatalf("categories = %d, want 2", len(summary))
	}
	if summary[0].Category != "DATA_FETCHING" || summary[0].PatternCount != 2 || summary[0].TotalFrequency != 7 {
		t.Errorf("top category = %+v", summary[0])
	}
	if summary[1].Category != "ERROR_HANDLING" {
		t.Errorf("second category = %+v", summary[1])
	}
}
