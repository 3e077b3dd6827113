// Package aggregate merges independently produced pattern tables into a
// single ranked table. The merge is a pure reduction: associative,
// commutative in totals, and bounded in evidence, so tables may arrive
// in any order from any number of workers.
package aggregate

import (
	"errors"
	"math"
	"sort"

	"github.com/phobologic/patternminer/internal/model"
	"github.com/phobologic/patternminer/internal/normalize"
)

// ErrNoTables is returned when an aggregation is invoked with nothing
// to merge; an aggregate of zero units is meaningless.
var ErrNoTables = errors.New("no pattern tables to aggregate")

// perUnitExamples is how many examples each contributing unit may add
// to a merged pattern before the table-level cap applies. Taking a few
// from every unit yields diverse cross-unit evidence instead of all
// evidence from one dominant unit.
const perUnitExamples = 2

// Thresholds filter the merged table. Both predicates are independent
// and applied after the merge, so a component-wise looser pair always
// yields a superset of rows.
type Thresholds struct {
	MinUnits     int
	MinFrequency int
}

// Aggregate merges tables into one ranked table. Units are the tables'
// Unit names; a pattern's unit count is the number of distinct units
// that contained its hash at least once. Metadata comes from the first
// contributor in slice order, which is safe because equal hashes imply
// equal signatures, kind, and category by construction.
func Aggregate(repository string, tables []*model.Table, th Thresholds) (*model.Report, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}

	type bucket struct {
		row   model.RankedPattern
		units map[string]struct{}
	}
	buckets := make(map[string]*bucket)
	var stats model.UnitStats

	for _, t := range tables {
		stats.Merge(t.Stats)

		// Deterministic iteration inside one table so evidence picks
		// do not depend on map order.
		hashes := make([]string, 0, len(t.Patterns))
		for h := range t.Patterns {
			hashes = append(hashes, h)
		}
		sort.Strings(hashes)

		for _, h := range hashes {
			p := t.Patterns[h]
			b, ok := buckets[h]
			if !ok {
				b = &bucket{
					row: model.RankedPattern{
						Hash:     p.Hash,
						Abstract: p.Abstract,
						Semantic: p.Semantic,
						NodeKind: p.NodeKind,
						Category: p.Category,
					},
					units: make(map[string]struct{}),
				}
				buckets[h] = b
			}

			b.row.TotalFrequency += p.Frequency
			if _, seen := b.units[t.Unit]; !seen {
				b.units[t.Unit] = struct{}{}
				b.row.Units = append(b.row.Units, t.Unit)
			}

			take := perUnitExamples
			if take > len(p.Examples) {
				take = len(p.Examples)
			}
			for _, ex := range p.Examples[:take] {
				if len(b.row.Examples) >= model.MaxExamples {
					break
				}
				b.row.Examples = append(b.row.Examples, ex)
			}
		}
	}

	totalUnits := countUnits(tables)

	rows := make([]model.RankedPattern, 0, len(buckets))
	for _, b := range buckets {
		b.row.UnitCount = len(b.units)
		b.row.PrevalencePct = roundPct(float64(b.row.UnitCount) / float64(totalUnits) * 100)
		if b.row.UnitCount < th.MinUnits || b.row.TotalFrequency < th.MinFrequency {
			continue
		}
		rows = append(rows, b.row)
	}

	sortAndRank(rows)

	return &model.Report{
		Repository: repository,
		UnitCount:  totalUnits,
		Patterns:   rows,
		Stats:      stats,
	}, nil
}

// DropTrivial removes rows whose abstract signature and total frequency
// fail the triviality filter, then re-ranks. Run only on a finished
// aggregate, never mid-merge.
func DropTrivial(r *model.Report) {
	kept := r.Patterns[:0]
	for i := range r.Patterns {
		row := r.Patterns[i]
		if normalize.IsTrivial(row.Abstract, row.TotalFrequency) {
			continue
		}
		kept = append(kept, row)
	}
	r.Patterns = kept
	sortAndRank(r.Patterns)
}

// TopK truncates the report to its first k rows. Rows are already
// ranked, so truncation keeps the most frequent patterns.
func TopK(r *model.Report, k int) {
	if k > 0 && k < len(r.Patterns) {
		r.Patterns = r.Patterns[:k]
	}
}

// ToTable converts a ranked report back into a plain table keyed by
// hash, so a repository-level result can feed a corpus-level merge as
// one unit.
func ToTable(unit string, r *model.Report) *model.Table {
	t := model.NewTable(unit)
	t.Stats = r.Stats
	for i := range r.Patterns {
		row := &r.Patterns[i]
		t.Patterns[row.Hash] = &model.Pattern{
			Hash:      row.Hash,
			Abstract:  row.Abstract,
			Semantic:  row.Semantic,
			NodeKind:  row.NodeKind,
			Category:  row.Category,
			Frequency: row.TotalFrequency,
			Examples:  row.Examples,
		}
	}
	return t
}

func sortAndRank(rows []model.RankedPattern) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalFrequency != rows[j].TotalFrequency {
			return rows[i].TotalFrequency > rows[j].TotalFrequency
		}
		return rows[i].Hash < rows[j].Hash
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
}

func countUnits(tables []*model.Table) int {
	units := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		units[t.Unit] = struct{}{}
	}
	return len(units)
}

func roundPct(v float64) float64 {
	return math.Round(v*100) / 100
}
