package aggregate

import (
	"math"
	"sort"

	"github.com/phobologic/patternminer/internal/model"
)

// CategorySummary is one row of the per-category rollup.
type CategorySummary struct {
	Category       string
	PatternCount   int
	TotalFrequency int
	AvgUnitCount   float64
}

// Summarize rolls a ranked report up by category, ordered by total
// frequency descending with category name as the tie break.
func Summarize(r *model.Report) []CategorySummary {
	byName := make(map[string]*CategorySummary)
	for i := range r.Patterns {
		row := &r.Patterns[i]
		s, ok := byName[row.Category]
		if !ok {
			s = &CategorySummary{Category: row.Category}
			byName[row.Category] = s
		}
		s.PatternCount++
		s.TotalFrequency += row.TotalFrequency
		s.AvgUnitCount += float64(row.UnitCount)
	}

	out := make([]CategorySummary, 0, len(byName))
	for _, s := range byName {
		if s.PatternCount > 0 {
			s.AvgUnitCount = math.Round(s.AvgUnitCount/float64(s.PatternCount)*100) / 100
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalFrequency != out[j].TotalFrequency {
			return out[i].TotalFrequency > out[j].TotalFrequency
		}
		return out[i].Category < out[j].Category
	})
	return out
}
