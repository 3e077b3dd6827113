package rules

import "strings"

// Categorize scores every category by counting its keywords that appear
// as case-insensitive substrings in the grouping signature and returns
// the highest-scoring name. Ties resolve to the earliest table entry,
// which also makes placeholder-only signatures land on CONTROL_FLOW
// ("if" matches inside a folded IDENTIFIER token). With no keyword hits
// the node kind decides a coarse bucket.
func Categorize(abstractSig, semanticSig, nodeKind string) string {
	sig := semanticSig
	if sig == "" {
		sig = abstractSig
	}
	sig = strings.ToLower(sig)

	best := ""
	bestScore := 0
	for _, cat := range Categories {
		score := 0
		for _, kw := range cat.Keywords {
			if strings.Contains(sig, strings.ToLower(kw)) {
				score++
			}
		}
		if score > bestScore {
			best = cat.Name
			bestScore = score
		}
	}
	if best != "" {
		return best
	}

	switch {
	case strings.Contains(nodeKind, "call"):
		return "FUNCTION_CALLS"
	case strings.Contains(nodeKind, "declaration"):
		return "DECLARATIONS"
	case strings.Contains(nodeKind, "expression"):
		return "EXPRESSIONS"
	default:
		return "OTHER"
	}
}
