package normalize

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// degenerate signatures carry no discriminative value regardless of
// frequency.
var degenerate = map[string]struct{}{
	"IDENTIFIER": {},
	"VALUE":      {},
	"FUNCTION":   {},
	"EXPRESSION": {},
	"STATEMENT":  {},
	"OBJECT":     {},
	"PROPERTY":   {},
	"BODY":       {},
	"ARGUMENT":   {},
}

// minSignatureLen and MinFrequency are the floor thresholds for the
// triviality filter. The filter runs only after a walk completes, so
// frequencies are final when it is applied.
const (
	minSignatureLen = 5
	MinFrequency    = 2
)

// IsTrivial reports whether a pattern should be dropped from a finished
// table. Any one rule triggers removal. The member-access rule is a
// narrow heuristic: it suppresses exactly the two-token
// IDENTIFIER.IDENTIFIER shape with no semantic tag; deeper chains are
// kept on purpose, since chain depth is itself structure worth counting.
func IsTrivial(signature string, frequency int) bool {
	if len(signature) < minSignatureLen {
		return true
	}
	if frequency < MinFrequency {
		return true
	}
	if _, ok := degenerate[signature]; ok {
		return true
	}
	if strings.Count(signature, ".") == 1 &&
		strings.Contains(signature, "IDENTIFIER.") &&
		strings.HasSuffix(signature, "IDENTIFIER") {
		return true
	}
	return false
}

// maxDepthProbe caps how deep Complexity looks; beyond this the node is
// already in the top bucket.
const maxDepthProbe = 5

// Complexity scores a node 1 (trivial) to 4 (idiom) from subtree depth
// and immediate child count. The extraction threshold over this score is
// a tunable parameter, not a constant.
func Complexity(node *sitter.Node) int {
	depth := subtreeDepth(node, maxDepthProbe)
	children := int(node.ChildCount())

	switch {
	case depth <= 1 && children <= 2:
		return 1
	case depth <= 2 && children <= 4:
		return 2
	case depth <= 3 || children <= 8:
		return 3
	default:
		return 4
	}
}

func subtreeDepth(node *sitter.Node, budget int) int {
	if node.ChildCount() == 0 || budget == 0 {
		return 1
	}
	max := 0
	for i := 0; i < int(node.ChildCount()); i++ {
		if d := subtreeDepth(node.Child(i), budget-1); d > max {
			max = d
		}
	}
	return 1 + max
}
