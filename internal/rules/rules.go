// Package rules holds the static semantic rule tables: identifier
// anchors, method name tags, and category keyword lists. The tables are
// built once at startup and shared read-only across concurrent
// extractions; nothing mutates them after construction.
package rules

// Anchors is the set of identifiers preserved verbatim at the semantic
// level instead of collapsing to the generic placeholder. Matching is
// exact and case-sensitive.
var Anchors = map[string]struct{}{
	"console": {}, "Promise": {}, "Array": {}, "Object": {}, "Math": {},
	"JSON": {}, "Date": {},
	"React": {}, "useState": {}, "useEffect": {}, "useContext": {},
	"useCallback": {}, "useMemo": {}, "useRef": {},
	"expect": {}, "describe": {}, "it": {}, "test": {},
	"beforeEach": {}, "afterEach": {}, "jest": {}, "vi": {},
	"document": {}, "window": {}, "localStorage": {}, "sessionStorage": {},
	"fetch": {}, "axios": {}, "express": {}, "req": {}, "res": {},
	"Error": {}, "TypeError": {}, "ReferenceError": {},
}

// MethodTags maps member/property names to domain tags at the semantic
// level. A property matching this table is replaced by its tag; one
// matching Anchors is kept verbatim; anything else falls back to the
// generic placeholder.
var MethodTags = map[string]string{
	// Array methods
	"map":       "ARRAY_TRANSFORM",
	"filter":    "ARRAY_FILTER",
	"reduce":    "ARRAY_REDUCE",
	"forEach":   "ARRAY_ITERATE",
	"find":      "ARRAY_SEARCH",
	"findIndex": "ARRAY_SEARCH",
	"some":      "ARRAY_TEST",
	"every":     "ARRAY_TEST",
	"includes":  "ARRAY_TEST",
	"slice":     "ARRAY_SLICE",
	"splice":    "ARRAY_MUTATE",
	"push":      "ARRAY_MUTATE",
	"pop":       "ARRAY_MUTATE",
	"shift":     "ARRAY_MUTATE",
	"unshift":   "ARRAY_MUTATE",
	"join":      "ARRAY_TO_STRING",

	// Promise methods
	"then":    "PROMISE_CHAIN",
	"catch":   "ERROR_HANDLER",
	"finally": "CLEANUP",
	"all":     "PROMISE_COMBINE",
	"race":    "PROMISE_COMBINE",
	"resolve": "PROMISE_CREATE",
	"reject":  "PROMISE_CREATE",

	// Object methods
	"keys":    "OBJECT_KEYS",
	"values":  "OBJECT_VALUES",
	"entries": "OBJECT_ENTRIES",
	"assign":  "OBJECT_MERGE",
	"create":  "OBJECT_CREATE",
	"freeze":  "OBJECT_IMMUTABLE",

	// Testing assertions
	"toBe":                 "ASSERTION",
	"toEqual":              "ASSERTION",
	"toHaveBeenCalled":     "SPY_ASSERTION",
	"toHaveBeenCalledWith": "SPY_ASSERTION",
	"toHaveLength":         "ASSERTION",
	"toContain":            "ASSERTION",
}

// Category pairs a name with its associated keyword substrings.
type Category struct {
	Name     string
	Keywords []string
}

// Categories is scored in slice order; ties resolve to the earliest
// entry (first-highest-wins). The order is load-bearing and must stay
// stable across runs.
var Categories = []Category{
	{"DATA_FETCHING", []string{"fetch", "axios", "FETCH_API", "XHR_API", "HTTP_LIB", "await", "response", "json"}},
	{"STATE_MANAGEMENT", []string{"useState", "useReducer", "setState", "REACT_HOOK", "state"}},
	{"ASYNC_OPERATIONS", []string{"async", "await", "PROMISE", "FETCH_API", "then", "catch"}},
	{"ARRAY_OPERATIONS", []string{"ARRAY_TRANSFORM", "ARRAY_FILTER", "ARRAY_REDUCE", "ARRAY_ITERATE", "ARRAY_SEARCH", "map", "filter", "reduce"}},
	{"ERROR_HANDLING", []string{"try", "catch", "throw", "Error", "ERROR_HANDLER"}},
	{"CONTROL_FLOW", []string{"if", "for", "while", "switch", "return"}},
	{"VARIABLE_DECLARATIONS", []string{"const", "let", "var"}},
	{"FUNCTION_DEFINITIONS", []string{"function", "arrow_function", "=>"}},
	{"REACT_PATTERNS", []string{"React", "REACT_HOOK", "useState", "useEffect", "jsx"}},
	{"TEST_PATTERNS", []string{"expect", "describe", "it", "test", "ASSERTION", "SPY_ASSERTION"}},
	{"DOM_MANIPULATION", []string{"document", "window", "DOM_METHOD", "querySelector", "getElementById"}},
	{"OBJECT_OPERATIONS", []string{"OBJECT_KEYS", "OBJECT_VALUES", "OBJECT_ENTRIES", "OBJECT_MERGE", "Object"}},
}

// IsAnchor reports whether name is a preserved identifier.
func IsAnchor(name string) bool {
	_, ok := Anchors[name]
	return ok
}

// MethodTag returns the domain tag for a method/property name, or "".
func MethodTag(name string) string {
	return MethodTags[name]
}
