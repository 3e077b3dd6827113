// Package lang provides a dialect registry for the JavaScript grammar
// family and the tree-sitter syntax provider used by pattern extraction.
package lang

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Dialect holds tree-sitter configuration for one supported dialect.
type Dialect struct {
	Name       string
	Extensions []string
	lang       *sitter.Language
}

// GetLanguage returns the tree-sitter Language pointer.
func (d *Dialect) GetLanguage() *sitter.Language {
	return d.lang
}

// NewParser creates a fresh tree-sitter parser for this dialect.
// Each goroutine must use its own parser (not thread-safe).
func (d *Dialect) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(d.lang)
	return p
}

// Dialects maps dialect names to their configuration.
// Populated by init() functions in per-dialect files.
var Dialects = map[string]*Dialect{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, d := range Dialects {
			for _, ext := range d.Extensions {
				extensionMap[ext] = d.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the dialect name for a file extension, or "" if
// the extension is outside the supported grammar family.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// ErrBinary reports that the byte source looks like a binary file.
var ErrBinary = errors.New("binary file")

// fallbackErrLimit is the number of tree errors a plain-JS parse may
// carry before the source is re-parsed with the TSX grammar (JSX and TS
// syntax in .js files is common enough to warrant the second pass).
const fallbackErrLimit = 5

// ParseResult is the syntax provider's answer for one byte source.
// Partial signals an error-recovered parse; it feeds unit statistics
// only and never changes normalization behavior.
type ParseResult struct {
	Tree    *sitter.Tree
	Partial bool
}

// Parse turns source bytes into a syntax tree using the parser's
// configured grammar, re-parsing with TSX when a plain-JS parse is badly
// broken. The caller owns the returned tree and must Close it.
func Parse(ctx context.Context, parser *sitter.Parser, dialect string, source []byte) (*ParseResult, error) {
	sniff := source
	if len(sniff) > 1024 {
		sniff = sniff[:1024]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return nil, ErrBinary
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}

	if dialect == "javascript" && tree.RootNode().HasError() {
		if countErrors(tree.RootNode()) > fallbackErrLimit {
			retry := Dialects["tsx"].NewParser()
			retried, rerr := retry.ParseCtx(ctx, nil, source)
			if rerr == nil {
				tree.Close()
				tree = retried
			}
		}
	}

	return &ParseResult{Tree: tree, Partial: tree.RootNode().HasError()}, nil
}

func countErrors(node *sitter.Node) int {
	count := 0
	if node.Type() == "ERROR" || node.IsMissing() {
		count = 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countErrors(node.Child(i))
	}
	return count
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
