// Package normalize converts syntax tree nodes into stable signature
// strings at two abstraction levels. Normalization is total: there is no
// error return, and anything that cannot be meaningfully normalized
// degrades to the empty string, which callers must treat as "do not
// record a pattern for this node".
package normalize

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/patternminer/internal/lang"
	"github.com/phobologic/patternminer/internal/model"
	"github.com/phobologic/patternminer/internal/rules"
)

// handler composes the signature fragment for one node kind.
type handler func(node *sitter.Node, source []byte, level model.Level) string

// handlers dispatches by node kind; every kind not listed here takes the
// default arm (join normalized children, dropping empty fragments).
// Closed table instead of reflection so the fallback stays explicit.
var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"call_expression":      handleCall,
		"member_expression":    handleMember,
		"lexical_declaration":  handleDeclaration,
		"variable_declaration": handleDeclaration,
		"arrow_function":       handleArrow,
		"arguments":            handleArguments,
		"await_expression":     handleAwait,
		"new_expression":       handleNew,
	}
}

// Signature returns the whitespace-collapsed signature of node at the
// given level. A malformed node yields the empty string.
func Signature(node *sitter.Node, source []byte, level model.Level) string {
	return lang.CollapseWhitespace(recurse(node, source, level))
}

func recurse(node *sitter.Node, source []byte, level model.Level) string {
	// has_error covers the whole subtree, so a composite never sees a
	// malformed child fragment passed off as valid.
	if node.Type() == "ERROR" || node.HasError() {
		return ""
	}

	// Literals map by kind before any structural handling: string and
	// template nodes carry quote and fragment children that must never
	// leak into a signature.
	switch node.Type() {
	case "identifier":
		if level == model.Semantic && rules.IsAnchor(lang.NodeText(node, source)) {
			return lang.NodeText(node, source)
		}
		return "IDENTIFIER"
	case "string", "template_string":
		return "STRING"
	case "number":
		return "NUMBER"
	case "true", "false":
		return "BOOLEAN"
	case "null":
		return "NULL"
	case "undefined":
		return "UNDEFINED"
	}

	if node.ChildCount() == 0 {
		// Operators, keywords and punctuation stay verbatim.
		return lang.NodeText(node, source)
	}

	if h, ok := handlers[node.Type()]; ok {
		return h(node, source, level)
	}
	return handleDefault(node, source, level)
}

func handleCall(node *sitter.Node, source []byte, level model.Level) string {
	fn := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")

	fnSig := "FUNCTION"
	if fn != nil {
		fnSig = recurse(fn, source, level)
	}
	argsSig := "()"
	if args != nil {
		argsSig = recurse(args, source, level)
	}
	return fnSig + argsSig
}

// handleMember special-cases obj.property so the property token can use
// the method-name table independently of the receiver's normalization; a
// call chain stays recognizable by its trailing method name even when
// the receiver is deeply nested and structurally generic.
func handleMember(node *sitter.Node, source []byte, level model.Level) string {
	obj := node.ChildByFieldName("object")
	prop := node.ChildByFieldName("property")

	objSig := "OBJECT"
	if obj != nil {
		objSig = recurse(obj, source, level)
	}

	propSig := "PROPERTY"
	if prop != nil {
		if level == model.Semantic {
			text := lang.NodeText(prop, source)
			if tag := rules.MethodTag(text); tag != "" {
				propSig = tag
			} else if rules.IsAnchor(text) {
				propSig = text
			} else {
				propSig = recurse(prop, source, level)
			}
		} else {
			propSig = recurse(prop, source, level)
		}
	}

	return objSig + "." + propSig
}

func handleDeclaration(node *sitter.Node, source []byte, level model.Level) string {
	var parts []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "const", "let", "var":
			parts = append(parts, child.Type())
		case "variable_declarator":
			name := child.ChildByFieldName("name")
			value := child.ChildByFieldName("value")
			if name != nil {
				parts = append(parts, recurse(name, source, level))
			}
			if value != nil {
				parts = append(parts, "=", recurse(value, source, level))
			}
		}
	}
	return strings.Join(parts, " ")
}

func handleArrow(node *sitter.Node, source []byte, level model.Level) string {
	params := node.ChildByFieldName("parameters")
	paramsSig := "()"
	if params != nil {
		paramsSig = recurse(params, source, level)
	}
	return paramsSig + " => BODY"
}

func handleArguments(node *sitter.Node, source []byte, level model.Level) string {
	var args []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "(", ")", ",":
			continue
		}
		if sig := recurse(child, source, level); sig != "" {
			args = append(args, sig)
		}
	}
	if len(args) == 0 {
		return "()"
	}
	return "(" + strings.Join(args, ", ") + ")"
}

func handleAwait(node *sitter.Node, source []byte, level model.Level) string {
	expr := node.ChildByFieldName("argument")
	if expr == nil && node.NamedChildCount() > 0 {
		expr = node.NamedChild(0)
	}
	exprSig := "EXPRESSION"
	if expr != nil {
		exprSig = recurse(expr, source, level)
	}
	return "await " + exprSig
}

func handleNew(node *sitter.Node, source []byte, level model.Level) string {
	ctor := node.ChildByFieldName("constructor")
	args := node.ChildByFieldName("arguments")

	ctorSig := "CLASS"
	if ctor != nil {
		ctorSig = recurse(ctor, source, level)
	}
	argsSig := "()"
	if args != nil {
		argsSig = recurse(args, source, level)
	}
	return "new " + ctorSig + argsSig
}

func handleDefault(node *sitter.Node, source []byte, level model.Level) string {
	var parts []string
	for i := 0; i < int(node.ChildCount()); i++ {
		if sig := recurse(node.Child(i), source, level); strings.TrimSpace(sig) != "" {
			parts = append(parts, sig)
		}
	}
	return strings.Join(parts, " ")
}
