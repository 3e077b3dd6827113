package lang

import (
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func init() {
	Dialects["typescript"] = &Dialect{
		Name:       "typescript",
		Extensions: []string{".ts"},
		lang:       typescript.GetLanguage(),
	}
	Dialects["tsx"] = &Dialect{
		Name:       "tsx",
		Extensions: []string{".tsx"},
		lang:       tsx.GetLanguage(),
	}
}
