package lang

import (
	"github.com/smacker/go-tree-sitter/javascript"
)

func init() {
	Dialects["javascript"] = &Dialect{
		Name:       "javascript",
		Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		lang:       javascript.GetLanguage(),
	}
}
