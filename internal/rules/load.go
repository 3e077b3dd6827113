package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExtensionFile is the YAML shape for extending the built-in rule
// tables with project-specific anchors, method tags, and categories.
type ExtensionFile struct {
	Anchors    []string          `yaml:"anchors"`
	MethodTags map[string]string `yaml:"method_tags"`
	Categories []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"categories"`
}

// LoadExtensions merges a YAML rules file into the process-wide tables.
// Must be called before any extraction starts: the tables are shared
// without synchronization on the assumption they are frozen by then.
// Extension categories are appended after the built-ins, so built-in
// tie-break order is preserved.
func LoadExtensions(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading rules file: %w", err)
	}

	var ext ExtensionFile
	if err := yaml.Unmarshal(data, &ext); err != nil {
		return fmt.Errorf("parsing rules YAML: %w", err)
	}

	for _, name := range ext.Anchors {
		Anchors[name] = struct{}{}
	}
	for name, tag := range ext.MethodTags {
		MethodTags[name] = tag
	}
	for _, cat := range ext.Categories {
		if len(cat.Keywords) == 0 {
			return fmt.Errorf("category %q has no keywords", cat.Name)
		}
		Categories = append(Categories, Category{Name: cat.Name, Keywords: cat.Keywords})
	}

	return nil
}
