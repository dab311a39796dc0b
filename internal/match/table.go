package match

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// KeywordEntry pairs a category with the keywords that signal it. The order
// of entries and of keywords within an entry is the file order and drives
// the engine's tie-break.
type KeywordEntry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type keywordFile struct {
	Categories []KeywordEntry `yaml:"categories"`
}

// LoadKeywordTable reads the ordered category keyword table from a YAML file.
func LoadKeywordTable(path string) ([]KeywordEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadKeywordTable: reading %s: %w", path, err)
	}

	var parsed keywordFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("LoadKeywordTable: parsing %s: %w", path, err)
	}

	for i, entry := range parsed.Categories {
		if entry.Name == "" {
			return nil, fmt.Errorf("LoadKeywordTable: %s: entry %d has no category name", path, i)
		}
	}
	return parsed.Categories, nil
}
