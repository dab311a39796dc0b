package lexical

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one known word form: its lemma and part of speech.
type Entry struct {
	Lemma string
	POS   string
}

// LoadLexicon reads a morphology dictionary: one "form lemma POS" triple per
// line, whitespace separated. Blank lines and lines starting with # are
// skipped. Forms are normalized so lookups and file contents agree.
func LoadLexicon(path string) (map[string]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadLexicon: opening %s: %w", path, err)
	}
	defer f.Close()

	dict := make(map[string]Entry)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, fmt.Errorf("LoadLexicon: %s:%d: want 3 fields, got %d", path, line, len(fields))
		}
		dict[normalize(fields[0])] = Entry{
			Lemma: normalize(fields[1]),
			POS:   strings.ToUpper(fields[2]),
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("LoadLexicon: reading %s: %w", path, err)
	}
	return dict, nil
}

// LoadThesaurus reads a YAML mapping of a word to its synonyms. Keys and
// values are normalized on load.
func LoadThesaurus(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadThesaurus: reading %s: %w", path, err)
	}

	var parsed map[string][]string
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("LoadThesaurus: parsing %s: %w", path, err)
	}

	thesaurus := make(map[string][]string, len(parsed))
	for word, syns := range parsed {
		normalized := make([]string, 0, len(syns))
		for _, s := range syns {
			normalized = append(normalized, normalize(s))
		}
		thesaurus[normalize(word)] = normalized
	}
	return thesaurus, nil
}
