package lexical

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
)

// DefaultSynonymLimit bounds synonym expansion when callers have no better
// number.
const DefaultSynonymLimit = 10

var (
	sentenceRe = regexp.MustCompile(`[.!?;,\n]+`)
	tokenRe    = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// Processor answers lemma, synonym, fragmentation and keyword questions
// about transaction text. Capability flags are probed once at construction:
// a missing or broken dictionary degrades lemmatization to lowercase
// passthrough, a missing thesaurus degrades synonym expansion to the word
// itself. Methods are safe for concurrent use.
type Processor struct {
	dict      map[string]Entry
	thesaurus map[string][]string

	hasMorphology bool
	hasThesaurus  bool

	lemmas   *cache.Cache
	synonyms *cache.Cache
}

// New builds a processor from the dictionary and thesaurus files. Either
// file failing to load flips the matching capability off; that is logged
// once here, not on every call.
func New(lexiconPath, thesaurusPath string, log zerolog.Logger) *Processor {
	p := &Processor{
		lemmas:   cache.New(cache.NoExpiration, 0),
		synonyms: cache.New(cache.NoExpiration, 0),
	}

	dict, err := LoadLexicon(lexiconPath)
	if err != nil {
		log.Warn().Err(err).Msg("morphology dictionary unavailable, lemmatization degraded to lowercase")
	} else {
		p.dict = dict
		p.hasMorphology = true
	}

	thesaurus, err := LoadThesaurus(thesaurusPath)
	if err != nil {
		log.Warn().Err(err).Msg("thesaurus unavailable, synonym expansion degraded to the word itself")
	} else {
		p.thesaurus = thesaurus
		p.hasThesaurus = true
	}

	return p
}

// normalize lowercases, composes to NFC and folds ё into е so dictionary
// lookups do not depend on how the bank spelled a word.
func normalize(word string) string {
	w := norm.NFC.String(strings.ToLower(word))
	return strings.ReplaceAll(w, "ё", "е")
}

// Lemma returns the dictionary lemma of a word, memoized. Unknown words and
// degraded mode fall back to the lowercased word.
func (p *Processor) Lemma(word string) string {
	if !p.hasMorphology {
		return strings.ToLower(word)
	}

	if hit, ok := p.lemmas.Get(word); ok {
		return hit.(string)
	}

	normalized := normalize(word)
	lemma := normalized
	if entry, ok := p.dict[normalized]; ok {
		lemma = entry.Lemma
	}
	p.lemmas.Set(word, lemma, cache.DefaultExpiration)
	return lemma
}

// Synonyms returns up to limit synonyms of a word, the word itself always
// first. Degraded mode returns just the word.
func (p *Processor) Synonyms(word string, limit int) []string {
	normalized := normalize(word)
	if limit <= 1 || !p.hasThesaurus {
		return []string{normalized}
	}

	key := normalized + ":" + strconv.Itoa(limit)
	if hit, ok := p.synonyms.Get(key); ok {
		return hit.([]string)
	}

	out := []string{normalized}
	for _, s := range p.thesaurus[normalized] {
		if len(out) >= limit {
			break
		}
		if s != normalized {
			out = append(out, s)
		}
	}
	p.synonyms.Set(key, out, cache.DefaultExpiration)
	return out
}

// SplitSentences breaks text into fragments on sentence punctuation and
// newlines, dropping fragments of two characters or fewer. When nothing
// survives, the whole text is the single fragment; the result is never
// empty.
func (p *Processor) SplitSentences(text string) []string {
	var fragments []string
	for _, part := range sentenceRe.Split(text, -1) {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) > 2 {
			fragments = append(fragments, part)
		}
	}
	if len(fragments) == 0 {
		return []string{text}
	}
	return fragments
}

// ExtractKeywords lowercases the text, strips punctuation and returns the
// tokens of three or more characters that are nouns or verbs. Tokens the
// dictionary does not know are kept; in degraded mode every token passes.
func (p *Processor) ExtractKeywords(text string) []string {
	var keywords []string
	for _, token := range tokenRe.Split(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(token) < 3 {
			continue
		}
		if p.hasMorphology {
			if entry, known := p.dict[normalize(token)]; known && entry.POS != "NOUN" && entry.POS != "VERB" {
				continue
			}
		}
		keywords = append(keywords, token)
	}
	return keywords
}
