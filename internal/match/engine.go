package match

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/dvloznov/coindesk/internal/embedding"
	"github.com/dvloznov/coindesk/internal/lexical"
)

// DefaultThreshold is the minimum score a candidate needs to be reported.
const DefaultThreshold = 0.7

// Boost sizes for the three lexical confirmation signals.
const (
	exactBoost   = 0.25
	lemmaBoost   = 0.15
	synonymBoost = 0.10
)

var wordRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Embedder is the slice of the embedding layer the engine needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Lexicon is the slice of the lexical processor the engine needs.
type Lexicon interface {
	Lemma(word string) string
	Synonyms(word string, limit int) []string
	SplitSentences(text string) []string
}

// Boosts records which lexical signals confirmed a match.
type Boosts struct {
	Exact   bool
	Lemma   bool
	Synonym bool
}

// Match is the engine's verdict for one text.
type Match struct {
	Category string
	Keyword  string
	Score    float64
	Boosts   Boosts
}

// Engine scores purpose text against an ordered keyword table. The base
// signal is embedding similarity between the keyword and the text's
// fragments; lexical signals stack additive boosts on top. Matches below
// the threshold are discarded. Safe for concurrent use.
type Engine struct {
	table     []KeywordEntry
	embedder  Embedder
	lex       Lexicon
	threshold float64
	log       zerolog.Logger
}

// NewEngine builds a matching engine. A non-positive threshold falls back
// to DefaultThreshold.
func NewEngine(table []KeywordEntry, embedder Embedder, lex Lexicon, threshold float64, log zerolog.Logger) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{
		table:     table,
		embedder:  embedder,
		lex:       lex,
		threshold: threshold,
		log:       log.With().Str("component", "matcher").Logger(),
	}
}

// Match finds the best category for the text, or nil when nothing reaches
// the threshold. Embedding failures propagate to the caller unmodified, so
// batch processors can decide what one failed categorization means.
func (e *Engine) Match(ctx context.Context, text string) (*Match, error) {
	lower := strings.ToLower(text)
	fragments := e.lex.SplitSentences(text)

	fragVecs := make([][]float32, len(fragments))
	for i, fragment := range fragments {
		vec, err := e.embedder.Embed(ctx, fragment)
		if err != nil {
			return nil, fmt.Errorf("Match: embedding fragment: %w", err)
		}
		fragVecs[i] = vec
	}

	textLemmas := e.textLemmas(lower)

	var best Match
	for _, entry := range e.table {
		for _, keyword := range entry.Keywords {
			kwVec, err := e.embedder.Embed(ctx, keyword)
			if err != nil {
				return nil, fmt.Errorf("Match: embedding keyword %q: %w", keyword, err)
			}

			base := 0.0
			for _, fragVec := range fragVecs {
				if s := embedding.Similarity(kwVec, fragVec); s > base {
					base = s
				}
			}

			score, boosts := e.boost(base, lower, keyword, textLemmas)
			if score > best.Score {
				best = Match{
					Category: entry.Name,
					Keyword:  keyword,
					Score:    score,
					Boosts:   boosts,
				}
			}
		}
	}

	if best.Score < e.threshold {
		return nil, nil
	}

	e.log.Debug().
		Str("category", best.Category).
		Str("keyword", best.Keyword).
		Float64("score", best.Score).
		Msg("category matched")
	return &best, nil
}

// boost stacks the lexical confirmation signals onto the base similarity
// and clamps the result to 1.0.
func (e *Engine) boost(base float64, textLower, keyword string, textLemmas map[string]struct{}) (float64, Boosts) {
	score := base
	var boosts Boosts

	kwLower := strings.ToLower(keyword)
	if strings.Contains(textLower, kwLower) {
		boosts.Exact = true
		score += exactBoost
	}

	kwLemma := e.lex.Lemma(kwLower)
	if _, ok := textLemmas[kwLemma]; ok {
		boosts.Lemma = true
		score += lemmaBoost
	}

	for _, syn := range e.lex.Synonyms(kwLemma, lexical.DefaultSynonymLimit) {
		if _, ok := textLemmas[syn]; ok {
			boosts.Synonym = true
			score += synonymBoost
			break
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score, boosts
}

// textLemmas collects the lemma set of tokens longer than two characters.
func (e *Engine) textLemmas(textLower string) map[string]struct{} {
	lemmas := make(map[string]struct{})
	for _, token := range wordRe.Split(textLower, -1) {
		if utf8.RuneCountInString(token) <= 2 {
			continue
		}
		lemmas[e.lex.Lemma(token)] = struct{}{}
	}
	return lemmas
}
