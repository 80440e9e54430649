// Package scoring builds the per-document term-frequency profile.
package scoring

import (
	"sort"

	"github.com/JakeFAU/webindexer/internal/indexer"
)

// Default scoring parameters.
const (
	DefaultTopK             = 1000
	DefaultTitleBoost       = 50
	DefaultDescriptionBoost = 10
)

// Normalizer tokenizes title and description text.
type Normalizer interface {
	Normalize(text string) []string
}

// Options tunes the scorer. Boosts are taken as given, so a zero boost
// disables it; start from DefaultOptions for the standard weights.
type Options struct {
	TopK             int
	TitleBoost       int32
	DescriptionBoost int32
}

// DefaultOptions returns the standard top-K and boost weights.
func DefaultOptions() Options {
	return Options{
		TopK:             DefaultTopK,
		TitleBoost:       DefaultTitleBoost,
		DescriptionBoost: DefaultDescriptionBoost,
	}
}

// Scorer counts full-text tokens, boosts words also seen in the title or
// description, and keeps the highest-count words.
type Scorer struct {
	ids  indexer.IDGenerator
	norm Normalizer
	opts Options
}

// New constructs a Scorer. A non-positive TopK falls back to DefaultTopK.
func New(ids indexer.IDGenerator, norm Normalizer, opts Options) *Scorer {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &Scorer{ids: ids, norm: norm, opts: opts}
}

// Pair is one scored term.
type Pair struct {
	Word  string
	Count int32
}

// Rank returns the scored pairs for doc ordered by count descending, then
// word ascending, truncated to TopK. Title and description tokens only
// amplify words already present in the full text.
func (s *Scorer) Rank(doc indexer.Document) []Pair {
	counts := make(map[string]int32, len(doc.FullText))
	for _, w := range doc.FullText {
		counts[w]++
	}
	boost(counts, s.norm.Normalize(doc.Title), s.opts.TitleBoost)
	boost(counts, s.norm.Normalize(doc.Description), s.opts.DescriptionBoost)

	pairs := make([]Pair, 0, len(counts))
	for w, c := range counts {
		pairs = append(pairs, Pair{Word: w, Count: c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		return pairs[i].Word < pairs[j].Word
	})
	if len(pairs) > s.opts.TopK {
		pairs = pairs[:s.opts.TopK]
	}
	return pairs
}

// Score returns one Words record per ranked pair, all referencing doc.ID.
func (s *Scorer) Score(doc indexer.Document) []indexer.Words {
	pairs := s.Rank(doc)
	words := make([]indexer.Words, 0, len(pairs))
	for _, p := range pairs {
		words = append(words, indexer.Words{
			ID:       s.ids.NewID(),
			Document: doc.ID,
			Word:     p.Word,
			Count:    p.Count,
		})
	}
	return words
}

func boost(counts map[string]int32, tokens []string, by int32) {
	for _, t := range tokens {
		if _, ok := counts[t]; ok {
			counts[t] += by
		}
	}
}
