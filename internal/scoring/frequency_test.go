package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webindexer/internal/indexer"
	"github.com/JakeFAU/webindexer/internal/textnorm"
)

type seqIDs struct {
	n int
}

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("w-%d", s.n)
}

func newTestScorer(opts Options) *Scorer {
	return New(&seqIDs{}, textnorm.New(), opts)
}

func TestRankTitleBoost(t *testing.T) {
	t.Parallel()

	doc := indexer.Document{ID: "doc", Title: "a", FullText: []string{"a", "a", "b"}}
	pairs := newTestScorer(DefaultOptions()).Rank(doc)
	require.Equal(t, []Pair{{Word: "a", Count: 52}, {Word: "b", Count: 1}}, pairs)
}

func TestRankBoostsOnlyExistingWords(t *testing.T) {
	t.Parallel()

	doc := indexer.Document{
		ID:          "doc",
		Title:       "Rust Guide",
		Description: "Learn systems programming",
		FullText:    []string{"rust", "great", "rust", "rocks"},
	}
	pairs := newTestScorer(DefaultOptions()).Rank(doc)
	require.Equal(t, []Pair{
		{Word: "rust", Count: 52},
		{Word: "great", Count: 1},
		{Word: "rocks", Count: 1},
	}, pairs)
	for _, p := range pairs {
		assert.NotEqual(t, "guide", p.Word)
		assert.NotEqual(t, "programming", p.Word)
	}
}

func TestRankDescriptionBoostAndRepeats(t *testing.T) {
	t.Parallel()

	doc := indexer.Document{
		Title:       "Go go",
		Description: "go concurrency",
		FullText:    []string{"go", "concurrency", "channels"},
	}
	pairs := newTestScorer(DefaultOptions()).Rank(doc)
	require.Equal(t, []Pair{
		{Word: "go", Count: 1 + 50 + 50 + 10},
		{Word: "concurrency", Count: 11},
		{Word: "channels", Count: 1},
	}, pairs)
}

func TestRankTieBreakIsLexicographic(t *testing.T) {
	t.Parallel()

	doc := indexer.Document{FullText: []string{"zeta", "alpha", "mid", "alpha", "zeta"}}
	pairs := newTestScorer(DefaultOptions()).Rank(doc)
	require.Equal(t, []Pair{
		{Word: "alpha", Count: 2},
		{Word: "zeta", Count: 2},
		{Word: "mid", Count: 1},
	}, pairs)
}

func TestScoreCapsAtTopK(t *testing.T) {
	t.Parallel()

	tokens := make([]string, 1500)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("token%04d", i)
	}
	doc := indexer.Document{ID: "doc-1", FullText: tokens}
	words := newTestScorer(DefaultOptions()).Score(doc)
	require.Len(t, words, 1000)

	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		require.Equal(t, "doc-1", w.Document)
		require.NotEmpty(t, w.ID)
		_, dup := seen[w.Word]
		require.False(t, dup)
		seen[w.Word] = struct{}{}
	}
	require.Equal(t, "token0000", words[0].Word)
	require.Equal(t, "token0999", words[999].Word)
}

func TestScoreCustomOptions(t *testing.T) {
	t.Parallel()

	doc := indexer.Document{ID: "d", Title: "b", FullText: []string{"a", "a", "a", "b", "c"}}
	words := newTestScorer(Options{TopK: 2, TitleBoost: 5}).Score(doc)
	require.Len(t, words, 2)
	require.Equal(t, "b", words[0].Word)
	require.Equal(t, int32(6), words[0].Count)
	require.Equal(t, "a", words[1].Word)
	require.Equal(t, "w-1", words[0].ID)
	require.Equal(t, "w-2", words[1].ID)
}

func TestScoreZeroBoostsDisableBoosting(t *testing.T) {
	t.Parallel()

	doc := indexer.Document{
		ID:          "d",
		Title:       "b",
		Description: "c",
		FullText:    []string{"a", "a", "b", "c"},
	}
	pairs := newTestScorer(Options{TopK: 10}).Rank(doc)
	require.Equal(t, []Pair{{Word: "a", Count: 2}, {Word: "b", Count: 1}, {Word: "c", Count: 1}}, pairs)

	pairs = newTestScorer(Options{TopK: 10, DescriptionBoost: 10}).Rank(doc)
	require.Equal(t, []Pair{{Word: "c", Count: 11}, {Word: "a", Count: 2}, {Word: "b", Count: 1}}, pairs)
}

func TestScoreEmptyDocument(t *testing.T) {
	t.Parallel()

	words := newTestScorer(DefaultOptions()).Score(indexer.Document{ID: "d", Title: "Anything"})
	require.Empty(t, words)
}
