// Package tfidf rebuilds the corpus-wide TF-IDF score table from the stored
// documents and word counts.
package tfidf

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/webindexer/internal/indexer"
	"github.com/JakeFAU/webindexer/internal/metrics"
	"github.com/JakeFAU/webindexer/internal/storage"
)

// DefaultBatchSize is the number of scores written per insert.
const DefaultBatchSize = 1000

// Config controls Aggregator behavior.
type Config struct {
	BatchSize int
}

// Aggregator recomputes every score from scratch.
type Aggregator struct {
	store     storage.ScoreStore
	ids       indexer.IDGenerator
	batchSize int
	logger    *zap.Logger
}

// New creates an Aggregator.
func New(store storage.ScoreStore, ids indexer.IDGenerator, cfg Config, logger *zap.Logger) *Aggregator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Aggregator{store: store, ids: ids, batchSize: cfg.BatchSize, logger: logger}
}

// IDF returns ln(n/df)+1. df is clamped to n, so the result is never below 1.
func IDF(n, df int) float64 {
	if df > n {
		df = n
	}
	return math.Log(float64(n)/float64(df)) + 1
}

// Rebuild deletes every existing score, recomputes them and writes them in
// batches. It returns the number of scores written.
func (a *Aggregator) Rebuild(ctx context.Context) (int, error) {
	deleted, err := a.store.DeleteAllScores(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear scores: %w", err)
	}
	a.logger.Info("cleared tf-idf scores", zap.Int64("deleted", deleted))

	meta, err := a.store.ListDocumentMetadata(ctx)
	if err != nil {
		return 0, fmt.Errorf("load documents: %w", err)
	}
	words, err := a.store.ListWords(ctx)
	if err != nil {
		return 0, fmt.Errorf("load words: %w", err)
	}
	if len(meta) == 0 || len(words) == 0 {
		a.logger.Info("nothing to score", zap.Int("documents", len(meta)), zap.Int("words", len(words)))
		return 0, nil
	}

	scores := a.compute(meta, words)
	for start := 0; start < len(scores); start += a.batchSize {
		end := min(start+a.batchSize, len(scores))
		if err := a.store.InsertScores(ctx, scores[start:end]); err != nil {
			return start, fmt.Errorf("insert scores %d-%d: %w", start, end, err)
		}
		metrics.AddScoresWritten(end - start)
		a.logger.Info("processed scores", zap.String("progress", fmt.Sprintf("%d/%d", end, len(scores))))
	}
	return len(scores), nil
}

func (a *Aggregator) compute(meta []indexer.DocumentMetadata, words []indexer.Words) []indexer.TfIdfScore {
	urls := make(map[string]string, len(meta))
	for _, m := range meta {
		urls[m.ID] = m.URL
	}

	perDoc := make(map[string]map[string]int32)
	df := make(map[string]int)
	for _, w := range words {
		if _, known := urls[w.Document]; !known {
			// Orphans are skipped below and must not count towards df.
			perDoc[w.Document] = nil
			continue
		}
		counts, ok := perDoc[w.Document]
		if !ok {
			counts = make(map[string]int32)
			perDoc[w.Document] = counts
		}
		counts[w.Word] = w.Count
		df[w.Word]++
	}

	docIDs := make([]string, 0, len(perDoc))
	for id := range perDoc {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)

	n := len(meta)
	var scores []indexer.TfIdfScore
	for _, docID := range docIDs {
		url, ok := urls[docID]
		if !ok {
			a.logger.Warn("skipping words without document", zap.String("document_id", docID))
			continue
		}
		counts := perDoc[docID]
		var total int64
		terms := make([]string, 0, len(counts))
		for term, c := range counts {
			total += int64(c)
			terms = append(terms, term)
		}
		if total == 0 {
			continue
		}
		sort.Strings(terms)
		for _, term := range terms {
			tf := float64(counts[term]) / float64(total)
			idf := IDF(n, df[term])
			scores = append(scores, indexer.TfIdfScore{
				ID:         a.ids.NewID(),
				Word:       term,
				DocumentID: docID,
				URL:        url,
				TF:         tf,
				IDF:        idf,
				TFIDF:      tf * idf,
			})
		}
	}
	return scores
}
