// Package pipeline runs one URL from existence check to durable commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/webindexer/internal/classifier"
	"github.com/JakeFAU/webindexer/internal/indexer"
	"github.com/JakeFAU/webindexer/internal/metrics"
	"github.com/JakeFAU/webindexer/internal/storage"
)

// EventDocumentIndexed is the notification sent after a successful commit.
const EventDocumentIndexed = "document.indexed"

const (
	defaultFetchTimeout = 30 * time.Second
	tracerName          = "github.com/JakeFAU/webindexer/internal/pipeline"
)

// Classifier decides whether a URL is worth a GET.
type Classifier interface {
	Classify(ctx context.Context, rawURL string) classifier.Decision
}

// Extractor turns an HTML body into a Document.
type Extractor interface {
	Extract(src []byte, pageURL string) indexer.Document
}

// Scorer derives the word records of a Document.
type Scorer interface {
	Score(doc indexer.Document) []indexer.Words
}

// Config controls Pipeline behavior.
type Config struct {
	FetchTimeout time.Duration
	Topic        string
}

// Pipeline executes the per-URL state machine.
type Pipeline struct {
	backend    storage.Backend
	classifier Classifier
	fetcher    indexer.Fetcher
	extractor  Extractor
	scorer     Scorer
	publisher  indexer.Publisher
	clock      indexer.Clock
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Pipeline. publisher may be nil.
func New(
	backend storage.Backend,
	cls Classifier,
	fetcher indexer.Fetcher,
	extractor Extractor,
	scorer Scorer,
	publisher indexer.Publisher,
	clock indexer.Clock,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Pipeline{
		backend:    backend,
		classifier: cls,
		fetcher:    fetcher,
		extractor:  extractor,
		scorer:     scorer,
		publisher:  publisher,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// Process runs rawURL through the pipeline and returns its terminal outcome.
// Every failure is folded into the outcome; Process never returns an error.
func (p *Pipeline) Process(ctx context.Context, rawURL string) indexer.Outcome {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.Process",
		trace.WithAttributes(attribute.String("url.full", rawURL)))
	defer span.End()

	start := p.clock.Now()
	outcome, err := p.process(ctx, rawURL)
	metrics.ObserveOutcome(string(outcome))
	span.SetAttributes(attribute.String("webindexer.outcome", string(outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(outcome))
	}

	fields := []zap.Field{
		zap.String("url", rawURL),
		zap.String("outcome", string(outcome)),
		zap.Duration("duration", p.clock.Now().Sub(start)),
	}
	switch {
	case err != nil:
		p.logger.Warn("url failed", append(fields, zap.Error(err))...)
	case outcome == indexer.OutcomeTransactionSuccess:
		p.logger.Info("url indexed", fields...)
	default:
		p.logger.Debug("url skipped", fields...)
	}
	return outcome
}

func (p *Pipeline) process(ctx context.Context, rawURL string) (indexer.Outcome, error) {
	pageURL, err := url.PathUnescape(rawURL)
	if err != nil {
		return indexer.OutcomeURLError, fmt.Errorf("decode url: %w", err)
	}

	exists, err := p.backend.URLExists(ctx, pageURL)
	if err != nil {
		return indexer.OutcomeURLError, fmt.Errorf("check url exists: %w", err)
	}
	if exists {
		return indexer.OutcomeURLExists, nil
	}

	if decision := p.classifier.Classify(ctx, pageURL); !decision.Allowed {
		p.logger.Debug("url rejected by classifier", zap.String("url", pageURL), zap.String("reason", string(decision.Reason)))
		return indexer.OutcomeInvalidExtension, nil
	}

	resp, err := p.fetch(ctx, pageURL)
	if err != nil {
		return indexer.OutcomeFetchError, err
	}

	doc := p.extractor.Extract(resp.Body, pageURL)
	words := p.scorer.Score(doc)

	if err := storage.Commit(ctx, p.backend, doc, words); err != nil {
		if errors.Is(err, storage.ErrCommitWords) {
			metrics.ObserveCompensation()
		}
		return indexer.OutcomeTransactionError, fmt.Errorf("commit document: %w", err)
	}

	p.publishIndexed(ctx, doc, len(words))
	return indexer.OutcomeTransactionSuccess, nil
}

func (p *Pipeline) fetch(ctx context.Context, pageURL string) (indexer.FetchResponse, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	resp, err := p.fetcher.Fetch(fetchCtx, pageURL)
	if err != nil {
		return indexer.FetchResponse{}, fmt.Errorf("fetch: %w", err)
	}
	metrics.ObserveFetch(pageURL, resp.Duration, len(resp.Body))
	return resp, nil
}

func (p *Pipeline) publishIndexed(ctx context.Context, doc indexer.Document, wordCount int) {
	if p.cfg.Topic == "" || p.publisher == nil {
		return
	}
	payload := map[string]any{
		"event":      EventDocumentIndexed,
		"id":         doc.ID,
		"url":        doc.URL,
		"title":      doc.Title,
		"word_count": wordCount,
		"timestamp":  p.clock.Now().Format(time.RFC3339),
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.Topic, payload); err != nil {
		p.logger.Warn("publish indexed notification failed", zap.String("url", doc.URL), zap.Error(err))
	}
}
