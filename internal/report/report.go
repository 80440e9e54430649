// Package report renders crawl summaries as YAML and stores them.
package report

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/webindexer/internal/indexer"
)

// ContentType is the MIME type of rendered reports.
const ContentType = "application/yaml"

// DefaultPrefix is the object prefix used when none is configured.
const DefaultPrefix = "runs"

type document struct {
	indexer.Summary `yaml:",inline"`
	Failures        int     `yaml:"failures"`
	ElapsedSeconds  float64 `yaml:"elapsed_seconds"`
}

// Render encodes summary as YAML.
func Render(summary indexer.Summary) ([]byte, error) {
	doc := document{Summary: summary, Failures: summary.Failures()}
	if !summary.FinishedAt.IsZero() {
		doc.ElapsedSeconds = summary.FinishedAt.Sub(summary.StartedAt).Seconds()
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return buf.Bytes(), nil
}

// Writer stores rendered summaries through a BlobStore.
type Writer struct {
	store  indexer.BlobStore
	prefix string
	logger *zap.Logger
}

// New creates a Writer. An empty prefix selects DefaultPrefix.
func New(store indexer.BlobStore, prefix string, logger *zap.Logger) *Writer {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, prefix: prefix, logger: logger}
}

// ObjectPath returns the object name for a run.
func (w *Writer) ObjectPath(runID string) string {
	return path.Join(w.prefix, runID+".yaml")
}

// Write renders summary and stores it, returning the artifact URI.
func (w *Writer) Write(ctx context.Context, summary indexer.Summary) (string, error) {
	if summary.RunID == "" {
		return "", fmt.Errorf("summary run id is required")
	}
	data, err := Render(summary)
	if err != nil {
		return "", err
	}
	uri, err := w.store.PutObject(ctx, w.ObjectPath(summary.RunID), ContentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}
	w.logger.Info("run report written", zap.String("run_id", summary.RunID), zap.String("uri", uri))
	return uri, nil
}
