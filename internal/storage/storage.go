// Package storage defines the persistence contract shared by the document,
// word and score backends, and the dual-resource commit protocol that writes
// a document together with its words.
package storage

import (
	"context"
	"errors"

	"github.com/JakeFAU/webindexer/internal/indexer"
)

// Collection names used by every backend.
const (
	CollectionDocuments = "documents"
	CollectionWords     = "words"
	CollectionScores    = "tf_idf_scores"
)

// ErrDuplicateURL is returned when a document with the same URL is already stored.
var ErrDuplicateURL = errors.New("document url already exists")

// DocumentSession is a transaction scoped to the documents collection.
type DocumentSession interface {
	InsertDocument(ctx context.Context, doc indexer.Document) error
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// WordSession is a transaction scoped to the words collection.
type WordSession interface {
	InsertWords(ctx context.Context, words []indexer.Words) error
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// Backend is the pipeline-facing side of a store. The two sessions it opens
// are independent: committing one never commits the other. The context given
// to BeginDocuments and BeginWords bounds only acquiring the session; a
// session stays usable after that context is done.
type Backend interface {
	URLExists(ctx context.Context, url string) (bool, error)
	BeginDocuments(ctx context.Context) (DocumentSession, error)
	BeginWords(ctx context.Context) (WordSession, error)
	DeleteDocument(ctx context.Context, id string) error
}

// ScoreStore is the aggregator-facing side of a store.
type ScoreStore interface {
	DeleteAllScores(ctx context.Context) (int64, error)
	ListDocumentMetadata(ctx context.Context) ([]indexer.DocumentMetadata, error)
	ListWords(ctx context.Context) ([]indexer.Words, error)
	InsertScores(ctx context.Context, scores []indexer.TfIdfScore) error
}

// Store is a complete backend.
type Store interface {
	Backend
	ScoreStore
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
