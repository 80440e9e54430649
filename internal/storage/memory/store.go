// Package memory provides an in-memory transactional store for development
// and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/webindexer/internal/indexer"
	"github.com/JakeFAU/webindexer/internal/storage"
)

// Op names an operation that can be forced to fail.
type Op string

// Injectable operations.
const (
	OpURLExists      Op = "url_exists"
	OpInsertDocument Op = "insert_document"
	OpInsertWords    Op = "insert_words"
	OpCommitDocument Op = "commit_document"
	OpCommitWords    Op = "commit_words"
	OpDeleteDocument Op = "delete_document"
	OpInsertScores   Op = "insert_scores"
)

var errSessionClosed = errors.New("session already closed")

// Store keeps documents, words and scores in memory. Sessions stage writes
// and apply them on Commit.
type Store struct {
	mu       sync.RWMutex
	docOrder []string
	docs     map[string]indexer.Document
	byURL    map[string]string
	words    []indexer.Words
	scores   []indexer.TfIdfScore
	failures map[Op]error
}

var _ storage.Store = (*Store)(nil)

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		docs:     make(map[string]indexer.Document),
		byURL:    make(map[string]string),
		failures: make(map[Op]error),
	}
}

// FailNext makes the next call of op return err.
func (s *Store) FailNext(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) takeFailure(op Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err, ok := s.failures[op]
	if !ok {
		return nil
	}
	delete(s.failures, op)
	return err
}

// EnsureSchema is a no-op.
func (s *Store) EnsureSchema(context.Context) error { return nil }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// URLExists reports whether a committed document has the URL.
func (s *Store) URLExists(_ context.Context, url string) (bool, error) {
	if err := s.takeFailure(OpURLExists); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byURL[url]
	return ok, nil
}

// BeginDocuments opens a document session.
func (s *Store) BeginDocuments(context.Context) (storage.DocumentSession, error) {
	return &documentSession{store: s}, nil
}

// BeginWords opens a word session.
func (s *Store) BeginWords(context.Context) (storage.WordSession, error) {
	return &wordSession{store: s}, nil
}

// DeleteDocument removes a committed document by ID.
func (s *Store) DeleteDocument(_ context.Context, id string) error {
	if err := s.takeFailure(OpDeleteDocument); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil
	}
	delete(s.docs, id)
	delete(s.byURL, doc.URL)
	for i, existing := range s.docOrder {
		if existing == id {
			s.docOrder = append(s.docOrder[:i], s.docOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Document returns a committed document by ID.
func (s *Store) Document(id string) (indexer.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

// DocumentCount returns the number of committed documents.
func (s *Store) DocumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// ScoreCount returns the number of stored scores.
func (s *Store) ScoreCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores)
}

// Scores returns a copy of the stored scores.
func (s *Store) Scores() []indexer.TfIdfScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]indexer.TfIdfScore(nil), s.scores...)
}

// DeleteAllScores clears the score collection.
func (s *Store) DeleteAllScores(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.scores))
	s.scores = nil
	return n, nil
}

// ListDocumentMetadata returns metadata for every document in commit order.
func (s *Store) ListDocumentMetadata(context.Context) ([]indexer.DocumentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]indexer.DocumentMetadata, 0, len(s.docOrder))
	for _, id := range s.docOrder {
		out = append(out, s.docs[id].Metadata())
	}
	return out, nil
}

// ListWords returns every committed word record.
func (s *Store) ListWords(context.Context) ([]indexer.Words, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]indexer.Words(nil), s.words...), nil
}

// InsertScores appends scores.
func (s *Store) InsertScores(_ context.Context, scores []indexer.TfIdfScore) error {
	if err := s.takeFailure(OpInsertScores); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = append(s.scores, scores...)
	return nil
}

type documentSession struct {
	store  *Store
	staged []indexer.Document
	closed bool
}

func (d *documentSession) InsertDocument(_ context.Context, doc indexer.Document) error {
	if d.closed {
		return errSessionClosed
	}
	if err := d.store.takeFailure(OpInsertDocument); err != nil {
		return err
	}
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	d.store.mu.RLock()
	_, exists := d.store.byURL[doc.URL]
	d.store.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateURL, doc.URL)
	}
	d.staged = append(d.staged, doc)
	return nil
}

func (d *documentSession) Commit(context.Context) error {
	if d.closed {
		return errSessionClosed
	}
	d.closed = true
	if err := d.store.takeFailure(OpCommitDocument); err != nil {
		return err
	}
	s := d.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range d.staged {
		if _, exists := s.byURL[doc.URL]; exists {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateURL, doc.URL)
		}
	}
	for _, doc := range d.staged {
		s.docs[doc.ID] = doc
		s.byURL[doc.URL] = doc.ID
		s.docOrder = append(s.docOrder, doc.ID)
	}
	return nil
}

func (d *documentSession) Abort(context.Context) error {
	d.closed = true
	d.staged = nil
	return nil
}

type wordSession struct {
	store  *Store
	staged []indexer.Words
	closed bool
}

func (w *wordSession) InsertWords(_ context.Context, words []indexer.Words) error {
	if w.closed {
		return errSessionClosed
	}
	if err := w.store.takeFailure(OpInsertWords); err != nil {
		return err
	}
	w.staged = append(w.staged, words...)
	return nil
}

func (w *wordSession) Commit(context.Context) error {
	if w.closed {
		return errSessionClosed
	}
	w.closed = true
	if err := w.store.takeFailure(OpCommitWords); err != nil {
		return err
	}
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.words = append(w.store.words, w.staged...)
	return nil
}

func (w *wordSession) Abort(context.Context) error {
	w.closed = true
	w.staged = nil
	return nil
}
