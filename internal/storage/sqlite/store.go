// Package sqlite provides a local, single-binary store on modernc.org/sqlite.
//
// Each collection lives in its own database file so the document and word
// sessions are independently transactional: SQLite allows one writer per
// file, and a shared file would serialize the two sessions of one commit
// against each other.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JakeFAU/webindexer/internal/indexer"
	"github.com/JakeFAU/webindexer/internal/storage"
)

const pragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// Store keeps documents, words and scores in three SQLite files under dir.
type Store struct {
	dir    string
	docs   *sql.DB
	words  *sql.DB
	scores *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if needed) the database files under dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage.sqlite_dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{dir: dir}
	var err error
	if s.docs, err = open(dir, storage.CollectionDocuments); err != nil {
		return nil, err
	}
	if s.words, err = open(dir, storage.CollectionWords); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	if s.scores, err = open(dir, storage.CollectionScores); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

func open(dir, collection string) (*sql.DB, error) {
	path := filepath.Join(dir, collection+".db")
	db, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return db, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Close closes every open database.
func (s *Store) Close() error {
	var errs []error
	for _, db := range []*sql.DB{s.docs, s.words, s.scores} {
		if db != nil {
			errs = append(errs, db.Close())
		}
	}
	return errors.Join(errs...)
}

// EnsureSchema creates the tables in each file.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for db, stmts := range map[*sql.DB][]string{
		s.docs:   documentsSchema,
		s.words:  wordsSchema,
		s.scores: scoresSchema,
	} {
		for _, stmt := range stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
	}
	return nil
}

// Ping verifies every database file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	for _, db := range []*sql.DB{s.docs, s.words, s.scores} {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping sqlite: %w", err)
		}
	}
	return nil
}

// URLExists reports whether a document with url is stored.
func (s *Store) URLExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.docs.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE url = ?)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check url exists: %w", err)
	}
	return exists, nil
}

// BeginDocuments opens a transaction on the documents file.
func (s *Store) BeginDocuments(ctx context.Context) (storage.DocumentSession, error) {
	tx, err := s.begin(ctx, s.docs)
	if err != nil {
		return nil, fmt.Errorf("begin documents tx: %w", err)
	}
	return &documentSession{tx: tx}, nil
}

// begin opens a transaction whose lifetime is independent of ctx.
// database/sql rolls a transaction back when its BeginTx context ends, but
// sessions must outlive the context they were acquired with.
func (s *Store) begin(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return db.BeginTx(context.WithoutCancel(ctx), nil)
}

// BeginWords opens a transaction on the words file.
func (s *Store) BeginWords(ctx context.Context) (storage.WordSession, error) {
	tx, err := s.begin(ctx, s.words)
	if err != nil {
		return nil, fmt.Errorf("begin words tx: %w", err)
	}
	return &wordSession{tx: tx}, nil
}

// DeleteDocument removes a document by ID.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.docs.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// DeleteAllScores clears tf_idf_scores and returns the number of rows removed.
func (s *Store) DeleteAllScores(ctx context.Context) (int64, error) {
	res, err := s.scores.ExecContext(ctx, `DELETE FROM tf_idf_scores`)
	if err != nil {
		return 0, fmt.Errorf("delete scores: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete scores: %w", err)
	}
	return n, nil
}

// ListDocumentMetadata loads the lightweight projection of every document.
func (s *Store) ListDocumentMetadata(ctx context.Context) ([]indexer.DocumentMetadata, error) {
	rows, err := s.docs.QueryContext(ctx, `SELECT id, url, title, description FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query document metadata: %w", err)
	}
	defer rows.Close()

	var out []indexer.DocumentMetadata
	for rows.Next() {
		var m indexer.DocumentMetadata
		if err := rows.Scan(&m.ID, &m.URL, &m.Title, &m.Description); err != nil {
			return nil, fmt.Errorf("scan document metadata: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document metadata: %w", err)
	}
	return out, nil
}

// Document loads one full document by ID.
func (s *Store) Document(ctx context.Context, id string) (indexer.Document, error) {
	var (
		doc      indexer.Document
		fullText string
	)
	err := s.docs.QueryRowContext(ctx, `
SELECT id, url, title, description, canonical_url, summary_text, full_text
FROM documents WHERE id = ?`, id).Scan(
		&doc.ID, &doc.URL, &doc.Title, &doc.Description, &doc.CanonicalURL, &doc.SummaryText, &fullText,
	)
	if err != nil {
		return indexer.Document{}, fmt.Errorf("load document %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(fullText), &doc.FullText); err != nil {
		return indexer.Document{}, fmt.Errorf("decode full_text: %w", err)
	}
	return doc, nil
}

// ListWords loads every word record.
func (s *Store) ListWords(ctx context.Context) ([]indexer.Words, error) {
	rows, err := s.words.QueryContext(ctx, `SELECT id, document, word, count FROM words ORDER BY document, id`)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	var out []indexer.Words
	for rows.Next() {
		var w indexer.Words
		if err := rows.Scan(&w.ID, &w.Document, &w.Word, &w.Count); err != nil {
			return nil, fmt.Errorf("scan words: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate words: %w", err)
	}
	return out, nil
}

// InsertScores writes one batch of scores in a single transaction.
func (s *Store) InsertScores(ctx context.Context, scores []indexer.TfIdfScore) error {
	if len(scores) == 0 {
		return nil
	}
	tx, err := s.scores.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin scores tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO tf_idf_scores (id, word, document_id, url, tf, idf, tf_idf) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Join(fmt.Errorf("prepare scores insert: %w", err), tx.Rollback())
	}
	defer stmt.Close()
	for _, sc := range scores {
		if _, err := stmt.ExecContext(ctx, sc.ID, sc.Word, sc.DocumentID, sc.URL, sc.TF, sc.IDF, sc.TFIDF); err != nil {
			return errors.Join(fmt.Errorf("insert score: %w", err), tx.Rollback())
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scores: %w", err)
	}
	return nil
}

type documentSession struct {
	tx *sql.Tx
}

func (d *documentSession) InsertDocument(ctx context.Context, doc indexer.Document) error {
	fullText := doc.FullText
	if fullText == nil {
		fullText = []string{}
	}
	encoded, err := json.Marshal(fullText)
	if err != nil {
		return fmt.Errorf("encode full_text: %w", err)
	}
	_, err = d.tx.ExecContext(ctx, `
INSERT INTO documents (id, url, title, description, canonical_url, summary_text, full_text)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.URL, doc.Title, doc.Description, doc.CanonicalURL, doc.SummaryText, string(encoded))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateURL, doc.URL)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (d *documentSession) Commit(context.Context) error {
	if err := d.tx.Commit(); err != nil {
		return fmt.Errorf("commit documents tx: %w", err)
	}
	return nil
}

func (d *documentSession) Abort(context.Context) error {
	return rollback(d.tx)
}

type wordSession struct {
	tx *sql.Tx
}

func (w *wordSession) InsertWords(ctx context.Context, words []indexer.Words) error {
	stmt, err := w.tx.PrepareContext(ctx, `INSERT INTO words (id, document, word, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare words insert: %w", err)
	}
	defer stmt.Close()
	for _, wd := range words {
		if _, err := stmt.ExecContext(ctx, wd.ID, wd.Document, wd.Word, wd.Count); err != nil {
			return fmt.Errorf("insert word %q: %w", wd.Word, err)
		}
	}
	return nil
}

func (w *wordSession) Commit(context.Context) error {
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("commit words tx: %w", err)
	}
	return nil
}

func (w *wordSession) Abort(context.Context) error {
	return rollback(w.tx)
}

func rollback(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "documents.url")
}
