// Package postgres provides the Postgres-backed document, word and score store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/webindexer/internal/indexer"
	"github.com/JakeFAU/webindexer/internal/storage"
)

const uniqueViolation = "23505"

var (
	wordColumns  = []string{"id", "document", "word", "count"}
	scoreColumns = []string{"id", "word", "document_id", "url", "tf", "idf", "tf_idf"}
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store persists documents, words and scores in Postgres. Each session is
// a separate pgx transaction acquired from the pool.
type Store struct {
	pool pgxIface
}

var _ storage.Store = (*Store)(nil)

// New creates a pool-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool pgxIface) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// EnsureSchema creates the collections and indexes if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the pool can reach the server.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// URLExists reports whether a document with url is stored.
func (s *Store) URLExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE url = $1)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check url exists: %w", err)
	}
	return exists, nil
}

// BeginDocuments opens a transaction for the documents collection.
func (s *Store) BeginDocuments(ctx context.Context) (storage.DocumentSession, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin documents tx: %w", err)
	}
	return &documentSession{tx: tx}, nil
}

// BeginWords opens a transaction for the words collection.
func (s *Store) BeginWords(ctx context.Context) (storage.WordSession, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin words tx: %w", err)
	}
	return &wordSession{tx: tx}, nil
}

// DeleteDocument removes a document by ID.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// DeleteAllScores clears tf_idf_scores and returns the number of rows removed.
func (s *Store) DeleteAllScores(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tf_idf_scores`)
	if err != nil {
		return 0, fmt.Errorf("delete scores: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListDocumentMetadata loads the lightweight projection of every document.
func (s *Store) ListDocumentMetadata(ctx context.Context) ([]indexer.DocumentMetadata, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, url, title, description FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query document metadata: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (indexer.DocumentMetadata, error) {
		var m indexer.DocumentMetadata
		err := row.Scan(&m.ID, &m.URL, &m.Title, &m.Description)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan document metadata: %w", err)
	}
	return out, nil
}

// ListWords loads every word record.
func (s *Store) ListWords(ctx context.Context) ([]indexer.Words, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, document, word, count FROM words ORDER BY document, id`)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (indexer.Words, error) {
		var w indexer.Words
		err := row.Scan(&w.ID, &w.Document, &w.Word, &w.Count)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan words: %w", err)
	}
	return out, nil
}

// InsertScores bulk-loads scores with COPY inside a single transaction.
func (s *Store) InsertScores(ctx context.Context, scores []indexer.TfIdfScore) error {
	if len(scores) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin scores tx: %w", err)
	}
	src := pgx.CopyFromSlice(len(scores), func(i int) ([]any, error) {
		sc := scores[i]
		return []any{sc.ID, sc.Word, sc.DocumentID, sc.URL, sc.TF, sc.IDF, sc.TFIDF}, nil
	})
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{storage.CollectionScores}, scoreColumns, src); err != nil {
		return errors.Join(fmt.Errorf("copy scores: %w", err), rollback(ctx, tx))
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit scores: %w", err)
	}
	return nil
}

type documentSession struct {
	tx pgx.Tx
}

func (d *documentSession) InsertDocument(ctx context.Context, doc indexer.Document) error {
	fullText := doc.FullText
	if fullText == nil {
		fullText = []string{}
	}
	_, err := d.tx.Exec(ctx, `
INSERT INTO documents (
	id,
	url,
	title,
	description,
	canonical_url,
	summary_text,
	full_text
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
)`, doc.ID, doc.URL, doc.Title, doc.Description, doc.CanonicalURL, doc.SummaryText, fullText)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateURL, doc.URL)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (d *documentSession) Commit(ctx context.Context) error {
	if err := d.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit documents tx: %w", err)
	}
	return nil
}

func (d *documentSession) Abort(ctx context.Context) error {
	return rollback(ctx, d.tx)
}

type wordSession struct {
	tx pgx.Tx
}

func (w *wordSession) InsertWords(ctx context.Context, words []indexer.Words) error {
	src := pgx.CopyFromSlice(len(words), func(i int) ([]any, error) {
		wd := words[i]
		return []any{wd.ID, wd.Document, wd.Word, wd.Count}, nil
	})
	n, err := w.tx.CopyFrom(ctx, pgx.Identifier{storage.CollectionWords}, wordColumns, src)
	if err != nil {
		return fmt.Errorf("copy words: %w", err)
	}
	if n != int64(len(words)) {
		return fmt.Errorf("copy words: wrote %d of %d rows", n, len(words))
	}
	return nil
}

func (w *wordSession) Commit(ctx context.Context) error {
	if err := w.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit words tx: %w", err)
	}
	return nil
}

func (w *wordSession) Abort(ctx context.Context) error {
	return rollback(ctx, w.tx)
}

func rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
