package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webindexer/internal/indexer"
	"github.com/JakeFAU/webindexer/internal/storage"
)

var (
	testDoc = indexer.Document{
		ID:           "doc-1",
		URL:          "https://example.com/rust",
		Title:        "Rust Guide",
		Description:  "Learn systems programming",
		CanonicalURL: "https://example.com/rust",
		SummaryText:  "rust is great rust rocks",
		FullText:     []string{"rust", "great", "rust", "rocks"},
	}
	testWords = []indexer.Words{
		{ID: "w-1", Document: "doc-1", Word: "rust", Count: 52},
		{ID: "w-2", Document: "doc-1", Word: "great", Count: 1},
	}
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func expectDocumentInsert(mock pgxmock.PgxPoolIface) *pgxmock.ExpectedExec {
	return mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			testDoc.ID,
			testDoc.URL,
			testDoc.Title,
			testDoc.Description,
			testDoc.CanonicalURL,
			testDoc.SummaryText,
			testDoc.FullText,
		)
}

func TestNewWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil)
	require.Error(t, err)
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.ErrorContains(t, err, "storage.dsn")

	_, err = New(context.Background(), Config{DSN: "://bad"})
	require.ErrorContains(t, err, "parse postgres dsn")
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS documents").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS words").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS words_document_idx").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tf_idf_scores").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS tf_idf_scores_word_idx").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestURLExists(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("https://example.com/rust").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("https://example.com/down").
		WillReturnError(errors.New("connection reset"))

	exists, err := store.URLExists(context.Background(), "https://example.com/rust")
	require.NoError(t, err)
	require.True(t, exists)

	_, err = store.URLExists(context.Background(), "https://example.com/down")
	require.ErrorContains(t, err, "check url exists")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitUsesTwoTransactions(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	expectDocumentInsert(mock).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"words"}, wordColumns).WillReturnResult(int64(len(testWords)))
	mock.ExpectCommit()
	mock.ExpectCommit()

	require.NoError(t, storage.Commit(context.Background(), store, testDoc, testWords))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitWordCopyFailureRollsBackBoth(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	expectDocumentInsert(mock).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"words"}, wordColumns).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()
	mock.ExpectRollback()

	err := storage.Commit(context.Background(), store, testDoc, testWords)
	require.ErrorIs(t, err, storage.ErrInsertWords)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitDuplicateURL(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	expectDocumentInsert(mock).WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	mock.ExpectRollback()

	err := storage.Commit(context.Background(), store, testDoc, testWords)
	require.ErrorIs(t, err, storage.ErrInsertDocument)
	require.ErrorIs(t, err, storage.ErrDuplicateURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitWordCommitFailureDeletesDocument(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	expectDocumentInsert(mock).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"words"}, wordColumns).WillReturnResult(int64(len(testWords)))
	mock.ExpectCommit()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
	mock.ExpectExec("DELETE FROM documents WHERE id").
		WithArgs(testDoc.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := storage.Commit(context.Background(), store, testDoc, testWords)
	require.ErrorIs(t, err, storage.ErrCommitWords)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertWordsShortCopy(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"words"}, wordColumns).WillReturnResult(1)

	session, err := store.BeginWords(context.Background())
	require.NoError(t, err)
	err = session.InsertWords(context.Background(), testWords)
	require.ErrorContains(t, err, "wrote 1 of 2 rows")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	_, err := store.BeginDocuments(context.Background())
	require.ErrorContains(t, err, "begin documents tx")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAllScores(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM tf_idf_scores").WillReturnResult(pgxmock.NewResult("DELETE", 42))

	n, err := store.DeleteAllScores(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 42, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDocumentMetadata(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, url, title, description FROM documents").
		WillReturnRows(pgxmock.NewRows([]string{"id", "url", "title", "description"}).
			AddRow("d1", "https://a.example", "A", "first").
			AddRow("d2", "https://b.example", "B", ""))

	meta, err := store.ListDocumentMetadata(context.Background())
	require.NoError(t, err)
	require.Equal(t, []indexer.DocumentMetadata{
		{ID: "d1", URL: "https://a.example", Title: "A", Description: "first"},
		{ID: "d2", URL: "https://b.example", Title: "B"},
	}, meta)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListWords(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, document, word, count FROM words").
		WillReturnRows(pgxmock.NewRows([]string{"id", "document", "word", "count"}).
			AddRow("w-1", "doc-1", "rust", int32(52)).
			AddRow("w-2", "doc-1", "great", int32(1)))

	words, err := store.ListWords(context.Background())
	require.NoError(t, err)
	require.Equal(t, testWords, words)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertScores(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	scores := []indexer.TfIdfScore{
		{ID: "s1", Word: "rust", DocumentID: "doc-1", URL: "https://example.com", TF: 0.5, IDF: 1, TFIDF: 0.5},
	}
	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"tf_idf_scores"}, scoreColumns).WillReturnResult(1)
	mock.ExpectCommit()

	require.NoError(t, store.InsertScores(context.Background(), scores))
	require.NoError(t, store.InsertScores(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertScoresCopyFailureRollsBack(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"tf_idf_scores"}, scoreColumns).WillReturnError(errors.New("timeout"))
	mock.ExpectRollback()

	err := store.InsertScores(context.Background(), []indexer.TfIdfScore{{ID: "s1"}})
	require.ErrorContains(t, err, "copy scores")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewWithPool(mock)
	require.NoError(t, err)

	mock.ExpectPing()
	require.NoError(t, store.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	require.ErrorContains(t, store.Ping(context.Background()), "ping postgres")
	require.NoError(t, mock.ExpectationsWereMet())
}
