package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/webindexer/internal/indexer"
)

// Commit failure classes, matchable with errors.Is.
var (
	ErrInsertDocument = errors.New("insert document")
	ErrInsertWords    = errors.New("insert words")
	ErrCommitDocument = errors.New("commit document")
	ErrCommitWords    = errors.New("commit words")
	ErrCompensation   = errors.New("compensating delete")
)

// cleanupTimeout bounds aborts and the compensating delete, which run on a
// context detached from the caller's cancellation.
const cleanupTimeout = 10 * time.Second

// WordSessionTimeout bounds how long Commit waits for a word session while
// it holds an open document session, so an exhausted connection pool turns
// into a commit error instead of a stall.
const WordSessionTimeout = 30 * time.Second

// Commit writes doc and its words through two independent sessions.
//
// The document is inserted first; if that fails the word insert is never
// attempted. If the word insert fails both sessions are aborted, so the
// document never becomes visible. The document session commits before the
// word session; if the word commit then fails the committed document is
// deleted again. A nil error means both halves are durable. Any error means
// neither half should be relied upon, and ErrCompensation in the chain means
// an orphaned document may remain.
func Commit(ctx context.Context, b Backend, doc indexer.Document, words []indexer.Words) error {
	return commit(ctx, b, doc, words, WordSessionTimeout)
}

func commit(ctx context.Context, b Backend, doc indexer.Document, words []indexer.Words, wordWait time.Duration) error {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	docs, err := b.BeginDocuments(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin session: %w", ErrInsertDocument, err)
	}
	if err := docs.InsertDocument(ctx, doc); err != nil {
		return errors.Join(fmt.Errorf("%w: %w", ErrInsertDocument, err), abort(cleanupCtx, "documents", docs))
	}

	beginCtx, cancelBegin := context.WithTimeout(ctx, wordWait)
	ws, err := b.BeginWords(beginCtx)
	cancelBegin()
	if err != nil {
		return errors.Join(
			fmt.Errorf("%w: begin session: %w", ErrInsertWords, err),
			abort(cleanupCtx, "documents", docs),
		)
	}
	if len(words) > 0 {
		if err := ws.InsertWords(ctx, words); err != nil {
			return errors.Join(
				fmt.Errorf("%w: %w", ErrInsertWords, err),
				abort(cleanupCtx, "words", ws),
				abort(cleanupCtx, "documents", docs),
			)
		}
	}

	if err := docs.Commit(ctx); err != nil {
		return errors.Join(fmt.Errorf("%w: %w", ErrCommitDocument, err), abort(cleanupCtx, "words", ws))
	}
	if err := ws.Commit(ctx); err != nil {
		commitErr := fmt.Errorf("%w: %w", ErrCommitWords, err)
		if delErr := b.DeleteDocument(cleanupCtx, doc.ID); delErr != nil {
			return errors.Join(commitErr, fmt.Errorf("%w of document %s: %w", ErrCompensation, doc.ID, delErr))
		}
		return commitErr
	}
	return nil
}

type aborter interface {
	Abort(ctx context.Context) error
}

func abort(ctx context.Context, name string, s aborter) error {
	if err := s.Abort(ctx); err != nil {
		return fmt.Errorf("abort %s session: %w", name, err)
	}
	return nil
}
