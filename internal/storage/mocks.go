package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JakeFAU/webindexer/internal/indexer"
)

// MockBackend is a testify mock of Backend.
type MockBackend struct {
	mock.Mock
}

// URLExists is the mock implementation.
func (m *MockBackend) URLExists(ctx context.Context, url string) (bool, error) {
	args := m.Called(ctx, url)
	return args.Bool(0), args.Error(1) //nolint:wrapcheck
}

// BeginDocuments is the mock implementation.
func (m *MockBackend) BeginDocuments(ctx context.Context) (DocumentSession, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(DocumentSession)
	return s, args.Error(1) //nolint:wrapcheck
}

// BeginWords is the mock implementation.
func (m *MockBackend) BeginWords(ctx context.Context) (WordSession, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(WordSession)
	return s, args.Error(1) //nolint:wrapcheck
}

// DeleteDocument is the mock implementation.
func (m *MockBackend) DeleteDocument(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0) //nolint:wrapcheck
}

// MockDocumentSession is a testify mock of DocumentSession.
type MockDocumentSession struct {
	mock.Mock
}

// InsertDocument is the mock implementation.
func (m *MockDocumentSession) InsertDocument(ctx context.Context, doc indexer.Document) error {
	return m.Called(ctx, doc).Error(0) //nolint:wrapcheck
}

// Commit is the mock implementation.
func (m *MockDocumentSession) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0) //nolint:wrapcheck
}

// Abort is the mock implementation.
func (m *MockDocumentSession) Abort(ctx context.Context) error {
	return m.Called(ctx).Error(0) //nolint:wrapcheck
}

// MockWordSession is a testify mock of WordSession.
type MockWordSession struct {
	mock.Mock
}

// InsertWords is the mock implementation.
func (m *MockWordSession) InsertWords(ctx context.Context, words []indexer.Words) error {
	return m.Called(ctx, words).Error(0) //nolint:wrapcheck
}

// Commit is the mock implementation.
func (m *MockWordSession) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0) //nolint:wrapcheck
}

// Abort is the mock implementation.
func (m *MockWordSession) Abort(ctx context.Context) error {
	return m.Called(ctx).Error(0) //nolint:wrapcheck
}
