package indexer

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Fetcher retrieves page bodies.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// Prober issues a HEAD-equivalent request and returns the response headers.
type Prober interface {
	Probe(ctx context.Context, url string) (http.Header, error)
}

// Publisher emits notifications to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore persists run artifacts.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints record identifiers.
type IDGenerator interface {
	NewID() string
}
