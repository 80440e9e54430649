// Package collyfetcher implements the page fetcher and the HEAD prober using gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/webindexer/internal/indexer"
)

const defaultTimeout = 30 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.StatusCode)
}

// Fetcher implements indexer.Fetcher and indexer.Prober using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

var (
	_ indexer.Fetcher = (*Fetcher)(nil)
	_ indexer.Prober  = (*Fetcher)(nil)
)

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Deduplication is the pipeline's job, so the
// collector revisits freely and never consults robots.txt.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	opts := []colly.CollectorOption{
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	if cfg.MaxBodyBytes > 0 {
		opts = append(opts, colly.MaxBodySize(cfg.MaxBodyBytes))
	}
	c := colly.NewCollector(opts...)
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single HTTP GET.
func (f *Fetcher) Fetch(ctx context.Context, url string) (indexer.FetchResponse, error) {
	var (
		result   indexer.FetchResponse
		fetchErr error
	)
	start := time.Now()
	collector := f.baseCollector.Clone()
	configureCollectorHooks(collector, start, &result, &fetchErr)

	if err := runCollector(ctx, func() error { return collector.Visit(url) }, &fetchErr); err != nil {
		return indexer.FetchResponse{}, err
	}
	return result, nil
}

// Probe issues a HEAD request and returns the response headers.
func (f *Fetcher) Probe(ctx context.Context, url string) (http.Header, error) {
	var (
		result   indexer.FetchResponse
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	configureCollectorHooks(collector, time.Now(), &result, &fetchErr)

	if err := runCollector(ctx, func() error { return collector.Head(url) }, &fetchErr); err != nil {
		return nil, err
	}
	if result.Headers == nil {
		return http.Header{}, nil
	}
	return result.Headers, nil
}

func configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *indexer.FetchResponse,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		if r.StatusCode < http.StatusOK || r.StatusCode >= http.StatusMultipleChoices {
			*fetchErr = &StatusError{URL: r.Request.URL.String(), StatusCode: r.StatusCode}
			return
		}
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		*result = indexer.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       bytes.Clone(r.Body),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 && r.Request != nil {
			*fetchErr = fmt.Errorf("%w: %w", &StatusError{URL: r.Request.URL.String(), StatusCode: r.StatusCode}, err)
			return
		}
		*fetchErr = err
	})
}

func runCollector(ctx context.Context, visit func() error, fetchErr *error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("colly fetch canceled: %w", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- visit()
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
