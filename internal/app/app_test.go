// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JakeFAU/webindexer/internal/app"
	"github.com/JakeFAU/webindexer/internal/config"
	"github.com/JakeFAU/webindexer/internal/indexer"
	pubmemory "github.com/JakeFAU/webindexer/internal/publisher/memory"
	"github.com/JakeFAU/webindexer/internal/storage/memory"
)

const page = `<html><head>
<title>Rust Programming</title>
<meta name="description" content="Learn rust">
</head><body>
<p>Rust is fast. Rust is safe.</p>
<p>Ownership makes rust memory safe.</p>
</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rust", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = fmt.Fprint(w, page)
	})
	mux.HandleFunc("/go", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = fmt.Fprint(w, `<html><head><title>Go</title></head><body><p>Go is simple.</p></body></html>`)
	})
	// Passes the probe but fails the fetch.
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.Method == http.MethodHead {
			return
		}
		w.WriteHeader(http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Driver = config.DriverMemory
	cfg.Fetch.TimeoutSeconds = 5
	cfg.Report.Dir = t.TempDir()
	return cfg
}

func TestCrawlEndToEnd(t *testing.T) {
	site := newSite(t)
	cfg := memoryConfig(t)
	cfg.Publisher.ProjectID = "test"
	cfg.Publisher.Topic = "indexed"

	pub := pubmemory.New()
	a, err := app.New(context.Background(), cfg, zaptest.NewLogger(t), app.WithPublisher(pub))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	urls := []string{
		site.URL + "/rust",
		site.URL + "/go",
		site.URL + "/rust",
		site.URL + "/gone",
		site.URL + "/archive.zip",
	}
	summary, err := a.Crawl(context.Background(), urls)
	require.NoError(t, err)

	assert.Equal(t, len(urls), summary.Total)
	assert.Equal(t, len(urls), summary.Completed)
	assert.Equal(t, 1, summary.Outcomes[indexer.OutcomeFetchError])
	assert.Equal(t, 1, summary.Outcomes[indexer.OutcomeInvalidExtension])
	// The duplicate /rust races the first one: it either sees the stored
	// document or loses the unique url constraint.
	assert.Equal(t, 3, summary.Outcomes[indexer.OutcomeTransactionSuccess]+
		summary.Outcomes[indexer.OutcomeURLExists]+summary.Outcomes[indexer.OutcomeTransactionError])
	assert.GreaterOrEqual(t, summary.Outcomes[indexer.OutcomeTransactionSuccess], 2)

	store, ok := a.Store().(*memory.Store)
	require.True(t, ok)
	assert.Equal(t, 2, store.DocumentCount())
	assert.Len(t, pub.ForTopic("indexed"), summary.Outcomes[indexer.OutcomeTransactionSuccess])

	reportPath := filepath.Join(cfg.Report.Dir, "runs", summary.RunID+".yaml")
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id: "+summary.RunID)
	assert.Contains(t, string(data), "fetch_error: 1")

	n, err := a.RebuildScores(context.Background())
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Equal(t, n, store.ScoreCount())
}

func TestCrawlWithReportStoreOverride(t *testing.T) {
	site := newSite(t)
	cfg := memoryConfig(t)
	cfg.Report.Dir = ""

	blobs := memory.NewBlobStore()
	a, err := app.New(context.Background(), cfg, zaptest.NewLogger(t), app.WithReportStore(blobs))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	summary, err := a.Crawl(context.Background(), []string{site.URL + "/go"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[indexer.OutcomeTransactionSuccess])

	obj, ok := blobs.Get("runs/" + summary.RunID + ".yaml")
	require.True(t, ok)
	assert.Equal(t, "application/yaml", obj.ContentType)
}

func TestCrawlWithoutReportSink(t *testing.T) {
	site := newSite(t)
	cfg := memoryConfig(t)
	cfg.Report.Dir = ""

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	summary, err := a.Crawl(context.Background(), []string{site.URL + "/go"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed)
}

func TestNewSQLiteDriver(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	cfg.Storage.Driver = config.DriverSQLite
	cfg.Storage.SQLiteDir = filepath.Join(t.TempDir(), "db")

	a, err := app.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, a.Migrate(context.Background()))
	require.NoError(t, a.Store().Ping(context.Background()))

	n, err := a.RebuildScores(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestNewUnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	cfg.Storage.Driver = "mongo"

	_, err := app.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage driver")
}

func TestNewBadReportDir(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	cfg := memoryConfig(t)
	cfg.Report.Dir = file

	_, err := app.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init report dir")
}
