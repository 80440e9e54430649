// Package dispatcher fans URL pipelines out under a fixed admission limit.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/webindexer/internal/indexer"
	"github.com/JakeFAU/webindexer/internal/metrics"
)

// DefaultConcurrency is the number of pipelines admitted at once.
const DefaultConcurrency = 10

// Processor runs one URL to a terminal outcome.
type Processor interface {
	Process(ctx context.Context, rawURL string) indexer.Outcome
}

// Config controls Dispatcher behavior.
type Config struct {
	Concurrency int
}

// Dispatcher runs a batch of URLs with at most Concurrency in flight.
type Dispatcher struct {
	processor   Processor
	concurrency int64
	clock       indexer.Clock
	ids         indexer.IDGenerator
	logger      *zap.Logger

	mu      sync.Mutex
	current indexer.Summary
}

// New creates a Dispatcher.
func New(processor Processor, cfg Config, clock indexer.Clock, ids indexer.IDGenerator, logger *zap.Logger) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Dispatcher{
		processor:   processor,
		concurrency: int64(cfg.Concurrency),
		clock:       clock,
		ids:         ids,
		logger:      logger,
	}
}

// Run processes every URL and blocks until all admitted pipelines finish.
// URLs that could not be admitted before ctx ended count as url_error.
func (d *Dispatcher) Run(ctx context.Context, urls []string) indexer.Summary {
	d.reset(len(urls))
	sem := semaphore.NewWeighted(d.concurrency)
	var wg sync.WaitGroup

	for i, rawURL := range urls {
		if err := sem.Acquire(ctx, 1); err != nil {
			skipped := len(urls) - i
			d.logger.Warn("admission stopped", zap.Int("skipped", skipped), zap.Error(err))
			for range skipped {
				d.record(indexer.OutcomeURLError)
			}
			break
		}
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			defer sem.Release(1)
			d.record(d.runOne(ctx, u))
		}(rawURL)
	}
	wg.Wait()

	d.mu.Lock()
	d.current.FinishedAt = d.clock.Now()
	summary := copySummary(d.current)
	d.mu.Unlock()

	d.logger.Info("crawl finished",
		zap.String("run_id", summary.RunID),
		zap.Int("total", summary.Total),
		zap.Int("failures", summary.Failures()),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary
}

func (d *Dispatcher) runOne(ctx context.Context, rawURL string) (outcome indexer.Outcome) {
	metrics.IncInflight()
	defer metrics.DecInflight()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("pipeline panicked", zap.String("url", rawURL), zap.Error(fmt.Errorf("panic: %v", r)))
			metrics.ObserveOutcome(string(indexer.OutcomeURLError))
			outcome = indexer.OutcomeURLError
		}
	}()
	return d.processor.Process(ctx, rawURL)
}

// Snapshot returns the live tally of the current or most recent run.
func (d *Dispatcher) Snapshot() indexer.Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copySummary(d.current)
}

func (d *Dispatcher) reset(total int) {
	outcomes := make(map[indexer.Outcome]int, len(indexer.Outcomes()))
	for _, o := range indexer.Outcomes() {
		outcomes[o] = 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = indexer.Summary{
		RunID:     d.ids.NewID(),
		StartedAt: d.clock.Now(),
		Total:     total,
		Outcomes:  outcomes,
	}
}

func (d *Dispatcher) record(outcome indexer.Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current.Outcomes[outcome]++
	d.current.Completed++
}

func copySummary(s indexer.Summary) indexer.Summary {
	out := s
	out.Outcomes = make(map[indexer.Outcome]int, len(s.Outcomes))
	for k, v := range s.Outcomes {
		out.Outcomes[k] = v
	}
	return out
}
