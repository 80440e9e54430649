package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/webindexer/internal/input"
)

// runFailuresError marks a crawl that finished with failed URLs.
type runFailuresError struct {
	failures int
	total    int
}

func (e runFailuresError) Error() string {
	return fmt.Sprintf("%d of %d urls failed", e.failures, e.total)
}

func newCrawlCmd() *cobra.Command {
	var (
		urlsFile string
		strict   bool
	)
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Index every URL in the list",
		Long: `Reads one URL per line (blank lines and # comments are skipped) and runs
each through classification, fetch, extraction, scoring and a dual-store
commit, with a bounded number of URLs in flight.`,
		RunE: withSession(func(cmd *cobra.Command, rt *session) error {
			path := urlsFile
			if path == "" {
				path = rt.cfg.Crawl.URLsFile
			}
			urls, err := input.ReadURLFile(path)
			if err != nil {
				return err
			}

			summary, err := rt.services.Crawl(cmd.Context(), urls)
			if err != nil {
				return fmt.Errorf("crawl: %w", err)
			}
			rt.logger.Info("crawl command finished",
				zap.String("run_id", summary.RunID),
				zap.Int("total", summary.Total),
				zap.Int("failures", summary.Failures()),
			)
			if strict && summary.Failures() > 0 {
				return runFailuresError{failures: summary.Failures(), total: summary.Total}
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&urlsFile, "urls", "", "file with one URL per line (default crawl.urls_file)")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any URL fails")
	return cmd
}
