package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/webindexer/internal/app"
	"github.com/JakeFAU/webindexer/internal/config"
	"github.com/JakeFAU/webindexer/internal/indexer"
	"github.com/JakeFAU/webindexer/internal/logging"
)

// appKeyType is the key for storing the services in the context.
type appKeyType string

const appKey appKeyType = "app"

// Services is the slice of *app.App the commands use, so tests can inject a
// fake.
type Services interface {
	Crawl(ctx context.Context, urls []string) (indexer.Summary, error)
	RebuildScores(ctx context.Context) (int, error)
	Migrate(ctx context.Context) error
	Close() error
}

// session is what PersistentPreRunE hands to subcommands.
type session struct {
	cfg      config.Config
	logger   *zap.Logger
	services Services
}

// newApp is the services factory. Tests replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (Services, error) {
	return app.New(ctx, cfg, logger)
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "webindexer",
		Short: "Index web pages and rank their words with TF-IDF.",
		Long: `webindexer fetches a list of URLs, stores each readable page with its
most frequent words, and rebuilds a TF-IDF score table over the corpus.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			services, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			rt := &session{cfg: cfg, logger: logger, services: services}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, rt))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")

	cmd.AddCommand(newCrawlCmd(), newTFIDFCmd(), newMigrateCmd())
	return cmd
}

func resolveSession(ctx context.Context) (*session, error) {
	rt, ok := ctx.Value(appKey).(*session)
	if !ok || rt == nil {
		return nil, errors.New("application services not initialized")
	}
	return rt, nil
}

// withSession runs fn against the injected services and closes them
// afterwards, whether or not fn succeeds.
func withSession(fn func(cmd *cobra.Command, rt *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) (err error) {
		rt, err := resolveSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			if cerr := rt.services.Close(); cerr != nil {
				rt.logger.Warn("failed to close services", zap.Error(cerr))
				err = errors.Join(err, cerr)
			}
			_ = rt.logger.Sync()
		}()
		return fn(cmd, rt)
	}
}
