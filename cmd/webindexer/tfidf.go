package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTFIDFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tfidf",
		Short: "Rebuild the TF-IDF score table",
		Long: `Deletes every stored score and recomputes TF-IDF over all indexed
documents, writing the results in batches.`,
		RunE: withSession(func(cmd *cobra.Command, rt *session) error {
			n, err := rt.services.RebuildScores(cmd.Context())
			if err != nil {
				return err
			}
			rt.logger.Info("tfidf command finished", zap.Int("scores", n))
			return nil
		}),
	}
}
