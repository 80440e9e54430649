package main

import "github.com/spf13/cobra"

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the storage schema",
		RunE: withSession(func(cmd *cobra.Command, rt *session) error {
			return rt.services.Migrate(cmd.Context())
		}),
	}
}
