package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/backendsync"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
)

func newSyncBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-backends [BACKEND...]",
		Short: "Create backend links for installed backends",
		Long: `Create a backend link for every installed backend that has none yet.
Backends default to installed_backends of the config file. New links belong to no tenant.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			installed := args
			if len(installed) == 0 {
				installed = config.Config().InstalledBackends
			}
			return withDB(cmd, func(ctx context.Context, d db.DB_) error {
				created, err := backendsync.SyncBackends(ctx, d, installed)
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(cmd.OutOrStdout(), map[string]any{"created": nonNil(created)})
					return nil
				}
				for _, name := range created {
					fmt.Fprintf(cmd.OutOrStdout(), "Added multitenant backend link for %s\n", name)
				}
				if len(created) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "All backends are linked")
				}
				return nil
			})
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
