// Package cli implements tenancy-cli, the operator command line of the tenancy server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tansive/tansive-tenancy/internal/common/logtrace"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/common"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
)

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenancy-cli",
		Short: "tenancy-cli manages tenant groups, tenants and their managers",
		Long: `tenancy-cli is the operator command line of the tenancy server.
It migrates the schema, seeds groups, tenants and role assignments from YAML fixtures,
links installed backends to the directory and dry-runs authorization decisions.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: preRunHandlePersistents,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to the server config file")
	cmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	cmd.AddCommand(
		newVersionCmd(),
		newMigrateCmd(),
		newSyncBackendsCmd(),
		newSeedCmd(),
		newCanCmd(),
		newTokenCmd(),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		if jsonOutput {
			printJSON(os.Stdout, map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// preRunHandlePersistents loads the server config. Without --config the default file is used
// when present, otherwise the built-in defaults apply.
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	file := configFile
	if file == "" {
		if _, err := os.Stat(common.DefaultConfigFile); err == nil {
			file = common.DefaultConfigFile
		}
	}
	if err := config.LoadConfig(file); err != nil {
		return fmt.Errorf("unable to load config file: %w", err)
	}
	logtrace.InitLogger(config.Config().LogLevel)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(log.Logger.WithContext(ctx))
	return nil
}

// openDB returns a context carrying a database view and a function that releases it.
var openDB = func(ctx context.Context) (context.Context, func(), error) {
	if err := db.Init(ctx, config.Config().DB); err != nil {
		return ctx, nil, err
	}
	dbCtx, err := db.ConnCtx(ctx)
	if err != nil {
		db.ClosePool()
		return ctx, nil, err
	}
	return dbCtx, func() {
		db.DB(dbCtx).Close(context.Background())
		db.ClosePool()
	}, nil
}

func withDB(cmd *cobra.Command, fn func(ctx context.Context, d db.DB_) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, release, err := openDB(ctx)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}
	defer release()
	d := db.DB(ctx)
	if d == nil {
		return errors.New("no database available")
	}
	return fn(ctx, d)
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// printJSON writes data as indented JSON.
func printJSON(w io.Writer, data any) {
	out, err := jsonAPI.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(out))
}
