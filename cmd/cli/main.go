package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/cmd/cli/commands"
	"github.com/jakechorley/resource-allocator/internal/config"
	"github.com/jakechorley/resource-allocator/pkg/metrics"
	"github.com/jakechorley/resource-allocator/pkg/utils/logging"
)

var (
	env string

	// app is filled in by initApp before any command runs
	app = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "allocator",
		Short: "Resource allocator - assign clients to tasks and workers",
		Long: `A CLI tool for uploading client, worker and task rows, running rule-constrained
allocations, and exporting or publishing the resulting assignments.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Logger == nil {
				return
			}
			app.Close()
			_ = app.Logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: dev, test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.ValidateCmd(app))
	rootCmd.AddCommand(commands.UploadCmd(app))
	rootCmd.AddCommand(commands.ImportSheetCmd(app))
	rootCmd.AddCommand(commands.AllocateCmd(app))
	rootCmd.AddCommand(commands.ListRunsCmd(app))
	rootCmd.AddCommand(commands.ExportRunCmd(app))
	rootCmd.AddCommand(commands.PublishRunCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp loads .env files and config, then sets up the logger and metrics
func initApp() error {
	if err := config.LoadDotEnv(".env", ".env."+env); err != nil {
		return fmt.Errorf("failed to load .env files: %w", err)
	}

	cfg, err := config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.InitLogger(env, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Starting application",
		zap.String("environment", env),
		zap.String("store", cfg.Store))

	app.Env = env
	app.Cfg = cfg
	app.Logger = logger
	app.Metrics = metrics.NewManager()
	app.Ctx = context.Background()

	return nil
}
