package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/internal/api"
	"github.com/jakechorley/resource-allocator/pkg/postgres"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload, allocation and export HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Cfg.HTTPAddr
			}

			database, err := app.Database()
			if err != nil {
				return err
			}

			calendar, err := app.Calendar()
			if err != nil {
				return err
			}

			ruleSet, err := app.DefaultRules()
			if err != nil {
				return err
			}

			weights, defaultPhase, enforceCapacity := app.AllocationDefaults()
			handler := api.NewHandler(database, app.Metrics, calendar, api.AllocationDefaults{
				Rules:           ruleSet,
				Weights:         weights,
				DefaultPhase:    defaultPhase,
				EnforceCapacity: enforceCapacity,
			}, app.Cfg.AllowedOrigins, app.Logger)

			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errChan := make(chan error, 1)
			go func() {
				app.Logger.Info("HTTP server listening", zap.String("addr", addr), zap.String("store", app.Cfg.Store))
				errChan <- server.ListenAndServe()
			}()

			select {
			case err := <-errChan:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			app.Logger.Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (defaults to httpAddr from config)")

	return cmd
}

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := app.Database()
			if err != nil {
				return err
			}

			pg, ok := database.(*postgres.DB)
			if !ok {
				return fmt.Errorf("migrate needs the postgres store, config uses %q", app.Cfg.Store)
			}

			applied, err := pg.RunMigrations(app.Ctx)
			if err != nil {
				return err
			}

			if len(applied) == 0 {
				fmt.Println("Database schema is up to date.")
				return nil
			}

			fmt.Printf("\n✓ Applied %d migrations:\n", len(applied))
			for _, name := range applied {
				fmt.Printf("  %s\n", name)
			}
			fmt.Println()
			return nil
		},
	}
}
