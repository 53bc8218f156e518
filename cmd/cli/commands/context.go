package commands

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/internal/config"
	"github.com/jakechorley/resource-allocator/pkg/clients/sheetsclient"
	"github.com/jakechorley/resource-allocator/pkg/core/allocator"
	"github.com/jakechorley/resource-allocator/pkg/core/phases"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
	"github.com/jakechorley/resource-allocator/pkg/db"
	"github.com/jakechorley/resource-allocator/pkg/metrics"
	"github.com/jakechorley/resource-allocator/pkg/postgres"
	"github.com/jakechorley/resource-allocator/pkg/redisstore"
)

// AppContext holds the application dependencies shared across all commands.
// The database and the sheets client are opened on first use.
type AppContext struct {
	Env     string
	Cfg     *config.Config
	Metrics *metrics.Manager
	Logger  *zap.Logger
	Ctx     context.Context

	database     db.Database
	sheetsClient *sheetsclient.Client
}

// Database opens the configured store
func (app *AppContext) Database() (db.Database, error) {
	if app.database != nil {
		return app.database, nil
	}

	app.Logger.Debug("Opening store", zap.String("store", app.Cfg.Store))

	var (
		database db.Database
		err      error
	)
	switch app.Cfg.Store {
	case config.StorePostgres:
		database, err = postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	case config.StoreRedis:
		database, err = redisstore.New(app.Ctx, app.Cfg.RedisURL, app.Logger)
	default:
		database = db.NewMemoryDB()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", app.Cfg.Store, err)
	}

	app.database = database
	return database, nil
}

// Sheets returns a Google Sheets client, authorizing on first use
func (app *AppContext) Sheets() (*sheetsclient.Client, error) {
	if app.sheetsClient != nil {
		return app.sheetsClient, nil
	}
	if app.Cfg.Sheets == nil {
		return nil, fmt.Errorf("no sheets section in allocator_config.%s.yaml", app.Env)
	}

	oauthCfg, err := config.LoadOAuthClientWithEnv(app.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	client, err := sheetsclient.NewClient(app.Ctx, oauthCfg, app.Env, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	app.sheetsClient = client
	return client, nil
}

// Calendar returns the configured phase calendar, or nil if none is configured
func (app *AppContext) Calendar() (*phases.Calendar, error) {
	if app.Cfg.PhaseCalendar == nil {
		return nil, nil
	}
	return phases.ParseCalendar(app.Cfg.PhaseCalendar.RRule, app.Cfg.PhaseCalendar.Start)
}

// DefaultRules loads the configured rules file, if any
func (app *AppContext) DefaultRules() ([]rules.Rule, error) {
	if app.Cfg.Allocation.RulesFile == "" {
		return nil, nil
	}
	return loadRulesFile(app.Cfg.Allocation.RulesFile)
}

// AllocationDefaults returns the configured weights, default phase and capacity setting
func (app *AppContext) AllocationDefaults() (allocator.Weights, int, bool) {
	return app.Cfg.Weights(), app.Cfg.Allocation.DefaultPhase, app.Cfg.Allocation.EnforceCapacity
}

// Close releases the store, if one was opened
func (app *AppContext) Close() {
	if app.database == nil {
		return
	}
	if err := app.database.Close(); err != nil {
		app.Logger.Warn("Failed to close store", zap.Error(err))
	}
}

func loadRulesFile(path string) ([]rules.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	ruleSet, err := rules.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return ruleSet, nil
}
