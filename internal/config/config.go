package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/resource-allocator/pkg/core/allocator"
	"github.com/jakechorley/resource-allocator/pkg/core/model"
)

// Store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Environment variables that override file settings
const (
	EnvDatabaseURL = "ALLOCATOR_DATABASE_URL"
	EnvRedisURL    = "ALLOCATOR_REDIS_URL"
	EnvHTTPAddr    = "ALLOCATOR_HTTP_ADDR"
)

// WeightsConfig holds optional ranking weights. Unset weights take the allocator defaults.
type WeightsConfig struct {
	Priority    *float64 `yaml:"priority,omitempty" validate:"omitempty,min=0,max=1"`
	Fairness    *float64 `yaml:"fairness,omitempty" validate:"omitempty,min=0,max=1"`
	Fulfillment *float64 `yaml:"fulfillment,omitempty" validate:"omitempty,min=0,max=1"`
}

// AllocationConfig holds defaults for allocation runs
type AllocationConfig struct {
	Weights         WeightsConfig `yaml:"weights"`
	DefaultPhase    int           `yaml:"defaultPhase,omitempty" validate:"omitempty,min=1"`
	EnforceCapacity bool          `yaml:"enforceCapacity,omitempty"`
	RulesFile       string        `yaml:"rulesFile,omitempty"`
}

// PhaseCalendar maps phase numbers onto dates: phase n is the n-th occurrence of RRule from Start
type PhaseCalendar struct {
	RRule string `yaml:"rrule" validate:"required"`
	Start string `yaml:"start" validate:"required,datetime=2006-01-02"`
}

// SheetsSource describes a Google spreadsheet that entity rows can be imported from
type SheetsSource struct {
	SpreadsheetID string            `yaml:"spreadsheetID" validate:"required"`
	Tabs          map[string]string `yaml:"tabs" validate:"required,min=1"`
}

// Config represents the application configuration
type Config struct {
	Store          string           `yaml:"store" validate:"required,oneof=memory postgres redis"`
	DatabaseURL    string           `yaml:"databaseURL,omitempty"`
	RedisURL       string           `yaml:"redisURL,omitempty"`
	HTTPAddr       string           `yaml:"httpAddr" validate:"required"`
	AllowedOrigins []string         `yaml:"allowedOrigins,omitempty"`
	LogDir         string           `yaml:"logDir,omitempty"`
	Allocation     AllocationConfig `yaml:"allocation"`
	PhaseCalendar  *PhaseCalendar   `yaml:"phaseCalendar,omitempty"`
	Sheets         *SheetsSource    `yaml:"sheets,omitempty"`
}

// Weights resolves the configured weights against the allocator defaults
func (c *Config) Weights() allocator.Weights {
	weights := allocator.DefaultWeights()
	if w := c.Allocation.Weights.Priority; w != nil {
		weights.Priority = *w
	}
	if w := c.Allocation.Weights.Fairness; w != nil {
		weights.Fairness = *w
	}
	if w := c.Allocation.Weights.Fulfillment; w != nil {
		weights.Fulfillment = *w
	}
	return weights
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates allocator_config.<env>.yaml.
// It looks for the config file in the current directory first, then in the user's home directory.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads the configuration from a specific path, applies environment
// overrides and validates the result
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process environment.
// Missing files are skipped; variables already set are never overwritten.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		cfg.HTTPAddr = v
	}
}

// Validate validates the configuration struct, backend settings and rrule syntax
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("config validation failed: databaseURL is required for the postgres store")
		}
	case StoreRedis:
		if cfg.RedisURL == "" {
			return fmt.Errorf("config validation failed: redisURL is required for the redis store")
		}
	}

	if cfg.PhaseCalendar != nil {
		if _, err := rrule.StrToRRule(cfg.PhaseCalendar.RRule); err != nil {
			return fmt.Errorf("invalid rrule in phaseCalendar: %w", err)
		}
	}

	if cfg.Sheets != nil {
		for entity := range cfg.Sheets.Tabs {
			if _, err := model.ParseEntityKind(entity); err != nil {
				return fmt.Errorf("invalid sheets tab: %w", err)
			}
		}
	}

	return nil
}

// findConfigFile searches for allocator_config.<env>.yaml in current directory and home directory
func findConfigFile(env string) (string, error) {
	configFileName := "allocator_config.yaml"
	if env != "" {
		configFileName = "allocator_config." + env + ".yaml"
	}
	return locateFile(configFileName)
}
