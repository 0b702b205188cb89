// Package config loads the scorer configuration from YAML and applies
// STELLASORA_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/catalog"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/evaluation"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/logger"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/score"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/sim"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/telemetry"
)

// PathEnv names the variable consulted when no -config flag is given.
const PathEnv = "STELLASORA_CONFIG"

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Scorer holds all configuration for the scoring tools.
type Scorer struct {
	Log        logger.Config      `yaml:"log"`
	Simulation SimulationConfig   `yaml:"simulation"`
	Cache      CacheConfig        `yaml:"cache"`
	Database   DatabaseConfig     `yaml:"database"`
	Extraction ExtractionConfig   `yaml:"extraction"`
	Catalog    CatalogConfig      `yaml:"catalog"`
	Evaluation evaluation.Weights `yaml:"evaluation"`
	Telemetry  telemetry.Config   `yaml:"telemetry"`
}

// SimulationConfig holds the run parameters, in seconds.
type SimulationConfig struct {
	Tick             float64 `yaml:"tick"`
	Horizon          float64 `yaml:"horizon"`
	BaseDPS          float64 `yaml:"base_dps"`
	AssumeFullStacks bool    `yaml:"assume_full_stacks"`
}

// Sim converts the section to a sim.Config.
func (s SimulationConfig) Sim() sim.Config {
	return sim.Config{Tick: s.Tick, Horizon: s.Horizon, BaseDPS: s.BaseDPS, FullStacks: s.AssumeFullStacks}
}

// CacheConfig selects the cache backend and entry lifetimes.
type CacheConfig struct {
	Backend    string        `yaml:"backend"` // memory, sqlite or postgres
	SQLitePath string        `yaml:"sqlite_path"`
	TalentTTL  time.Duration `yaml:"talent_ttl"`
	CatalogTTL time.Duration `yaml:"catalog_ttl"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	URL      string `yaml:"url" env:"STELLASORA_DATABASE_DSN"` // overrides the fields below
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// ExtractionConfig points at the inference backend.
type ExtractionConfig struct {
	Endpoint    string        `yaml:"endpoint" env:"STELLASORA_EXTRACTION_ENDPOINT"`
	Model       string        `yaml:"model" env:"STELLASORA_EXTRACTION_MODEL"`
	APIKey      string        `yaml:"api_key" env:"STELLASORA_EXTRACTION_API_KEY"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxParallel int           `yaml:"max_parallel"`
}

// CatalogConfig selects where game data comes from. File wins over BaseURL.
type CatalogConfig struct {
	BaseURL string `yaml:"base_url" env:"STELLASORA_CATALOG_URL"`
	File    string `yaml:"file"`
}

// Default returns Scorer config with sensible defaults.
func Default() Scorer {
	simCfg := sim.DefaultConfig()
	return Scorer{
		Log: logger.DefaultConfig(),
		Simulation: SimulationConfig{
			Tick:    simCfg.Tick,
			Horizon: simCfg.Horizon,
			BaseDPS: simCfg.BaseDPS,
		},
		Cache: CacheConfig{
			Backend:    BackendMemory,
			SQLitePath: "stellasora-cache.db",
			TalentTTL:  score.DefaultTalentTTL,
			CatalogTTL: catalog.DefaultTTL,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "stellasora",
			Password: "stellasora",
			DBName:   "stellasora",
			SSLMode:  "disable",
		},
		Extraction: ExtractionConfig{
			Model:       "gpt-4.1-mini",
			Timeout:     60 * time.Second,
			MaxParallel: score.DefaultMaxParallel,
		},
		Evaluation: evaluation.DefaultWeights(),
		Telemetry:  telemetry.Config{ServiceName: "stellasora-scorer"},
	}
}

// Load reads config from a YAML file and applies environment overrides.
// If the file doesn't exist, defaults are used.
func Load(path string) (Scorer, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	// Только заданные переменные окружения перекрывают значения из YAML
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Path returns flagValue, falling back to $STELLASORA_CONFIG.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(PathEnv)
}

// Validate reports the first section a tool cannot run with.
func (c Scorer) Validate() error {
	if err := c.Simulation.Sim().Validate(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Cache.Backend) {
	case BackendMemory:
	case BackendSQLite:
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("cache.sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TalentTTL <= 0 || c.Cache.CatalogTTL <= 0 {
		return fmt.Errorf("cache ttls must be positive")
	}
	if c.Extraction.MaxParallel < 1 {
		return fmt.Errorf("extraction.max_parallel must be at least 1, got %d", c.Extraction.MaxParallel)
	}
	return c.Evaluation.Validate()
}
