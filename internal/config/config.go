package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// DatabaseURL is required only by commands that touch persistence
	// (serve, health, rank --save-db); rank alone runs without it.
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"ZPMON_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"ZPMON_DB_MAX_CONNS" default:"8"`

	// RulesPath overrides the embedded default rule tables.
	RulesPath string `envconfig:"ZPMON_RULES_PATH" default:""`

	// ModelDir holds the frozen artifacts: pca.json, scaler.json, lgbm_model.txt.
	ModelDir string `envconfig:"ZPMON_MODEL_DIR" default:"model"`

	EmbedEndpoint string `envconfig:"ZPMON_EMBED_ENDPOINT" default:"http://127.0.0.1:8844/embed"`

	EnrichWorkers int `envconfig:"ZPMON_ENRICH_WORKERS" default:"20"`
	DedupWindow   int `envconfig:"ZPMON_DEDUP_WINDOW" default:"500"`

	QuotaPerCategory int     `envconfig:"ZPMON_QUOTA_PER_CATEGORY" default:"4"`
	TotalCap         int     `envconfig:"ZPMON_TOTAL_CAP" default:"20"`
	VIPScoreFloor    float64 `envconfig:"ZPMON_VIP_SCORE_FLOOR" default:"0.01"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMinConns < 0 {
		return fmt.Errorf("ZPMON_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("ZPMON_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("ZPMON_DB_MIN_CONNS (%d) cannot exceed ZPMON_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.EnrichWorkers < 1 {
		return fmt.Errorf("ZPMON_ENRICH_WORKERS must be >= 1")
	}
	if c.DedupWindow < 1 {
		return fmt.Errorf("ZPMON_DEDUP_WINDOW must be >= 1")
	}
	if c.QuotaPerCategory < 1 {
		return fmt.Errorf("ZPMON_QUOTA_PER_CATEGORY must be >= 1")
	}
	if c.TotalCap < 1 {
		return fmt.Errorf("ZPMON_TOTAL_CAP must be >= 1")
	}
	return nil
}

// RequireDatabase reports an error when a command needs persistence but no
// DATABASE_URL is configured.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required for this command")
	}
	return nil
}
