package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"SW_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"SW_DB_MAX_CONNS" default:"8"`

	// Bounded worker pool for per-report scoring and per-block comparison.
	ScoreWorkers int `envconfig:"SCORE_WORKERS" default:"4"`
	DedupWorkers int `envconfig:"DEDUP_WORKERS" default:"4"`

	// External text-coherence scorer. Empty endpoint disables the remote call and
	// degrades the Narrative Coherence dimension to zero.
	CoherenceEndpoint       string `envconfig:"COHERENCE_ENDPOINT" default:""`
	CoherenceTimeoutSeconds int    `envconfig:"COHERENCE_TIMEOUT_SECONDS" default:"10"`

	// Corpus snapshot freshness threshold used by the check command, in hours.
	CorpusMaxAgeHours int `envconfig:"CORPUS_MAX_AGE_HOURS" default:"168"`

	// Cron expressions for scheduled runs under serve. Empty disables.
	ScoreCron string `envconfig:"SCORE_CRON" default:""`
	DedupCron string `envconfig:"DEDUP_CRON" default:""`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
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
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("SW_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("SW_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("SW_DB_MIN_CONNS (%d) cannot exceed SW_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.ScoreWorkers < 1 {
		return fmt.Errorf("SCORE_WORKERS must be >= 1")
	}
	if c.DedupWorkers < 1 {
		return fmt.Errorf("DEDUP_WORKERS must be >= 1")
	}
	if c.CoherenceTimeoutSeconds < 1 {
		return fmt.Errorf("COHERENCE_TIMEOUT_SECONDS must be >= 1")
	}
	if c.CorpusMaxAgeHours < 1 {
		return fmt.Errorf("CORPUS_MAX_AGE_HOURS must be >= 1")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
