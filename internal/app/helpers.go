package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"skywatch.earth/skywatch/internal/cli"
	"skywatch.earth/skywatch/internal/config"
	"skywatch.earth/skywatch/internal/db"
	"skywatch.earth/skywatch/internal/logging"
	"skywatch.earth/skywatch/internal/pipeline"
	"skywatch.earth/skywatch/internal/scoring"
)

// bootstrap loads env + config, builds the logger and connects the pool. The
// caller owns pool.Close().
func bootstrap(ctx context.Context, envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, *db.Pool, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("initialize logger: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		return nil, zerolog.Nop(), nil, fmt.Errorf("connect to database: %w", err)
	}

	return cfg, logger, pool, nil
}

func newPipelineService(cfg *config.Config, logger zerolog.Logger, pool *db.Pool) *pipeline.Service {
	coherence := scoring.NewHTTPCoherenceScorer(
		cfg.CoherenceEndpoint,
		time.Duration(cfg.CoherenceTimeoutSeconds)*time.Second,
	)
	corpusMaxAge := time.Duration(cfg.CorpusMaxAgeHours) * time.Hour
	return pipeline.NewService(pool, logger, coherence, corpusMaxAge)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
