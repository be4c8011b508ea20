package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Environment:             "local",
		LogLevel:                "info",
		DatabaseURL:             "postgres://localhost:5432/skywatch",
		DBMinConns:              1,
		DBMaxConns:              8,
		ScoreWorkers:            4,
		DedupWorkers:            4,
		CoherenceTimeoutSeconds: 10,
		CorpusMaxAgeHours:       168,
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidate_RequiresDatabaseURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.DatabaseURL = "   "
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestValidate_ConnBounds(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.DBMinConns = 10
	cfg.DBMaxConns = 2
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected min>max to fail validation")
	}

	cfg = validConfig()
	cfg.ScoreWorkers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected zero workers to fail validation")
	}
}

func TestCORSAllowedOriginsList(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.CORSAllowedOrigins = " https://admin.skywatch.earth , https://ops.skywatch.earth,, https://admin.skywatch.earth "
	got := cfg.CORSAllowedOriginsList()
	if len(got) != 2 {
		t.Fatalf("expected 2 deduplicated origins, got %v", got)
	}
	if got[0] != "https://admin.skywatch.earth" || got[1] != "https://ops.skywatch.earth" {
		t.Fatalf("unexpected origins: %v", got)
	}
}
