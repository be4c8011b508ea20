package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"skywatch.earth/skywatch/internal/cli"
	"skywatch.earth/skywatch/internal/pipeline"
)

func runDedupSweep(args []string) int {
	fs := flag.NewFlagSet("dedup-sweep", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Minute, "Command timeout")
	workers := fs.Int("workers", 0, "Worker pool size (0 = configured default)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "dedup-sweep does not accept positional arguments")
		return 2
	}
	if *workers < 0 {
		fmt.Fprintln(os.Stderr, "--workers must be >= 0")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg, logger, pool, err := bootstrap(ctx, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start dedup-sweep: %v\n", err)
		return 1
	}
	defer pool.Close()

	poolWorkers := *workers
	if poolWorkers == 0 {
		poolWorkers = cfg.DedupWorkers
	}

	svc := newPipelineService(cfg, logger, pool)
	summary, err := svc.DedupSweep(ctx, pipeline.DedupOptions{Workers: poolWorkers})
	if err != nil {
		logger.Error().Err(err).Msg("dedup sweep failed")
		fmt.Fprintf(os.Stderr, "dedup-sweep failed: %v\n", err)
		return 1
	}

	fmt.Printf("dedup-sweep run_id=%d pairs=%d failed=%d candidates_created=%d duration_ms=%d\n",
		summary.RunID, summary.Processed, summary.Failed, summary.CandidatesCreated, summary.DurationMS)
	return 0
}
