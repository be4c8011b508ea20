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

func runScoreBatch(args []string) int {
	return runScoringCommand("score-batch", pipeline.RunKindScoreBatch, args)
}

func runRescoreAll(args []string) int {
	return runScoringCommand("rescore-all", pipeline.RunKindRescoreAll, args)
}

func runScoreAll(args []string) int {
	return runScoringCommand("score-all", pipeline.RunKindScoreAll, args)
}

func runScoringCommand(name, kind string, args []string) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	limit := fs.Int("limit", 0, "Maximum reports to score (0 = no limit)")
	workers := fs.Int("workers", 0, "Worker pool size (0 = configured default)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s does not accept positional arguments\n", name)
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
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
		fmt.Fprintf(os.Stderr, "Failed to start %s: %v\n", name, err)
		return 1
	}
	defer pool.Close()

	poolWorkers := *workers
	if poolWorkers == 0 {
		poolWorkers = cfg.ScoreWorkers
	}

	svc := newPipelineService(cfg, logger, pool)
	opts := pipeline.ScoreOptions{Limit: *limit, Workers: poolWorkers}

	var summary pipeline.Summary
	switch kind {
	case pipeline.RunKindScoreBatch:
		summary, err = svc.ScoreBatch(ctx, opts)
	case pipeline.RunKindRescoreAll:
		summary, err = svc.RescoreAll(ctx, opts)
	case pipeline.RunKindScoreAll:
		summary, err = svc.ScoreAll(ctx, opts)
	}
	if err != nil {
		logger.Error().Err(err).Str("kind", kind).Msg("scoring run failed")
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", name, err)
		return 1
	}

	fmt.Printf("%s run_id=%d processed=%d succeeded=%d failed=%d skipped_unchanged=%d duration_ms=%d\n",
		name, summary.RunID, summary.Processed, summary.Succeeded, summary.Failed,
		summary.SkippedUnchanged, summary.DurationMS)
	return 0
}
