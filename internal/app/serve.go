package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"skywatch.earth/skywatch/internal/cli"
	"skywatch.earth/skywatch/internal/httpapi"
	"skywatch.earth/skywatch/internal/pipeline"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8090, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 15*time.Minute, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	cfg, logger, pool, err := bootstrap(dbCtx, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start serve: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	svc := newPipelineService(cfg, logger, pool)

	scheduler := cron.New()
	if cfg.ScoreCron != "" {
		_, err := scheduler.AddFunc(cfg.ScoreCron, func() {
			summary, err := svc.ScoreBatch(ctx, pipeline.ScoreOptions{Workers: cfg.ScoreWorkers})
			if err != nil {
				logger.Error().Err(err).Msg("scheduled score-batch failed")
				return
			}
			logger.Info().
				Int64("run_id", summary.RunID).
				Int("processed", summary.Processed).
				Int("failed", summary.Failed).
				Msg("scheduled score-batch completed")
		})
		if err != nil {
			logger.Error().Err(err).Str("cron", cfg.ScoreCron).Msg("invalid SCORE_CRON expression")
			fmt.Fprintf(os.Stderr, "Invalid SCORE_CRON: %v\n", err)
			return 1
		}
	}
	if cfg.DedupCron != "" {
		_, err := scheduler.AddFunc(cfg.DedupCron, func() {
			summary, err := svc.DedupSweep(ctx, pipeline.DedupOptions{Workers: cfg.DedupWorkers})
			if err != nil {
				logger.Error().Err(err).Msg("scheduled dedup-sweep failed")
				return
			}
			logger.Info().
				Int64("run_id", summary.RunID).
				Int("pairs", summary.Processed).
				Int("candidates_created", summary.CandidatesCreated).
				Msg("scheduled dedup-sweep completed")
		})
		if err != nil {
			logger.Error().Err(err).Str("cron", cfg.DedupCron).Msg("invalid DEDUP_CRON expression")
			fmt.Fprintf(os.Stderr, "Invalid DEDUP_CRON: %v\n", err)
			return 1
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := httpapi.NewServer(pool, svc, logger, httpapi.Options{
		Host:            *host,
		Port:            *port,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		AllowedOrigins:  cfg.CORSAllowedOriginsList(),
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}
