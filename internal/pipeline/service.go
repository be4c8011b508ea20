package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"skywatch.earth/skywatch/internal/db"
	"skywatch.earth/skywatch/internal/globaltime"
	"skywatch.earth/skywatch/internal/scoring"
)

const (
	RunKindScoreBatch = "score-batch"
	RunKindRescoreAll = "rescore-all"
	RunKindScoreAll   = "score-all"
	RunKindDedupSweep = "dedup-sweep"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

const (
	CandidateStatusPending   = "pending"
	CandidateStatusConfirmed = "confirmed"
	CandidateStatusRejected  = "rejected"
)

const (
	MatchKindExact = "exact"
	MatchKindFuzzy = "fuzzy"
)

const (
	DefaultWorkers     = 4
	checkpointInterval = 50
)

type Service struct {
	pool         *db.Pool
	logger       zerolog.Logger
	coherence    scoring.CoherenceScorer
	corpusMaxAge time.Duration
}

// Summary is the JSON-shaped result of one run, returned by every mutating
// operation and stored on the run row.
type Summary struct {
	Kind              string `json:"kind"`
	RunID             int64  `json:"run_id"`
	Processed         int    `json:"processed"`
	Succeeded         int    `json:"succeeded"`
	Failed            int    `json:"failed"`
	SkippedUnchanged  int    `json:"skipped_unchanged"`
	CandidatesCreated int    `json:"candidates_created"`
	DurationMS        int64  `json:"duration_ms"`
}

type ScoreOptions struct {
	Limit   int
	Workers int
}

type DedupOptions struct {
	Workers int
}

func NewService(pool *db.Pool, logger zerolog.Logger, coherence scoring.CoherenceScorer, corpusMaxAge time.Duration) *Service {
	return &Service{
		pool:         pool,
		logger:       logger,
		coherence:    coherence,
		corpusMaxAge: corpusMaxAge,
	}
}

// progress accumulates counters across the worker pool. A single mutex is
// enough: workers touch it once per report, not per comparison.
type progress struct {
	mu                sync.Mutex
	processed         int
	succeeded         int
	failed            int
	skippedUnchanged  int
	candidatesCreated int
	lastReportID      int64
}

func (p *progress) recordReport(reportID int64, err error, unchanged bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
	switch {
	case err != nil:
		p.failed++
	case unchanged:
		p.succeeded++
		p.skippedUnchanged++
	default:
		p.succeeded++
	}
	if reportID > p.lastReportID {
		p.lastReportID = reportID
	}
}

func (p *progress) recordPair(err error, created bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
	if err != nil {
		p.failed++
		return
	}
	p.succeeded++
	if created {
		p.candidatesCreated++
	}
}

func (p *progress) snapshot() (processed, succeeded, failed, skipped, candidates int, lastReportID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.succeeded, p.failed, p.skippedUnchanged, p.candidatesCreated, p.lastReportID
}

type runCheckpoint struct {
	LastReportID int64 `json:"last_report_id"`
}

func (s *Service) createRun(ctx context.Context, kind string) (int64, error) {
	const q = `
INSERT INTO reports.scoring_runs (kind, status, scorer_version)
VALUES (?, ?, ?)
RETURNING run_id
`
	var runID int64
	if err := s.pool.QueryRow(ctx, q, kind, RunStatusPending, scoring.Version).Scan(&runID); err != nil {
		return 0, fmt.Errorf("create %s run: %w", kind, err)
	}
	return runID, nil
}

func (s *Service) markRunRunning(ctx context.Context, runID int64) error {
	const q = `
UPDATE reports.scoring_runs
SET status = ?, started_at = ?, updated_at = ?
WHERE run_id = ? AND status = ?
`
	now := globaltime.UTC()
	if _, err := s.pool.Exec(ctx, q, RunStatusRunning, now, now, runID, RunStatusPending); err != nil {
		return fmt.Errorf("mark run %d running: %w", runID, err)
	}
	return nil
}

// detachIfDone swaps a canceled context for a short-lived background one so
// that run bookkeeping still reaches the database after the run is aborted.
func detachIfDone(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func (s *Service) writeCheckpoint(ctx context.Context, runID int64, prog *progress) {
	ctx, cancel := detachIfDone(ctx)
	defer cancel()

	processed, _, failed, _, candidates, lastID := prog.snapshot()
	raw, err := json.Marshal(runCheckpoint{LastReportID: lastID})
	if err != nil {
		s.logger.Warn().Err(err).Int64("run_id", runID).Msg("marshal checkpoint")
		return
	}

	const q = `
UPDATE reports.scoring_runs
SET checkpoint = ?, reports_processed = ?, reports_failed = ?, candidates_created = ?, updated_at = ?
WHERE run_id = ?
`
	if _, err := s.pool.Exec(ctx, q, raw, processed, failed, candidates, globaltime.UTC(), runID); err != nil {
		s.logger.Warn().Err(err).Int64("run_id", runID).Msg("write checkpoint")
	}
}

func (s *Service) finishRun(ctx context.Context, runID int64, summary Summary, runErr error) {
	ctx, cancel := detachIfDone(ctx)
	defer cancel()

	status := RunStatusCompleted
	var message *string
	if runErr != nil {
		status = RunStatusFailed
		text := runErr.Error()
		message = &text
	}

	const q = `
UPDATE reports.scoring_runs
SET status = ?, completed_at = ?, reports_processed = ?, reports_failed = ?,
    candidates_created = ?, error_message = ?, updated_at = ?
WHERE run_id = ?
`
	now := globaltime.UTC()
	if _, err := s.pool.Exec(ctx, q,
		status, now, summary.Processed, summary.Failed,
		summary.CandidatesCreated, message, now, runID,
	); err != nil {
		s.logger.Error().Err(err).Int64("run_id", runID).Str("status", status).Msg("finalize run")
	}
}

// canonicalPair orders a candidate pair so (A,B) and (B,A) map to the same row.
func canonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

func resolveWorkers(workers int) int {
	if workers <= 0 {
		return DefaultWorkers
	}
	return workers
}
