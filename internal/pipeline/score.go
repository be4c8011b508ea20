package pipeline

import (
	"context"
	"fmt"
	"sync"

	"skywatch.earth/skywatch/internal/corpus"
	"skywatch.earth/skywatch/internal/db"
	"skywatch.earth/skywatch/internal/globaltime"
	"skywatch.earth/skywatch/internal/normalize"
	"skywatch.earth/skywatch/internal/scoring"
)

// ScoreBatch scores every report with a null quality score.
func (s *Service) ScoreBatch(ctx context.Context, opts ScoreOptions) (Summary, error) {
	return s.runScoring(ctx, RunKindScoreBatch, opts)
}

// RescoreAll reprocesses reports whose scorer version no longer matches the
// current one.
func (s *Service) RescoreAll(ctx context.Context, opts ScoreOptions) (Summary, error) {
	return s.runScoring(ctx, RunKindRescoreAll, opts)
}

// ScoreAll forces a recompute of every report regardless of version. Unchanged
// results are detected and skipped without a write, so repeating the run is
// cheap.
func (s *Service) ScoreAll(ctx context.Context, opts ScoreOptions) (Summary, error) {
	return s.runScoring(ctx, RunKindScoreAll, opts)
}

func (s *Service) runScoring(ctx context.Context, kind string, opts ScoreOptions) (Summary, error) {
	if s == nil || s.pool == nil {
		return Summary{}, fmt.Errorf("pipeline service is not initialized")
	}

	startedAt := globaltime.UTC()
	runID, err := s.createRun(ctx, kind)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Kind: kind, RunID: runID}
	if err := s.markRunRunning(ctx, runID); err != nil {
		s.finishRun(ctx, runID, summary, err)
		return summary, err
	}

	logger := s.logger.With().Str("kind", kind).Int64("run_id", runID).Logger()

	snap, err := corpus.Build(ctx, s.pool)
	if err != nil {
		err = fmt.Errorf("build corpus snapshot: %w", err)
		s.finishRun(ctx, runID, summary, err)
		return summary, err
	}
	logger.Info().
		Str("snapshot_version", snap.Version).
		Int64("total_docs", snap.TotalDocs).
		Int("terms", snap.TermCount()).
		Msg("corpus snapshot pinned")

	ids, err := s.selectScoringTargets(ctx, kind, opts.Limit)
	if err != nil {
		s.finishRun(ctx, runID, summary, err)
		return summary, err
	}

	prog := &progress{}
	sem := make(chan struct{}, resolveWorkers(opts.Workers))
	var wg sync.WaitGroup
	var runErr error

dispatch:
	for i, reportID := range ids {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(reportID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			unchanged, err := s.scoreOne(ctx, reportID, snap)
			if err != nil {
				logger.Warn().Err(err).Int64("report_id", reportID).Msg("score report")
				scoringFailuresTotal.Inc()
			} else {
				reportsScoredTotal.Inc()
			}
			prog.recordReport(reportID, err, unchanged)
		}(reportID)

		if (i+1)%checkpointInterval == 0 {
			s.writeCheckpoint(ctx, runID, prog)
		}
	}
	wg.Wait()

	processed, succeeded, failed, skipped, _, _ := prog.snapshot()
	summary.Processed = processed
	summary.Succeeded = succeeded
	summary.Failed = failed
	summary.SkippedUnchanged = skipped
	summary.DurationMS = globaltime.UTC().Sub(startedAt).Milliseconds()

	s.writeCheckpoint(ctx, runID, prog)
	s.finishRun(ctx, runID, summary, runErr)

	logger.Info().
		Int("processed", summary.Processed).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped_unchanged", summary.SkippedUnchanged).
		Int64("duration_ms", summary.DurationMS).
		Msg("scoring run finished")

	return summary, runErr
}

// scoringTargetQuery builds the id selection for one run kind. The null and
// stale-version filters double as resume points: a restarted run simply does
// not see already-updated reports.
func scoringTargetQuery(kind string, limit int) (string, []any, error) {
	base := `
SELECT report_id
FROM reports.reports
WHERE status = 'approved'
`
	var args []any
	switch kind {
	case RunKindScoreBatch:
		base += "  AND quality_score IS NULL\n"
	case RunKindRescoreAll:
		base += "  AND scorer_version <> ?\n"
		args = append(args, scoring.Version)
	case RunKindScoreAll:
	default:
		return "", nil, fmt.Errorf("unknown scoring kind %q", kind)
	}
	base += "ORDER BY report_id\n"
	if limit > 0 {
		base += "LIMIT ?\n"
		args = append(args, limit)
	}
	return base, args, nil
}

func (s *Service) selectScoringTargets(ctx context.Context, kind string, limit int) ([]int64, error) {
	query, args, err := scoringTargetQuery(kind, limit)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s targets: %w", kind, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s target: %w", kind, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s targets: %w", kind, err)
	}
	return ids, nil
}

// scoringUnchanged reports whether a report's stored quality fields already
// match the recomputed values. An unchanged report is skipped without a write,
// which is what makes repeated and forced runs idempotent.
func scoringUnchanged(r *db.Report, score int, grade, fingerprint, language string) bool {
	return r.QualityScore != nil &&
		*r.QualityScore == score &&
		r.QualityGrade == grade &&
		r.ScorerVersion == scoring.Version &&
		r.Fingerprint == fingerprint &&
		r.DescriptionLang == language
}

// scoreOne recomputes one report's quality score and writes it back. Returns
// unchanged=true when the stored score, grade, version, and fingerprint
// already match the recomputed values, in which case no write happens.
func (s *Service) scoreOne(ctx context.Context, reportID int64, snap *corpus.Snapshot) (bool, error) {
	var report db.Report
	if err := s.pool.GORM().WithContext(ctx).First(&report, "report_id = ?", reportID).Error; err != nil {
		return false, fmt.Errorf("load report %d: %w", reportID, err)
	}

	n := normalize.Report(&report)
	fingerprint := normalize.Fingerprint(n)
	dims := scoring.ScoreDimensions(ctx, &report, n, snap, s.coherence, s.logger)
	score, grade := scoring.Aggregate(dims)

	if scoringUnchanged(&report, score, grade, fingerprint, n.Language) {
		return true, nil
	}

	const q = `
UPDATE reports.reports
SET quality_score = ?, quality_grade = ?, scorer_version = ?, fingerprint = ?,
    description_lang = ?, scored_at = ?, updated_at = ?
WHERE report_id = ?
`
	now := globaltime.UTC()
	if _, err := s.pool.Exec(ctx, q,
		score, grade, scoring.Version, fingerprint,
		n.Language, now, now, reportID,
	); err != nil {
		return false, fmt.Errorf("update report %d score: %w", reportID, err)
	}
	return false, nil
}
