package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"skywatch.earth/skywatch/internal/corpus"
	"skywatch.earth/skywatch/internal/db"
	"skywatch.earth/skywatch/internal/globaltime"
	"skywatch.earth/skywatch/internal/normalize"
	"skywatch.earth/skywatch/internal/similarity"
)

// DedupSweep looks for duplicate reports among all approved reports. Exact
// fingerprint collisions are linked first and confirmed automatically; the
// remaining pairs go through blocked fuzzy comparison and only above-threshold
// matches are persisted, pending review.
func (s *Service) DedupSweep(ctx context.Context, opts DedupOptions) (Summary, error) {
	if s == nil || s.pool == nil {
		return Summary{}, fmt.Errorf("pipeline service is not initialized")
	}

	startedAt := globaltime.UTC()
	runID, err := s.createRun(ctx, RunKindDedupSweep)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Kind: RunKindDedupSweep, RunID: runID}
	if err := s.markRunRunning(ctx, runID); err != nil {
		s.finishRun(ctx, runID, summary, err)
		return summary, err
	}

	logger := s.logger.With().Str("kind", RunKindDedupSweep).Int64("run_id", runID).Logger()

	snap, err := corpus.Build(ctx, s.pool)
	if err != nil {
		err = fmt.Errorf("build corpus snapshot: %w", err)
		s.finishRun(ctx, runID, summary, err)
		return summary, err
	}

	var reports []db.Report
	if err := s.pool.GORM().WithContext(ctx).
		Where("status = ?", "approved").
		Order("report_id").
		Find(&reports).Error; err != nil {
		err = fmt.Errorf("load approved reports: %w", err)
		s.finishRun(ctx, runID, summary, err)
		return summary, err
	}

	normalized := make([]normalize.Normalized, 0, len(reports))
	fingerprints := make(map[int64]string, len(reports))
	for i := range reports {
		n := normalize.Report(&reports[i])
		normalized = append(normalized, n)
		fingerprints[n.ReportID] = normalize.Fingerprint(n)
	}

	prog := &progress{}

	runErr := s.exactPass(ctx, runID, snap, normalized, fingerprints, prog, logger)
	if runErr == nil {
		runErr = s.fuzzyPass(ctx, runID, snap, normalized, fingerprints, opts, prog, logger)
	}

	processed, succeeded, failed, _, candidates, _ := prog.snapshot()
	summary.Processed = processed
	summary.Succeeded = succeeded
	summary.Failed = failed
	summary.CandidatesCreated = candidates
	summary.DurationMS = globaltime.UTC().Sub(startedAt).Milliseconds()

	s.finishRun(ctx, runID, summary, runErr)

	logger.Info().
		Int("pairs_compared", summary.Processed).
		Int("pair_failures", summary.Failed).
		Int("candidates_created", summary.CandidatesCreated).
		Int64("duration_ms", summary.DurationMS).
		Msg("dedup sweep finished")

	return summary, runErr
}

// exactPass links every pair of approved reports sharing a fingerprint. These
// bypass fuzzy comparison entirely and land as confirmed exact duplicates.
func (s *Service) exactPass(
	ctx context.Context,
	runID int64,
	snap *corpus.Snapshot,
	normalized []normalize.Normalized,
	fingerprints map[int64]string,
	prog *progress,
	logger zerolog.Logger,
) error {
	byFingerprint := make(map[string][]normalize.Normalized)
	for _, n := range normalized {
		fp := fingerprints[n.ReportID]
		byFingerprint[fp] = append(byFingerprint[fp], n)
	}

	for fp, group := range byFingerprint {
		if len(group) < 2 {
			continue
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				cmp := similarity.Compare(group[i], group[j], snap)
				cmp.Confidence = 1
				created, err := s.upsertCandidate(ctx, runID, group[i].ReportID, group[j].ReportID,
					MatchKindExact, CandidateStatusConfirmed, cmp)
				if err != nil {
					logger.Warn().Err(err).
						Int64("report_a", group[i].ReportID).
						Int64("report_b", group[j].ReportID).
						Str("fingerprint", fp).
						Msg("upsert exact candidate")
				} else if created {
					logger.Info().
						Int64("report_a", group[i].ReportID).
						Int64("report_b", group[j].ReportID).
						Msg("exact duplicate linked")
				}
				prog.recordPair(err, created)
			}
		}
	}
	return nil
}

// fuzzyPass runs blocked pairwise comparison across a bounded worker pool.
// Pairs already linked by the exact pass are skipped.
func (s *Service) fuzzyPass(
	ctx context.Context,
	runID int64,
	snap *corpus.Snapshot,
	normalized []normalize.Normalized,
	fingerprints map[int64]string,
	opts DedupOptions,
	prog *progress,
	logger zerolog.Logger,
) error {
	blocks := similarity.Blocks(normalized)
	pairs := similarity.Pairs(blocks)
	logger.Info().Int("blocks", len(blocks)).Int("pairs", len(pairs)).Msg("blocking complete")

	sem := make(chan struct{}, resolveWorkers(opts.Workers))
	var wg sync.WaitGroup
	var runErr error

dispatch:
	for _, pair := range pairs {
		if fingerprints[pair.A.ReportID] == fingerprints[pair.B.ReportID] {
			continue
		}

		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(pair similarity.Pair) {
			defer wg.Done()
			defer func() { <-sem }()

			cmp := similarity.Compare(pair.A, pair.B, snap)
			if cmp.Confidence < similarity.ConfidenceThreshold {
				prog.recordPair(nil, false)
				return
			}

			created, err := s.upsertCandidate(ctx, runID, pair.A.ReportID, pair.B.ReportID,
				MatchKindFuzzy, CandidateStatusPending, cmp)
			if err != nil {
				logger.Warn().Err(err).
					Int64("report_a", pair.A.ReportID).
					Int64("report_b", pair.B.ReportID).
					Msg("upsert fuzzy candidate")
			} else if created {
				logger.Info().
					Int64("report_a", pair.A.ReportID).
					Int64("report_b", pair.B.ReportID).
					Float64("confidence", cmp.Confidence).
					Msg("duplicate candidate created")
			}
			prog.recordPair(err, created)
		}(pair)
	}
	wg.Wait()

	return runErr
}

// upsertCandidate inserts one candidate row keyed by the canonical pair.
// Conflicts mean the pair is already recorded; the insert is a no-op and
// created is false, which keeps resumed sweeps from double-counting.
func (s *Service) upsertCandidate(
	ctx context.Context,
	runID, reportA, reportB int64,
	matchKind, status string,
	cmp similarity.Comparison,
) (bool, error) {
	a, b := canonicalPair(reportA, reportB)

	const q = `
INSERT INTO reports.duplicate_candidates
	(report_a_id, report_b_id, match_kind, title_score, location_score,
	 date_score, content_score, confidence, status, run_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (report_a_id, report_b_id) DO NOTHING
`
	tag, err := s.pool.Exec(ctx, q,
		a, b, matchKind,
		cmp.TitleScore, cmp.LocationScore, cmp.DateScore, cmp.ContentScore,
		cmp.Confidence, status, runID,
	)
	if err != nil {
		return false, fmt.Errorf("upsert candidate (%d,%d): %w", a, b, err)
	}
	created := tag.RowsAffected() > 0
	if created {
		candidatesUpsertedTotal.Inc()
	}
	return created, nil
}
