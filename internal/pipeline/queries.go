package pipeline

import (
	"context"
	"fmt"
	"time"

	"skywatch.earth/skywatch/internal/db"
	"skywatch.earth/skywatch/internal/globaltime"
)

const defaultListLimit = 50

// RunRecord is one scoring run row shaped for API responses.
type RunRecord struct {
	RunID             int64      `json:"run_id"`
	RunUUID           string     `json:"run_uuid"`
	Kind              string     `json:"kind"`
	Status            string     `json:"status"`
	StartedAt         *time.Time `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at"`
	ReportsProcessed  int        `json:"reports_processed"`
	ReportsFailed     int        `json:"reports_failed"`
	CandidatesCreated int        `json:"candidates_created"`
	ScorerVersion     string     `json:"scorer_version"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
}

// ListRuns returns the most recent scoring runs, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	const q = `
SELECT run_id, run_uuid, kind, status, started_at, completed_at,
       reports_processed, reports_failed, candidates_created,
       scorer_version, error_message
FROM reports.scoring_runs
ORDER BY run_id DESC
LIMIT ?
`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	records := make([]RunRecord, 0, limit)
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.RunID, &r.RunUUID, &r.Kind, &r.Status, &r.StartedAt, &r.CompletedAt,
			&r.ReportsProcessed, &r.ReportsFailed, &r.CandidatesCreated,
			&r.ScorerVersion, &r.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

// CandidateRecord is one duplicate candidate row shaped for API responses.
type CandidateRecord struct {
	CandidateID   int64      `json:"candidate_id"`
	CandidateUUID string     `json:"candidate_uuid"`
	ReportAID     int64      `json:"report_a_id"`
	ReportBID     int64      `json:"report_b_id"`
	MatchKind     string     `json:"match_kind"`
	TitleScore    float64    `json:"title_score"`
	LocationScore float64    `json:"location_score"`
	DateScore     float64    `json:"date_score"`
	ContentScore  float64    `json:"content_score"`
	Confidence    float64    `json:"confidence"`
	Status        string     `json:"status"`
	RunID         *int64     `json:"run_id,omitempty"`
	ReviewedBy    string     `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ListCandidates returns duplicate candidates, optionally filtered by status,
// highest confidence first.
func (s *Service) ListCandidates(ctx context.Context, status string, limit int) ([]CandidateRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := `
SELECT candidate_id, candidate_uuid, report_a_id, report_b_id, match_kind,
       title_score, location_score, date_score, content_score, confidence,
       status, run_id, reviewed_by, reviewed_at, created_at
FROM reports.duplicate_candidates
`
	var args []any
	if status != "" {
		q += "WHERE status = ?\n"
		args = append(args, status)
	}
	q += "ORDER BY confidence DESC, candidate_id DESC\nLIMIT ?\n"
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	records := make([]CandidateRecord, 0, limit)
	for rows.Next() {
		var c CandidateRecord
		if err := rows.Scan(
			&c.CandidateID, &c.CandidateUUID, &c.ReportAID, &c.ReportBID, &c.MatchKind,
			&c.TitleScore, &c.LocationScore, &c.DateScore, &c.ContentScore, &c.Confidence,
			&c.Status, &c.RunID, &c.ReviewedBy, &c.ReviewedAt, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		records = append(records, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return records, nil
}

// ReviewCandidate records a moderator decision on a pending candidate.
// Returns false when the candidate does not exist or is already reviewed.
// The row is locked for the duration so two moderators cannot race a
// decision on the same pair.
func (s *Service) ReviewCandidate(ctx context.Context, candidateID int64, status, reviewedBy string) (bool, error) {
	if status != CandidateStatusConfirmed && status != CandidateStatusRejected {
		return false, fmt.Errorf("invalid review status %q", status)
	}

	tx, err := s.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin review of candidate %d: %w", candidateID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const lockQuery = `
SELECT status
FROM reports.duplicate_candidates
WHERE candidate_id = ?
FOR UPDATE
`
	var current string
	if err := tx.QueryRow(ctx, lockQuery, candidateID).Scan(&current); err != nil {
		if db.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("load candidate %d: %w", candidateID, err)
	}
	if current != CandidateStatusPending {
		return false, nil
	}

	const updateQuery = `
UPDATE reports.duplicate_candidates
SET status = ?, reviewed_by = ?, reviewed_at = ?, updated_at = ?
WHERE candidate_id = ?
`
	now := globaltime.UTC()
	if _, err := tx.Exec(ctx, updateQuery, status, reviewedBy, now, now, candidateID); err != nil {
		return false, fmt.Errorf("review candidate %d: %w", candidateID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit review of candidate %d: %w", candidateID, err)
	}
	return true, nil
}
