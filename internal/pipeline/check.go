package pipeline

import (
	"context"
	"fmt"
	"time"

	"skywatch.earth/skywatch/internal/corpus"
	"skywatch.earth/skywatch/internal/scoring"
)

// CheckReport is the diagnostic output of Check. Problems lists everything an
// operator should fix before the next run; an empty list means healthy.
type CheckReport struct {
	DatabaseOK          bool          `json:"database_ok"`
	CorpusTerms         int           `json:"corpus_terms"`
	CorpusAge           time.Duration `json:"-"`
	CorpusAgeHours      float64       `json:"corpus_age_hours"`
	CorpusFresh         bool          `json:"corpus_fresh"`
	ProvenanceEntries   int           `json:"provenance_entries"`
	CoherenceConfigured bool          `json:"coherence_configured"`
	ScorerVersion       string        `json:"scorer_version"`
	StaleVersionReports int64         `json:"stale_version_reports"`
	UnscoredReports     int64         `json:"unscored_reports"`
	Problems            []string      `json:"problems"`
}

// Healthy reports whether every diagnostic passed.
func (c CheckReport) Healthy() bool { return len(c.Problems) == 0 }

// Check validates configuration and reference data without mutating anything.
func (s *Service) Check(ctx context.Context) (CheckReport, error) {
	if s == nil || s.pool == nil {
		return CheckReport{}, fmt.Errorf("pipeline service is not initialized")
	}

	report := CheckReport{ScorerVersion: scoring.Version, Problems: []string{}}

	if err := s.pool.DB().PingContext(ctx); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("database unreachable: %v", err))
		return report, nil
	}
	report.DatabaseOK = true

	snap, err := corpus.Build(ctx, s.pool)
	if err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("corpus snapshot: %v", err))
		return report, nil
	}

	report.CorpusTerms = snap.TermCount()
	report.ProvenanceEntries = snap.ProvenanceCount()
	report.CorpusAge = snap.Age()
	report.CorpusAgeHours = snap.Age().Hours()
	report.CorpusFresh = s.corpusMaxAge <= 0 || snap.Age() <= s.corpusMaxAge

	if report.CorpusTerms == 0 {
		report.Problems = append(report.Problems, "corpus term table is empty")
	}
	if !report.CorpusFresh {
		report.Problems = append(report.Problems,
			fmt.Sprintf("corpus snapshot is stale: %.0fh old, max %.0fh",
				report.CorpusAgeHours, s.corpusMaxAge.Hours()))
	}
	if report.ProvenanceEntries == 0 {
		report.Problems = append(report.Problems, "source provenance table is empty")
	} else if snap.ProvenanceTier("user_submission") == "" {
		report.Problems = append(report.Problems,
			"source provenance is missing the user_submission fallback tier")
	}

	report.CoherenceConfigured = coherenceConfigured(s.coherence)
	if !report.CoherenceConfigured {
		report.Problems = append(report.Problems, "coherence scorer endpoint is not configured")
	}

	const staleQuery = `
SELECT
	COUNT(*) FILTER (WHERE quality_score IS NOT NULL AND scorer_version <> ?)::BIGINT,
	COUNT(*) FILTER (WHERE quality_score IS NULL)::BIGINT
FROM reports.reports
WHERE status = 'approved'
`
	if err := s.pool.QueryRow(ctx, staleQuery, scoring.Version).
		Scan(&report.StaleVersionReports, &report.UnscoredReports); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("count stale reports: %v", err))
		return report, nil
	}
	if report.StaleVersionReports > 0 {
		report.Problems = append(report.Problems,
			fmt.Sprintf("%d reports carry a stale scorer version, run rescore-all", report.StaleVersionReports))
	}

	return report, nil
}

func coherenceConfigured(c scoring.CoherenceScorer) bool {
	if c == nil {
		return false
	}
	if h, ok := c.(*scoring.HTTPCoherenceScorer); ok {
		return h.Configured()
	}
	return true
}
