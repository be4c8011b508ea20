package corpus

import (
	"context"
	"fmt"
	"math"
	"time"

	"skywatch.earth/skywatch/internal/db"
	"skywatch.earth/skywatch/internal/globaltime"
)

// RareIDFThreshold marks a token as rare when its normalized IDF is at or
// above this value. Rare tokens drive Content Originality and the content
// overlap similarity signal.
const RareIDFThreshold = 0.5

// Snapshot is an immutable view of the corpus statistics a scoring run depends
// on: the term document-frequency table and the source provenance tiers. It is
// built once before a run starts and never mutated, so every report scored in
// the same run sees identical reference data.
type Snapshot struct {
	Version       string
	BuiltAt       time.Time
	TotalDocs     int64
	termIDF       map[string]float64
	provenance    map[string]float64
	provenanceTie map[string]string
}

// IDF returns the normalized inverse document frequency of a term in [0,1].
// Terms absent from the corpus are maximally rare and score 1.
func (s *Snapshot) IDF(term string) float64 {
	if s == nil || s.TotalDocs <= 0 {
		return 0
	}
	if v, ok := s.termIDF[term]; ok {
		return v
	}
	return 1
}

// RareTerms filters tokens down to the distinct rare ones.
func (s *Snapshot) RareTerms(tokens []string) map[string]struct{} {
	if s == nil || len(tokens) == 0 {
		return nil
	}
	rare := make(map[string]struct{})
	for _, t := range tokens {
		if s.IDF(t) >= RareIDFThreshold {
			rare[t] = struct{}{}
		}
	}
	if len(rare) == 0 {
		return nil
	}
	return rare
}

// ProvenanceScore returns the reliability score [0,100] for a source type.
// Unknown source types fall back to the anonymous-submission floor.
func (s *Snapshot) ProvenanceScore(sourceType string) float64 {
	if s == nil {
		return 0
	}
	if v, ok := s.provenance[sourceType]; ok {
		return v
	}
	if v, ok := s.provenance["user_submission"]; ok {
		return v
	}
	return 0
}

// ProvenanceTier returns the named tier of a source type, or "".
func (s *Snapshot) ProvenanceTier(sourceType string) string {
	if s == nil {
		return ""
	}
	return s.provenanceTie[sourceType]
}

// TermCount returns the number of distinct terms in the snapshot.
func (s *Snapshot) TermCount() int {
	if s == nil {
		return 0
	}
	return len(s.termIDF)
}

// ProvenanceCount returns the number of provenance tiers in the snapshot.
func (s *Snapshot) ProvenanceCount() int {
	if s == nil {
		return 0
	}
	return len(s.provenance)
}

// Age reports how long ago the snapshot was built.
func (s *Snapshot) Age() time.Duration {
	if s == nil || s.BuiltAt.IsZero() {
		return 0
	}
	return globaltime.UTC().Sub(s.BuiltAt)
}

// NewStatic builds a snapshot from in-memory tables. Used for deterministic
// fixtures and by the document loader.
func NewStatic(totalDocs int64, termDF map[string]int64, tiers []ProvenanceTierEntry, builtAt time.Time) *Snapshot {
	snap := &Snapshot{
		BuiltAt:       builtAt,
		TotalDocs:     totalDocs,
		termIDF:       make(map[string]float64, len(termDF)),
		provenance:    make(map[string]float64, len(tiers)),
		provenanceTie: make(map[string]string, len(tiers)),
	}
	for term, df := range termDF {
		snap.termIDF[term] = normalizedIDF(totalDocs, df)
	}
	for _, tier := range tiers {
		snap.provenance[tier.SourceType] = tier.ReliabilityScore
		snap.provenanceTie[tier.SourceType] = tier.Tier
	}
	return snap
}

// normalizedIDF maps a document frequency to [0,1]: ln(1 + N/(1+df)) / ln(1+N).
func normalizedIDF(totalDocs, df int64) float64 {
	if totalDocs <= 0 {
		return 0
	}
	denom := math.Log(1 + float64(totalDocs))
	if denom <= 0 {
		return 0
	}
	raw := math.Log(1 + float64(totalDocs)/float64(1+df))
	v := raw / denom
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Build assembles a snapshot from the externally maintained corpus tables.
func Build(ctx context.Context, pool *db.Pool) (*Snapshot, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	snap := &Snapshot{
		BuiltAt:       globaltime.UTC(),
		termIDF:       make(map[string]float64),
		provenance:    make(map[string]float64),
		provenanceTie: make(map[string]string),
	}

	const totalQuery = `
SELECT COUNT(*)::BIGINT
FROM reports.reports
WHERE status = 'approved'
`
	if err := pool.QueryRow(ctx, totalQuery).Scan(&snap.TotalDocs); err != nil {
		return nil, fmt.Errorf("count corpus documents: %w", err)
	}

	const termsQuery = `
SELECT term, document_frequency, updated_at
FROM reports.corpus_terms
`
	rows, err := pool.Query(ctx, termsQuery)
	if err != nil {
		return nil, fmt.Errorf("query corpus terms: %w", err)
	}
	defer rows.Close()

	var newestTerm time.Time
	for rows.Next() {
		var term string
		var df int64
		var updatedAt time.Time
		if err := rows.Scan(&term, &df, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan corpus term: %w", err)
		}
		snap.termIDF[term] = normalizedIDF(snap.TotalDocs, df)
		if updatedAt.After(newestTerm) {
			newestTerm = updatedAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corpus terms: %w", err)
	}

	const provenanceQuery = `
SELECT source_type, tier, reliability_score
FROM reports.source_provenance
`
	provRows, err := pool.Query(ctx, provenanceQuery)
	if err != nil {
		return nil, fmt.Errorf("query source provenance: %w", err)
	}
	defer provRows.Close()

	for provRows.Next() {
		var sourceType, tier string
		var score float64
		if err := provRows.Scan(&sourceType, &tier, &score); err != nil {
			return nil, fmt.Errorf("scan source provenance: %w", err)
		}
		snap.provenance[sourceType] = score
		snap.provenanceTie[sourceType] = tier
	}
	if err := provRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source provenance: %w", err)
	}

	if !newestTerm.IsZero() {
		snap.Version = newestTerm.UTC().Format("2006-01-02T15:04:05Z")
		snap.BuiltAt = newestTerm.UTC()
	}

	return snap, nil
}
