package scoring

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"skywatch.earth/skywatch/internal/corpus"
	"skywatch.earth/skywatch/internal/db"
	"skywatch.earth/skywatch/internal/normalize"
)

// Dimension names.
const (
	DimEvidenceStrength    = "evidence_strength"
	DimDescriptionDetail   = "description_detail"
	DimSourceReliability   = "source_reliability"
	DimWitnessCredibility  = "witness_credibility"
	DimNarrativeCoherence  = "narrative_coherence"
	DimLocationSpecificity = "location_specificity"
	DimTemporalPrecision   = "temporal_precision"
	DimDataCompleteness    = "data_completeness"
	DimContentOriginality  = "content_originality"
	DimCrossReference      = "cross_reference"
)

// DimensionScore is one weighted quality sub-score. Raw is always in [0,100].
type DimensionScore struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Raw    float64 `json:"raw"`
}

var dimensionWeights = map[string]float64{
	DimEvidenceStrength:    1.2,
	DimDescriptionDetail:   1.3,
	DimSourceReliability:   1.1,
	DimWitnessCredibility:  1.0,
	DimNarrativeCoherence:  1.0,
	DimLocationSpecificity: 0.9,
	DimTemporalPrecision:   0.9,
	DimDataCompleteness:    0.8,
	DimContentOriginality:  0.8,
	DimCrossReference:      0.7,
}

const descriptionWordCap = 800

// Words that indicate first-hand sensory observation or concrete measurement.
var detailKeywords = map[string]struct{}{
	"saw": {}, "seen": {}, "heard": {}, "felt": {}, "smelled": {},
	"bright": {}, "glowing": {}, "pulsing": {}, "metallic": {}, "silent": {},
	"hovered": {}, "hovering": {}, "accelerated": {}, "descended": {},
	"feet": {}, "meters": {}, "metres": {}, "miles": {}, "km": {},
	"degrees": {}, "seconds": {}, "minutes": {}, "north": {}, "south": {},
	"east": {}, "west": {}, "altitude": {}, "speed": {}, "diameter": {},
}

// ScoreDimensions computes the ten quality sub-scores for one report. Every
// dimension is total: a missing or malformed field scores 0 for that dimension
// instead of failing. A coherence scorer failure degrades that one dimension to
// 0 and is logged, never propagated.
func ScoreDimensions(
	ctx context.Context,
	r *db.Report,
	n normalize.Normalized,
	snap *corpus.Snapshot,
	coherence CoherenceScorer,
	logger zerolog.Logger,
) []DimensionScore {
	dims := make([]DimensionScore, 0, len(dimensionWeights))
	add := func(name string, raw float64) {
		dims = append(dims, DimensionScore{Name: name, Weight: dimensionWeights[name], Raw: clampRaw(raw)})
	}

	add(DimEvidenceStrength, evidenceStrength(r))
	add(DimDescriptionDetail, descriptionDetail(n))
	add(DimSourceReliability, snap.ProvenanceScore(r.SourceType))
	add(DimWitnessCredibility, witnessCredibility(r))
	add(DimNarrativeCoherence, narrativeCoherence(ctx, r, coherence, logger))
	add(DimLocationSpecificity, locationSpecificity(r, n))
	add(DimTemporalPrecision, temporalPrecision(n))
	add(DimDataCompleteness, dataCompleteness(r))
	add(DimContentOriginality, contentOriginality(n, snap))
	add(DimCrossReference, crossReference(r))

	return dims
}

// evidenceStrength tiers by how many of the three evidence classes are present.
func evidenceStrength(r *db.Report) float64 {
	count := 0
	if r.HasPhotoVideo {
		count++
	}
	if r.HasPhysical {
		count++
	}
	if r.HasOfficialReport {
		count++
	}
	switch count {
	case 0:
		return 0
	case 1:
		return 35
	case 2:
		return 70
	default:
		return 100
	}
}

// descriptionDetail saturates with word count up to the cap and adds a bonus
// for sensory/measurement keyword density.
func descriptionDetail(n normalize.Normalized) float64 {
	words := strings.Fields(n.Description)
	if len(words) == 0 {
		return 0
	}

	lengthRatio := float64(len(words)) / float64(descriptionWordCap)
	if lengthRatio > 1 {
		lengthRatio = 1
	}
	lengthScore := 70 * lengthRatio

	hits := 0
	for _, w := range words {
		if _, ok := detailKeywords[w]; ok {
			hits++
		}
	}
	density := float64(hits) / float64(len(words))
	keywordScore := 30 * math.Min(1, density*10)

	return lengthScore + keywordScore
}

func witnessCredibility(r *db.Report) float64 {
	var base float64
	switch {
	case r.WitnessCount <= 0:
		base = 0
	case r.WitnessCount == 1:
		base = 40
	case r.WitnessCount <= 3:
		base = 60
	default:
		base = 75
	}

	if r.WitnessNamed {
		base += 15
	}
	if strings.TrimSpace(r.WitnessProfession) != "" {
		base += 10
	}
	return base
}

func narrativeCoherence(ctx context.Context, r *db.Report, coherence CoherenceScorer, logger zerolog.Logger) float64 {
	if coherence == nil {
		return 0
	}
	if strings.TrimSpace(r.Description) == "" {
		return 0
	}

	score, err := coherence.Score(ctx, r.Description)
	if err != nil {
		logger.Warn().
			Err(err).
			Int64("report_id", r.ReportID).
			Msg("coherence scorer unavailable, dimension degraded to 0")
		return 0
	}
	return score
}

func locationSpecificity(r *db.Report, n normalize.Normalized) float64 {
	switch {
	case n.HasCoordinates():
		return 100
	case strings.TrimSpace(r.Landmark) != "":
		return 75
	case n.LocationKey != "":
		return 50
	default:
		return 0
	}
}

func temporalPrecision(n normalize.Normalized) float64 {
	switch n.DatePrecision {
	case "exact":
		if n.EventDate != nil && !hasMidnightTime(*n.EventDate) {
			return 100
		}
		return 75
	case "approximate":
		return 40
	default:
		return 0
	}
}

// dataCompleteness counts the 14 defined optional fields.
func dataCompleteness(r *db.Report) float64 {
	populated := 0
	total := 14

	if r.EventDate != nil {
		populated++
	}
	if r.Latitude != nil {
		populated++
	}
	if r.Longitude != nil {
		populated++
	}
	for _, s := range []string{r.City, r.State, r.Country, r.Landmark, r.WitnessProfession, r.SourceType} {
		if strings.TrimSpace(s) != "" {
			populated++
		}
	}
	if r.WitnessCount > 0 {
		populated++
	}
	if r.HasPhotoVideo {
		populated++
	}
	if r.HasPhysical {
		populated++
	}
	if r.HasOfficialReport {
		populated++
	}
	if len(decodeStringArray(r.Tags)) > 0 {
		populated++
	}

	return float64(populated) / float64(total) * 100
}

// contentOriginality is the mean normalized IDF of the distinct description
// tokens against the run's corpus snapshot.
func contentOriginality(n normalize.Normalized, snap *corpus.Snapshot) float64 {
	if len(n.TokenSet) == 0 || snap == nil || snap.TotalDocs <= 0 {
		return 0
	}

	var sum float64
	for token := range n.TokenSet {
		sum += snap.IDF(token)
	}
	return sum / float64(len(n.TokenSet)) * 100
}

// crossReference saturates with the combined tag and category-link count.
func crossReference(r *db.Report) float64 {
	n := len(decodeStringArray(r.Tags)) + len(decodeStringArray(r.CategoryLinks))
	if n == 0 {
		return 0
	}
	return 100 * float64(n) / float64(n+3)
}

func hasMidnightTime(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0
}

func decodeStringArray(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	out := values[:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
