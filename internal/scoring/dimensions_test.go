package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"skywatch.earth/skywatch/internal/corpus"
	"skywatch.earth/skywatch/internal/db"
	"skywatch.earth/skywatch/internal/normalize"
)

func testSnapshot() *corpus.Snapshot {
	termDF := map[string]int64{
		"light":  900,
		"object": 850,
		"sky":    800,
		"night":  700,
	}
	tiers := []corpus.ProvenanceTierEntry{
		{SourceType: "curated_archive", Tier: "curated", ReliabilityScore: 95},
		{SourceType: "aggregator_feed", Tier: "aggregator", ReliabilityScore: 65},
		{SourceType: "user_submission", Tier: "anonymous", ReliabilityScore: 40},
	}
	return corpus.NewStatic(1000, termDF, tiers, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
}

func TestEvidenceStrength_Tiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		photo, physical, official bool
		want                      float64
	}{
		{false, false, false, 0},
		{true, false, false, 35},
		{true, true, false, 70},
		{true, true, true, 100},
	}
	for _, tc := range cases {
		r := &db.Report{HasPhotoVideo: tc.photo, HasPhysical: tc.physical, HasOfficialReport: tc.official}
		if got := evidenceStrength(r); got != tc.want {
			t.Fatalf("evidenceStrength(%v,%v,%v) = %f, want %f",
				tc.photo, tc.physical, tc.official, got, tc.want)
		}
	}
}

func TestDescriptionDetail_EmptyScoresZero(t *testing.T) {
	t.Parallel()

	if got := descriptionDetail(normalize.Normalized{}); got != 0 {
		t.Fatalf("empty description should score 0, got %f", got)
	}
}

func TestDescriptionDetail_SaturatesAtCap(t *testing.T) {
	t.Parallel()

	atCap := normalize.Normalized{Description: strings.TrimSpace(strings.Repeat("word ", 800))}
	beyond := normalize.Normalized{Description: strings.TrimSpace(strings.Repeat("word ", 2000))}
	if descriptionDetail(atCap) != descriptionDetail(beyond) {
		t.Fatalf("detail score must flatten past the word cap")
	}
}

func TestDescriptionDetail_KeywordsRaiseScore(t *testing.T) {
	t.Parallel()

	plain := normalize.Normalized{Description: strings.TrimSpace(strings.Repeat("thing ", 100))}
	sensory := normalize.Normalized{Description: strings.TrimSpace(strings.Repeat("bright glowing metallic thing ", 25))}
	if descriptionDetail(sensory) <= descriptionDetail(plain) {
		t.Fatalf("sensory keywords should raise the detail score")
	}
}

func TestWitnessCredibility(t *testing.T) {
	t.Parallel()

	if got := witnessCredibility(&db.Report{}); got != 0 {
		t.Fatalf("no witnesses should score 0, got %f", got)
	}
	if got := witnessCredibility(&db.Report{WitnessCount: 1}); got != 40 {
		t.Fatalf("single witness should score 40, got %f", got)
	}
	if got := witnessCredibility(&db.Report{WitnessCount: 3, WitnessNamed: true}); got != 75 {
		t.Fatalf("three named witnesses should score 75, got %f", got)
	}
	r := &db.Report{WitnessCount: 5, WitnessNamed: true, WitnessProfession: "air traffic controller"}
	if got := witnessCredibility(r); got != 100 {
		t.Fatalf("max witness profile should score 100, got %f", got)
	}
}

func TestNarrativeCoherence_FailureDegradesToZero(t *testing.T) {
	t.Parallel()

	r := &db.Report{ReportID: 1, Description: "a detailed account"}
	scorer := StaticCoherenceScorer{Err: fmt.Errorf("endpoint unavailable")}
	if got := narrativeCoherence(context.Background(), r, scorer, zerolog.Nop()); got != 0 {
		t.Fatalf("scorer failure must degrade to 0, got %f", got)
	}
}

func TestNarrativeCoherence_NilScorerAndEmptyText(t *testing.T) {
	t.Parallel()

	r := &db.Report{Description: "text"}
	if got := narrativeCoherence(context.Background(), r, nil, zerolog.Nop()); got != 0 {
		t.Fatalf("nil scorer must score 0, got %f", got)
	}
	empty := &db.Report{}
	if got := narrativeCoherence(context.Background(), empty, StaticCoherenceScorer{Value: 90}, zerolog.Nop()); got != 0 {
		t.Fatalf("empty description must score 0, got %f", got)
	}
}

func TestLocationSpecificity_Tiers(t *testing.T) {
	t.Parallel()

	lat, lng := 39.0968, -120.0324
	r := &db.Report{Latitude: &lat, Longitude: &lng}
	if got := locationSpecificity(r, normalize.Report(r)); got != 100 {
		t.Fatalf("coordinates should score 100, got %f", got)
	}

	landmark := &db.Report{Landmark: "Emerald Bay overlook"}
	if got := locationSpecificity(landmark, normalize.Report(landmark)); got != 75 {
		t.Fatalf("landmark should score 75, got %f", got)
	}

	cityOnly := &db.Report{City: "Reno", State: "Nevada", Country: "USA"}
	if got := locationSpecificity(cityOnly, normalize.Report(cityOnly)); got != 50 {
		t.Fatalf("city/state/country should score 50, got %f", got)
	}

	none := &db.Report{}
	if got := locationSpecificity(none, normalize.Report(none)); got != 0 {
		t.Fatalf("no location should score 0, got %f", got)
	}
}

func TestTemporalPrecision_Tiers(t *testing.T) {
	t.Parallel()

	withTime := time.Date(2026, 3, 14, 21, 30, 0, 0, time.UTC)
	midnight := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	exact := normalize.Report(&db.Report{Title: "x", EventDate: &withTime, EventDatePrecision: "exact"})
	if got := temporalPrecision(exact); got != 100 {
		t.Fatalf("exact date with time should score 100, got %f", got)
	}

	dateOnly := normalize.Report(&db.Report{Title: "x", EventDate: &midnight, EventDatePrecision: "exact"})
	if got := temporalPrecision(dateOnly); got != 75 {
		t.Fatalf("exact date without time should score 75, got %f", got)
	}

	approx := normalize.Report(&db.Report{Title: "x", EventDate: &midnight, EventDatePrecision: "approximate"})
	if got := temporalPrecision(approx); got != 40 {
		t.Fatalf("approximate date should score 40, got %f", got)
	}

	unknown := normalize.Report(&db.Report{Title: "x"})
	if got := temporalPrecision(unknown); got != 0 {
		t.Fatalf("unknown date should score 0, got %f", got)
	}
}

func TestDataCompleteness_CountsOptionalFields(t *testing.T) {
	t.Parallel()

	if got := dataCompleteness(&db.Report{}); got != 0 {
		t.Fatalf("empty report should score 0, got %f", got)
	}

	date := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lat, lng := 1.0, 2.0
	full := &db.Report{
		EventDate:         &date,
		Latitude:          &lat,
		Longitude:         &lng,
		City:              "c",
		State:             "s",
		Country:           "n",
		Landmark:          "l",
		WitnessProfession: "pilot",
		SourceType:        "user_submission",
		WitnessCount:      2,
		HasPhotoVideo:     true,
		HasPhysical:       true,
		HasOfficialReport: true,
		Tags:              json.RawMessage(`["lights"]`),
	}
	if got := dataCompleteness(full); got != 100 {
		t.Fatalf("fully populated report should score 100, got %f", got)
	}
}

func TestContentOriginality_RareTokensScoreHigher(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	common := normalize.Report(&db.Report{Title: "t", Description: "light object sky night"})
	rare := normalize.Report(&db.Report{Title: "t", Description: "triangular chevron iridescent translucent"})

	commonScore := contentOriginality(common, snap)
	rareScore := contentOriginality(rare, snap)
	if rareScore <= commonScore {
		t.Fatalf("rare tokens should score higher: rare=%f common=%f", rareScore, commonScore)
	}
	if rareScore != 100 {
		t.Fatalf("tokens absent from the corpus are maximally rare, got %f", rareScore)
	}
}

func TestCrossReference_Saturates(t *testing.T) {
	t.Parallel()

	if got := crossReference(&db.Report{}); got != 0 {
		t.Fatalf("no tags should score 0, got %f", got)
	}

	three := crossReference(&db.Report{Tags: json.RawMessage(`["a","b","c"]`)})
	if three != 50 {
		t.Fatalf("three references should score 50, got %f", three)
	}

	many := crossReference(&db.Report{
		Tags:          json.RawMessage(`["a","b","c","d","e","f","g","h"]`),
		CategoryLinks: json.RawMessage(`["x","y","z"]`),
	})
	if many <= three || many >= 100 {
		t.Fatalf("more references should approach but never reach 100, got %f", many)
	}
}

func TestDecodeStringArray_Malformed(t *testing.T) {
	t.Parallel()

	if got := decodeStringArray(json.RawMessage(`{"not":"an array"}`)); got != nil {
		t.Fatalf("malformed json should decode to nil, got %v", got)
	}
	if got := decodeStringArray(nil); got != nil {
		t.Fatalf("nil input should decode to nil, got %v", got)
	}
}

func TestScoreDimensions_HighQualityReportGradesAOrB(t *testing.T) {
	t.Parallel()

	sentence := "we saw a bright metallic disc hovering silent above the ridge moving north at high speed near two hundred feet altitude before it accelerated away "
	description := strings.TrimSpace(strings.Repeat(sentence, 20))

	date := time.Date(2026, 6, 12, 21, 45, 0, 0, time.UTC)
	lat, lng := 39.0968, -120.0324
	r := &db.Report{
		ReportID:           42,
		Title:              "Bright metallic disc over Lake Tahoe",
		Description:        description,
		EventDate:          &date,
		EventDatePrecision: "exact",
		Latitude:           &lat,
		Longitude:          &lng,
		City:               "South Lake Tahoe",
		State:              "California",
		Country:            "USA",
		WitnessCount:       3,
		WitnessNamed:       true,
		WitnessProfession:  "park ranger",
		HasPhotoVideo:      true,
		HasPhysical:        true,
		HasOfficialReport:  true,
		Tags:               json.RawMessage(`["disc","night-sighting"]`),
		CategoryLinks:      json.RawMessage(`["aerial-phenomena"]`),
		SourceType:         "curated_archive",
		Status:             "approved",
	}

	snap := testSnapshot()
	n := normalize.Report(r)
	dims := ScoreDimensions(context.Background(), r, n, snap, StaticCoherenceScorer{Value: 85}, zerolog.Nop())

	byName := make(map[string]float64, len(dims))
	for _, d := range dims {
		if d.Raw < 0 || d.Raw > 100 {
			t.Fatalf("dimension %s out of range: %f", d.Name, d.Raw)
		}
		byName[d.Name] = d.Raw
	}
	if byName[DimEvidenceStrength] != 100 {
		t.Fatalf("expected evidence strength 100, got %f", byName[DimEvidenceStrength])
	}
	if byName[DimLocationSpecificity] != 100 {
		t.Fatalf("expected location specificity 100, got %f", byName[DimLocationSpecificity])
	}
	if byName[DimTemporalPrecision] != 100 {
		t.Fatalf("expected temporal precision 100, got %f", byName[DimTemporalPrecision])
	}

	score, grade := Aggregate(dims)
	if grade != GradeA && grade != GradeB {
		t.Fatalf("expected grade A or B for a high quality report, got %q (score %d)", grade, score)
	}

	again := ScoreDimensions(context.Background(), r, n, snap, StaticCoherenceScorer{Value: 85}, zerolog.Nop())
	scoreAgain, gradeAgain := Aggregate(again)
	if score != scoreAgain || grade != gradeAgain {
		t.Fatalf("scoring must be reproducible: %d/%s vs %d/%s", score, grade, scoreAgain, gradeAgain)
	}
}

func TestScoreDimensions_MissingDescriptionStillScores(t *testing.T) {
	t.Parallel()

	r := &db.Report{ReportID: 9, Title: "Untitled sighting", SourceType: "user_submission"}
	n := normalize.Report(r)
	dims := ScoreDimensions(context.Background(), r, n, testSnapshot(), nil, zerolog.Nop())
	score, grade := Aggregate(dims)
	if score < 0 || score > 100 {
		t.Fatalf("score out of range: %d", score)
	}
	if grade != GradeF && grade != GradeD {
		t.Fatalf("near-empty report should grade poorly, got %q (score %d)", grade, score)
	}
}
