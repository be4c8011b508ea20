package corpus

import (
	"testing"
	"time"

	"skywatch.earth/skywatch/internal/globaltime"
)

func fixtureSnapshot() *Snapshot {
	termDF := map[string]int64{
		"light":      900,
		"sky":        800,
		"triangular": 3,
	}
	tiers := []ProvenanceTierEntry{
		{SourceType: "curated_archive", Tier: "curated", ReliabilityScore: 95},
		{SourceType: "user_submission", Tier: "anonymous", ReliabilityScore: 40},
	}
	return NewStatic(1000, termDF, tiers, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
}

func TestNormalizedIDF_Bounds(t *testing.T) {
	t.Parallel()

	if got := normalizedIDF(1000, 0); got <= 0 || got > 1 {
		t.Fatalf("idf for df=0 should be in (0,1], got %f", got)
	}
	if got := normalizedIDF(1000, 1000); got < 0 || got > 0.15 {
		t.Fatalf("idf for ubiquitous term should be near 0, got %f", got)
	}
	if got := normalizedIDF(0, 5); got != 0 {
		t.Fatalf("empty corpus should yield 0, got %f", got)
	}

	prev := 1.1
	for _, df := range []int64{0, 1, 10, 100, 1000} {
		got := normalizedIDF(1000, df)
		if got >= prev {
			t.Fatalf("idf must decrease with document frequency: df=%d got %f prev %f", df, got, prev)
		}
		prev = got
	}
}

func TestSnapshot_IDF_AbsentTermsAreMaximallyRare(t *testing.T) {
	t.Parallel()

	snap := fixtureSnapshot()
	if got := snap.IDF("chevron"); got != 1 {
		t.Fatalf("absent term should score 1, got %f", got)
	}
	if got := snap.IDF("light"); got >= 0.5 {
		t.Fatalf("common term should be below the rare threshold, got %f", got)
	}
}

func TestSnapshot_RareTerms(t *testing.T) {
	t.Parallel()

	snap := fixtureSnapshot()
	rare := snap.RareTerms([]string{"light", "sky", "triangular", "chevron", "chevron"})

	if _, ok := rare["light"]; ok {
		t.Fatalf("common term must not be rare: %v", rare)
	}
	if _, ok := rare["triangular"]; !ok {
		t.Fatalf("low-frequency term should be rare: %v", rare)
	}
	if _, ok := rare["chevron"]; !ok {
		t.Fatalf("absent term should be rare: %v", rare)
	}
	if len(rare) != 2 {
		t.Fatalf("rare set should be distinct, got %v", rare)
	}

	if snap.RareTerms(nil) != nil {
		t.Fatalf("empty token list should yield nil")
	}
}

func TestSnapshot_ProvenanceFallback(t *testing.T) {
	t.Parallel()

	snap := fixtureSnapshot()
	if got := snap.ProvenanceScore("curated_archive"); got != 95 {
		t.Fatalf("unexpected curated score: %f", got)
	}
	if got := snap.ProvenanceScore("totally_new_source"); got != 40 {
		t.Fatalf("unknown source should fall back to user_submission, got %f", got)
	}
	if got := snap.ProvenanceTier("curated_archive"); got != "curated" {
		t.Fatalf("unexpected tier: %q", got)
	}
}

func TestSnapshot_Age(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	snap := fixtureSnapshot()
	if got := snap.Age(); got != 60*time.Hour {
		t.Fatalf("unexpected snapshot age: %s", got)
	}

	globaltime.SetMockTime(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	if got := snap.Age(); got != 0 {
		t.Fatalf("snapshot built now should have zero age, got %s", got)
	}

	var nilSnap *Snapshot
	if nilSnap.Age() != 0 {
		t.Fatalf("nil snapshot should have zero age")
	}
}

func TestSnapshot_NilReceiver(t *testing.T) {
	t.Parallel()

	var snap *Snapshot
	if snap.IDF("x") != 0 || snap.ProvenanceScore("x") != 0 || snap.TermCount() != 0 {
		t.Fatalf("nil snapshot should be inert")
	}
}
