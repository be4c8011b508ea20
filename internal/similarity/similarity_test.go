package similarity

import (
	"math"
	"testing"
	"time"

	"skywatch.earth/skywatch/internal/corpus"
	"skywatch.earth/skywatch/internal/db"
	"skywatch.earth/skywatch/internal/normalize"
)

func testSnapshot() *corpus.Snapshot {
	termDF := map[string]int64{
		"light": 900,
		"sky":   800,
		"night": 700,
	}
	return corpus.NewStatic(1000, termDF, nil, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
}

func normalizedReport(id int64, r db.Report) normalize.Normalized {
	r.ReportID = id
	return normalize.Report(&r)
}

func TestSignalWeightsSumToOne(t *testing.T) {
	t.Parallel()

	total := WeightTitle + WeightLocation + WeightDate + WeightContent
	if math.Abs(total-1.0) > 1e-12 {
		t.Fatalf("signal weights must sum to 1.0, got %f", total)
	}
}

func TestCompare_ConfidenceInRange(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	a := normalizedReport(1, db.Report{
		Title:              "Bright light over Lake Tahoe",
		Description:        "a triangular chevron drifted over the ridge",
		EventDate:          &date,
		EventDatePrecision: "exact",
		City:               "South Lake Tahoe",
		State:              "California",
		Country:            "USA",
	})
	b := normalizedReport(2, db.Report{
		Title:              "Bright lights above Lake Tahoe",
		Description:        "a triangular chevron drifted across the ridge",
		EventDate:          &date,
		EventDatePrecision: "exact",
		City:               "South Lake Tahoe",
		State:              "California",
		Country:            "USA",
	})

	c := Compare(a, b, testSnapshot())
	if c.Confidence < 0 || c.Confidence > 1 {
		t.Fatalf("confidence out of range: %f", c.Confidence)
	}
	if c.Confidence < ConfidenceThreshold {
		t.Fatalf("near-identical reports should clear the threshold, got %f", c.Confidence)
	}
	if c.LocationScore != 1 {
		t.Fatalf("matching location key should score 1, got %f", c.LocationScore)
	}
	if c.DateScore != 1 {
		t.Fatalf("same-day events should score 1, got %f", c.DateScore)
	}
}

func TestCompare_DistantUnrelatedPairStaysUnderThreshold(t *testing.T) {
	t.Parallel()

	d1 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 6, 22, 0, 0, 0, 0, time.UTC)
	lat1, lng1 := 39.0968, -120.0324
	lat2, lng2 := 36.1627, -115.1391 // ~350 km away

	a := normalizedReport(1, db.Report{
		Title:              "Slow orange orb drifting east",
		Description:        "orange orb drifting slowly east for ten minutes",
		EventDate:          &d1,
		EventDatePrecision: "exact",
		Latitude:           &lat1,
		Longitude:          &lng1,
		City:               "South Lake Tahoe",
		Country:            "USA",
	})
	b := normalizedReport(2, db.Report{
		Title:              "Fast white streak at dawn",
		Description:        "white streak crossed the horizon in seconds",
		EventDate:          &d2,
		EventDatePrecision: "exact",
		Latitude:           &lat2,
		Longitude:          &lng2,
		City:               "Las Vegas",
		Country:            "USA",
	})

	c := Compare(a, b, testSnapshot())
	if c.LocationScore != 0 {
		t.Fatalf("pairs more than 50 km apart should score 0 on location, got %f", c.LocationScore)
	}
	if c.DateScore != 0 {
		t.Fatalf("different years/months should score 0 on date, got %f", c.DateScore)
	}
	if c.ContentScore != 0 {
		t.Fatalf("no shared rare terms should score 0 on content, got %f", c.ContentScore)
	}
	if c.Confidence >= ConfidenceThreshold {
		t.Fatalf("unrelated pair must never reach the threshold, got %f", c.Confidence)
	}
}

func TestLocationMatch_HaversineDecay(t *testing.T) {
	t.Parallel()

	lat1, lng1 := 39.0968, -120.0324
	lat2, lng2 := 39.2500, -120.0324 // ~17 km north

	a := normalizedReport(1, db.Report{Title: "a", Latitude: &lat1, Longitude: &lng1})
	b := normalizedReport(2, db.Report{Title: "b", Latitude: &lat2, Longitude: &lng2})

	score := locationMatch(a, b)
	if score <= 0 || score >= 1 {
		t.Fatalf("nearby coordinates should decay into (0,1), got %f", score)
	}
}

func TestLocationMatch_CountryOnlyIsNotExact(t *testing.T) {
	t.Parallel()

	a := normalizedReport(1, db.Report{Title: "a", Country: "USA"})
	b := normalizedReport(2, db.Report{Title: "b", Country: "USA"})
	if a.LocationKey != b.LocationKey {
		t.Fatalf("country-only keys should collide: %q vs %q", a.LocationKey, b.LocationKey)
	}
	if got := locationMatch(a, b); got != 0 {
		t.Fatalf("a shared country alone must not count as co-location, got %f", got)
	}

	lat1, lng1 := 39.0968, -120.0324
	lat2, lng2 := 39.1200, -120.0324 // ~3 km apart
	a = normalizedReport(1, db.Report{Title: "a", Country: "USA", Latitude: &lat1, Longitude: &lng1})
	b = normalizedReport(2, db.Report{Title: "b", Country: "USA", Latitude: &lat2, Longitude: &lng2})
	if got := locationMatch(a, b); got <= 0 || got >= 1 {
		t.Fatalf("country-only pairs with coordinates should use haversine decay, got %f", got)
	}

	a = normalizedReport(1, db.Report{Title: "a", City: "Reno", Country: "USA"})
	b = normalizedReport(2, db.Report{Title: "b", City: "Reno", Country: "USA"})
	if got := locationMatch(a, b); got != 1 {
		t.Fatalf("matching city keys should still score 1, got %f", got)
	}
}

func TestLocationMatch_MissingCoordinates(t *testing.T) {
	t.Parallel()

	lat, lng := 39.0968, -120.0324
	a := normalizedReport(1, db.Report{Title: "a", Latitude: &lat, Longitude: &lng})
	b := normalizedReport(2, db.Report{Title: "b", City: "Reno"})

	if got := locationMatch(a, b); got != 0 {
		t.Fatalf("one-sided coordinates should score 0, got %f", got)
	}
}

func TestDateProximity_Ladder(t *testing.T) {
	t.Parallel()

	mk := func(y int, m time.Month, d int) normalize.Normalized {
		date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return normalizedReport(1, db.Report{Title: "x", EventDate: &date, EventDatePrecision: "exact"})
	}

	base := mk(2026, 4, 15)
	if got := dateProximity(base, mk(2026, 4, 15)); got != 1 {
		t.Fatalf("same date should score 1, got %f", got)
	}
	if got := dateProximity(base, mk(2026, 4, 28)); got != 0.7 {
		t.Fatalf("same month should score 0.7, got %f", got)
	}
	if got := dateProximity(base, mk(2026, 9, 1)); got != 0.3 {
		t.Fatalf("same year should score 0.3, got %f", got)
	}
	if got := dateProximity(base, mk(2025, 4, 15)); got != 0 {
		t.Fatalf("different year should score 0, got %f", got)
	}

	unknown := normalizedReport(2, db.Report{Title: "x"})
	if got := dateProximity(base, unknown); got != 0 {
		t.Fatalf("unknown date should score 0, got %f", got)
	}
}

func TestContentOverlap_RareTermIntersection(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	a := normalizedReport(1, db.Report{Title: "a", Description: "triangular chevron over the ridge at night"})
	b := normalizedReport(2, db.Report{Title: "b", Description: "triangular chevron near the summit at night"})

	score := contentOverlap(a, b, snap)
	if score <= 0 || score > 1 {
		t.Fatalf("expected partial rare-term overlap in (0,1], got %f", score)
	}

	c := normalizedReport(3, db.Report{Title: "c", Description: "light sky night"})
	if got := contentOverlap(a, c, snap); got != 0 {
		t.Fatalf("no shared rare terms should score 0, got %f", got)
	}
}

func TestHaversineKM_KnownDistance(t *testing.T) {
	t.Parallel()

	// Lake Tahoe to Las Vegas, roughly 560 km.
	km := haversineKM(39.0968, -120.0324, 36.1627, -115.1391)
	if km < 500 || km > 620 {
		t.Fatalf("unexpected haversine distance: %f km", km)
	}

	if zero := haversineKM(10, 20, 10, 20); zero != 0 {
		t.Fatalf("identical coordinates should be 0 km apart, got %f", zero)
	}
}
