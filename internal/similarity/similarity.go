package similarity

import (
	"math"

	"skywatch.earth/skywatch/internal/corpus"
	"skywatch.earth/skywatch/internal/normalize"
)

// Signal weights. They sum to 1.0, so the aggregate confidence is always in
// [0,1] without further normalization.
const (
	WeightTitle    = 0.40
	WeightLocation = 0.25
	WeightDate     = 0.20
	WeightContent  = 0.15
)

// ConfidenceThreshold is the minimum aggregate confidence required to persist
// a duplicate candidate. Below-threshold pairs are discarded, not stored.
const ConfidenceThreshold = 0.75

// maxLocationKM bounds the haversine decay: beyond this distance the location
// signal is 0.
const maxLocationKM = 50.0

const earthRadiusKM = 6371.0

// Comparison is the per-signal breakdown and aggregate confidence for one
// report pair.
type Comparison struct {
	TitleScore    float64 `json:"title_score"`
	LocationScore float64 `json:"location_score"`
	DateScore     float64 `json:"date_score"`
	ContentScore  float64 `json:"content_score"`
	Confidence    float64 `json:"confidence"`
}

// Compare computes the four weighted similarity signals between two normalized
// reports. Pure given the pinned corpus snapshot.
func Compare(a, b normalize.Normalized, snap *corpus.Snapshot) Comparison {
	c := Comparison{
		TitleScore:    titleSimilarity(a, b),
		LocationScore: locationMatch(a, b),
		DateScore:     dateProximity(a, b),
		ContentScore:  contentOverlap(a, b, snap),
	}
	c.Confidence = WeightTitle*c.TitleScore +
		WeightLocation*c.LocationScore +
		WeightDate*c.DateScore +
		WeightContent*c.ContentScore
	return c
}

// titleSimilarity is the Jaccard overlap of the title trigram sets.
func titleSimilarity(a, b normalize.Normalized) float64 {
	if len(a.TitleTrigrams) == 0 || len(b.TitleTrigrams) == 0 {
		return 0
	}

	intersection := 0
	for tri := range a.TitleTrigrams {
		if _, ok := b.TitleTrigrams[tri]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(a.TitleTrigrams) + len(b.TitleTrigrams) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// locationMatch is 1.0 on an exact city/state/country match, otherwise a
// distance-decayed score from the haversine distance. The exact-match branch
// requires a city: with only a country on both sides the keys collide at
// country granularity, which says nothing about co-location. Missing
// coordinates on either side yield 0.
func locationMatch(a, b normalize.Normalized) float64 {
	if a.City != "" && a.LocationKey != "" && a.LocationKey == b.LocationKey {
		return 1
	}
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return 0
	}

	km := haversineKM(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
	if km >= maxLocationKM {
		return 0
	}
	return 1 - km/maxLocationKM
}

// dateProximity ladders calendar closeness: same date 1.0, same month 0.7,
// same year 0.3, otherwise 0. An unknown date on either side yields 0.
func dateProximity(a, b normalize.Normalized) float64 {
	if a.EventDate == nil || b.EventDate == nil {
		return 0
	}

	ay, am, ad := a.EventDate.Date()
	by, bm, bd := b.EventDate.Date()
	switch {
	case ay == by && am == bm && ad == bd:
		return 1
	case ay == by && am == bm:
		return 0.7
	case ay == by:
		return 0.3
	default:
		return 0
	}
}

// contentOverlap is the normalized overlap of rare (high-IDF) description
// tokens, using the same corpus snapshot as Content Originality.
func contentOverlap(a, b normalize.Normalized, snap *corpus.Snapshot) float64 {
	rareA := snap.RareTerms(a.Tokens)
	rareB := snap.RareTerms(b.Tokens)
	if len(rareA) == 0 || len(rareB) == 0 {
		return 0
	}

	intersection := 0
	for t := range rareA {
		if _, ok := rareB[t]; ok {
			intersection++
		}
	}
	smaller := len(rareA)
	if len(rareB) < smaller {
		smaller = len(rareB)
	}
	return float64(intersection) / float64(smaller)
}

// haversineKM is the great-circle distance between two coordinates.
func haversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}
