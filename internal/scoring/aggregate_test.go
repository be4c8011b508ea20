package scoring

import (
	"math"
	"testing"
)

func TestGradeFor_BoundaryExact(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score int
		want  string
	}{
		{100, GradeA},
		{80, GradeA},
		{79, GradeB},
		{65, GradeB},
		{64, GradeC},
		{50, GradeC},
		{49, GradeD},
		{35, GradeD},
		{34, GradeF},
		{0, GradeF},
	}
	for _, tc := range cases {
		if got := GradeFor(tc.score); got != tc.want {
			t.Fatalf("GradeFor(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestAggregate_WeightedMean(t *testing.T) {
	t.Parallel()

	dims := []DimensionScore{
		{Name: "a", Weight: 1.0, Raw: 100},
		{Name: "b", Weight: 1.0, Raw: 50},
	}
	score, grade := Aggregate(dims)
	if score != 75 {
		t.Fatalf("expected 75, got %d", score)
	}
	if grade != GradeB {
		t.Fatalf("expected grade B, got %q", grade)
	}
}

func TestAggregate_ClampsRawValues(t *testing.T) {
	t.Parallel()

	score, _ := Aggregate([]DimensionScore{{Name: "a", Weight: 1.0, Raw: 250}})
	if score != 100 {
		t.Fatalf("raw values above 100 must clamp, got %d", score)
	}

	score, grade := Aggregate([]DimensionScore{{Name: "a", Weight: 1.0, Raw: -40}})
	if score != 0 || grade != GradeF {
		t.Fatalf("raw values below 0 must clamp, got %d %q", score, grade)
	}
}

func TestAggregate_EmptyDimensions(t *testing.T) {
	t.Parallel()

	score, grade := Aggregate(nil)
	if score != 0 || grade != GradeF {
		t.Fatalf("expected 0/F for empty input, got %d %q", score, grade)
	}
}

func TestAggregate_AlwaysInRange(t *testing.T) {
	t.Parallel()

	for raw := -50.0; raw <= 150; raw += 10 {
		dims := make([]DimensionScore, 0, len(dimensionWeights))
		for name, w := range dimensionWeights {
			dims = append(dims, DimensionScore{Name: name, Weight: w, Raw: raw})
		}
		score, _ := Aggregate(dims)
		if score < 0 || score > 100 {
			t.Fatalf("score out of range for raw=%f: %d", raw, score)
		}
	}
}

func TestTotalWeight(t *testing.T) {
	t.Parallel()

	if got := TotalWeight(); math.Abs(got-9.7) > 1e-9 {
		t.Fatalf("unexpected total weight: %f", got)
	}
}
