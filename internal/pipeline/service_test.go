package pipeline

import (
	"fmt"
	"testing"
)

func TestCanonicalPair(t *testing.T) {
	t.Parallel()

	a, b := canonicalPair(42, 7)
	if a != 7 || b != 42 {
		t.Fatalf("expected (7,42), got (%d,%d)", a, b)
	}

	a, b = canonicalPair(7, 42)
	if a != 7 || b != 42 {
		t.Fatalf("already-ordered pair must be unchanged, got (%d,%d)", a, b)
	}
}

func TestProgress_RecordReport(t *testing.T) {
	t.Parallel()

	p := &progress{}
	p.recordReport(10, nil, false)
	p.recordReport(5, nil, true)
	p.recordReport(20, fmt.Errorf("boom"), false)

	processed, succeeded, failed, skipped, _, lastID := p.snapshot()
	if processed != 3 || succeeded != 2 || failed != 1 || skipped != 1 {
		t.Fatalf("unexpected counters: processed=%d succeeded=%d failed=%d skipped=%d",
			processed, succeeded, failed, skipped)
	}
	if lastID != 20 {
		t.Fatalf("expected highest report id 20, got %d", lastID)
	}
}

func TestProgress_RecordPair(t *testing.T) {
	t.Parallel()

	p := &progress{}
	p.recordPair(nil, true)
	p.recordPair(nil, false)
	p.recordPair(fmt.Errorf("conflict"), false)

	processed, succeeded, failed, _, candidates, _ := p.snapshot()
	if processed != 3 || succeeded != 2 || failed != 1 || candidates != 1 {
		t.Fatalf("unexpected counters: processed=%d succeeded=%d failed=%d candidates=%d",
			processed, succeeded, failed, candidates)
	}
}

func TestResolveWorkers(t *testing.T) {
	t.Parallel()

	if got := resolveWorkers(0); got != DefaultWorkers {
		t.Fatalf("zero workers should resolve to default, got %d", got)
	}
	if got := resolveWorkers(-3); got != DefaultWorkers {
		t.Fatalf("negative workers should resolve to default, got %d", got)
	}
	if got := resolveWorkers(12); got != 12 {
		t.Fatalf("explicit worker count must be kept, got %d", got)
	}
}
