package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportsScoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skywatch",
		Subsystem: "pipeline",
		Name:      "reports_scored_total",
		Help:      "Reports successfully scored across all runs.",
	})
	scoringFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skywatch",
		Subsystem: "pipeline",
		Name:      "scoring_failures_total",
		Help:      "Per-report scoring failures. Failures never abort a run.",
	})
	candidatesUpsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skywatch",
		Subsystem: "pipeline",
		Name:      "duplicate_candidates_created_total",
		Help:      "New duplicate candidate rows created by dedup sweeps.",
	})
)
