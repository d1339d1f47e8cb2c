package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tutorial-scraper/internal/models"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorial_scraper_runs_total",
		Help: "Ingestion runs by outcome",
	}, []string{"outcome"}) // outcome=complete|halted|failed

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tutorial_scraper_run_duration_seconds",
		Help:    "Wall-clock duration of ingestion runs",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800},
	})

	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorial_scraper_queries_total",
		Help: "Planned search queries by result",
	}, []string{"result"}) // result=completed|failed|aborted

	quotaUnitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tutorial_scraper_quota_units_total",
		Help: "YouTube Data API quota units consumed",
	})

	lastRunQuotaUnits = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tutorial_scraper_last_run_quota_units",
		Help: "Quota units consumed by the most recent run",
	})

	candidatesExamined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tutorial_scraper_candidates_examined_total",
		Help: "Unique search candidates examined",
	})

	videosExcluded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorial_scraper_videos_excluded_total",
		Help: "Videos dropped by the filter engine by reason",
	}, []string{"reason"}) // reason=short|region

	tutorialsUpserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorial_scraper_tutorials_upserted_total",
		Help: "Tutorial records written by outcome",
	}, []string{"outcome"}) // outcome=inserted|updated

	lastRunHalted = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tutorial_scraper_last_run_halted",
		Help: "1 when the most recent run halted early, by reason",
	}, []string{"reason"})
)

// RecordRun exports the counters of a finished run. err is the error Run returned.
func RecordRun(r models.RunReport, err error) {
	switch {
	case err != nil:
		runsTotal.WithLabelValues("failed").Inc()
	case r.Halted:
		runsTotal.WithLabelValues("halted").Inc()
	default:
		runsTotal.WithLabelValues("complete").Inc()
	}

	runDuration.Observe(r.Duration().Seconds())

	queriesTotal.WithLabelValues("completed").Add(float64(r.QueriesIssued - r.QueriesFailed))
	queriesTotal.WithLabelValues("failed").Add(float64(r.QueriesFailed))
	queriesTotal.WithLabelValues("aborted").Add(float64(r.QueriesAborted))

	quotaUnitsTotal.Add(float64(r.QuotaUnits))
	lastRunQuotaUnits.Set(float64(r.QuotaUnits))
	candidatesExamined.Add(float64(r.CandidatesExamined))

	videosExcluded.WithLabelValues("short").Add(float64(r.ExcludedShort))
	videosExcluded.WithLabelValues("region").Add(float64(r.ExcludedRegion))

	tutorialsUpserted.WithLabelValues("inserted").Add(float64(r.Inserted))
	tutorialsUpserted.WithLabelValues("updated").Add(float64(r.Updated))

	lastRunHalted.Reset()
	if r.Halted {
		lastRunHalted.WithLabelValues(string(r.HaltReason)).Set(1)
	}
}
