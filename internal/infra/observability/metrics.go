package observability

import (
	"time"

	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Quote kinds used as the "kind" label.
const (
	QuoteKindOTD      = "otd"
	QuoteKindDecision = "decision"
	QuoteKindCompare  = "compare"
	QuoteKindLoan     = "loan"
)

// Tax table load outcomes used as the "outcome" label.
const (
	LoadSuccess       = "success"
	LoadCacheFallback = "cache_fallback"
	LoadFailure       = "failure"
)

var (
	quoteKinds = []string{QuoteKindOTD, QuoteKindDecision, QuoteKindCompare, QuoteKindLoan}
	matchTiers = []domain.MatchTier{domain.MatchChicago, domain.MatchZIP, domain.MatchPrefix, domain.MatchDefault}
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	quoteDuration  *prometheus.HistogramVec
	quotesTotal    *prometheus.CounterVec
	verdicts       *prometheus.CounterVec
	taxLookups     *prometheus.CounterVec
	taxLoads       *prometheus.CounterVec
	taxTableSize   *prometheus.GaugeVec
	externalErrors *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		quoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "otd_quote_duration_seconds",
				Help:    "Duration of quote computations by operation.",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"operation"},
		),
		quotesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otd_quotes_total",
				Help: "Total quotes computed by kind.",
			},
			[]string{"kind"},
		),
		verdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otd_decision_verdicts_total",
				Help: "Financing decisions by verdict.",
			},
			[]string{"verdict"},
		),
		taxLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otd_tax_lookups_total",
				Help: "Tax rate lookups by matching strategy.",
			},
			[]string{"match"},
		),
		taxLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otd_tax_table_loads_total",
				Help: "Tax table load attempts by outcome.",
			},
			[]string{"outcome"},
		),
		taxTableSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "otd_tax_table_entries",
				Help: "Entries in the active tax table.",
			},
			[]string{"set"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otd_external_errors_total",
				Help: "Total errors from external sources.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otd_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otd_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordQuoteDuration records the duration of an operation.
func (m *Metrics) RecordQuoteDuration(operation string, d time.Duration) {
	m.quoteDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrQuote increments the quote counter for kind.
func (m *Metrics) IncrQuote(kind string) {
	m.quotesTotal.WithLabelValues(kind).Inc()
}

// IncrVerdict counts a financing decision.
func (m *Metrics) IncrVerdict(v domain.Verdict) {
	m.verdicts.WithLabelValues(string(v)).Inc()
}

// IncrTaxLookup counts a resolved ZIP by matching strategy.
func (m *Metrics) IncrTaxLookup(match domain.MatchTier) {
	m.taxLookups.WithLabelValues(string(match)).Inc()
}

// IncrTaxLoad counts a tax table load attempt.
func (m *Metrics) IncrTaxLoad(outcome string) {
	m.taxLoads.WithLabelValues(outcome).Inc()
}

// SetTaxTableSize publishes the active table's size.
func (m *Metrics) SetTaxTableSize(chicago, mapped, counties int) {
	m.taxTableSize.WithLabelValues("chicago_zips").Set(float64(chicago))
	m.taxTableSize.WithLabelValues("mapped_zips").Set(float64(mapped))
	m.taxTableSize.WithLabelValues("counties").Set(float64(counties))
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetEngineSnapshot returns a snapshot of engine metrics suitable for the
// GET /v1/metrics/engine endpoint.
func (m *Metrics) GetEngineSnapshot() *domain.EngineMetrics {
	var quotes, lookups float64
	for _, k := range quoteKinds {
		quotes += getCounterValue(m.quotesTotal, k)
	}
	for _, t := range matchTiers {
		lookups += getCounterValue(m.taxLookups, string(t))
	}
	estimates := getCounterValue(m.taxLookups, string(domain.MatchDefault))
	hits := getCounterValue(m.cacheHits, "taxdoc")
	misses := getCounterValue(m.cacheMisses, "taxdoc")

	estimateRate := float64(0)
	cacheHitRate := float64(0)
	if lookups > 0 {
		estimateRate = estimates / lookups
	}
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.EngineMetrics{
		TotalQuotes:   int64(quotes),
		TaxLookups:    int64(lookups),
		EstimateRate:  estimateRate,
		CacheHitRate:  cacheHitRate,
		TaxLoadErrors: int64(getCounterValue(m.taxLoads, LoadFailure)),
		Period:        "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
