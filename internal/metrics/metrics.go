package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	SearchesTotal            *prometheus.CounterVec
	SearchDuration           *prometheus.HistogramVec
	IncompleteResultsTotal   *prometheus.CounterVec
	QuotaDeniedTotal         prometheus.Counter
	UsageCommitFailuresTotal *prometheus.CounterVec

	UpstreamPagesTotal    *prometheus.CounterVec
	UpstreamPageDuration  prometheus.Histogram
	UpstreamDegradedTotal *prometheus.CounterVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	RateLimitHitsTotal *prometheus.CounterVec
}

// New регистрирует метрики в reg. В тестах передаем prometheus.NewRegistry(),
// иначе повторная регистрация паникует.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetscr_requests_total",
				Help: "Total number of transport requests processed",
			},
			[]string{"transport", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetscr_request_duration_seconds",
				Help:    "Transport request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"transport"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "fetscr_requests_in_flight",
				Help: "Number of searches currently being processed",
			},
		),

		SearchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetscr_searches_total",
				Help: "Total number of search invocations",
			},
			[]string{"mode", "status"},
		),
		SearchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetscr_search_duration_seconds",
				Help:    "End-to-end search duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),
		IncompleteResultsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetscr_incomplete_results_total",
				Help: "Searches that returned fewer results than the plan allows",
			},
			[]string{"mode"},
		),
		QuotaDeniedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "fetscr_quota_denied_total",
				Help: "Searches rejected because the account quota is exhausted",
			},
		),
		UsageCommitFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetscr_usage_commit_failures_total",
				Help: "Failures while recording usage",
			},
			[]string{"kind"},
		),

		UpstreamPagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetscr_upstream_pages_total",
				Help: "Total number of upstream page fetches",
			},
			[]string{"status"},
		),
		UpstreamPageDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fetscr_upstream_page_duration_seconds",
				Help:    "Upstream page fetch duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		UpstreamDegradedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetscr_upstream_degraded_total",
				Help: "Upstream pages replaced with an empty page",
			},
			[]string{"reason"},
		),

		CacheHitsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "fetscr_page_cache_hits_total",
				Help: "Total number of page cache hits",
			},
		),
		CacheMissesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "fetscr_page_cache_misses_total",
				Help: "Total number of page cache misses",
			},
		),

		RateLimitHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetscr_rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"transport"},
		),
	}

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor - для кастомного registry
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(transport, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(transport, status).Inc()
	m.RequestDuration.WithLabelValues(transport).Observe(duration.Seconds())
}

func (m *Metrics) RecordSearch(mode, status string, duration time.Duration) {
	m.SearchesTotal.WithLabelValues(mode, status).Inc()
	m.SearchDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func (m *Metrics) RecordIncomplete(mode string) {
	m.IncompleteResultsTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) RecordQuotaDenied() {
	m.QuotaDeniedTotal.Inc()
}

func (m *Metrics) RecordCommitFailure(kind string) {
	m.UsageCommitFailuresTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordUpstreamPage(status string, duration time.Duration) {
	m.UpstreamPagesTotal.WithLabelValues(status).Inc()
	m.UpstreamPageDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordDegraded(reason string) {
	m.UpstreamDegradedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) RecordRateLimitHit(transport string) {
	m.RateLimitHitsTotal.WithLabelValues(transport).Inc()
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}
