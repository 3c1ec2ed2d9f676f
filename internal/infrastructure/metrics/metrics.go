package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Settlement metrics
	SettlementCalculations *prometheus.CounterVec
	SettlementTransfers    prometheus.Histogram
	SettlementDuration     prometheus.Histogram
	SettlementErrors       *prometheus.CounterVec
	SettlementTransitions  *prometheus.CounterVec
	SettlementLockBusy     prometheus.Counter
	LockReleaseFailures    prometheus.Counter

	// Transaction metrics
	TransactionsRecorded *prometheus.CounterVec
	TransactionAmount    prometheus.Histogram

	// API metrics
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	HTTPRequestsActive prometheus.Gauge

	// Cache metrics
	CacheRequests *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Audit metrics
	AuditEntriesCreated *prometheus.CounterVec

	// Event metrics
	EventsPublished    *prometheus.CounterVec
	EventPublishErrors *prometheus.CounterVec
}

// New creates all Prometheus metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		// Settlement metrics
		SettlementCalculations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokersettle_settlement_calculations_total",
				Help: "Settlement calculations by outcome",
			},
			[]string{"status"},
		),
		SettlementTransfers: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pokersettle_settlement_transfers",
			Help:    "Number of transfers produced per calculation",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		SettlementDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pokersettle_settlement_duration_seconds",
			Help:    "Duration of settlement calculations",
			Buckets: prometheus.DefBuckets,
		}),
		SettlementErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokersettle_settlement_errors_total",
				Help: "Settlement calculation failures by error kind",
			},
			[]string{"kind"},
		),
		SettlementTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokersettle_settlement_transitions_total",
				Help: "Settlement status transitions",
			},
			[]string{"status"},
		),
		SettlementLockBusy: f.NewCounter(prometheus.CounterOpts{
			Name: "pokersettle_settlement_lock_busy_total",
			Help: "Settlement calculations rejected because the game lock was held",
		}),
		LockReleaseFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "pokersettle_settlement_lock_release_failures_total",
			Help: "Settlement locks that could not be released",
		}),

		// Transaction metrics
		TransactionsRecorded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokersettle_transactions_recorded_total",
				Help: "Buy-ins and cash-outs recorded",
			},
			[]string{"type"},
		),
		TransactionAmount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pokersettle_transaction_amount",
			Help:    "Transaction amounts",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 500, 1000, 10000},
		}),

		// API metrics
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokersettle_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pokersettle_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "pokersettle_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		// Cache metrics
		CacheRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokersettle_cache_requests_total",
				Help: "Settlement cache lookups by result",
			},
			[]string{"result"},
		),

		// Rate limiting metrics
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokersettle_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),

		// Audit metrics
		AuditEntriesCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokersettle_audit_entries_total",
				Help: "Audit entries written",
			},
			[]string{"table", "action"},
		),

		// Event metrics
		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokersettle_events_published_total",
				Help: "Outbox events published",
			},
			[]string{"event_type"},
		),
		EventPublishErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokersettle_event_publish_errors_total",
				Help: "Outbox events that failed to publish",
			},
			[]string{"event_type"},
		),
	}
}
