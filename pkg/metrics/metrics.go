package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Content store metrics
	ObjectsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vexd_cas_objects_total",
			Help: "Total number of objects in the content store by kind",
		},
		[]string{"kind"},
	)

	BytesStored = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vexd_cas_bytes_stored",
			Help: "Total bytes stored by kind and location",
		},
		[]string{"kind", "location"},
	)

	PutDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vexd_cas_put_duration_seconds",
			Help:    "Time taken to store a CAS object",
			Buckets: prometheus.DefBuckets,
		},
	)

	StatCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vexd_stat_cache_hits_total",
			Help: "Total number of stat-cache hits during snapshot",
		},
	)

	StatCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vexd_stat_cache_misses_total",
			Help: "Total number of stat-cache misses during snapshot",
		},
	)

	// World-state / history metrics
	SnapshotDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vexd_snapshot_duration_seconds",
			Help:    "Time taken to snapshot a directory into a state",
			Buckets: prometheus.DefBuckets,
		},
	)

	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexd_transitions_total",
			Help: "Total number of transitions by resulting status",
		},
		[]string{"status"},
	)

	StaleAcceptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vexd_stale_accepts_total",
			Help: "Total number of accepts downgraded to rejected due to a moved lane head",
		},
	)

	LaneHeadAdvances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexd_lane_head_advances_total",
			Help: "Total number of times a lane head advanced",
		},
		[]string{"lane"},
	)

	// Workspace metrics
	WorkspaceLockWaits = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vexd_workspace_lock_acquire_seconds",
			Help:    "Time spent acquiring a workspace lock, including stale-lock reclaim",
			Buckets: prometheus.DefBuckets,
		},
	)

	StaleLocksReclaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vexd_stale_locks_reclaimed_total",
			Help: "Total number of stale workspace locks reclaimed",
		},
	)

	DirtyMarkersRecovered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vexd_dirty_markers_recovered_total",
			Help: "Total number of crash-left dirty markers recovered by the doctor sweep",
		},
	)

	// Promote metrics
	PromotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexd_promotes_total",
			Help: "Total number of promote attempts by outcome",
		},
		[]string{"outcome"}, // accepted, conflicts, fast_path
	)

	PromoteConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vexd_promote_conflicts_total",
			Help: "Total number of conflicting paths detected across all promotes",
		},
	)

	// GC metrics
	GCDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vexd_gc_duration_seconds",
			Help:    "Time taken for a garbage collection pass",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	GCObjectsReclaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vexd_gc_objects_reclaimed_total",
			Help: "Total number of CAS objects reclaimed by GC",
		},
	)

	GCBytesReclaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vexd_gc_bytes_reclaimed_total",
			Help: "Total number of bytes reclaimed by GC",
		},
	)

	// Budget metrics
	BudgetUsagePct = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vexd_budget_usage_pct",
			Help: "Budget usage percentage by lane and limit kind",
		},
		[]string{"lane", "limit"},
	)

	BudgetExceededTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexd_budget_exceeded_total",
			Help: "Total number of proposals rejected for exceeding budget",
		},
		[]string{"lane", "limit"},
	)

	// Evaluator metrics
	EvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vexd_evaluation_duration_seconds",
			Help:    "Time taken for an evaluator subprocess to return a verdict",
			Buckets: prometheus.DefBuckets,
		},
	)

	EvaluationTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vexd_evaluation_timeouts_total",
			Help: "Total number of evaluator runs that exceeded their timeout",
		},
	)
)

func init() {
	prometheus.MustRegister(ObjectsTotal)
	prometheus.MustRegister(BytesStored)
	prometheus.MustRegister(PutDuration)
	prometheus.MustRegister(StatCacheHits)
	prometheus.MustRegister(StatCacheMisses)

	prometheus.MustRegister(SnapshotDuration)
	prometheus.MustRegister(TransitionsTotal)
	prometheus.MustRegister(StaleAcceptsTotal)
	prometheus.MustRegister(LaneHeadAdvances)

	prometheus.MustRegister(WorkspaceLockWaits)
	prometheus.MustRegister(StaleLocksReclaimed)
	prometheus.MustRegister(DirtyMarkersRecovered)

	prometheus.MustRegister(PromotesTotal)
	prometheus.MustRegister(PromoteConflictsTotal)

	prometheus.MustRegister(GCDuration)
	prometheus.MustRegister(GCObjectsReclaimed)
	prometheus.MustRegister(GCBytesReclaimed)

	prometheus.MustRegister(BudgetUsagePct)
	prometheus.MustRegister(BudgetExceededTotal)

	prometheus.MustRegister(EvaluationDuration)
	prometheus.MustRegister(EvaluationTimeouts)
}

// Handler returns the Prometheus scrape handler. Wiring it into an HTTP
// mux is left to the server host (out of scope here, see spec.md §1).
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
