package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Term is the current durable Raft term.
	Term = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raftline_term",
			Help: "Current durable Raft term",
		},
	)

	// VolatileTerm is the current in-memory (possibly not yet
	// durable) Raft term.
	VolatileTerm = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raftline_volatile_term",
			Help: "Current in-memory Raft term, which may not yet be durable",
		},
	)

	// IsLeader is 1 when this node currently believes it is leader.
	IsLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raftline_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = not)",
		},
	)

	// ClusterSize is the registered replica-set size: the number of
	// registered peers, floored at 1.
	ClusterSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raftline_cluster_size",
			Help: "Number of registered replica-set peers, floored at 1",
		},
	)

	// HealthyQuorumSize is the number of healthy members (self included)
	// required for a healthy quorum at the current cluster size.
	HealthyQuorumSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raftline_healthy_quorum_size",
			Help: "Number of healthy members required for quorum",
		},
	)

	// FencingPaused is 1 while the bootstrap fencing-paused latch is set.
	FencingPaused = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raftline_fencing_paused",
			Help: "Whether the fencing_paused bootstrap latch is currently set",
		},
	)

	// FencingEventsTotal counts every time the leader actually fenced
	// (resigned due to quorum loss).
	FencingEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raftline_fencing_events_total",
			Help: "Total number of times this node fenced itself on quorum loss",
		},
	)

	// BroadcastsTotal counts outbound Raft message broadcasts.
	BroadcastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raftline_broadcasts_total",
			Help: "Total number of outbound Raft message broadcasts",
		},
	)

	// RelayPushesTotal counts per-peer relay pushes.
	RelayPushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raftline_relay_pushes_total",
			Help: "Total number of Raft requests handed to a peer's relay",
		},
		[]string{"peer"},
	)

	// AsyncWorkerIterationsTotal counts async worker loop iterations.
	AsyncWorkerIterationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raftline_async_worker_iterations_total",
			Help: "Total number of async worker loop iterations",
		},
	)

	// DurableWriteDuration measures journal commit latency.
	DurableWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raftline_durable_write_duration_seconds",
			Help:    "Latency of a durable Raft message write to the journal",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PromoteQSyncDuration measures how long leader post-promotion
	// limbo cleanup takes, including quorum-wait retries.
	PromoteQSyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raftline_promote_qsync_duration_seconds",
			Help:    "Latency of clearing the limbo after a leader promotion",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(Term)
	prometheus.MustRegister(VolatileTerm)
	prometheus.MustRegister(IsLeader)
	prometheus.MustRegister(ClusterSize)
	prometheus.MustRegister(HealthyQuorumSize)
	prometheus.MustRegister(FencingPaused)
	prometheus.MustRegister(FencingEventsTotal)
	prometheus.MustRegister(BroadcastsTotal)
	prometheus.MustRegister(RelayPushesTotal)
	prometheus.MustRegister(AsyncWorkerIterationsTotal)
	prometheus.MustRegister(DurableWriteDuration)
	prometheus.MustRegister(PromoteQSyncDuration)
}

// Handler returns the Prometheus HTTP handler.
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
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
