package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "empire"

// Outcome labels for processed jobs.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Result labels for modifier cache lookups.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	// Registry is nil until InitRegistry is called; every recorder is a no-op before that.
	Registry *prometheus.Registry

	mu     sync.RWMutex
	global *Collector
)

// Collector holds the job queue, worker and cache metrics.
type Collector struct {
	jobsEnqueued   *prometheus.CounterVec
	jobsProcessed  *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	workersRunning *prometheus.GaugeVec
	jobsReaped     prometheus.Counter
	cacheRequests  *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		jobsEnqueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_enqueued_total",
				Help:      "Jobs inserted into the queue by type",
			},
			[]string{"type"},
		),
		jobsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_processed_total",
				Help:      "Jobs processed by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Time spent processing a claimed job",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"type"},
		),
		workersRunning: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "workers_running",
				Help:      "Workers currently polling the queue by type",
			},
			[]string{"type"},
		),
		jobsReaped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_reaped_total",
				Help:      "Stale in-progress jobs returned to pending",
			},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "modifier_cache_requests_total",
				Help:      "Modifier cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.jobsEnqueued,
		c.jobsProcessed,
		c.jobDuration,
		c.workersRunning,
		c.jobsReaped,
		c.cacheRequests,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// InitRegistry creates the registry and installs the global collector.
// Should be called once at startup when metrics are enabled.
func InitRegistry() (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := NewCollector()
	if err := c.Register(reg); err != nil {
		return nil, err
	}

	mu.Lock()
	Registry = reg
	global = c
	mu.Unlock()
	return reg, nil
}

func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return global != nil
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	mu.RLock()
	reg := Registry
	mu.RUnlock()
	if reg == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func collector() *Collector {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func RecordJobEnqueued(jobType string) {
	if c := collector(); c != nil {
		c.jobsEnqueued.WithLabelValues(jobType).Inc()
	}
}

func RecordJobProcessed(jobType, outcome string, d time.Duration) {
	if c := collector(); c != nil {
		c.jobsProcessed.WithLabelValues(jobType, outcome).Inc()
		c.jobDuration.WithLabelValues(jobType).Observe(d.Seconds())
	}
}

func WorkerStarted(jobType string) {
	if c := collector(); c != nil {
		c.workersRunning.WithLabelValues(jobType).Inc()
	}
}

func WorkerStopped(jobType string) {
	if c := collector(); c != nil {
		c.workersRunning.WithLabelValues(jobType).Dec()
	}
}

func RecordJobsReaped(n int64) {
	if c := collector(); c != nil && n > 0 {
		c.jobsReaped.Add(float64(n))
	}
}

func RecordCacheRequest(result string) {
	if c := collector(); c != nil {
		c.cacheRequests.WithLabelValues(result).Inc()
	}
}
