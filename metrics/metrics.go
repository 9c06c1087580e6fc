// Package metrics provides a Prometheus-backed geotrie.Collector.
//
// Grounded on hupe1980-vecgo/examples/observability/main.go's
// PrometheusObserver: a struct of pre-registered prometheus collectors,
// built by a constructor that calls prometheus.MustRegister once per metric,
// with one method per event the core reports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements geotrie.Collector by recording cache hit/miss
// counters, shard-fetch latency, decode failures, and served-lookup counts
// as Prometheus collectors registered against reg.
type Prometheus struct {
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	fetchLatency *prometheus.HistogramVec
	decodeErrors prometheus.Counter
	lookups      *prometheus.CounterVec
	resultCount  prometheus.Histogram
}

// New builds a Prometheus collector and registers its metrics with reg. Pass
// prometheus.DefaultRegisterer to use the global registry.
func New(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geotrie_shard_cache_hits_total",
			Help: "Shard lookups served from the in-process cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geotrie_shard_cache_misses_total",
			Help: "Shard lookups that required a fetch.",
		}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geotrie_shard_fetch_duration_seconds",
			Help:    "Latency of shard fetch+decode, by outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geotrie_shard_decode_failures_total",
			Help: "Shard decode failures (bad magic, unsupported version, bad format).",
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geotrie_lookups_total",
			Help: "Lookup calls, by result status.",
		}, []string{"status"}),
		resultCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "geotrie_lookup_results",
			Help:    "Number of results returned per ready lookup.",
			Buckets: []float64{0, 1, 5, 10, 20, 40, 80},
		}),
	}

	reg.MustRegister(
		p.cacheHits, p.cacheMisses, p.fetchLatency,
		p.decodeErrors, p.lookups, p.resultCount,
	)
	return p
}

func (p *Prometheus) CacheHit()  { p.cacheHits.Inc() }
func (p *Prometheus) CacheMiss() { p.cacheMisses.Inc() }

func (p *Prometheus) FetchDuration(d time.Duration, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	p.fetchLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

func (p *Prometheus) DecodeFailure() { p.decodeErrors.Inc() }

func (p *Prometheus) LookupServed(status string, results int) {
	p.lookups.WithLabelValues(status).Inc()
	if status == "ready" {
		p.resultCount.Observe(float64(results))
	}
}
