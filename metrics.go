package geotrie

import "time"

// Collector is the observability seam the shard manager and facade report
// through. geotrie's core never imports a metrics backend directly — it
// only calls through this interface — the same split
// hupe1980-vecgo/examples/observability draws between its own
// MetricsObserver interface and a Prometheus-specific adapter. The
// geotrie/metrics sub-package provides a Prometheus-backed Collector; the
// default is NoopCollector.
type Collector interface {
	CacheHit()
	CacheMiss()
	FetchDuration(d time.Duration, ok bool)
	DecodeFailure()
	LookupServed(status string, results int)
}

// NoopCollector discards every metric. It is the default Collector so that
// core code and its tests never need a metrics backend configured.
type NoopCollector struct{}

func (NoopCollector) CacheHit()                            {}
func (NoopCollector) CacheMiss()                            {}
func (NoopCollector) FetchDuration(d time.Duration, ok bool) {}
func (NoopCollector) DecodeFailure()                        {}
func (NoopCollector) LookupServed(status string, results int) {}
