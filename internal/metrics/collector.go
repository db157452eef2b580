// Package metrics exposes kernel counters to Prometheus.
//
// The collector reads per-instance state (fastpath counters, service
// registry) at scrape time via const metrics, so nothing here is global
// and tests can register a collector per kernel instance.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"microcosm/internal/fastpath"
	"microcosm/internal/service"
)

const namespace = "microcosm"

var (
	descFastpathSuccess = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "fastpath", "success_total"),
		"Completed fastpath IPC attempts",
		nil, nil,
	)
	descFastpathFailure = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "fastpath", "failure_total"),
		"Rejected fastpath IPC attempts",
		nil, nil,
	)
	descFastpathGate = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "fastpath", "precondition_failures_total"),
		"Rejections per admission gate",
		[]string{"gate"}, nil,
	)
	descFastpathHits = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "fastpath", "cache_hits_total"),
		"Message transfers carried by the per-core ring",
		nil, nil,
	)
	descFastpathFallbacks = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "fastpath", "cache_fallbacks_total"),
		"Message transfers spilled to a region tier or direct copy",
		nil, nil,
	)
	descServicesRegistered = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "services", "registered"),
		"Registered services",
		nil, nil,
	)
	descServicesRunning = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "services", "running"),
		"Services currently running",
		nil, nil,
	)
	descServiceRestarts = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "service", "restarts_total"),
		"Restarts consumed per service",
		[]string{"pid"}, nil,
	)
)

// Collector implements prometheus.Collector over one kernel instance.
// Either source may be nil; its metrics are simply omitted.
type Collector struct {
	stats    *fastpath.Stats
	services *service.Manager
}

// NewCollector returns a collector reading the given sources at scrape time.
func NewCollector(stats *fastpath.Stats, services *service.Manager) *Collector {
	return &Collector{stats: stats, services: services}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	if c.stats != nil {
		ch <- descFastpathSuccess
		ch <- descFastpathFailure
		ch <- descFastpathGate
		ch <- descFastpathHits
		ch <- descFastpathFallbacks
	}
	if c.services != nil {
		ch <- descServicesRegistered
		ch <- descServicesRunning
		ch <- descServiceRestarts
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.stats != nil {
		ch <- prometheus.MustNewConstMetric(
			descFastpathSuccess, prometheus.CounterValue, float64(c.stats.Success()))
		ch <- prometheus.MustNewConstMetric(
			descFastpathFailure, prometheus.CounterValue, float64(c.stats.Failure()))
		for p := fastpath.P1; p < fastpath.PreconditionCount; p++ {
			ch <- prometheus.MustNewConstMetric(
				descFastpathGate, prometheus.CounterValue,
				float64(c.stats.PreconditionFailures(p)), p.String())
		}
		ch <- prometheus.MustNewConstMetric(
			descFastpathHits, prometheus.CounterValue, float64(c.stats.Hits()))
		ch <- prometheus.MustNewConstMetric(
			descFastpathFallbacks, prometheus.CounterValue, float64(c.stats.Fallbacks()))
	}

	if c.services != nil {
		pids := c.services.Services()
		running := 0
		for _, pid := range pids {
			if c.services.IsRunning(pid) {
				running++
			}
			ch <- prometheus.MustNewConstMetric(
				descServiceRestarts, prometheus.CounterValue,
				float64(c.services.Contract(pid).Restarts),
				strconv.FormatInt(int64(pid), 10))
		}
		ch <- prometheus.MustNewConstMetric(
			descServicesRegistered, prometheus.GaugeValue, float64(len(pids)))
		ch <- prometheus.MustNewConstMetric(
			descServicesRunning, prometheus.GaugeValue, float64(running))
	}
}
