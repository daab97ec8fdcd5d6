// Package metrics records ingestion progress with Prometheus collectors.
//
// Every Collector owns its registry, so one process can run several
// pipelines (and tests can run in parallel) without duplicate registration.
// A run's final values can be written as a node-exporter textfile.
//
// # Basic Usage
//
//	c := metrics.NewCollector("users")
//	c.RecordsRead.Inc()
//	c.Dropped(metrics.ReasonFiltered)
//
//	timer := metrics.NewTimer(metrics.PhaseIngest)
//	ingest()
//	c.ObservePhase(timer)
//
//	err := c.WriteTextfile("/var/lib/node_exporter/tabulate.prom")
package metrics

import (
	"os"
	"sync"
	"time"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shirou/gopsutil/v3/process"
)

// Phases of a run, used as the phase label
const (
	PhaseScan   = "scan"
	PhaseIngest = "ingest"
	PhaseReport = "report"
	PhaseCache  = "cache"
)

// Reasons a record did not reach the table, used as the reason label
const (
	ReasonSkipped   = "skipped"
	ReasonFiltered  = "filtered"
	ReasonViolation = "size_violation"
)

// Collector holds the collectors of one pipeline run
type Collector struct {
	name     string
	registry *prometheus.Registry

	// RecordsRead counts raw records decoded from the source
	RecordsRead prometheus.Counter
	// RecordsIngested counts records appended to the table
	RecordsIngested prometheus.Counter

	recordsDropped *prometheus.CounterVec
	phaseDuration  *prometheus.HistogramVec
	throughput     prometheus.Gauge
	residentMemory prometheus.Gauge
	startTime      time.Time
}

// NewCollector creates a collector whose metrics carry the given pipeline name
func NewCollector(name string) *Collector {
	labels := prometheus.Labels{"pipeline": name}
	c := &Collector{
		name:     name,
		registry: prometheus.NewRegistry(),
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tabulate_records_read_total",
			Help:        "Total number of raw records decoded from the source",
			ConstLabels: labels,
		}),
		RecordsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tabulate_records_ingested_total",
			Help:        "Total number of records appended to the table",
			ConstLabels: labels,
		}),
		recordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tabulate_records_dropped_total",
			Help:        "Records read but not appended, by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "tabulate_phase_duration_seconds",
			Help:        "Wall time of each pipeline phase",
			ConstLabels: labels,
			Buckets: []float64{
				0.001, // 1ms - small fixtures
				0.01,  // 10ms
				0.1,   // 100ms
				1,     // 1s - typical site dump
				10,    // 10s
				60,    // 1m - large dumps
				600,   // 10m
			},
		}, []string{"phase"}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "tabulate_throughput_records_per_second",
			Help:        "Ingestion throughput of the last completed run",
			ConstLabels: labels,
		}),
		residentMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "tabulate_resident_memory_bytes",
			Help:        "Resident set size of the process after the last phase",
			ConstLabels: labels,
		}),
		startTime: time.Now(),
	}

	c.registry.MustRegister(
		c.RecordsRead,
		c.RecordsIngested,
		c.recordsDropped,
		c.phaseDuration,
		c.throughput,
		c.residentMemory,
		collectors.NewGoCollector(),
	)
	return c
}

// Name returns the pipeline name
func (c *Collector) Name() string { return c.name }

// Registry exposes the underlying registry, e.g. for an HTTP handler
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Dropped counts one record that did not reach the table
func (c *Collector) Dropped(reason string) {
	c.recordsDropped.WithLabelValues(reason).Inc()
}

// ObservePhase records the elapsed time of a phase timer and returns it
func (c *Collector) ObservePhase(t *Timer) time.Duration {
	d := t.Stop()
	c.phaseDuration.WithLabelValues(t.name).Observe(d.Seconds())
	return d
}

// SetThroughput records the records per second of a completed ingest
func (c *Collector) SetThroughput(records int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	rate := float64(records) / elapsed.Seconds()
	c.throughput.Set(rate)
	return rate
}

// SampleMemory records and returns the resident set size of this process
func (c *Collector) SampleMemory() (uint64, error) {
	rss, err := ResidentMemory()
	if err != nil {
		return 0, err
	}
	c.residentMemory.Set(float64(rss))
	return rss, nil
}

// Uptime is the time since the collector was created
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// WriteTextfile writes the current values in the Prometheus text format
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write metrics textfile").
			WithDetail("path", path)
	}
	return nil
}

// ResidentMemory returns the resident set size of the current process
func ResidentMemory() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeInternal, "failed to inspect process")
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeInternal, "failed to read process memory")
	}
	return info.RSS, nil
}

// Timer measures the duration of a named phase
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop returns the elapsed duration since creation. The timer can be stopped
// multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Progress reports throughput at a fixed record interval. Safe for concurrent use.
type Progress struct {
	mu        sync.Mutex
	every     int64
	count     int64
	lastCount int64
	lastTime  time.Time
}

// NewProgress creates a tracker that fires every n records. n <= 0 never fires.
func NewProgress(every int) *Progress {
	return &Progress{every: int64(every), lastTime: time.Now()}
}

// Increment adds one record. When the interval is reached it returns the
// total so far, the records per second since the previous report, and true.
func (p *Progress) Increment() (total int64, rate float64, fire bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++
	if p.every <= 0 || p.count%p.every != 0 {
		return p.count, 0, false
	}

	now := time.Now()
	if elapsed := now.Sub(p.lastTime).Seconds(); elapsed > 0 {
		rate = float64(p.count-p.lastCount) / elapsed
	}
	p.lastCount = p.count
	p.lastTime = now
	return p.count, rate, true
}
