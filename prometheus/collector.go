package prometheus

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/kea"
)

// Collector implements kea.MetricsCollector with Prometheus counters and
// histograms.
type Collector struct {
	latency *prom.HistogramVec
	ops     *prom.CounterVec
	pixels  *prom.CounterVec
	rows    prom.Counter
	levels  prom.Gauge
}

var _ kea.MetricsCollector = (*Collector)(nil)

type options struct {
	namespace  string
	registerer prom.Registerer
	buckets    []float64
}

// Option configures a Collector.
type Option func(*options)

// WithNamespace prefixes every metric name. The default is "kea".
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithRegisterer registers the metrics with r. Without it the metrics are
// not registered anywhere and the Collector must be registered by the
// caller.
func WithRegisterer(r prom.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithBuckets sets the latency histogram buckets in seconds.
func WithBuckets(b []float64) Option {
	return func(o *options) { o.buckets = b }
}

// NewCollector creates a Collector. It panics if registration fails, like
// prometheus.MustRegister.
func NewCollector(optFns ...Option) *Collector {
	o := options{namespace: "kea", buckets: prom.DefBuckets}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	c := &Collector{
		latency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: o.namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of image operations",
			Buckets:   o.buckets,
		}, []string{"op", "status"}),
		ops: prom.NewCounterVec(prom.CounterOpts{
			Namespace: o.namespace,
			Name:      "operations_total",
			Help:      "Total image operations",
		}, []string{"op", "status"}),
		pixels: prom.NewCounterVec(prom.CounterOpts{
			Namespace: o.namespace,
			Name:      "block_pixels_total",
			Help:      "Pixels moved by successful block reads and writes",
		}, []string{"op"}),
		rows: prom.NewCounter(prom.CounterOpts{
			Namespace: o.namespace,
			Name:      "attribute_rows_exported_total",
			Help:      "Attribute table rows exported",
		}),
		levels: prom.NewGauge(prom.GaugeOpts{
			Namespace: o.namespace,
			Name:      "overview_last_level",
			Help:      "Level of the most recently created overview",
		}),
	}
	if o.registerer != nil {
		o.registerer.MustRegister(c)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prom.Desc) {
	c.latency.Describe(ch)
	c.ops.Describe(ch)
	c.pixels.Describe(ch)
	c.rows.Describe(ch)
	c.levels.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prom.Metric) {
	c.latency.Collect(ch)
	c.ops.Collect(ch)
	c.pixels.Collect(ch)
	c.rows.Collect(ch)
	c.levels.Collect(ch)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.latency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordBlockWrite implements kea.MetricsCollector.
func (c *Collector) RecordBlockWrite(pixels uint64, d time.Duration, err error) {
	c.observe("block_write", d, err)
	if err == nil {
		c.pixels.WithLabelValues("write").Add(float64(pixels))
	}
}

// RecordBlockRead implements kea.MetricsCollector.
func (c *Collector) RecordBlockRead(pixels uint64, d time.Duration, err error) {
	c.observe("block_read", d, err)
	if err == nil {
		c.pixels.WithLabelValues("read").Add(float64(pixels))
	}
}

// RecordOverview implements kea.MetricsCollector.
func (c *Collector) RecordOverview(level uint32, d time.Duration, err error) {
	c.observe("overview", d, err)
	if err == nil {
		c.levels.Set(float64(level))
	}
}

// RecordAttributeExport implements kea.MetricsCollector.
func (c *Collector) RecordAttributeExport(rows uint64, d time.Duration, err error) {
	c.observe("attribute_export", d, err)
	if err == nil {
		c.rows.Add(float64(rows))
	}
}

// RecordFlush implements kea.MetricsCollector.
func (c *Collector) RecordFlush(d time.Duration, err error) {
	c.observe("flush", d, err)
}
