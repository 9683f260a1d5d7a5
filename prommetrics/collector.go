package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/shmimg"
)

const namespace = "shmimg"

// Metrics holds the Prometheus vectors shared by every Collector created
// from it.
type Metrics struct {
	attaches   *prometheus.CounterVec
	reads      *prometheus.CounterVec
	writes     *prometheus.CounterVec
	writeBytes *prometheus.CounterVec
	finalizes  *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewMetrics registers the store metrics with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		attaches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attach_total",
			Help:      "Segment attach attempts by outcome.",
		}, []string{"segment", "status"}),
		reads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_total",
			Help:      "Slot reads by outcome.",
		}, []string{"segment", "status"}),
		writes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_total",
			Help:      "Slot writes by outcome.",
		}, []string{"segment", "status"}),
		writeBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_bytes_total",
			Help:      "Bytes copied into slots.",
		}, []string{"segment"}),
		finalizes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalize_total",
			Help:      "Segment detaches by outcome.",
		}, []string{"segment", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of attach, read and write.",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 12),
		}, []string{"segment", "op"}),
	}
}

// Collector returns a shmimg.MetricsCollector that records under segment.
func (m *Metrics) Collector(segment string) *Collector {
	return &Collector{m: m, segment: segment}
}

// New is NewMetrics(reg).Collector(segment).
func New(reg prometheus.Registerer, segment string) *Collector {
	return NewMetrics(reg).Collector(segment)
}

// Collector implements shmimg.MetricsCollector.
type Collector struct {
	m       *Metrics
	segment string
}

var _ shmimg.MetricsCollector = (*Collector)(nil)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordAttach implements shmimg.MetricsCollector.
func (c *Collector) RecordAttach(d time.Duration, err error) {
	c.m.attaches.WithLabelValues(c.segment, status(err)).Inc()
	c.m.latency.WithLabelValues(c.segment, "attach").Observe(d.Seconds())
}

// RecordRead implements shmimg.MetricsCollector.
func (c *Collector) RecordRead(d time.Duration, err error) {
	c.m.reads.WithLabelValues(c.segment, status(err)).Inc()
	c.m.latency.WithLabelValues(c.segment, "read").Observe(d.Seconds())
}

// RecordWrite implements shmimg.MetricsCollector.
func (c *Collector) RecordWrite(bytes int, d time.Duration, err error) {
	c.m.writes.WithLabelValues(c.segment, status(err)).Inc()
	c.m.writeBytes.WithLabelValues(c.segment).Add(float64(bytes))
	c.m.latency.WithLabelValues(c.segment, "write").Observe(d.Seconds())
}

// RecordFinalize implements shmimg.MetricsCollector.
func (c *Collector) RecordFinalize(err error) {
	c.m.finalizes.WithLabelValues(c.segment, status(err)).Inc()
}
