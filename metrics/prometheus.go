// FILE: lixenwraith/logpipe/metrics/prometheus.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "logpipe"

// Prometheus records pipeline measurements in a dedicated registry
type Prometheus struct {
	registry *prometheus.Registry

	enqueued        prometheus.Counter
	dropped         *prometheus.CounterVec
	delivered       *prometheus.CounterVec
	deliverySeconds *prometheus.HistogramVec
	appendFailures  *prometheus.CounterVec
	batchSize       prometheus.Histogram
	queueDepth      prometheus.Gauge
	queueCapacity   prometheus.Gauge
	rotations       *prometheus.CounterVec
	rotationSeconds prometheus.Histogram
}

// NewPrometheus builds an observer registering its collectors under namespace
func NewPrometheus(namespace string) *Prometheus {
	if namespace == "" {
		namespace = defaultNamespace
	}
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		enqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_enqueued_total",
			Help:      "Events accepted by the queue.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events not delivered, by reason.",
		}, []string{"reason"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Events appended successfully, by appender.",
		}, []string{"appender"}),
		deliverySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "append_duration_seconds",
			Help:      "Time spent in Append, by appender.",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
		}, []string{"appender"}),
		appendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "append_failures_total",
			Help:      "Append calls that returned an error or panicked.",
		}, []string{"appender"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_batch_size",
			Help:      "Events drained per dispatcher wake-up.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Occupied queue slots.",
		}),
		queueCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_capacity",
			Help:      "Configured queue slots.",
		}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_rotations_total",
			Help:      "File rotations, by result.",
		}, []string{"result"}),
		rotationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_rotation_duration_seconds",
			Help:      "Time the rolling manager lock was held for rotation.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	p.registry.MustRegister(
		p.enqueued, p.dropped, p.delivered, p.deliverySeconds, p.appendFailures,
		p.batchSize, p.queueDepth, p.queueCapacity, p.rotations, p.rotationSeconds,
	)
	return p
}

// Registry returns the underlying registry
func (p *Prometheus) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

// Handler exposes the registry over HTTP
func (p *Prometheus) Handler() http.Handler {
	if p == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) EventEnqueued() {
	p.enqueued.Inc()
}

func (p *Prometheus) EventDropped(reason string) {
	p.dropped.WithLabelValues(reason).Inc()
}

func (p *Prometheus) EventDelivered(appender string, elapsed time.Duration) {
	p.delivered.WithLabelValues(appender).Inc()
	p.deliverySeconds.WithLabelValues(appender).Observe(elapsed.Seconds())
}

func (p *Prometheus) AppendFailed(appender string) {
	p.appendFailures.WithLabelValues(appender).Inc()
}

func (p *Prometheus) BatchDrained(size int) {
	p.batchSize.Observe(float64(size))
}

func (p *Prometheus) QueueDepth(depth, capacity int) {
	p.queueDepth.Set(float64(depth))
	p.queueCapacity.Set(float64(capacity))
}

func (p *Prometheus) Rotation(_ string, elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	p.rotations.WithLabelValues(result).Inc()
	p.rotationSeconds.Observe(elapsed.Seconds())
}

var _ Observer = (*Prometheus)(nil)
