// Package metrics records upload activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"attachr/internal/attach"
)

// Config configures a Collector.
type Config struct {
	Namespace   string
	ConstLabels prometheus.Labels
	Buckets     []float64
	Registry    prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels, such as the attachment area.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the transfer duration buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the registerer. The default is prometheus.DefaultRegisterer.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "attachr",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector implements attach.Recorder. A nil Collector records nothing.
type Collector struct {
	transfersStarted  *prometheus.CounterVec
	transfersFinished *prometheus.CounterVec
	transferDuration  *prometheus.HistogramVec
	inFlight          *prometheus.GaugeVec
	rejected          *prometheus.CounterVec
}

var _ attach.Recorder = (*Collector)(nil)

// New registers the upload metrics and returns their collector.
func New(opts ...Option) *Collector {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Collector{
		transfersStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "transfers_started_total",
			Help:        "Total number of transfers started",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method"}),

		transfersFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "transfers_finished_total",
			Help:        "Total number of transfers finished, by outcome",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method", "outcome"}),

		transferDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "transfer_duration_seconds",
			Help:        "Transfer duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"method", "outcome"}),

		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "transfers_in_flight",
			Help:        "Number of transfers currently running",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method"}),

		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "files_rejected_total",
			Help:        "Total number of files rejected before upload, by reason",
			ConstLabels: cfg.ConstLabels,
		}, []string{"reason"}),
	}
}

func (c *Collector) TransferStarted(method string) {
	if c == nil {
		return
	}
	c.transfersStarted.WithLabelValues(method).Inc()
	c.inFlight.WithLabelValues(method).Inc()
}

func (c *Collector) TransferFinished(method string, outcome attach.Outcome, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.inFlight.WithLabelValues(method).Dec()
	c.transfersFinished.WithLabelValues(method, string(outcome)).Inc()
	c.transferDuration.WithLabelValues(method, string(outcome)).Observe(elapsed.Seconds())
}

func (c *Collector) Rejected(kind attach.NotificationKind, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.rejected.WithLabelValues(string(kind)).Add(float64(n))
}

// WriteTextfile writes every metric gathered by g in the node exporter
// textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
