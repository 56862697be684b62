// Package metrics exposes the bridge counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "teleinfod"

type Metrics struct {
	Registry *prometheus.Registry

	frames          *prometheus.CounterVec
	fields          *prometheus.CounterVec
	malformedFields *prometheus.CounterVec
	deviceOpens     *prometheus.CounterVec
	summaries       *prometheus.CounterVec
	publishes       prometheus.Counter
	publishErrors   prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Complete frames decoded.",
		}, []string{"section"}),
		fields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_total",
			Help:      "Fields scanned, published or not.",
		}, []string{"section"}),
		malformedFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_fields_total",
			Help:      "Fields dropped because they could not be parsed.",
		}, []string{"section"}),
		deviceOpens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_opens_total",
			Help:      "Times the section device was opened.",
		}, []string{"section"}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summaries emitted.",
		}, []string{"section"}),
		publishes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Messages handed to the broker.",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Messages the broker connection failed to send.",
		}),
	}
	m.Registry.MustRegister(
		m.frames,
		m.fields,
		m.malformedFields,
		m.deviceOpens,
		m.summaries,
		m.publishes,
		m.publishErrors,
	)
	return m
}

// Every method is nil safe so that callers without metrics pass nil.

func (m *Metrics) FrameDecoded(section string) {
	if m != nil {
		m.frames.WithLabelValues(section).Inc()
	}
}

func (m *Metrics) FieldScanned(section string) {
	if m != nil {
		m.fields.WithLabelValues(section).Inc()
	}
}

func (m *Metrics) FieldMalformed(section string) {
	if m != nil {
		m.malformedFields.WithLabelValues(section).Inc()
	}
}

func (m *Metrics) DeviceOpened(section string) {
	if m != nil {
		m.deviceOpens.WithLabelValues(section).Inc()
	}
}

func (m *Metrics) SummaryEmitted(section string) {
	if m != nil {
		m.summaries.WithLabelValues(section).Inc()
	}
}

func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	m.publishes.Inc()
	if err != nil {
		m.publishErrors.Inc()
	}
}
