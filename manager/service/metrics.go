package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "groupgraph"

type MetricCollector struct {
	requestTransitions *prometheus.CounterVec
	policyRejections   *prometheus.CounterVec
	ownershipCache     *prometheus.CounterVec
	pluginFailures     *prometheus.CounterVec
}

func NewMetricCollector() *MetricCollector {
	return &MetricCollector{
		requestTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "permission_request_transitions_total",
				Help:      "Permission request status changes by target status",
			},
			[]string{"status"},
		),
		policyRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "policy_rejections_total",
				Help:      "Operations refused by request policy",
			},
			[]string{"operation", "reason"},
		),
		ownershipCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "ownership_cache_lookups_total",
				Help:      "Ownership map cache lookups by result",
			},
			[]string{"result"},
		),
		pluginFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "plugin_failures_total",
				Help:      "Plugin calls that failed and were skipped",
			},
			[]string{"plugin"},
		),
	}
}

func (m *MetricCollector) Describe(ch chan<- *prometheus.Desc) {
	m.requestTransitions.Describe(ch)
	m.policyRejections.Describe(ch)
	m.ownershipCache.Describe(ch)
	m.pluginFailures.Describe(ch)
}

func (m *MetricCollector) Collect(ch chan<- prometheus.Metric) {
	m.requestTransitions.Collect(ch)
	m.policyRejections.Collect(ch)
	m.ownershipCache.Collect(ch)
	m.pluginFailures.Collect(ch)
}

// Register adds the collector to reg. Registering twice is not an error.
func (m *MetricCollector) Register(reg prometheus.Registerer) error {
	err := reg.Register(m)
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}
