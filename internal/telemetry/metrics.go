// Package telemetry holds the Prometheus collectors shared by the
// instruction, query and pipeline executors.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics is a set of ledger counters. A nil *Metrics is valid and records
// nothing, so executors can be built without a registry.
type Metrics struct {
	ISI           *prometheus.CounterVec
	Queries       *prometheus.CounterVec
	TriggerRuns   *prometheus.CounterVec
	Notifications prometheus.Counter
	BlockRuns     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ISI: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iroha_isi_total",
				Help: "Total number of executed instructions",
			},
			[]string{"instruction", "result"},
		),
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iroha_query_total",
				Help: "Total number of executed queries",
			},
			[]string{"query", "result"},
		),
		TriggerRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iroha_trigger_runs_total",
				Help: "Total number of trigger runs by outcome",
			},
			[]string{"outcome"},
		),
		Notifications: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "iroha_notifications_published_total",
				Help: "Total number of notification events published",
			},
		),
		BlockRuns: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "iroha_block_trigger_runs",
				Help:    "Trigger runs per applied block",
				Buckets: prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
	}
	for _, c := range []prometheus.Collector{m.ISI, m.Queries, m.TriggerRuns, m.Notifications, m.BlockRuns} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNewMetrics is like NewMetrics but panics on registration errors.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m, err := NewMetrics(reg)
	if err != nil {
		panic(err)
	}
	return m
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// ObserveInstruction counts one executed instruction.
func (m *Metrics) ObserveInstruction(kind string, err error) {
	if m == nil {
		return
	}
	m.ISI.WithLabelValues(kind, result(err)).Inc()
}

// ObserveQuery counts one executed query.
func (m *Metrics) ObserveQuery(name string, err error) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(name, result(err)).Inc()
}

// ObserveTriggerRun counts one trigger run by outcome ("Success"/"Failure").
func (m *Metrics) ObserveTriggerRun(outcome string) {
	if m == nil {
		return
	}
	m.TriggerRuns.WithLabelValues(outcome).Inc()
}

// ObserveNotification counts one published notification.
func (m *Metrics) ObserveNotification() {
	if m == nil {
		return
	}
	m.Notifications.Inc()
}

// ObserveBlock records the number of trigger runs of one block.
func (m *Metrics) ObserveBlock(runs int) {
	if m == nil {
		return
	}
	m.BlockRuns.Observe(float64(runs))
}
