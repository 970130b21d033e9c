package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"go-rating/internal/model"
)

// Metrics 评分与刷分复核相关的指标
type Metrics struct {
	RatingsSubmitted     *prometheus.CounterVec
	AggregateRetries     prometheus.Counter
	SpamVerdicts         *prometheus.CounterVec
	ReconcilePartialFail prometheus.Counter
	ReconcileDuration    prometheus.Histogram
	LastReconcile        prometheus.Gauge
}

// New 创建并注册指标, reg 为 nil 时只创建不注册
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RatingsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratings_submitted_total",
			Help: "Total ratings submitted, by initial spam status",
		}, []string{"status"}),
		AggregateRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "article_aggregate_update_retries_total",
			Help: "Total optimistic update conflicts on article aggregates",
		}),
		SpamVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spam_reconcile_verdicts_total",
			Help: "Total probable spam ratings reclassified, by verdict",
		}, []string{"status"}),
		ReconcilePartialFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spam_reconcile_partial_failures_total",
			Help: "Total bulk status updates that affected fewer rows than requested",
		}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spam_reconcile_duration_seconds",
			Help:    "Duration of probable spam reconciliation runs",
			Buckets: prometheus.DefBuckets,
		}),
		LastReconcile: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spam_reconcile_last_run_timestamp_seconds",
			Help: "Unix time of the last successful reconciliation run",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RatingsSubmitted,
			m.AggregateRetries,
			m.SpamVerdicts,
			m.ReconcilePartialFail,
			m.ReconcileDuration,
			m.LastReconcile,
		)
	}
	return m
}

func (m *Metrics) ObserveSubmission(status model.SpamStatus) {
	if m == nil {
		return
	}
	m.RatingsSubmitted.WithLabelValues(status.String()).Inc()
}

func (m *Metrics) ObserveVerdicts(spamCount, notSpamCount int) {
	if m == nil {
		return
	}
	m.SpamVerdicts.WithLabelValues(model.SpamStatusSpam.String()).Add(float64(spamCount))
	m.SpamVerdicts.WithLabelValues(model.SpamStatusNotSpam.String()).Add(float64(notSpamCount))
}

func (m *Metrics) ObserveAggregateRetry() {
	if m == nil {
		return
	}
	m.AggregateRetries.Inc()
}

func (m *Metrics) ObservePartialFailure() {
	if m == nil {
		return
	}
	m.ReconcilePartialFail.Inc()
}
