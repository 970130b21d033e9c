package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-rating/internal/model"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSubmission(model.SpamStatusNotSpam)
	m.ObserveSubmission(model.SpamStatusProbableSpam)
	m.ObserveSubmission(model.SpamStatusProbableSpam)
	m.ObserveVerdicts(2, 3)
	m.ObservePartialFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RatingsSubmitted.WithLabelValues("not_spam")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RatingsSubmitted.WithLabelValues("probable_spam")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SpamVerdicts.WithLabelValues("spam")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SpamVerdicts.WithLabelValues("not_spam")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReconcilePartialFail))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSubmission(model.SpamStatusSpam)
		m.ObserveVerdicts(1, 1)
		m.ObserveAggregateRetry()
		m.ObservePartialFailure()
	})
}
