package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValues(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	families, err := reg.Gather()
	require.NoError(t, err)

	out := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if c := m.GetCounter(); c != nil {
				out[f.GetName()] += c.GetValue()
			}
		}
	}
	return out
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(reg)

	m.AddReserved(3)
	m.IncrementConflict()
	m.AddExpired(2)
	m.IncrementFulfilled("fulfilled")
	m.IncrementFulfilled("partially_fulfilled")
	m.ObserveSweep(time.Now())

	values := counterValues(t, reg)
	assert.Equal(t, 3.0, values["blood_units_reserved_total"])
	assert.Equal(t, 1.0, values["blood_reservation_conflicts_total"])
	assert.Equal(t, 2.0, values["blood_units_expired_total"])
	assert.Equal(t, 2.0, values["blood_requests_fulfillment_total"])
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.AddReserved(1)
		m.IncrementNotificationFailure()
		m.ObserveFulfill(time.Now())
	})
}
