package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks inventory and fulfillment activity. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	UnitsReserved        prometheus.Counter
	ReservationConflicts prometheus.Counter
	UnitsReleased        prometheus.Counter
	UnitsExpired         prometheus.Counter
	RequestsFulfilled    *prometheus.CounterVec
	NotificationFailures prometheus.Counter
	SweepDuration        prometheus.Histogram
	FulfillDuration      prometheus.Histogram
}

// New registers the metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UnitsReserved: factory.NewCounter(prometheus.CounterOpts{
			Name: "blood_units_reserved_total",
			Help: "Total number of blood units reserved against requests",
		}),
		ReservationConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "blood_reservation_conflicts_total",
			Help: "Reservations rolled back because a unit was no longer available",
		}),
		UnitsReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "blood_units_released_total",
			Help: "Reserved units returned to Available",
		}),
		UnitsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "blood_units_expired_total",
			Help: "Available units flipped to Expired by sweeps",
		}),
		RequestsFulfilled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blood_requests_fulfillment_total",
			Help: "Fulfillment attempts by resulting request status",
		}, []string{"status"}),
		NotificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "blood_notification_failures_total",
			Help: "Notifications that could not be stored or delivered",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "blood_expiry_sweep_duration_seconds",
			Help:    "Duration of expiry sweeps",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		FulfillDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "blood_fulfill_duration_seconds",
			Help:    "Duration of request fulfillment",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) AddReserved(n int) {
	if m == nil {
		return
	}
	m.UnitsReserved.Add(float64(n))
}

func (m *Metrics) IncrementConflict() {
	if m == nil {
		return
	}
	m.ReservationConflicts.Inc()
}

func (m *Metrics) AddReleased(n int) {
	if m == nil {
		return
	}
	m.UnitsReleased.Add(float64(n))
}

func (m *Metrics) AddExpired(n int) {
	if m == nil {
		return
	}
	m.UnitsExpired.Add(float64(n))
}

func (m *Metrics) IncrementFulfilled(status string) {
	if m == nil {
		return
	}
	m.RequestsFulfilled.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementNotificationFailure() {
	if m == nil {
		return
	}
	m.NotificationFailures.Inc()
}

// ObserveSweep records a sweep duration. Call with time.Now() at the start.
func (m *Metrics) ObserveSweep(start time.Time) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(time.Since(start).Seconds())
}

// ObserveFulfill records a fulfillment duration. Call with time.Now() at the start.
func (m *Metrics) ObserveFulfill(start time.Time) {
	if m == nil {
		return
	}
	m.FulfillDuration.Observe(time.Since(start).Seconds())
}
