package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveBooking("created")
	m.ObserveBooking("created")
	m.ObserveBooking("conflict")
	m.ObserveSideEffectFailure("email")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sideEffectFailures.WithLabelValues("email")))
}

func TestJobMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)
	m.ObserveRun("daily_reminders", "ok", 0.2)
	m.ObserveItems("daily_reminders", "sent", 3)
	m.ObserveItems("daily_reminders", "failed", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("daily_reminders", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.itemsTotal.WithLabelValues("daily_reminders", "sent")))
	// zero-item observations do not create a series
	assert.Equal(t, 1, testutil.CollectAndCount(m.itemsTotal))
}

func TestMetricsNilSafe(t *testing.T) {
	var b *BookingMetrics
	b.ObserveBooking("created")
	b.ObserveSideEffectFailure("event")

	var j *JobMetrics
	j.ObserveRun("weekly_report", "error", 1)
	j.ObserveItems("weekly_report", "sent", 1)
}
