package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the booking path.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	sideEffectFailures *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		sideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "side_effect_failures_total",
			Help:      "Best-effort post-booking steps that failed",
		}, []string{"effect"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.sideEffectFailures)
	return m
}

// ObserveBooking records one attempt: created, conflict, invalid or error.
func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSideEffectFailure records a failed notification, email, reminder or event step.
func (m *BookingMetrics) ObserveSideEffectFailure(effect string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(effect).Inc()
}

// JobMetrics exposes counters/histograms for the scheduled jobs.
type JobMetrics struct {
	runsTotal   *prometheus.CounterVec
	itemsTotal  *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
}

func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	m := &JobMetrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Scheduled job runs by status (ok, error, skipped)",
		}, []string{"job", "status"}),
		itemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "jobs",
			Name:      "items_total",
			Help:      "Items handled by scheduled jobs by result (sent, failed)",
		}, []string{"job", "result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "jobs",
			Name:      "run_duration_seconds",
			Help:      "Duration of scheduled job runs",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.runsTotal, m.itemsTotal, m.runDuration)
	return m
}

func (m *JobMetrics) ObserveRun(job, status string, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(job, status).Inc()
	m.runDuration.WithLabelValues(job).Observe(seconds)
}

func (m *JobMetrics) ObserveItems(job, result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsTotal.WithLabelValues(job, result).Add(float64(n))
}

// EmailMetrics counts outbound practice emails.
type EmailMetrics struct {
	sentTotal *prometheus.CounterVec
}

func NewEmailMetrics(reg prometheus.Registerer) *EmailMetrics {
	m := &EmailMetrics{
		sentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "email",
			Name:      "sends_total",
			Help:      "Outbound emails by provider, category and outcome (sent, failed)",
		}, []string{"provider", "category", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sentTotal)
	return m
}

func (m *EmailMetrics) ObserveSend(provider, category, outcome string) {
	if m == nil {
		return
	}
	if category == "" {
		category = "other"
	}
	m.sentTotal.WithLabelValues(provider, category, outcome).Inc()
}
