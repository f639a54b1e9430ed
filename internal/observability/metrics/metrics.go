package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking workflow.
type BookingMetrics struct {
	bookingsTotal  *prometheus.CounterVec
	bookingLatency prometheus.Histogram
	voiceEvents    *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "bookings",
			Name:      "total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dental",
			Subsystem: "bookings",
			Name:      "latency_seconds",
			Help:      "Latency of booking requests",
			Buckets:   prometheus.DefBuckets,
		}),
		voiceEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "voice",
			Name:      "session_events_total",
			Help:      "Voice session events by type",
		}, []string{"event"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.bookingLatency, m.voiceEvents)
	return m
}

// ObserveBooking records a booking attempt outcome:
// created, slot_conflict, invalid, failed.
func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveBookingLatency(seconds float64) {
	if m == nil {
		return
	}
	m.bookingLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveVoiceEvent(event string) {
	if m == nil {
		return
	}
	m.voiceEvents.WithLabelValues(event).Inc()
}
