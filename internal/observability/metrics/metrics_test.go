package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestBookingMetricsObserve(t *testing.T) {
	m := NewBookingMetrics(prometheus.NewRegistry())
	m.ObserveBooking("created")
	m.ObserveBooking("slot_conflict")
	m.ObserveBookingLatency(0.25)
	m.ObserveVoiceEvent("call-start")
}

func TestBookingMetricsDefaultRegistry(t *testing.T) {
	m := NewBookingMetrics(nil)
	m.ObserveBooking("failed")
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveBooking("created")
	m.ObserveBookingLatency(0.1)
	m.ObserveVoiceEvent("call-end")
}
