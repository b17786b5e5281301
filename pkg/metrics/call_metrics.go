package metrics

// Call metric recorders. All methods are nil-safe so services can run
// without a metrics registry in tests.

// RecordCallStarted records a created call. signaling is "ok" when the
// external provider returned a handle, "degraded" otherwise.
func (m *Metrics) RecordCallStarted(signaling string) {
	if m == nil {
		return
	}
	m.callsStartedTotal.WithLabelValues(signaling).Inc()
	m.callsActive.Inc()
}

// RecordCallEnded records a call transitioning to ended
func (m *Metrics) RecordCallEnded(durationSeconds int) {
	if m == nil {
		return
	}
	m.callsActive.Dec()
	m.callsDuration.Observe(float64(durationSeconds))
}

// RecordCallOperationFailed records a failed lifecycle operation
func (m *Metrics) RecordCallOperationFailed(operation string) {
	if m == nil {
		return
	}
	m.callsFailedTotal.WithLabelValues(operation).Inc()
}
