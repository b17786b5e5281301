package metrics

// Auth metric recorders. Nil-safe for the same reason as the call
// recorders.

// RecordAuthAttempt records a register/login attempt
func (m *Metrics) RecordAuthAttempt(operation string) {
	if m == nil {
		return
	}
	m.authAttemptsTotal.WithLabelValues(operation).Inc()
}

// RecordAuthFailure records a failed register/login attempt
func (m *Metrics) RecordAuthFailure(operation, reason string) {
	if m == nil {
		return
	}
	m.authFailuresTotal.WithLabelValues(operation, reason).Inc()
}
