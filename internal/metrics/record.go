package metrics

import (
	"strconv"
	"time"
)

// GateDecision records one session gate outcome.
func GateDecision(class, decision string) {
	GateDecisionsTotal.WithLabelValues(class, decision).Inc()
}

// RefreshConfirmed records a refresh the backend accepted.
func RefreshConfirmed() {
	SessionRefreshesTotal.WithLabelValues("confirmed").Inc()
}

// RefreshRejected records a refresh the backend refused or failed.
func RefreshRejected() {
	SessionRefreshesTotal.WithLabelValues("rejected").Inc()
}

// RefreshTimedOut records a refresh abandoned at the gate deadline.
func RefreshTimedOut() {
	SessionRefreshesTotal.WithLabelValues("timeout").Inc()
}

// BackendCall records a completed backend round trip.
// A status of 0 means the request never got a response.
func BackendCall(endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	BackendRequestsTotal.WithLabelValues(endpoint, label).Inc()
	BackendRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// AuthAction records the result of a form action.
func AuthAction(action, result string) {
	AuthActionsTotal.WithLabelValues(action, result).Inc()
}
