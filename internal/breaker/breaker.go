// Package breaker implements the per-endpoint circuit breaker as a set of
// pure functions over the WebhookEndpoint row's own state — there is
// deliberately no in-process breaker state, so the breaker works correctly
// across any number of worker instances reading the same row.
package breaker

import "time"

// FailureThreshold is the consecutive-failure count that trips the breaker.
const FailureThreshold = 5

// CoolOff is how long the breaker stays open once tripped.
const CoolOff = 60 * time.Second

// State is the breaker-relevant slice of a WebhookEndpoint row.
type State struct {
	ConsecutiveFailures int
	CircuitOpenUntil    *time.Time
}

// Allow reports whether a delivery attempt against this endpoint is
// currently permitted.
func Allow(s State, now time.Time) bool {
	return s.CircuitOpenUntil == nil || !s.CircuitOpenUntil.After(now)
}

// OnSuccess returns the state to persist after a successful delivery: the
// failure counter resets and any open circuit clears.
func OnSuccess(_ State) State {
	return State{ConsecutiveFailures: 0, CircuitOpenUntil: nil}
}

// OnFailure returns the state to persist after a failed delivery. Crossing
// FailureThreshold opens the circuit for CoolOff and resets the counter;
// otherwise only the counter advances.
func OnFailure(s State, now time.Time) State {
	failures := s.ConsecutiveFailures + 1
	if failures < FailureThreshold {
		return State{ConsecutiveFailures: failures, CircuitOpenUntil: s.CircuitOpenUntil}
	}
	openUntil := now.Add(CoolOff)
	return State{ConsecutiveFailures: 0, CircuitOpenUntil: &openUntil}
}
