package breaker

import (
	"testing"
	"time"
)

func TestAllow(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		s    State
		want bool
	}{
		{"no open circuit", State{}, true},
		{"expired open-until", State{CircuitOpenUntil: &past}, true},
		{"open-until exactly now", State{CircuitOpenUntil: &now}, true},
		{"still open", State{CircuitOpenUntil: &future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allow(tt.s, now); got != tt.want {
				t.Errorf("Allow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOnSuccessResetsState(t *testing.T) {
	future := time.Now().Add(time.Minute)
	s := State{ConsecutiveFailures: 4, CircuitOpenUntil: &future}
	got := OnSuccess(s)
	if got.ConsecutiveFailures != 0 || got.CircuitOpenUntil != nil {
		t.Errorf("OnSuccess() = %+v, want zero state", got)
	}
}

func TestOnFailureBelowThreshold(t *testing.T) {
	now := time.Now()
	s := State{ConsecutiveFailures: 3}
	got := OnFailure(s, now)
	if got.ConsecutiveFailures != 4 {
		t.Errorf("ConsecutiveFailures = %d, want 4", got.ConsecutiveFailures)
	}
	if got.CircuitOpenUntil != nil {
		t.Error("CircuitOpenUntil should remain nil below threshold")
	}
}

func TestOnFailureTripsAtThreshold(t *testing.T) {
	now := time.Now()
	s := State{ConsecutiveFailures: FailureThreshold - 1}
	got := OnFailure(s, now)
	if got.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0 after trip", got.ConsecutiveFailures)
	}
	if got.CircuitOpenUntil == nil {
		t.Fatal("CircuitOpenUntil should be set after trip")
	}
	wantOpenUntil := now.Add(CoolOff)
	if got.CircuitOpenUntil.Sub(wantOpenUntil).Abs() > time.Second {
		t.Errorf("CircuitOpenUntil = %v, want ~%v", got.CircuitOpenUntil, wantOpenUntil)
	}
}

func TestOnFailureReopensAfterCoolOff(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	s := State{ConsecutiveFailures: 0, CircuitOpenUntil: &past}
	got := OnFailure(s, now)
	if got.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1 (restarts from 1 after cool-off)", got.ConsecutiveFailures)
	}
}
