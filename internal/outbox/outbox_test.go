package outbox

import (
	"testing"
	"time"
)

func TestNextRetryDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{attempts: 0, want: 0},
		{attempts: 1, want: 60 * time.Second},
		{attempts: 2, want: 300 * time.Second},
		{attempts: 3, want: 900 * time.Second},
		{attempts: 4, want: 0},
		{attempts: -1, want: 0},
	}

	for _, tt := range tests {
		if got := nextRetryDelay(tt.attempts); got != tt.want {
			t.Errorf("nextRetryDelay(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}
