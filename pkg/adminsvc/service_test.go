package adminsvc

import (
	"strings"
	"testing"
)

func TestEnrollmentTokenDisplayPrefix(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"longer than display length", EnrollmentTokenPrefix + "abcdefghijklmnop", EnrollmentTokenPrefix + "abcdefgh"},
		{"exactly display length", EnrollmentTokenPrefix + "abcdefgh", EnrollmentTokenPrefix + "abcdefgh"},
		{"shorter than display length", EnrollmentTokenPrefix + "ab", EnrollmentTokenPrefix + "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := enrollmentTokenDisplayPrefix(tt.raw)
			if got != tt.want {
				t.Fatalf("enrollmentTokenDisplayPrefix(%q) = %q, want %q", tt.raw, got, tt.want)
			}
			if !strings.HasPrefix(got, EnrollmentTokenPrefix) {
				t.Fatalf("enrollmentTokenDisplayPrefix(%q) = %q, missing brand prefix", tt.raw, got)
			}
		})
	}
}

func TestEnrollmentTokenPrefix(t *testing.T) {
	if EnrollmentTokenPrefix != "enroll_" {
		t.Fatalf("EnrollmentTokenPrefix = %q, want %q", EnrollmentTokenPrefix, "enroll_")
	}
}
