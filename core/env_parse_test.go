package core

import (
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_ENV_SET", "value")

	if got := GetEnvOrDefault("TEST_ENV_SET", "fallback"); got != "value" {
		t.Errorf("GetEnvOrDefault() = %q, want %q", got, "value")
	}
	if got := GetEnvOrDefault("TEST_ENV_MISSING", "fallback"); got != "fallback" {
		t.Errorf("GetEnvOrDefault() = %q, want %q", got, "fallback")
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("TEST_INT_VALID", "42")
	t.Setenv("TEST_INT_INVALID", "not-a-number")

	if got := ParseIntEnv("TEST_INT_VALID", 7); got != 42 {
		t.Errorf("ParseIntEnv() = %d, want 42", got)
	}
	if got := ParseIntEnv("TEST_INT_INVALID", 7); got != 7 {
		t.Errorf("ParseIntEnv() = %d, want default 7", got)
	}
	if got := ParseIntEnv("TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("ParseIntEnv() = %d, want default 7", got)
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true}, {"TRUE", true}, {"1", true}, {"yes", true}, {"on", true},
		{"false", false}, {"0", false}, {"no", false}, {"OFF", false},
	}

	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.value)
		if got := ParseBoolEnv("TEST_BOOL", !tt.want); got != tt.want {
			t.Errorf("ParseBoolEnv(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}

	t.Setenv("TEST_BOOL", "maybe")
	if got := ParseBoolEnv("TEST_BOOL", true); got != true {
		t.Error("Expected default for unparseable value")
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("TEST_DURATION", "30")

	if got := ParseDurationEnv("TEST_DURATION", 10); got != 30*time.Second {
		t.Errorf("ParseDurationEnv() = %v, want 30s", got)
	}
	if got := ParseDurationEnv("TEST_DURATION_MISSING", 10); got != 10*time.Second {
		t.Errorf("ParseDurationEnv() = %v, want 10s", got)
	}
}
