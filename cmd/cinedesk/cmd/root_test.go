package cmd

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidPermissionID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"movies.view", true},
		{"bookingDetails.manage", true},
		{"system.delete", true},
		{"movies.approve", false},
		{"cinemas.view", false},
		{"movies", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := validPermissionID(tt.id); got != tt.want {
			t.Errorf("validPermissionID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
