package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected default pretty to be false")
	}
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
	}{
		{name: "debug_level", level: LevelDebug},
		{name: "info_level", level: LevelInfo},
		{name: "warn_level", level: LevelWarn},
		{name: "error_level", level: LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			switch tt.level {
			case LevelDebug:
				logger.Debug().Msg("test message")
			case LevelInfo:
				logger.Info().Msg("test message")
			case LevelWarn:
				logger.Warn().Msg("test message")
			case LevelError:
				logger.Error().Msg("test message")
			}

			if !strings.Contains(buf.String(), "test message") {
				t.Errorf("Expected output to contain the message, got %q", buf.String())
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel}, // Should default to Info
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if result := parseLevel(tt.input); result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("registry")
	logger.Info().Msg("endpoint connected")

	output := buf.String()
	if !strings.Contains(output, "registry") {
		t.Errorf("Expected output to contain the component name, got %q", output)
	}
	if !strings.Contains(output, "endpoint connected") {
		t.Errorf("Expected output to contain the message, got %q", output)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger("cache")
	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("Messages below Warn should be filtered, got %q", output)
	}
	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Errorf("Warn and Error messages should appear, got %q", output)
	}
}
