package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerJSONCarriesComponentAndUser(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Writer: &buf, Component: ComponentReport})

	logger.ForUser(42).Info("Report generated", FieldReportKind, "MONTHLY")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if rec[FieldComponent] != ComponentReport {
		t.Errorf("component = %v, want %s", rec[FieldComponent], ComponentReport)
	}
	if rec[FieldUserID] != float64(42) {
		t.Errorf("user_id = %v, want 42", rec[FieldUserID])
	}
	if rec[FieldReportKind] != "MONTHLY" {
		t.Errorf("report_kind = %v", rec[FieldReportKind])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, slog.LevelWarn, ComponentWorker)

	logger.Info("dropped")
	logger.Debug("dropped too")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("records below warn should be filtered: %s", out)
	}
	if !strings.Contains(out, "component=worker") || !strings.Contains(out, "kept") {
		t.Errorf("missing warn record: %s", out)
	}
}

func TestWithComponentKeepsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, slog.LevelInfo, ComponentApp).With("request_id", "abc").WithComponent(ComponentHTTP)

	logger.Info("hello")
	out := buf.String()
	if !strings.Contains(out, "request_id=abc") || !strings.Contains(out, "component=http") {
		t.Errorf("unexpected output: %s", out)
	}
	if logger.Component() != ComponentHTTP {
		t.Errorf("Component() = %s", logger.Component())
	}
}
