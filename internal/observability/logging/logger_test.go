package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestJSONLoggerCarriesServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, "docgate-api", "debug")

	logger.Info("api_listening", "port", "8080")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not one JSON object: %v (%q)", err, buf.String())
	}
	if record["service"] != "docgate-api" || record["msg"] != "api_listening" || record["port"] != "8080" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["time"].(string); !ok {
		t.Fatalf("missing time attribute: %v", record)
	}
}

func TestJSONLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, "docgate-worker", "error")

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record must be filtered at error level, got %q", buf.String())
	}

	logger.Error("kept")
	if buf.Len() == 0 {
		t.Fatalf("error record must pass at error level")
	}
}
