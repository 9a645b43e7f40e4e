package common

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLoggerWithOutput_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", &buf)

	logger.Info().Str("ticker", "CEZ").Msg("quote fetched")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["ticker"] != "CEZ" {
		t.Errorf("ticker field = %v, want CEZ", entry["ticker"])
	}
	if entry["message"] != "quote fetched" {
		t.Errorf("message = %v, want 'quote fetched'", entry["message"])
	}
}

func TestNewLoggerWithOutput_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("warn", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn line should be written at warn level")
	}
}

func TestNewLoggerWithOutput_Disabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("disabled", &buf)
	logger.Error().Msg("nothing")
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("debug", &buf).WithComponent("fx")
	logger.Debug().Msg("x")
	if !strings.Contains(buf.String(), `"component":"fx"`) {
		t.Errorf("component field missing: %s", buf.String())
	}
}
