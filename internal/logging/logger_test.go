package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("DEBUG", "")
	t.Setenv("LOG_FORMAT", "")

	cfg := DefaultConfig()
	if cfg.Level != slog.LevelInfo {
		t.Errorf("Level = %v, want INFO", cfg.Level)
	}
	if cfg.Format != "text" {
		t.Errorf("Format = %s, want text", cfg.Format)
	}
}

func TestDefaultConfig_DebugAndJSON(t *testing.T) {
	t.Setenv("DEBUG", "1")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg := DefaultConfig()
	if cfg.Level != slog.LevelDebug {
		t.Errorf("Level = %v, want DEBUG", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %s, want json", cfg.Format)
	}
}

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf}), "worker")

	logger.Info("run started", "run_id", "abc")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if rec["component"] != "worker" || rec["run_id"] != "abc" {
		t.Errorf("record = %v", rec)
	}
}

func TestNew_TextFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "text", Output: &buf})

	logger.Debug("oculto")
	logger.Info("visible")

	if strings.Contains(buf.String(), "oculto") {
		t.Error("debug record should be filtered")
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Error("info record missing")
	}
}
