package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"housing/config"
)

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "housing.log")
	cfg := config.DefaultConfig().Log
	cfg.File = path
	cfg.Format = "json"

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("model loaded")
	logger.Debug("filtered out")
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line at info level, got %d: %s", len(lines), data)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "model loaded" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultConfig().Log
	cfg.Level = "loud"
	if _, err := New(cfg); err == nil {
		t.Error("expected error for unknown level")
	}

	cfg = config.DefaultConfig().Log
	cfg.Format = "xml"
	if _, err := New(cfg); err == nil {
		t.Error("expected error for unknown format")
	}
}
