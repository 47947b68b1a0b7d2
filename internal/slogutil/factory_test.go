package slogutil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"greetd/internal/config"
)

func TestLoggerFactory_Level(t *testing.T) {
	debug := slog.LevelDebug

	tests := []struct {
		name     string
		cfgLevel string
		override *slog.Level
		want     slog.Level
	}{
		{"config level", "warn", nil, slog.LevelWarn},
		{"empty config", "", nil, slog.LevelInfo},
		{"override wins", "error", &debug, slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewLoggerFactory(t.TempDir(), config.LoggingConfig{Level: tt.cfgLevel}, tt.override)
			if got := f.Level(); got != tt.want {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoggerFactory_ConsoleHuman(t *testing.T) {
	var buf bytes.Buffer
	f := NewLoggerFactory(t.TempDir(), config.LoggingConfig{Format: "human", Level: "info"}, nil)
	defer f.Close()

	logger, err := f.ServerLogger(&buf)
	if err != nil {
		t.Fatalf("ServerLogger() error = %v", err)
	}
	logger.Info("hello", "k", "v")

	if !strings.Contains(buf.String(), "[info] hello | k=v") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestLoggerFactory_ConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewLoggerFactory(t.TempDir(), config.LoggingConfig{Format: "json", Level: "info"}, nil)
	defer f.Close()

	logger, err := f.ServerLogger(&buf)
	if err != nil {
		t.Fatalf("ServerLogger() error = %v", err)
	}
	logger.Info("hello", "k", "v")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "hello" || entry["k"] != "v" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestLoggerFactory_File(t *testing.T) {
	root := t.TempDir()
	var console bytes.Buffer

	f := NewLoggerFactory(root, config.LoggingConfig{
		Format:     "human",
		Level:      "info",
		File:       "greetd.log",
		MaxSize:    "1MB",
		MaxBackups: 1,
	}, nil)

	logger, err := f.ServerLogger(&console)
	if err != nil {
		t.Fatalf("ServerLogger() error = %v", err)
	}
	logger.Info("to file")
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if console.Len() != 0 {
		t.Errorf("console should be empty when logging to a file, got %q", console.String())
	}
	data, err := os.ReadFile(filepath.Join(root, "greetd.log"))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file content = %q", data)
	}
}

func TestLoggerFactory_FileError(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	f := NewLoggerFactory(root, config.LoggingConfig{File: "blocker/greetd.log"}, nil)
	if _, err := f.ServerLogger(&bytes.Buffer{}); err == nil {
		t.Error("ServerLogger() should fail when the log file cannot be opened")
	}
}

func TestLoggerFactory_RemoteTee(t *testing.T) {
	rec := &lokiRecorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	var console bytes.Buffer
	f := NewLoggerFactory(t.TempDir(), config.LoggingConfig{
		Format: "human",
		Level:  "info",
		Remote: config.RemoteLogConfig{Endpoint: server.URL, FlushInterval: "1h"},
	}, nil)

	logger, err := f.ServerLogger(&console)
	if err != nil {
		t.Fatalf("ServerLogger() error = %v", err)
	}
	logger.Info("shipped")
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !strings.Contains(console.String(), "shipped") {
		t.Errorf("console missing record: %q", console.String())
	}
	lines := rec.lines()
	if len(lines) != 1 || !strings.Contains(lines[0], `msg="shipped"`) {
		t.Errorf("loki lines = %v", lines)
	}
}
