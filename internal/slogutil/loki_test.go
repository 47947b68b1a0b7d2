package slogutil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"greetd/internal/config"
)

// lokiRecorder is a fake Loki push endpoint.
type lokiRecorder struct {
	mu       sync.Mutex
	requests []lokiPushRequest
}

func (l *lokiRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req lokiPushRequest
	if r.URL.Path == lokiPushPath && json.NewDecoder(r.Body).Decode(&req) == nil {
		l.mu.Lock()
		l.requests = append(l.requests, req)
		l.mu.Unlock()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (l *lokiRecorder) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, req := range l.requests {
		for _, s := range req.Streams {
			for _, v := range s.Values {
				out = append(out, v[1])
			}
		}
	}
	return out
}

func newRecord(level slog.Level, msg string) slog.Record {
	return slog.NewRecord(time.Now(), level, msg, 0)
}

func TestNewLokiHandler(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.RemoteLogConfig
		wantErr bool
	}{
		{"nil config", nil, true},
		{"empty endpoint", &config.RemoteLogConfig{}, true},
		{"valid config", &config.RemoteLogConfig{Endpoint: "http://localhost:3100"}, false},
		{"bad flush interval", &config.RemoteLogConfig{Endpoint: "http://localhost:3100", FlushInterval: "soon"}, true},
		{"custom batch", &config.RemoteLogConfig{Endpoint: "http://localhost:3100/", BatchSize: 50, FlushInterval: "10s"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := NewLokiHandler(tt.cfg, nil, slog.LevelInfo)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLokiHandler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if handler == nil {
				return
			}
			if !strings.HasSuffix(handler.endpoint, "3100"+lokiPushPath) {
				t.Errorf("endpoint = %q", handler.endpoint)
			}
			_ = handler.Stop()
		})
	}
}

func TestLokiHandler_Enabled(t *testing.T) {
	handler, err := NewLokiHandler(&config.RemoteLogConfig{Endpoint: "http://localhost:3100"}, nil, slog.LevelWarn)
	if err != nil {
		t.Fatalf("NewLokiHandler failed: %v", err)
	}
	defer func() { _ = handler.Stop() }()

	tests := []struct {
		level   slog.Level
		enabled bool
	}{
		{slog.LevelDebug, false},
		{slog.LevelInfo, false},
		{slog.LevelWarn, true},
		{slog.LevelError, true},
	}

	for _, tt := range tests {
		if got := handler.Enabled(context.Background(), tt.level); got != tt.enabled {
			t.Errorf("Enabled(%v) = %v, want %v", tt.level, got, tt.enabled)
		}
	}
}

func TestLokiHandler_BatchAndFinalFlush(t *testing.T) {
	rec := &lokiRecorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	handler, err := NewLokiHandler(&config.RemoteLogConfig{
		Endpoint:      server.URL,
		BatchSize:     3,
		FlushInterval: "1h",
	}, map[string]string{"service": "greetd"}, slog.LevelInfo)
	if err != nil {
		t.Fatalf("NewLokiHandler failed: %v", err)
	}
	handler.Start()

	for i := 0; i < 4; i++ {
		_ = handler.Handle(context.Background(), newRecord(slog.LevelInfo, "tick"))
	}
	if err := handler.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := len(rec.lines()); got != 4 {
		t.Errorf("received %d lines, want 4", got)
	}
	if err := handler.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestLokiHandler_Labels(t *testing.T) {
	rec := &lokiRecorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	handler, err := NewLokiHandler(&config.RemoteLogConfig{
		Endpoint: server.URL,
		Labels:   map[string]string{"env": "prod", "service": "override"},
	}, map[string]string{"service": "greetd", "host": "test-host"}, slog.LevelInfo)
	if err != nil {
		t.Fatalf("NewLokiHandler failed: %v", err)
	}

	_ = handler.Handle(context.Background(), newRecord(slog.LevelWarn, "hello"))
	_ = handler.Stop()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.requests) != 1 || len(rec.requests[0].Streams) != 1 {
		t.Fatalf("unexpected push requests: %+v", rec.requests)
	}
	labels := rec.requests[0].Streams[0].Stream
	want := map[string]string{"env": "prod", "service": "override", "host": "test-host", "level": "warn"}
	for k, v := range want {
		if labels[k] != v {
			t.Errorf("label %s = %q, want %q", k, labels[k], v)
		}
	}
}

func TestLokiHandler_LineFormat(t *testing.T) {
	rec := &lokiRecorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	handler, err := NewLokiHandler(&config.RemoteLogConfig{Endpoint: server.URL}, nil, slog.LevelInfo)
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(handler).With("component", "api").WithGroup("http")
	logger.Info("request served", "status", 200, "path", "/")
	_ = handler.Stop()

	lines := rec.lines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	want := `level=info msg="request served" component="api" http.status=200 http.path="/"`
	if lines[0] != want {
		t.Errorf("line = %s\nwant   %s", lines[0], want)
	}
}

func TestLokiHandler_RecordsAfterStop(t *testing.T) {
	rec := &lokiRecorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	handler, err := NewLokiHandler(&config.RemoteLogConfig{
		Endpoint:      server.URL,
		BatchSize:     2,
		FlushInterval: "1h",
	}, nil, slog.LevelInfo)
	if err != nil {
		t.Fatal(err)
	}
	handler.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = handler.Handle(context.Background(), newRecord(slog.LevelInfo, "racing"))
		}()
	}
	if err := handler.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	wg.Wait()

	_ = handler.Handle(context.Background(), newRecord(slog.LevelWarn, "late"))

	lines := rec.lines()
	if len(lines) != 9 {
		t.Fatalf("received %d lines, want 9 (none dropped around Stop)", len(lines))
	}
	if lines[len(lines)-1] != `level=warn msg="late"` {
		t.Errorf("last line = %q, want the record handled after Stop", lines[len(lines)-1])
	}
}
