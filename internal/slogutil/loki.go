package slogutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"greetd/internal/config"
)

const lokiPushPath = "/loki/api/v1/push"

// LokiHandler buffers records and pushes them to a Loki endpoint in batches.
// Delivery is best effort: push failures are dropped, never logged, so the
// handler cannot feed back into itself.
type LokiHandler struct {
	endpoint      string
	labels        map[string]string
	batchSize     int
	flushInterval time.Duration
	level         slog.Level
	client        *http.Client

	mu      sync.Mutex
	buffer  []lokiEntry
	stopped bool

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type lokiEntry struct {
	timestamp time.Time
	line      string
	level     string
}

type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

// NewLokiHandler creates a handler for cfg.Endpoint. baseLabels are merged
// under cfg.Labels; "host" defaults to the machine hostname.
func NewLokiHandler(cfg *config.RemoteLogConfig, baseLabels map[string]string, level slog.Level) (*LokiHandler, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errors.New("loki endpoint is required")
	}

	labels := make(map[string]string, len(baseLabels)+len(cfg.Labels)+1)
	for k, v := range baseLabels {
		labels[k] = v
	}
	for k, v := range cfg.Labels {
		labels[k] = v
	}
	if _, ok := labels["host"]; !ok {
		if hostname, err := os.Hostname(); err == nil {
			labels["host"] = hostname
		}
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	flushInterval := 5 * time.Second
	if cfg.FlushInterval != "" {
		d, err := time.ParseDuration(cfg.FlushInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid flush interval %q: %w", cfg.FlushInterval, err)
		}
		if d > 0 {
			flushInterval = d
		}
	}

	return &LokiHandler{
		endpoint:      strings.TrimSuffix(cfg.Endpoint, "/") + lokiPushPath,
		labels:        labels,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		level:         level,
		client:        &http.Client{Timeout: 10 * time.Second},
		buffer:        make([]lokiEntry, 0, batchSize),
		done:          make(chan struct{}),
	}, nil
}

// Start begins the periodic flush loop.
func (h *LokiHandler) Start() {
	h.wg.Add(1)
	go h.flushLoop()
}

// Stop ends the flush loop, pushes whatever is buffered and waits for
// in-flight pushes. Records handled afterwards are pushed synchronously.
// Safe to call more than once.
func (h *LokiHandler) Stop() error {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()
		close(h.done)
	})
	h.wg.Wait()

	if req, ok := h.drain(); ok {
		return h.send(req)
	}
	return nil
}

// Enabled implements slog.Handler.
func (h *LokiHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler.
func (h *LokiHandler) Handle(_ context.Context, r slog.Record) error {
	return h.handle(r, nil, nil)
}

func (h *LokiHandler) handle(r slog.Record, attrs []slog.Attr, groups []string) error {
	entry := lokiEntry{
		timestamp: r.Time,
		line:      formatLokiLine(r, attrs, groups),
		level:     levelString(r.Level),
	}

	h.mu.Lock()
	h.buffer = append(h.buffer, entry)
	if h.stopped {
		req := h.drainLocked()
		h.mu.Unlock()
		_ = h.send(req)
		return nil
	}
	if len(h.buffer) < h.batchSize {
		h.mu.Unlock()
		return nil
	}
	req := h.drainLocked()
	// Add before unlocking so Stop cannot be inside Wait with a zero count.
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		_ = h.send(req)
	}()
	return nil
}

// WithAttrs implements slog.Handler.
func (h *LokiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &lokiScope{parent: h, attrs: attrs}
}

// WithGroup implements slog.Handler.
func (h *LokiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &lokiScope{parent: h, groups: []string{name}}
}

// lokiScope carries attrs/groups for a LokiHandler without copying its buffer.
type lokiScope struct {
	parent *LokiHandler
	attrs  []slog.Attr
	groups []string
}

func (s *lokiScope) Enabled(ctx context.Context, level slog.Level) bool {
	return s.parent.Enabled(ctx, level)
}

func (s *lokiScope) Handle(_ context.Context, r slog.Record) error {
	return s.parent.handle(r, s.attrs, s.groups)
}

func (s *lokiScope) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(s.attrs)+len(attrs))
	merged = append(merged, s.attrs...)
	for _, a := range attrs {
		merged = append(merged, prefixAttr(a, s.groups))
	}
	return &lokiScope{parent: s.parent, attrs: merged, groups: s.groups}
}

func (s *lokiScope) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	groups := make([]string, 0, len(s.groups)+1)
	groups = append(groups, s.groups...)
	groups = append(groups, name)
	return &lokiScope{parent: s.parent, attrs: s.attrs, groups: groups}
}

func prefixAttr(a slog.Attr, groups []string) slog.Attr {
	if len(groups) == 0 {
		return a
	}
	return slog.Attr{Key: strings.Join(groups, ".") + "." + a.Key, Value: a.Value}
}

// formatLokiLine renders a logfmt-style line: level=info msg="..." k=v
func formatLokiLine(r slog.Record, attrs []slog.Attr, groups []string) string {
	var buf bytes.Buffer
	buf.WriteString("level=")
	buf.WriteString(levelString(r.Level))
	buf.WriteString(" msg=")
	buf.WriteString(strconv.Quote(r.Message))

	for _, a := range attrs {
		buf.WriteByte(' ')
		writeLokiAttr(&buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteByte(' ')
		writeLokiAttr(&buf, prefixAttr(a, groups))
		return true
	})
	return buf.String()
}

func writeLokiAttr(buf *bytes.Buffer, a slog.Attr) {
	buf.WriteString(a.Key)
	buf.WriteByte('=')

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		buf.WriteString(strconv.Quote(v.String()))
	case slog.KindInt64:
		buf.WriteString(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		buf.WriteString(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		buf.WriteString(strconv.FormatFloat(v.Float64(), 'f', -1, 64))
	case slog.KindBool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case slog.KindDuration:
		buf.WriteString(v.Duration().String())
	case slog.KindTime:
		buf.WriteString(v.Time().Format(time.RFC3339))
	default:
		buf.WriteString(strconv.Quote(fmt.Sprint(v.Any())))
	}
}

func (h *LokiHandler) flushLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if req, ok := h.drain(); ok {
				_ = h.send(req)
			}
		case <-h.done:
			return
		}
	}
}

// drain empties the buffer into a push request grouped by level.
func (h *LokiHandler) drain() (lokiPushRequest, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.buffer) == 0 {
		return lokiPushRequest{}, false
	}
	return h.drainLocked(), true
}

// drainLocked is drain for callers holding h.mu. The buffer must be non-empty.
func (h *LokiHandler) drainLocked() lokiPushRequest {
	entries := h.buffer
	h.buffer = make([]lokiEntry, 0, h.batchSize)

	byLevel := make(map[string][]lokiEntry)
	for _, e := range entries {
		byLevel[e.level] = append(byLevel[e.level], e)
	}

	req := lokiPushRequest{Streams: make([]lokiStream, 0, len(byLevel))}
	for level, group := range byLevel {
		labels := make(map[string]string, len(h.labels)+1)
		for k, v := range h.labels {
			labels[k] = v
		}
		labels["level"] = level

		values := make([][]string, len(group))
		for i, e := range group {
			values[i] = []string{strconv.FormatInt(e.timestamp.UnixNano(), 10), e.line}
		}
		req.Streams = append(req.Streams, lokiStream{Stream: labels, Values: values})
	}
	return req
}

func (h *LokiHandler) send(req lokiPushRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequest(http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("loki push: %s", resp.Status)
	}
	return nil
}
