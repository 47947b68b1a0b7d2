package slogutil

import (
	"io"
	"log/slog"
	"os"

	"greetd/internal/config"
	"greetd/internal/paths"
)

// LoggerFactory builds the process logger from config and owns the files
// and background pushers it opens.
type LoggerFactory struct {
	root     string
	config   config.LoggingConfig
	override *slog.Level
	closers  []io.Closer
	loki     *LokiHandler
}

// NewLoggerFactory creates a factory. override is the CLI level and wins
// over config when non-nil.
func NewLoggerFactory(root string, cfg config.LoggingConfig, override *slog.Level) *LoggerFactory {
	return &LoggerFactory{
		root:     root,
		config:   cfg,
		override: override,
	}
}

// Level returns the effective level: CLI override, then config, then info.
func (f *LoggerFactory) Level() slog.Level {
	if f.override != nil {
		return *f.override
	}
	if f.config.Level != "" {
		return LevelFromString(f.config.Level)
	}
	return slog.LevelInfo
}

// ServerLogger returns the logger for the serve process. Output goes to
// logging.file when set (rotated per maxSize/maxBackups), otherwise to
// console; logging.remote.endpoint adds a Loki tee.
func (f *LoggerFactory) ServerLogger(console io.Writer) (*slog.Logger, error) {
	level := f.Level()

	w := console
	if f.config.File != "" {
		fw, err := f.openFile(paths.Resolve(f.root, f.config.File))
		if err != nil {
			return nil, err
		}
		w = fw
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if f.config.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = NewLineHandler(w, opts)
	}

	if f.config.Remote.Endpoint != "" {
		loki, err := NewLokiHandler(&f.config.Remote, map[string]string{"service": "greetd"}, level)
		if err != nil {
			return nil, err
		}
		loki.Start()
		f.loki = loki
		handler = NewTeeHandler(handler, loki)
	}

	return slog.New(handler), nil
}

func (f *LoggerFactory) openFile(path string) (io.Writer, error) {
	if size := ParseSize(f.config.MaxSize); size > 0 {
		rf, err := OpenRotatingFile(path, size, f.config.MaxBackups)
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, rf)
		return rf, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	f.closers = append(f.closers, file)
	return file, nil
}

// Close flushes the Loki pusher and closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	if f.loki != nil {
		if err := f.loki.Stop(); err != nil {
			firstErr = err
		}
		f.loki = nil
	}
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
