package slogutil

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"", 0},
		{"invalid", 0},
		{"100", 100},
		{"100B", 100},
		{"100b", 100},
		{"1KB", 1024},
		{"10kb", 10240},
		{"1MB", 1024 * 1024},
		{" 10MB ", 10 * 1024 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"1.5MB", int64(1.5 * 1024 * 1024)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseSize(tt.input); got != tt.expected {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRotatingFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nested", "greetd.log")

	rf, err := OpenRotatingFile(path, 100, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	defer rf.Close()

	if _, err := rf.Write([]byte("hello world\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file should exist: %v", err)
	}
}

func TestRotatingFile_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greetd.log")

	rf, err := OpenRotatingFile(path, 50, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}

	line := append(bytes.Repeat([]byte{'a'}, 29), '\n')
	for i := 0; i < 5; i++ {
		if _, err := rf.Write(line); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should exist: %v", filepath.Base(p), err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("backups beyond maxBackups should be removed")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) > 50 {
		t.Errorf("current file is %d bytes, want <= 50", len(data))
	}
}

func TestRotatingFile_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greetd.log")

	rf, err := OpenRotatingFile(path, 20, 0)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	defer rf.Close()

	_, _ = rf.Write([]byte("0123456789abcdef\n"))
	_, _ = rf.Write([]byte("second line\n"))

	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("no backup should be kept when maxBackups is 0")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "second line\n" {
		t.Errorf("file content = %q, want only the second line", data)
	}
}

func TestRotatingFile_WriteAfterClose(t *testing.T) {
	tests := []struct {
		name    string
		maxSize int64
	}{
		{"no rotation", 0},
		{"write would rotate", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "greetd.log")
			rf, err := OpenRotatingFile(path, tt.maxSize, 1)
			if err != nil {
				t.Fatal(err)
			}
			_ = rf.Close()

			n, err := rf.Write([]byte("after close\n"))
			if !errors.Is(err, os.ErrClosed) || n != 0 {
				t.Errorf("Write after Close = %d, %v; want 0, os.ErrClosed", n, err)
			}
			if err := rf.Close(); err != nil {
				t.Errorf("second Close should be a no-op, got %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if len(data) != 0 {
				t.Errorf("file content = %q, want empty", data)
			}
			if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
				t.Error("no rotation should happen after Close")
			}
		})
	}
}
