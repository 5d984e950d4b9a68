package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"drive-go/internal/config"
)

func TestTabHandler_Handle(t *testing.T) {
	ts := time.Date(2026, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			level:   slog.LevelInfo,
			message: "file uploaded",
			want:    "2026-06-15T14:30:45.000Z\tINFO\tfile uploaded\n",
		},
		{
			name:    "warn level",
			level:   slog.LevelWarn,
			message: "link token collision",
			want:    "2026-06-15T14:30:45.000Z\tWARN\tlink token collision\n",
		},
		{
			name:    "with record attrs",
			level:   slog.LevelInfo,
			message: "file renamed",
			attrs:   []slog.Attr{slog.String("file_id", "f-1"), slog.Int("version", 2)},
			want:    "2026-06-15T14:30:45.000Z\tINFO\tfile renamed\tfile_id=f-1\tversion=2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newTabHandler(&buf, slog.LevelDebug)

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestTabHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTabHandler(&buf, slog.LevelInfo)).
		With(slog.String("component", "api")).
		WithGroup("req")

	logger.Info("served", slog.Int("status", 200))

	got := buf.String()
	if !strings.Contains(got, "\tcomponent=api") {
		t.Errorf("missing pre-set attr component=api in %q", got)
	}
	if !strings.Contains(got, "\treq.status=200") {
		t.Errorf("missing grouped attr req.status=200 in %q", got)
	}
}

func TestTabHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	h := newTabHandler(&bytes.Buffer{}, slog.LevelInfo)
	h.attrs = []slog.Attr{slog.String("a", "1")}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*tabHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestTabHandler_Enabled(t *testing.T) {
	h := newTabHandler(&bytes.Buffer{}, slog.LevelWarn)
	tests := []struct {
		level slog.Level
		want  bool
	}{
		{slog.LevelDebug, false},
		{slog.LevelInfo, false},
		{slog.LevelWarn, true},
		{slog.LevelError, true},
	}
	for _, tt := range tests {
		if got := h.Enabled(context.Background(), tt.level); got != tt.want {
			t.Errorf("Enabled(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("writes to file and stderr", func(t *testing.T) {
		dir := t.TempDir()
		var stderr bytes.Buffer

		logger, f, err := newLogger(config.LogConfig{Level: "info", Format: "text", Dir: dir}, &stderr)
		if err != nil {
			t.Fatalf("newLogger() error = %v", err)
		}
		defer f.Close()

		logger.Debug("hidden")
		logger.Info("visible")

		data, err := os.ReadFile(filepath.Join(dir, "drive.log"))
		if err != nil {
			t.Fatalf("reading log file: %v", err)
		}
		if !strings.Contains(string(data), "visible") || strings.Contains(string(data), "hidden") {
			t.Errorf("log file = %q, want only the info record", data)
		}
		if stderr.String() != string(data) {
			t.Errorf("stderr = %q, want the same as the file", stderr.String())
		}
	})

	t.Run("json format without a log dir", func(t *testing.T) {
		var stderr bytes.Buffer

		logger, f, err := newLogger(config.LogConfig{Level: "debug", Format: "json"}, &stderr)
		if err != nil {
			t.Fatalf("newLogger() error = %v", err)
		}
		if f != nil {
			t.Error("newLogger() opened a file without a log dir")
		}

		logger.Debug("debug line", slog.String("k", "v"))
		if !strings.Contains(stderr.String(), `"msg":"debug line"`) {
			t.Errorf("stderr = %q, want a JSON record", stderr.String())
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		if _, _, err := newLogger(config.LogConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
			t.Fatal("newLogger() expected error for unknown level")
		}
	})
}
