package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/safedesk/safedesk/internal/config"
)

func TestNew_ReturnsUsableCloser(t *testing.T) {
	tests := []struct {
		name  string
		async bool
	}{
		{"sync", false},
		{"async", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, closer := New(config.Logging{
				Level:   "info",
				Service: "safedesk",
				Async:   tt.async,
			})
			if log == nil {
				t.Fatal("expected a logger")
			}
			log.Info("startup")
			// The shutdown path calls Close; it must be safe to call twice.
			closer.Close()
			closer.Close()
		})
	}
}

func TestAsyncHandler_FlushOnClose(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	h := NewAsyncHandler(inner, 64, 2)
	log := slog.New(h)

	for range 10 {
		log.Info("turn completed")
	}
	h.Close()

	out := buf.String()
	if got := strings.Count(out, "turn completed"); got != 10 {
		t.Errorf("flushed %d records, want 10\noutput: %s", got, out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}