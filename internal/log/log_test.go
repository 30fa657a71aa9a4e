package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug("debug line")
	Info("info line")
	Warn("warn line")
	Error("error line", errors.New("boom"))

	out := buf.String()
	for _, skipped := range []string{"debug line", "info line"} {
		if strings.Contains(out, skipped) {
			t.Fatalf("output contains %q below min level:\n%s", skipped, out)
		}
	}
	for _, kept := range []string{"[WARN] warn line", "[ERROR] error line err=boom"} {
		if !strings.Contains(out, kept) {
			t.Fatalf("output missing %q:\n%s", kept, out)
		}
	}
}

func TestKeyValues(t *testing.T) {
	buf := capture(t, LevelDebug)

	Info("resolved", "day", "2025-03-14", "columns", 3, 42, "skipped", "summary", "team sync", "dangling")

	out := buf.String()
	want := ` [INFO] resolved day=2025-03-14 columns=3 summary="team sync"`
	if !strings.Contains(out, want) {
		t.Fatalf("output %q does not contain %q", out, want)
	}
	if strings.Contains(out, "dangling") || strings.Contains(out, "skipped") {
		t.Fatalf("odd or non-string keys leaked: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"", LevelInfo, true},
		{"Warning", LevelWarn, true},
		{"ERROR", LevelError, true},
		{"loud", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
