package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupWriter_FiltersByLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	SetupWriter(&buf, "warn")
	slog.Info("hidden line")
	slog.Warn("visible line")

	out := buf.String()
	if strings.Contains(out, "hidden line") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "visible line") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestAttrs(t *testing.T) {
	ctx := WithTraceID(context.Background(), "t1")
	ctx = WithSessionID(ctx, "s1")
	ctx = WithConfirmationID(ctx, "c1")

	attrs := Attrs(ctx)
	if len(attrs) != 6 {
		t.Fatalf("expected 3 key/value pairs, got %v", attrs)
	}
	if GetConfirmationID(ctx) != "c1" {
		t.Fatalf("unexpected confirmation id %q", GetConfirmationID(ctx))
	}
	if len(Attrs(context.Background())) != 0 {
		t.Fatal("expected no attrs on empty context")
	}
}
