package contextutil

import (
	"context"
	"log/slog"
	"testing"
)

func TestLoggerFromContextDefault(t *testing.T) {
	logger := LoggerFromContext(context.Background())
	if logger == nil {
		t.Fatal("LoggerFromContext() returned nil for empty context")
	}
	if logger != slog.Default() {
		t.Error("LoggerFromContext() should return the default logger when none is set")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	custom := slog.Default().With("request_id", "test")
	ctx := WithLogger(context.Background(), custom)

	if got := LoggerFromContext(ctx); got != custom {
		t.Error("LoggerFromContext() did not return the logger stored with WithLogger()")
	}
}
