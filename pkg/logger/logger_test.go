package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}

	// Re-initialization should be safe
	if err := Init(); err != nil {
		t.Fatalf("failed to re-initialize logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after re-initialization")
	}
}

func TestLoggerBasic(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	logger := Get()
	logger.Debug(ctx, "debug message", String("k", "v"))
	logger.Info(ctx, "info message", Int("n", 1), Bool("ok", true))
	logger.Warn(ctx, "warn message", Any("payload", map[string]int{"a": 1}))
	logger.Error(ctx, "error message", Error(context.Canceled))
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	named := Named("worker")
	if named == nil {
		t.Fatal("named logger is nil")
	}
	named.Info(context.Background(), "named message")

	child := named.Named("child")
	if child == nil {
		t.Fatal("child logger is nil")
	}
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	valid := []string{"debug", "info", "warn", "warning", "error", "DEBUG", ""}
	for _, level := range valid {
		if err := SetLevelString(level); err != nil {
			t.Errorf("expected level %q to parse, got error: %v", level, err)
		}
	}

	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected unknown level to return an error")
	}

	// Restore the default for other tests
	SetLevel(slog.LevelInfo)
}

func TestFieldConstructors(t *testing.T) {
	cases := []struct {
		field Field
		key   string
	}{
		{String("s", "v"), "s"},
		{Int("i", 42), "i"},
		{Bool("b", true), "b"},
		{Any("a", struct{}{}), "a"},
		{Error(context.DeadlineExceeded), "error"},
	}
	for _, tc := range cases {
		if tc.field.Key != tc.key {
			t.Errorf("expected key %q, got %q", tc.key, tc.field.Key)
		}
	}
}
