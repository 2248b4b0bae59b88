package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"mercator-hq/beacon/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid JSON config",
			config: Config{Level: "info", Format: "json", RedactPII: true},
		},
		{
			name:   "valid text config",
			config: Config{Level: "debug", Format: "text"},
		},
		{
			name:   "valid console config",
			config: Config{Level: "warn", Format: "console", Async: true, BufferSize: 10},
		},
		{
			name:    "invalid log level",
			config:  Config{Level: "invalid", Format: "json"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  Config{Level: "info", Format: "invalid"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if logger != nil {
				_ = logger.Shutdown()
			}
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "warn", Format: "json", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("output contains filtered messages: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("output missing enabled messages: %s", out)
	}
	if logger.Enabled(slog.LevelInfo) {
		t.Error("Enabled(info) = true at warn level")
	}
}

func TestLogger_JSONFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.With("component", "tracer").Info("span closed", "duration_ms", 12)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "span closed" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["component"] != "tracer" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["duration_ms"] != float64(12) {
		t.Errorf("duration_ms = %v", entry["duration_ms"])
	}
}

func TestLogger_Redaction(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", RedactPII: true, Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("incoming request",
		"authorization", "Bearer abcdefghijklmnop",
		"note", "contact alice@example.com",
	)

	out := buf.String()
	if strings.Contains(out, "abcdefghijklmnop") {
		t.Errorf("authorization value leaked: %s", out)
	}
	if strings.Contains(out, "alice@") {
		t.Errorf("email leaked: %s", out)
	}
	if !strings.Contains(out, "example.com") {
		t.Errorf("email domain should be kept: %s", out)
	}
}

func TestLogger_ContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "debug", Format: "json", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithSpanID(ctx, "span-1")
	ctx = WithRequestID(ctx, "req-1")

	logger.InfoContext(ctx, "hello")

	for _, want := range []string{`"trace_id":"trace-1"`, `"span_id":"span-1"`, `"request_id":"req-1"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %s: %s", want, buf.String())
		}
	}

	buf.Reset()
	logger.WithContext(ctx).Warn("again")
	if !strings.Contains(buf.String(), `"trace_id":"trace-1"`) {
		t.Errorf("WithContext() output missing trace_id: %s", buf.String())
	}
}

type failingHandler struct{}

func (failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }
func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h failingHandler) WithGroup(string) slog.Handler           { return h }

func TestLogger_SinkFanout(t *testing.T) {
	primary := &bytes.Buffer{}
	secondary := &bytes.Buffer{}

	logger, err := New(Config{
		Level:  "info",
		Format: "json",
		Writer: primary,
		Sinks: []slog.Handler{
			slog.NewTextHandler(secondary, nil),
			failingHandler{},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("fan out", "k", "v")
	logger.Info("fan out again")

	if !strings.Contains(primary.String(), "fan out") {
		t.Errorf("primary missing record: %s", primary.String())
	}
	if !strings.Contains(secondary.String(), "k=v") {
		t.Errorf("secondary sink missing record: %s", secondary.String())
	}
	if got := logger.SinkFailures(); got != 2 {
		t.Errorf("SinkFailures() = %d, want 2", got)
	}
}

// blockingWriter blocks every write until release is closed.
type blockingWriter struct {
	release chan struct{}
	mu      sync.Mutex
	buf     bytes.Buffer
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.release
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *blockingWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestLogger_AsyncDropsOnOverflow(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{})}
	logger, err := New(Config{Level: "info", Format: "json", Writer: w, Async: true, BufferSize: 2})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		logger.Info("burst", "i", i)
	}

	if logger.DroppedCount() == 0 {
		t.Error("DroppedCount() = 0, want drops when the buffer is full")
	}

	close(w.release)
	if err := logger.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !strings.Contains(w.String(), "burst") {
		t.Error("queued records were not flushed on Shutdown")
	}

	// Logging after shutdown is dropped rather than panicking.
	before := logger.DroppedCount()
	logger.Info("late")
	if logger.DroppedCount() != before+1 {
		t.Error("record logged after Shutdown was not counted as dropped")
	}
	_ = logger.Shutdown()
}

func TestLogger_AsyncWithAttrsSharesQueue(t *testing.T) {
	buf := &syncBuffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf, Async: true, BufferSize: 16})
	if err != nil {
		t.Fatal(err)
	}

	logger.With("component", "monitor").Info("derived")
	_ = logger.Shutdown()

	if !strings.Contains(buf.String(), `"component":"monitor"`) {
		t.Errorf("derived logger record missing: %s", buf.String())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNop(t *testing.T) {
	var l LevelLogger = Nop()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")

	if OrNop(nil) == nil {
		t.Error("OrNop(nil) = nil")
	}

	var _ LevelLogger = slog.Default()
	var _ LevelLogger = &Logger{}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LoggingConfig{Level: "debug", Format: "text", Async: true, BufferSize: 5})
	if cfg.Level != "debug" || cfg.Format != "text" || !cfg.Async || cfg.BufferSize != 5 {
		t.Errorf("FromConfig() = %+v", cfg)
	}
}
