package logging

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// fanoutHandler delivers each record to every enabled handler. A handler
// that fails is counted and skipped; the failure never reaches the caller.
type fanoutHandler struct {
	handlers []slog.Handler
	failures *atomic.Int64
}

func newFanoutHandler(handlers ...slog.Handler) *fanoutHandler {
	return &fanoutHandler{
		handlers: handlers,
		failures: new(atomic.Int64),
	}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, hh := range h.handlers {
		if !hh.Enabled(ctx, r.Level) {
			continue
		}
		if err := hh.Handle(ctx, r.Clone()); err != nil {
			h.failures.Add(1)
		}
	}
	return nil
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next, failures: h.failures}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithGroup(name)
	}
	return &fanoutHandler{handlers: next, failures: h.failures}
}

// Failures returns the number of failed sink writes.
func (h *fanoutHandler) Failures() int64 {
	return h.failures.Load()
}

// asyncEntry is a record waiting to be written by the drain goroutine.
type asyncEntry struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// asyncState is shared by an asyncHandler and every handler derived from
// it with WithAttrs or WithGroup.
type asyncState struct {
	entries chan asyncEntry
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// asyncHandler queues records for a single background writer. When the
// queue is full the record is dropped and counted.
type asyncHandler struct {
	next  slog.Handler
	state *asyncState
}

func newAsyncHandler(next slog.Handler, size int) *asyncHandler {
	st := &asyncState{entries: make(chan asyncEntry, size)}
	st.wg.Add(1)
	go st.run()
	return &asyncHandler{next: next, state: st}
}

func (s *asyncState) run() {
	defer s.wg.Done()
	for e := range s.entries {
		_ = e.handler.Handle(e.ctx, e.record)
	}
}

func (h *asyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *asyncHandler) Handle(ctx context.Context, r slog.Record) error {
	h.state.mu.RLock()
	defer h.state.mu.RUnlock()

	if h.state.closed {
		h.state.dropped.Add(1)
		return nil
	}

	select {
	case h.state.entries <- asyncEntry{ctx: context.WithoutCancel(ctx), record: r.Clone(), handler: h.next}:
	default:
		h.state.dropped.Add(1)
	}
	return nil
}

func (h *asyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &asyncHandler{next: h.next.WithAttrs(attrs), state: h.state}
}

func (h *asyncHandler) WithGroup(name string) slog.Handler {
	return &asyncHandler{next: h.next.WithGroup(name), state: h.state}
}

// Dropped returns the number of records dropped on overflow or after Stop.
func (h *asyncHandler) Dropped() int64 {
	return h.state.dropped.Load()
}

// Stop drains queued records and stops the writer. It is safe to call
// more than once.
func (h *asyncHandler) Stop() {
	h.state.mu.Lock()
	if h.state.closed {
		h.state.mu.Unlock()
		return
	}
	h.state.closed = true
	close(h.state.entries)
	h.state.mu.Unlock()

	h.state.wg.Wait()
}
