package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

// nopCloser is a no-op Closer for synchronous mode.
type nopCloser struct{}

func (nopCloser) Close() {}

// AsyncHandler wraps an slog.Handler with a buffered channel and workers so
// log emission never blocks the request path. Records are dropped when the
// buffer is full; the drop count is reported on Close.
type AsyncHandler struct {
	inner   slog.Handler
	ch      chan slog.Record
	wg      sync.WaitGroup
	dropped atomic.Int64
	once    sync.Once
}

// NewAsyncHandler creates an AsyncHandler with the given channel capacity
// and worker count.
func NewAsyncHandler(inner slog.Handler, chanSize, workers int) *AsyncHandler {
	h := &AsyncHandler{
		inner: inner,
		ch:    make(chan slog.Record, chanSize),
	}
	for range workers {
		h.wg.Add(1)
		go h.drain()
	}
	return h
}

func (h *AsyncHandler) drain() {
	defer h.wg.Done()
	for rec := range h.ch {
		_ = h.inner.Handle(context.Background(), rec)
	}
}

// Enabled reports whether the inner handler handles records at the level.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record, dropping it if the buffer is full.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error {
	select {
	case h.ch <- rec.Clone():
	default:
		h.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler whose inner handler carries the attrs.
// The channel and workers are shared with the parent.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &asyncChild{parent: h, inner: h.inner.WithAttrs(attrs)}
}

// WithGroup returns a handler whose inner handler carries the group.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &asyncChild{parent: h, inner: h.inner.WithGroup(name)}
}

// Close drains remaining records and stops the workers.
func (h *AsyncHandler) Close() {
	h.once.Do(func() {
		close(h.ch)
		h.wg.Wait()
		if n := h.dropped.Load(); n > 0 {
			_ = h.inner.Handle(context.Background(), dropRecord(n))
		}
	})
}

func dropRecord(n int64) slog.Record {
	rec := slog.NewRecord(time.Now(), slog.LevelWarn, "async logger dropped records", 0)
	rec.AddAttrs(slog.Int64("dropped", n))
	return rec
}

// asyncChild shares the parent's queue but renders with derived attrs.
type asyncChild struct {
	parent *AsyncHandler
	inner  slog.Handler
}

func (c *asyncChild) Enabled(ctx context.Context, level slog.Level) bool {
	return c.inner.Enabled(ctx, level)
}

func (c *asyncChild) Handle(ctx context.Context, rec slog.Record) error {
	// Render synchronously through the derived handler; the parent queue is
	// only safe for the root's inner handler.
	return c.inner.Handle(ctx, rec)
}

func (c *asyncChild) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &asyncChild{parent: c.parent, inner: c.inner.WithAttrs(attrs)}
}

func (c *asyncChild) WithGroup(name string) slog.Handler {
	return &asyncChild{parent: c.parent, inner: c.inner.WithGroup(name)}
}
