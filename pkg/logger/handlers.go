package logger

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"sync"
)

// AsyncHandler buffers records and hands them to the wrapped handler from a
// single background goroutine, so callers never block on slow output.
// When the buffer is full, a record blocks until a slot frees up, unless
// dropOnFull is set, in which case it is discarded. Handle must not be
// called after Close.
type AsyncHandler struct {
	next       slog.Handler
	records    chan slog.Record
	dropOnFull bool
	closeOnce  sync.Once
	done       chan struct{}
}

func NewAsyncHandler(next slog.Handler, bufferSize int, dropOnFull bool) *AsyncHandler {
	h := &AsyncHandler{
		next:       next,
		records:    make(chan slog.Record, bufferSize),
		dropOnFull: dropOnFull,
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *AsyncHandler) run() {
	defer close(h.done)
	for r := range h.records {
		_ = h.next.Handle(context.Background(), r)
	}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.dropOnFull {
		select {
		case h.records <- r:
		default:
		}
		return nil
	}
	h.records <- r
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), records: h.records, dropOnFull: h.dropOnFull, done: h.done}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), records: h.records, dropOnFull: h.dropOnFull, done: h.done}
}

// Close stops accepting new records and waits for the buffered ones to drain.
func (h *AsyncHandler) Close() {
	h.closeOnce.Do(func() {
		close(h.records)
	})
	<-h.done
}

// SamplingHandler passes through a random fraction of records. Errors and
// above always pass, since dropping failures defeats the point of sampling.
type SamplingHandler struct {
	next slog.Handler
	rate float64
}

func NewSamplingHandler(next slog.Handler, rate float64) *SamplingHandler {
	return &SamplingHandler{next: next, rate: rate}
}

func (h *SamplingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SamplingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError || rand.Float64() < h.rate {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *SamplingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SamplingHandler{next: h.next.WithAttrs(attrs), rate: h.rate}
}

func (h *SamplingHandler) WithGroup(name string) slog.Handler {
	return &SamplingHandler{next: h.next.WithGroup(name), rate: h.rate}
}

var (
	emailRegex  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	ccRegex     = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
	redactedKey = map[string]bool{"email": true, "cc": true, "password": true, "ssn": true, "token": true}
)

// RedactHandler masks attribute values that look like emails or card
// numbers, and blanks values under known-sensitive keys outright.
type RedactHandler struct {
	next slog.Handler
}

func NewRedactHandler(next slog.Handler) *RedactHandler {
	return &RedactHandler{next: next}
}

func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		nr.AddAttrs(redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, nr)
}

func redactAttr(a slog.Attr) slog.Attr {
	if redactedKey[a.Key] {
		return slog.String(a.Key, "[REDACTED]")
	}
	if a.Value.Kind() == slog.KindString {
		v := a.Value.String()
		v = emailRegex.ReplaceAllString(v, "[REDACTED]")
		v = ccRegex.ReplaceAllString(v, "[REDACTED]")
		return slog.String(a.Key, v)
	}
	return a
}

func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactHandler{next: h.next.WithAttrs(redacted)}
}

func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{next: h.next.WithGroup(name)}
}
