// internal/logstream/tee.go
package logstream

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Tee is a slog.Handler that writes every record to the wrapped handler and
// also pushes it, formatted as one text line, into a Queue.
type Tee struct {
	next   slog.Handler
	stream slog.Handler
}

// NewTee wraps next. Records at or above level are also streamed to q.
func NewTee(next slog.Handler, q *Queue, level slog.Leveler) *Tee {
	return &Tee{
		next:   next,
		stream: slog.NewTextHandler(queueWriter{q}, &slog.HandlerOptions{Level: level}),
	}
}

func (t *Tee) Enabled(ctx context.Context, l slog.Level) bool {
	return t.next.Enabled(ctx, l) || t.stream.Enabled(ctx, l)
}

func (t *Tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if t.next.Enabled(ctx, r.Level) {
		errs = append(errs, t.next.Handle(ctx, r.Clone()))
	}
	if t.stream.Enabled(ctx, r.Level) {
		errs = append(errs, t.stream.Handle(ctx, r))
	}
	return errors.Join(errs...)
}

func (t *Tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Tee{next: t.next.WithAttrs(attrs), stream: t.stream.WithAttrs(attrs)}
}

func (t *Tee) WithGroup(name string) slog.Handler {
	return &Tee{next: t.next.WithGroup(name), stream: t.stream.WithGroup(name)}
}

// queueWriter receives exactly one formatted record per Write.
type queueWriter struct{ q *Queue }

func (w queueWriter) Write(p []byte) (int, error) {
	w.q.Push(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
