// internal/logstream/queue.go
package logstream

import (
	"context"
	"sync"
	"unicode/utf8"
)

// MaxLineBytes caps one queued line.
const MaxLineBytes = 250

// Queue is a bounded FIFO of formatted log lines. When full, the oldest
// line is dropped so that logging never blocks.
type Queue struct {
	mu      sync.Mutex
	lines   []string
	cap     int
	dropped uint64
	notify  chan struct{}
}

// NewQueue creates a queue holding at most capacity lines.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		lines:  make([]string, 0, capacity),
		cap:    capacity,
		notify: make(chan struct{}, 1),
	}
}

// Push appends line, truncated to at most MaxLineBytes on a rune boundary.
func (q *Queue) Push(line string) {
	line = truncate(line, MaxLineBytes)

	q.mu.Lock()
	if len(q.lines) == q.cap {
		copy(q.lines, q.lines[1:])
		q.lines = q.lines[:len(q.lines)-1]
		q.dropped++
	}
	q.lines = append(q.lines, line)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryNext pops the oldest line without waiting.
func (q *Queue) TryNext() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lines) == 0 {
		return "", false
	}
	line := q.lines[0]
	copy(q.lines, q.lines[1:])
	q.lines = q.lines[:len(q.lines)-1]
	return line, true
}

// Next blocks until a line is available or ctx is done.
func (q *Queue) Next(ctx context.Context) (string, error) {
	for {
		if line, ok := q.TryNext(); ok {
			return line, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Len returns the number of queued lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

// Dropped returns how many lines were discarded on overflow.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
