// internal/status/snapshot.go
package status

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is a plain copy of the cycle statistics.
// Fields are copied under one lock but nothing links the read and
// publish halves transactionally.
type Snapshot struct {
	ReadSuccess   uint64
	ReadError     uint64
	ReadOKAt      time.Time // zero until the first clean read cycle
	ReadErrAt     time.Time // first time the current distinct fault was seen
	LastErrorCode uint16
	LastErrorText string
	ReadCycle     time.Duration

	PublishSuccess uint64
	PublishError   uint64
	PublishOKAt    time.Time
	PublishErrAt   time.Time
	PublishCycle   time.Duration
}

// Stats holds the counters and timestamps of the read and publish paths.
//
// The poller is the only caller of the Read* methods and the publisher the
// only caller of the Publish* methods. Snapshot may be called by anyone.
type Stats struct {
	mu sync.Mutex
	s  Snapshot
}

// NewStats returns empty statistics.
func NewStats() *Stats {
	return &Stats{s: Snapshot{LastErrorText: NoErrorText}}
}

// ReadCycleOK records a read cycle that completed without error.
// The current distinct fault is cleared so the next fault re-stamps.
func (st *Stats) ReadCycleOK(at time.Time, took time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.s.ReadSuccess++
	st.s.LastErrorCode = FaultNone
	st.s.ReadOKAt = at
	st.s.ReadCycle = took
}

// ReadCycleFailed records an aborted read cycle.
// Timestamp and text only move when code differs from the recorded fault.
// It reports whether the fault is new.
func (st *Stats) ReadCycleFailed(at time.Time, code uint16, text string, took time.Duration) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.s.ReadError++
	st.s.ReadCycle = took
	if code == st.s.LastErrorCode {
		return false
	}
	st.s.LastErrorCode = code
	st.s.LastErrorText = text
	st.s.ReadErrAt = at
	return true
}

// Published counts one register emission.
func (st *Stats) Published(ok bool) {
	st.mu.Lock()
	if ok {
		st.s.PublishSuccess++
	} else {
		st.s.PublishError++
	}
	st.mu.Unlock()
}

// PublishCycleDone stamps the end of a publish cycle.
func (st *Stats) PublishCycleDone(at time.Time, failed bool, took time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if failed {
		st.s.PublishErrAt = at
	} else {
		st.s.PublishOKAt = at
	}
	st.s.PublishCycle = took
}

// Snapshot returns a copy of the current statistics.
func (st *Stats) Snapshot() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// ShortTS formats t with ShortTSLayout in local time, or returns
// placeholder when t is zero.
func ShortTS(t time.Time, placeholder string) string {
	if t.IsZero() {
		return placeholder
	}
	return t.Local().Format(ShortTSLayout)
}

// Uptime renders d as "DDDDd:HH:MM:SS" with the day count right-aligned to 4.
func Uptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%4dd:%02d:%02d:%02d",
		secs/86400, (secs/3600)%24, (secs/60)%60, secs%60)
}
