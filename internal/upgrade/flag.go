// internal/upgrade/flag.go
package upgrade

import "sync/atomic"

// Flag marks a maintenance window. Both periodic loops poll it and skip
// their pass while it is set.
type Flag struct {
	on atomic.Bool
}

// Begin sets the flag. It reports false if it was already set.
func (f *Flag) Begin() bool { return f.on.CompareAndSwap(false, true) }

// End clears the flag.
func (f *Flag) End() { f.on.Store(false) }

// InProgress reports whether a maintenance window is open.
func (f *Flag) InProgress() bool { return f.on.Load() }
