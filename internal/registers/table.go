// internal/registers/table.go
package registers

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
)

var (
	// ErrEmptyTable is returned when a table is built without descriptors.
	ErrEmptyTable = errors.New("registers: at least one descriptor required")

	// ErrBadCID is returned when descriptor ids are not 0..N-1 in order.
	ErrBadCID = errors.New("registers: cid must be zero-based and contiguous")
)

// Descriptor is the static description of one monitored quantity.
// Built once at startup, immutable thereafter.
type Descriptor struct {
	CID     int     // position in the table; the bus client indexes by it
	Name    string  // display name, also the topic leaf
	Unit    string  // physical unit
	Address uint16  // first input register of the float32 value
	Digits  int     // decimal precision for display and change detection
	HasPrio bool    // eligible for every publish cycle
	Min     float64 // advisory
	Max     float64 // advisory
	Initial float64 // value shown before the first successful read
}

// Reading is a copy of one entry at a point in time.
type Reading struct {
	Value float64
	Dirty bool
}

// entry pairs the current value with its dirty flag.
// Each pair is consistent on its own; there is no cross-entry transaction.
type entry struct {
	mu    sync.Mutex
	value float64
	dirty bool
}

// Table is the fixed ordered list of monitored quantities.
//
// Writer discipline:
//   - the poller is the only caller of Apply (value, dirty false->true)
//   - the publisher is the only caller of ClearDirtyIf (dirty true->false)
//
// Any goroutine may call Get.
type Table struct {
	descs   []Descriptor
	entries []entry
}

// NewTable validates the descriptor list and allocates one entry per descriptor.
func NewTable(descs []Descriptor) (*Table, error) {
	if len(descs) == 0 {
		return nil, ErrEmptyTable
	}

	seen := make(map[string]struct{}, len(descs))
	for i, d := range descs {
		if d.CID != i {
			return nil, fmt.Errorf("%w: index %d has cid %d", ErrBadCID, i, d.CID)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("registers: cid %d: name required", i)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("registers: cid %d: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = struct{}{}
		if d.Digits < 0 || d.Digits > MaxDigits {
			return nil, fmt.Errorf("registers: cid %d: digits %d out of range 0..%d", i, d.Digits, MaxDigits)
		}
	}

	t := &Table{
		descs:   append([]Descriptor(nil), descs...),
		entries: make([]entry, len(descs)),
	}
	for i := range t.entries {
		t.entries[i].value = descs[i].Initial
	}
	return t, nil
}

// MaxDigits bounds Descriptor.Digits.
const MaxDigits = 6

// Size returns the fixed number of registers.
func (t *Table) Size() int { return len(t.descs) }

// Descriptor returns the static descriptor at index i.
func (t *Table) Descriptor(i int) Descriptor { return t.descs[i] }

// Descriptors returns a copy of all descriptors in cid order.
func (t *Table) Descriptors() []Descriptor {
	return append([]Descriptor(nil), t.descs...)
}

// Get returns the current value and dirty flag of entry i.
func (t *Table) Get(i int) Reading {
	e := &t.entries[i]
	e.mu.Lock()
	defer e.mu.Unlock()
	return Reading{Value: e.value, Dirty: e.dirty}
}

// Apply stores a freshly read value for entry i and runs the change gate.
// It reports whether the entry is dirty afterwards.
//
// While the entry is already dirty the value is stored without re-running the
// comparison, so the entry stays queued regardless of further movement.
func (t *Table) Apply(i int, v float64) bool {
	digits := t.descs[i].Digits
	e := &t.entries[i]

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.dirty {
		e.dirty = Changed(e.value, v, digits)
	}
	e.value = v
	return e.dirty
}

// ClearDirtyIf marks entry i as published when the stored value is still the
// one that was sent. If a newer value arrived meanwhile the entry stays dirty
// and false is returned.
func (t *Table) ClearDirtyIf(i int, published float64) bool {
	e := &t.entries[i]
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.value != published {
		return false
	}
	e.dirty = false
	return true
}

// Changed reports whether prev and next differ once both are rounded to digits decimals.
func Changed(prev, next float64, digits int) bool {
	return scaled(prev, digits) != scaled(next, digits)
}

// Round rounds v to digits decimal places (half away from zero).
func Round(v float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(v*p) / p
}

// Format renders v with exactly digits decimals.
func Format(v float64, digits int) string {
	return strconv.FormatFloat(Round(v, digits), 'f', digits, 64)
}

func scaled(v float64, digits int) float64 {
	return math.Round(v * math.Pow10(digits))
}
