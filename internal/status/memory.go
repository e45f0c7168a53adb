// internal/status/memory.go
package status

import "runtime"

// FreeMemory returns the heap memory the runtime holds but is not using, in bytes.
func FreeMemory() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapIdle - ms.HeapReleased
}
