// internal/status/constants.go
package status

// Presentation constants.
// Consumers parse the snapshot by tag, so these MUST NOT be configurable.

// ---- TIMESTAMPS ----

// ShortTSLayout is the layout of every timestamp shown in the snapshot
// and sent in measurement payloads.
const ShortTSLayout = "2006-01-02@15:04:05"

// Placeholders shown until the matching event happened at least once.
const (
	NoRead    = "-no read-"
	NoError   = "-no error-"
	NoPublish = "-no publish-"
)

// NoErrorText is the last-error text before the first read fault.
const NoErrorText = "OK"

// ---- FAULT CODES ----

// FaultNone marks "no current distinct read error".
const FaultNone uint16 = 0
