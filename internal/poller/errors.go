// internal/poller/errors.go
package poller

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/goburrow/serial"
)

// Fault codes for errors that expose none.
const (
	CodeGeneric  uint16 = 1
	CodeTimeout  uint16 = 0x107
	CodeCanceled uint16 = 0x108
)

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// Only equality matters: the poller compares codes to tell a persisting fault from a new one.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	if errors.Is(err, context.Canceled) {
		return CodeCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, serial.ErrTimeout) {
		return CodeTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return CodeTimeout
	}

	return CodeGeneric
}
