// internal/watchdog/restart.go
package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"
)

// ExecRestarter counts down and re-executes the current binary in place.
type ExecRestarter struct {
	Countdown time.Duration
	Log       *slog.Logger

	// Before runs after the countdown, right before the exec.
	Before func()

	exec  func(argv0 string, argv []string, envv []string) error
	path  func() (string, error)
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewExecRestarter returns a restarter using syscall.Exec.
func NewExecRestarter(countdown time.Duration, log *slog.Logger) *ExecRestarter {
	if log == nil {
		log = slog.Default()
	}
	return &ExecRestarter{
		Countdown: countdown,
		Log:       log.With("component", "restarter"),
		exec:      syscall.Exec,
		path:      os.Executable,
		sleep:     sleepCtx,
	}
}

// Restart logs one line per remaining second, then replaces the process.
// A cancelled ctx does not abort the countdown; the decision is final.
func (r *ExecRestarter) Restart(ctx context.Context, reason string) error {
	r.Log.Warn("restart scheduled", "reason", reason, "in", r.Countdown)

	for left := r.Countdown; left > 0; left -= time.Second {
		r.Log.Warn("restarting", "in", left)
		step := time.Second
		if left < step {
			step = left
		}
		r.sleep(context.WithoutCancel(ctx), step)
	}

	if r.Before != nil {
		r.Before()
	}

	bin, err := r.path()
	if err != nil {
		return fmt.Errorf("watchdog: resolve executable: %w", err)
	}
	if err := r.exec(bin, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("watchdog: exec %s: %w", bin, err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
