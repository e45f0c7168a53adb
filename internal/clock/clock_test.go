// internal/clock/clock_test.go
package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func TestDeadline_OverrunDoesNotSleep(t *testing.T) {
	fc := &fakeClock{now: time.Now()}
	d := NewDeadline(fc, time.Hour)

	// Pretend the cycle took two periods.
	fc.now = fc.now.Add(2 * time.Hour)

	start := time.Now()
	require.True(t, d.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, fc.now, d.next)
}

func TestDeadline_StopsOnCancel(t *testing.T) {
	d := NewDeadline(Real{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, d.Wait(ctx))
}

func TestDeadline_SleepsUntilGrid(t *testing.T) {
	start := time.Now()
	d := NewDeadline(Real{}, 30*time.Millisecond)

	time.Sleep(10 * time.Millisecond) // work
	require.True(t, d.Wait(context.Background()))
	require.True(t, d.Wait(context.Background()))

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}
