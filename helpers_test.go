package kbench

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0)

// stepClock advances by step on every reading
type stepClock struct {
	now  time.Time
	step time.Duration
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{now: epoch, step: step}
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

// manualClock only moves when advanced
type manualClock struct {
	now time.Time
}

func newManualClock() *manualClock { return &manualClock{now: epoch} }

func (c *manualClock) Now() time.Time          { return c.now }
func (c *manualClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// backwardsClock loses a second on every reading
type backwardsClock struct {
	now time.Time
}

func (c *backwardsClock) Now() time.Time {
	c.now = c.now.Add(-time.Second)
	return c.now
}

type zeroClock struct{}

func (zeroClock) Now() time.Time { return time.Time{} }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runOrFail runs c and fails the test on a harness error
func runOrFail[In, Out any](t testing.TB, c *Comparison[In, Out]) *Report {
	t.Helper()
	report, err := c.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	return report
}

// resultOrFail looks up a named result and fails the test if it is missing
func resultOrFail(t testing.TB, r *Report, name string) Result {
	t.Helper()
	res, ok := r.Result(name)
	require.True(t, ok, "no result for %q", name)
	return res
}
