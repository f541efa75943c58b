package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	t.Parallel()

	hour, minute, err := parseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, hour)
	assert.Equal(t, 30, minute)

	hour, minute, err = parseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23, hour)
	assert.Equal(t, 59, minute)
}

func TestParseClockRejectsBadInput(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"", "9:30 am", "25:00", "12:75", "noon"} {
		_, _, err := parseClock(value)
		assert.Error(t, err, "value %q", value)
	}
}

func TestStartRejectsInvalidTime(t *testing.T) {
	t.Parallel()

	d := NewDailyScheduler("bad", nil)
	err := d.Start(context.Background(), func(time.Time) {})
	require.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	t.Parallel()

	d := NewDailyScheduler("12:00", time.UTC)
	require.NoError(t, d.Start(context.Background(), func(time.Time) {}))
	require.NoError(t, d.Stop(context.Background()))
	// Stopping twice is harmless.
	require.NoError(t, d.Stop(context.Background()))
}

func TestStopDuringLoopIsRaceFree(t *testing.T) {
	t.Parallel()

	d := NewDailyScheduler("12:00", time.UTC)
	ctx := context.Background()

	// Restart cycles interleave the loop goroutine with Stop resetting
	// the channel for the next Start.
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Start(ctx, func(time.Time) {}))
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = d.Stop(ctx)
		}()
		<-done
	}
	require.NoError(t, d.Stop(ctx))
}

func TestStartWithoutJobIsNoop(t *testing.T) {
	t.Parallel()

	d := NewDailyScheduler("12:00", nil)
	require.NoError(t, d.Start(context.Background(), nil))
	require.NoError(t, d.Stop(context.Background()))
}
