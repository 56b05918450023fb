package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// breakerAt returns a breaker on a controllable clock.
func breakerAt(start time.Time, opts ...Option) (*Breaker, *time.Time) {
	now := start
	b := New(opts...)
	b.now = func() time.Time { return now }
	return b, &now
}

func openBreaker(t *testing.T, b *Breaker) {
	t.Helper()
	for i := 0; i < defaultFailureThreshold-1; i++ {
		open, change := b.RecordFailure()
		require.False(t, open)
		require.Equal(t, StateChange{}, change)
	}
	open, change := b.RecordFailure()
	require.True(t, open)
	require.Equal(t, StateChange{Opened: true}, change)
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := breakerAt(time.Unix(0, 0))

	assert.True(t, b.Allow())
	openBreaker(t, b)
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow())
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	b, _ := breakerAt(time.Unix(0, 0))

	for i := 0; i < defaultFailureThreshold-1; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()

	open, _ := b.RecordFailure()
	assert.False(t, open, "the streak restarts after a success")
}

func TestAllowGrantsOneProbePerInterval(t *testing.T) {
	b, now := breakerAt(time.Unix(0, 0))
	openBreaker(t, b)

	assert.False(t, b.Allow(), "no probe before the retry interval elapses")

	*now = now.Add(defaultRetryInterval)
	assert.True(t, b.Allow(), "the first call after the interval probes")
	assert.False(t, b.Allow(), "a granted probe re-arms the interval")

	*now = now.Add(defaultRetryInterval)
	assert.True(t, b.Allow())
}

func TestFailedProbeRearmsInterval(t *testing.T) {
	b, now := breakerAt(time.Unix(0, 0))
	openBreaker(t, b)

	*now = now.Add(defaultRetryInterval)
	require.True(t, b.Allow())
	b.RecordFailure()

	*now = now.Add(defaultRetryInterval - time.Second)
	assert.False(t, b.Allow(), "a failed probe restarts the wait")
}

func TestProbeSuccessesCloseTheBreaker(t *testing.T) {
	b, now := breakerAt(time.Unix(0, 0))
	openBreaker(t, b)

	for i := 0; i < defaultSuccessThreshold-1; i++ {
		*now = now.Add(defaultRetryInterval)
		require.True(t, b.Allow())
		closed, change := b.RecordSuccess()
		require.False(t, closed)
		require.Equal(t, StateChange{}, change)
		require.True(t, b.IsOpen())
	}

	*now = now.Add(defaultRetryInterval)
	require.True(t, b.Allow())
	closed, change := b.RecordSuccess()
	assert.True(t, closed)
	assert.Equal(t, StateChange{Closed: true}, change)
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}

func TestZeroRetryIntervalAlwaysProbes(t *testing.T) {
	b, _ := breakerAt(time.Unix(0, 0), WithRetryInterval(0))
	openBreaker(t, b)

	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
}
