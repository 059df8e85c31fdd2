package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSleepMillisConvertsToTicks verifies the real-time sleep path: a
// 30ms sleep at the scheduler's 100Hz tick rate is a 3-tick sleep, woken
// by the third tick and no earlier.
func TestSleepMillisConvertsToTicks(t *testing.T) {
	k := newStrictKernel(t)
	k.SetPriority(PriMin) // sleeper outranks main and runs into its sleep on Create

	var wakeTick uint64
	woke := NewSemaphore(k, 0)
	_, err := k.Create("sleeper", PriDefault-1, func(any) {
		k.SleepMillis(30)
		wakeTick = k.Ticks()
		woke.Up()
	}, nil)
	require.NoError(t, err)

	start := k.Ticks()
	for i := 0; i < 4; i++ {
		k.Tick()
	}
	woke.Down()
	assert.GreaterOrEqual(t, wakeTick, start+3)
}

// TestDelayLeavesSchedulerAlone verifies the busy-delay family's core
// contract: no tick is consumed, no thread changes state, nothing blocks.
func TestDelayLeavesSchedulerAlone(t *testing.T) {
	k := newStrictKernel(t)

	before := k.Ticks()
	k.DelayMicros(100)
	k.DelayNanos(100)
	k.DelayMillis(1)
	assert.Equal(t, before, k.Ticks())
	assert.Equal(t, Running, k.Current().Status())
}

// TestSubTickSleepBusyDelays verifies that a sleep too short to cover a
// whole tick falls back to a busy delay rather than returning instantly
// or blocking forever on a tick that may never be driven.
func TestSubTickSleepBusyDelays(t *testing.T) {
	k := newStrictKernel(t)

	start := time.Now()
	k.SleepMicros(2000) // 0.2 ticks at 100Hz
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 2*time.Millisecond)
	assert.Equal(t, uint64(0), k.Ticks())
}

// TestElapsed verifies the tick-delta helper against manually driven
// ticks.
func TestElapsed(t *testing.T) {
	k := newStrictKernel(t)
	since := k.Ticks()
	for i := 0; i < 7; i++ {
		k.Tick()
	}
	assert.Equal(t, int64(7), k.Elapsed(since))
}
