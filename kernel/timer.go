package kernel

import (
	"container/heap"
	"time"
)

// ticksPerSecond is the simulated timer frequency the scheduler's own
// semantics assume (slice lengths, MLFQS recompute intervals), regardless
// of how fast or slow Tick is actually driven in real time.
const ticksPerSecond = 100

// sleeperEntry is one thread waiting in SleepTicks, ordered by wake tick
// and, within a tick, by insertion order so wakeups are FIFO among
// threads that slept for the same duration.
type sleeperEntry struct {
	wakeAt uint64
	seq    int64
	thread *TCB
}

type sleeperHeap []*sleeperEntry

func newSleeperHeap() *sleeperHeap {
	h := make(sleeperHeap, 0)
	return &h
}

func (h sleeperHeap) Len() int { return len(h) }
func (h sleeperHeap) Less(i, j int) bool {
	if h[i].wakeAt != h[j].wakeAt {
		return h[i].wakeAt < h[j].wakeAt
	}
	return h[i].seq < h[j].seq
}
func (h sleeperHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *sleeperHeap) Push(x any)   { *h = append(*h, x.(*sleeperEntry)) }
func (h *sleeperHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// SleepTicks blocks the calling thread until at least n ticks have
// elapsed. n <= 0 returns immediately without blocking, matching
// timer_sleep's treatment of a non-positive duration.
func (k *Kernel) SleepTicks(n int64) {
	if n <= 0 {
		return
	}
	old := k.beginCall()
	defer k.endCall(old)

	k.sleepSeq++
	heap.Push(k.sleepers, &sleeperEntry{
		wakeAt: k.ticks + uint64(n),
		seq:    k.sleepSeq,
		thread: k.current,
	})
	k.blockCurrentLocked()
}

// SleepMillis blocks for approximately ms milliseconds, sleeping through
// the scheduler in whole ticks when the duration is at least one tick
// and falling back to a busy delay below tick granularity.
func (k *Kernel) SleepMillis(ms int64) { k.realTimeSleep(ms, 1000) }

// SleepMicros blocks for approximately us microseconds; see SleepMillis.
func (k *Kernel) SleepMicros(us int64) { k.realTimeSleep(us, 1000*1000) }

// SleepNanos blocks for approximately ns nanoseconds; see SleepMillis.
func (k *Kernel) SleepNanos(ns int64) { k.realTimeSleep(ns, 1000*1000*1000) }

// realTimeSleep converts a duration of num/denom seconds to ticks and
// sleeps through the scheduler when at least one full tick is covered.
// Shorter durations busy-delay instead: they would otherwise round to a
// zero-tick sleep and return without elapsing any time at all.
func (k *Kernel) realTimeSleep(num, denom int64) {
	ticks := num * ticksPerSecond / denom
	if ticks > 0 {
		k.SleepTicks(ticks)
		return
	}
	busyDelay(num, denom)
}

// DelayMillis busy-delays for approximately ms milliseconds. Unlike
// SleepMillis it never touches the scheduler, so it is usable from
// contexts that must not block on a synchronization primitive, at the
// cost of occupying the CPU for the duration.
func (k *Kernel) DelayMillis(ms int64) { busyDelay(ms, 1000) }

// DelayMicros busy-delays for approximately us microseconds.
func (k *Kernel) DelayMicros(us int64) { busyDelay(us, 1000*1000) }

// DelayNanos busy-delays for approximately ns nanoseconds.
func (k *Kernel) DelayNanos(ns int64) { busyDelay(ns, 1000*1000*1000) }

// busyDelay elapses num/denom seconds of real time without touching any
// scheduler state. time.Sleep stands in for the calibrated spin loop a
// bare-metal kernel would use for sub-tick delays.
func busyDelay(num, denom int64) {
	if num <= 0 {
		return
	}
	time.Sleep(time.Duration(num) * (time.Second / time.Duration(denom)))
}

// wakeDueSleepersLocked readies every sleeper whose wake tick has
// arrived. Called once per Tick, after the tick counter is advanced.
func (k *Kernel) wakeDueSleepersLocked() {
	for k.sleepers.Len() > 0 {
		top := (*k.sleepers)[0]
		if top.wakeAt > k.ticks {
			return
		}
		heap.Pop(k.sleepers)
		k.unblockLocked(top.thread)
	}
}
