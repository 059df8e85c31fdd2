package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCondWaitReleasesLockAndReacquires verifies that Wait gives up the
// associated lock while blocked (so another thread can take it) and
// reacquires it before returning, the standard Mesa-semantics contract.
func TestCondWaitReleasesLockAndReacquires(t *testing.T) {
	k := newStrictKernel(t)
	k.SetPriority(PriMin)

	lock := NewLock(k)
	cond := NewCond(k)
	var ready bool
	var log []string

	_, err := k.Create("waiter", 20, func(any) {
		lock.Acquire()
		for !ready {
			cond.Wait(lock)
		}
		log = append(log, "waiter-woke")
		lock.Release()
	}, nil)
	require.NoError(t, err)
	// waiter(20) outranks main(0): Create already ran it through Acquire,
	// into Wait, which released the lock and blocked.
	assert.False(t, lock.IsHeldByCurrent())

	_, err = k.Create("setter", 10, func(any) {
		// If Wait hadn't released the lock, this would deadlock instead
		// of completing synchronously inside Create.
		lock.Acquire()
		ready = true
		cond.Signal(lock)
		lock.Release()
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"waiter-woke"}, log)
}

// TestCondBroadcastWakesAll verifies Broadcast wakes every waiter, not
// just the highest-priority one.
func TestCondBroadcastWakesAll(t *testing.T) {
	k := newStrictKernel(t)
	k.SetPriority(PriMin)

	lock := NewLock(k)
	cond := NewCond(k)
	var log []string

	spawn := func(name string, prio int) {
		_, err := k.Create(name, prio, func(any) {
			lock.Acquire()
			cond.Wait(lock)
			log = append(log, name)
			lock.Release()
		}, nil)
		require.NoError(t, err)
	}

	spawn("a", 10)
	spawn("b", 20)
	spawn("c", 30)

	lock.Acquire()
	cond.Broadcast(lock)
	lock.Release()
	k.Yield()
	k.Yield()
	k.Yield()

	assert.ElementsMatch(t, []string{"a", "b", "c"}, log)
}
