package kernel

// Cond is a Mesa-style condition variable: Wait releases the associated
// lock and blocks, and a woken thread re-acquires the lock itself before
// Wait returns, rather than being handed ownership directly. Callers
// must therefore always re-check their wait condition in a loop, the
// same as with any Mesa-semantics condition variable.
type Cond struct {
	k       *Kernel
	waiters *list
}

// NewCond creates a condition variable.
func NewCond(k *Kernel) *Cond {
	return &Cond{k: k, waiters: newList()}
}

// Wait releases l, blocks until signaled, then reacquires l before
// returning. l must already be held by the calling thread.
func (c *Cond) Wait(l *Lock) {
	old := c.k.beginCall()
	defer c.k.endCall(old)

	cur := c.k.current
	if l.holder != cur {
		Fatal("cond: Wait called without holding the associated lock")
	}

	c.waiters.pushBack(&cur.linkElem)
	cur.removeDonationsThrough(l)
	l.holder = nil
	l.sema.upLocked()

	c.k.blockCurrentLocked()

	l.acquireLocked()
}

// Signal wakes the highest-effective-priority waiter, if any. The
// signal is lost if no thread is waiting. l must be held by the calling
// thread, same as for Wait; signaling without the lock races the very
// condition update the waiter is going to re-check.
func (c *Cond) Signal(l *Lock) {
	old := c.k.beginCall()
	defer c.k.endCall(old)
	if l.holder != c.k.current {
		Fatal("cond: Signal called without holding the associated lock")
	}
	if c.waiters.empty() {
		return
	}
	best := c.waiters.max(func(t *TCB) int { return t.EffectivePriority() })
	best.linkElem.remove()
	c.k.unblockLocked(best)
	if best.EffectivePriority() > c.k.current.EffectivePriority() {
		c.k.preemptPending = true
	}
}

// Broadcast wakes every waiter. l must be held by the calling thread.
func (c *Cond) Broadcast(l *Lock) {
	old := c.k.beginCall()
	defer c.k.endCall(old)
	if l.holder != c.k.current {
		Fatal("cond: Broadcast called without holding the associated lock")
	}
	for !c.waiters.empty() {
		best := c.waiters.max(func(t *TCB) int { return t.EffectivePriority() })
		best.linkElem.remove()
		c.k.unblockLocked(best)
	}
	if c.k.ready.highestPriority() > c.k.current.EffectivePriority() {
		c.k.preemptPending = true
	}
}
