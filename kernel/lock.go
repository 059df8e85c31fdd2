// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

// Lock is a binary semaphore with an owner, supporting priority
// donation: a thread blocked acquiring a held lock donates its
// effective priority to the holder, and transitively to whatever that
// holder is itself blocked on, up to maxDonationChainDepth hops. Donated
// priority is released exactly when the lock that carried it is
// released, never before.
type Lock struct {
	k      *Kernel
	sema   *Semaphore
	holder *TCB
}

// NewLock creates an unheld lock.
func NewLock(k *Kernel) *Lock {
	return &Lock{k: k, sema: NewSemaphore(k, 1)}
}

// Acquire blocks until the lock is free, then takes it.
func (l *Lock) Acquire() {
	old := l.k.beginCall()
	defer l.k.endCall(old)
	l.acquireLocked()
}

func (l *Lock) acquireLocked() {
	cur := l.k.current
	if l.holder != nil && l.holder != cur {
		cur.waitingOnLock = l
		l.donateChainLocked(cur.EffectivePriority())
	}
	l.sema.downLocked()
	cur.waitingOnLock = nil
	l.holder = cur
}

// donateChainLocked propagates priority to l's holder, and to whatever
// lock that holder is itself waiting on, stopping once a hop's holder
// already outranks the donated priority or the chain bottoms out. A
// chain deeper than maxDonationChainDepth is a programming error, not
// something to truncate silently: truncation would leave a holder
// further down running below the priority of a thread blocked behind
// it.
func (l *Lock) donateChainLocked(priority int) {
	lock := l
	for depth := 0; lock != nil && lock.holder != nil; depth++ {
		if depth >= maxDonationChainDepth {
			Fatal("lock: donation chain exceeds maximum nesting depth")
		}
		holder := lock.holder
		if holder.EffectivePriority() >= priority {
			return
		}
		holder.addDonation(donation{priority: priority, through: lock})
		if holder.status == Ready {
			l.k.ready.rebucket(holder)
		}
		if l.k.metrics != nil {
			l.k.metrics.incDonations()
		}
		lock = holder.waitingOnLock
	}
}

// TryAcquire takes the lock only if it is currently free, without
// blocking and without engaging donation (a thread that never blocks has
// nothing to donate). Reports whether it succeeded.
func (l *Lock) TryAcquire() bool {
	old := l.k.beginCall()
	defer l.k.endCall(old)
	if !l.sema.tryDownLocked() {
		return false
	}
	l.holder = l.k.current
	return true
}

// Release gives up the lock, dropping any priority donated through it
// and waking the highest-priority waiter, if any.
func (l *Lock) Release() {
	old := l.k.beginCall()
	defer l.k.endCall(old)
	cur := l.k.current
	if l.holder != cur {
		Fatal("lock: Release of a lock the calling thread does not hold")
	}
	cur.removeDonationsThrough(l)
	l.holder = nil
	l.sema.upLocked()
}

// IsHeldByCurrent reports whether the calling thread holds the lock.
func (l *Lock) IsHeldByCurrent() bool {
	old := l.k.beginCall()
	defer l.k.endCall(old)
	return l.holder == l.k.current
}
