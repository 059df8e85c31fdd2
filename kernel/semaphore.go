package kernel

// Semaphore is a counting semaphore whose waiters are woken in order of
// current effective priority, not FIFO arrival order — the one place
// the scheduler's priority rule reaches into a synchronization
// primitive directly, rather than through donation.
type Semaphore struct {
	k       *Kernel
	value   int
	waiters *list
}

// NewSemaphore creates a semaphore with the given initial value.
func NewSemaphore(k *Kernel, value int) *Semaphore {
	return &Semaphore{k: k, value: value, waiters: newList()}
}

// Down waits for a permit, blocking if none is available.
func (s *Semaphore) Down() {
	old := s.k.beginCall()
	defer s.k.endCall(old)
	s.downLocked()
}

func (s *Semaphore) downLocked() {
	for s.value == 0 {
		s.waiters.pushBack(&s.k.current.linkElem)
		s.k.blockCurrentLocked()
	}
	s.value--
}

// TryDown acquires a permit without blocking, reporting whether it got
// one.
func (s *Semaphore) TryDown() bool {
	old := s.k.beginCall()
	defer s.k.endCall(old)
	return s.tryDownLocked()
}

func (s *Semaphore) tryDownLocked() bool {
	if s.value == 0 {
		return false
	}
	s.value--
	return true
}

// Up releases a permit, waking the highest-effective-priority waiter if
// any thread is waiting.
func (s *Semaphore) Up() {
	old := s.k.beginCall()
	defer s.k.endCall(old)
	s.upLocked()
}

func (s *Semaphore) upLocked() {
	s.value++
	if s.waiters.empty() {
		return
	}
	best := s.waiters.max(func(t *TCB) int { return t.EffectivePriority() })
	best.linkElem.remove()
	s.k.unblockLocked(best)
	if best.EffectivePriority() > s.k.current.EffectivePriority() {
		s.k.preemptPending = true
	}
}

// Value returns the current permit count.
func (s *Semaphore) Value() int {
	old := s.k.beginCall()
	defer s.k.endCall(old)
	return s.value
}
