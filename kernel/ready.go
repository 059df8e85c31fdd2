package kernel

// readyStructure abstracts over the two mutually exclusive ready-thread
// representations: a single unordered bag (strict-priority mode) and an
// array of 64 FIFO queues indexed by priority (MLFQS mode). Exactly one
// representation is live per boot, chosen at Boot time.
type readyStructure interface {
	push(t *TCB)
	pop() *TCB // removes and returns the thread the scheduler should run next, or nil if empty
	empty() bool
	highestPriority() int // -1 if empty
	forEach(fn func(*TCB))
	// rebucket is called by the MLFQS tick handler after a Ready thread's
	// priority changes; strict mode ignores it since its bag isn't
	// priority-indexed.
	rebucket(t *TCB)
}

// strictReady is the strict-priority scheduler's unordered bag: a plain
// intrusive list, with selection done by linear max-scan on
// EffectivePriority. Ties break toward whichever thread was inserted
// first, which is what a front-to-back scan naturally gives.
type strictReady struct {
	bag *list
}

func newStrictReady() *strictReady {
	return &strictReady{bag: newList()}
}

func (r *strictReady) push(t *TCB) {
	r.bag.pushBack(&t.linkElem)
}

func (r *strictReady) pop() *TCB {
	best := r.bag.max(func(t *TCB) int { return t.EffectivePriority() })
	if best == nil {
		return nil
	}
	best.linkElem.remove()
	return best
}

func (r *strictReady) empty() bool { return r.bag.empty() }

func (r *strictReady) highestPriority() int {
	best := r.bag.max(func(t *TCB) int { return t.EffectivePriority() })
	if best == nil {
		return -1
	}
	return best.EffectivePriority()
}

func (r *strictReady) forEach(fn func(*TCB)) { r.bag.forEach(fn) }

func (r *strictReady) rebucket(t *TCB) {} // strict mode's bag isn't priority-indexed

// mlfqsReady is the 4.4BSD-style ready structure: 64 FIFO queues indexed
// by priority. Selection takes the front of the highest non-empty queue,
// giving round-robin dispatch within a priority band.
type mlfqsReady struct {
	queues [PriMax + 1]*list
	count  int
}

func newMLFQSReady() *mlfqsReady {
	r := &mlfqsReady{}
	for i := range r.queues {
		r.queues[i] = newList()
	}
	return r
}

func (r *mlfqsReady) push(t *TCB) {
	p := clampPriority(t.EffectivePriority())
	t.mlfqsSlot = p
	r.queues[p].pushBack(&t.linkElem)
	r.count++
}

func (r *mlfqsReady) pop() *TCB {
	for p := PriMax; p >= PriMin; p-- {
		if e := r.queues[p].front(); e != nil {
			e.remove()
			r.count--
			return e.owner
		}
	}
	return nil
}

func (r *mlfqsReady) empty() bool { return r.count == 0 }

func (r *mlfqsReady) highestPriority() int {
	for p := PriMax; p >= PriMin; p-- {
		if !r.queues[p].empty() {
			return p
		}
	}
	return -1
}

func (r *mlfqsReady) forEach(fn func(*TCB)) {
	for p := PriMax; p >= PriMin; p-- {
		r.queues[p].forEach(fn)
	}
}

// rebucket moves a Ready thread to the queue matching its current
// effective priority. It goes to the back of the new queue's FIFO order,
// same as a freshly readied thread; its old position is not kept.
func (r *mlfqsReady) rebucket(t *TCB) {
	newSlot := clampPriority(t.EffectivePriority())
	if newSlot == t.mlfqsSlot {
		return
	}
	t.linkElem.remove()
	r.count--
	t.mlfqsSlot = newSlot
	r.queues[newSlot].pushBack(&t.linkElem)
	r.count++
}

func clampPriority(p int) int {
	if p < PriMin {
		return PriMin
	}
	if p > PriMax {
		return PriMax
	}
	return p
}
