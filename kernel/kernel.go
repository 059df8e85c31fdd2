// Package kernel implements a single-CPU preemptive thread scheduler in
// the style of a small teaching kernel: strict priority scheduling with
// priority donation through locks, or (mutually exclusive, chosen at
// Boot) a 4.4BSD-style multi-level feedback queue scheduler.
//
// All scheduler state lives in the *Kernel that Boot returns, and callers
// thread it through every operation. There are no package-level globals:
// each Boot produces an independent kernel with its own threads, so
// several can coexist in one process (the tests boot one per test).
//
// Every kernel thread is modeled as one goroutine. At most one thread's
// goroutine is ever actually executing unblocked code at a time; every
// other thread's goroutine is parked receiving on its own resume
// channel. A goroutine "holds" the kernel the way a real thread holds
// the right to run with interrupts disabled: by not releasing big, the
// single mutex serializing every mutation of scheduler state, across a
// context switch. Go permits Unlock from a different goroutine than
// Lock, which is exactly the handoff this relies on — the outgoing
// thread locks, decides who runs next, wakes that goroutine, and parks
// without unlocking; the incoming goroutine proceeds treating big as
// still held on its behalf, and whichever call eventually finishes
// unwinds back to wherever beginCall first locked it, unlocking for
// real then.
package kernel

import (
	"runtime"
	"sync"
	"time"

	"github.com/BnjmnCummings/pintos/fixedpoint"
	"github.com/BnjmnCummings/pintos/intr"
)

// Kernel is the scheduler singleton produced by Boot.
type Kernel struct {
	opts *kernelOptions

	big  sync.Mutex
	gate *intr.Gate

	mlfqs bool
	ready readyStructure

	allThreads *list
	current    *TCB
	idle       *TCB
	initial    *TCB

	nextTID  TID
	sleepSeq int64

	ticks     uint64
	sliceUsed int

	loadAvg fixedpoint.T
	sleepers *sleeperHeap

	preemptPending bool
	pendingReap    *TCB

	totalPages int64
	freePages  int64

	logger  Logger
	metrics *Metrics

	started    bool
	tickerStop chan struct{}
	tickerDone chan struct{}
}

// Boot performs the equivalent of thread_init: it must be called exactly
// once, by the goroutine that will act as the kernel's initial ("main")
// thread, before any other kernel call. It returns with interrupts
// disabled, held by the calling goroutine, until Start is called.
func Boot(opts ...Option) *Kernel {
	cfg := resolveOptions(opts)

	k := &Kernel{
		opts:       cfg,
		gate:       intr.New(),
		mlfqs:      cfg.mlfqs,
		allThreads: newList(),
		sleepers:   newSleeperHeap(),
		totalPages: cfg.totalPages,
		freePages:  cfg.totalPages,
		logger:     cfg.logger,
	}
	if cfg.metrics {
		k.metrics = newMetrics()
	}
	if k.mlfqs {
		k.ready = newMLFQSReady()
	} else {
		k.ready = newStrictReady()
	}

	k.big.Lock()
	k.gate.SetLevel(intr.LevelOff)

	k.freePages--
	initial := newTCB(k, 0, "main", PriDefault, 0, fixedpoint.Zero)
	initial.status = Running
	initial.isInitial = true
	initial.goroutineID = currentGoroutineID()
	k.allThreads.pushBack(&initial.allElem)
	k.current = initial
	k.initial = initial
	k.nextTID = 1

	k.logf(LogInfo, initial.id, "kernel booted", map[string]any{"mlfqs": k.mlfqs})
	return k
}

// Start performs the equivalent of thread_start: it creates the idle
// thread and enables interrupts, releasing the region Boot established.
// Must be called by the same goroutine that called Boot, after Boot
// returns and before any other kernel call blocks.
func (k *Kernel) Start() {
	k.freePages--
	idle := newTCB(k, k.nextTID, "idle", PriMin, 0, fixedpoint.Zero)
	k.nextTID++
	idle.status = Blocked // never placed in the ready structure; pickNextLocked returns it directly
	k.allThreads.pushBack(&idle.allElem)
	k.idle = idle
	idle.fn = func(any) { k.idleLoop() }
	go k.runThread(idle)

	k.started = true
	k.logf(LogInfo, k.current.id, "kernel started", map[string]any{"idle_tid": idle.id})
	k.gate.SetLevel(intr.LevelOn)
	k.big.Unlock()

	if k.opts.tickInterval > 0 {
		k.tickerStop = make(chan struct{})
		k.tickerDone = make(chan struct{})
		go k.runTicker(k.opts.tickInterval, k.tickerStop, k.tickerDone)
	}
}

// runTicker is the production stand-in for the hardware timer interrupt:
// it calls Tick once per interval until told to stop. Tests that want
// full control over elapsed ticks instead pass WithTickInterval(0) and
// call Tick themselves.
func (k *Kernel) runTicker(interval time.Duration, stop, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			k.Tick()
		case <-stop:
			return
		}
	}
}

// Stop halts the production ticker goroutine started by Start, if any,
// and waits for it to exit. Safe to call more than once or when no
// ticker was started.
func (k *Kernel) Stop() {
	if k.tickerStop == nil {
		return
	}
	close(k.tickerStop)
	<-k.tickerDone
	k.tickerStop = nil
}

// beginCall is the entry half of every public kernel operation: acquire
// the serializing lock and disable the interrupt-enable flag, returning
// the level to restore on return.
func (k *Kernel) beginCall() intr.Level {
	k.big.Lock()
	return k.gate.Disable()
}

// endCall is the exit half. If a preemption was requested while this
// call ran and it is safe to honor right now — the calling goroutine is
// the current thread's own, not an external tick driver racing against
// it — it is honored inline before the level is restored and the lock
// released.
func (k *Kernel) endCall(old intr.Level) {
	if k.preemptPending && k.current.status == Running && k.current.onCurrentThreadGoroutine() {
		k.preemptPending = false
		k.sliceUsed = 0
		k.readyCurrentLocked()
		k.scheduleLocked()
	}
	k.gate.SetLevel(old)
	k.big.Unlock()
}

func (k *Kernel) readyCurrentLocked() {
	t := k.current
	if t == k.idle {
		// The idle thread never appears in the ready structure; it is
		// resurrected directly by pickNextLocked when nothing else is
		// ready.
		t.status = Blocked
		return
	}
	t.status = Ready
	k.ready.push(t)
}

// blockCurrentLocked marks the current thread Blocked and switches away
// from it. Callers are responsible for having already linked the thread
// onto whatever wait list will eventually unblock it.
func (k *Kernel) blockCurrentLocked() {
	k.current.status = Blocked
	k.scheduleLocked()
}

// unblockLocked readies a thread removed from some wait list.
func (k *Kernel) unblockLocked(t *TCB) {
	t.status = Ready
	k.ready.push(t)
}

func (k *Kernel) reapPendingLocked() {
	if k.pendingReap == nil {
		return
	}
	dead := k.pendingReap
	k.pendingReap = nil
	dead.allElem.remove()
	if !dead.isInitial {
		k.freePages++
	}
	if k.metrics != nil {
		k.metrics.incThreadsReaped()
	}
	k.logf(LogDebug, dead.id, "thread reaped", nil)
}

func (k *Kernel) pickNextLocked() *TCB {
	if k.ready.empty() {
		return k.idle
	}
	return k.ready.pop()
}

// scheduleLocked hands off execution to whichever thread pickNextLocked
// chooses, returning once this goroutine is itself chosen again. Callers
// must already hold big and must have already updated k.current's status
// away from Running.
func (k *Kernel) scheduleLocked() {
	k.reapPendingLocked()

	prev := k.current
	next := k.pickNextLocked()

	if next == prev {
		prev.status = Running
		return
	}

	if prev.status == Dying {
		k.pendingReap = prev
	}

	next.status = Running
	k.current = next
	if k.metrics != nil {
		k.metrics.incContextSwitches()
	}
	k.logf(LogDebug, next.id, "context switch", map[string]any{"from": prev.id})

	next.resume <- struct{}{}
	if prev.status != Dying {
		<-prev.resume
	}
}

// runThread is the entry trampoline every Create()'d thread (and the
// idle thread) starts in: park until first scheduled in, record the
// goroutine identity Tick uses for its same-thread check, re-enable
// interrupts (the one hop of nesting a brand-new thread always starts
// inside, established by whoever created it), run the thread body, then
// exit.
func (k *Kernel) runThread(t *TCB) {
	<-t.resume
	t.goroutineID = currentGoroutineID()
	k.gate.SetLevel(intr.LevelOn)
	k.big.Unlock()

	t.fn(t.aux)
	k.Exit()
}

func (k *Kernel) idleLoop() {
	for {
		old := k.beginCall()
		k.current.status = Blocked
		k.scheduleLocked()
		k.endCall(old)
		runtime.Gosched()
	}
}

// Create allocates a new thread, readies it, and returns its TID. Per the
// priority-preemption-on-create invariant, if the new thread outranks
// the calling thread, the caller is preempted before Create returns.
func (k *Kernel) Create(name string, priority int, fn func(aux any), aux any) (TID, error) {
	old := k.beginCall()
	defer k.endCall(old)

	if k.freePages <= 0 {
		return ErrorTID, ErrNoPages
	}
	k.freePages--

	id := k.nextTID
	k.nextTID++

	nice, recentCPU := 0, fixedpoint.Zero
	if k.current != nil {
		nice, recentCPU = k.current.nice, k.current.recentCPU
	}

	t := newTCB(k, id, name, clampPriority(priority), nice, recentCPU)
	t.fn = fn
	t.aux = aux
	if k.mlfqs {
		k.recomputeMLFQSPriorityLocked(t)
	}
	t.status = Ready
	k.allThreads.pushBack(&t.allElem)
	k.ready.push(t)

	if k.metrics != nil {
		k.metrics.incThreadsCreated()
	}
	k.logf(LogInfo, id, "thread created", map[string]any{"name": name, "priority": t.EffectivePriority()})

	go k.runThread(t)

	if t.EffectivePriority() > k.current.EffectivePriority() {
		k.preemptPending = true
	}
	return id, nil
}

// Exit transitions the calling thread to Dying and switches away from it
// for the last time; it never returns to its caller. The successor
// thread reaps the dead thread's page on its way through the scheduler.
func (k *Kernel) Exit() {
	k.big.Lock()
	k.gate.Disable()

	t := k.current
	t.status = Dying
	k.logf(LogInfo, t.id, "thread exiting", nil)

	// scheduleLocked skips the park for a Dying thread: it wakes the
	// successor (which inherits big across the handoff) and returns here
	// one last time. All that is left is to end the goroutine without
	// touching any kernel state it no longer owns.
	k.scheduleLocked()
	runtime.Goexit()
}

// Yield gives up the remainder of the current thread's time slice
// unconditionally, even if no other thread is ready (in which case it
// returns immediately having accomplished nothing observable).
func (k *Kernel) Yield() {
	old := k.beginCall()
	defer k.endCall(old)
	k.readyCurrentLocked()
	k.scheduleLocked()
}

// Current returns the calling thread's own TCB.
func (k *Kernel) Current() *TCB {
	old := k.beginCall()
	defer k.endCall(old)
	return k.current
}

// TID returns the calling thread's id.
func (k *Kernel) TID() TID {
	return k.Current().TID()
}

// Name returns the calling thread's name.
func (k *Kernel) Name() string {
	return k.Current().Name()
}

// Block marks the calling thread Blocked and schedules away from it. The
// caller must already have arranged for some other thread (or the tick
// handler) to Unblock it eventually, or it will never run again. Most
// code wants a synchronization primitive instead of calling this
// directly.
func (k *Kernel) Block() {
	old := k.beginCall()
	defer k.endCall(old)
	k.blockCurrentLocked()
}

// Unblock transitions t from Blocked back to Ready. It is a fatal error
// to unblock a thread in any other state; waking a Ready or Running
// thread is always a bug in the caller's bookkeeping, and silently
// ignoring it would mask a lost wakeup elsewhere.
func (k *Kernel) Unblock(t *TCB) {
	old := k.beginCall()
	defer k.endCall(old)
	if t == nil {
		Fatal("thread: Unblock of nil thread")
	}
	if t.status != Blocked {
		Fatal("thread: Unblock of a thread that is not blocked")
	}
	k.unblockLocked(t)
	if t.EffectivePriority() > k.current.EffectivePriority() {
		k.preemptPending = true
	}
}

// Foreach calls fn once for every thread known to the kernel, in
// creation order. fn must not call back into the kernel.
func (k *Kernel) Foreach(fn func(*TCB)) {
	old := k.beginCall()
	defer k.endCall(old)
	k.allThreads.forEach(fn)
}

// SetPriority changes the calling thread's base priority. Strict mode
// only; in MLFQS mode priority is derived and this is a no-op that
// records nothing.
func (k *Kernel) SetPriority(priority int) {
	old := k.beginCall()
	defer k.endCall(old)
	if k.mlfqs {
		return
	}
	k.current.basePriority = clampPriority(priority)
	k.current.recomputeEffectivePriority()
	if k.ready.highestPriority() > k.current.EffectivePriority() {
		k.preemptPending = true
	}
}

// Priority returns the calling thread's current effective priority.
func (k *Kernel) Priority() int {
	old := k.beginCall()
	defer k.endCall(old)
	return k.current.EffectivePriority()
}

// SetNice changes the calling thread's niceness and recomputes its
// MLFQS-derived priority. MLFQS mode only.
func (k *Kernel) SetNice(nice int) {
	old := k.beginCall()
	defer k.endCall(old)
	if !k.mlfqs {
		return
	}
	if nice < NiceMin {
		nice = NiceMin
	} else if nice > NiceMax {
		nice = NiceMax
	}
	k.current.nice = nice
	k.recomputeMLFQSPriorityLocked(k.current)
	if k.ready.highestPriority() > k.current.EffectivePriority() {
		k.preemptPending = true
	}
}

// Nice returns the calling thread's niceness.
func (k *Kernel) Nice() int {
	old := k.beginCall()
	defer k.endCall(old)
	return k.current.nice
}

// LoadAvg returns the system load average, raw fixed-point form.
func (k *Kernel) LoadAvg() fixedpoint.T {
	old := k.beginCall()
	defer k.endCall(old)
	return k.loadAvg
}

// RecentCPU returns the calling thread's raw fixed-point recent_cpu.
func (k *Kernel) RecentCPU() fixedpoint.T {
	old := k.beginCall()
	defer k.endCall(old)
	return k.current.recentCPU
}

// Ticks returns the number of timer ticks delivered since Boot.
func (k *Kernel) Ticks() uint64 {
	old := k.beginCall()
	defer k.endCall(old)
	return k.ticks
}

// Elapsed returns the number of ticks elapsed since the given tick count,
// as read from an earlier call to Ticks.
func (k *Kernel) Elapsed(since uint64) int64 {
	now := k.Ticks()
	return int64(now - since)
}

// LoadAvgPercent returns 100*load_avg rounded to the nearest integer, the
// conventional human-readable form pintos' own load average reporting
// uses.
func (k *Kernel) LoadAvgPercent() int {
	old := k.beginCall()
	defer k.endCall(old)
	return k.loadAvg.MulInt(100).ToIntRound()
}

// RecentCPUPercent returns 100*recent_cpu for the calling thread, rounded
// to the nearest integer.
func (k *Kernel) RecentCPUPercent() int {
	old := k.beginCall()
	defer k.endCall(old)
	return k.current.recentCPU.MulInt(100).ToIntRound()
}

// ThreadByTID looks up a thread by id, for diagnostics and tests. Returns
// nil if no such thread exists (it may already have been reaped).
func (k *Kernel) ThreadByTID(id TID) *TCB {
	old := k.beginCall()
	defer k.endCall(old)
	var found *TCB
	k.allThreads.forEach(func(t *TCB) {
		if t.id == id {
			found = t
		}
	})
	return found
}

// MLFQSEnabled reports which scheduling policy this boot selected.
func (k *Kernel) MLFQSEnabled() bool { return k.mlfqs }

// Metrics returns a snapshot of the kernel's counters. Returns the zero
// Snapshot if WithMetrics was never enabled.
func (k *Kernel) Metrics() Snapshot {
	if k.metrics == nil {
		return Snapshot{}
	}
	return k.metrics.Snapshot()
}

// Tick advances the scheduler by one timer interrupt. Safe to call from
// any goroutine: a thread driving its own ticks (as the tests' main
// thread does) may be preempted inline by the tick that exhausts its slice; an
// independent ticker goroutine only flags the preemption, which takes
// effect at the current thread's next kernel call.
func (k *Kernel) Tick() {
	old := k.beginCall()
	defer k.endCall(old)

	k.ticks++
	idleRunning := k.current == k.idle
	if k.metrics != nil {
		k.metrics.incTick(idleRunning)
	}
	if k.mlfqs && !idleRunning {
		k.current.recentCPU = k.current.recentCPU.AddInt(1)
	}

	k.wakeDueSleepersLocked()

	if k.mlfqs {
		if k.opts.loadAvgPeriod > 0 && k.ticks%uint64(k.opts.loadAvgPeriod) == 0 {
			k.recomputeLoadAvgLocked()
			k.decayAllRecentCPULocked()
		}
		if k.opts.mlfqsInterval > 0 && k.ticks%uint64(k.opts.mlfqsInterval) == 0 {
			k.recomputeAllPrioritiesLocked()
		}
	}

	k.sliceUsed++
	if k.sliceUsed >= k.opts.timeSlice {
		k.sliceUsed = 0
		k.preemptPending = true
	}
	if k.ready.highestPriority() > k.current.EffectivePriority() {
		k.preemptPending = true
	}
}
