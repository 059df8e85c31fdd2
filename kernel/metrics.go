package kernel

import "sync"

// Metrics accumulates scheduler counters. It is safe for concurrent read
// while the kernel is running; callers should only read it, never mutate
// it directly.
type Metrics struct {
	mu sync.Mutex

	contextSwitches uint64
	threadsCreated  uint64
	threadsReaped   uint64
	donations       uint64
	idleTicks       uint64
	productiveTicks uint64
}

func newMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) incContextSwitches() {
	m.mu.Lock()
	m.contextSwitches++
	m.mu.Unlock()
}

func (m *Metrics) incThreadsCreated() {
	m.mu.Lock()
	m.threadsCreated++
	m.mu.Unlock()
}

func (m *Metrics) incThreadsReaped() {
	m.mu.Lock()
	m.threadsReaped++
	m.mu.Unlock()
}

func (m *Metrics) incDonations() {
	m.mu.Lock()
	m.donations++
	m.mu.Unlock()
}

func (m *Metrics) incTick(idle bool) {
	m.mu.Lock()
	if idle {
		m.idleTicks++
	} else {
		m.productiveTicks++
	}
	m.mu.Unlock()
}

// Snapshot is a point-in-time copy of Metrics, safe to read without
// further synchronization.
type Snapshot struct {
	ContextSwitches uint64
	ThreadsCreated  uint64
	ThreadsReaped   uint64
	Donations       uint64
	IdleTicks       uint64
	ProductiveTicks uint64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		ContextSwitches: m.contextSwitches,
		ThreadsCreated:  m.threadsCreated,
		ThreadsReaped:   m.threadsReaped,
		Donations:       m.donations,
		IdleTicks:       m.idleTicks,
		ProductiveTicks: m.productiveTicks,
	}
}
