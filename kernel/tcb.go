package kernel

import (
	"fmt"

	"github.com/BnjmnCummings/pintos/fixedpoint"
)

// TID identifies a thread. Valid TIDs are positive and monotonically
// increasing; ErrorTID is returned by Create when no page is available
// for the new thread's TCB.
type TID int64

// ErrorTID is the sentinel value returned by Create on resource
// exhaustion.
const ErrorTID TID = -1

// Status is the lifecycle state of a thread. Exactly one thread is
// Running at any time; Ready threads are reachable from the ready
// structure; Blocked threads are reachable from exactly one wait list;
// Dying threads are reachable only through the outgoing context-switch
// path until reaped.
type Status int

const (
	Running Status = iota
	Ready
	Blocked
	Dying
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Ready:
		return "ready"
	case Blocked:
		return "blocked"
	case Dying:
		return "dying"
	default:
		return "unknown"
	}
}

// Priority bounds, matching the 64-bucket MLFQS ready structure.
const (
	PriMin     = 0
	PriDefault = 31
	PriMax     = 63
)

// Nice bounds.
const (
	NiceMin = -20
	NiceMax = 20
)

// maxNameLen is the fixed TCB name capacity, 16 bytes including the NUL
// terminator a C implementation would reserve; Go strings don't need the
// terminator but callers are still truncated to the same visible length
// for parity with the original kernel's diagnostics.
const maxNameLen = 15

// magic is the sentinel value stored at a known TCB offset and checked on
// every access through Name, the Go analogue of the stack-overflow
// canary at the base of each thread's page.
const magic = 0xcd6abf4b

// donationCap is the maximum number of donated-priority records a single
// TCB or lock may hold concurrently. The source used two different
// capacities (MAX_DONATIONS and 2*MAX_DONATIONS) in different headers;
// this implementation standardizes on the larger one so that a chain hop
// donating into an already-populated slot never overflows.
const donationCap = 16

// maxDonationChainDepth bounds how many lock->holder hops acquire will
// walk before treating further nesting as a programming error rather
// than silently truncating the donation.
const maxDonationChainDepth = 8

// donation is a single donated-priority record: the priority contributed
// and the lock through which it was contributed, so release can remove
// exactly the records it is responsible for.
type donation struct {
	priority int
	through  *Lock
}

// TCB is the thread control block. Identity and stack-overflow detection
// fields sit alongside scheduling state and the two pieces of intrusive
// list linkage described in list.go.
type TCB struct {
	magic uint32

	id   TID
	name string

	status Status

	basePriority int
	effPriority  int
	donations    []donation

	waitingOnLock *Lock

	nice      int
	recentCPU fixedpoint.T

	allElem   elem
	linkElem  elem // ready-structure or wait-list linkage; mutually exclusive uses
	mlfqsSlot int   // priority bucket this TCB is currently queued under, MLFQS mode only

	fn  func(aux any)
	aux any

	resume      chan struct{} // context-switch rendezvous channel, capacity 0
	goroutineID uint64        // set when this thread's body starts running, for Tick's same-goroutine check

	k *Kernel

	// pageID is a simulated page handle; real memory is managed by the Go
	// runtime. Nothing assigns or reads it: page accounting is done by
	// the Kernel's freePages counter, which is what Exit-reclaims tests
	// check.
	pageID    int64
	isInitial bool // true only for the bootstrap "main" thread: never page-freed
}

func newTCB(k *Kernel, id TID, name string, priority int, nice int, recentCPU fixedpoint.T) *TCB {
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	t := &TCB{
		magic:        magic,
		id:           id,
		name:         name,
		status:       Blocked,
		basePriority: priority,
		effPriority:  priority,
		nice:         nice,
		recentCPU:    recentCPU,
		resume:       make(chan struct{}),
		k:            k,
	}
	t.allElem.owner = t
	t.linkElem.owner = t
	return t
}

func (t *TCB) checkMagic() {
	if t.magic != magic {
		Fatal(fmt.Sprintf("thread %q: stack overflow detected (magic corrupted)", t.name))
	}
}

// TID returns the thread's unique identifier.
func (t *TCB) TID() TID { return t.id }

// Name returns the thread's (possibly truncated) name.
func (t *TCB) Name() string {
	t.checkMagic()
	return t.name
}

// Status returns the thread's current lifecycle state. Callers must hold
// the kernel's interrupt gate disabled to get a consistent read, same as
// any other scheduler-state field.
func (t *TCB) Status() Status { return t.status }

// EffectivePriority returns max(base, donated...), the value the
// scheduler compares when picking the next thread to run.
func (t *TCB) EffectivePriority() int { return t.effPriority }

// BasePriority returns the thread's own priority, ignoring donations.
func (t *TCB) BasePriority() int { return t.basePriority }

// Nice returns the thread's niceness (MLFQS mode only).
func (t *TCB) Nice() int { return t.nice }

// RecentCPU returns the thread's raw fixed-point recent_cpu estimate.
func (t *TCB) RecentCPU() fixedpoint.T { return t.recentCPU }

// recomputeEffectivePriority reapplies effective = max(base, max(donated)).
// Callers must already hold the kernel's gate.
func (t *TCB) recomputeEffectivePriority() {
	best := t.basePriority
	for _, d := range t.donations {
		if d.priority > best {
			best = d.priority
		}
	}
	t.effPriority = best
}

func (t *TCB) addDonation(d donation) {
	if len(t.donations) >= donationCap {
		Fatal("donation capacity exceeded: nested lock chain too deep")
	}
	t.donations = append(t.donations, d)
	t.recomputeEffectivePriority()
}

// removeDonationsThrough deletes every donation record contributed via the
// given lock and recomputes the effective priority from what remains.
func (t *TCB) removeDonationsThrough(l *Lock) {
	kept := t.donations[:0]
	for _, d := range t.donations {
		if d.through != l {
			kept = append(kept, d)
		}
	}
	t.donations = kept
	t.recomputeEffectivePriority()
}
