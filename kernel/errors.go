package kernel

import "errors"

// Standard errors returned by kernel operations. Resource exhaustion is
// the only failure mode that propagates to a caller as an ordinary error
// value (or, for thread creation, a sentinel TID) — everything else the
// kernel treats as a programming error and reports by halting.
var (
	// ErrNoPages is returned when Create cannot allocate a page for a new
	// thread's TCB and stack.
	ErrNoPages = errors.New("kernel: out of pages")
)

// Fatal reports a kernel precondition violation: bad state, an
// interrupts-enabled mismatch, double-unblock, releasing a lock the
// caller doesn't hold, and the like. Per the kernel's error-handling
// design these are bugs, not recoverable conditions, so Fatal halts by
// panicking with a message identifying the violated predicate rather
// than attempting silent recovery.
func Fatal(predicate string) {
	panic("kernel panic: " + predicate)
}
