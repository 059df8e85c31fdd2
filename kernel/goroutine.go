package kernel

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentGoroutineID extracts the calling goroutine's runtime ID from its
// stack trace header ("goroutine 123 [running]:"). There is no supported
// API for this; parsing runtime.Stack's own header is the same technique
// loop implementations use to verify a call arrived on the expected
// worker goroutine rather than from an arbitrary caller.
func currentGoroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}
	buf = buf[len(prefix):]
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// onCurrentThreadGoroutine reports whether the calling goroutine is the
// one actually executing t's thread body. It is how Tick tells a
// self-reported heartbeat (the running thread calling Tick on itself,
// safe to act on immediately) apart from an external ticker driver
// (which must only record the preemption request and let the running
// thread's own next kernel call honor it).
func (t *TCB) onCurrentThreadGoroutine() bool {
	return t.goroutineID == currentGoroutineID()
}
