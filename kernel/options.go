// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

import "time"

// kernelOptions holds configuration resolved at Boot time.
type kernelOptions struct {
	mlfqs         bool
	totalPages    int64
	tickInterval  time.Duration
	logger        Logger
	metrics       bool
	timeSlice     int // ticks per time slice
	mlfqsInterval int // ticks between priority recomputation
	loadAvgPeriod int // ticks between load-average recomputation
}

// Option configures a Kernel at Boot time.
type Option interface {
	apply(*kernelOptions)
}

type optionFunc func(*kernelOptions)

func (f optionFunc) apply(o *kernelOptions) { f(o) }

// WithMLFQS selects the 4.4BSD multi-level feedback queue scheduler
// instead of the default strict-priority scheduler with donation. This
// corresponds to the kernel's boot-time command-line flag; the two
// policies are mutually exclusive for the lifetime of the boot.
func WithMLFQS(enabled bool) Option {
	return optionFunc(func(o *kernelOptions) { o.mlfqs = enabled })
}

// WithTotalPages sets the size of the simulated page pool backing thread
// control blocks. Create returns ErrNoPages (and the caller sees
// ErrorTID) once the pool is exhausted.
func WithTotalPages(n int64) Option {
	return optionFunc(func(o *kernelOptions) { o.totalPages = n })
}

// WithTickInterval sets the real wall-clock interval between automatic
// timer ticks when the kernel drives its own ticker (see Kernel.Start).
// The scheduler's semantics always assume a 100Hz tick regardless of this
// value; shortening it only speeds up wall-clock time in tests, the same
// way calibrating a real timer doesn't change what a "tick" means to the
// scheduler.
func WithTickInterval(d time.Duration) Option {
	return optionFunc(func(o *kernelOptions) { o.tickInterval = d })
}

// WithLogger attaches a structured logger. See logging.go.
func WithLogger(l Logger) Option {
	return optionFunc(func(o *kernelOptions) { o.logger = l })
}

// WithMetrics enables runtime scheduler metrics collection, retrievable
// via Kernel.Metrics.
func WithMetrics(enabled bool) Option {
	return optionFunc(func(o *kernelOptions) { o.metrics = enabled })
}

// WithTimeSlice overrides the number of ticks in a thread's time slice
// (default 4).
func WithTimeSlice(ticks int) Option {
	return optionFunc(func(o *kernelOptions) { o.timeSlice = ticks })
}

func resolveOptions(opts []Option) *kernelOptions {
	cfg := &kernelOptions{
		totalPages:    4096,
		tickInterval:  10 * time.Millisecond, // 100Hz
		timeSlice:     4,
		mlfqsInterval: 4,
		loadAvgPeriod: 100,
		logger:        NewNoOpLogger(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(cfg)
	}
	return cfg
}
