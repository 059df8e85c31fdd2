package kernel

import "github.com/BnjmnCummings/pintos/fixedpoint"

// recomputeMLFQSPriorityLocked applies priority = PRI_MAX -
// (recent_cpu/4) - (nice*2), rounding only the recent_cpu/4 term (the
// rest is plain integer arithmetic), and rebuckets t in the ready
// structure if it is Ready and its priority actually changed.
func (k *Kernel) recomputeMLFQSPriorityLocked(t *TCB) {
	p := PriMax - t.recentCPU.DivInt(4).ToIntRound() - t.nice*2
	p = clampPriority(p)
	if p == t.basePriority {
		return
	}
	t.basePriority = p
	t.recomputeEffectivePriority()
	if t.status == Ready {
		k.ready.rebucket(t)
	}
}

func (k *Kernel) recomputeAllPrioritiesLocked() {
	k.allThreads.forEach(func(t *TCB) {
		k.recomputeMLFQSPriorityLocked(t)
	})
}

// recomputeLoadAvgLocked applies load_avg = (59/60)*load_avg +
// (1/60)*ready_threads, where ready_threads counts the running thread
// too, unless it is idle.
func (k *Kernel) recomputeLoadAvgLocked() {
	readyCount := 0
	k.ready.forEach(func(*TCB) { readyCount++ })
	if k.current != k.idle {
		readyCount++
	}

	fiftyNine60ths := fixedpoint.FromInt(59).Div(fixedpoint.FromInt(60))
	one60th := fixedpoint.FromInt(1).Div(fixedpoint.FromInt(60))
	k.loadAvg = fiftyNine60ths.Mul(k.loadAvg).Add(one60th.MulInt(readyCount))
}

// decayAllRecentCPULocked applies recent_cpu = (2*load_avg /
// (2*load_avg+1)) * recent_cpu + nice to every thread.
func (k *Kernel) decayAllRecentCPULocked() {
	twoLoad := k.loadAvg.MulInt(2)
	coeff := twoLoad.Div(twoLoad.AddInt(1))
	k.allThreads.forEach(func(t *TCB) {
		t.recentCPU = coeff.Mul(t.recentCPU).AddInt(t.nice)
	})
}
