package kernel

import (
	"testing"

	"github.com/BnjmnCummings/pintos/fixedpoint"
	"github.com/stretchr/testify/assert"
)

// TestRecentCPUFormula verifies that recent_cpu follows
// recent_cpu = (2*load_avg)/(2*load_avg+1) * recent_cpu + nice, decayed
// once every load-average period, with a plain +1 every tick in
// between. The boot thread itself is the only ready-or-running thread
// throughout, so it can drive its own ticks directly and be compared
// against an independently re-derived recurrence.
func TestRecentCPUFormula(t *testing.T) {
	k := Boot(WithMLFQS(true), WithTickInterval(0))
	k.Start()

	var expectedRecentCPU, expectedLoadAvg fixedpoint.T
	const n = 250 // crosses two load-average periods (100 ticks each)

	for i := int64(1); i <= n; i++ {
		k.Tick()

		expectedRecentCPU = expectedRecentCPU.AddInt(1)
		if i%100 == 0 {
			fiftyNine60ths := fixedpoint.FromInt(59).Div(fixedpoint.FromInt(60))
			one60th := fixedpoint.FromInt(1).Div(fixedpoint.FromInt(60))
			expectedLoadAvg = fiftyNine60ths.Mul(expectedLoadAvg).Add(one60th.MulInt(1))

			twoLoad := expectedLoadAvg.MulInt(2)
			coeff := twoLoad.Div(twoLoad.AddInt(1))
			expectedRecentCPU = coeff.Mul(expectedRecentCPU).AddInt(0)
		}
	}

	assert.InDelta(t, int64(expectedRecentCPU), int64(k.RecentCPU()), 1)
	assert.InDelta(t, int64(expectedLoadAvg), int64(k.LoadAvg()), 1)
}

// TestLoadAvgConverges is the mlfqs-load-1 scenario: with exactly one
// ready-or-running thread for an extended run, load_avg converges
// toward 1, landing within [0.5, 1.5] in the 100*load_avg
// representation.
func TestLoadAvgConverges(t *testing.T) {
	k := Boot(WithMLFQS(true), WithTickInterval(0))
	k.Start()

	const n = 6000 // one simulated minute at 100Hz
	for i := int64(0); i < n; i++ {
		k.Tick()
	}

	pct := k.LoadAvgPercent()
	assert.GreaterOrEqual(t, pct, 50)
	assert.LessOrEqual(t, pct, 150)
}
