package view

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/chatdeck/chatdeck/internal/shared/types"
)

// switchSampleCap bounds the latency window the percentiles are
// computed over.
const switchSampleCap = 512

// perfTracker aggregates switch latency and pool efficiency.
type perfTracker struct {
	mu          sync.Mutex
	samples     []float64 // milliseconds, ring of the last switchSampleCap
	next        int
	full        bool
	switches    int64
	poolHits    int64
	poolMisses  int64
	coldCreates int64
}

func newPerfTracker() *perfTracker {
	return &perfTracker{samples: make([]float64, 0, switchSampleCap)}
}

func (t *perfTracker) recordSwitch(ms float64, source string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.switches++
	switch source {
	case switchSourcePoolHit:
		t.poolHits++
	case switchSourceColdCreate:
		t.poolMisses++
		t.coldCreates++
	}

	if len(t.samples) < switchSampleCap {
		t.samples = append(t.samples, ms)
		return
	}
	t.samples[t.next] = ms
	t.next = (t.next + 1) % switchSampleCap
	t.full = true
}

func (t *perfTracker) stats() types.PerfStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := types.PerfStats{
		Switches:        t.switches,
		PoolHits:        t.poolHits,
		PoolMisses:      t.poolMisses,
		ColdCreateCount: t.coldCreates,
	}
	if lookups := t.poolHits + t.poolMisses; lookups > 0 {
		out.PoolHitRatio = float64(t.poolHits) / float64(lookups)
	}
	if len(t.samples) == 0 {
		return out
	}

	sorted := append([]float64(nil), t.samples...)
	sort.Float64s(sorted)
	out.SwitchMeanMs = stat.Mean(sorted, nil)
	out.SwitchP50Ms = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	out.SwitchP95Ms = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	return out
}
