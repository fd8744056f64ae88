package vehicle

import "math"

// deadTimeBuffer is a fixed-capacity ring buffer of recent steering
// commands, sized to ceil(l_dead*rate)+1 samples (§9), used to produce the
// delayed command δ_cmd(t - l_dead) the FOPDT model needs.
type deadTimeBuffer struct {
	samples  []float64
	times    []float64
	writeIdx int
	filled   int
}

func newDeadTimeBuffer(lDead, rateHz float64) *deadTimeBuffer {
	capacity := int(math.Ceil(lDead*rateHz)) + 1
	if capacity < 1 {
		capacity = 1
	}
	return &deadTimeBuffer{
		samples: make([]float64, capacity),
		times:   make([]float64, capacity),
	}
}

// push records val at simTime, overwriting the oldest sample once full.
func (b *deadTimeBuffer) push(simTime, val float64) {
	b.samples[b.writeIdx] = val
	b.times[b.writeIdx] = simTime
	b.writeIdx = (b.writeIdx + 1) % len(b.samples)
	if b.filled < len(b.samples) {
		b.filled++
	}
}

// delayed returns the command that was current at simTime-lDead: the most
// recent sample pushed at or before that time. If no sample is that old yet
// (including before any command has been pushed), it returns 0, the implicit
// pre-episode command.
func (b *deadTimeBuffer) delayed(simTime, lDead float64) float64 {
	if b.filled == 0 {
		return 0
	}
	target := simTime - lDead
	best := 0
	bestTime := math.Inf(-1)
	for i := 0; i < b.filled; i++ {
		idx := (b.writeIdx - 1 - i + len(b.samples)) % len(b.samples)
		t := b.times[idx]
		if t <= target && t > bestTime {
			bestTime = t
			best = idx
		}
	}
	if bestTime == math.Inf(-1) {
		// No sample old enough yet: the dead-time window still holds the
		// pre-episode default, not the newest pushed command.
		return 0
	}
	return b.samples[best]
}
