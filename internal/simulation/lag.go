package simulation

import (
	"math"
)

// lagTolerance is the allowed deviation of a lag schedule's sum from 1.
const lagTolerance = 1e-6

// Distribute splits an incurred amount into cash due 0,1,2.. months later.
func Distribute(incurred float64, lags []float64) []float64 {
	out := make([]float64, len(lags))
	for k, f := range lags {
		out[k] = incurred * f
	}
	return out
}

// checkLagSchedule reports why a lag schedule is unusable, or "" when it is valid.
func checkLagSchedule(lags []float64) string {
	if len(lags) == 0 {
		return "lag schedule is empty"
	}
	sum := 0.0
	for _, f := range lags {
		if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return "lag fractions must be finite and non-negative"
		}
		sum += f
	}
	if math.Abs(sum-1) > lagTolerance {
		return "lag fractions must sum to 1"
	}
	return ""
}

// maxLag is the longest schedule length across components.
func maxLag(lags [numComponents][]float64) int {
	n := 0
	for _, l := range lags {
		if len(l) > n {
			n = len(l)
		}
	}
	return n
}

// pendingCash is a trial-local buffer of future cash obligations indexed by
// absolute horizon month. It extends past the horizon so late buckets are kept.
type pendingCash []float64

func newPendingCash(horizon int, lags [numComponents][]float64) pendingCash {
	return make(pendingCash, horizon+maxLag(lags))
}

// schedule books one month of incurred cost by component onto the buffer.
func (p pendingCash) schedule(month int, incurred [numComponents]float64, lags [numComponents][]float64) {
	for c := 0; c < numComponents; c++ {
		if incurred[c] == 0 {
			continue
		}
		for k, f := range lags[c] {
			p[month+k] += incurred[c] * f
		}
	}
}

// beyond sums obligations that fall after the horizon.
func (p pendingCash) beyond(horizon int) float64 {
	total := 0.0
	for i := horizon; i < len(p); i++ {
		total += p[i]
	}
	return total
}
