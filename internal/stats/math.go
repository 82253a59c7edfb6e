package stats

import "slices"

// Percentiles is the fixed percentile family reported for every tracked quantity.
type Percentiles struct {
	P10 float64 `json:"p10"`
	P20 float64 `json:"p20"`
	P50 float64 `json:"p50"`
	P80 float64 `json:"p80"`
	P90 float64 `json:"p90"`
}

// NearestRank returns the value at index floor(n*p) of an ascending slice.
// The index is clamped to the last element so p=1.0 is safe.
func NearestRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Summarize sorts a copy of values and extracts the percentile family.
func Summarize(values []float64) Percentiles {
	if len(values) == 0 {
		return Percentiles{}
	}

	// Work on a copy to avoid mutating the original
	temp := make([]float64, len(values))
	copy(temp, values)
	slices.Sort(temp)

	return SummarizeSorted(temp)
}

// SummarizeSorted extracts the percentile family from an already sorted slice.
func SummarizeSorted(sorted []float64) Percentiles {
	return Percentiles{
		P10: NearestRank(sorted, 0.10),
		P20: NearestRank(sorted, 0.20),
		P50: NearestRank(sorted, 0.50),
		P80: NearestRank(sorted, 0.80),
		P90: NearestRank(sorted, 0.90),
	}
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// FractionAbove returns the share of values strictly greater than threshold.
func FractionAbove(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	hits := 0
	for _, v := range values {
		if v > threshold {
			hits++
		}
	}
	return float64(hits) / float64(len(values))
}
