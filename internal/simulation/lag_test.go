package simulation

import (
	"math"
	"testing"
)

func TestDefaultInvoiceLags_SumToOne(t *testing.T) {
	for c, lags := range DefaultInvoiceLags {
		if msg := checkLagSchedule(lags); msg != "" {
			t.Errorf("%s: %s", c, msg)
		}
	}
}

func TestDistribute_ConservesCash(t *testing.T) {
	for _, lags := range [][]float64{{1}, {0.7, 0.3}, {0.1, 0.4, 0.3, 0.2}, {0, 0, 1}} {
		parts := Distribute(1234.5, lags)
		sum := 0.0
		for _, v := range parts {
			sum += v
		}
		if math.Abs(sum-1234.5) > 1e-9 {
			t.Errorf("lags %v: distributed %f, want 1234.5", lags, sum)
		}
	}
}

func TestPendingCash_KeepsLateBuckets(t *testing.T) {
	var lags [numComponents][]float64
	lags[0] = []float64{0.7, 0.3}
	lags[1] = []float64{0.2, 0.5, 0.3}
	lags[2] = []float64{0.1, 0.4, 0.3, 0.2}

	horizon := 3
	p := newPendingCash(horizon, lags)
	if len(p) != horizon+4 {
		t.Fatalf("buffer length = %d, want %d", len(p), horizon+4)
	}

	total := 0.0
	for m := 0; m < horizon; m++ {
		incurred := [numComponents]float64{100, 50, 20}
		p.schedule(m, incurred, lags)
		total += 170
	}

	inHorizon := 0.0
	for m := 0; m < horizon; m++ {
		inHorizon += p[m]
	}
	if got := inHorizon + p.beyond(horizon); math.Abs(got-total) > 1e-9 {
		t.Errorf("cash created or destroyed: scheduled %f, booked %f", total, got)
	}
	if p.beyond(horizon) <= 0 {
		t.Errorf("late buckets should fall past the horizon")
	}
}

func TestCheckLagSchedule(t *testing.T) {
	tests := []struct {
		name  string
		lags  []float64
		valid bool
	}{
		{"immediate", []float64{1}, true},
		{"within tolerance", []float64{0.3333333, 0.3333333, 0.3333334}, true},
		{"empty", nil, false},
		{"short", []float64{0.5, 0.4}, false},
		{"negative bucket", []float64{1.2, -0.2}, false},
		{"nan", []float64{math.NaN(), 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkLagSchedule(tt.lags) == ""; got != tt.valid {
				t.Errorf("checkLagSchedule(%v) valid = %v, want %v", tt.lags, got, tt.valid)
			}
		})
	}
}
