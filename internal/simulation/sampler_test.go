package simulation

import (
	"math"
	"testing"
)

func TestStream_Reproducible(t *testing.T) {
	a, b := NewStream(99), NewStream(99)
	for i := 0; i < 1000; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v != %v", i, x, y)
		}
	}
	if NewStream(99).Float64() == NewStream(100).Float64() {
		t.Errorf("adjacent seeds should not share a first draw")
	}
}

func TestStream_BernoulliConsumesOneDraw(t *testing.T) {
	for _, p := range []float64{0, 0.3, 1} {
		s, ref := NewStream(5), NewStream(5)
		s.Bernoulli(p)
		ref.Float64()
		if s.Float64() != ref.Float64() {
			t.Errorf("p=%v: stream position depends on probability", p)
		}
	}
	if !NewStream(1).Bernoulli(1) {
		t.Errorf("p=1 must always fire")
	}
}

func TestSamplers_Moments(t *testing.T) {
	const n = 200000
	s := NewStream(2024)

	var sum, sumSq, logSum float64
	for i := 0; i < n; i++ {
		z := StdNormal(s)
		sum += z
		sumSq += z * z
		logSum += LogNormal(s, 1.5, 0.2)
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if math.Abs(mean) > 0.01 || math.Abs(variance-1) > 0.02 {
		t.Errorf("standard normal moments off: mean %f variance %f", mean, variance)
	}
	if got := logSum / n; math.Abs(got-1.5) > 0.01 {
		t.Errorf("log-normal mean = %f, want 1.5", got)
	}
}

func TestLogNormalFromZ_Degenerate(t *testing.T) {
	if v := LogNormalFromZ(0, 0.3, 1.2); v != 0 {
		t.Errorf("zero mean should give 0, got %f", v)
	}
	if v := LogNormalFromZ(2, 0, -3); v != 2 {
		t.Errorf("zero sigma should give the mean, got %f", v)
	}
}

func TestTriangular_InverseCDF(t *testing.T) {
	tests := []struct {
		u, want float64
	}{
		{0, 0},
		{1, 10},
		{0.2, 2}, // mode fraction is 0.2 for (0, 2, 10)
		{0.5, 10 - math.Sqrt(0.5*10*8)},
	}
	for _, tt := range tests {
		if got := Triangular(tt.u, 0, 2, 10); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Triangular(%v) = %v, want %v", tt.u, got, tt.want)
		}
	}
	if got := Triangular(0.7, 5, 5, 5); got != 5 {
		t.Errorf("collapsed range should return lo, got %v", got)
	}
}

func TestCorrelatedUniform_Bounds(t *testing.T) {
	for _, z := range []float64{-40, -1, 0, 1, 40} {
		u := CorrelatedUniform(z, z, 0.6)
		if u <= 0 || u >= 1 {
			t.Errorf("CorrelatedUniform(%v) = %v, want inside (0,1)", z, u)
		}
	}
	if got := CorrelatedUniform(0, 0, 0.6); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("zero shocks should map to the median, got %v", got)
	}
}

func TestFactorSampler_ScopeDriftIsMonotonicAndCapped(t *testing.T) {
	p := DeriveParams(RiskConfig{
		Market:    MarketRisk{VolatilityClass: "low"},
		Execution: ExecutionRisk{ScheduleConfidence: 0, ContractorReliability: "low"},
	}, 1)
	p.Scope.Mean = 0.05
	f := newFactorSampler(&p, NewStream(11))

	prev := 0.0
	for m := 0; m < 24; m++ {
		shock := f.sample("2025-01", m)
		if shock.scopeIndex < prev {
			t.Fatalf("scope drift went backwards at month %d", m)
		}
		if shock.scopeIndex > p.Scope.Cap {
			t.Fatalf("scope drift exceeded its cap: %f", shock.scopeIndex)
		}
		if shock.overrun < p.Overrun.Floor || shock.overrun > p.Overrun.Ceiling {
			t.Fatalf("overrun escaped its clamp: %f", shock.overrun)
		}
		prev = shock.scopeIndex
	}
	if f.clamps.scopeCap == 0 {
		t.Errorf("expected the scope cap to be recorded")
	}
}

func TestFactorSampler_MaterialCeilingIsRecorded(t *testing.T) {
	p := DeriveParams(RiskConfig{
		Market:    MarketRisk{VolatilityClass: "critical", MaterialClampCeil: 1.01},
		Execution: ExecutionRisk{ScheduleConfidence: 1, ContractorReliability: "high"},
	}, 1)
	f := newFactorSampler(&p, NewStream(3))
	for m := 0; m < 200; m++ {
		shock := f.sample("2025-01", 0)
		if shock.material > (1+p.Material.Bias)*p.Material.Ceiling+1e-12 {
			t.Fatalf("material multiplier above ceiling: %f", shock.material)
		}
	}
	if !f.clamps.any() || len(f.clamps.details(p)) == 0 {
		t.Errorf("expected clamping to be recorded with details")
	}
}

func TestDeriveParams(t *testing.T) {
	p := DeriveParams(RiskConfig{
		Market:      MarketRisk{VolatilityClass: "HIGH", FXExposure: 0.5},
		Execution:   ExecutionRisk{ScheduleConfidence: 0.5, ContractorReliability: "low", RainMonths: []int{6, 7}},
		Funding:     FundingRisk{CollectionEfficiency: 0.9, ReserveCapacity: 100},
		Threats:     []Threat{{Name: "flood", TargetMonth: "2025-06", Amount: 10, Probability: 0.2}},
		InvoiceLags: map[Component][]float64{Service: {1}},
	}, 1)

	wantMarket := 0.15*math.Sqrt(0.6) + 0.05
	if math.Abs(p.Material.MarketSigma-wantMarket) > 1e-12 {
		t.Errorf("market sigma = %f, want %f", p.Material.MarketSigma, wantMarket)
	}
	if math.Abs(p.Overrun.Mean-(0.10+0.08)) > 1e-12 {
		t.Errorf("overrun mean = %f", p.Overrun.Mean)
	}
	if p.Reserve.MonthlyCap != 100 {
		t.Errorf("monthly cap should default to capacity, got %f", p.Reserve.MonthlyCap)
	}
	if !p.RainMonths[6] || !p.RainMonths[7] || p.RainMonths[8] {
		t.Errorf("unexpected rain months: %v", p.RainMonths)
	}
	if len(p.InvoiceLags[0]) != 1 || len(p.InvoiceLags[1]) != 3 {
		t.Errorf("explicit lags should override only their component: %v", p.InvoiceLags)
	}
	if p.Threats[0].Component != Service {
		t.Errorf("threat component should default to SERVICE")
	}
}

func TestDeriveParams_ExplicitZeroMarketWeight(t *testing.T) {
	zero := 0.0
	p := DeriveParams(RiskConfig{
		Market:    MarketRisk{VolatilityClass: "high", MarketWeight: &zero},
		Execution: ExecutionRisk{ScheduleConfidence: 1, ContractorReliability: "high"},
	}, 1)
	if p.Material.MarketWeight != 0 || p.Material.MarketSigma != 0 {
		t.Errorf("explicit zero weight should keep all volatility idiosyncratic: %+v", p.Material)
	}
	if math.Abs(p.Material.IdioSigma-0.15) > 1e-12 {
		t.Errorf("idiosyncratic sigma = %f, want 0.15", p.Material.IdioSigma)
	}

	unset := DeriveParams(RiskConfig{Market: MarketRisk{VolatilityClass: "high"}}, 1)
	if unset.Material.MarketWeight != defaultMarketWeight {
		t.Errorf("omitted weight should default to %v, got %v", defaultMarketWeight, unset.Material.MarketWeight)
	}
}

func TestFactorSampler_WideTriangularKeepsItsMean(t *testing.T) {
	p := DeriveParams(RiskConfig{
		Market:    MarketRisk{VolatilityClass: "critical", Distribution: FamilyTriangular},
		Execution: ExecutionRisk{ScheduleConfidence: 1, ContractorReliability: "high"},
	}, 2)
	mean := 1 + p.Material.Bias

	const n = 20000
	var sum float64
	var clamps clampCounter
	for i := 0; i < n; i++ {
		f := newFactorSampler(&p, NewStream(int64(i)+1))
		m := f.sample("2025-01", 0).material
		if m < 0 || m > 2*mean+1e-12 {
			t.Fatalf("material multiplier %f outside [0, %f]", m, 2*mean)
		}
		sum += m
		clamps.add(f.clamps)
	}
	if got := sum / n; math.Abs(got-mean) > 0.015 {
		t.Errorf("triangular mean = %f, want %f", got, mean)
	}
	if clamps.triangularSpread != n || len(clamps.details(p)) == 0 {
		t.Errorf("expected every draw to record the spread cap, got %d", clamps.triangularSpread)
	}
}
