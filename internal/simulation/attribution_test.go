package simulation

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func TestNeutralizers_ArePure(t *testing.T) {
	base := DeriveParams(RiskConfig{
		Market:    MarketRisk{VolatilityClass: "high"},
		Execution: ExecutionRisk{ScheduleConfidence: 0.4, ContractorReliability: "low", RainMonths: []int{7}},
		Funding:   FundingRisk{CollectionEfficiency: 0.8, CovenantHardStop: true, MinProgressCovenant: 0.7},
		Threats:   []Threat{{Name: "strike", TargetMonth: "2025-04", Amount: 40, Probability: 0.5}},
	}, 1)
	snapshot := DeriveParams(RiskConfig{
		Market:    MarketRisk{VolatilityClass: "high"},
		Execution: ExecutionRisk{ScheduleConfidence: 0.4, ContractorReliability: "low", RainMonths: []int{7}},
		Funding:   FundingRisk{CollectionEfficiency: 0.8, CovenantHardStop: true, MinProgressCovenant: 0.7},
		Threats:   []Threat{{Name: "strike", TargetMonth: "2025-04", Amount: 40, Probability: 0.5}},
	}, 1)

	for _, n := range Neutralizers() {
		t.Run(n.Factor, func(t *testing.T) {
			out := n.Apply(base)
			if reflect.DeepEqual(out, base) {
				t.Errorf("%s neutralizer changed nothing", n.Factor)
			}
			if !reflect.DeepEqual(base, snapshot) {
				t.Fatalf("%s neutralizer leaked into the baseline", n.Factor)
			}
		})
	}
}

func TestAttribution_NonNegativeAndNormalised(t *testing.T) {
	req := baseRequest(98)
	req.Risk.Market.VolatilityClass = "high"
	req.Risk.Execution.RainMonths = []int{3, 4}
	req.Trials = 1500

	resp, err := NewEngine(WithAttributionTrials(800)).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	drivers := resp.KPIs.Drivers
	if len(drivers) != len(Neutralizers()) {
		t.Fatalf("expected one driver per factor, got %d", len(drivers))
	}

	sum := 0.0
	for i, d := range drivers {
		if d.Delta < 0 || d.Contribution < 0 {
			t.Errorf("%s: negative attribution %+v", d.Factor, d)
		}
		if i > 0 && d.Delta > drivers[i-1].Delta {
			t.Errorf("drivers not ranked: %s above %s", drivers[i-1].Factor, d.Factor)
		}
		if d.Lever == "" {
			t.Errorf("%s: missing lever", d.Factor)
		}
		sum += d.Contribution
	}
	if drivers[0].Delta > 0 && math.Abs(sum-resp.KPIs.ProbabilityAnyShortfall) > 1e-9 {
		t.Errorf("contributions sum to %f, want baseline %f", sum, resp.KPIs.ProbabilityAnyShortfall)
	}
}

func TestAttribution_ThreatIsTheOnlyDriver(t *testing.T) {
	// Without the threat the quiet project is exactly funded.
	req := twoMonthRequest(100, 100, 0.5)
	req.Risk.Threats = []Threat{{Name: "claim", TargetMonth: "2025-02", Amount: 30, Probability: 1}}
	req = ApplyDefaults(req)
	pl, _ := newPlan(req)
	p := quiet(DeriveParams(req.Risk, 1))

	drivers, err := NewEngine(WithAttributionTrials(100)).attribute(context.Background(), pl, p, req.Seed, 1)
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	if drivers[0].Factor != "threats" || drivers[0].Delta != 1 || drivers[0].Contribution != 1 {
		t.Errorf("expected threats to explain all shortfall, got %+v", drivers[0])
	}
	for _, d := range drivers[1:] {
		if d.Delta != 0 {
			t.Errorf("%s should not contribute, got %f", d.Factor, d.Delta)
		}
	}
}
