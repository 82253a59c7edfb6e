package simulation

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{"zero duration", func(r *Request) { r.Project.DurationMonths = 0 }, "project.duration_months"},
		{"malformed start month", func(r *Request) { r.Project.StartMonth = "2025/01" }, "project.start_month"},
		{"lags not summing to one", func(r *Request) {
			r.Risk.InvoiceLags = map[Component][]float64{Material: {0.5, 0.3}}
		}, "risk.invoice_lags.MATERIAL"},
		{"unknown lag component", func(r *Request) {
			r.Risk.InvoiceLags = map[Component][]float64{"LABOUR": {1}}
		}, "risk.invoice_lags.LABOUR"},
		{"undeclared entity", func(r *Request) { r.OutflowPlanned[0].Entity = "South" }, "outflow_planned[0].entity"},
		{"row outside horizon", func(r *Request) { r.OutflowPlanned[0].Month = "2027-01" }, "outflow_planned[0].month"},
		{"negative amount", func(r *Request) { r.OutflowPlanned[2].Material = -1 }, "outflow_planned[2].material"},
		{"non-finite allocation", func(r *Request) { r.AllocationPlanned[1].Amount = math.Inf(1) }, "allocation_planned[1].amount"},
		{"unknown volatility class", func(r *Request) { r.Risk.Market.VolatilityClass = "extreme" }, "risk.market.volatility_class"},
		{"throttle above one", func(r *Request) { r.Policy.MaxThrottlePctPerMonth = 1.5 }, "policy.max_throttle_pct_per_month"},
		{"friction below one", func(r *Request) { r.Policy.FrictionMultiplier = 0.9 }, "policy.friction_multiplier"},
		{"unknown breach mode", func(r *Request) { r.Policy.BreachMode = "panic" }, "policy.breach_mode"},
		{"threat probability", func(r *Request) {
			r.Risk.Threats = []Threat{{Name: "strike", TargetMonth: "2025-03", Amount: 5, Probability: 1.2}}
		}, "risk.threats[0].probability"},
		{"threat outside horizon", func(r *Request) {
			r.Risk.Threats = []Threat{{Name: "strike", TargetMonth: "2030-03", Amount: 5, Probability: 0.2}}
		}, "risk.threats[0].target_month"},
		{"rain month", func(r *Request) { r.Risk.Execution.RainMonths = []int{13} }, "risk.execution.rain_months"},
		{"too many trials", func(r *Request) { r.Trials = MaxTrials + 1 }, "trials"},
		{"infinite volatility scale", func(r *Request) { r.VolatilityScale = math.Inf(1) }, "volatility_scale"},
		{"NaN volatility scale", func(r *Request) { r.VolatilityScale = math.NaN() }, "volatility_scale"},
		{"infinite inflation", func(r *Request) { r.Risk.Market.AnnualInflation = math.Inf(1) }, "risk.market.annual_inflation"},
		{"NaN inflation", func(r *Request) { r.Risk.Market.AnnualInflation = math.NaN() }, "risk.market.annual_inflation"},
		{"NaN market weight", func(r *Request) {
			w := math.NaN()
			r.Risk.Market.MarketWeight = &w
		}, "risk.market.market_weight"},
		{"market weight of one", func(r *Request) {
			w := 1.0
			r.Risk.Market.MarketWeight = &w
		}, "risk.market.market_weight"},
		{"NaN clamp ceiling", func(r *Request) { r.Risk.Market.MaterialClampCeil = math.NaN() }, "risk.market.material_clamp_ceiling"},
		{"infinite clamp ceiling", func(r *Request) { r.Risk.Market.MaterialClampCeil = math.Inf(1) }, "risk.market.material_clamp_ceiling"},
		{"infinite friction", func(r *Request) { r.Policy.FrictionMultiplier = math.Inf(1) }, "policy.friction_multiplier"},
		{"NaN collection efficiency", func(r *Request) { r.Risk.Funding.CollectionEfficiency = math.NaN() }, "risk.funding.collection_efficiency"},
		{"NaN progress", func(r *Request) {
			r.CurrentMonth = &CurrentMonthActuals{MonthID: "2025-02", ElapsedFraction: 0.5, PhysicalProgressPct: math.NaN()}
		}, "current_month.physical_progress_pct"},
		{"current month outside horizon", func(r *Request) {
			r.CurrentMonth = &CurrentMonthActuals{MonthID: "2024-12", ElapsedFraction: 0.5}
		}, "current_month.month_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(100)
			tt.mutate(&req)
			err := Validate(ApplyDefaults(req))
			if err == nil {
				t.Fatalf("expected a validation error")
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected a violation on %q, got %v", tt.field, verrs)
			}
		})
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	if err := Validate(ApplyDefaults(baseRequest(100))); err != nil {
		t.Fatalf("expected a valid request, got %v", err)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	req := baseRequest(100)
	req.Project.DurationMonths = -3
	req.Policy.MaxThrottlePctPerMonth = -1
	req.Risk.Funding.MinProgressCovenant = 2

	err := Validate(ApplyDefaults(req))
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) < 3 {
		t.Fatalf("expected at least 3 problems, got %v", err)
	}
	if !strings.Contains(err.Error(), "duration_months") {
		t.Errorf("error text should name the field: %s", err)
	}
}

func TestEngine_RunRejectsBeforeSimulating(t *testing.T) {
	req := baseRequest(100)
	req.Risk.InvoiceLags = map[Component][]float64{Service: {0.9}}
	_, err := NewEngine().Run(t.Context(), req)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
}

func TestValidate_NonFiniteInputsNeverReachTheEngine(t *testing.T) {
	req := baseRequest(105)
	req.Risk.Market.AnnualInflation = math.NaN()
	req.VolatilityScale = math.Inf(1)

	_, err := NewEngine(WithAttributionTrials(0)).Run(t.Context(), req)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 2 {
		t.Fatalf("expected both non-finite fields to be rejected, got %v", err)
	}
}

func TestValidate_ZeroMarketWeightIsAccepted(t *testing.T) {
	req := baseRequest(100)
	zero := 0.0
	req.Risk.Market.MarketWeight = &zero
	if err := Validate(ApplyDefaults(req)); err != nil {
		t.Fatalf("zero market weight should be valid: %v", err)
	}
}
