package simulation

import (
	"fmt"
	"math"
	"strings"
)

const (
	// DefaultTrials is used when a request does not specify a trial count.
	DefaultTrials = 5000
	// DefaultSeed keeps runs reproducible unless the caller varies it.
	DefaultSeed int64 = 20240601
	// MaxTrials is the hard ceiling on trials per run.
	MaxTrials = 1_000_000
	// MaxHorizonMonths bounds the simulated horizon.
	MaxHorizonMonths = 600

	defaultFriction = 1.10
)

// ValidationError is a single configuration invariant violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every violation found in a request.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("invalid simulation request (%d problems): %s", len(v), strings.Join(parts, "; "))
}

// ApplyDefaults fills unset optional fields. It returns a copy; the input is untouched.
func ApplyDefaults(req Request) Request {
	if req.Trials == 0 {
		req.Trials = DefaultTrials
	}
	if req.Seed == 0 {
		req.Seed = DefaultSeed
	}
	if req.VolatilityScale == 0 {
		req.VolatilityScale = 1
	}
	if req.Project.AsOfMonth == "" {
		req.Project.AsOfMonth = req.Project.StartMonth
	}
	if req.Project.UnderspendPolicy == "" {
		req.Project.UnderspendPolicy = UnderspendCarryForward
	}
	if req.Policy.BreachMode == "" {
		req.Policy.BreachMode = BreachThrottle
	}
	if req.Policy.FrictionMultiplier == 0 {
		req.Policy.FrictionMultiplier = defaultFriction
	}
	if req.Risk.Market.VolatilityClass == "" {
		req.Risk.Market.VolatilityClass = "med"
	}
	if req.Risk.Execution.ContractorReliability == "" {
		req.Risk.Execution.ContractorReliability = "med"
	}
	if req.Risk.Funding.CollectionEfficiency == 0 {
		req.Risk.Funding.CollectionEfficiency = 1
	}
	if len(req.OutflowActive) == 0 {
		req.OutflowActive = req.OutflowPlanned
	}
	return req
}

type validator struct {
	errs       ValidationErrors
	months     map[string]bool
	entities   map[string]bool
	activities map[string]bool
}

func (v *validator) add(field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) fraction(field string, x float64) {
	if math.IsNaN(x) || x < 0 || x > 1 {
		v.add(field, "must be between 0 and 1, got %v", x)
	}
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func (v *validator) amount(field string, x float64) {
	if !finite(x) || x < 0 {
		v.add(field, "must be a finite non-negative amount, got %v", x)
	}
}

func (v *validator) month(field, m string) {
	if v.months == nil {
		return
	}
	if !v.months[m] {
		v.add(field, "month %q is outside the project horizon", m)
	}
}

// Validate checks every configuration invariant and returns ValidationErrors, or nil.
// It expects a request that has been through ApplyDefaults.
func Validate(req Request) error {
	v := &validator{}
	p := req.Project

	if p.DurationMonths <= 0 {
		v.add("project.duration_months", "must be positive, got %d", p.DurationMonths)
	} else if p.DurationMonths > MaxHorizonMonths {
		v.add("project.duration_months", "must not exceed %d", MaxHorizonMonths)
	}
	if _, err := ParseMonth(p.StartMonth); err != nil {
		v.add("project.start_month", "%v", err)
	} else if p.DurationMonths > 0 && p.DurationMonths <= MaxHorizonMonths {
		labels, _ := MonthRange(p.StartMonth, p.DurationMonths)
		v.months = make(map[string]bool, len(labels))
		for _, m := range labels {
			v.months[m] = true
		}
	}
	if _, err := ParseMonth(p.AsOfMonth); err != nil {
		v.add("project.as_of_month", "%v", err)
	}
	v.amount("project.budget_cap", p.BudgetCap)
	switch p.UnderspendPolicy {
	case UnderspendCarryForward, UnderspendLapse:
	default:
		v.add("project.underspend_policy", "unknown policy %q", p.UnderspendPolicy)
	}
	if len(p.Entities) > 0 {
		v.entities = toSet(p.Entities)
	}
	if len(p.Activities) > 0 {
		v.activities = toSet(p.Activities)
	}

	pol := req.Policy
	switch pol.BreachMode {
	case BreachThrottle, BreachAccrue:
	default:
		v.add("policy.breach_mode", "unknown mode %q", pol.BreachMode)
	}
	v.fraction("policy.max_throttle_pct_per_month", pol.MaxThrottlePctPerMonth)
	if !finite(pol.FrictionMultiplier) || pol.FrictionMultiplier < 1 {
		v.add("policy.friction_multiplier", "must be finite and at least 1, got %v", pol.FrictionMultiplier)
	}
	for c, r := range pol.CommitmentRatios {
		if componentIndex(c) < 0 {
			v.add("policy.commitment_ratios", "unknown component %q", c)
			continue
		}
		v.fraction("policy.commitment_ratios."+string(c), r)
	}

	v.risk(req.Risk)

	if !finite(req.VolatilityScale) || req.VolatilityScale < 0 {
		v.add("volatility_scale", "must be finite and non-negative, got %v", req.VolatilityScale)
	}
	if req.Trials < 1 || req.Trials > MaxTrials {
		v.add("trials", "must be between 1 and %d, got %d", MaxTrials, req.Trials)
	}

	if len(req.OutflowPlanned) == 0 {
		v.add("outflow_planned", "at least one planned outflow row is required")
	}
	v.outflows("outflow_planned", req.OutflowPlanned)
	v.outflows("outflow_active", req.OutflowActive)
	v.outflows("outflow_actual", req.OutflowActual)
	v.allocations("allocation_planned", req.AllocationPlanned)
	v.allocations("allocation_actual", req.AllocationActual)

	if cm := req.CurrentMonth; cm != nil {
		v.month("current_month.month_id", cm.MonthID)
		v.fraction("current_month.elapsed_fraction", cm.ElapsedFraction)
		v.amount("current_month.paid_to_date.service", cm.PaidToDate.Service)
		v.amount("current_month.paid_to_date.material", cm.PaidToDate.Material)
		v.amount("current_month.paid_to_date.infra", cm.PaidToDate.Infra)
		v.amount("current_month.committed_po_value", cm.CommittedPOValue)
		v.amount("current_month.estimate_to_complete", cm.EstimateToComplete)
		v.amount("current_month.physical_progress_pct", cm.PhysicalProgressPct)
		v.amount("current_month.planned_progress_pct", cm.PlannedProgressPct)
	}

	if len(v.errs) > 0 {
		return v.errs
	}
	return nil
}

func (v *validator) risk(r RiskConfig) {
	if _, ok := volatilityClasses[strings.ToLower(r.Market.VolatilityClass)]; !ok {
		v.add("risk.market.volatility_class", "unknown class %q", r.Market.VolatilityClass)
	}
	switch strings.ToLower(r.Market.Distribution) {
	case "", FamilyLogNormal, FamilyNormal, FamilyTriangular:
	default:
		v.add("risk.market.distribution", "unknown family %q", r.Market.Distribution)
	}
	v.fraction("risk.market.fx_exposure", r.Market.FXExposure)
	if w := r.Market.MarketWeight; w != nil && (math.IsNaN(*w) || *w < 0 || *w >= 1) {
		v.add("risk.market.market_weight", "must be in [0,1), got %v", *w)
	}
	if infl := r.Market.AnnualInflation; !finite(infl) || infl <= -1 {
		v.add("risk.market.annual_inflation", "must be finite and greater than -1, got %v", infl)
	}
	if ceil := r.Market.MaterialClampCeil; !finite(ceil) || (ceil != 0 && ceil < 1) {
		v.add("risk.market.material_clamp_ceiling", "must be finite and at least 1, got %v", ceil)
	}

	v.fraction("risk.execution.schedule_confidence", r.Execution.ScheduleConfidence)
	if _, ok := reliabilityClasses[strings.ToLower(r.Execution.ContractorReliability)]; !ok {
		v.add("risk.execution.contractor_reliability", "unknown class %q", r.Execution.ContractorReliability)
	}
	for _, m := range r.Execution.RainMonths {
		if m < 1 || m > 12 {
			v.add("risk.execution.rain_months", "calendar month %d is not in 1-12", m)
		}
	}

	if ce := r.Funding.CollectionEfficiency; math.IsNaN(ce) || ce <= 0 || ce > 1 {
		v.add("risk.funding.collection_efficiency", "must be in (0,1], got %v", r.Funding.CollectionEfficiency)
	}
	v.fraction("risk.funding.min_progress_covenant", r.Funding.MinProgressCovenant)
	v.amount("risk.funding.reserve_capacity", r.Funding.ReserveCapacity)
	v.amount("risk.funding.reserve_monthly_cap", r.Funding.ReserveMonthlyCap)

	for i, t := range r.Threats {
		field := fmt.Sprintf("risk.threats[%d]", i)
		v.fraction(field+".probability", t.Probability)
		v.amount(field+".amount", t.Amount)
		v.month(field+".target_month", t.TargetMonth)
		if t.Component != "" && componentIndex(t.Component) < 0 {
			v.add(field+".component", "unknown component %q", t.Component)
		}
	}

	for c, lags := range r.InvoiceLags {
		field := "risk.invoice_lags." + string(c)
		if componentIndex(c) < 0 {
			v.add(field, "unknown component %q", c)
			continue
		}
		if msg := checkLagSchedule(lags); msg != "" {
			v.add(field, "%s", msg)
		}
	}
}

func (v *validator) outflows(field string, rows []OutflowRow) {
	for i, r := range rows {
		f := fmt.Sprintf("%s[%d]", field, i)
		v.month(f+".month", r.Month)
		if v.entities != nil && !v.entities[r.Entity] {
			v.add(f+".entity", "entity %q is not declared in the project", r.Entity)
		}
		if v.activities != nil && !v.activities[r.Activity] {
			v.add(f+".activity", "activity %q is not declared in the project", r.Activity)
		}
		v.amount(f+".service", r.Service)
		v.amount(f+".material", r.Material)
		v.amount(f+".infra", r.Infra)
	}
}

func (v *validator) allocations(field string, rows []AllocationRow) {
	for i, r := range rows {
		f := fmt.Sprintf("%s[%d]", field, i)
		v.month(f+".month", r.Month)
		v.amount(f+".amount", r.Amount)
	}
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}
