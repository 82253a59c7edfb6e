package simulation

import (
	"time"

	"liquidity-mcs/internal/stats"
)

// Component identifies a cost component with its own invoice-lag schedule.
type Component string

const (
	Service  Component = "SERVICE"
	Material Component = "MATERIAL"
	Infra    Component = "INFRA"
)

// Components lists the cost components in canonical order.
var Components = [...]Component{Service, Material, Infra}

const numComponents = len(Components)

func componentIndex(c Component) int {
	switch c {
	case Service:
		return 0
	case Material:
		return 1
	case Infra:
		return 2
	}
	return -1
}

// Breach-handling modes.
const (
	BreachThrottle = "throttle"
	BreachAccrue   = "accrue"
)

// Underspend policies.
const (
	UnderspendCarryForward = "carry_forward"
	UnderspendLapse        = "lapse"
)

// ProjectConfig describes the project horizon and its open entity/activity sets.
type ProjectConfig struct {
	Name             string   `json:"name" yaml:"name"`
	StartMonth       string   `json:"start_month" yaml:"start_month" jsonschema:"first month of the horizon (YYYY-MM)"`
	AsOfMonth        string   `json:"as_of_month" yaml:"as_of_month" jsonschema:"grounding month: earlier months use actuals (YYYY-MM)"`
	DurationMonths   int      `json:"duration_months" yaml:"duration_months"`
	BudgetCap        float64  `json:"budget_cap" yaml:"budget_cap" jsonschema:"total budget cap; 0 means unlimited"`
	Entities         []string `json:"entities" yaml:"entities"`
	Activities       []string `json:"activities" yaml:"activities"`
	UnderspendPolicy string   `json:"underspend_policy,omitempty" yaml:"underspend_policy,omitempty" jsonschema:"carry_forward (default) or lapse"`
}

// PolicyConfig holds the funding-breach handling policy.
type PolicyConfig struct {
	BreachMode                 string                `json:"breach_mode,omitempty" yaml:"breach_mode,omitempty" jsonschema:"throttle (default) or accrue"`
	MaxThrottlePctPerMonth     float64               `json:"max_throttle_pct_per_month" yaml:"max_throttle_pct_per_month" jsonschema:"upper bound of the monthly throttle fraction (0-1)"`
	CommitmentRatios           map[Component]float64 `json:"commitment_ratios,omitempty" yaml:"commitment_ratios,omitempty" jsonschema:"share of each component already contractually committed (0-1)"`
	FrictionMultiplier         float64               `json:"friction_multiplier" yaml:"friction_multiplier" jsonschema:"cost multiplier applied to deferred work (>=1)"`
	CarryHistoricalCommitments bool                  `json:"carry_historical_commitments,omitempty" yaml:"carry_historical_commitments,omitempty"`
}

// MarketRisk captures price volatility inputs.
type MarketRisk struct {
	VolatilityClass   string   `json:"volatility_class" yaml:"volatility_class" jsonschema:"low, med, high or critical"`
	AnnualInflation   float64  `json:"annual_inflation" yaml:"annual_inflation"`
	FXExposure        float64  `json:"fx_exposure" yaml:"fx_exposure" jsonschema:"fraction of material spend exposed to FX (0-1)"`
	Distribution      string   `json:"distribution,omitempty" yaml:"distribution,omitempty" jsonschema:"lognormal (default), normal or triangular"`
	MarketWeight      *float64 `json:"market_weight,omitempty" yaml:"market_weight,omitempty" jsonschema:"share of variance from the trial-wide market shock in [0,1); omitted means 0.6"`
	MaterialClampCeil float64  `json:"material_clamp_ceiling,omitempty" yaml:"material_clamp_ceiling,omitempty"`
}

// ExecutionRisk captures delivery performance inputs.
type ExecutionRisk struct {
	ScheduleConfidence    float64 `json:"schedule_confidence" yaml:"schedule_confidence" jsonschema:"0-1"`
	ContractorReliability string  `json:"contractor_reliability" yaml:"contractor_reliability" jsonschema:"high, med or low"`
	RainMonths            []int   `json:"rain_months,omitempty" yaml:"rain_months,omitempty" jsonschema:"calendar months (1-12) with seasonal productivity loss"`
}

// FundingRisk captures inflow realisation and covenant inputs.
type FundingRisk struct {
	CollectionEfficiency float64 `json:"collection_efficiency" yaml:"collection_efficiency" jsonschema:"share of planned inflow actually realised (0-1)"`
	CovenantHardStop     bool    `json:"covenant_hard_stop,omitempty" yaml:"covenant_hard_stop,omitempty"`
	MinProgressCovenant  float64 `json:"min_progress_covenant,omitempty" yaml:"min_progress_covenant,omitempty" jsonschema:"minimum physical progress ratio (0-1)"`
	ReserveCapacity      float64 `json:"reserve_capacity,omitempty" yaml:"reserve_capacity,omitempty"`
	ReserveMonthlyCap    float64 `json:"reserve_monthly_cap,omitempty" yaml:"reserve_monthly_cap,omitempty"`
}

// Threat is a manual discrete risk that materialises with a fixed probability.
type Threat struct {
	Name        string    `json:"name" yaml:"name"`
	TargetMonth string    `json:"target_month" yaml:"target_month"`
	Amount      float64   `json:"amount" yaml:"amount"`
	Probability float64   `json:"probability" yaml:"probability"`
	Component   Component `json:"component,omitempty" yaml:"component,omitempty"`
}

// RiskConfig is the user-facing risk description.
type RiskConfig struct {
	Market      MarketRisk              `json:"market" yaml:"market"`
	Execution   ExecutionRisk           `json:"execution" yaml:"execution"`
	Funding     FundingRisk             `json:"funding" yaml:"funding"`
	Threats     []Threat                `json:"threats,omitempty" yaml:"threats,omitempty"`
	InvoiceLags map[Component][]float64 `json:"invoice_lags,omitempty" yaml:"invoice_lags,omitempty" jsonschema:"per-component fractions of cost paid 0,1,2.. months after incurrence"`
}

// OutflowRow is one (month, entity, activity) cell of a demand grid.
type OutflowRow struct {
	Month    string  `json:"month" yaml:"month"`
	Entity   string  `json:"entity" yaml:"entity"`
	Activity string  `json:"activity" yaml:"activity"`
	Service  float64 `json:"service" yaml:"service"`
	Material float64 `json:"material" yaml:"material"`
	Infra    float64 `json:"infra" yaml:"infra"`
}

func (r OutflowRow) amounts() [numComponents]float64 {
	return [numComponents]float64{r.Service, r.Material, r.Infra}
}

// AllocationRow is one month of funding for the funded department.
type AllocationRow struct {
	Month      string  `json:"month" yaml:"month"`
	Department string  `json:"department,omitempty" yaml:"department,omitempty"`
	Amount     float64 `json:"amount" yaml:"amount"`
}

// ComponentAmounts is a per-component currency amount.
type ComponentAmounts struct {
	Service  float64 `json:"service" yaml:"service"`
	Material float64 `json:"material" yaml:"material"`
	Infra    float64 `json:"infra" yaml:"infra"`
}

// Total sums all components.
func (c ComponentAmounts) Total() float64 {
	return c.Service + c.Material + c.Infra
}

// CurrentMonthActuals carries partial actuals for the month in progress.
type CurrentMonthActuals struct {
	MonthID             string           `json:"month_id" yaml:"month_id"`
	PaidToDate          ComponentAmounts `json:"paid_to_date" yaml:"paid_to_date"`
	ElapsedFraction     float64          `json:"elapsed_fraction" yaml:"elapsed_fraction" jsonschema:"share of the month elapsed (0-1)"`
	CommittedPOValue    float64          `json:"committed_po_value,omitempty" yaml:"committed_po_value,omitempty"`
	PhysicalProgressPct float64          `json:"physical_progress_pct,omitempty" yaml:"physical_progress_pct,omitempty"`
	PlannedProgressPct  float64          `json:"planned_progress_pct,omitempty" yaml:"planned_progress_pct,omitempty"`
	EstimateToComplete  float64          `json:"estimate_to_complete,omitempty" yaml:"estimate_to_complete,omitempty"`
}

// Request is the full input message of one simulation run.
type Request struct {
	Project           ProjectConfig        `json:"project" yaml:"project"`
	Policy            PolicyConfig         `json:"policy" yaml:"policy"`
	Risk              RiskConfig           `json:"risk" yaml:"risk"`
	AllocationPlanned []AllocationRow      `json:"allocation_planned" yaml:"allocation_planned"`
	AllocationActual  []AllocationRow      `json:"allocation_actual,omitempty" yaml:"allocation_actual,omitempty"`
	OutflowPlanned    []OutflowRow         `json:"outflow_planned" yaml:"outflow_planned"`
	OutflowActive     []OutflowRow         `json:"outflow_active,omitempty" yaml:"outflow_active,omitempty" jsonschema:"risk-adjusted demand; defaults to the planned baseline"`
	OutflowActual     []OutflowRow         `json:"outflow_actual,omitempty" yaml:"outflow_actual,omitempty"`
	CurrentMonth      *CurrentMonthActuals `json:"current_month,omitempty" yaml:"current_month,omitempty"`
	VolatilityScale   float64              `json:"volatility_scale,omitempty" yaml:"volatility_scale,omitempty" jsonschema:"multiplier on material volatility (default 1)"`
	Trials            int                  `json:"trials,omitempty" yaml:"trials,omitempty"`
	Seed              int64                `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// MonthlyStats is the aggregated outcome of one month across all trials.
type MonthlyStats struct {
	Month                string            `json:"month"`
	Grounded             bool              `json:"grounded"`
	PlannedOutflow       float64           `json:"planned_outflow"`
	Inflow               stats.Percentiles `json:"inflow"`
	CashOutflow          stats.Percentiles `json:"cash_outflow"`
	Incurred             stats.Percentiles `json:"incurred"`
	Shortfall            stats.Percentiles `json:"shortfall"`
	ExpectedShortfall    float64           `json:"expected_shortfall"`
	ShortfallProbability float64           `json:"shortfall_probability"`
	CoverageProbability  float64           `json:"coverage_probability"`
	Backlog              stats.Percentiles `json:"payables_backlog"`
	ExpectedBacklog      float64           `json:"expected_backlog"`
	ScheduleDebt         stats.Percentiles `json:"schedule_debt"`
	ExpectedScheduleDebt float64           `json:"expected_schedule_debt"`
	ExpectedThrottle     float64           `json:"expected_throttle"`
	ExpectedReserveDraw  float64           `json:"expected_reserve_draw"`
	ExpectedLapse        float64           `json:"expected_lapse,omitempty"`
	SafeSpendLimit       float64           `json:"safe_spend_limit"`
	GapToFix             float64           `json:"gap_to_fix"`
}

// Driver is one ranked risk factor from counterfactual attribution.
type Driver struct {
	Factor       string  `json:"factor"`
	Lever        string  `json:"lever"`
	Delta        float64 `json:"delta"`
	Contribution float64 `json:"contribution"`
	Neutralized  float64 `json:"neutralized_probability"`
}

// ValidationFlags are the cross-check results recorded for a run.
type ValidationFlags struct {
	CarryForwardNonNegative bool     `json:"carry_forward_non_negative"`
	BacklogNonNegative      bool     `json:"backlog_non_negative"`
	ScheduleDebtMonotonic   bool     `json:"schedule_debt_monotonic"`
	ReserveNonNegative      bool     `json:"reserve_non_negative"`
	ConservationHeld        bool     `json:"conservation_held"`
	ClampingOccurred        bool     `json:"clamping_occurred"`
	ClampDetails            []string `json:"clamp_details,omitempty"`
}

// Diagnostics summarises run metadata and cross-check outcomes.
type Diagnostics struct {
	HorizonMonths   int             `json:"horizon_months"`
	GroundedMonths  int             `json:"grounded_months"`
	GroundedInflow  float64         `json:"grounded_inflow"`
	GroundedOutflow float64         `json:"grounded_outflow"`
	Flags           ValidationFlags `json:"flags"`
	Seed            int64           `json:"seed"`
	Trials          int             `json:"trials"`
	TrialFailures   int             `json:"trial_failures,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// WorstMonth identifies the month with the highest shortfall probability.
type WorstMonth struct {
	Month                string  `json:"month"`
	Index                int     `json:"index"`
	ShortfallProbability float64 `json:"shortfall_probability"`
}

// KPIs is the run-level headline block.
type KPIs struct {
	TotalInflow             stats.Percentiles `json:"total_inflow"`
	ProbabilityAnyShortfall float64           `json:"probability_any_shortfall"`
	ProbabilityMeetingPlan  float64           `json:"probability_meeting_plan"`
	WorstMonth              WorstMonth        `json:"worst_month"`
	PeakScheduleDebt        float64           `json:"peak_schedule_debt"`
	PeakBacklog             float64           `json:"peak_backlog"`
	TotalDeferredCost       float64           `json:"total_deferred_cost"`
	RedMonths               int               `json:"red_months"`
	Drivers                 []Driver          `json:"drivers,omitempty"`
	Diagnostics             Diagnostics       `json:"diagnostics"`
}

// NowCastResults projects the end of the month in progress.
type NowCastResults struct {
	Month             string   `json:"month"`
	PerformanceFactor float64  `json:"performance_factor"`
	PlannedCash       float64  `json:"planned_cash"`
	P50               float64  `json:"p50"`
	P80               float64  `json:"p80"`
	ProbExceedPlan    float64  `json:"probability_exceed_plan"`
	DeferrableAmount  float64  `json:"deferrable_amount"`
	TopDrivers        []string `json:"top_drivers,omitempty"`
	SuggestedActions  []string `json:"suggested_actions,omitempty"`
}

// BreachRadarResults is the distribution of first-breach months. Any shortfall
// above zero is a breach here, while KPIs.ProbabilityAnyShortfall only counts
// shortfalls above the materiality threshold, so NoBreachProbability can be
// lower than 1 - ProbabilityAnyShortfall.
type BreachRadarResults struct {
	EarliestBreachP50   string    `json:"earliest_breach_p50,omitempty"`
	EarliestBreachP80   string    `json:"earliest_breach_p80,omitempty"`
	TimeToBreachMonths  *int      `json:"time_to_breach_months,omitempty"`
	NoBreachProbability float64   `json:"no_breach_probability"`
	Distribution        []float64 `json:"distribution"`
	Months              []string  `json:"months"`
}

// Response is the full output message of one simulation run.
type Response struct {
	RunID       string              `json:"run_id,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
	Months      []MonthlyStats      `json:"months"`
	KPIs        KPIs                `json:"kpis"`
	NowCast     *NowCastResults     `json:"now_cast,omitempty"`
	BreachRadar *BreachRadarResults `json:"breach_radar,omitempty"`
}
