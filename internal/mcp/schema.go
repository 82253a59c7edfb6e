// Package mcp exposes the liquidity simulator as Model Context Protocol tools over stdio.
package mcp

import (
	"liquidity-mcs/internal/simulation"
)

// ForecastInput defines the input for the forecast_liquidity tool.
type ForecastInput struct {
	ScenarioPath    string  `json:"scenario_path,omitempty" jsonschema:"scenario file (.yaml, .yml or .json); relative paths resolve against the scenarios folder"`
	Scenario        string  `json:"scenario,omitempty" jsonschema:"inline scenario document in YAML or JSON, used instead of scenario_path"`
	Trials          int     `json:"trials,omitempty" jsonschema:"number of Monte Carlo trials (overrides the scenario)"`
	Seed            int64   `json:"seed,omitempty" jsonschema:"master seed (overrides the scenario)"`
	VolatilityScale float64 `json:"volatility_scale,omitempty" jsonschema:"stress multiplier on material price volatility"`
}

// ForecastOutput defines the output for the forecast_liquidity tool.
type ForecastOutput struct {
	RunID       string                         `json:"run_id" jsonschema:"identifier of this run"`
	GeneratedAt string                         `json:"generated_at" jsonschema:"RFC3339 timestamp"`
	Months      []simulation.MonthlyStats      `json:"months" jsonschema:"per-month percentile results"`
	KPIs        simulation.KPIs                `json:"kpis" jsonschema:"headline indicators, ranked drivers and diagnostics"`
	BreachRadar *simulation.BreachRadarResults `json:"breach_radar,omitempty" jsonschema:"distribution of the first shortfall month"`
	NowCast     *simulation.NowCastResults     `json:"now_cast,omitempty" jsonschema:"projection of the month in progress"`
	Charts      map[string]string              `json:"charts,omitempty" jsonschema:"Mermaid charts keyed by name"`
	Summary     string                         `json:"summary" jsonschema:"one-paragraph reading of the results"`
}

// ValidateInput defines the input for the validate_scenario tool.
type ValidateInput struct {
	ScenarioPath string `json:"scenario_path,omitempty" jsonschema:"scenario file to check"`
	Scenario     string `json:"scenario,omitempty" jsonschema:"inline scenario document in YAML or JSON"`
}

// ValidateOutput defines the output for the validate_scenario tool.
type ValidateOutput struct {
	Valid   bool                         `json:"valid"`
	Errors  []simulation.ValidationError `json:"errors,omitempty" jsonschema:"every violated constraint with its field path"`
	Horizon []string                     `json:"horizon,omitempty" jsonschema:"month labels of a valid scenario"`
	Message string                       `json:"message"`
}

// NowCastInput defines the input for the nowcast_current_month tool.
type NowCastInput struct {
	ScenarioPath string                          `json:"scenario_path,omitempty" jsonschema:"scenario file"`
	Scenario     string                          `json:"scenario,omitempty" jsonschema:"inline scenario document in YAML or JSON"`
	CurrentMonth *simulation.CurrentMonthActuals `json:"current_month,omitempty" jsonschema:"partial actuals of the month in progress (overrides the scenario)"`
	Trials       int                             `json:"trials,omitempty" jsonschema:"number of Monte Carlo trials"`
}

// NowCastOutput defines the output for the nowcast_current_month tool.
type NowCastOutput struct {
	RunID   string                     `json:"run_id"`
	NowCast *simulation.NowCastResults `json:"now_cast,omitempty"`
	Message string                     `json:"message"`
}

// ExplainInput defines the input for the explain_drivers tool.
type ExplainInput struct {
	ScenarioPath string `json:"scenario_path,omitempty" jsonschema:"scenario file"`
	Scenario     string `json:"scenario,omitempty" jsonschema:"inline scenario document in YAML or JSON"`
	Trials       int    `json:"trials,omitempty" jsonschema:"number of Monte Carlo trials"`
}

// ExplainOutput defines the output for the explain_drivers tool.
type ExplainOutput struct {
	RunID                   string              `json:"run_id"`
	ProbabilityAnyShortfall float64             `json:"probability_any_shortfall"`
	Drivers                 []simulation.Driver `json:"drivers" jsonschema:"risk factors ranked by how much neutralising them lowers the shortfall probability"`
	Levers                  []string            `json:"levers,omitempty" jsonschema:"management levers of the contributing factors, most effective first"`
	Chart                   string              `json:"chart,omitempty" jsonschema:"Mermaid pie of driver contributions"`
	Message                 string              `json:"message"`
}
