package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"liquidity-mcs/internal/runner"
	"liquidity-mcs/internal/scenario"
	"liquidity-mcs/internal/simulation"
	"liquidity-mcs/internal/visuals"
)

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name: "forecast_liquidity",
		Description: "Run the Monte Carlo liquidity simulation for a scenario and return per-month " +
			"percentiles of inflow, cash out, shortfall and schedule debt, the breach radar, " +
			"ranked risk drivers and (when current-month actuals are present) a now-cast.",
	}, s.handleForecast)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "validate_scenario",
		Description: "Check a scenario against every configuration constraint without simulating. Reports each violation with its field path.",
	}, s.handleValidate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name: "nowcast_current_month",
		Description: "Project where the month in progress will close from partial actuals: performance factor, " +
			"P50/P80 cash, probability of exceeding plan, deferrable amount and suggested actions.",
	}, s.handleNowCast)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "explain_drivers",
		Description: "Rank risk factors by how much neutralising each one lowers the probability of any funding shortfall.",
	}, s.handleExplain)
}

// loadRequest resolves the scenario of a tool call: an inline document wins over a path.
func (s *Server) loadRequest(path, doc string) (simulation.Request, error) {
	var (
		req simulation.Request
		err error
	)
	switch {
	case strings.TrimSpace(doc) != "":
		req, err = scenario.DecodeString(doc)
	case path != "":
		req, err = scenario.Load(s.app.ResolveScenario(path))
	default:
		return req, errors.New("either scenario_path or scenario is required")
	}
	if err != nil {
		return req, fmt.Errorf("failed to load scenario: %w", err)
	}
	return req, nil
}

func (s *Server) simulate(ctx context.Context, req simulation.Request) (simulation.Response, error) {
	s.app.ApplyRequestDefaults(&req)
	resp, err := s.runner.Run(ctx, req)
	if err != nil {
		var verrs simulation.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			return resp, fmt.Errorf("scenario is invalid: %w", err)
		case errors.Is(err, runner.ErrSuperseded):
			return resp, fmt.Errorf("this run was superseded by a newer request")
		}
		return resp, fmt.Errorf("simulation failed: %w", err)
	}
	return resp, nil
}

func (s *Server) handleForecast(ctx context.Context, req *sdk.CallToolRequest, args ForecastInput) (*sdk.CallToolResult, ForecastOutput, error) {
	simReq, err := s.loadRequest(args.ScenarioPath, args.Scenario)
	if err != nil {
		return nil, ForecastOutput{}, err
	}
	if args.Trials > 0 {
		simReq.Trials = args.Trials
	}
	if args.Seed != 0 {
		simReq.Seed = args.Seed
	}
	if args.VolatilityScale > 0 {
		simReq.VolatilityScale = args.VolatilityScale
	}

	resp, err := s.simulate(ctx, simReq)
	if err != nil {
		return nil, ForecastOutput{}, err
	}

	out := ForecastOutput{
		RunID:       resp.RunID,
		GeneratedAt: resp.GeneratedAt.Format(time.RFC3339),
		Months:      resp.Months,
		KPIs:        resp.KPIs,
		BreachRadar: resp.BreachRadar,
		NowCast:     resp.NowCast,
		Summary:     summarize(resp),
	}
	if s.app.EnableMermaidCharts {
		out.Charts = map[string]string{}
		addChart(out.Charts, "shortfall_probability", visuals.GenerateShortfallChart(resp.Months))
		addChart(out.Charts, "cash_band", visuals.GenerateCashBandChart(resp.Months))
		addChart(out.Charts, "breach_radar", visuals.GenerateBreachChart(resp.BreachRadar))
		addChart(out.Charts, "drivers", visuals.GenerateDriverPie(resp.KPIs.Drivers))
	}

	log.Info().Str("run", resp.RunID).Float64("p_shortfall", resp.KPIs.ProbabilityAnyShortfall).Msg("Forecast completed")
	return nil, out, nil
}

func addChart(charts map[string]string, name, chart string) {
	if chart != "" {
		charts[name] = chart
	}
}

func (s *Server) handleValidate(ctx context.Context, req *sdk.CallToolRequest, args ValidateInput) (*sdk.CallToolResult, ValidateOutput, error) {
	simReq, err := s.loadRequest(args.ScenarioPath, args.Scenario)
	if err != nil {
		return nil, ValidateOutput{}, err
	}
	s.app.ApplyRequestDefaults(&simReq)

	err = simulation.Validate(simulation.ApplyDefaults(simReq))
	var verrs simulation.ValidationErrors
	switch {
	case err == nil:
		months, _ := simulation.MonthRange(simReq.Project.StartMonth, simReq.Project.DurationMonths)
		return nil, ValidateOutput{
			Valid:   true,
			Horizon: months,
			Message: fmt.Sprintf("Scenario is valid: %d months from %s", len(months), simReq.Project.StartMonth),
		}, nil
	case errors.As(err, &verrs):
		return nil, ValidateOutput{
			Errors:  verrs,
			Message: fmt.Sprintf("Scenario has %d problem(s)", len(verrs)),
		}, nil
	default:
		return nil, ValidateOutput{}, err
	}
}

func (s *Server) handleNowCast(ctx context.Context, req *sdk.CallToolRequest, args NowCastInput) (*sdk.CallToolResult, NowCastOutput, error) {
	simReq, err := s.loadRequest(args.ScenarioPath, args.Scenario)
	if err != nil {
		return nil, NowCastOutput{}, err
	}
	if args.CurrentMonth != nil {
		simReq.CurrentMonth = args.CurrentMonth
	}
	if simReq.CurrentMonth == nil {
		return nil, NowCastOutput{}, errors.New("current_month actuals are required for a now-cast")
	}
	if args.Trials > 0 {
		simReq.Trials = args.Trials
	}

	resp, err := s.simulate(ctx, simReq)
	if err != nil {
		return nil, NowCastOutput{}, err
	}
	nc := resp.NowCast
	if nc == nil {
		return nil, NowCastOutput{}, fmt.Errorf("month %s is not part of the simulated horizon", simReq.CurrentMonth.MonthID)
	}

	msg := fmt.Sprintf("%s is tracking to P50 %.0f / P80 %.0f against a planned %.0f (%.0f%% chance of exceeding plan).",
		nc.Month, nc.P50, nc.P80, nc.PlannedCash, nc.ProbExceedPlan*100)
	return nil, NowCastOutput{RunID: resp.RunID, NowCast: nc, Message: msg}, nil
}

func (s *Server) handleExplain(ctx context.Context, req *sdk.CallToolRequest, args ExplainInput) (*sdk.CallToolResult, ExplainOutput, error) {
	simReq, err := s.loadRequest(args.ScenarioPath, args.Scenario)
	if err != nil {
		return nil, ExplainOutput{}, err
	}
	if args.Trials > 0 {
		simReq.Trials = args.Trials
	}

	resp, err := s.simulate(ctx, simReq)
	if err != nil {
		return nil, ExplainOutput{}, err
	}

	out := ExplainOutput{
		RunID:                   resp.RunID,
		ProbabilityAnyShortfall: resp.KPIs.ProbabilityAnyShortfall,
		Drivers:                 resp.KPIs.Drivers,
	}
	for _, d := range resp.KPIs.Drivers {
		if d.Delta > 0 {
			out.Levers = append(out.Levers, d.Lever)
		}
	}
	switch {
	case len(resp.KPIs.Drivers) == 0:
		out.Message = "Driver attribution is disabled (ATTRIBUTION_TRIALS=0)."
	case len(out.Levers) == 0:
		out.Message = "No single factor materially changes the shortfall probability."
	default:
		top := resp.KPIs.Drivers[0]
		out.Message = fmt.Sprintf("%s is the leading driver: neutralising it lowers the shortfall probability by %.1f points.",
			top.Factor, top.Delta*100)
	}
	if s.app.EnableMermaidCharts {
		out.Chart = visuals.GenerateDriverPie(resp.KPIs.Drivers)
	}
	return nil, out, nil
}

func summarize(resp simulation.Response) string {
	k := resp.KPIs
	var sb strings.Builder
	fmt.Fprintf(&sb, "Probability of any funding shortfall: %.1f%%. ", k.ProbabilityAnyShortfall*100)
	fmt.Fprintf(&sb, "Probability of meeting plan: %.1f%%. ", k.ProbabilityMeetingPlan*100)
	if k.RedMonths > 0 {
		fmt.Fprintf(&sb, "%d red month(s); worst is %s at %.1f%%. ", k.RedMonths, k.WorstMonth.Month, k.WorstMonth.ShortfallProbability*100)
	}
	if r := resp.BreachRadar; r != nil && r.EarliestBreachP50 != "" {
		fmt.Fprintf(&sb, "Median first breach: %s. ", r.EarliestBreachP50)
	}
	if len(k.Drivers) > 0 && k.Drivers[0].Delta > 0 {
		fmt.Fprintf(&sb, "Leading driver: %s (%s).", k.Drivers[0].Factor, k.Drivers[0].Lever)
	}
	return strings.TrimSpace(sb.String())
}
