package cli

import (
	"fmt"
	"strings"

	"liquidity-mcs/internal/simulation"
)

// riskStyle colours a probability against the red-month threshold.
func riskStyle(p float64) string {
	s := FormatPercent(p)
	switch {
	case p > 0.5:
		return alertStyle.Render(s)
	case p > 0.2:
		return warnStyle.Render(s)
	}
	return okStyle.Render(s)
}

// MonthTable lays out the per-month results.
func MonthTable(months []simulation.MonthlyStats) Table {
	t := Table{
		Title:   "Monthly Outlook",
		Headers: []string{"Month", "Plan", "Inflow P50", "Cash P50", "Cash P80", "P(short)", "Short P80", "Debt P50", "Safe spend"},
	}
	var plan []float64
	for _, m := range months {
		label := m.Month
		if m.Grounded {
			label += " *"
		}
		t.Rows = append(t.Rows, []string{
			label,
			FormatMoney(m.PlannedOutflow),
			FormatMoney(m.Inflow.P50),
			FormatMoney(m.CashOutflow.P50),
			FormatMoney(m.CashOutflow.P80),
			riskStyle(m.ShortfallProbability),
			FormatMoney(m.Shortfall.P80),
			FormatMoney(m.ScheduleDebt.P50),
			FormatMoney(m.SafeSpendLimit),
		})
		plan = append(plan, m.PlannedOutflow)
	}
	if len(months) > 1 {
		t.Rows = append(t.Rows, []string{"---"}, []string{"Total", FormatMoney(SumMoney(plan...))})
	}
	return t
}

// DriverTable lays out the ranked attribution drivers.
func DriverTable(drivers []simulation.Driver) Table {
	t := Table{
		Title:   "Shortfall Drivers",
		Headers: []string{"Factor", "Delta", "Share", "Lever"},
	}
	for _, d := range drivers {
		t.Rows = append(t.Rows, []string{d.Factor, FormatPoints(d.Delta), FormatPercent(d.Contribution), d.Lever})
	}
	return t
}

// RenderResponse renders a complete run for the terminal.
func RenderResponse(name string, resp simulation.Response) string {
	k := resp.KPIs
	var b strings.Builder

	title := "Liquidity Forecast"
	if name != "" {
		title += ": " + name
	}
	b.WriteString(RenderTitle(title))
	b.WriteString("\n\n")

	var shortfall []float64
	for _, m := range resp.Months {
		shortfall = append(shortfall, m.ShortfallProbability)
	}

	pairs := [][2]string{
		{"P(any shortfall)", riskStyle(k.ProbabilityAnyShortfall)},
		{"P(meeting plan)", FormatPercent(k.ProbabilityMeetingPlan)},
		{"Red months", fmt.Sprintf("%d", k.RedMonths)},
		{"Worst month", fmt.Sprintf("%s (%s)", k.WorstMonth.Month, FormatPercent(k.WorstMonth.ShortfallProbability))},
		{"Total inflow P10/P50/P90", fmt.Sprintf("%s / %s / %s", FormatMoney(k.TotalInflow.P10), FormatMoney(k.TotalInflow.P50), FormatMoney(k.TotalInflow.P90))},
		{"Peak schedule debt", FormatMoney(k.PeakScheduleDebt)},
		{"Peak payables backlog", FormatMoney(k.PeakBacklog)},
		{"Deferred cost", FormatMoney(k.TotalDeferredCost)},
		{"Shortfall profile", RenderSparkline(shortfall)},
	}
	if r := resp.BreachRadar; r != nil {
		if r.EarliestBreachP50 != "" {
			pairs = append(pairs, [2]string{"First breach P50/P80", r.EarliestBreachP50 + " / " + r.EarliestBreachP80})
		}
		pairs = append(pairs, [2]string{"P(no breach)", FormatPercent(r.NoBreachProbability)})
	}
	b.WriteString(RenderKeyValues("Key Indicators", pairs))
	b.WriteString("\n")

	b.WriteString(RenderTable(MonthTable(resp.Months)))
	if k.Diagnostics.GroundedMonths > 0 {
		b.WriteString(mutedStyle.Render("  * grounded on actuals"))
		b.WriteString("\n")
	}

	if len(k.Drivers) > 0 {
		b.WriteString("\n")
		b.WriteString(RenderTable(DriverTable(k.Drivers)))
	}

	if nc := resp.NowCast; nc != nil {
		b.WriteString("\n")
		ncPairs := [][2]string{
			{"Performance factor", fmt.Sprintf("%.2f", nc.PerformanceFactor)},
			{"Planned cash", FormatMoney(nc.PlannedCash)},
			{"Projected P50/P80", FormatMoney(nc.P50) + " / " + FormatMoney(nc.P80)},
			{"P(exceed plan)", riskStyle(nc.ProbExceedPlan)},
			{"Deferrable", FormatMoney(nc.DeferrableAmount)},
		}
		for i, a := range nc.SuggestedActions {
			ncPairs = append(ncPairs, [2]string{fmt.Sprintf("Action %d", i+1), a})
		}
		b.WriteString(RenderKeyValues("Now-cast "+nc.Month, ncPairs))
	}

	d := k.Diagnostics
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s trials, seed %d, run %s", FormatNumber(int64(d.Trials)), d.Seed, resp.RunID)))
	b.WriteString("\n")
	if d.TrialFailures > 0 {
		b.WriteString(alertStyle.Render(fmt.Sprintf("  %d trial(s) failed and were excluded", d.TrialFailures)))
		b.WriteString("\n")
	}
	for _, w := range d.Warnings {
		b.WriteString(warnStyle.Render("  ! " + w))
		b.WriteString("\n")
	}
	for _, c := range d.Flags.ClampDetails {
		b.WriteString(mutedStyle.Render("  clamp: " + c))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderValidation renders validation problems, one per line.
func RenderValidation(errs simulation.ValidationErrors) string {
	t := Table{Title: "Scenario Problems", Headers: []string{"Field", "Problem"}}
	for _, e := range errs {
		t.Rows = append(t.Rows, []string{e.Field, e.Message})
	}
	return RenderTable(t)
}
