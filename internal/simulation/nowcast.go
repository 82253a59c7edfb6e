package simulation

import (
	"fmt"
	"math"

	"liquidity-mcs/internal/stats"
)

const (
	aheadOfPlanFactor  = 1.10
	topDriverCount     = 3
	exceedPlanAlarmPct = 0.5
)

// plannedCash is the cash the planned baseline puts due in month i under the
// given lag schedules, with no risk applied.
func plannedCash(pl *plan, lags [numComponents][]float64, i int) float64 {
	total := 0.0
	for j := 0; j <= i; j++ {
		for c := 0; c < numComponents; c++ {
			if k := i - j; k < len(lags[c]) {
				total += pl.planned[j][c] * lags[c][k]
			}
		}
	}
	return total
}

// nowCast projects the end-of-month cash due of the month in progress.
//
// The performance factor compares cash paid so far with what the simulation
// expects to be paid by this point of the month; every trial's remaining cash
// is scaled by it.
func nowCast(pl *plan, p *RiskParams, s *sampleSet, cm CurrentMonthActuals, drivers []Driver) *NowCastResults {
	i := pl.current
	trials := s.ok()
	cash := column(s.cashOut[i], trials)
	paid := cm.PaidToDate.Total()

	perf := 1.0
	if expected := stats.Mean(cash) * cm.ElapsedFraction; expected > 0 {
		perf = paid / expected
	}

	projected := make([]float64, len(cash))
	for k, c := range cash {
		projected[k] = paid + c*(1-cm.ElapsedFraction)*perf
	}
	pct := stats.Summarize(projected)
	planned := plannedCash(pl, p.InvoiceLags, i)

	res := &NowCastResults{
		Month:             pl.months[i],
		PerformanceFactor: perf,
		PlannedCash:       planned,
		P50:               pct.P50,
		P80:               pct.P80,
		ProbExceedPlan:    stats.FractionAbove(projected, planned),
	}

	// Work already under purchase order cannot be deferred.
	committedOpen := math.Max(0, cm.CommittedPOValue-paid)
	res.DeferrableAmount = math.Max(0, pct.P50-paid-committedOpen)

	for k, d := range drivers {
		if k == topDriverCount || d.Delta <= 0 {
			break
		}
		res.TopDrivers = append(res.TopDrivers, d.Factor)
		res.SuggestedActions = append(res.SuggestedActions, d.Lever)
	}
	if perf > aheadOfPlanFactor {
		res.SuggestedActions = append(res.SuggestedActions,
			fmt.Sprintf("Spending runs %.0f%% ahead of the simulated pace: review open commitments before month end", (perf-1)*100))
	}
	if cm.PlannedProgressPct > 0 && cm.PhysicalProgressPct < cm.PlannedProgressPct {
		res.SuggestedActions = append(res.SuggestedActions,
			fmt.Sprintf("Physical progress %.0f%% trails plan %.0f%%: check covenant headroom", cm.PhysicalProgressPct, cm.PlannedProgressPct))
	}
	if res.ProbExceedPlan > exceedPlanAlarmPct && res.DeferrableAmount > 0 {
		res.SuggestedActions = append(res.SuggestedActions,
			fmt.Sprintf("Defer up to %.0f of uncommitted work to stay within plan", math.Min(res.DeferrableAmount, pct.P50-planned)))
	}
	return res
}
