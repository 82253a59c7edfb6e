package simulation

import (
	"fmt"
	"math"

	"liquidity-mcs/internal/stats"
)

const (
	// materialityThreshold is the smallest shortfall counted towards shortfall probability.
	materialityThreshold = 1.0
	// redMonthThreshold marks a month as red when its shortfall probability exceeds it.
	redMonthThreshold = 0.5
)

type trialChecks struct {
	carry        bool
	backlog      bool
	debt         bool
	reserve      bool
	conservation bool
}

// sampleSet holds per-month samples indexed [month][trial]. Trials write disjoint
// columns, so shards share it without locking.
type sampleSet struct {
	trials    int
	inflow    [][]float64
	cashOut   [][]float64
	incurred  [][]float64
	shortfall [][]float64
	available [][]float64
	covered   [][]bool
	backlog   [][]float64
	debt      [][]float64
	throttle  [][]float64
	reserve   [][]float64
	lapsed    [][]float64

	beyond      []float64
	firstBreach []int
	failed      []bool
	checks      []trialChecks
	clamps      []clampCounter
}

func newSampleSet(months, trials int) *sampleSet {
	grid := func() [][]float64 {
		g := make([][]float64, months)
		for i := range g {
			g[i] = make([]float64, trials)
		}
		return g
	}
	covered := make([][]bool, months)
	for i := range covered {
		covered[i] = make([]bool, trials)
	}
	return &sampleSet{
		trials:      trials,
		inflow:      grid(),
		cashOut:     grid(),
		incurred:    grid(),
		shortfall:   grid(),
		available:   grid(),
		covered:     covered,
		backlog:     grid(),
		debt:        grid(),
		throttle:    grid(),
		reserve:     grid(),
		lapsed:      grid(),
		beyond:      make([]float64, trials),
		firstBreach: make([]int, trials),
		failed:      make([]bool, trials),
		checks:      make([]trialChecks, trials),
		clamps:      make([]clampCounter, trials),
	}
}

func (s *sampleSet) failures() int {
	n := 0
	for _, f := range s.failed {
		if f {
			n++
		}
	}
	return n
}

// ok lists the indices of trials that completed.
func (s *sampleSet) ok() []int {
	out := make([]int, 0, s.trials)
	for t, f := range s.failed {
		if !f {
			out = append(out, t)
		}
	}
	return out
}

// column gathers the samples of one month for the given trials.
func column(row []float64, trials []int) []float64 {
	out := make([]float64, len(trials))
	for i, t := range trials {
		out[i] = row[t]
	}
	return out
}

// anyShortfall reports the share of trials with a material shortfall in any month.
func anyShortfall(s *sampleSet, trials []int) float64 {
	if len(trials) == 0 {
		return 0
	}
	hit := 0
	for _, t := range trials {
		for m := range s.shortfall {
			if s.shortfall[m][t] > materialityThreshold {
				hit++
				break
			}
		}
	}
	return float64(hit) / float64(len(trials))
}

func aggregate(pl *plan, p *RiskParams, s *sampleSet) ([]MonthlyStats, KPIs) {
	trials := s.ok()
	n := float64(len(trials))

	months := make([]MonthlyStats, pl.horizon)
	for m := range months {
		shortfall := column(s.shortfall[m], trials)
		available := column(s.available[m], trials)
		safe := stats.Summarize(available).P20

		covered := 0
		for _, t := range trials {
			if s.covered[m][t] {
				covered++
			}
		}
		coverage := 0.0
		if n > 0 {
			coverage = float64(covered) / n
		}

		backlog := column(s.backlog[m], trials)
		debt := column(s.debt[m], trials)

		months[m] = MonthlyStats{
			Month:                pl.months[m],
			Grounded:             m < pl.asOf,
			PlannedOutflow:       pl.plannedTotal[m],
			Inflow:               stats.Summarize(column(s.inflow[m], trials)),
			CashOutflow:          stats.Summarize(column(s.cashOut[m], trials)),
			Incurred:             stats.Summarize(column(s.incurred[m], trials)),
			Shortfall:            stats.Summarize(shortfall),
			ExpectedShortfall:    stats.Mean(shortfall),
			ShortfallProbability: stats.FractionAbove(shortfall, materialityThreshold),
			CoverageProbability:  coverage,
			Backlog:              stats.Summarize(backlog),
			ExpectedBacklog:      stats.Mean(backlog),
			ScheduleDebt:         stats.Summarize(debt),
			ExpectedScheduleDebt: stats.Mean(debt),
			ExpectedThrottle:     stats.Mean(column(s.throttle[m], trials)),
			ExpectedReserveDraw:  stats.Mean(column(s.reserve[m], trials)),
			ExpectedLapse:        stats.Mean(column(s.lapsed[m], trials)),
			SafeSpendLimit:       safe,
			GapToFix:             math.Max(0, pl.plannedTotal[m]-safe),
		}
	}

	return months, kpis(pl, p, s, trials, months)
}

func kpis(pl *plan, p *RiskParams, s *sampleSet, trials []int, months []MonthlyStats) KPIs {
	k := KPIs{WorstMonth: WorstMonth{Index: -1}}

	totals := make([]float64, len(trials))
	deferred := make([]float64, len(trials))
	meeting := 0
	for i, t := range trials {
		material := false
		incurred := 0.0
		for m := 0; m < pl.horizon; m++ {
			totals[i] += s.inflow[m][t]
			deferred[i] += s.debt[m][t]
			incurred += s.incurred[m][t]
			if s.shortfall[m][t] > materialityThreshold {
				material = true
			}
		}
		if !material && (pl.budgetCap <= 0 || incurred <= pl.budgetCap) {
			meeting++
		}
	}
	k.TotalInflow = stats.Summarize(totals)
	k.ProbabilityAnyShortfall = anyShortfall(s, trials)
	if len(trials) > 0 {
		k.ProbabilityMeetingPlan = float64(meeting) / float64(len(trials))
	}
	k.TotalDeferredCost = stats.Mean(deferred)

	for i, ms := range months {
		if k.WorstMonth.Index < 0 || ms.ShortfallProbability > k.WorstMonth.ShortfallProbability {
			k.WorstMonth = WorstMonth{Month: ms.Month, Index: i, ShortfallProbability: ms.ShortfallProbability}
		}
		k.PeakScheduleDebt = math.Max(k.PeakScheduleDebt, ms.ExpectedScheduleDebt)
		k.PeakBacklog = math.Max(k.PeakBacklog, ms.ExpectedBacklog)
		if ms.ShortfallProbability > redMonthThreshold {
			k.RedMonths++
		}
	}

	k.Diagnostics = diagnostics(pl, p, s, trials)
	return k
}

func diagnostics(pl *plan, p *RiskParams, s *sampleSet, trials []int) Diagnostics {
	in, out := pl.groundedTotals()
	d := Diagnostics{
		HorizonMonths:   pl.horizon,
		GroundedMonths:  pl.groundedMonths(),
		GroundedInflow:  in,
		GroundedOutflow: out,
		TrialFailures:   s.failures(),
		Warnings:        append([]string(nil), pl.warnings...),
		Flags: ValidationFlags{
			CarryForwardNonNegative: true,
			BacklogNonNegative:      true,
			ScheduleDebtMonotonic:   true,
			ReserveNonNegative:      true,
			ConservationHeld:        true,
		},
	}

	var clamps clampCounter
	for _, t := range trials {
		c := s.checks[t]
		d.Flags.CarryForwardNonNegative = d.Flags.CarryForwardNonNegative && c.carry
		d.Flags.BacklogNonNegative = d.Flags.BacklogNonNegative && c.backlog
		d.Flags.ScheduleDebtMonotonic = d.Flags.ScheduleDebtMonotonic && c.debt
		d.Flags.ReserveNonNegative = d.Flags.ReserveNonNegative && c.reserve
		d.Flags.ConservationHeld = d.Flags.ConservationHeld && c.conservation
		clamps.add(s.clamps[t])
	}
	d.Flags.ClampingOccurred = clamps.any()
	d.Flags.ClampDetails = clamps.details(*p)

	if late := stats.Mean(column(s.beyond, trials)); late > 0 {
		d.Warnings = append(d.Warnings, fmt.Sprintf("on average %.2f of cash falls due after the horizon", late))
	}
	if d.TrialFailures > 0 {
		d.Warnings = append(d.Warnings, fmt.Sprintf("%d trials failed and were excluded", d.TrialFailures))
	}
	return d
}
