package simulation

import (
	"fmt"
	"time"
)

// plan is the validated, month-indexed view of a request shared read-only by all trials.
type plan struct {
	months   []string
	start    time.Time
	horizon  int
	asOf     int // index of the first projected month
	current  int // index of the month in progress, -1 when absent
	planned  [][numComponents]float64
	active   [][numComponents]float64
	actual   [][numComponents]float64
	inflow   []float64 // planned allocation
	grounded []float64 // realised inflow for grounded months

	plannedTotal []float64
	maxThrottle  float64
	friction     float64
	lapse        bool
	commitment   [numComponents]float64
	seedBacklog  float64
	budgetCap    float64
	warnings     []string
}

func newPlan(req Request) (*plan, error) {
	p := req.Project
	months, err := MonthRange(p.StartMonth, p.DurationMonths)
	if err != nil {
		return nil, err
	}
	start, _ := ParseMonth(p.StartMonth)
	asOf, err := ParseMonth(p.AsOfMonth)
	if err != nil {
		return nil, err
	}

	n := len(months)
	index := make(map[string]int, n)
	for i, m := range months {
		index[m] = i
	}

	pl := &plan{
		months:       months,
		start:        start,
		horizon:      n,
		asOf:         min(max(monthsBetween(start, asOf), 0), n),
		current:      -1,
		planned:      make([][numComponents]float64, n),
		active:       make([][numComponents]float64, n),
		actual:       make([][numComponents]float64, n),
		inflow:       make([]float64, n),
		grounded:     make([]float64, n),
		plannedTotal: make([]float64, n),
		maxThrottle:  req.Policy.MaxThrottlePctPerMonth,
		friction:     req.Policy.FrictionMultiplier,
		lapse:        p.UnderspendPolicy == UnderspendLapse,
		budgetCap:    p.BudgetCap,
	}
	if req.Policy.BreachMode == BreachAccrue {
		pl.maxThrottle = 0
	}
	for c, r := range req.Policy.CommitmentRatios {
		if ci := componentIndex(c); ci >= 0 {
			pl.commitment[ci] = r
		}
	}

	sumRows(pl.planned, index, req.OutflowPlanned)
	sumRows(pl.active, index, req.OutflowActive)
	hasActual := sumRows(pl.actual, index, req.OutflowActual)
	for i := range pl.planned {
		for _, v := range pl.planned[i] {
			pl.plannedTotal[i] += v
		}
	}

	actualInflow := make([]bool, n)
	for _, r := range req.AllocationPlanned {
		pl.inflow[index[r.Month]] += r.Amount
	}
	for _, r := range req.AllocationActual {
		i := index[r.Month]
		pl.grounded[i] += r.Amount
		actualInflow[i] = true
	}

	for i := 0; i < pl.asOf; i++ {
		if !actualInflow[i] {
			pl.grounded[i] = pl.inflow[i]
			pl.warnings = append(pl.warnings, fmt.Sprintf("no actual allocation for grounded month %s; planned allocation used", months[i]))
		}
		if !hasActual[i] {
			pl.actual[i] = pl.planned[i]
			pl.warnings = append(pl.warnings, fmt.Sprintf("no actual outflow for grounded month %s; planned baseline used", months[i]))
		}
	}

	if cm := req.CurrentMonth; cm != nil {
		i := index[cm.MonthID]
		if i < pl.asOf {
			pl.warnings = append(pl.warnings, fmt.Sprintf("current month %s is already grounded; now-cast skipped", cm.MonthID))
		} else {
			pl.current = i
		}
		if req.Policy.CarryHistoricalCommitments {
			pl.seedBacklog = max(0, cm.CommittedPOValue-cm.PaidToDate.Total())
		}
	}
	return pl, nil
}

// sumRows accumulates grid rows by month and reports which months had any row.
func sumRows(dst [][numComponents]float64, index map[string]int, rows []OutflowRow) []bool {
	seen := make([]bool, len(dst))
	for _, r := range rows {
		i := index[r.Month]
		a := r.amounts()
		for c := range a {
			dst[i][c] += a[c]
		}
		seen[i] = true
	}
	return seen
}

func (pl *plan) groundedMonths() int {
	return pl.asOf
}

func (pl *plan) nextPlanned(i int) float64 {
	if i+1 < pl.horizon {
		return pl.plannedTotal[i+1]
	}
	return 0
}

// groundedTotals sums realised inflow and outflow across grounded months.
func (pl *plan) groundedTotals() (inflow, outflow float64) {
	for i := 0; i < pl.asOf; i++ {
		inflow += pl.grounded[i]
		for _, v := range pl.actual[i] {
			outflow += v
		}
	}
	return inflow, outflow
}
