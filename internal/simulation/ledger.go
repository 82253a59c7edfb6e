package simulation

import (
	"math"
)

// LedgerState is the trial-local liquidity position carried from one month to the next.
// It is a value type: Step never mutates its receiver.
type LedgerState struct {
	CarryForward     float64 `json:"carry_forward"`
	PayablesBacklog  float64 `json:"payables_backlog"`
	ScheduleDebt     float64 `json:"schedule_debt"`
	ReserveRemaining float64 `json:"reserve_remaining"`
	Throttle         float64 `json:"throttle"`
}

// LedgerPolicy holds the rules applied when cash due cannot be met.
type LedgerPolicy struct {
	MaxThrottle       float64
	Friction          float64
	Lapse             bool
	ReserveMonthlyCap float64
}

// LedgerMonth is what one month presents to the ledger.
type LedgerMonth struct {
	Inflow      float64 // realizable new inflow
	CashDue     float64 // obligations falling due this month, excluding backlog
	NextPlanned float64 // planned baseline demand of the following month
}

// MonthOutcome is the resolution of one month.
type MonthOutcome struct {
	Available   float64 `json:"available"`
	CashDue     float64 `json:"cash_due"`
	ReserveDraw float64 `json:"reserve_draw"`
	Shortfall   float64 `json:"shortfall"`
	Surplus     float64 `json:"surplus"`
	Lapsed      float64 `json:"lapsed"`
}

// Step resolves one month and returns the state for the next month.
//
// Unpaid cash becomes both the shortfall and the new payables backlog, and
// throttles the next month's execution: throttle = min(unpaid/nextPlanned, maxThrottle),
// with nextPlanned*throttle*friction carried as schedule debt. A fully covered
// month clears backlog, schedule debt, and throttle.
func (s LedgerState) Step(in LedgerMonth, pol LedgerPolicy) (LedgerState, MonthOutcome) {
	out := MonthOutcome{
		Available: in.Inflow + s.CarryForward,
		CashDue:   in.CashDue + s.PayablesBacklog,
	}
	next := LedgerState{ReserveRemaining: s.ReserveRemaining}

	if out.CashDue <= out.Available {
		out.Surplus = out.Available - out.CashDue
		if pol.Lapse {
			out.Lapsed = out.Surplus
		} else {
			next.CarryForward = out.Surplus
		}
		return next, out
	}

	deficit := out.CashDue - out.Available
	draw := math.Min(deficit, math.Min(pol.ReserveMonthlyCap, s.ReserveRemaining))
	if draw < 0 {
		draw = 0
	}
	out.ReserveDraw = draw
	next.ReserveRemaining = math.Max(0, s.ReserveRemaining-draw)

	unpaid := deficit - draw
	if unpaid <= 0 {
		return next, out
	}

	out.Shortfall = unpaid
	next.PayablesBacklog = unpaid
	next.Throttle = throttleFraction(unpaid, in.NextPlanned, pol.MaxThrottle)
	next.ScheduleDebt = in.NextPlanned * next.Throttle * pol.Friction
	return next, out
}

// throttleFraction guards against zero planned demand: nothing to throttle means zero.
func throttleFraction(unpaid, nextPlanned, maxThrottle float64) float64 {
	if nextPlanned <= 0 || maxThrottle <= 0 || unpaid <= 0 {
		return 0
	}
	return math.Min(unpaid/nextPlanned, maxThrottle)
}

// balanced checks the per-month conservation identity
// available + reserveDraw + shortfall == cashDue + surplus.
func (o MonthOutcome) balanced() bool {
	lhs := o.Available + o.ReserveDraw + o.Shortfall
	rhs := o.CashDue + o.Surplus
	tol := 1e-9 * math.Max(1, math.Max(math.Abs(lhs), math.Abs(rhs)))
	return math.Abs(lhs-rhs) <= tol
}
