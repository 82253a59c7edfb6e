package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultAttributionTrials is the reduced trial count used by counterfactual re-runs.
const DefaultAttributionTrials = 1000

// cancelCheckEvery is how many trials a shard runs between context checks.
const cancelCheckEvery = 64

// Engine performs the Monte-Carlo liquidity simulation.
// An Engine holds no per-run state and is safe for concurrent use.
type Engine struct {
	workers           int
	attributionTrials int
	now               func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of concurrently simulated trial shards.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithAttributionTrials sets the trial count for counterfactual runs. Zero disables attribution.
func WithAttributionTrials(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.attributionTrials = n
		}
	}
}

// WithClock overrides the clock used for Response.GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an Engine using every available CPU unless WithWorkers says otherwise.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		workers:           runtime.GOMAXPROCS(0),
		attributionTrials: DefaultAttributionTrials,
		now:               time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run validates the request, simulates all trials and aggregates the results.
// A ValidationErrors value is returned before any trial runs when the request is invalid.
func (e *Engine) Run(ctx context.Context, req Request) (Response, error) {
	req = ApplyDefaults(req)
	if err := Validate(req); err != nil {
		log.Debug().Err(err).Msg("simulation request rejected")
		return Response{}, err
	}

	pl, err := newPlan(req)
	if err != nil {
		return Response{}, fmt.Errorf("building plan: %w", err)
	}
	return e.run(ctx, req, pl, DeriveParams(req.Risk, req.VolatilityScale))
}

// run simulates a validated request with already derived parameters and
// assembles the response.
func (e *Engine) run(ctx context.Context, req Request, pl *plan, params RiskParams) (Response, error) {
	started := time.Now()
	set, err := e.simulate(ctx, pl, &params, req.Trials, req.Seed)
	if err != nil {
		return Response{}, err
	}
	log.Debug().
		Int("trials", req.Trials).
		Int("months", pl.horizon).
		Int("failures", set.failures()).
		Dur("elapsed", time.Since(started)).
		Msg("baseline simulation finished")

	months, kpis := aggregate(pl, &params, set)
	kpis.Diagnostics.Seed = req.Seed
	kpis.Diagnostics.Trials = req.Trials

	if e.attributionTrials > 0 {
		drivers, err := e.attribute(ctx, pl, params, req.Seed, kpis.ProbabilityAnyShortfall)
		if err != nil {
			return Response{}, err
		}
		kpis.Drivers = drivers
	}

	resp := Response{
		GeneratedAt: e.now().UTC(),
		Months:      months,
		KPIs:        kpis,
		BreachRadar: breachRadar(pl, set),
	}
	if pl.current >= 0 && req.CurrentMonth != nil {
		resp.NowCast = nowCast(pl, &params, set, *req.CurrentMonth, kpis.Drivers)
	}
	return resp, nil
}

// simulate runs trials in shards; each trial writes only its own column of the sample set.
func (e *Engine) simulate(ctx context.Context, pl *plan, p *RiskParams, trials int, seed int64) (*sampleSet, error) {
	set := newSampleSet(pl.horizon, trials)

	workers := max(1, e.workers)
	shard := (trials + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < trials; lo += shard {
		hi := min(lo+shard, trials)
		g.Go(func() error {
			for t := lo; t < hi; t++ {
				if (t-lo)%cancelCheckEvery == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				runTrial(pl, p, NewStream(TrialSeed(seed, t)), t, set)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("simulation: %w", err)
	}
	return set, nil
}

// runTrial walks one trial through the horizon. A panic marks the trial failed
// instead of taking down the run.
func runTrial(pl *plan, p *RiskParams, s *Stream, t int, set *sampleSet) {
	defer func() {
		if r := recover(); r != nil {
			set.failed[t] = true
			log.Debug().Int("trial", t).Interface("panic", r).Msg("trial failed")
		}
	}()

	pending := newPendingCash(pl.horizon, p.InvoiceLags)
	state := LedgerState{ReserveRemaining: p.Reserve.Capacity}
	pol := LedgerPolicy{
		MaxThrottle:       pl.maxThrottle,
		Friction:          pl.friction,
		Lapse:             pl.lapse,
		ReserveMonthlyCap: p.Reserve.MonthlyCap,
	}
	checks := trialChecks{carry: true, backlog: true, debt: true, reserve: true, conservation: true}

	var sampler *factorSampler
	if pl.asOf < pl.horizon {
		sampler = newFactorSampler(p, s)
	}

	var executed, plannedToDate float64
	breached := false
	set.firstBreach[t] = -1

	for i := 0; i < pl.horizon; i++ {
		var in LedgerMonth
		var incurred float64

		if i < pl.asOf {
			// Actuals are facts: cash due equals what was incurred.
			for _, v := range pl.actual[i] {
				incurred += v
			}
			in.Inflow = pl.grounded[i]
			in.CashDue = incurred
		} else {
			if i == pl.asOf {
				state.PayablesBacklog += pl.seedBacklog
			}
			progress := 1.0
			if plannedToDate > 0 {
				progress = executed / plannedToDate
			}

			shock := sampler.sample(pl.months[i], i)
			work, executedBase := workload(pl, p, i, shock, state)
			executed += executedBase
			plannedToDate += pl.plannedTotal[i]

			for _, v := range work {
				incurred += v
			}
			pending.schedule(i, work, p.InvoiceLags)

			in.Inflow = pl.inflow[i] * p.CollectionEfficiency
			if p.CovenantHardStop && p.MinProgressCovenant > 0 && progress < p.MinProgressCovenant {
				in.Inflow = 0
			}
			in.CashDue = pending[i]
		}
		in.NextPlanned = pl.nextPlanned(i)

		prevDebt := state.ScheduleDebt
		next, out := state.Step(in, pol)

		if next.CarryForward < 0 {
			checks.carry = false
		}
		if next.PayablesBacklog < 0 {
			checks.backlog = false
		}
		if next.ReserveRemaining < 0 {
			checks.reserve = false
		}
		if !out.balanced() {
			checks.conservation = false
		}
		if out.Shortfall > 0 && !breached {
			breached = true
			set.firstBreach[t] = i
		}
		if !breached && next.ScheduleDebt > prevDebt {
			checks.debt = false
		}

		set.inflow[i][t] = in.Inflow
		set.cashOut[i][t] = in.CashDue
		set.incurred[i][t] = incurred
		set.shortfall[i][t] = out.Shortfall
		set.available[i][t] = out.Available
		set.covered[i][t] = in.Inflow >= out.CashDue
		set.backlog[i][t] = next.PayablesBacklog
		set.debt[i][t] = next.ScheduleDebt
		set.throttle[i][t] = next.Throttle
		set.reserve[i][t] = out.ReserveDraw
		set.lapsed[i][t] = out.Lapsed

		state = next
	}

	set.beyond[t] = pending.beyond(pl.horizon)
	set.checks[t] = checks
	if sampler != nil {
		set.clamps[t] = sampler.clamps
	}
}

// workload computes incurred cost by component for projected month i and the
// planned base work actually executed. Schedule debt is cost, not progress.
//
// Base demand is scaled by the sampled multipliers, reduced by the throttle set
// last month (committed shares cannot be throttled), and increased by last month's
// schedule debt, split in the planned component mix.
func workload(pl *plan, p *RiskParams, i int, shock monthShock, state LedgerState) ([numComponents]float64, float64) {
	var work [numComponents]float64
	executed := 0.0

	mix := pl.planned[i]
	mixTotal := pl.plannedTotal[i]

	common := (1 + shock.overrun) * (1 + shock.scopeIndex)
	for c := 0; c < numComponents; c++ {
		mult := common
		switch Components[c] {
		case Material:
			mult *= shock.material
		case Service:
			if p.RainMonths[int(pl.start.AddDate(0, i, 0).Month())] && p.ProductivityFactor > 0 {
				mult /= p.ProductivityFactor
			}
		}
		suppressed := state.Throttle * (1 - pl.commitment[c])
		work[c] = math.Max(0, pl.active[i][c]*mult*(1-suppressed))
		executed += pl.planned[i][c] * (1 - suppressed)

		if state.ScheduleDebt > 0 {
			share := 0.0
			switch {
			case mixTotal > 0:
				share = mix[c] / mixTotal
			case c == 0:
				share = 1
			}
			work[c] += state.ScheduleDebt * share
		}
		work[c] += shock.threats[c]
	}
	return work, executed
}
