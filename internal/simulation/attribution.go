package simulation

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Neutralizer switches off a single risk factor. Apply must return a modified
// copy and leave its argument untouched.
type Neutralizer struct {
	Factor string
	Lever  string
	Apply  func(RiskParams) RiskParams
}

// Neutralizers returns the counterfactual set in reporting order.
func Neutralizers() []Neutralizer {
	return []Neutralizer{
		{
			Factor: "market",
			Lever:  "Lock material prices / hedge FX",
			Apply: func(p RiskParams) RiskParams {
				p.Material.MarketSigma = 0
				p.Material.IdioSigma = 0
				p.Material.Bias = 0
				return p
			},
		},
		{
			Factor: "overrun",
			Lever:  "Tighten contractor performance management",
			Apply: func(p RiskParams) RiskParams {
				p.Overrun.Mean = 0
				p.Overrun.Sigma = 0
				return p
			},
		},
		{
			Factor: "scope",
			Lever:  "Enforce change control",
			Apply: func(p RiskParams) RiskParams {
				p.Scope.Mean = 0
				p.Scope.Sigma = 0
				return p
			},
		},
		{
			Factor: "lag",
			Lever:  "Renegotiate invoice payment terms",
			Apply: func(p RiskParams) RiskParams {
				for c := range p.InvoiceLags {
					p.InvoiceLags[c] = []float64{1}
				}
				return p
			},
		},
		{
			Factor: "seasonal",
			Lever:  "Re-sequence weather-sensitive work",
			Apply: func(p RiskParams) RiskParams {
				p.RainMonths = [13]bool{}
				return p
			},
		},
		{
			Factor: "threats",
			Lever:  "Mitigate named threats",
			Apply: func(p RiskParams) RiskParams {
				threats := make([]Threat, len(p.Threats))
				copy(threats, p.Threats)
				for i := range threats {
					threats[i].Probability = 0
				}
				p.Threats = threats
				return p
			},
		},
		{
			Factor: "funding",
			Lever:  "Improve collection / covenant headroom",
			Apply: func(p RiskParams) RiskParams {
				p.CollectionEfficiency = 1
				p.CovenantHardStop = false
				return p
			},
		},
	}
}

// attribute re-runs the simulation once per neutralizer with the same seed and a
// reduced trial count. Deltas are floored at zero, ranked, and scaled so the
// contributions sum to the full-run baseline probability.
func (e *Engine) attribute(ctx context.Context, pl *plan, base RiskParams, seed int64, baseline float64) ([]Driver, error) {
	trials := e.attributionTrials
	neutralizers := Neutralizers()
	probs := make([]float64, len(neutralizers)+1)

	// Each run is sharded internally; one worker per run keeps the pool bounded.
	runner := &Engine{workers: 1}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.workers))

	run := func(idx int, p RiskParams) {
		g.Go(func() error {
			set, err := runner.simulate(gctx, pl, &p, trials, seed)
			if err != nil {
				return err
			}
			probs[idx] = anyShortfall(set, set.ok())
			return nil
		})
	}
	run(0, base)
	for i, n := range neutralizers {
		run(i+1, n.Apply(base))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reduced := probs[0]
	drivers := make([]Driver, len(neutralizers))
	sum := 0.0
	for i, n := range neutralizers {
		delta := max(0, reduced-probs[i+1])
		drivers[i] = Driver{Factor: n.Factor, Lever: n.Lever, Delta: delta, Neutralized: probs[i+1]}
		sum += delta
	}
	if sum > 0 {
		for i := range drivers {
			drivers[i].Contribution = drivers[i].Delta / sum * baseline
		}
	}
	slices.SortStableFunc(drivers, func(a, b Driver) int {
		switch {
		case a.Delta > b.Delta:
			return -1
		case a.Delta < b.Delta:
			return 1
		}
		return 0
	})

	log.Debug().
		Int("trials", trials).
		Float64("baseline", reduced).
		Str("top", drivers[0].Factor).
		Msg("counterfactual attribution finished")
	return drivers, nil
}
