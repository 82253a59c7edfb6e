package engine

import (
	"fmt"
	"math"
	"math/rand/v2"

	"liquidity-mcs/internal/simulation"
)

// Profiles the generator knows.
const (
	ProfileMild  = "mild"
	ProfileChaos = "chaos"
	ProfileDrift = "drift"
)

type GeneratorConfig struct {
	Profile      string
	Distribution string // "uniform" or "weibull"
	Months       int
	StartMonth   string
	Seed         uint64
}

var (
	entities   = []string{"North", "South"}
	activities = []string{"Design", "Build", "Commission"}
)

// Generate builds a ready-to-run scenario for the profile.
func Generate(cfg GeneratorConfig) (simulation.Request, error) {
	if cfg.Months <= 0 {
		cfg.Months = 12
	}
	if cfg.StartMonth == "" {
		cfg.StartMonth = "2025-01"
	}
	months, err := simulation.MonthRange(cfg.StartMonth, cfg.Months)
	if err != nil {
		return simulation.Request{}, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, 0x5ce7a210))

	req := simulation.Request{
		Project: simulation.ProjectConfig{
			Name:           fmt.Sprintf("Synthetic %s programme", cfg.Profile),
			StartMonth:     cfg.StartMonth,
			AsOfMonth:      cfg.StartMonth,
			DurationMonths: cfg.Months,
			Entities:       entities,
			Activities:     activities,
		},
		Policy: simulation.PolicyConfig{
			BreachMode:             simulation.BreachThrottle,
			MaxThrottlePctPerMonth: 0.3,
			FrictionMultiplier:     1.10,
			CommitmentRatios:       map[simulation.Component]float64{simulation.Material: 0.4},
		},
		Seed: int64(cfg.Seed),
	}

	headroom := 1.08
	switch cfg.Profile {
	case ProfileMild:
		req.Risk = simulation.RiskConfig{
			Market:    simulation.MarketRisk{VolatilityClass: "low", AnnualInflation: 0.03},
			Execution: simulation.ExecutionRisk{ScheduleConfidence: 0.8, ContractorReliability: "high"},
			Funding:   simulation.FundingRisk{CollectionEfficiency: 0.98, ReserveCapacity: 100},
		}
	case ProfileChaos:
		headroom = 1.0
		req.Risk = simulation.RiskConfig{
			Market:    simulation.MarketRisk{VolatilityClass: "critical", AnnualInflation: 0.08, FXExposure: 0.5},
			Execution: simulation.ExecutionRisk{ScheduleConfidence: 0.3, ContractorReliability: "low", RainMonths: []int{6, 7, 8}},
			Funding:   simulation.FundingRisk{CollectionEfficiency: 0.85, CovenantHardStop: true, MinProgressCovenant: 0.6},
		}
	case ProfileDrift:
		req.Risk = simulation.RiskConfig{
			Market:    simulation.MarketRisk{VolatilityClass: "high", AnnualInflation: 0.05, FXExposure: 0.2},
			Execution: simulation.ExecutionRisk{ScheduleConfidence: 0.6, ContractorReliability: "med"},
			Funding:   simulation.FundingRisk{CollectionEfficiency: 0.95, ReserveCapacity: 50},
		}
	default:
		return simulation.Request{}, fmt.Errorf("unknown profile %q (want mild, chaos or drift)", cfg.Profile)
	}

	var baseAllocation float64
	for i, m := range months {
		ratio := float64(i) / float64(len(months))

		factor := 0.8 + rng.Float64()*0.4
		if cfg.Distribution == "weibull" {
			factor = weibullSample(rng, 2.5, 1.1)
		}
		demand := 100 * factor
		if cfg.Profile == ProfileDrift {
			demand *= 1 + ratio // demand doubles across the horizon
		}

		entity := entities[i%len(entities)]
		activity := activities[min(int(ratio*float64(len(activities))), len(activities)-1)]
		req.OutflowPlanned = append(req.OutflowPlanned, simulation.OutflowRow{
			Month: m, Entity: entity, Activity: activity,
			Service:  round2(demand * 0.40),
			Material: round2(demand * 0.45),
			Infra:    round2(demand * 0.15),
		})

		allocation := demand * headroom
		if cfg.Profile == ProfileDrift {
			// Funding stays at the opening level while demand climbs.
			if i == 0 {
				baseAllocation = allocation
			}
			allocation = baseAllocation
		}
		req.AllocationPlanned = append(req.AllocationPlanned, simulation.AllocationRow{Month: m, Amount: round2(allocation)})

		// Controlled black swans.
		if cfg.Profile == ProfileChaos && rng.Float64() < 0.2 {
			req.Risk.Threats = append(req.Risk.Threats, simulation.Threat{
				Name:        fmt.Sprintf("Disruption %s", m),
				TargetMonth: m,
				Amount:      round2(25 + rng.Float64()*50),
				Probability: round2(0.1 + rng.Float64()*0.4),
				Component:   simulation.Components[rng.IntN(len(simulation.Components))],
			})
		}
	}
	return req, nil
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
