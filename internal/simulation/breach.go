package simulation

import (
	"slices"
)

// breachRadar reports, across trials, the distribution of the first month with
// a shortfall. Trials that never breach sort after the horizon.
func breachRadar(pl *plan, s *sampleSet) *BreachRadarResults {
	trials := s.ok()
	res := &BreachRadarResults{
		Distribution: make([]float64, pl.horizon),
		Months:       append([]string(nil), pl.months...),
	}
	if len(trials) == 0 {
		return res
	}

	first := make([]int, len(trials))
	never := 0
	for k, t := range trials {
		f := s.firstBreach[t]
		if f < 0 {
			never++
			f = pl.horizon
		} else {
			res.Distribution[f]++
		}
		first[k] = f
	}
	n := float64(len(trials))
	for i := range res.Distribution {
		res.Distribution[i] /= n
	}
	res.NoBreachProbability = float64(never) / n

	slices.Sort(first)
	at := func(p float64) int {
		idx := min(int(n*p), len(first)-1)
		return first[idx]
	}
	if m := at(0.50); m < pl.horizon {
		res.EarliestBreachP50 = pl.months[m]
		ttb := max(0, m-pl.asOf)
		res.TimeToBreachMonths = &ttb
	}
	if m := at(0.80); m < pl.horizon {
		res.EarliestBreachP80 = pl.months[m]
	}
	return res
}
