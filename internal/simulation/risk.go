package simulation

import (
	"fmt"
	"math"
	"strings"
)

// Material price distribution families.
const (
	FamilyLogNormal  = "lognormal"
	FamilyNormal     = "normal"
	FamilyTriangular = "triangular"
)

const (
	defaultMarketWeight       = 0.6
	defaultProductivityFactor = 0.80
	fxSigmaPerExposure        = 0.10
	overrunFloor              = -0.20
	overrunCeiling            = 1.50
	scopeDriftCap             = 0.25
	scopeDriftSigma           = 0.005
)

type volatilityProfile struct {
	sigma float64
	bias  float64
}

var volatilityClasses = map[string]volatilityProfile{
	"none":     {sigma: 0.00, bias: 0.00},
	"low":      {sigma: 0.04, bias: 0.00},
	"med":      {sigma: 0.08, bias: 0.01},
	"high":     {sigma: 0.15, bias: 0.03},
	"critical": {sigma: 0.25, bias: 0.06},
}

type reliabilityProfile struct {
	bias       float64
	sigmaScale float64
}

var reliabilityClasses = map[string]reliabilityProfile{
	"high": {bias: 0.00, sigmaScale: 0.8},
	"med":  {bias: 0.03, sigmaScale: 1.0},
	"low":  {bias: 0.08, sigmaScale: 1.4},
}

// DefaultInvoiceLags are used for any component without an explicit schedule.
var DefaultInvoiceLags = map[Component][]float64{
	Service:  {0.70, 0.30},
	Material: {0.20, 0.50, 0.30},
	Infra:    {0.10, 0.40, 0.30, 0.20},
}

// MaterialVolatility parameterises the material price multiplier.
type MaterialVolatility struct {
	MarketSigma  float64 `json:"market_sigma"`
	IdioSigma    float64 `json:"idio_sigma"`
	Family       string  `json:"family"`
	Ceiling      float64 `json:"ceiling"`
	Bias         float64 `json:"bias"`
	MarketWeight float64 `json:"market_weight"`
}

// TotalSigma is the combined coefficient of variation of the multiplier.
func (m MaterialVolatility) TotalSigma() float64 {
	return math.Sqrt(m.MarketSigma*m.MarketSigma + m.IdioSigma*m.IdioSigma)
}

// OverrunModel is the per-month execution overrun distribution.
type OverrunModel struct {
	Mean    float64 `json:"mean"`
	Sigma   float64 `json:"sigma"`
	Floor   float64 `json:"floor"`
	Ceiling float64 `json:"ceiling"`
}

// ScopeDriftModel is the one-directional scope random walk.
type ScopeDriftModel struct {
	Mean  float64 `json:"mean"`
	Sigma float64 `json:"sigma"`
	Cap   float64 `json:"cap"`
}

// Reserve is the optional emergency funding line.
type Reserve struct {
	Capacity   float64 `json:"capacity"`
	MonthlyCap float64 `json:"monthly_cap"`
}

// RiskParams is the internal, derived parameter set consumed by the engine.
// Treat values as immutable: neutralizers return modified copies.
type RiskParams struct {
	InvoiceLags          [numComponents][]float64 `json:"invoice_lags"`
	Material             MaterialVolatility       `json:"material"`
	AnnualInflation      float64                  `json:"annual_inflation"`
	Overrun              OverrunModel             `json:"overrun"`
	Scope                ScopeDriftModel          `json:"scope"`
	Reserve              Reserve                  `json:"reserve"`
	RainMonths           [13]bool                 `json:"rain_months"`
	ProductivityFactor   float64                  `json:"productivity_factor"`
	Threats              []Threat                 `json:"threats,omitempty"`
	CollectionEfficiency float64                  `json:"collection_efficiency"`
	CovenantHardStop     bool                     `json:"covenant_hard_stop"`
	MinProgressCovenant  float64                  `json:"min_progress_covenant"`
}

// DeriveParams turns the user-facing risk configuration into engine parameters.
// It assumes the request has passed Validate.
func DeriveParams(risk RiskConfig, volatilityScale float64) RiskParams {
	if volatilityScale <= 0 {
		volatilityScale = 1
	}

	vol, ok := volatilityClasses[strings.ToLower(risk.Market.VolatilityClass)]
	if !ok {
		vol = volatilityClasses["med"]
	}
	weight := defaultMarketWeight
	if risk.Market.MarketWeight != nil {
		weight = *risk.Market.MarketWeight
	}
	total := vol.sigma * volatilityScale
	marketSigma := total*math.Sqrt(weight) + risk.Market.FXExposure*fxSigmaPerExposure*volatilityScale
	idioSigma := total * math.Sqrt(1-weight)
	combined := math.Sqrt(marketSigma*marketSigma + idioSigma*idioSigma)

	ceiling := risk.Market.MaterialClampCeil
	if ceiling <= 0 {
		ceiling = math.Max(1.25, 1+4*combined)
	}
	family := strings.ToLower(risk.Market.Distribution)
	if family == "" {
		family = FamilyLogNormal
	}

	confidence := clamp01(risk.Execution.ScheduleConfidence)
	rel, ok := reliabilityClasses[strings.ToLower(risk.Execution.ContractorReliability)]
	if !ok {
		rel = reliabilityClasses["med"]
	}

	p := RiskParams{
		Material: MaterialVolatility{
			MarketSigma:  marketSigma,
			IdioSigma:    idioSigma,
			Family:       family,
			Ceiling:      ceiling,
			Bias:         vol.bias,
			MarketWeight: weight,
		},
		AnnualInflation: risk.Market.AnnualInflation,
		Overrun: OverrunModel{
			Mean:    0.20*(1-confidence) + rel.bias,
			Sigma:   (0.04 + 0.12*(1-confidence)) * rel.sigmaScale,
			Floor:   overrunFloor,
			Ceiling: overrunCeiling,
		},
		Scope: ScopeDriftModel{
			Mean:  0.004 + 0.01*(1-confidence),
			Sigma: scopeDriftSigma,
			Cap:   scopeDriftCap,
		},
		Reserve: Reserve{
			Capacity:   risk.Funding.ReserveCapacity,
			MonthlyCap: risk.Funding.ReserveMonthlyCap,
		},
		ProductivityFactor:   defaultProductivityFactor,
		CollectionEfficiency: risk.Funding.CollectionEfficiency,
		CovenantHardStop:     risk.Funding.CovenantHardStop,
		MinProgressCovenant:  risk.Funding.MinProgressCovenant,
	}
	if p.Reserve.MonthlyCap <= 0 {
		p.Reserve.MonthlyCap = p.Reserve.Capacity
	}

	for i, c := range Components {
		lags, ok := risk.InvoiceLags[c]
		if !ok || len(lags) == 0 {
			lags = DefaultInvoiceLags[c]
		}
		p.InvoiceLags[i] = append([]float64(nil), lags...)
	}
	for _, m := range risk.Execution.RainMonths {
		if m >= 1 && m <= 12 {
			p.RainMonths[m] = true
		}
	}
	for _, t := range risk.Threats {
		if t.Component == "" {
			t.Component = Service
		}
		p.Threats = append(p.Threats, t)
	}
	return p
}

// clampCounter tallies tail-outlier clamps for the diagnostics block.
type clampCounter struct {
	materialCeiling  int
	triangularSpread int
	overrunFloor     int
	overrunCeiling   int
	scopeCap         int
}

func (c *clampCounter) add(o clampCounter) {
	c.materialCeiling += o.materialCeiling
	c.triangularSpread += o.triangularSpread
	c.overrunFloor += o.overrunFloor
	c.overrunCeiling += o.overrunCeiling
	c.scopeCap += o.scopeCap
}

func (c clampCounter) any() bool {
	return c.materialCeiling+c.triangularSpread+c.overrunFloor+c.overrunCeiling+c.scopeCap > 0
}

func (c clampCounter) details(p RiskParams) []string {
	var out []string
	if c.materialCeiling > 0 {
		out = append(out, fmt.Sprintf("material multiplier clamped to ceiling %.2f in %d samples", p.Material.Ceiling, c.materialCeiling))
	}
	if c.triangularSpread > 0 {
		out = append(out, fmt.Sprintf("triangular material spread capped at +/-100%% of the mean in %d samples", c.triangularSpread))
	}
	if c.overrunFloor > 0 {
		out = append(out, fmt.Sprintf("execution overrun floored at %.0f%% in %d samples", p.Overrun.Floor*100, c.overrunFloor))
	}
	if c.overrunCeiling > 0 {
		out = append(out, fmt.Sprintf("execution overrun capped at %.0f%% in %d samples", p.Overrun.Ceiling*100, c.overrunCeiling))
	}
	if c.scopeCap > 0 {
		out = append(out, fmt.Sprintf("scope drift reached its %.0f%% cap in %d samples", p.Scope.Cap*100, c.scopeCap))
	}
	return out
}

// monthShock is the realised set of risk multipliers for one projected month of one trial.
type monthShock struct {
	material   float64
	overrun    float64
	scopeIndex float64
	threats    [numComponents]float64
}

// factorSampler draws risk factors for a single trial. The number of uniforms
// consumed per month does not depend on parameter values, so counterfactual runs
// with the same seed see the same underlying random numbers.
type factorSampler struct {
	p       *RiskParams
	s       *Stream
	zMarket float64
	scope   float64
	clamps  clampCounter
}

func newFactorSampler(p *RiskParams, s *Stream) *factorSampler {
	return &factorSampler{p: p, s: s, zMarket: StdNormal(s)}
}

// sample draws the shocks for one projected month.
func (f *factorSampler) sample(month string, monthsFromStart int) monthShock {
	var shock monthShock

	zIdio := StdNormal(f.s)
	shock.material = f.materialMultiplier(zIdio, monthsFromStart)

	o := Normal(f.s, f.p.Overrun.Mean, f.p.Overrun.Sigma)
	if o < f.p.Overrun.Floor {
		o = f.p.Overrun.Floor
		f.clamps.overrunFloor++
	} else if o > f.p.Overrun.Ceiling {
		o = f.p.Overrun.Ceiling
		f.clamps.overrunCeiling++
	}
	shock.overrun = o

	step := Normal(f.s, f.p.Scope.Mean, f.p.Scope.Sigma)
	if step > 0 {
		f.scope += step
	}
	if f.scope > f.p.Scope.Cap {
		f.scope = f.p.Scope.Cap
		f.clamps.scopeCap++
	}
	shock.scopeIndex = f.scope

	for _, t := range f.p.Threats {
		fired := f.s.Bernoulli(t.Probability)
		if fired && t.TargetMonth == month {
			if ci := componentIndex(t.Component); ci >= 0 {
				shock.threats[ci] += t.Amount
			}
		}
	}
	return shock
}

func (f *factorSampler) materialMultiplier(zIdio float64, monthsFromStart int) float64 {
	m := f.p.Material
	mean := math.Pow(1+f.p.AnnualInflation, float64(monthsFromStart)/12.0) * (1 + m.Bias)
	total := m.TotalSigma()
	if total <= 0 {
		return mean
	}
	weight := (m.MarketSigma * m.MarketSigma) / (total * total)

	var mult float64
	switch m.Family {
	case FamilyNormal:
		mult = math.Max(0, mean*(1+total*BlendShocks(f.zMarket, zIdio, weight)))
	case FamilyTriangular:
		u := CorrelatedUniform(f.zMarket, zIdio, weight)
		// A symmetric triangle keeps its mean only while the lower bound stays at or above 0.
		half := math.Sqrt(6) * total
		if half > 1 {
			half = 1
			f.clamps.triangularSpread++
		}
		mult = mean * Triangular(u, 1-half, 1, 1+half)
	default:
		mult = LogNormalFromZ(mean, total, BlendShocks(f.zMarket, zIdio, weight))
	}

	if ceil := mean * m.Ceiling; mult > ceil {
		mult = ceil
		f.clamps.materialCeiling++
	}
	return mult
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
