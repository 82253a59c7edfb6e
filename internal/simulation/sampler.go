package simulation

import (
	"math"
)

// StdNormal draws a standard normal via the Box-Muller transform over two uniforms.
// Only the cosine branch is used so no sample is cached between calls.
func StdNormal(s *Stream) float64 {
	u1 := 1.0 - s.Float64() // (0,1], keeps the log finite
	u2 := s.Float64()
	return math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
}

// Normal draws from N(mean, sd).
func Normal(s *Stream, mean, sd float64) float64 {
	return mean + sd*StdNormal(s)
}

// LogNormalFromZ maps a standard normal z onto a log-normal with the given mean
// and coefficient of variation. A non-positive mean yields 0.
func LogNormalFromZ(mean, cv, z float64) float64 {
	if mean <= 0 {
		return 0
	}
	if cv <= 0 {
		return mean
	}
	sigma := math.Sqrt(math.Log(1 + cv*cv))
	mu := math.Log(mean) - 0.5*sigma*sigma
	return math.Exp(mu + sigma*z)
}

// LogNormal draws a log-normal with the given mean and coefficient of variation.
func LogNormal(s *Stream, mean, cv float64) float64 {
	return LogNormalFromZ(mean, cv, StdNormal(s))
}

// Triangular maps a uniform u onto a triangular distribution on [lo, hi] with the given mode.
func Triangular(u, lo, mode, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	if mode < lo {
		mode = lo
	}
	if mode > hi {
		mode = hi
	}
	fc := (mode - lo) / (hi - lo)
	if u < fc {
		return lo + math.Sqrt(u*(hi-lo)*(mode-lo))
	}
	return hi - math.Sqrt((1-u)*(hi-lo)*(hi-mode))
}

// NormalCDF is the standard normal cumulative distribution function.
func NormalCDF(z float64) float64 {
	return 0.5 * math.Erfc(-z/math.Sqrt2)
}

// BlendShocks combines a shared and an idiosyncratic standard normal so the result
// stays standard normal with correlation sqrt(weight) to the shared factor.
func BlendShocks(shared, idio, weight float64) float64 {
	if weight <= 0 {
		return idio
	}
	if weight >= 1 {
		return shared
	}
	return math.Sqrt(weight)*shared + math.Sqrt(1-weight)*idio
}

// CorrelatedUniform is the single-factor Gaussian copula: a uniform whose
// dependence on other uniforms built from the same shared shock is set by weight.
func CorrelatedUniform(shared, idio, weight float64) float64 {
	u := NormalCDF(BlendShocks(shared, idio, weight))
	// Keep strictly inside (0,1) so inverse transforms stay finite.
	return math.Min(math.Max(u, 1e-12), 1-1e-12)
}
