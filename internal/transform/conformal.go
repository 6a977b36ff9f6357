package transform

import (
	"math"

	"github.com/jobrunner/refsys/internal/domain"
)

// Conformal latitude solve used by the inverse projections.
const (
	ConformalTolerance     = 1e-12 // relative to max(1, |tan χ|)
	ConformalMaxIterations = 10
)

// taupf returns tan χ, the tangent of the conformal latitude, for τ = tan φ on an
// ellipsoid with eccentricity e.
func taupf(tau, e float64) float64 {
	tau1 := math.Hypot(1, tau)
	sig := math.Sinh(e * math.Atanh(e*tau/tau1))
	return math.Hypot(1, sig)*tau - sig*tau1
}

// tauf inverts taupf by Newton iteration.
func tauf(taup, e float64) (float64, error) {
	e2m := 1 - e*e
	tau := taup / e2m
	stol := ConformalTolerance * math.Max(1, math.Abs(taup))
	var d float64
	for i := 0; i < ConformalMaxIterations; i++ {
		ta := taupf(tau, e)
		d = (taup - ta) * (1 + e2m*tau*tau) / (e2m * math.Hypot(1, tau) * math.Hypot(1, ta))
		tau += d
		if math.Abs(d) < stol {
			return tau, nil
		}
	}
	return 0, &domain.ConvergenceError{
		Algorithm:  "conformal latitude",
		Iterations: ConformalMaxIterations,
		Residual:   d,
	}
}

// isometricLatitude returns ψ = asinh(tan χ).
func isometricLatitude(phi, e float64) float64 {
	return math.Asinh(taupf(math.Tan(phi), e))
}

// latitudeFromIsometric inverts isometricLatitude.
func latitudeFromIsometric(psi, e float64) (float64, error) {
	tau, err := tauf(math.Sinh(psi), e)
	if err != nil {
		return 0, err
	}
	return math.Atan(tau), nil
}

// normalizeLongitude wraps an angle in radians to [-π, π].
func normalizeLongitude(lam float64) float64 {
	if lam >= -math.Pi && lam <= math.Pi {
		return lam
	}
	return math.Remainder(lam, 2*math.Pi)
}
