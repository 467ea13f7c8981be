// Package variogram estimates empirical semivariograms from irregularly
// spaced point data and fits theoretical variogram models to them by
// weighted nonlinear least squares.
package variogram

import (
	"fmt"
	"math"
)

// Shape identifies a theoretical variogram model family.
type Shape int

const (
	Exponential Shape = iota
	Spherical
	Gaussian
	Matern
)

// String returns the lower-case model name.
func (s Shape) String() string {
	switch s {
	case Exponential:
		return "exponential"
	case Spherical:
		return "spherical"
	case Gaussian:
		return "gaussian"
	case Matern:
		return "matern"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Shapes lists every supported model family in fitting order.
var Shapes = []Shape{Exponential, Spherical, Gaussian, Matern}

// maternPhi scales the Matérn (ν=3/2) argument so that Range is the
// practical range: (1+φ)·exp(−φ) = 0.05 at φ ≈ 4.744.
const maternPhi = 4.744

// Model is a fitted theoretical variogram. Range is the practical range for
// the asymptotic shapes: γ reaches ~95% of the sill at h = Range. Immutable
// once fitted.
type Model struct {
	Shape       Shape
	Nugget      float64
	PartialSill float64
	Range       float64
}

// Sill returns the total sill, Nugget + PartialSill.
func (m Model) Sill() float64 { return m.Nugget + m.PartialSill }

// Gamma evaluates the theoretical semivariance γ(h). γ(0) = 0 by convention;
// the nugget appears as a discontinuity for any h > 0.
func (m Model) Gamma(h float64) float64 {
	if h <= 0 {
		return 0
	}

	gamma := m.Nugget

	switch m.Shape {
	case Spherical:
		if h < m.Range {
			r := h / m.Range
			gamma += m.PartialSill * (1.5*r - 0.5*r*r*r)
		} else {
			gamma += m.PartialSill
		}
	case Exponential:
		gamma += m.PartialSill * (1 - math.Exp(-3*h/m.Range))
	case Gaussian:
		gamma += m.PartialSill * (1 - math.Exp(-3*h*h/(m.Range*m.Range)))
	case Matern:
		phi := maternPhi * h / m.Range
		gamma += m.PartialSill * (1 - (1+phi)*math.Exp(-phi))
	}

	return gamma
}

// Covariance evaluates C(h) = sill − γ(h), the spatial covariance used to
// build the kriging system. C(0) equals the full sill.
func (m Model) Covariance(h float64) float64 {
	return m.Sill() - m.Gamma(h)
}

// Valid reports whether the parameters satisfy the model invariants:
// nugget ≥ 0, partial sill ≥ 0, range > 0.
func (m Model) Valid() bool {
	return m.Nugget >= 0 && m.PartialSill >= 0 && m.Range > 0
}
