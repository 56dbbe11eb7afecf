package mathx

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian2D is a bivariate normal distribution over a 2D point (for example
// an EKF landmark's mean and covariance), supporting sampling and log-density
// evaluation.
type Gaussian2D struct {
	mean [2]float64
	dist *distmv.Normal
}

// NewGaussian2D builds a Gaussian2D from a mean and a 2x2 covariance matrix.
// cov must be symmetric positive definite; ok is false otherwise (e.g. a
// singular covariance, or one that has drifted numerically indefinite after
// repeated EKF updates).
func NewGaussian2D(mean [2]float64, cov *mat.SymDense) (Gaussian2D, bool) {
	dist, ok := distmv.NewNormal([]float64{mean[0], mean[1]}, cov, nil)
	if !ok {
		return Gaussian2D{}, false
	}
	return Gaussian2D{mean: mean, dist: dist}, true
}

// Sample draws a single (x, y) sample from the distribution.
func (g Gaussian2D) Sample() [2]float64 {
	v := g.dist.Rand(nil)
	return [2]float64{v[0], v[1]}
}

// LogProb returns the log-density of the distribution at point p.
func (g Gaussian2D) LogProb(p [2]float64) float64 {
	return g.dist.LogProb([]float64{p[0], p[1]})
}

// Mean returns the distribution's mean.
func (g Gaussian2D) Mean() [2]float64 { return g.mean }

// Symmetrize2x2 returns a mat.SymDense view of a 2x2 matrix given as row-major
// values, averaging the off-diagonal pair to guard against the small
// asymmetries that accumulate from repeated floating-point EKF updates.
func Symmetrize2x2(a, b, c, d float64) *mat.SymDense {
	off := (b + c) / 2
	sym := mat.NewSymDense(2, nil)
	sym.SetSym(0, 0, a)
	sym.SetSym(0, 1, off)
	sym.SetSym(1, 1, d)
	return sym
}

// IsPSD2x2 reports whether a 2x2 symmetric matrix is positive semi-definite,
// i.e. both eigenvalues are non-negative.
func IsPSD2x2(sym *mat.SymDense) bool {
	a := sym.At(0, 0)
	b := sym.At(0, 1)
	d := sym.At(1, 1)
	trace := a + d
	det := a*d - b*b
	if trace < 0 {
		return false
	}
	// discriminant of the characteristic polynomial; both eigenvalues are
	// real (symmetric matrix) so we only need det >= 0 given trace >= 0.
	disc := trace*trace - 4*det
	if disc < 0 {
		// shouldn't happen for a real symmetric matrix; treat as PSD boundary
		disc = 0
	}
	lambdaMin := (trace - math.Sqrt(disc)) / 2
	return lambdaMin >= -1e-9
}
