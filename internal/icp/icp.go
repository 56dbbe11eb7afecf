// Package icp implements scan registration via Iterative Closest Point with
// a point-to-normal error metric, the core primitive the point-map tracker
// (internal/pointmap) uses to align a new lidar scan against the accumulated
// point map.
package icp

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/slamcore/internal/telemetry"
)

// ErrEmptyCloud is returned when either the scan or the reference cloud
// passed to PointToNormal has no points: spec.md's "return the initial guess
// and empty transformed set without iterating" short-circuit.
var ErrEmptyCloud = errors.New("icp: point or reference cloud is empty")

// ErrSingularSystem is returned when the Gauss-Newton normal equations cannot
// be solved at all (the SVD fails, or H has no singular value above the solve
// tolerance, e.g. every correspondence has a zero normal or zero weight); the
// returned Transformation is the last valid value before the failed
// iteration, per spec.md section 4.2.
var ErrSingularSystem = errors.New("icp: normal equations system is singular")

// Point2 is a 2D point in some local frame.
type Point2 struct{ X, Y float64 }

// Transform is a 2D rigid transformation: translation (X, Y) plus rotation
// Theta in radians.
type Transform struct{ X, Y, Theta float64 }

// Vector returns the transform as the [x, y, theta] parameter vector ICP
// iterates on.
func (t Transform) Vector() [3]float64 { return [3]float64{t.X, t.Y, t.Theta} }

// CorrespondenceWeight assigns a weight to a point correspondence given its
// (point-to-normal) error, used to down-weight or reject outlier matches.
type CorrespondenceWeight interface {
	Weight(err float64) float64
}

// UniformWeight assigns every correspondence weight 1.0.
type UniformWeight struct{}

// Weight implements CorrespondenceWeight.
func (UniformWeight) Weight(float64) float64 { return 1.0 }

// StepWeight assigns weight 1.0 to correspondences with |err| below
// Threshold, and 0.0 otherwise, rejecting outliers entirely.
type StepWeight struct{ Threshold float64 }

// Weight implements CorrespondenceWeight.
func (s StepWeight) Weight(err float64) float64 {
	if err*err < s.Threshold*s.Threshold {
		return 1.0
	}
	return 0.0
}

// Parameters configures an ICP run.
type Parameters struct {
	CorrespondenceWeights CorrespondenceWeight
	Iterations            int
}

// DefaultParameters returns the parameters used when none are specified: 10
// iterations with uniform correspondence weighting.
func DefaultParameters() Parameters {
	return Parameters{CorrespondenceWeights: UniformWeight{}, Iterations: 10}
}

// Result is the outcome of an ICP registration run.
type Result struct {
	Transformation    Transform
	TransformedPoints []Point2
	ChiValues         []float64
	ExecutionTime     time.Duration
}

// PointToNormal registers points against referencePoints, starting the
// search from initialPose, and returns the transform that best aligns them.
// It returns ErrEmptyCloud without iterating if either cloud is empty, and
// ErrSingularSystem if the solve has no usable direction partway through; in
// both cases the returned Transformation holds the last valid value.
func PointToNormal(points, referencePoints []Point2, initialPose Transform, params Parameters) (Result, error) {
	start := time.Now()

	if len(points) == 0 || len(referencePoints) == 0 {
		return Result{
			Transformation:    initialPose,
			TransformedPoints: []Point2{},
			ExecutionTime:     time.Since(start),
		}, ErrEmptyCloud
	}

	x := initialPose
	qNormals := computeNormals(referencePoints)

	chiValues := make([]float64, 0, params.Iterations)
	for iter := 0; iter < params.Iterations; iter++ {
		transformed := transformPoints(points, x)
		correspondences := findCorrespondences(transformed, referencePoints)

		H, g, chi := prepareSystemNormals(x, points, referencePoints, correspondences, qNormals, params)

		dx, ok := leastSquares(H, g)
		if !ok {
			telemetry.Logf("icp: singular system at iteration %d, keeping last valid transform", iter)
			return Result{
				Transformation:    x,
				TransformedPoints: transformPoints(points, x),
				ChiValues:         chiValues,
				ExecutionTime:     time.Since(start),
			}, ErrSingularSystem
		}
		x.X += dx[0]
		x.Y += dx[1]
		x.Theta += dx[2]
		x.Theta = math.Atan2(math.Sin(x.Theta), math.Cos(x.Theta))

		chiValues = append(chiValues, chi)
	}

	return Result{
		Transformation:    x,
		TransformedPoints: transformPoints(points, x),
		ChiValues:         chiValues,
		ExecutionTime:     time.Since(start),
	}, nil
}

func transformPoints(points []Point2, x Transform) []Point2 {
	out := make([]Point2, len(points))
	c, s := math.Cos(x.Theta), math.Sin(x.Theta)
	for i, p := range points {
		out[i] = Point2{
			X: c*p.X - s*p.Y + x.X,
			Y: s*p.X + c*p.Y + x.Y,
		}
	}
	return out
}

type correspondence struct{ i, j int }

// findCorrespondences pairs each point in p with its nearest neighbor (by
// euclidean distance) in q, using a brute-force search.
func findCorrespondences(p, q []Point2) []correspondence {
	c := make([]correspondence, 0, len(p))
	if len(p) == 0 || len(q) == 0 {
		return c
	}
	for i, pp := range p {
		best := 0
		bestDist := math.Inf(1)
		for j, qp := range q {
			dx := pp.X - qp.X
			dy := pp.Y - qp.Y
			d := dx*dx + dy*dy
			if d < bestDist {
				bestDist = d
				best = j
			}
		}
		c = append(c, correspondence{i: i, j: best})
	}
	return c
}

// rotationMatrix returns R(theta).
func rotationMatrix(theta float64) (c, s float64) {
	return math.Cos(theta), math.Sin(theta)
}

// jacobian returns the 2x3 jacobian of the transform at p_point, i.e.
// d(R(theta)*p + t)/d(x,y,theta).
func jacobian(theta float64, p Point2) [2][3]float64 {
	dc, ds := -math.Sin(theta), math.Cos(theta)
	tx := dc*p.X - ds*p.Y
	ty := ds*p.X + dc*p.Y
	return [2][3]float64{
		{1, 0, tx},
		{0, 1, ty},
	}
}

// transformError returns R(theta)*p_point + (x,y) - q_point.
func transformError(x Transform, pPoint, qPoint Point2) (ex, ey float64) {
	c, s := rotationMatrix(x.Theta)
	predX := c*pPoint.X - s*pPoint.Y + x.X
	predY := s*pPoint.X + c*pPoint.Y + x.Y
	return predX - qPoint.X, predY - qPoint.Y
}

// computeNormals estimates a unit surface normal at each point from its two
// neighbors via the cross product of the tangent direction; the two
// endpoints have no defined normal and are left as zero vectors.
func computeNormals(points []Point2) []Point2 {
	normals := make([]Point2, len(points))
	if len(points) <= 2 {
		return normals
	}
	for i := 1; i < len(points)-1; i++ {
		prev := points[i-1]
		next := points[i+1]
		dx := next.X - prev.X
		dy := next.Y - prev.Y
		norm := math.Hypot(dx, dy)
		if norm == 0 {
			continue
		}
		normals[i] = Point2{X: -dy / norm, Y: dx / norm}
	}
	return normals
}

// prepareSystemNormals accumulates the Gauss-Newton hessian and gradient for
// the point-to-normal error metric: each correspondence contributes a scalar
// error (the point-to-point error projected onto the reference normal)
// rather than a full 2D residual.
func prepareSystemNormals(x Transform, p, q []Point2, c []correspondence, qNormals []Point2, params Parameters) (H [3][3]float64, g [3]float64, chi float64) {
	for _, corr := range c {
		pPoint := p[corr.i]
		qPoint := q[corr.j]
		normal := qNormals[corr.j]

		ex, ey := transformError(x, pPoint, qPoint)
		e := normal.X*ex + normal.Y*ey

		weight := params.CorrespondenceWeights.Weight(e)

		J2 := jacobian(x.Theta, pPoint)
		// project the 2x3 jacobian onto the normal direction: a 1x3 row.
		var Jn [3]float64
		for k := 0; k < 3; k++ {
			Jn[k] = normal.X*J2[0][k] + normal.Y*J2[1][k]
		}

		for a := 0; a < 3; a++ {
			g[a] += weight * Jn[a] * e
			for b := 0; b < 3; b++ {
				H[a][b] += weight * Jn[a] * Jn[b]
			}
		}
		chi += e * e
	}
	return H, g, chi
}

// leastSquares solves H*dx = -g for dx in the least-squares sense via SVD,
// dropping singular values below 1e-8 of the largest, so a rank-deficient H
// (e.g. a straight wall, which leaves translation along it unconstrained)
// still yields the minimum-norm step. It returns ok=false only if the
// factorization fails or H has no singular value above that tolerance.
func leastSquares(H [3][3]float64, g [3]float64) ([3]float64, bool) {
	a := mat.NewDense(3, 3, []float64{
		H[0][0], H[0][1], H[0][2],
		H[1][0], H[1][1], H[1][2],
		H[2][0], H[2][1], H[2][2],
	})
	b := mat.NewVecDense(3, []float64{-g[0], -g[1], -g[2]})

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return [3]float64{}, false
	}
	rank := svd.Rank(1e-8)
	if rank == 0 {
		return [3]float64{}, false
	}
	var dx mat.VecDense
	svd.SolveVecTo(&dx, b, rank)
	return [3]float64{dx.AtVec(0), dx.AtVec(1), dx.AtVec(2)}, true
}
