// Package ekf implements a landmark-based Extended Kalman Filter map. Each
// landmark carries its own 2D mean and covariance, updated independently
// against range/bearing observations taken from a (externally supplied,
// already-associated) pose estimate.
//
// Data association and the joint pose/landmark state are out of scope:
// every observation names the landmark index it corresponds to, and the
// pose used for linearization comes from the caller's own pose estimate
// (e.g. the grid-SLAM or point-map tracker).
package ekf

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/slamcore/internal/mathx"
	"github.com/banshee-data/slamcore/internal/motion"
)

// Landmark is a single EKF-tracked 2D point with its mean position and
// covariance.
type Landmark struct {
	Mean       motion.Point
	Covariance [2][2]float64
}

// Observation is a range/bearing sighting of a known landmark, relative to
// the observer's pose.
type Observation struct {
	LandmarkIndex int
	Range         float64
	Bearing       float64
}

// MeasurementNoise is the diagonal measurement covariance assumed for every
// observation: range in meters, bearing in radians.
type MeasurementNoise struct {
	RangeVariance   float64
	BearingVariance float64
}

// DefaultMeasurementNoise returns a modest noise model: 5cm range stddev,
// 2 degree bearing stddev.
func DefaultMeasurementNoise() MeasurementNoise {
	bearingStd := 2.0 * math.Pi / 180.0
	return MeasurementNoise{RangeVariance: 0.05 * 0.05, BearingVariance: bearingStd * bearingStd}
}

// Map holds the set of tracked landmarks.
type Map struct {
	Landmarks []Landmark
	Noise     MeasurementNoise
}

// LandmarkMapMessage is the immutable snapshot of a Map published on the
// bus after an update — spec.md §6's "LandmarkMapMessage{landmarks}" map
// snapshot, the landmark-map analog of a PointMap or Grid snapshot.
type LandmarkMapMessage struct {
	Landmarks []Landmark
}

// Snapshot returns a LandmarkMapMessage holding a copy of the map's current
// landmarks, safe to publish and share across subscribers.
func (m *Map) Snapshot() LandmarkMapMessage {
	out := make([]Landmark, len(m.Landmarks))
	copy(out, m.Landmarks)
	return LandmarkMapMessage{Landmarks: out}
}

// New builds a Map seeded with the given initial landmark estimates, each
// given an identity-scaled prior covariance.
func New(initial []motion.Point, priorVariance float64) *Map {
	landmarks := make([]Landmark, len(initial))
	for i, p := range initial {
		landmarks[i] = Landmark{
			Mean: p,
			Covariance: [2][2]float64{
				{priorVariance, 0},
				{0, priorVariance},
			},
		}
	}
	return &Map{Landmarks: landmarks, Noise: DefaultMeasurementNoise()}
}

// Update folds a batch of observations, taken at pose, into the landmark
// map via a Joseph-form EKF covariance update.
func (m *Map) Update(pose motion.Pose, observations []Observation) {
	for _, obs := range observations {
		if obs.LandmarkIndex < 0 || obs.LandmarkIndex >= len(m.Landmarks) {
			continue
		}
		m.updateOne(pose, &m.Landmarks[obs.LandmarkIndex], obs)
	}
}

func (m *Map) updateOne(pose motion.Pose, lm *Landmark, obs Observation) {
	dx := lm.Mean.X - pose.X
	dy := lm.Mean.Y - pose.Y
	q := dx*dx + dy*dy
	if q < 1e-12 {
		return
	}
	r := math.Sqrt(q)

	predictedRange := r
	predictedBearing := math.Atan2(dy, dx) - pose.Theta

	innovation := mat.NewVecDense(2, []float64{
		obs.Range - predictedRange,
		mathx.AngleDiff(predictedBearing, obs.Bearing),
	})

	h := mat.NewDense(2, 2, []float64{
		dx / r, dy / r,
		-dy / q, dx / q,
	})

	p := mat.NewDense(2, 2, []float64{
		lm.Covariance[0][0], lm.Covariance[0][1],
		lm.Covariance[1][0], lm.Covariance[1][1],
	})

	rNoise := mat.NewDense(2, 2, []float64{
		m.Noise.RangeVariance, 0,
		0, m.Noise.BearingVariance,
	})

	var hp, s, sInv mat.Dense
	hp.Mul(h, p)
	var hpht mat.Dense
	hpht.Mul(&hp, h.T())
	s.Add(&hpht, rNoise)
	if err := sInv.Inverse(&s); err != nil {
		return
	}

	var pht, k mat.Dense
	pht.Mul(p, h.T())
	k.Mul(&pht, &sInv)

	var correction mat.VecDense
	correction.MulVec(&k, innovation)
	lm.Mean.X += correction.AtVec(0)
	lm.Mean.Y += correction.AtVec(1)

	identity := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	var ikh mat.Dense
	ikh.Sub(identity, dense2(&k, h))

	var ikhP, ikhPIkhT mat.Dense
	ikhP.Mul(&ikh, p)
	ikhPIkhT.Mul(&ikhP, ikh.T())

	var kr, krkt mat.Dense
	kr.Mul(&k, rNoise)
	krkt.Mul(&kr, k.T())

	var newCov mat.Dense
	newCov.Add(&ikhPIkhT, &krkt)

	lm.Covariance = [2][2]float64{
		{newCov.At(0, 0), newCov.At(0, 1)},
		{newCov.At(1, 0), newCov.At(1, 1)},
	}
}

// dense2 computes K*H as a standalone *mat.Dense, since mat.Dense.Sub
// requires materialized operands rather than a chained Mul result.
func dense2(k, h *mat.Dense) *mat.Dense {
	var kh mat.Dense
	kh.Mul(k, h)
	return &kh
}
