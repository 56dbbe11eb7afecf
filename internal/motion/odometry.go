package motion

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/slamcore/internal/mathx"
)

// WheelDistance is the default axle length between the two drive wheels, in
// meters.
const WheelDistance = 0.1

// Command sets the target wheel speeds for the differential drive base, in
// meters/second.
type Command struct {
	SpeedLeft, SpeedRight float64
}

// Odometry is the measured motion of the left and right wheels since the
// last reading, together with the noise model that describes how much the
// true motion is expected to deviate from that measurement.
type Odometry struct {
	DistanceLeft, DistanceRight float64

	centerDist distuv.Normal
	thetaDist  distuv.Normal
}

// NewOdometry builds an Odometry from the measured per-wheel travel
// distances. The noise model widens with the magnitude of the measured
// motion: a fixed minimum spread plus a term proportional to the reading, the
// standard assumption for wheel encoders.
func NewOdometry(distanceLeft, distanceRight float64, src rand.Source) Odometry {
	deltaCenter := (distanceLeft + distanceRight) / 2.0
	deltaTheta := (distanceRight - distanceLeft) / WheelDistance

	centerStd := (0.01 + math.Abs(deltaCenter)*0.05) / 2.0
	thetaStd := (5.0*math.Pi/180.0) + 0.1*math.Abs(deltaTheta)

	return Odometry{
		DistanceLeft:  distanceLeft,
		DistanceRight: distanceRight,
		centerDist:    distuv.Normal{Mu: deltaCenter, Sigma: centerStd, Src: src},
		thetaDist:     distuv.Normal{Mu: deltaTheta, Sigma: thetaStd, Src: src},
	}
}

// ProbabilityOf scores how likely this odometry reading is to have produced
// the transition from initial to new pose, as an (unnormalized) log
// probability suitable for multiplying into a particle's weight.
func (o Odometry) ProbabilityOf(initial, new Pose) mathx.LogProbability {
	dx := initial.X - new.X
	dy := initial.Y - new.Y
	centerDistance := math.Sqrt(dx*dx + dy*dy)
	angleDistance := mathx.AngleDiff(initial.Theta, new.Theta)

	centerP := mathx.NewLogProbabilityUnchecked(math.Log(o.centerDist.Prob(centerDistance)))
	thetaP := mathx.NewLogProbabilityUnchecked(math.Log(o.thetaDist.Prob(angleDistance)))
	return centerP.Mul(thetaP)
}

// Sample draws a pose transition from the motion model starting at
// initialPose.
func (o Odometry) Sample(initialPose Pose) Pose {
	centerDistance := o.centerDist.Rand()
	theta := initialPose.Theta + o.thetaDist.Rand()

	return Pose{
		Theta: theta,
		X:     initialPose.X + math.Cos(theta)*centerDistance,
		Y:     initialPose.Y + math.Sin(theta)*centerDistance,
	}
}
