// Package simulator drives a simulated differential-drive robot around a
// scene: integrating commanded wheel speeds into a pose, and periodically
// casting a simulated lidar scan against the scene to publish observations.
package simulator

import (
	"math"
	"math/rand"
	"sync"

	"github.com/banshee-data/slamcore/internal/bus"
	"github.com/banshee-data/slamcore/internal/motion"
	"github.com/banshee-data/slamcore/internal/scene"
)

// Parameters configures the simulated robot and sensor.
type Parameters struct {
	// WheelBase is the distance between the two drive wheels, in meters.
	WheelBase float64
	// UpdatePeriod is the time, in seconds, between emitted scans (1/Hz).
	UpdatePeriod float64
	// ScannerRange is the maximum simulated lidar range, in meters.
	ScannerRange float64
}

// DefaultParameters mirrors the reference robot: a 10cm wheel base, 5Hz
// scan rate, and 1m sensor range.
func DefaultParameters() Parameters {
	return Parameters{WheelBase: 0.1, UpdatePeriod: 0.2, ScannerRange: 1.0}
}

// ObservationOdometry pairs a scan with the wheel odometry accumulated since
// the previous scan, the unit the SLAM node consumes to both register a new
// scan and score it against the motion model.
type ObservationOdometry struct {
	Observation motion.Observation
	Odometry    motion.Odometry
}

// Simulator owns the simulated robot's pose and drives it from commands
// received over the bus, publishing observations as it goes.
type Simulator struct {
	pubObs     *bus.Publisher[motion.Observation]
	pubObsOdom *bus.Publisher[ObservationOdometry]
	subCmd     *bus.Subscription[motion.Command]

	sceneMu sync.RWMutex
	scene   *scene.Scene

	params Parameters
	rngSrc rand.Source

	pose          motion.Pose
	wheelVelocity [2]float64 // left, right, m/s
	active        bool

	scanUpdateTimer float64
	scanCounter     uint64
	wheelAccum      [2]float64 // left, right distance since last scan
}

// New builds a Simulator wired to the given bus publishers/subscription and
// casting scans against sc.
func New(
	pubObs *bus.Publisher[motion.Observation],
	pubObsOdom *bus.Publisher[ObservationOdometry],
	subCmd *bus.Subscription[motion.Command],
	sc *scene.Scene,
	params Parameters,
	rngSrc rand.Source,
) *Simulator {
	return &Simulator{
		pubObs:     pubObs,
		pubObsOdom: pubObsOdom,
		subCmd:     subCmd,
		scene:      sc,
		params:     params,
		rngSrc:     rngSrc,
		active:     true,
	}
}

// Pose returns the robot's current simulated pose.
func (s *Simulator) Pose() motion.Pose { return s.pose }

// Parameters returns a copy of the simulator's current tuning parameters.
func (s *Simulator) Parameters() Parameters { return s.params }

// SetParameters replaces the simulator's tuning parameters.
func (s *Simulator) SetParameters(p Parameters) { s.params = p }

// SetActive starts or stops pose integration and scan emission without
// tearing down the simulator; wheel commands are still drained either way.
func (s *Simulator) SetActive(active bool) { s.active = active }

// Tick advances the simulation by dt seconds: it drains the most recent
// wheel command, integrates the pose, and, once UpdatePeriod has elapsed,
// casts a 360-degree scan and publishes it along with the accumulated
// odometry.
func (s *Simulator) Tick(dt float64) {
	for {
		cmd, ok := s.subCmd.TryRecv()
		if !ok {
			break
		}
		s.wheelVelocity = [2]float64{cmd.SpeedLeft, cmd.SpeedRight}
	}

	if !s.active {
		return
	}

	s.scanUpdateTimer += dt
	s.motionModel(s.wheelVelocity[0]*dt, s.wheelVelocity[1]*dt)
	s.wheelAccum[0] += s.wheelVelocity[0] * dt
	s.wheelAccum[1] += s.wheelVelocity[1] * dt

	if s.scanUpdateTimer <= s.params.UpdatePeriod {
		return
	}
	s.scanUpdateTimer -= s.params.UpdatePeriod

	meas := s.castScan()
	obs := motion.Observation{ID: s.scanCounter, Measurements: meas}

	s.pubObs.Send(&obs)

	odo := motion.NewOdometry(s.wheelAccum[0], s.wheelAccum[1], s.rngSrc)
	combined := ObservationOdometry{Observation: obs, Odometry: odo}
	s.pubObsOdom.Send(&combined)

	s.wheelAccum = [2]float64{}
	s.scanCounter++
}

func (s *Simulator) castScan() []motion.Measurement {
	meas := make([]motion.Measurement, 0, 360)
	origin := scene.Point{X: s.pose.X, Y: s.pose.Y}

	s.sceneMu.RLock()
	defer s.sceneMu.RUnlock()

	for deg := 0; deg < 360; deg++ {
		angle := float64(deg) * math.Pi / 180.0
		ray := scene.NewRayFromAngle(origin, angle+s.pose.Theta)

		u, ok := s.scene.Intersect(ray)
		if !ok || u >= s.params.ScannerRange {
			meas = append(meas, motion.Measurement{Angle: angle, Distance: s.params.ScannerRange, Strength: 1.0, Valid: false})
			continue
		}
		meas = append(meas, motion.Measurement{Angle: angle, Distance: u, Strength: 1.0, Valid: true})
	}
	return meas
}

// motionModel integrates the differential-drive kinematics for a tick where
// the left and right wheels traveled sl and sr meters respectively.
func (s *Simulator) motionModel(sl, sr float64) {
	sbar := (sr + sl) / 2.0
	s.pose.Theta += (sr - sl) / s.params.WheelBase
	s.pose.X += sbar * math.Cos(s.pose.Theta)
	s.pose.Y += sbar * math.Sin(s.pose.Theta)
}

// AddToScene adds an object to the simulated scene under the scene's write
// lock, safe to call concurrently with Tick's scan casting.
func (s *Simulator) AddToScene(obj scene.Intersect) {
	s.sceneMu.Lock()
	defer s.sceneMu.Unlock()
	s.scene.Add(obj)
}
