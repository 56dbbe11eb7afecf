// Package motion provides the robot's pose representation, raw lidar
// observations, and the differential-drive odometry noise model. The
// simulator packages the wheel travel it accumulates between scans as an
// Odometry; the SLAM node samples each particle's candidate pose from that
// Odometry's noise model.
package motion

import (
	"math"

	"github.com/banshee-data/slamcore/internal/mathx"
)

// Pose is the robot's position and heading in the 2D world frame. Theta is
// radians, counter-clockwise from the positive X axis.
type Pose struct {
	X, Y, Theta float64
}

// XY returns the position component of the pose.
func (p Pose) XY() (x, y float64) { return p.X, p.Y }

// Measurement is a single lidar beam reading in the robot's local frame.
type Measurement struct {
	// Angle the beam was fired at, relative to the sensor's zero heading.
	Angle float64
	// Distance measured, in meters.
	Distance float64
	// Strength reported by the sensor, if applicable.
	Strength float64
	// Valid reports whether the sensor itself flagged this reading as usable.
	Valid bool
}

// Observation is one full lidar revolution's worth of measurements, still in
// the robot's local coordinate frame.
type Observation struct {
	ID           uint64
	Measurements []Measurement
}

// Point is a world-frame 2D coordinate.
type Point struct{ X, Y float64 }

// ToPoints projects the valid measurements into world coordinates given the
// pose the observation was taken from.
func (o Observation) ToPoints(origin Pose) []Point {
	pts := make([]Point, 0, len(o.Measurements))
	for _, m := range o.Measurements {
		if !m.Valid {
			continue
		}
		angle := origin.Theta + m.Angle
		pts = append(pts, Point{
			X: origin.X + math.Cos(angle)*m.Distance,
			Y: origin.Y + math.Sin(angle)*m.Distance,
		})
	}
	return pts
}
