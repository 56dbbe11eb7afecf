package gridmap

import "github.com/banshee-data/slamcore/internal/motion"

// Config is a builder for Grid parameters: fields left at their zero value
// are filled in with the documented default by Build.
type Config struct {
	Position motion.Point // lower-left corner in world coordinates (default: (-10,-10))

	Width      float64 // world-space width in meters (default: 20m)
	Height     float64 // world-space height in meters (default: 20m)
	Resolution float64 // meters per cell (default: 0.05m)

	SensorModel SensorModel // inverse sensor model (default: DefaultSensorModel)
}

// DefaultConfig returns a Config with every field set to its documented
// default: a 20x20m grid at 5cm resolution, centered on the origin (lower-left
// corner at (-10,-10)).
func DefaultConfig() Config {
	return Config{
		Position:    motion.Point{X: -10, Y: -10},
		Width:       20,
		Height:      20,
		Resolution:  0.05,
		SensorModel: DefaultSensorModel(),
	}
}

// Build fills in zero-valued fields with their defaults and constructs the
// Grid.
func (c Config) Build() *Grid {
	d := DefaultConfig()
	if c.Width == 0 {
		c.Width = d.Width
	}
	if c.Height == 0 {
		c.Height = d.Height
	}
	if c.Resolution == 0 {
		c.Resolution = d.Resolution
	}
	if c.Position == (motion.Point{}) {
		c.Position = d.Position
	}
	if c.SensorModel == (SensorModel{}) {
		c.SensorModel = d.SensorModel
	}
	return NewWithSensorModel(c.Position, c.Width, c.Height, c.Resolution, c.SensorModel)
}
