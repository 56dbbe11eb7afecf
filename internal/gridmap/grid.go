// Package gridmap implements 2D occupancy-grid mapping: log-odds cell
// accumulation via an inverse sensor model, and an observation likelihood
// used to score particle filter hypotheses.
package gridmap

import (
	"math"

	"github.com/banshee-data/slamcore/internal/mathx"
	"github.com/banshee-data/slamcore/internal/motion"
)

// ZHit and SensorMaxDist parameterize the observation likelihood model: the
// probability mass assigned to the sensor's "hit" model versus a uniform
// random-noise floor.
const (
	ZHit          = 0.9
	SensorMaxDist = 1.0 // meters
)

// Cell identifies a grid cell by its column and row, both zero-indexed from
// the map's lower-left corner.
type Cell struct{ Column, Row int }

// SensorModel parameterizes the inverse sensor model: the free/occupied/
// prior probabilities assigned to a traversed cell and the tolerance band
// (in cells) around a hit measurement treated as occupied. See spec.md
// section 4.4.
type SensorModel struct {
	PFree        float64
	POccupied    float64
	PPrior       float64
	HitTolerance float64 // cells
}

// DefaultSensorModel returns the spec's reference constants: 0.30 free,
// 0.90 occupied, 0.50 prior, 2.0-cell hit tolerance.
func DefaultSensorModel() SensorModel {
	return SensorModel{PFree: 0.30, POccupied: 0.90, PPrior: 0.50, HitTolerance: 2.0}
}

// Grid is a 2D occupancy grid map. Every cell holds a log-odds accumulator
// that starts at the 0.5-probability prior and is updated additively by
// every sensor integration.
type Grid struct {
	// position is the world-space coordinate of the grid's lower-left corner.
	position motion.Point
	// gridSize is the size of the grid in cells (columns, rows).
	cols, rows int
	// resolution is meters per cell.
	resolution float64

	sensorModel SensorModel
	odds        []mathx.LogOdds
}

// New builds a Grid covering a world-space rectangle of the given width and
// height (meters), anchored at position, with the given resolution
// (meters/cell), using DefaultSensorModel. The actual world size may be
// rounded up to a whole number of cells.
func New(position motion.Point, width, height, resolution float64) *Grid {
	return NewWithSensorModel(position, width, height, resolution, DefaultSensorModel())
}

// NewWithSensorModel is New with an explicit inverse sensor model, for
// callers (Config.Build) that source the probabilities from a TuningConfig
// instead of the spec defaults.
func NewWithSensorModel(position motion.Point, width, height, resolution float64, sensorModel SensorModel) *Grid {
	cols := int(math.Ceil(width / resolution))
	rows := int(math.Ceil(height / resolution))

	prior := mathx.NewProbability(0.5).LogOdds()
	odds := make([]mathx.LogOdds, cols*rows)
	for i := range odds {
		odds[i] = prior
	}

	return &Grid{position: position, cols: cols, rows: rows, resolution: resolution, sensorModel: sensorModel, odds: odds}
}

// Position returns the world-space coordinate of the grid's lower-left corner.
func (g *Grid) Position() motion.Point { return g.position }

// Size returns the grid dimensions in cells.
func (g *Grid) Size() (cols, rows int) { return g.cols, g.rows }

// Resolution returns the grid's meters-per-cell resolution.
func (g *Grid) Resolution() float64 { return g.resolution }

// Clone returns a deep copy of the grid, used by the particle filter to give
// each hypothesis its own independently-updatable map.
func (g *Grid) Clone() *Grid {
	odds := make([]mathx.LogOdds, len(g.odds))
	copy(odds, g.odds)
	return &Grid{position: g.position, cols: g.cols, rows: g.rows, resolution: g.resolution, sensorModel: g.sensorModel, odds: odds}
}

// RawOdds returns a copy of the dense, row-major log-odds array backing the
// grid, for callers (snapshot persistence) that need the raw accumulator
// values rather than a cell-by-cell view.
func (g *Grid) RawOdds() []float64 {
	out := make([]float64, len(g.odds))
	for i, lo := range g.odds {
		out[i] = lo.Value()
	}
	return out
}

// Restore reconstructs a Grid from a previously captured position,
// resolution, dimensions, and raw row-major log-odds array, the inverse of
// RawOdds. The caller is responsible for ensuring len(odds) == cols*rows.
// The sensor model is not part of the persisted snapshot and defaults to
// DefaultSensorModel; use RestoreWithSensorModel to restore into a grid
// configured from a TuningConfig.
func Restore(position motion.Point, resolution float64, cols, rows int, odds []float64) *Grid {
	return RestoreWithSensorModel(position, resolution, cols, rows, odds, DefaultSensorModel())
}

// RestoreWithSensorModel is Restore with an explicit inverse sensor model.
func RestoreWithSensorModel(position motion.Point, resolution float64, cols, rows int, odds []float64, sensorModel SensorModel) *Grid {
	lo := make([]mathx.LogOdds, len(odds))
	for i, v := range odds {
		lo[i] = mathx.NewLogOdds(v)
	}
	return &Grid{position: position, cols: cols, rows: rows, resolution: resolution, sensorModel: sensorModel, odds: lo}
}

// WorldToGrid converts a world-space point into grid-relative (fractional)
// coordinates. The result is not guaranteed to lie within the grid's bounds.
func (g *Grid) WorldToGrid(world motion.Point) (x, y float64) {
	return (world.X - g.position.X) / g.resolution, (world.Y - g.position.Y) / g.resolution
}

// IsValid reports whether the integer truncation of a grid-relative
// coordinate lies within the grid's bounds.
func (g *Grid) IsValid(gridX, gridY float64) bool {
	if gridX < 0 || gridY < 0 {
		return false
	}
	return int(gridX) < g.cols && int(gridY) < g.rows
}

func (g *Grid) index(c Cell) int { return c.Row*g.cols + c.Column }

// At returns the log-odds value of a cell.
func (g *Grid) At(c Cell) mathx.LogOdds { return g.odds[g.index(c)] }

// Probability returns the linear-space occupancy probability of a cell.
func (g *Grid) Probability(c Cell) mathx.Probability { return g.odds[g.index(c)].Probability() }

// Integrate folds a full lidar observation, taken at pose, into the grid.
func (g *Grid) Integrate(obs motion.Observation, pose motion.Pose) {
	startX, startY := g.WorldToGrid(motion.Point{X: pose.X, Y: pose.Y})

	for _, m := range obs.Measurements {
		angle := pose.Theta + m.Angle
		end := motion.Point{
			X: pose.X + math.Cos(angle)*m.Distance,
			Y: pose.Y + math.Sin(angle)*m.Distance,
		}
		endX, endY := g.WorldToGrid(end)
		g.applyMeasurement(startX, startY, endX, endY, m.Distance/g.resolution, m.Valid)
	}
}

// applyMeasurement walks the supercover ray from (startX,startY) to
// (endX,endY) in grid space and folds the inverse sensor model into every
// cell it passes through.
func (g *Grid) applyMeasurement(startX, startY, endX, endY, measuredDistance float64, wasHit bool) {
	const additionalSteps = 2
	it := newRayIterator(startX, startY, endX, endY, g.cols, g.rows, additionalSteps)

	for {
		cell, center, ok := it.Next()
		if !ok {
			break
		}
		dx := center.X - startX
		dy := center.Y - startY
		distance := math.Hypot(dx, dy)

		p := inverseSensorModel(distance, measuredDistance, wasHit, g.sensorModel)
		idx := g.index(cell)
		g.odds[idx] = g.odds[idx].Add(p.LogOdds())
	}
}

// inverseSensorModel assigns a hit/free/prior probability to a traversed
// cell given its distance from the sensor along the ray and the measured
// range, with a tolerance band (in cell units) around the measured range
// where the cell is treated as occupied.
func inverseSensorModel(distance, measuredDistance float64, wasHit bool, m SensorModel) mathx.Probability {
	if !wasHit {
		if distance < measuredDistance {
			return mathx.NewProbability(m.PFree)
		}
		return mathx.NewProbability(m.PPrior)
	}

	switch {
	case distance < measuredDistance-m.HitTolerance/2.0:
		return mathx.NewProbability(m.PFree)
	case distance > measuredDistance+m.HitTolerance/2.0:
		return mathx.NewProbability(m.PPrior)
	default:
		return mathx.NewProbability(m.POccupied)
	}
}

// ProbabilityOf scores how likely observation z is given the map, evaluated
// at pose, as an (unnormalized) log-probability suitable for particle
// weighting: p(z|m,pose).
func (g *Grid) ProbabilityOf(z motion.Observation, pose motion.Pose) mathx.LogProbability {
	product := mathx.NewLogProbability(1.0)

	for _, m := range z.Measurements {
		if !m.Valid {
			continue
		}
		angle := pose.Theta + m.Angle
		end := motion.Point{
			X: pose.X + math.Cos(angle)*m.Distance,
			Y: pose.Y + math.Sin(angle)*m.Distance,
		}
		endX, endY := g.WorldToGrid(end)
		if !g.IsValid(endX, endY) {
			continue
		}

		cell := Cell{Column: int(endX), Row: int(endY)}
		p := g.Probability(cell).Value()

		if p == 0.5 {
			product = product.MulLinear(1.0 / SensorMaxDist)
		} else {
			product = product.MulLinear(ZHit*p + (1.0-ZHit)*(1.0/SensorMaxDist))
		}
	}

	return product
}
