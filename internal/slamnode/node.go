// Package slamnode is the composition root that wires the particle filter,
// the occupancy grid, and the motion model together into grid-based SLAM:
// each particle carries its own candidate pose and its own map, scored
// against incoming scans and resampled when the population degenerates.
//
// This package imports from gridmap, motion, and particle; none of those
// packages import slamnode.
package slamnode

import (
	"math/rand"

	"github.com/banshee-data/slamcore/internal/bus"
	"github.com/banshee-data/slamcore/internal/gridmap"
	"github.com/banshee-data/slamcore/internal/motion"
	"github.com/banshee-data/slamcore/internal/particle"
	"github.com/banshee-data/slamcore/internal/simulator"
)

// Hypothesis is a single particle's state: a candidate pose and the map it
// has built assuming that pose history is correct.
type Hypothesis struct {
	Pose motion.Pose
	Grid *gridmap.Grid
}

func cloneHypothesis(h Hypothesis) Hypothesis {
	return Hypothesis{Pose: h.Pose, Grid: h.Grid.Clone()}
}

// Config configures a Node.
type Config struct {
	NumParticles int
	GridConfig   gridmap.Config
	Seed         int64
	// ResampleFraction is the N_eff/N threshold below which the particle
	// population is resampled. Zero selects the 0.5 default.
	ResampleFraction float64
}

// DefaultConfig returns a 30-particle filter with a default grid config.
func DefaultConfig() Config {
	return Config{NumParticles: 30, GridConfig: gridmap.DefaultConfig(), Seed: 1, ResampleFraction: 0.5}
}

// Node consumes (Observation, Odometry) pairs from the bus and maintains a
// particle-filter estimate of the robot's pose and occupancy map.
type Node struct {
	subObsOdom *bus.Subscription[simulator.ObservationOdometry]
	pubPose    *bus.Publisher[motion.Pose]
	pubGrid    *bus.Publisher[gridmap.Grid]

	filter           *particle.Filter[Hypothesis]
	rng              *rand.Rand
	resampleFraction float64
}

// New builds a Node wired to the given subscription/publishers.
func New(
	subObsOdom *bus.Subscription[simulator.ObservationOdometry],
	pubPose *bus.Publisher[motion.Pose],
	pubGrid *bus.Publisher[gridmap.Grid],
	cfg Config,
) *Node {
	src := rand.NewSource(cfg.Seed)
	initial := Hypothesis{Pose: motion.Pose{}, Grid: cfg.GridConfig.Build()}

	resampleFraction := cfg.ResampleFraction
	if resampleFraction == 0 {
		resampleFraction = 0.5
	}

	return &Node{
		subObsOdom:       subObsOdom,
		pubPose:          pubPose,
		pubGrid:          pubGrid,
		filter:           particle.New(cfg.NumParticles, initial, cloneHypothesis, src),
		rng:              rand.New(src),
		resampleFraction: resampleFraction,
	}
}

// Update drains one pending (Observation, Odometry) pair, if any, and
// advances the particle filter: each particle samples a new pose from the
// motion model, scores it against its own map via the observation
// likelihood, integrates the scan into its map, and resamples if the
// population has degenerated. Returns true if a pair was processed.
func (n *Node) Update() bool {
	pair, ok := n.subObsOdom.TryRecv()
	if !ok {
		return false
	}

	odo := pair.Odometry
	obs := pair.Observation

	n.filter.Update(func(h *Hypothesis) float64 {
		newPose := odo.Sample(h.Pose)
		logLikelihood := h.Grid.ProbabilityOf(obs, newPose)

		h.Pose = newPose
		h.Grid.Integrate(obs, newPose)

		return logLikelihood.Prob().Value()
	})

	if n.filter.NumberOfEffectiveParticles() < float64(n.filter.Len())*n.resampleFraction {
		n.filter.Resample()
		// Resample resets every weight to 1/n and leaves the strongest-particle
		// index undefined (internal/particle/filter.go's own documented
		// contract): re-run Update so StrongestParticleIdx reflects the
		// freshly-resampled, uniformly-weighted population rather than a
		// stale index into it.
		n.filter.Update(func(*Hypothesis) float64 { return 1.0 })
	}

	best := n.filter.ParticleValue(n.filter.StrongestParticleIdx())
	n.pubPose.Send(&best.Pose)
	n.pubGrid.Send(best.Grid)

	return true
}

// EstimatedPose returns the currently strongest particle's pose.
func (n *Node) EstimatedPose() motion.Pose {
	return n.filter.ParticleValue(n.filter.StrongestParticleIdx()).Pose
}

// Grid returns the currently strongest particle's map.
func (n *Node) Grid() *gridmap.Grid {
	return n.filter.ParticleValue(n.filter.StrongestParticleIdx()).Grid
}
