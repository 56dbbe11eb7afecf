// Package pointmap accumulates lidar observations into a single point-cloud
// map by registering each new scan against the map so far with ICP, then
// merging the aligned points in. Left unchecked this map grows without
// bound, so every update subsamples it with a voxel grid.
package pointmap

import (
	"time"

	"github.com/banshee-data/slamcore/internal/config"
	"github.com/banshee-data/slamcore/internal/icp"
	"github.com/banshee-data/slamcore/internal/motion"
	"github.com/banshee-data/slamcore/internal/telemetry"
)

// PerfStats tracks update timing, mirroring the lightweight per-node
// instrumentation the teacher's pipeline stages keep.
type PerfStats struct {
	Count        int
	TotalElapsed time.Duration
}

func (s *PerfStats) update(d time.Duration) {
	s.Count++
	s.TotalElapsed += d
}

// Reset clears the accumulated statistics.
func (s *PerfStats) Reset() { *s = PerfStats{} }

// Mean returns the average update duration, or 0 if no updates were
// recorded yet.
func (s *PerfStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalElapsed / time.Duration(s.Count)
}

// Mapper accumulates observations into a point map, tracking the estimated
// pose that best aligns each new scan with the map so far.
type Mapper struct {
	mapPoints []icp.Point2
	poseEst   motion.Pose
	stats     PerfStats

	icpParams icp.Parameters
	leafSize  float64
}

// Parameters configures the mapper's ICP registration and subsampling
// behavior.
type Parameters struct {
	ICP icp.Parameters
	// VoxelLeafSize is the side length, in meters, of the voxel grid used to
	// cap map growth after each merge. Zero disables subsampling.
	VoxelLeafSize float64
}

// DefaultParameters returns ICP defaults with a 0.05m voxel leaf size.
func DefaultParameters() Parameters {
	return Parameters{ICP: icp.DefaultParameters(), VoxelLeafSize: 0.05}
}

// ParametersFromTuning builds Parameters from a TuningConfig: the step-weight
// outlier rejection threshold and uniform/refined weighting choice feed
// icp.Parameters, and the voxel leaf size feeds the subsampling policy.
func ParametersFromTuning(cfg *config.TuningConfig) Parameters {
	var weights icp.CorrespondenceWeight = icp.UniformWeight{}
	if cfg.GetICPRefinedWeighting() && cfg.GetICPOutlierThreshold() > 0 {
		weights = icp.StepWeight{Threshold: cfg.GetICPOutlierThreshold()}
	}
	return Parameters{
		ICP: icp.Parameters{
			CorrespondenceWeights: weights,
			Iterations:            cfg.GetICPIterations(),
		},
		VoxelLeafSize: cfg.GetPointMapVoxelLeafSize(),
	}
}

// New returns an empty Mapper configured with params.
func New(params Parameters) *Mapper {
	return &Mapper{icpParams: params.ICP, leafSize: params.VoxelLeafSize}
}

// Restore rebuilds a Mapper from a previously captured point map and pose
// estimate (e.g. loaded from a snapshot store), the inverse of Points/
// EstimatedPose.
func Restore(params Parameters, points []icp.Point2, poseEst motion.Pose) *Mapper {
	mapPoints := make([]icp.Point2, len(points))
	copy(mapPoints, points)
	return &Mapper{mapPoints: mapPoints, poseEst: poseEst, icpParams: params.ICP, leafSize: params.VoxelLeafSize}
}

// Update registers a new observation against the accumulated map and merges
// the aligned points in. The first observation seeds the map directly.
func (m *Mapper) Update(obs motion.Observation) {
	start := time.Now()
	defer func() { m.stats.update(time.Since(start)) }()

	newPoints := toIcpPoints(obs.ToPoints(motion.Pose{}))

	if m.mapPoints == nil {
		m.mapPoints = newPoints
		return
	}

	result, err := icp.PointToNormal(newPoints, m.mapPoints, icpTransformFromPose(m.poseEst), m.icpParams)
	if err != nil {
		telemetry.Logf("pointmap: registration failed, retaining prior pose and map: %v", err)
		return
	}
	m.poseEst = poseFromIcpTransform(result.Transformation)

	m.mapPoints = append(m.mapPoints, result.TransformedPoints...)
	if m.leafSize > 0 {
		m.mapPoints = VoxelGrid(m.mapPoints, m.leafSize)
	}
}

// EstimatedPose returns the pose estimate produced by the most recent
// registration.
func (m *Mapper) EstimatedPose() motion.Pose { return m.poseEst }

// Points returns the accumulated (and subsampled) point map.
func (m *Mapper) Points() []icp.Point2 {
	out := make([]icp.Point2, len(m.mapPoints))
	copy(out, m.mapPoints)
	return out
}

// Stats returns the mapper's running performance counters.
func (m *Mapper) Stats() *PerfStats { return &m.stats }

func toIcpPoints(pts []motion.Point) []icp.Point2 {
	out := make([]icp.Point2, len(pts))
	for i, p := range pts {
		out[i] = icp.Point2{X: p.X, Y: p.Y}
	}
	return out
}

func icpTransformFromPose(p motion.Pose) icp.Transform {
	return icp.Transform{X: p.X, Y: p.Y, Theta: p.Theta}
}

func poseFromIcpTransform(t icp.Transform) motion.Pose {
	return motion.Pose{X: t.X, Y: t.Y, Theta: t.Theta}
}
