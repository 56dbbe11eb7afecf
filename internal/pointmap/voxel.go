package pointmap

import (
	"math"

	"github.com/banshee-data/slamcore/internal/icp"
)

// VoxelGrid performs 2D voxel grid downsampling: each occupied cell retains
// a single representative point, the one closest to the cell's centroid.
// This reduces point density while preserving spatial structure better than
// uniform stride decimation, the approach a fixed "keep every Nth point"
// subsampling would take.
//
// leafSize is the side length, in meters, of each square voxel.
func VoxelGrid(points []icp.Point2, leafSize float64) []icp.Point2 {
	if len(points) == 0 || leafSize <= 0 {
		return points
	}

	invLeaf := 1.0 / leafSize

	type voxelAccum struct {
		sumX, sumY float64
		count      int
		bestIdx    int
		bestDist2  float64
	}

	voxels := make(map[[2]int64]*voxelAccum, len(points)/4)

	key := func(p icp.Point2) [2]int64 {
		return [2]int64{
			int64(math.Floor(p.X * invLeaf)),
			int64(math.Floor(p.Y * invLeaf)),
		}
	}

	for i, p := range points {
		k := key(p)
		acc, exists := voxels[k]
		if !exists {
			acc = &voxelAccum{bestIdx: i, bestDist2: math.MaxFloat64}
			voxels[k] = acc
		}
		acc.sumX += p.X
		acc.sumY += p.Y
		acc.count++
	}

	for i, p := range points {
		acc := voxels[key(p)]
		cx := acc.sumX / float64(acc.count)
		cy := acc.sumY / float64(acc.count)
		dx := p.X - cx
		dy := p.Y - cy
		d2 := dx*dx + dy*dy
		if d2 < acc.bestDist2 {
			acc.bestDist2 = d2
			acc.bestIdx = i
		}
	}

	result := make([]icp.Point2, 0, len(voxels))
	for _, acc := range voxels {
		result = append(result, points[acc.bestIdx])
	}
	return result
}
