package gridmap

import (
	"math"
	"testing"

	"github.com/banshee-data/slamcore/internal/motion"
)

func TestNewGridStartsAtPrior(t *testing.T) {
	g := New(motion.Point{X: 0, Y: 0}, 2, 2, 1)
	cols, rows := g.Size()
	if cols != 2 || rows != 2 {
		t.Fatalf("expected 2x2 grid, got %dx%d", cols, rows)
	}
	p := g.Probability(Cell{Column: 0, Row: 0}).Value()
	if math.Abs(p-0.5) > 1e-9 {
		t.Fatalf("expected prior probability 0.5, got %v", p)
	}
}

func TestWorldToGridAndIsValid(t *testing.T) {
	g := New(motion.Point{X: -1, Y: -1}, 2, 2, 1)
	x, y := g.WorldToGrid(motion.Point{X: 0, Y: 0})
	if math.Abs(x-1) > 1e-9 || math.Abs(y-1) > 1e-9 {
		t.Fatalf("expected grid coords (1,1), got (%v,%v)", x, y)
	}
	if !g.IsValid(x, y) {
		t.Fatalf("expected (1,1) to be within bounds")
	}
	if g.IsValid(-1, 0) {
		t.Fatalf("expected negative coordinate to be invalid")
	}
	if g.IsValid(100, 100) {
		t.Fatalf("expected out-of-range coordinate to be invalid")
	}
}

func TestIntegrateHitIncreasesOccupancy(t *testing.T) {
	g := New(motion.Point{X: -5, Y: -5}, 10, 10, 1)
	pose := motion.Pose{X: 0, Y: 0, Theta: 0}
	obs := motion.Observation{Measurements: []motion.Measurement{
		{Angle: 0, Distance: 3, Valid: true},
	}}

	before := g.Probability(Cell{Column: 8, Row: 5}).Value()
	g.Integrate(obs, pose)
	after := g.Probability(Cell{Column: 8, Row: 5}).Value()

	if after <= before {
		t.Fatalf("expected hit cell occupancy to increase: before=%v after=%v", before, after)
	}
}

func TestIntegrateMissMarksFreeSpace(t *testing.T) {
	g := New(motion.Point{X: -5, Y: -5}, 10, 10, 1)
	pose := motion.Pose{X: 0, Y: 0, Theta: 0}
	obs := motion.Observation{Measurements: []motion.Measurement{
		{Angle: 0, Distance: 3, Valid: false},
	}}

	before := g.Probability(Cell{Column: 6, Row: 5}).Value()
	g.Integrate(obs, pose)
	after := g.Probability(Cell{Column: 6, Row: 5}).Value()

	if after >= before {
		t.Fatalf("expected near cell to be marked more free on a miss: before=%v after=%v", before, after)
	}
}

func TestProbabilityOfOutsideGridContributesUnity(t *testing.T) {
	g := New(motion.Point{X: -1, Y: -1}, 2, 2, 1)
	pose := motion.Pose{X: 0, Y: 0, Theta: 0}
	obs := motion.Observation{Measurements: []motion.Measurement{
		{Angle: 0, Distance: 100, Valid: true},
	}}
	p := g.ProbabilityOf(obs, pose)
	if math.Abs(p.Value()) > 1e-9 {
		t.Fatalf("expected log-probability 0 (product of 1.0) for out-of-grid measurement, got %v", p.Value())
	}
}

func TestConfigBuildFillsDefaults(t *testing.T) {
	g := Config{}.Build()
	cols, rows := g.Size()
	if cols == 0 || rows == 0 {
		t.Fatalf("expected non-zero default grid size")
	}
}
