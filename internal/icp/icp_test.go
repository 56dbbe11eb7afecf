package icp

import (
	"errors"
	"math"
	"testing"
)

func TestPointToNormalRecoversTranslation(t *testing.T) {
	p := []Point2{
		{X: 0, Y: 2},
		{X: 0, Y: 1},
		{X: 0, Y: 0},
		{X: 0, Y: -1},
		{X: 0, Y: -2},
	}
	q := []Point2{
		{X: 1, Y: 2},
		{X: 1, Y: 1},
		{X: 1, Y: 0},
		{X: 1, Y: -1},
		{X: 1, Y: -2},
	}

	r, err := PointToNormal(p, q, Transform{}, Parameters{
		CorrespondenceWeights: UniformWeight{},
		Iterations:            10,
	})
	if err != nil {
		t.Fatalf("expected successful registration, got error: %v", err)
	}

	if math.Abs(r.Transformation.X-1.0) > 1e-3 {
		t.Fatalf("expected X translation ~1.0, got %v", r.Transformation.X)
	}
	if math.Abs(r.Transformation.Y) > 1e-3 {
		t.Fatalf("expected Y translation ~0.0, got %v", r.Transformation.Y)
	}
	if math.Abs(r.Transformation.Theta) > 1e-3 {
		t.Fatalf("expected Theta ~0.0, got %v", r.Transformation.Theta)
	}
}

func TestComputeNormalsEndpointsAreZero(t *testing.T) {
	points := []Point2{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
	normals := computeNormals(points)
	if normals[0] != (Point2{}) || normals[len(normals)-1] != (Point2{}) {
		t.Fatalf("expected zero normals at endpoints, got %+v", normals)
	}
	for i := 1; i < len(normals)-1; i++ {
		n := normals[i]
		mag := math.Hypot(n.X, n.Y)
		if math.Abs(mag-1.0) > 1e-9 {
			t.Fatalf("expected unit normal at index %d, got magnitude %v", i, mag)
		}
	}
}

func TestStepWeightRejectsOutliers(t *testing.T) {
	w := StepWeight{Threshold: 0.5}
	if w.Weight(0.1) != 1.0 {
		t.Fatalf("expected weight 1.0 for small error")
	}
	if w.Weight(10.0) != 0.0 {
		t.Fatalf("expected weight 0.0 for large error")
	}
}

func TestPointToNormalEmptyCloudShortCircuits(t *testing.T) {
	initial := Transform{X: 1, Y: 2, Theta: 0.5}

	r, err := PointToNormal(nil, []Point2{{0, 0}}, initial, DefaultParameters())
	if !errors.Is(err, ErrEmptyCloud) {
		t.Fatalf("expected ErrEmptyCloud for empty points, got %v", err)
	}
	if r.Transformation != initial {
		t.Fatalf("expected initial pose returned unchanged, got %+v", r.Transformation)
	}
	if len(r.TransformedPoints) != 0 {
		t.Fatalf("expected empty transformed points, got %+v", r.TransformedPoints)
	}

	r, err = PointToNormal([]Point2{{0, 0}}, nil, initial, DefaultParameters())
	if !errors.Is(err, ErrEmptyCloud) {
		t.Fatalf("expected ErrEmptyCloud for empty reference cloud, got %v", err)
	}
	if len(r.TransformedPoints) != 0 {
		t.Fatalf("expected empty transformed points, got %+v", r.TransformedPoints)
	}
}

func TestFindCorrespondencesEmptyInputs(t *testing.T) {
	if c := findCorrespondences(nil, []Point2{{0, 0}}); len(c) != 0 {
		t.Fatalf("expected no correspondences for empty p")
	}
	if c := findCorrespondences([]Point2{{0, 0}}, nil); len(c) != 0 {
		t.Fatalf("expected no correspondences for empty q")
	}
}
