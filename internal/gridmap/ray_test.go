package gridmap

import "testing"

func TestRayIteratorHorizontalLine(t *testing.T) {
	it := newRayIterator(0.5, 0.5, 4.5, 0.5, 10, 10, 0)

	var cells []Cell
	for {
		c, _, ok := it.Next()
		if !ok {
			break
		}
		cells = append(cells, c)
	}

	if len(cells) != 5 {
		t.Fatalf("expected 5 cells along a horizontal 4-unit ray, got %d: %+v", len(cells), cells)
	}
	for i, c := range cells {
		if c.Column != i || c.Row != 0 {
			t.Fatalf("unexpected cell at index %d: %+v", i, c)
		}
	}
}

func TestRayIteratorAdditionalStepsExtendsPastEndpoint(t *testing.T) {
	it := newRayIterator(0.5, 0.5, 2.5, 0.5, 10, 10, 2)

	count := 0
	for {
		_, _, ok := it.Next()
		if !ok {
			break
		}
		count++
	}
	// base 3 cells (0,1,2) plus 2 additional steps
	if count != 5 {
		t.Fatalf("expected 5 cells with additionalSteps=2, got %d", count)
	}
}

func TestRayIteratorStopsAtGridBoundary(t *testing.T) {
	it := newRayIterator(0.5, 0.5, 20.5, 0.5, 5, 5, 2)

	count := 0
	for {
		_, _, ok := it.Next()
		if !ok {
			break
		}
		count++
	}
	if count != 5 {
		t.Fatalf("expected iteration to stop at grid edge (5 cells), got %d", count)
	}
}
