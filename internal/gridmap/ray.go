package gridmap

import "math"

// rayIterator walks a supercover DDA line from a start to an end point given
// in fractional grid coordinates, yielding the cell and its center for each
// visited grid square. additionalSteps extends the walk past the endpoint,
// giving the inverse sensor model a chance to mark a few cells of free space
// beyond a miss.
type rayIterator struct {
	cols, rows int

	delta     motion2
	increment increment2
	err       float64
	x, y      int
	remaining int
}

type motion2 struct{ X, Y float64 }
type increment2 struct{ X, Y int }

// RayPoint is the fractional-coordinate center of a visited grid cell.
type RayPoint struct{ X, Y float64 }

func newRayIterator(x0, y0, x1, y1 float64, cols, rows, additionalSteps int) *rayIterator {
	delta := motion2{X: math.Abs(x1 - x0), Y: math.Abs(y1 - y0)}

	x := int(math.Floor(x0))
	y := int(math.Floor(y0))

	n := 1 + additionalSteps
	var xInc, yInc int
	var errVal float64

	switch {
	case delta.X == 0:
		xInc = 0
		errVal = math.Inf(1)
	case x1 > x0:
		xInc = 1
		n += int(math.Floor(x1)) - x
		errVal = (math.Floor(x0) + 1.0 - x0) * delta.Y
	default:
		xInc = -1
		n += x - int(math.Floor(x1))
		errVal = (x0 - math.Floor(x0)) * delta.Y
	}

	switch {
	case delta.Y == 0:
		yInc = 0
		errVal -= math.Inf(1)
	case y1 > y0:
		yInc = 1
		n += int(math.Floor(y1)) - y
		errVal -= (math.Floor(y0) + 1.0 - y0) * delta.X
	default:
		yInc = -1
		n += y - int(math.Floor(y1))
		errVal -= (y0 - math.Floor(y0)) * delta.X
	}

	return &rayIterator{
		cols: cols, rows: rows,
		delta:     delta,
		increment: increment2{X: xInc, Y: yInc},
		err:       errVal,
		x:         x, y: y,
		remaining: n,
	}
}

// Next returns the next (cell, center) pair along the ray, or ok=false once
// the walk is exhausted or the ray has left the grid's bounds.
func (it *rayIterator) Next() (Cell, RayPoint, bool) {
	inBounds := it.x >= 0 && it.x < it.cols && it.y >= 0 && it.y < it.rows
	if it.remaining <= 0 || !inBounds {
		return Cell{}, RayPoint{}, false
	}

	cell := Cell{Column: it.x, Row: it.y}
	center := RayPoint{X: float64(it.x) + 0.5, Y: float64(it.y) + 0.5}

	if it.err > 0 {
		it.y += it.increment.Y
		it.err -= it.delta.X
	} else {
		it.x += it.increment.X
		it.err += it.delta.Y
	}
	it.remaining--

	return cell, center, true
}
