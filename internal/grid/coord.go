package grid

// Axial represents axial coordinates (q, r) for the odd-row offset layout.
type Axial struct {
	Q int
	R int
}

// Offset represents storage coordinates: a column within a row.
type Offset struct {
	Col int
	Row int
}

// Cube represents cube coordinates (x, y, z) with x+y+z=0.
type Cube struct {
	X int
	Y int
	Z int
}

// Directions lists the six axial neighbor offsets. The order is part of the
// contract of ValidNeighbors.
var Directions = [6]Axial{
	{+1, 0}, {-1, 0}, {0, +1}, {0, -1}, {+1, -1}, {-1, +1},
}

// Add returns a+b in axial space.
func (a Axial) Add(b Axial) Axial { return Axial{a.Q + b.Q, a.R + b.R} }

// Cube converts axial to cube.
func (a Axial) Cube() Cube {
	return Cube{X: a.Q, Y: -a.Q - a.R, Z: a.R}
}

// Axial converts cube to axial.
func (c Cube) Axial() Axial { return Axial{Q: c.X, R: c.Z} }

// GridToAxial converts an offset (col, row) position to axial coordinates.
func GridToAxial(col, row int) Axial {
	return Axial{Q: col - floorDiv2(row), R: row}
}

// AxialToGrid is the exact inverse of GridToAxial.
func AxialToGrid(q, r int) Offset {
	return Offset{Col: q + floorDiv2(r), Row: r}
}

// Distance returns the hex distance between two axial coordinates.
func Distance(a, b Axial) int {
	dq := a.Q - b.Q
	dr := a.R - b.R
	return (abs(dq) + abs(dr) + abs(dq+dr)) / 2
}

// floorDiv2 rounds toward negative infinity. Go's / truncates toward zero,
// which would break the round trip for negative odd rows.
func floorDiv2(n int) int {
	return n >> 1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
