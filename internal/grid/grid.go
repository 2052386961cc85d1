package grid

import "sort"

// OutOfBounds is the index reported for coordinates outside the grid.
const OutOfBounds = -1

// TileCoordinates returns the axial coordinates of the tile stored at index
// in a grid with the given column count.
func TileCoordinates(index, cols int) Axial {
	row := index / cols
	col := index % cols
	return GridToAxial(col, row)
}

// InstanceIndex returns the linear index of (q, r), or OutOfBounds and false
// when the cell lies outside [0,cols)x[0,rows).
func InstanceIndex(q, r, cols, rows int) (int, bool) {
	o := AxialToGrid(q, r)
	if o.Col < 0 || o.Row < 0 || o.Col >= cols || o.Row >= rows {
		return OutOfBounds, false
	}
	return o.Row*cols + o.Col, true
}

// ValidNeighbors returns the in-bounds axial neighbors of (q, r) in
// Directions order. When less is non-nil the result is stably re-sorted with it.
func ValidNeighbors(q, r, cols, rows int, less func(a, b Axial) bool) []Axial {
	out := make([]Axial, 0, 6)
	for _, d := range Directions {
		n := Axial{q + d.Q, r + d.R}
		if _, ok := InstanceIndex(n.Q, n.R, cols, rows); ok {
			out = append(out, n)
		}
	}
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

// Ranged is a cell paired with its hex distance from a center.
type Ranged struct {
	Axial
	Distance int
}

// WithinDistance returns every axial cell at hex distance <= d from center,
// unclipped. Cells are produced by dq then dr, ascending.
func WithinDistance(center Axial, d int) []Ranged {
	if d < 0 {
		return nil
	}
	res := make([]Ranged, 0, 1+3*d*(d+1))
	for dq := -d; dq <= d; dq++ {
		for dr := max(-d, -dq-d); dr <= min(d, -dq+d); dr++ {
			ds := -dq - dr
			dist := (abs(dq) + abs(dr) + abs(ds)) / 2
			res = append(res, Ranged{Axial: center.Add(Axial{dq, dr}), Distance: dist})
		}
	}
	return res
}

// Dims bundles the grid extent so callers can resolve coordinates without
// threading rows and cols separately.
type Dims struct {
	Cols int
	Rows int
}

// Len returns the number of tiles.
func (d Dims) Len() int { return d.Cols * d.Rows }

// Contains reports whether index addresses a tile.
func (d Dims) Contains(index int) bool { return index >= 0 && index < d.Len() }

// Axial returns the axial coordinates of index.
func (d Dims) Axial(index int) Axial { return TileCoordinates(index, d.Cols) }

// Index resolves an axial cell to its linear index.
func (d Dims) Index(a Axial) (int, bool) { return InstanceIndex(a.Q, a.R, d.Cols, d.Rows) }

// Neighbors returns the linear indices of the valid neighbors of index.
func (d Dims) Neighbors(index int, less func(a, b Axial) bool) []int {
	a := d.Axial(index)
	ns := ValidNeighbors(a.Q, a.R, d.Cols, d.Rows, less)
	out := make([]int, 0, len(ns))
	for _, n := range ns {
		if i, ok := d.Index(n); ok {
			out = append(out, i)
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
