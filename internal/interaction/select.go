// Package interaction applies picked-tile operations to the tile batch:
// selection, leveling, colonization, border tracing and enclave fill.
//
// Every operation accepts an index that is either a valid instance index or
// a miss (any index outside the grid); misses are no-ops.
package interaction

import (
	"github.com/gravitas-games/irongrid/internal/grid"
	"github.com/gravitas-games/irongrid/internal/tilebatch"
)

// Highlight is the palette used for a selection.
type Highlight struct {
	Selected tilebatch.Color
	Neighbor tilebatch.Color
}

type painted struct {
	base  tilebatch.Color
	wrote tilebatch.Color
}

// Selection highlights one tile and its neighbors at a time. Selecting again
// restores the previous highlight first, unless something else has since
// recolored those tiles.
type Selection struct {
	style   Highlight
	painted map[int]painted
}

// NewSelection returns an empty selection using style.
func NewSelection(style Highlight) *Selection {
	return &Selection{style: style, painted: make(map[int]painted)}
}

// Select highlights index and its valid neighbors and returns the painted
// indices, selected tile first. A miss leaves the batch untouched.
func (s *Selection) Select(b tilebatch.Batch, d grid.Dims, index int) []int {
	if !d.Contains(index) {
		return nil
	}
	s.Clear(b)

	out := []int{index}
	s.paint(b, index, s.style.Selected)
	for _, n := range d.Neighbors(index, nil) {
		s.paint(b, n, s.style.Neighbor)
		out = append(out, n)
	}
	return out
}

func (s *Selection) paint(b tilebatch.Batch, index int, c tilebatch.Color) {
	base := b.Color(index)
	if prev, ok := s.painted[index]; ok {
		base = prev.base
	}
	s.painted[index] = painted{base: base, wrote: c}
	b.SetColor(index, c)
}

// Clear restores the colors under the current highlight.
func (s *Selection) Clear(b tilebatch.Batch) {
	for index, p := range s.painted {
		if b.Color(index) == p.wrote {
			b.SetColor(index, p.base)
		}
	}
	s.painted = make(map[int]painted)
}

// Reset forgets the highlight without touching the batch. Used after the
// batch has been replaced.
func (s *Selection) Reset() {
	s.painted = make(map[int]painted)
}

// Cursor returns the anchor point for a hover cursor floating lift units
// above the top of the tile at index.
func Cursor(b tilebatch.Batch, index int, lift float64) (tilebatch.Vec3, bool) {
	if index < 0 || index >= b.Len() {
		return tilebatch.Vec3{}, false
	}
	t := b.Transform(index)
	return tilebatch.Vec3{X: t.Position.X, Y: t.Top() + lift, Z: t.Position.Z}, true
}
