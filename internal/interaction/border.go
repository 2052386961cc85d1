package interaction

import (
	"math"
	"sort"

	"github.com/gravitas-games/irongrid/internal/grid"
	"github.com/gravitas-games/irongrid/internal/tilebatch"
)

// Segment is a border line drawn between the centers of two adjacent claimed
// tiles of different colors, in map-local coordinates.
type Segment struct {
	A    int            `json:"a"`
	B    int            `json:"b"`
	From tilebatch.Vec3 `json:"from"`
	To   tilebatch.Vec3 `json:"to"`
}

// Borders returns one segment per adjacent pair of claimed tiles whose colors
// differ. Segments float lift units above the taller of the two tiles and
// are ordered by (A, B) with A < B.
func Borders(claims map[int]Claim, b tilebatch.Batch, d grid.Dims, lift float64) []Segment {
	indices := make([]int, 0, len(claims))
	for i := range claims {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	var out []Segment
	for _, a := range indices {
		ca := claims[a]
		ns := d.Neighbors(a, nil)
		sort.Ints(ns)
		for _, n := range ns {
			if n <= a {
				continue
			}
			cb, ok := claims[n]
			if !ok || cb.Color == ca.Color {
				continue
			}
			ta, tb := b.Transform(a), b.Transform(n)
			y := math.Max(ta.Top(), tb.Top()) + lift
			out = append(out, Segment{
				A:    a,
				B:    n,
				From: tilebatch.Vec3{X: ta.Position.X, Y: y, Z: ta.Position.Z},
				To:   tilebatch.Vec3{X: tb.Position.X, Y: y, Z: tb.Position.Z},
			})
		}
	}
	return out
}

// Borders traces the current claim map.
func (c *Colonization) Borders(lift float64) []Segment {
	return Borders(c.claims, c.batch, c.dims, lift)
}
