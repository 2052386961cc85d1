package interaction

import (
	"math"
	"time"

	"github.com/gravitas-games/irongrid/internal/grid"
	"github.com/gravitas-games/irongrid/internal/tilebatch"
)

// Leveled reports the new height of an edited tile.
type Leveled struct {
	Index  int
	Height float64
}

// Level lowers every in-bounds tile within hex distance of index. A tile at
// distance k loses maxReduction*(1-k/distance) of height, never going below
// minHeight. Only transforms are written.
func Level(b tilebatch.Batch, d grid.Dims, index, distance int, maxReduction, minHeight float64) []Leveled {
	if !d.Contains(index) || distance < 0 {
		return nil
	}
	center := d.Axial(index)
	cells := grid.WithinDistance(center, distance)
	out := make([]Leveled, 0, len(cells))
	for _, c := range cells {
		n, ok := d.Index(c.Axial)
		if !ok {
			continue
		}
		reduction := maxReduction
		if distance > 0 {
			reduction = maxReduction * (1 - float64(c.Distance)/float64(distance))
		}
		t := b.Transform(n)
		t.Scale.Y = math.Max(minHeight, t.Scale.Y-reduction)
		t.Position.Y = t.Scale.Y / 2
		b.SetTransform(n, t)
		out = append(out, Leveled{Index: n, Height: t.Scale.Y})
	}
	return out
}

// Leveler applies Level at most once per Interval while a drag is held.
type Leveler struct {
	Distance     int
	MaxReduction float64
	MinHeight    float64
	Interval     time.Duration

	last time.Time
}

// Apply levels around index unless the previous application was less than
// Interval ago. The bool reports whether anything ran.
func (l *Leveler) Apply(b tilebatch.Batch, d grid.Dims, index int, now time.Time) ([]Leveled, bool) {
	if !d.Contains(index) {
		return nil, false
	}
	if !l.last.IsZero() && now.Sub(l.last) <= l.Interval {
		return nil, false
	}
	l.last = now
	return Level(b, d, index, l.Distance, l.MaxReduction, l.MinHeight), true
}

// Release ends the current drag so the next Apply runs immediately.
func (l *Leveler) Release() { l.last = time.Time{} }
