package interaction

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/gravitas-games/irongrid/internal/grid"
	"github.com/gravitas-games/irongrid/internal/tilebatch"
)

// ErrStartOutOfRange is returned when a colonizer starts off the grid.
var ErrStartOutOfRange = errors.New("colonizer start tile out of range")

// Claim records which colonizer owns a tile and the color it was given.
type Claim struct {
	Colonizer int
	Color     tilebatch.Color
}

// DeriveFunc colors a newly claimed tile from its parent's color.
type DeriveFunc func(parent tilebatch.Color, rng *rand.Rand) tilebatch.Color

// SameColor keeps the parent's color.
func SameColor(parent tilebatch.Color, _ *rand.Rand) tilebatch.Color { return parent }

// ColonizerConfig describes one breadth-first expansion.
type ColonizerConfig struct {
	Start    int
	Color    tilebatch.Color
	Interval time.Duration
	Derive   DeriveFunc
	// Less, when set, orders candidate neighbors instead of shuffling them.
	Less      func(a, b grid.Axial) bool
	BranchMin int
	BranchMax int
}

// Colonizer is one expansion process with its own frontier and visited set.
type Colonizer struct {
	id       int
	cfg      ColonizerConfig
	frontier []int
	visited  map[int]struct{}
}

// ID identifies the colonizer within its Colonization.
func (c *Colonizer) ID() int { return c.id }

// Color is the colonizer's start color.
func (c *Colonizer) Color() tilebatch.Color { return c.cfg.Color }

// Interval is how often the colonizer should tick.
func (c *Colonizer) Interval() time.Duration { return c.cfg.Interval }

// Frontier is the number of tiles waiting to expand.
func (c *Colonizer) Frontier() int { return len(c.frontier) }

// Claimed is the number of tiles the colonizer currently holds.
func (c *Colonizer) Claimed() int { return len(c.visited) }

// Starved reports whether the colonizer has nothing left to expand.
func (c *Colonizer) Starved() bool { return len(c.frontier) == 0 }

// Colonization is the shared claim map plus every colonizer writing into it.
// The first claim on a tile wins. Not safe for concurrent use.
type Colonization struct {
	batch      tilebatch.Batch
	dims       grid.Dims
	rng        *rand.Rand
	claims     map[int]Claim
	colonizers []*Colonizer
}

// NewColonization returns an empty colonization over the batch.
func NewColonization(b tilebatch.Batch, d grid.Dims, rng *rand.Rand) *Colonization {
	return &Colonization{
		batch:  b,
		dims:   d,
		rng:    rng,
		claims: make(map[int]Claim),
	}
}

// Add registers a colonizer and claims its start tile. If another colonizer
// already holds the start tile the new one begins starved.
func (c *Colonization) Add(cfg ColonizerConfig) (*Colonizer, error) {
	if !c.dims.Contains(cfg.Start) {
		return nil, fmt.Errorf("%w: %d", ErrStartOutOfRange, cfg.Start)
	}
	if cfg.Derive == nil {
		cfg.Derive = SameColor
	}
	if cfg.BranchMin < 1 {
		cfg.BranchMin = 2
	}
	if cfg.BranchMax < cfg.BranchMin {
		cfg.BranchMax = cfg.BranchMin
	}

	col := &Colonizer{
		id:      len(c.colonizers),
		cfg:     cfg,
		visited: make(map[int]struct{}),
	}
	c.colonizers = append(c.colonizers, col)

	if _, taken := c.claims[cfg.Start]; !taken {
		c.claim(col, cfg.Start, cfg.Color)
	}
	return col, nil
}

func (c *Colonization) claim(col *Colonizer, index int, color tilebatch.Color) {
	c.claims[index] = Claim{Colonizer: col.id, Color: color}
	col.visited[index] = struct{}{}
	col.frontier = append(col.frontier, index)
	c.batch.SetColor(index, color)
}

// Tick advances colonizer id by one expansion step and returns the tiles it
// claimed. A starved or unknown colonizer is a no-op.
func (c *Colonization) Tick(id int) []int {
	if id < 0 || id >= len(c.colonizers) {
		return nil
	}
	col := c.colonizers[id]
	if len(col.frontier) == 0 {
		return nil
	}
	head := col.frontier[0]
	col.frontier = col.frontier[1:]

	parent, ok := c.claims[head]
	if !ok || parent.Colonizer != col.id {
		// Lost to an enclave fill since it was queued.
		return nil
	}

	neighbors := c.dims.Neighbors(head, col.cfg.Less)
	if col.cfg.Less == nil {
		c.rng.Shuffle(len(neighbors), func(i, j int) {
			neighbors[i], neighbors[j] = neighbors[j], neighbors[i]
		})
	}
	branch := col.cfg.BranchMin + c.rng.Intn(col.cfg.BranchMax-col.cfg.BranchMin+1)

	var claimed []int
	for _, n := range neighbors {
		if _, taken := c.claims[n]; taken {
			continue
		}
		if len(claimed) == branch {
			// Come back to this tile once the rest of the frontier has had a turn.
			col.frontier = append(col.frontier, head)
			break
		}
		c.claim(col, n, col.cfg.Derive(parent.Color, c.rng))
		claimed = append(claimed, n)
	}
	return claimed
}

// Colonizers returns every registered colonizer in ID order.
func (c *Colonization) Colonizers() []*Colonizer { return c.colonizers }

// Claim returns the claim on index, if any.
func (c *Colonization) Claim(index int) (Claim, bool) {
	cl, ok := c.claims[index]
	return cl, ok
}

// Claims returns the claim map. Callers must not modify it.
func (c *Colonization) Claims() map[int]Claim { return c.claims }

// Len is the number of claimed tiles.
func (c *Colonization) Len() int { return len(c.claims) }

func (c *Colonization) claimedIndices() []int {
	out := make([]int, 0, len(c.claims))
	for i := range c.claims {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// FillEnclaves flips every claimed tile whose valid neighbors are all claimed
// with one single color different from its own. Decisions are taken against
// the claims as they stood before the pass. Returns the flipped indices.
func (c *Colonization) FillEnclaves() []int {
	type flip struct {
		index int
		to    Claim
	}
	var flips []flip
	for _, index := range c.claimedIndices() {
		own := c.claims[index]
		ns := c.dims.Neighbors(index, nil)
		if len(ns) == 0 {
			continue
		}
		surround, uniform := c.claims[ns[0]]
		for _, n := range ns[1:] {
			if !uniform {
				break
			}
			nc, ok := c.claims[n]
			uniform = ok && nc.Color == surround.Color
		}
		if uniform && surround.Color != own.Color {
			flips = append(flips, flip{index: index, to: surround})
		}
	}

	out := make([]int, 0, len(flips))
	for _, f := range flips {
		old := c.claims[f.index]
		delete(c.colonizers[old.Colonizer].visited, f.index)
		c.colonizers[f.to.Colonizer].visited[f.index] = struct{}{}
		c.claims[f.index] = f.to
		c.batch.SetColor(f.index, f.to.Color)
		out = append(out, f.index)
	}
	return out
}

// LowlandFirst orders neighbors by ascending tile height in b.
func LowlandFirst(b tilebatch.Batch, d grid.Dims) func(x, y grid.Axial) bool {
	height := func(a grid.Axial) float64 {
		i, _ := d.Index(a)
		return b.Transform(i).Scale.Y
	}
	return func(x, y grid.Axial) bool { return height(x) < height(y) }
}
