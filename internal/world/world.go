// Package world ties the generated map to the interaction layer and the
// timers that drive it. A World is owned by exactly one goroutine.
package world

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/gravitas-games/irongrid/internal/config"
	"github.com/gravitas-games/irongrid/internal/gamemap"
	"github.com/gravitas-games/irongrid/internal/interaction"
	"github.com/gravitas-games/irongrid/internal/picking"
	"github.com/gravitas-games/irongrid/internal/scheduler"
	"github.com/gravitas-games/irongrid/internal/tilebatch"
)

// Environment is forwarded to clients for water, sky and cloud rendering.
type Environment struct {
	WaterHeight      float64 `json:"water_height"`
	SunRotationSpeed float64 `json:"sun_rotation_speed"`
	WeatherMode      string  `json:"weather_mode"`
	CloudGroups      int     `json:"cloud_groups"`
	CloudsPerGroup   int     `json:"clouds_per_group"`
	MaxHeight        float64 `json:"max_height"`
}

// Snapshot is the full render state of the current generation.
type Snapshot struct {
	Generation  uint64
	Terrain     config.Terrain
	Origin      tilebatch.Vec3
	Matrices    []float32
	Colors      []float32
	Environment Environment
	Borders     []interaction.Segment
	Picking     picking.Buffer
}

// TileUpdate is one edited tile from a Flush.
type TileUpdate struct {
	Index     int             `json:"index"`
	PositionY float64         `json:"position_y"`
	ScaleY    float64         `json:"scale_y"`
	Color     tilebatch.Color `json:"color"`
}

// World holds the terrain, the interaction state layered on it and the
// scheduler that animates colonization and border passes.
type World struct {
	interact   config.InteractionConfig
	terrain    *gamemap.Map
	sched      *scheduler.Scheduler
	rng        *rand.Rand
	colony     *interaction.Colonization
	selection  *interaction.Selection
	leveler    *interaction.Leveler
	generation uint64

	borders        []interaction.Segment
	bordersPending bool
}

// New builds the first map and starts the configured colonizers.
func New(terrain config.Terrain, interact config.InteractionConfig, rng *rand.Rand) (*World, error) {
	m, err := gamemap.Build(terrain)
	if err != nil {
		return nil, fmt.Errorf("failed to build world: %w", err)
	}
	w := &World{
		interact: interact,
		sched:    scheduler.New(),
		rng:      rng,
		selection: interaction.NewSelection(interaction.Highlight{
			Selected: interact.SelectColor,
			Neighbor: interact.NeighborColor,
		}),
		leveler: &interaction.Leveler{
			Distance:     interact.LevelDistance,
			MaxReduction: interact.MaxReduction,
			MinHeight:    interact.MinHeight,
			Interval:     interact.LevelInterval,
		},
	}
	w.install(m)
	return w, nil
}

// Regenerate replaces the terrain. Invalid configurations are rejected before
// anything changes. On success every timer is cancelled, colonization and
// highlights are dropped, and the generation advances.
func (w *World) Regenerate(cfg config.Terrain) error {
	m, err := gamemap.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to regenerate world: %w", err)
	}
	w.sched.StopAll()
	w.selection.Reset()
	w.leveler.Release()
	w.install(m)
	log.Printf("World regenerated (generation %d)", w.generation)
	return nil
}

// install swaps in m and rebuilds the state derived from it.
func (w *World) install(m *gamemap.Map) {
	w.terrain = m
	w.generation++
	w.colony = interaction.NewColonization(m.Batch(), m.Dims(), w.rng)
	w.borders = nil
	w.bordersPending = false

	w.sched.Every("borders", w.interact.BorderInterval, w.refreshBorders)
	for _, cc := range w.interact.Colonizers {
		if _, err := w.Colonize(cc); err != nil {
			log.Printf("Skipping colonizer at %d: %v", cc.Start, err)
		}
	}
}

// Generation identifies the current map. It changes on every regeneration.
func (w *World) Generation() uint64 { return w.generation }

// Current reports whether a pick made against generation still applies.
func (w *World) Current(generation uint64) bool { return generation == w.generation }

// Terrain returns the configuration of the current map.
func (w *World) Terrain() config.Terrain { return w.terrain.Config() }

// Map returns the current map.
func (w *World) Map() *gamemap.Map { return w.terrain }

// Colonization returns the claim state of the current map.
func (w *World) Colonization() *interaction.Colonization { return w.colony }

// Select highlights the picked tile and its neighbors.
func (w *World) Select(index int) []int {
	return w.selection.Select(w.terrain.Batch(), w.terrain.Dims(), index)
}

// Hover returns the cursor anchor above the picked tile.
func (w *World) Hover(index int) (tilebatch.Vec3, bool) {
	return interaction.Cursor(w.terrain.Batch(), index, w.interact.CursorLift)
}

// Level lowers the terrain around the picked tile, at most once per level
// interval. Returns the edited indices.
func (w *World) Level(now time.Time, index int) []int {
	leveled, ok := w.leveler.Apply(w.terrain.Batch(), w.terrain.Dims(), index, now)
	if !ok {
		return nil
	}
	out := make([]int, len(leveled))
	for i, l := range leveled {
		w.terrain.SetHeight(l.Index, l.Height)
		out[i] = l.Index
	}
	return out
}

// Release ends a leveling drag.
func (w *World) Release() { w.leveler.Release() }

// Colonize starts a colonizer and schedules its expansion. A zero interval
// uses the configured colonize interval. Returns the colonizer ID.
func (w *World) Colonize(cc config.ColonizerConfig) (int, error) {
	interval := cc.Interval
	if interval <= 0 {
		interval = w.interact.ColonizeInterval
	}
	colCfg := interaction.ColonizerConfig{
		Start:     cc.Start,
		Color:     cc.Color,
		Interval:  interval,
		Derive:    interaction.SameColor,
		BranchMin: w.interact.BranchMin,
		BranchMax: w.interact.BranchMax,
	}
	if cc.Bias == config.BiasLowland {
		colCfg.Less = interaction.LowlandFirst(w.terrain.Batch(), w.terrain.Dims())
	}

	col, err := w.colony.Add(colCfg)
	if err != nil {
		return 0, err
	}
	if col.Starved() {
		return col.ID(), nil
	}

	var timer *scheduler.Timer
	timer = w.sched.Every(fmt.Sprintf("colonizer-%d", col.ID()), interval, func() {
		w.colony.Tick(col.ID())
		if col.Starved() {
			w.sched.Stop(timer)
		}
	})
	return col.ID(), nil
}

// Advance runs every timer that comes due within dt.
func (w *World) Advance(dt time.Duration) int { return w.sched.Advance(dt) }

// refreshBorders fills enclaves, then traces the borders of the result.
// Borders are only marked pending when they changed.
func (w *World) refreshBorders() {
	w.colony.FillEnclaves()
	next := w.colony.Borders(w.interact.BorderLift)
	if sameSegments(w.borders, next) {
		return
	}
	w.borders = next
	w.bordersPending = true
}

func sameSegments(a, b []interaction.Segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Borders returns the most recent border segments.
func (w *World) Borders() []interaction.Segment { return w.borders }

// TakeBorders returns the border segments if they changed since the
// previous call.
func (w *World) TakeBorders() ([]interaction.Segment, bool) {
	if !w.bordersPending {
		return nil, false
	}
	w.bordersPending = false
	return w.borders, true
}

// Snapshot captures the full render state.
func (w *World) Snapshot() Snapshot {
	cfg := w.terrain.Config()
	b := w.terrain.Batch()
	return Snapshot{
		Generation: w.generation,
		Terrain:    cfg,
		Origin:     w.terrain.Origin(),
		Matrices:   b.Matrices(),
		Colors:     b.Colors(),
		Environment: Environment{
			WaterHeight:      cfg.WaterHeight,
			SunRotationSpeed: cfg.SunRotationSpeed,
			WeatherMode:      cfg.WeatherMode,
			CloudGroups:      cfg.CloudGroups,
			CloudsPerGroup:   cfg.CloudsPerGroup,
			MaxHeight:        w.terrain.MaxHeight(),
		},
		Borders: w.borders,
		Picking: picking.IDTexture(w.terrain.Dims().Len()),
	}
}

// PickColor resolves an ID color sampled from the picking render.
func (w *World) PickColor(c tilebatch.Color) int {
	return picking.Decode(c, w.terrain.Dims().Len())
}

// PickPixel resolves the screen pixel (x, y) of a picking render readback.
func (w *World) PickPixel(buf picking.Buffer, x, y int) int {
	return buf.Pick(x, y, w.terrain.Dims().Len())
}

// Flush returns the tiles edited since the previous flush.
func (w *World) Flush() []TileUpdate {
	b := w.terrain.Batch()
	delta := b.Flush()
	if delta.Empty() {
		return nil
	}
	out := make([]TileUpdate, len(delta.Indices))
	for i, index := range delta.Indices {
		t := b.Transform(index)
		out[i] = TileUpdate{
			Index:     index,
			PositionY: t.Position.Y,
			ScaleY:    t.Scale.Y,
			Color:     b.Color(index),
		}
	}
	return out
}

// Export serializes the map with current ownership folded into each hex.
func (w *World) Export(now time.Time) (string, []byte, error) {
	for i := range w.terrain.Hexes() {
		if cl, ok := w.colony.Claim(i); ok {
			owner := cl.Color
			w.terrain.SetOwner(i, &owner)
		} else {
			w.terrain.SetOwner(i, nil)
		}
	}
	return w.terrain.Export(now)
}
