package gamemap

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gravitas-games/irongrid/internal/config"
	"github.com/gravitas-games/irongrid/internal/grid"
	"github.com/gravitas-games/irongrid/internal/heightfield"
	"github.com/gravitas-games/irongrid/internal/tilebatch"
)

// Map is the generated terrain: one batch instance and one Hex per tile
type Map struct {
	cfg       config.Terrain
	field     *heightfield.Field
	dims      grid.Dims
	batch     *tilebatch.Instanced
	hexes     []Hex
	origin    tilebatch.Vec3
	maxHeight float64
}

// Build validates cfg and generates a complete map. An empty seed is
// replaced with a random one, recorded in the map's configuration.
func Build(cfg config.Terrain) (*Map, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == "" {
		cfg.Seed = heightfield.RandomSeed()
	}

	m := &Map{
		cfg:   cfg,
		field: heightfield.New(cfg.Seed),
		dims:  grid.Dims{Cols: cfg.Cols, Rows: cfg.Rows},
	}
	m.generate()

	log.Printf("Generated %dx%d map (%d tiles, seed %q, max height %.2f)",
		cfg.Cols, cfg.Rows, m.dims.Len(), cfg.Seed, m.maxHeight)
	return m, nil
}

// generate fills the batch and hexes row-major
func (m *Map) generate() {
	cfg := m.cfg
	n := m.dims.Len()
	m.batch = tilebatch.NewInstanced(n)
	m.hexes = make([]Hex, n)
	m.maxHeight = 0

	params := heightfield.Params{
		Scale:       cfg.Scale,
		Frequency:   cfg.Frequency,
		Amplitude:   cfg.Amplitude,
		Persistence: cfg.Persistence,
		Lacunarity:  cfg.Lacunarity,
		Octaves:     cfg.Octaves,
	}
	hexWidth := cfg.HexWidth()
	spacing := cfg.VerticalSpacing()

	xs := make([]float64, n)
	zs := make([]float64, n)
	for index := range xs {
		row, col := index/cfg.Cols, index%cfg.Cols
		xs[index], zs[index] = tileCenter(row, col, hexWidth, spacing)
	}
	heights := make([]float64, n)
	m.field.Sample(xs, zs, heights, params)

	for index, height := range heights {
		row, col := index/cfg.Cols, index%cfg.Cols
		if height > m.maxHeight {
			m.maxHeight = height
		}

		m.batch.SetTransform(index, tilebatch.Column(xs[index], zs[index], height))
		m.batch.SetColor(index, heightColor(height))

		a := grid.GridToAxial(col, row)
		m.hexes[index] = Hex{
			Index:      index,
			Properties: Properties{Terrain: classify(height, cfg.WaterHeight, cfg.Scale)},
			OnMap:      Placement{Row: row, Col: col, Q: a.Q, R: a.R, Height: height},
		}
	}

	// A fresh map is uploaded whole through snapshots, never as a delta.
	m.batch.Flush()

	m.origin = tilebatch.Vec3{
		X: -cfg.GridWidth()/2 + hexWidth/2,
		Y: 0,
		Z: -cfg.GridHeight()/2 + cfg.HexRadius,
	}
}

func tileCenter(row, col int, hexWidth, spacing float64) (x, z float64) {
	x = float64(col) * hexWidth
	if row%2 == 1 {
		x += hexWidth / 2
	}
	z = float64(row) * spacing
	return x, z
}

// Update replaces the configuration wholesale and regenerates every tile.
// On error the current map is left untouched.
func (m *Map) Update(cfg config.Terrain) error {
	next, err := Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to regenerate map: %w", err)
	}
	*m = *next
	return nil
}

// Config returns the configuration the map was generated from
func (m *Map) Config() config.Terrain { return m.cfg }

// Dims returns the grid extent
func (m *Map) Dims() grid.Dims { return m.dims }

// Batch returns the instanced tile batch
func (m *Map) Batch() *tilebatch.Instanced { return m.batch }

// Hexes returns the per-tile metadata, indexed by instance index
func (m *Map) Hexes() []Hex { return m.hexes }

// Hex returns the metadata for index
func (m *Map) Hex(index int) (*Hex, bool) {
	if !m.dims.Contains(index) {
		return nil, false
	}
	return &m.hexes[index], true
}

// Origin is the root placement that centers the grid on the world origin
func (m *Map) Origin() tilebatch.Vec3 { return m.origin }

// MaxHeight is the tallest generated tile
func (m *Map) MaxHeight() float64 { return m.maxHeight }

// SetHeight records an edited tile height so exports follow the batch
func (m *Map) SetHeight(index int, height float64) {
	if h, ok := m.Hex(index); ok {
		h.OnMap.Height = height
	}
}

// SetOwner records the colonization color of a tile, or clears it when nil
func (m *Map) SetOwner(index int, owner *tilebatch.Color) {
	if h, ok := m.Hex(index); ok {
		h.Properties.Owner = owner
	}
}

// ExportName is the file name of an export taken at the given time
func ExportName(at time.Time) string {
	return fmt.Sprintf("iron-grid-%d.json", at.UnixMilli())
}

// Export serializes the hexes array as JSON
func (m *Map) Export(at time.Time) (string, []byte, error) {
	data, err := json.Marshal(m.hexes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal hexes: %w", err)
	}
	return ExportName(at), data, nil
}
