package gamemap

import (
	"math"

	"github.com/gravitas-games/irongrid/internal/tilebatch"
)

// Terrain classes recorded in tile properties
const (
	TerrainWater    = "water"
	TerrainLowland  = "lowland"
	TerrainHighland = "highland"
	TerrainPeak     = "peak"
)

// Hex is the metadata kept beside each instance of the tile batch
type Hex struct {
	Index      int        `json:"index"`
	Properties Properties `json:"properties"`
	OnMap      Placement  `json:"onMap"`
}

// Placement locates a tile on the grid
type Placement struct {
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	Q      int     `json:"q"`
	R      int     `json:"r"`
	Height float64 `json:"height"`
}

// Properties holds gameplay state for a tile. Extra carries annotations the
// fixed fields do not cover.
type Properties struct {
	Terrain string           `json:"terrain,omitempty"`
	Owner   *tilebatch.Color `json:"owner,omitempty"`
	Extra   map[string]any   `json:"extra,omitempty"`
}

// classify buckets a height relative to the water line and the height scale.
func classify(height, waterHeight, scale float64) string {
	switch {
	case height < waterHeight:
		return TerrainWater
	case height < waterHeight+(scale-waterHeight)/3:
		return TerrainLowland
	case height < waterHeight+2*(scale-waterHeight)/3:
		return TerrainHighland
	default:
		return TerrainPeak
	}
}

// heightColor is the default tile color: a green channel proportional to height.
func heightColor(height float64) tilebatch.Color {
	g := int(math.Round(height)) * 2
	if g > 255 {
		g = 255
	}
	if g < 0 {
		g = 0
	}
	return tilebatch.RGB(0, uint8(g), 0)
}
