package gamemap

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/gravitas-games/irongrid/internal/config"
	"github.com/gravitas-games/irongrid/internal/grid"
	"github.com/gravitas-games/irongrid/internal/heightfield"
)

func testTerrain() config.Terrain {
	cfg := config.Default().Terrain
	cfg.Rows = 6
	cfg.Cols = 8
	cfg.Seed = "test"
	return cfg
}

func TestBuildIntegrity(t *testing.T) {
	m, err := Build(testTerrain())
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if len(m.Hexes()) != 48 || m.Batch().Len() != 48 {
		t.Fatalf("expected 48 tiles, got %d hexes and %d instances", len(m.Hexes()), m.Batch().Len())
	}
	for i, h := range m.Hexes() {
		if h.Index != i {
			t.Fatalf("hexes[%d].Index = %d", i, h.Index)
		}
		a := grid.GridToAxial(h.OnMap.Col, h.OnMap.Row)
		if a.Q != h.OnMap.Q || a.R != h.OnMap.R || h.OnMap.Row*8+h.OnMap.Col != i {
			t.Fatalf("hexes[%d] has inconsistent placement %+v", i, h.OnMap)
		}
		tr := m.Batch().Transform(i)
		if tr.Scale.Y != h.OnMap.Height || tr.Position.Y != h.OnMap.Height/2 {
			t.Fatalf("instance %d transform %+v does not span [0,%v]", i, tr, h.OnMap.Height)
		}
		if h.OnMap.Height < 0 || h.OnMap.Height > 200 {
			t.Fatalf("height %v out of range", h.OnMap.Height)
		}
		if h.Properties.Terrain == "" {
			t.Fatalf("hexes[%d] has no terrain class", i)
		}
	}
	if !m.Batch().Flush().Empty() {
		t.Fatal("expected a clean batch after build")
	}
}

func TestBuildPositions(t *testing.T) {
	m, err := Build(testTerrain())
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	w := math.Sqrt(3) * 3
	even := m.Batch().Transform(0*8 + 2)
	odd := m.Batch().Transform(1*8 + 2)
	if math.Abs(even.Position.X-2*w) > 1e-9 || even.Position.Z != 0 {
		t.Fatalf("unexpected even-row position %+v", even.Position)
	}
	if math.Abs(odd.Position.X-(2*w+w/2)) > 1e-9 || odd.Position.Z != 4.5 {
		t.Fatalf("unexpected odd-row position %+v", odd.Position)
	}
}

func TestBuildDeterministic(t *testing.T) {
	a, _ := Build(testTerrain())
	b, _ := Build(testTerrain())
	for i := range a.Hexes() {
		if a.Hexes()[i].OnMap.Height != b.Hexes()[i].OnMap.Height {
			t.Fatalf("tile %d differs between builds", i)
		}
	}
}

func TestBuildRejectsInvalid(t *testing.T) {
	cfg := testTerrain()
	cfg.Rows = 0
	if _, err := Build(cfg); !errors.Is(err, config.ErrInvalidTerrain) {
		t.Fatalf("expected ErrInvalidTerrain, got %v", err)
	}
}

func TestBuildHeightsFollowField(t *testing.T) {
	cfg := testTerrain()
	m, err := Build(cfg)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	field := heightfield.New(cfg.Seed)
	params := heightfield.Params{
		Scale:       cfg.Scale,
		Frequency:   cfg.Frequency,
		Amplitude:   cfg.Amplitude,
		Persistence: cfg.Persistence,
		Lacunarity:  cfg.Lacunarity,
		Octaves:     cfg.Octaves,
	}
	for i, h := range m.Hexes() {
		pos := m.Batch().Transform(i).Position
		if want := field.Height(pos.X, pos.Z, params); h.OnMap.Height != want {
			t.Fatalf("tile %d height %v, field gives %v", i, h.OnMap.Height, want)
		}
	}
}

func TestBuildRejectsOversizedGrid(t *testing.T) {
	cfg := testTerrain()
	cfg.Rows = 1 << 32
	cfg.Cols = 1 << 32
	if _, err := Build(cfg); !errors.Is(err, config.ErrInvalidTerrain) {
		t.Fatalf("expected ErrInvalidTerrain for an overflowing grid, got %v", err)
	}
}

func TestUpdateKeepsMapOnError(t *testing.T) {
	m, _ := Build(testTerrain())
	before := m.Hexes()[3].OnMap.Height
	bad := testTerrain()
	bad.HexRadius = -1
	if err := m.Update(bad); err == nil {
		t.Fatal("expected update error")
	}
	if m.Hexes()[3].OnMap.Height != before || m.Dims().Len() != 48 {
		t.Fatal("map changed after failed update")
	}

	next := testTerrain()
	next.Rows = 3
	next.Cols = 4
	next.Seed = "other"
	if err := m.Update(next); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if len(m.Hexes()) != 12 || m.Batch().Len() != 12 {
		t.Fatalf("expected 12 tiles after update, got %d", len(m.Hexes()))
	}
	for i, h := range m.Hexes() {
		if h.Index != i {
			t.Fatalf("hexes[%d].Index = %d after update", i, h.Index)
		}
	}
}

func TestEmptySeedIsRecorded(t *testing.T) {
	cfg := testTerrain()
	cfg.Seed = ""
	m, err := Build(cfg)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if m.Config().Seed == "" {
		t.Fatal("expected a generated seed")
	}
}

func TestExport(t *testing.T) {
	m, _ := Build(testTerrain())
	m.SetHeight(5, 1.5)
	at := time.UnixMilli(1700000000123)
	name, data, err := m.Export(at)
	if err != nil {
		t.Fatalf("unexpected export error: %v", err)
	}
	if name != "iron-grid-1700000000123.json" {
		t.Fatalf("unexpected export name %s", name)
	}
	var hexes []Hex
	if err := json.Unmarshal(data, &hexes); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(hexes) != 48 || hexes[5].OnMap.Height != 1.5 {
		t.Fatalf("unexpected export contents")
	}
	if !strings.Contains(string(data), `"onMap"`) {
		t.Fatalf("expected onMap key in export")
	}
}

func TestClassifyAndColor(t *testing.T) {
	if classify(10, 50, 200) != TerrainWater || classify(60, 50, 200) != TerrainLowland ||
		classify(120, 50, 200) != TerrainHighland || classify(190, 50, 200) != TerrainPeak {
		t.Fatal("unexpected terrain classes")
	}
	if heightColor(10) != 0x001400 || heightColor(500) != 0x00ff00 {
		t.Fatalf("unexpected height colors %v %v", heightColor(10), heightColor(500))
	}
}
