package world

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/gravitas-games/irongrid/internal/config"
	"github.com/gravitas-games/irongrid/internal/gamemap"
	"github.com/gravitas-games/irongrid/internal/interaction"
	"github.com/gravitas-games/irongrid/internal/picking"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	cfg := config.Default()
	cfg.Terrain.Rows = 10
	cfg.Terrain.Cols = 10
	cfg.Terrain.Seed = "world"
	w, err := New(cfg.Terrain, cfg.Interaction, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("failed to create world: %v", err)
	}
	return w
}

func TestNewSnapshot(t *testing.T) {
	w := newTestWorld(t)
	if w.Generation() != 1 {
		t.Fatalf("expected generation 1, got %d", w.Generation())
	}
	snap := w.Snapshot()
	if len(snap.Matrices) != 16*100 || len(snap.Colors) != 3*100 {
		t.Fatalf("unexpected buffer sizes %d/%d", len(snap.Matrices), len(snap.Colors))
	}
	if snap.Terrain.Seed != "world" || snap.Environment.WeatherMode != config.WeatherClear {
		t.Fatalf("unexpected snapshot terrain %+v", snap.Terrain)
	}
	if w.Flush() != nil {
		t.Fatal("fresh world should have nothing to flush")
	}
}

func TestSelectFlushesOnce(t *testing.T) {
	w := newTestWorld(t)
	if got := w.Select(55); len(got) != 7 {
		t.Fatalf("expected 7 painted tiles, got %d", len(got))
	}
	updates := w.Flush()
	if len(updates) != 7 {
		t.Fatalf("expected 7 updates, got %d", len(updates))
	}
	for _, u := range updates {
		if u.Index == 55 && u.Color != 0xcccccc {
			t.Fatalf("selected tile color %v", u.Color)
		}
	}
	if w.Flush() != nil {
		t.Fatal("second flush should be empty")
	}
	if w.Select(-1) != nil || w.Flush() != nil {
		t.Fatal("miss should not produce updates")
	}
}

func TestLevelTracksHeights(t *testing.T) {
	w := newTestWorld(t)
	before := w.Map().Batch().Transform(55).Scale.Y
	edited := w.Level(time.Unix(1, 0), 55)
	if len(edited) != 37 {
		t.Fatalf("expected 37 edited tiles, got %d", len(edited))
	}
	h, _ := w.Map().Hex(55)
	after := w.Map().Batch().Transform(55).Scale.Y
	if h.OnMap.Height != after || (before > 5.1 && after != before-5) {
		t.Fatalf("height before %v after %v hex %v", before, after, h.OnMap.Height)
	}
	if again := w.Level(time.Unix(1, 0), 55); again != nil {
		t.Fatal("level inside the interval should be skipped")
	}
}

func TestColonizeFillsGrid(t *testing.T) {
	w := newTestWorld(t)
	if _, err := w.Colonize(config.ColonizerConfig{Start: 0, Color: 0xff0000}); err != nil {
		t.Fatalf("colonize: %v", err)
	}
	if _, err := w.Colonize(config.ColonizerConfig{Start: 99, Color: 0x0000ff, Bias: config.BiasLowland}); err != nil {
		t.Fatalf("colonize: %v", err)
	}
	w.Advance(time.Minute)

	if got := w.Colonization().Len(); got != 100 {
		t.Fatalf("expected every tile claimed, got %d", got)
	}
	for _, c := range w.Colonization().Colonizers() {
		if !c.Starved() {
			t.Fatalf("colonizer %d still has a frontier", c.ID())
		}
	}
	segs, ok := w.TakeBorders()
	if !ok || len(segs) == 0 {
		t.Fatalf("expected borders between two colonizers, got %d", len(segs))
	}
	if _, ok := w.TakeBorders(); ok {
		t.Fatal("borders should only be taken once per pass")
	}

	_, data, err := w.Export(time.Unix(0, 0))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var hexes []gamemap.Hex
	if err := json.Unmarshal(data, &hexes); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	for _, h := range hexes {
		if h.Properties.Owner == nil {
			t.Fatalf("hex %d has no owner after full colonization", h.Index)
		}
	}
}

func TestColonizeOutOfRange(t *testing.T) {
	w := newTestWorld(t)
	if _, err := w.Colonize(config.ColonizerConfig{Start: 100}); !errors.Is(err, interaction.ErrStartOutOfRange) {
		t.Fatalf("expected ErrStartOutOfRange, got %v", err)
	}
}

func TestRegenerate(t *testing.T) {
	w := newTestWorld(t)
	if _, err := w.Colonize(config.ColonizerConfig{Start: 10, Color: 0x00ff00}); err != nil {
		t.Fatalf("colonize: %v", err)
	}
	w.Advance(time.Second)

	bad := w.Terrain()
	bad.Rows = 0
	if err := w.Regenerate(bad); !errors.Is(err, config.ErrInvalidTerrain) {
		t.Fatalf("expected ErrInvalidTerrain, got %v", err)
	}
	if w.Generation() != 1 || w.Colonization().Len() == 0 {
		t.Fatal("failed regeneration must leave the world untouched")
	}

	next := w.Terrain()
	next.Rows, next.Cols, next.Seed = 4, 6, "next"
	if err := w.Regenerate(next); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if w.Generation() != 2 || w.Current(1) || !w.Current(2) {
		t.Fatalf("unexpected generation %d", w.Generation())
	}
	if w.Colonization().Len() != 0 {
		t.Fatal("colonization should be reset")
	}
	if len(w.Snapshot().Colors) != 3*24 {
		t.Fatal("snapshot should reflect the new grid")
	}
	w.Advance(time.Minute)
	if w.Colonization().Len() != 0 {
		t.Fatal("old colonizer timers kept running after regeneration")
	}
}

func TestRegenerateRejectsOversizedGrid(t *testing.T) {
	w := newTestWorld(t)
	for _, size := range [][2]int{{1 << 32, 1 << 32}, {100000, 100000}} {
		cfg := w.Terrain()
		cfg.Rows, cfg.Cols = size[0], size[1]
		if err := w.Regenerate(cfg); !errors.Is(err, config.ErrInvalidTerrain) {
			t.Fatalf("%dx%d: expected ErrInvalidTerrain, got %v", size[0], size[1], err)
		}
	}
	if w.Generation() != 1 || w.Map().Dims().Len() != 100 {
		t.Fatal("rejected regeneration must keep the current map")
	}
}

func TestPickingResolvesTiles(t *testing.T) {
	w := newTestWorld(t)
	tex := w.Snapshot().Picking
	if tex.Width != 10 || tex.Height != 10 {
		t.Fatalf("expected a 10x10 picking texture, got %dx%d", tex.Width, tex.Height)
	}
	for i := 0; i < 100; i++ {
		if got := w.PickPixel(tex, i%10, i/10); got != i {
			t.Fatalf("texel for tile %d resolves to %d", i, got)
		}
	}

	if got := w.PickColor(picking.IDColor(37)); got != 37 {
		t.Fatalf("PickColor = %d, want 37", got)
	}
	if got := w.PickColor(0); got != picking.NoPick {
		t.Fatalf("background resolved to %d", got)
	}
	if got := w.PickColor(picking.IDColor(100)); got != picking.NoPick {
		t.Fatalf("color past the last tile resolved to %d", got)
	}

	buf := picking.NewBuffer(1, 1)
	buf.Set(0, 0, 42)
	if got := w.PickPixel(buf, 0, 0); got != 42 {
		t.Fatalf("PickPixel = %d, want 42", got)
	}
}
