// Command export generates a map offline and writes it as an
// iron-grid-<ms>.json document.
package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/gravitas-games/irongrid/internal/config"
	"github.com/gravitas-games/irongrid/internal/world"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "YAML configuration file; defaults are used when empty")
	seed := flag.String("seed", "", "override the terrain seed")
	rows := flag.Int("rows", 0, "override the row count")
	cols := flag.Int("cols", 0, "override the column count")
	out := flag.String("out", "", "output directory; defaults to export.dir")
	simulate := flag.Duration("simulate", 0, "run configured colonizers for this long before exporting")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	if *seed != "" {
		cfg.Terrain.Seed = *seed
	}
	if *rows > 0 {
		cfg.Terrain.Rows = *rows
	}
	if *cols > 0 {
		cfg.Terrain.Cols = *cols
	}
	dir := cfg.Export.Dir
	if *out != "" {
		dir = *out
	}

	w, err := world.New(cfg.Terrain, cfg.Interaction, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.Fatalf("Failed to generate map: %v", err)
	}
	if *simulate > 0 {
		w.Advance(*simulate)
		log.Printf("Simulated %v, %d tiles claimed", *simulate, w.Colonization().Len())
	}

	name, data, err := w.Export(time.Now())
	if err != nil {
		log.Fatalf("Failed to export map: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
	log.Printf("Wrote %s (seed %q, %d bytes)", path, w.Terrain().Seed, len(data))
}
