package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gravitas-games/irongrid/internal/picking"
	"github.com/gravitas-games/irongrid/internal/tilebatch"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTerrain is wrapped by every terrain validation failure.
var ErrInvalidTerrain = errors.New("invalid terrain configuration")

// Config holds all server configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	JWT         JWTConfig         `yaml:"jwt"`
	Redis       RedisConfig       `yaml:"redis"`
	Session     SessionConfig     `yaml:"session"`
	Export      ExportConfig      `yaml:"export"`
	Terrain     Terrain           `yaml:"terrain"`
	Interaction InteractionConfig `yaml:"interaction"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TickRate int    `yaml:"tick_rate"` // Hz
}

// JWTConfig holds JWT authentication settings. An empty PublicKeyURL
// disables authentication.
type JWTConfig struct {
	Issuer              string `yaml:"issuer"`
	PublicKeyURL        string `yaml:"public_key_url"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours"`
}

// RedisConfig holds Redis connection settings. An empty Address keeps
// exports in memory.
type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	BlacklistPrefix string `yaml:"blacklist_prefix"`
}

// SessionConfig holds viewer session settings
type SessionConfig struct {
	MaxViewers int `yaml:"max_viewers"`
}

// ExportConfig controls where map exports are kept
type ExportConfig struct {
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
	Dir       string        `yaml:"dir"` // used by cmd/export
}

// Terrain is the grid configuration. It is replaced wholesale on every
// regeneration.
type Terrain struct {
	Scale            float64 `yaml:"scale" json:"scale"`
	Rows             int     `yaml:"rows" json:"rows"`
	Cols             int     `yaml:"cols" json:"cols"`
	WaterHeight      float64 `yaml:"water_height" json:"waterHeight"`
	HexRadius        float64 `yaml:"hex_radius" json:"hexRadius"`
	Frequency        float64 `yaml:"frequency" json:"frequency"`
	Amplitude        float64 `yaml:"amplitude" json:"amplitude"`
	MaxAmplitude     float64 `yaml:"max_amplitude" json:"maxAmplitude"`
	Persistence      float64 `yaml:"persistence" json:"persistence"`
	Lacunarity       float64 `yaml:"lacunarity" json:"lacunarity"`
	Octaves          int     `yaml:"octaves" json:"octaves"`
	Seed             string  `yaml:"seed" json:"seed"`
	WeatherMode      string  `yaml:"weather_mode" json:"weatherMode"`
	SunRotationSpeed float64 `yaml:"sun_rotation_speed" json:"sunRotationSpeed"`
	CloudGroups      int     `yaml:"cloud_groups" json:"cloudGroups"`
	CloudsPerGroup   int     `yaml:"clouds_per_group" json:"cloudsPerGroup"`
}

// Weather modes understood by the cloud renderer.
const (
	WeatherSunset = "sunset"
	WeatherClear  = "clear"
	WeatherCloudy = "cloudy"
	WeatherStormy = "stormy"
)

// HexWidth is the distance between adjacent tile centers in a row.
func (t Terrain) HexWidth() float64 { return math.Sqrt(3) * t.HexRadius }

// VerticalSpacing is the distance between adjacent rows.
func (t Terrain) VerticalSpacing() float64 { return 1.5 * t.HexRadius }

// GridWidth is the world-space width of the whole grid.
func (t Terrain) GridWidth() float64 {
	return float64(t.Cols-1)*t.HexWidth() + t.HexWidth()
}

// GridHeight is the world-space depth of the whole grid.
func (t Terrain) GridHeight() float64 {
	return float64(t.Rows-1)*t.VerticalSpacing() + 2*t.HexRadius
}

// MaxTiles is the largest grid a map may hold, bounded by the tile IDs the
// picking render can tell apart.
const MaxTiles = picking.MaxInstances

// Validate rejects terrain settings that cannot produce a finite map.
func (t Terrain) Validate() error {
	if t.Rows <= 0 {
		return fmt.Errorf("%w: rows must be positive, got %d", ErrInvalidTerrain, t.Rows)
	}
	if t.Cols <= 0 {
		return fmt.Errorf("%w: cols must be positive, got %d", ErrInvalidTerrain, t.Cols)
	}
	if t.Rows > MaxTiles/t.Cols {
		return fmt.Errorf("%w: %d x %d tiles exceeds the limit of %d", ErrInvalidTerrain, t.Rows, t.Cols, MaxTiles)
	}
	if !(t.HexRadius > 0) || math.IsInf(t.HexRadius, 0) {
		return fmt.Errorf("%w: hex_radius must be positive and finite, got %v", ErrInvalidTerrain, t.HexRadius)
	}
	if !(t.Scale > 0) || math.IsInf(t.Scale, 0) {
		return fmt.Errorf("%w: scale must be positive and finite, got %v", ErrInvalidTerrain, t.Scale)
	}
	if t.CloudGroups < 0 || t.CloudsPerGroup < 0 {
		return fmt.Errorf("%w: cloud counts must not be negative", ErrInvalidTerrain)
	}
	if t.Octaves < 1 {
		return fmt.Errorf("%w: octaves must be at least 1, got %d", ErrInvalidTerrain, t.Octaves)
	}
	finite := map[string]float64{
		"frequency":     t.Frequency,
		"amplitude":     t.Amplitude,
		"max_amplitude": t.MaxAmplitude,
		"persistence":   t.Persistence,
		"lacunarity":    t.Lacunarity,
		"water_height":  t.WaterHeight,
	}
	for name, v := range finite {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidTerrain, name, v)
		}
	}
	switch t.WeatherMode {
	case WeatherSunset, WeatherClear, WeatherCloudy, WeatherStormy:
	default:
		return fmt.Errorf("%w: unknown weather_mode %q", ErrInvalidTerrain, t.WeatherMode)
	}
	return nil
}

// InteractionConfig tunes leveling, selection and colonization
type InteractionConfig struct {
	LevelDistance    int               `yaml:"level_distance"`
	MaxReduction     float64           `yaml:"max_reduction"`
	MinHeight        float64           `yaml:"min_height"`
	LevelInterval    time.Duration     `yaml:"level_interval"`
	BorderInterval   time.Duration     `yaml:"border_interval"`
	BorderLift       float64           `yaml:"border_lift"`
	CursorLift       float64           `yaml:"cursor_lift"`
	SelectColor      tilebatch.Color   `yaml:"select_color"`
	NeighborColor    tilebatch.Color   `yaml:"neighbor_color"`
	ColonizeInterval time.Duration     `yaml:"colonize_interval"`
	BranchMin        int               `yaml:"branch_min"`
	BranchMax        int               `yaml:"branch_max"`
	Colonizers       []ColonizerConfig `yaml:"colonizers"`
}

// ColonizerConfig starts a colonizer when the map is generated
type ColonizerConfig struct {
	Start    int             `yaml:"start"`
	Color    tilebatch.Color `yaml:"color"`
	Interval time.Duration   `yaml:"interval"`
	Bias     string          `yaml:"bias"`
}

// BiasLowland makes a colonizer spread into the lowest neighbors first.
// Any other bias expands in random order.
const BiasLowland = "lowland"

// Default returns the configuration used when no file provides a value.
// Fields where zero is meaningful are seeded here so a file can set them to
// zero; Load decodes over this value.
func Default() *Config {
	cfg := &Config{}
	cfg.Terrain.WaterHeight = 50
	cfg.Terrain.Amplitude = 0.8
	cfg.Terrain.Persistence = 0.5
	cfg.Interaction.MinHeight = 0.1
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Terrain.Validate(); err != nil {
		return nil, err
	}
	if cfg.Interaction.BranchMin > cfg.Interaction.BranchMax {
		return nil, fmt.Errorf("branch_min %d exceeds branch_max %d", cfg.Interaction.BranchMin, cfg.Interaction.BranchMax)
	}

	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.TickRate == 0 {
		cfg.Server.TickRate = 60
	}
	if cfg.JWT.PublicKeyRefreshHrs == 0 {
		cfg.JWT.PublicKeyRefreshHrs = 24
	}
	if cfg.Redis.BlacklistPrefix == "" {
		cfg.Redis.BlacklistPrefix = "blacklist:"
	}
	if cfg.Session.MaxViewers == 0 {
		cfg.Session.MaxViewers = 100
	}
	if cfg.Export.KeyPrefix == "" {
		cfg.Export.KeyPrefix = "irongrid:export:"
	}
	if cfg.Export.TTL == 0 {
		cfg.Export.TTL = 24 * time.Hour
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "."
	}

	t := &cfg.Terrain
	if t.Scale == 0 {
		t.Scale = 200
	}
	if t.Rows == 0 {
		t.Rows = 100
	}
	if t.Cols == 0 {
		t.Cols = 100
	}
	if t.HexRadius == 0 {
		t.HexRadius = 3
	}
	if t.Frequency == 0 {
		t.Frequency = 0.4
	}
	if t.Lacunarity == 0 {
		t.Lacunarity = 2
	}
	if t.Octaves == 0 {
		t.Octaves = 3
	}
	if t.WeatherMode == "" {
		t.WeatherMode = WeatherClear
	}
	if t.CloudGroups == 0 {
		t.CloudGroups = 10
	}
	if t.CloudsPerGroup == 0 {
		t.CloudsPerGroup = 10
	}

	in := &cfg.Interaction
	if in.LevelDistance == 0 {
		in.LevelDistance = 3
	}
	if in.MaxReduction == 0 {
		in.MaxReduction = 5
	}
	if in.LevelInterval == 0 {
		in.LevelInterval = time.Millisecond
	}
	if in.BorderInterval == 0 {
		in.BorderInterval = time.Second
	}
	if in.BorderLift == 0 {
		in.BorderLift = 0.5
	}
	if in.CursorLift == 0 {
		in.CursorLift = 3
	}
	if in.SelectColor == 0 {
		in.SelectColor = 0xcccccc
	}
	if in.NeighborColor == 0 {
		in.NeighborColor = 0xffffff
	}
	if in.ColonizeInterval == 0 {
		in.ColonizeInterval = 200 * time.Millisecond
	}
	if in.BranchMin == 0 {
		in.BranchMin = 2
	}
	if in.BranchMax == 0 {
		in.BranchMax = 3
	}
}
