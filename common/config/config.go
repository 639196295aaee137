// Package config handles navcache configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all settings for a tile cache deployment.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	TileCache  TileCacheConfig  `yaml:"tile_cache"`
	Allocator  AllocatorConfig  `yaml:"allocator"`
	Store      StoreConfig      `yaml:"store"`
	Viewer     ViewerConfig     `yaml:"viewer"`
	Simulation SimulationConfig `yaml:"simulation"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// TileCacheConfig describes the tiled grid obstacles are tracked on.
// TileSize is the edge length of one tile in cells.
type TileCacheConfig struct {
	Origin                 [3]float32 `yaml:"origin"`
	CellSize               float32    `yaml:"cell_size"`
	CellHeight             float32    `yaml:"cell_height"`
	TileSize               int        `yaml:"tile_size"`
	GridWidth              int        `yaml:"grid_width"`  // tiles along x
	GridHeight             int        `yaml:"grid_height"` // tiles along z
	WalkableHeight         float32    `yaml:"walkable_height"`
	WalkableRadius         float32    `yaml:"walkable_radius"`
	WalkableClimb          float32    `yaml:"walkable_climb"`
	MaxSimplificationError float32    `yaml:"max_simplification_error"`
	MaxTiles               int        `yaml:"max_tiles"`
	MaxObstacles           int        `yaml:"max_obstacles"`
}

type AllocatorConfig struct {
	Capacity int `yaml:"capacity"`
}

// StoreConfig selects where compressed tiles are persisted. Driver is one of
// "none", "file" or "postgres".
type StoreConfig struct {
	Driver  string `yaml:"driver"`
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
	CacheID string `yaml:"cache_id"`
}

type ViewerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

type SimulationConfig struct {
	Tick      time.Duration `yaml:"tick"`
	MaxAgents int           `yaml:"max_agents"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		TileCache: TileCacheConfig{
			CellSize:               0.3,
			CellHeight:             0.2,
			TileSize:               48,
			GridWidth:              4,
			GridHeight:             4,
			WalkableHeight:         2.0,
			WalkableRadius:         0.6,
			WalkableClimb:          0.9,
			MaxSimplificationError: 1.3,
			MaxTiles:               128,
			MaxObstacles:           128,
		},
		Allocator: AllocatorConfig{Capacity: 32000},
		Store:     StoreConfig{Driver: "none", CacheID: "default"},
		Viewer:    ViewerConfig{ListenAddr: "127.0.0.1:8090"},
		Simulation: SimulationConfig{
			Tick:      50 * time.Millisecond,
			MaxAgents: 32,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Save writes cfg as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings the tile cache cannot be built from.
func (c *Config) Validate() error {
	tc := c.TileCache
	var errs []error
	if tc.CellSize <= 0 || tc.CellHeight <= 0 {
		errs = append(errs, errors.New("tile_cache: cell_size and cell_height must be positive"))
	}
	if tc.TileSize <= 0 || tc.TileSize > 255 {
		errs = append(errs, fmt.Errorf("tile_cache: tile_size %d out of range 1..255", tc.TileSize))
	}
	if tc.GridWidth <= 0 || tc.GridHeight <= 0 {
		errs = append(errs, errors.New("tile_cache: grid_width and grid_height must be positive"))
	}
	if tc.MaxTiles <= 0 || tc.MaxObstacles <= 0 {
		errs = append(errs, errors.New("tile_cache: max_tiles and max_obstacles must be positive"))
	}
	if c.Allocator.Capacity <= 0 {
		errs = append(errs, errors.New("allocator: capacity must be positive"))
	}
	if c.Simulation.Tick <= 0 {
		errs = append(errs, errors.New("simulation: tick must be positive"))
	}
	switch c.Store.Driver {
	case "", "none", "file", "postgres":
	default:
		errs = append(errs, fmt.Errorf("store: unknown driver %q", c.Store.Driver))
	}
	return errors.Join(errs...)
}
