package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, float32(0.3), cfg.TileCache.CellSize)
	assert.Equal(t, 48, cfg.TileCache.TileSize)
	assert.Equal(t, 128, cfg.TileCache.MaxObstacles)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, 50*time.Millisecond, cfg.Simulation.Tick)
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
logging:
  level: debug
tile_cache:
  origin: [-10, 0, -10]
  cell_size: 0.5
  tile_size: 32
  max_obstacles: 16
store:
  driver: file
  path: tiles.bin
simulation:
  tick: 100ms
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, [3]float32{-10, 0, -10}, cfg.TileCache.Origin)
	assert.Equal(t, float32(0.5), cfg.TileCache.CellSize)
	assert.Equal(t, float32(0.2), cfg.TileCache.CellHeight, "unset keys keep defaults")
	assert.Equal(t, 32, cfg.TileCache.TileSize)
	assert.Equal(t, 16, cfg.TileCache.MaxObstacles)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, 100*time.Millisecond, cfg.Simulation.Tick)
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("tile_cache:\n  cell_size: -1\nstore:\n  driver: s3\n"), 0o644))

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cell_size")
	assert.Contains(t, err.Error(), "s3")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Viewer.Enabled = true
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestApplyFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-debug", "-viewer", ":9000", "-store", "postgres"}))

	cfg := Default()
	ApplyFlags(cfg, f)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Viewer.Enabled)
	assert.Equal(t, ":9000", cfg.Viewer.ListenAddr)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}
