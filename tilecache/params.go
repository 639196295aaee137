package tilecache

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcache/common/config"
	dtc "github.com/gorustyt/navcache/detour_tile_cache"
	"github.com/gorustyt/navcache/raw"
	"go.uber.org/multierr"
)

// ParamsConfig is the input to NewParams. Width and Height are the number of
// cells along each side of a tile.
type ParamsConfig struct {
	Origin                 mgl32.Vec3
	CellSize               float32
	CellHeight             float32
	Width                  int
	Height                 int
	WalkableHeight         float32
	WalkableRadius         float32
	WalkableClimb          float32
	MaxSimplificationError float32
	MaxTiles               int
	MaxObstacles           int
}

// Params is an immutable tile grid description.
type Params struct {
	cfg ParamsConfig
}

func NewParams(cfg ParamsConfig) (*Params, error) {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalidParams}, args...)...))
		}
	}
	check(cfg.CellSize > 0, "cell size %v", cfg.CellSize)
	check(cfg.CellHeight > 0, "cell height %v", cfg.CellHeight)
	check(cfg.Width > 0 && cfg.Width <= 255, "width %d", cfg.Width)
	check(cfg.Height > 0 && cfg.Height <= 255, "height %d", cfg.Height)
	check(cfg.WalkableHeight >= 0 && cfg.WalkableRadius >= 0 && cfg.WalkableClimb >= 0, "negative walkable limits")
	check(cfg.MaxTiles > 0, "max tiles %d", cfg.MaxTiles)
	check(cfg.MaxObstacles > 0 && cfg.MaxObstacles <= 0xffff, "max obstacles %d", cfg.MaxObstacles)
	if err != nil {
		return nil, err
	}
	return &Params{cfg: cfg}, nil
}

// ParamsFromConfig maps the tile_cache config section onto Params.
func ParamsFromConfig(c config.TileCacheConfig) (*Params, error) {
	return NewParams(ParamsConfig{
		Origin:                 c.Origin,
		CellSize:               c.CellSize,
		CellHeight:             c.CellHeight,
		Width:                  c.TileSize,
		Height:                 c.TileSize,
		WalkableHeight:         c.WalkableHeight,
		WalkableRadius:         c.WalkableRadius,
		WalkableClimb:          c.WalkableClimb,
		MaxSimplificationError: c.MaxSimplificationError,
		MaxTiles:               c.MaxTiles,
		MaxObstacles:           c.MaxObstacles,
	})
}

func (p *Params) Config() ParamsConfig            { return p.cfg }
func (p *Params) Origin() mgl32.Vec3              { return p.cfg.Origin }
func (p *Params) CellSize() float32               { return p.cfg.CellSize }
func (p *Params) CellHeight() float32             { return p.cfg.CellHeight }
func (p *Params) Width() int                      { return p.cfg.Width }
func (p *Params) Height() int                     { return p.cfg.Height }
func (p *Params) WalkableHeight() float32         { return p.cfg.WalkableHeight }
func (p *Params) WalkableRadius() float32         { return p.cfg.WalkableRadius }
func (p *Params) WalkableClimb() float32          { return p.cfg.WalkableClimb }
func (p *Params) MaxSimplificationError() float32 { return p.cfg.MaxSimplificationError }
func (p *Params) MaxTiles() int                   { return p.cfg.MaxTiles }
func (p *Params) MaxObstacles() int               { return p.cfg.MaxObstacles }

// TileWorldSize is the extent of one tile along x and z.
func (p *Params) TileWorldSize() (float32, float32) {
	return float32(p.cfg.Width) * p.cfg.CellSize, float32(p.cfg.Height) * p.cfg.CellSize
}

func (p *Params) native(reg *raw.Registry) *dtc.DtTileCacheParams {
	np := reg.NewTileCacheParams()
	np.Orig = p.cfg.Origin
	np.Cs = p.cfg.CellSize
	np.Ch = p.cfg.CellHeight
	np.Width = p.cfg.Width
	np.Height = p.cfg.Height
	np.WalkableHeight = p.cfg.WalkableHeight
	np.WalkableRadius = p.cfg.WalkableRadius
	np.WalkableClimb = p.cfg.WalkableClimb
	np.MaxSimplificationError = p.cfg.MaxSimplificationError
	np.MaxTiles = p.cfg.MaxTiles
	np.MaxObstacles = p.cfg.MaxObstacles
	return np
}
