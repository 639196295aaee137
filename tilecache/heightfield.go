package tilecache

import (
	"math"

	"github.com/gorustyt/navcache/common"
	dtc "github.com/gorustyt/navcache/detour_tile_cache"
	"github.com/gorustyt/navcache/raw"
)

// Heightfield describes the walkable surface tiles are generated from.
type Heightfield interface {
	// Sample returns the surface height at world (x, z) and whether it can be
	// walked on.
	Sample(x, z float32) (height float32, walkable bool)
}

// HeightfieldFunc adapts a function to Heightfield.
type HeightfieldFunc func(x, z float32) (float32, bool)

func (f HeightfieldFunc) Sample(x, z float32) (float32, bool) { return f(x, z) }

// FlatGround is walkable everywhere at a fixed height.
type FlatGround struct {
	Height float32
}

func (g FlatGround) Sample(x, z float32) (float32, bool) { return g.Height, true }

// BuildTileCacheLayer compresses one layer grid into tile data.
func BuildTileCacheLayer(reg *raw.Registry, comp dtc.DtTileCacheCompressor, header *dtc.DtTileCacheLayerHeader,
	heights, areas, cons *raw.Array[uint8]) (*raw.Array[uint8], error) {
	data, status := reg.TileCacheBuilder().BuildTileCacheLayer(comp, header, heights.Data(), areas.Data(), cons.Data())
	if status.DtStatusFailed() {
		return nil, &TileOperationError{Op: "build layer", Status: status}
	}
	out := raw.NewArray[uint8](reg, raw.TileCacheData, 0)
	out.Copy(data)
	return out, nil
}

// GenerateTiles samples hf over a gridW x gridH block of tiles starting at
// the params origin and returns one compressed layer per tile.
func GenerateTiles(reg *raw.Registry, params *Params, comp dtc.DtTileCacheCompressor, hf Heightfield, gridW, gridH int) ([][]byte, error) {
	if gridW <= 0 || gridH <= 0 {
		return nil, ErrInvalidParams
	}
	var tiles [][]byte
	for ty := 0; ty < gridH; ty++ {
		for tx := 0; tx < gridW; tx++ {
			data, err := generateTile(reg, params, comp, hf, int32(tx), int32(ty))
			if err != nil {
				return nil, err
			}
			tiles = append(tiles, data)
		}
	}
	return tiles, nil
}

func generateTile(reg *raw.Registry, params *Params, comp dtc.DtTileCacheCompressor, hf Heightfield, tx, ty int32) ([]byte, error) {
	w, h := params.Width(), params.Height()
	cs, ch := params.CellSize(), params.CellHeight()
	orig := params.Origin()
	tw, th := params.TileWorldSize()
	x0 := orig.X() + float32(tx)*tw
	z0 := orig.Z() + float32(ty)*th

	n := w * h
	surface := make([]float32, n)
	walkable := make([]bool, n)
	ymin, ymax := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			y, ok := hf.Sample(x0+(float32(x)+0.5)*cs, z0+(float32(z)+0.5)*cs)
			surface[x+z*w] = y
			walkable[x+z*w] = ok
			ymin = min(ymin, y)
			ymax = max(ymax, y)
		}
	}

	heights := raw.NewArray[uint8](reg, raw.UnsignedCharArray, n)
	areas := raw.NewArray[uint8](reg, raw.UnsignedCharArray, n)
	cons := raw.NewArray[uint8](reg, raw.UnsignedCharArray, n)
	defer heights.Free()
	defer areas.Free()
	defer cons.Free()

	hmin, hmax := 255, 0
	for i := 0; i < n; i++ {
		hv := common.Clamp(common.Floor((surface[i]-ymin)/ch), 0, 255)
		heights.Set(i, uint8(hv))
		if walkable[i] {
			areas.Set(i, dtc.DT_TILECACHE_WALKABLE_AREA)
		}
		hmin = min(hmin, hv)
		hmax = max(hmax, hv)
	}

	climb := int(params.WalkableClimb() / ch)
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			i := x + z*w
			if areas.Get(i) == dtc.DT_TILECACHE_NULL_AREA {
				continue
			}
			var con uint8
			for dir := 0; dir < 4; dir++ {
				nx, nz := x+common.GetDirOffsetX(dir), z+common.GetDirOffsetY(dir)
				if nx < 0 || nz < 0 || nx >= w || nz >= h {
					continue
				}
				j := nx + nz*w
				if areas.Get(j) == dtc.DT_TILECACHE_NULL_AREA {
					continue
				}
				if common.Abs(int(heights.Get(j))-int(heights.Get(i))) > climb {
					continue
				}
				con |= 1 << dir
			}
			cons.Set(i, con)
		}
	}

	header := reg.NewLayerHeader()
	header.Tx, header.Ty, header.Tlayer = tx, ty, 0
	header.Bmin = [3]float32{x0, ymin, z0}
	header.Bmax = [3]float32{x0 + tw, ymax + params.WalkableHeight(), z0 + th}
	header.Hmin, header.Hmax = uint16(hmin), uint16(hmax)
	header.Width, header.Height = uint8(w), uint8(h)
	header.Minx, header.Maxx = 0, uint8(w-1)
	header.Miny, header.Maxy = 0, uint8(h-1)

	data, err := BuildTileCacheLayer(reg, comp, header, heights, areas, cons)
	if err != nil {
		return nil, err
	}
	return data.Data(), nil
}
