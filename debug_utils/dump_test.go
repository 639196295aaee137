package debug_utils

import (
	"bytes"
	"context"
	"image/color"
	"strings"
	"testing"

	dtc "github.com/gorustyt/navcache/detour_tile_cache"
	"github.com/gorustyt/navcache/raw"
	"github.com/gorustyt/navcache/tilecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func TestDumpNavMeshToObj(t *testing.T) {
	reg := raw.NewRegistry(nil)
	require.NoError(t, reg.Initialize(context.Background()))
	params, err := tilecache.NewParams(tilecache.ParamsConfig{
		CellSize: 0.5, CellHeight: 0.2, Width: 8, Height: 8,
		WalkableHeight: 2, WalkableRadius: 0.6, WalkableClimb: 0.9,
		MaxTiles: 16, MaxObstacles: 8,
	})
	require.NoError(t, err)
	tc := tilecache.New(reg)
	require.NoError(t, tc.Init(params, reg.NewLinearAllocator(32000), reg.NewCompressor(), tilecache.DefaultMeshProcess(reg)))
	tiles, err := tilecache.GenerateTiles(reg, params, reg.NewCompressor(), tilecache.FlatGround{}, 2, 2)
	require.NoError(t, err)
	_, err = tc.Import(tiles)
	require.NoError(t, err)
	nav, err := tc.NewNavMesh(64)
	require.NoError(t, err)
	require.NoError(t, tc.BuildAll(nav))

	var buf bytes.Buffer
	require.NoError(t, DumpNavMeshToObj(&buf, nav))

	var objects, verts, faces int
	for _, line := range strings.Split(buf.String(), "\n") {
		switch {
		case strings.HasPrefix(line, "o "):
			objects++
		case strings.HasPrefix(line, "v "):
			verts++
		case strings.HasPrefix(line, "f "):
			faces++
		}
	}
	assert.Equal(t, 4, objects)
	assert.Equal(t, 16, verts)
	// one quad per flat tile
	assert.Equal(t, 8, faces)
	assert.Contains(t, buf.String(), "o tile_1_1_0")

	assert.ErrorIs(t, DumpNavMeshToObj(&buf, nil), ErrNilInput)

	var img bytes.Buffer
	require.NoError(t, DumpTileAreas(&img, reg.NewCompressor(), tiles[0]))
	decoded, err := bmp.Decode(&img)
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dx())
	assert.Equal(t, walkableCol.NRGBA(), color.NRGBAModel.Convert(decoded.At(3, 3)))
}

func TestDumpLayerAreas(t *testing.T) {
	layer := &dtc.DtTileCacheLayer{
		Header:  &dtc.DtTileCacheLayerHeader{Width: 3, Height: 2},
		Heights: []uint8{0, 0, 0xff, 1, 1, 1},
		Areas: []uint8{
			dtc.DT_TILECACHE_WALKABLE_AREA, dtc.DT_TILECACHE_NULL_AREA, dtc.DT_TILECACHE_WALKABLE_AREA,
			5, dtc.DT_TILECACHE_WALKABLE_AREA, dtc.DT_TILECACHE_WALKABLE_AREA,
		},
	}
	var buf bytes.Buffer
	require.NoError(t, DumpLayerAreas(&buf, layer))
	img, err := bmp.Decode(&buf)
	require.NoError(t, err)

	at := func(x, z int) color.NRGBA {
		return color.NRGBAModel.Convert(img.At(x, 1-z)).(color.NRGBA)
	}
	assert.Equal(t, walkableCol.NRGBA(), at(0, 0))
	assert.Equal(t, nullCol.NRGBA(), at(1, 0))
	assert.Equal(t, emptyCol.NRGBA(), at(2, 0))
	assert.Equal(t, DuIntToCol(5, 255).NRGBA(), at(0, 1))

	assert.ErrorIs(t, DumpLayerAreas(&buf, nil), ErrNilInput)
}

func TestColors(t *testing.T) {
	assert.Equal(t, DuRGBA(0, 192, 255, 255), PolyAreaCol(0))
	assert.Equal(t, DuIntToCol(3, 255), PolyAreaCol(3))
	c := DuRGBA(10, 20, 30, 40)
	var back Colorb
	back.FromInt(c.Int())
	assert.Equal(t, c, back)
	assert.Equal(t, DuRGBA(5, 10, 15, 40), DuDarkenCol(c))
	assert.Equal(t, DuRGBA(255, 255, 255, 255), DuLerpCol(DuRGBA(0, 0, 0, 0), DuRGBA(255, 255, 255, 255), 255))
}
