package tilestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcache/raw"
	"github.com/gorustyt/navcache/tilecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func testConfig() tilecache.ParamsConfig {
	return tilecache.ParamsConfig{
		Origin:   mgl32.Vec3{-4, 0.5, -4},
		CellSize: 0.5, CellHeight: 0.2,
		Width: 8, Height: 8,
		WalkableHeight: 2, WalkableRadius: 0.6, WalkableClimb: 0.9,
		MaxSimplificationError: 1.3,
		MaxTiles:               16,
		MaxObstacles:           32,
	}
}

func newCache(t *testing.T) (*raw.Registry, *tilecache.TileCache, *tilecache.Params) {
	t.Helper()
	reg := raw.NewRegistry(nil)
	require.NoError(t, reg.Initialize(context.Background()))
	params, err := tilecache.NewParams(testConfig())
	require.NoError(t, err)
	tc := tilecache.New(reg)
	require.NoError(t, tc.Init(params, reg.NewLinearAllocator(32000), reg.NewCompressor(), tilecache.DefaultMeshProcess(reg)))
	return reg, tc, params
}

func generatedArchive(t *testing.T) Archive {
	t.Helper()
	reg, tc, params := newCache(t)
	tiles, err := tilecache.GenerateTiles(reg, params, reg.NewCompressor(), tilecache.FlatGround{}, 2, 2)
	require.NoError(t, err)
	_, err = tc.Import(tiles)
	require.NoError(t, err)
	return Snapshot(tc)
}

func TestArchiveRestoresTileCache(t *testing.T) {
	a := generatedArchive(t)
	require.Len(t, a.Tiles, 4)

	decoded, err := DecodeArchive(EncodeArchive(a))
	require.NoError(t, err)
	assert.Equal(t, a.Params, decoded.Params)
	assert.ElementsMatch(t, a.Tiles, decoded.Tiles)

	_, tc, _ := newCache(t)
	refs, err := tc.Import(decoded.TileData())
	require.NoError(t, err)
	assert.Len(t, refs, 4)
	nav, err := tc.NewNavMesh(64)
	require.NoError(t, err)
	require.NoError(t, tc.BuildAll(nav))
	assert.NotNil(t, nav.GetTileAt(1, 1, 0))
}

func TestTileDataOrder(t *testing.T) {
	a := Archive{Tiles: []Tile{
		{Key: TileKey{X: 1, Y: 1}, Data: []byte("d")},
		{Key: TileKey{X: 0, Y: 1}, Data: []byte("c")},
		{Key: TileKey{X: 1, Y: 0}, Data: []byte("b")},
		{Key: TileKey{X: 0, Y: 0}, Data: []byte("a")},
	}}
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}, a.TileData())
}

func TestDecodeArchiveErrors(t *testing.T) {
	good := EncodeArchive(Archive{Params: testConfig(), Tiles: []Tile{{Key: TileKey{X: -1, Y: 2}, Data: []byte{1, 2, 3}}}})

	_, err := DecodeArchive(good[:len(good)-2])
	assert.ErrorIs(t, err, ErrCorruptArchive)

	var future []byte
	future = protowire.AppendTag(future, archiveVersion, protowire.VarintType)
	future = protowire.AppendVarint(future, archiveFormat+1)
	_, err = DecodeArchive(future)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	// unknown fields are skipped
	extended := protowire.AppendTag(append([]byte(nil), good...), 99, protowire.BytesType)
	extended = protowire.AppendBytes(extended, []byte("later"))
	a, err := DecodeArchive(extended)
	require.NoError(t, err)
	require.Len(t, a.Tiles, 1)
	assert.Equal(t, TileKey{X: -1, Y: 2}, a.Tiles[0].Key)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "tiles", "cache.bin"))

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	a := generatedArchive(t)
	require.NoError(t, store.Save(ctx, a))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.Params, loaded.Params)
	assert.ElementsMatch(t, a.Tiles, loaded.Tiles)

	a.Tiles = a.Tiles[:1]
	require.NoError(t, store.Save(ctx, a))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Tiles, 1)
}
