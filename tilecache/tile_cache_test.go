package tilecache

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcache/detour"
	dtc "github.com/gorustyt/navcache/detour_tile_cache"
	"github.com/gorustyt/navcache/raw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *raw.Registry {
	t.Helper()
	reg := raw.NewRegistry(nil)
	require.NoError(t, reg.Initialize(context.Background()))
	return reg
}

func testParams(t *testing.T, maxObstacles int) *Params {
	t.Helper()
	p, err := NewParams(ParamsConfig{
		CellSize: 0.5, CellHeight: 0.2,
		Width: 8, Height: 8,
		WalkableHeight: 2, WalkableRadius: 0.6, WalkableClimb: 0.9,
		MaxSimplificationError: 1.3,
		MaxTiles:               16,
		MaxObstacles:           maxObstacles,
	})
	require.NoError(t, err)
	return p
}

type fixture struct {
	reg *raw.Registry
	tc  *TileCache
	nav *detour.DtNavMesh
	mp  *MeshProcess
}

func newFixture(t *testing.T, maxObstacles int) *fixture {
	t.Helper()
	reg := newRegistry(t)
	params := testParams(t, maxObstacles)
	f := &fixture{reg: reg, tc: New(reg), mp: DefaultMeshProcess(reg)}
	require.NoError(t, f.tc.Init(params, reg.NewLinearAllocator(32000), reg.NewCompressor(), f.mp))

	tiles, err := GenerateTiles(reg, params, reg.NewCompressor(), FlatGround{}, 2, 2)
	require.NoError(t, err)
	_, err = f.tc.Import(tiles)
	require.NoError(t, err)

	f.nav, err = f.tc.NewNavMesh(256)
	require.NoError(t, err)
	require.NoError(t, f.tc.BuildAll(f.nav))
	return f
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	for i := 0; i < 200; i++ {
		res := f.tc.Update(f.nav)
		require.True(t, res.Status.DtStatusSucceed(), res.Status.String())
		if res.UpToDate {
			return
		}
	}
	t.Fatal("tile cache never became up to date")
}

func polyCount(nav *detour.DtNavMesh, tx, ty int32) int32 {
	tile := nav.GetTileAt(tx, ty, 0)
	if tile == nil {
		return 0
	}
	return tile.Header.PolyCount
}

func TestNewParamsValidates(t *testing.T) {
	_, err := NewParams(ParamsConfig{CellSize: 0, CellHeight: -1, Width: 300, Height: 8, MaxTiles: 1, MaxObstacles: 1})
	require.ErrorIs(t, err, ErrInvalidParams)
	assert.Contains(t, err.Error(), "cell size")
	assert.Contains(t, err.Error(), "cell height")
	assert.Contains(t, err.Error(), "width 300")

	p := testParams(t, 4)
	tw, th := p.TileWorldSize()
	assert.Equal(t, float32(4), tw)
	assert.Equal(t, float32(4), th)
}

func TestNewRequiresInitializedRegistry(t *testing.T) {
	assert.Panics(t, func() { New(raw.NewRegistry(nil)) })
	assert.Panics(t, func() { New(nil) })
	assert.Panics(t, func() { DefaultMeshProcess(raw.NewRegistry(nil)) })
}

func TestInitErrors(t *testing.T) {
	reg := newRegistry(t)
	params := testParams(t, 4)

	err := New(reg).Init(params, reg.NewLinearAllocator(0), reg.NewCompressor(), DefaultMeshProcess(reg))
	assert.ErrorIs(t, err, raw.ErrNullHandle)

	err = New(reg).Init(params, reg.NewLinearAllocator(100), nil, DefaultMeshProcess(reg))
	assert.ErrorIs(t, err, raw.ErrNullHandle)

	err = New(reg).Init(params, reg.NewLinearAllocator(100), reg.NewCompressor(), nil)
	var nullErr *raw.NullHandleError
	require.ErrorAs(t, err, &nullErr)
	assert.Equal(t, "TileCacheMeshProcess", nullErr.Name)

	bad := &Params{cfg: params.Config()}
	bad.cfg.Width = 0
	err = New(reg).Init(bad, reg.NewLinearAllocator(100), reg.NewCompressor(), DefaultMeshProcess(reg))
	var initErr *TileCacheInitError
	require.ErrorAs(t, err, &initErr)
	assert.True(t, initErr.Status.DtStatusDetail(detour.DT_INVALID_PARAM))
	assert.ErrorIs(t, err, ErrTileCacheInit)

	tc := New(reg)
	require.NoError(t, tc.Init(params, reg.NewLinearAllocator(100), reg.NewCompressor(), DefaultMeshProcess(reg)))
	assert.ErrorIs(t, tc.Init(params, reg.NewLinearAllocator(100), reg.NewCompressor(), DefaultMeshProcess(reg)), ErrAlreadyInitialized)
}

func TestUseBeforeInit(t *testing.T) {
	tc := New(newRegistry(t))
	_, err := tc.AddCylinderObstacle(mgl32.Vec3{}, 1, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, tc.RemoveObstacleRef(1), ErrNotInitialized)
	assert.False(t, tc.Update(nil).UpToDate)
}

func TestUpdateWithoutChangesDoesNoWork(t *testing.T) {
	f := newFixture(t, 8)
	calls := f.mp.Calls()
	require.Equal(t, 4, calls)

	res := f.tc.Update(f.nav)
	assert.True(t, res.UpToDate)
	assert.True(t, res.Status.DtStatusSucceed())
	assert.Equal(t, calls, f.mp.Calls())
}

func TestCarveAndRestore(t *testing.T) {
	f := newFixture(t, 8)
	require.Equal(t, int32(1), polyCount(f.nav, 0, 0))

	o, err := f.tc.AddCylinderObstacle(mgl32.Vec3{2, 0, 2}, 0.6, 2)
	require.NoError(t, err)
	// Nothing changes until Update runs.
	assert.Equal(t, int32(1), polyCount(f.nav, 0, 0))

	f.flush(t)
	assert.Greater(t, polyCount(f.nav, 0, 0), int32(1))
	assert.Equal(t, int32(1), polyCount(f.nav, 1, 1))

	require.NoError(t, f.tc.RemoveObstacle(o))
	f.flush(t)
	assert.Equal(t, int32(1), polyCount(f.nav, 0, 0))
}

func TestDefaultMeshProcessClassifiesPolys(t *testing.T) {
	f := newFixture(t, 8)
	tile := f.nav.GetTileAt(1, 0, 0)
	require.NotNil(t, tile)
	for _, p := range tile.Polys {
		assert.Equal(t, uint16(POLYFLAGS_WALK), p.Flags)
		assert.Equal(t, uint8(POLYAREA_GROUND), p.GetArea())
	}
}

func TestMeshProcessViewsAreReleased(t *testing.T) {
	reg := newRegistry(t)
	var areas *raw.Array[uint8]
	var flags *raw.Array[uint16]
	mp := NewMeshProcess(reg, func(params *detour.DtNavMeshCreateParams, polyAreas *raw.Array[uint8], polyFlags *raw.Array[uint16]) {
		assert.True(t, polyAreas.IsView())
		assert.Equal(t, params.PolyCount, polyAreas.Len())
		assert.Equal(t, params.PolyCount, polyFlags.Len())
		polyFlags.Set(0, POLYFLAGS_SWIM)
		areas, flags = polyAreas, polyFlags
	})

	params := testParams(t, 4)
	tc := New(reg)
	require.NoError(t, tc.Init(params, reg.NewLinearAllocator(32000), reg.NewCompressor(), mp))
	tiles, err := GenerateTiles(reg, params, reg.NewCompressor(), FlatGround{Height: 1}, 1, 1)
	require.NoError(t, err)
	refs, err := tc.Import(tiles)
	require.NoError(t, err)
	nav, err := tc.NewNavMesh(64)
	require.NoError(t, err)
	require.NoError(t, tc.BuildNavMeshTile(refs[0], nav))

	assert.Equal(t, 1, mp.Calls())
	assert.Zero(t, areas.Len())
	assert.Zero(t, flags.Len())
	assert.Equal(t, uint16(POLYFLAGS_SWIM), nav.GetTileAt(0, 0, 0).Polys[0].Flags)
	assert.InDelta(t, 1, nav.GetTileAt(0, 0, 0).Verts[1], 1e-5)
}

func TestObstacleMappingMatchesOutstandingRefs(t *testing.T) {
	f := newFixture(t, 32)
	rng := rand.New(rand.NewPCG(1, 2))
	outstanding := map[dtc.DtObstacleRef]bool{}
	var removed []dtc.DtObstacleRef

	for step := 0; step < 200; step++ {
		refs := f.tc.ObstacleRefs()
		if len(refs) > 0 && rng.IntN(3) == 0 {
			ref := refs[rng.IntN(len(refs))]
			require.NoError(t, f.tc.RemoveObstacleRef(ref))
			delete(outstanding, ref)
			removed = append(removed, ref)
		} else if len(outstanding) < 16 {
			pos := mgl32.Vec3{rng.Float32() * 8, 0, rng.Float32() * 8}
			var o Obstacle
			var err error
			if rng.IntN(2) == 0 {
				o, err = f.tc.AddBoxObstacle(pos, mgl32.Vec3{0.5, 1, 0.5}, rng.Float32())
			} else {
				o, err = f.tc.AddCylinderObstacle(pos, 0.5, 1)
			}
			require.NoError(t, err)
			outstanding[o.ObstacleRef()] = true
		}
		if step%10 == 9 {
			f.flush(t)
		}
	}
	f.flush(t)

	var want []dtc.DtObstacleRef
	for ref := range outstanding {
		want = append(want, ref)
	}
	slices.Sort(want)
	assert.Equal(t, want, f.tc.ObstacleRefs())
	assert.Equal(t, len(want), f.tc.ObstacleCount())
	for _, ref := range want {
		ob := f.tc.Native().GetObstacleByRef(ref)
		require.NotNil(t, ob)
		assert.Equal(t, uint8(dtc.DT_OBSTACLE_PROCESSED), ob.State)
	}
	for _, ref := range removed {
		assert.Nil(t, f.tc.Native().GetObstacleByRef(ref))
		_, ok := f.tc.Obstacle(ref)
		assert.False(t, ok)
	}
}

func TestRemoveTwiceIsSafe(t *testing.T) {
	f := newFixture(t, 8)
	o, err := f.tc.AddBoxObstacle(mgl32.Vec3{2, 0, 2}, mgl32.Vec3{1, 1, 1}, 0)
	require.NoError(t, err)
	f.flush(t)

	require.NoError(t, f.tc.RemoveObstacle(o))
	require.NoError(t, f.tc.RemoveObstacle(o))
	assert.Zero(t, f.tc.ObstacleCount())
	f.flush(t)
	assert.Nil(t, f.tc.Native().GetObstacleByRef(o.Ref))

	require.NoError(t, f.tc.RemoveObstacleRef(o.Ref))
	f.flush(t)
	assert.Equal(t, int32(1), polyCount(f.nav, 0, 0))
}

func TestRemoveUntrackedRefIsForwarded(t *testing.T) {
	f := newFixture(t, 8)
	pos := []float32{2, 0, 2}
	ref, status := f.tc.Native().AddObstacle(pos, 0.6, 2)
	require.True(t, status.DtStatusSucceed())
	f.flush(t)
	_, tracked := f.tc.Obstacle(ref)
	require.False(t, tracked)

	require.NoError(t, f.tc.RemoveObstacleRef(ref))
	f.flush(t)
	assert.Nil(t, f.tc.Native().GetObstacleByRef(ref))
}

func TestObstacleLimitIsReturnedAsError(t *testing.T) {
	f := newFixture(t, 2)
	for i := 0; i < 2; i++ {
		_, err := f.tc.AddCylinderObstacle(mgl32.Vec3{1, 0, 1}, 0.5, 1)
		require.NoError(t, err)
	}
	_, err := f.tc.AddCylinderObstacle(mgl32.Vec3{1, 0, 1}, 0.5, 1)
	require.ErrorIs(t, err, ErrObstacleOperation)
	var opErr *ObstacleOperationError
	require.True(t, errors.As(err, &opErr))
	assert.True(t, opErr.Full())
	assert.True(t, opErr.Status.DtStatusDetail(detour.DT_OUT_OF_MEMORY))
	assert.Equal(t, 2, f.tc.ObstacleCount())
}

func TestRemoveWithFullRequestQueueKeepsObstacle(t *testing.T) {
	f := newFixture(t, 128)
	var first Obstacle
	for i := 0; i < dtc.TileCache_MAX_REQUESTS; i++ {
		o, err := f.tc.AddCylinderObstacle(mgl32.Vec3{1, 0, 1}, 0.5, 1)
		require.NoError(t, err)
		if first == nil {
			first = o
		}
	}

	err := f.tc.RemoveObstacle(first)
	require.ErrorIs(t, err, ErrObstacleOperation)
	var opErr *ObstacleOperationError
	require.True(t, errors.As(err, &opErr))
	assert.True(t, opErr.Full())
	assert.True(t, opErr.Status.DtStatusDetail(detour.DT_BUFFER_TOO_SMALL))

	f.flush(t)
	_, tracked := f.tc.Obstacle(first.ObstacleRef())
	assert.True(t, tracked)
	assert.NotNil(t, f.tc.Native().GetObstacleByRef(first.ObstacleRef()))
	assert.Equal(t, dtc.TileCache_MAX_REQUESTS, f.tc.ObstacleCount())

	require.NoError(t, f.tc.RemoveObstacle(first))
	f.flush(t)
	_, tracked = f.tc.Obstacle(first.ObstacleRef())
	assert.False(t, tracked)
	assert.Nil(t, f.tc.Native().GetObstacleByRef(first.ObstacleRef()))
	assert.Equal(t, dtc.TileCache_MAX_REQUESTS-1, f.tc.ObstacleCount())
}

func TestObstaclesOrderedByRef(t *testing.T) {
	f := newFixture(t, 8)
	a, _ := f.tc.AddCylinderObstacle(mgl32.Vec3{1, 0, 1}, 0.5, 1)
	b, _ := f.tc.AddBoxObstacle(mgl32.Vec3{5, 0, 5}, mgl32.Vec3{0.5, 0.5, 0.5}, 0.3)
	obs := f.tc.Obstacles()
	require.Len(t, obs, 2)
	assert.Same(t, a, obs[0])
	assert.Same(t, b, obs[1])

	got, ok := f.tc.Obstacle(b.Ref)
	require.True(t, ok)
	bmin, bmax := got.Bounds()
	assert.InDelta(t, 5-0.705, bmin.X(), 1e-4)
	assert.InDelta(t, 0.5, bmax.Y(), 1e-4)
}

func TestTilesRoundTrip(t *testing.T) {
	f := newFixture(t, 8)
	tiles := f.tc.Tiles()
	require.Len(t, tiles, 4)

	other := New(f.reg)
	require.NoError(t, other.Init(f.tc.Params(), f.reg.NewLinearAllocator(32000), f.reg.NewCompressor(), DefaultMeshProcess(f.reg)))
	data := make([][]byte, len(tiles))
	for i, tile := range tiles {
		data[i] = tile.Data
	}
	_, err := other.Import(data)
	require.NoError(t, err)
	nav, err := other.NewNavMesh(256)
	require.NoError(t, err)
	require.NoError(t, other.BuildNavMeshTilesAt(1, 1, nav))
	assert.Equal(t, 1, nav.TileCount())
	require.NoError(t, other.BuildAll(nav))
	assert.Equal(t, 4, nav.TileCount())

	_, err = other.AddTile(data[0], dtc.DT_COMPRESSEDTILE_FREE_DATA)
	var tileErr *TileOperationError
	require.ErrorAs(t, err, &tileErr)
	assert.True(t, tileErr.Status.DtStatusDetail(detour.DT_ALREADY_OCCUPIED))
}

func TestGenerateTilesWithHoles(t *testing.T) {
	reg := newRegistry(t)
	params := testParams(t, 4)
	hf := HeightfieldFunc(func(x, z float32) (float32, bool) {
		return 0, !(x > 1 && x < 2 && z > 1 && z < 2)
	})
	tiles, err := GenerateTiles(reg, params, reg.NewCompressor(), hf, 1, 1)
	require.NoError(t, err)
	require.Len(t, tiles, 1)

	layer, status := dtc.DtDecompressTileCacheLayer(reg.NewLinearAllocator(1024), reg.NewCompressor(), tiles[0])
	require.True(t, status.DtStatusSucceed())
	assert.Equal(t, uint8(dtc.DT_TILECACHE_NULL_AREA), layer.Areas[2+2*8])
	assert.Equal(t, uint8(dtc.DT_TILECACHE_WALKABLE_AREA), layer.Areas[0])
	assert.Zero(t, layer.Cons[2+2*8])
	assert.Zero(t, layer.Cons[1+2*8]&(1<<2))

	_, err = GenerateTiles(reg, params, reg.NewCompressor(), hf, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestDestroy(t *testing.T) {
	f := newFixture(t, 8)
	_, err := f.tc.AddCylinderObstacle(mgl32.Vec3{1, 0, 1}, 0.5, 1)
	require.NoError(t, err)
	f.tc.Destroy()
	assert.False(t, f.tc.Initialized())
	assert.Zero(t, f.tc.ObstacleCount())
	assert.Nil(t, f.tc.Tiles())
	_, err = f.tc.AddTile(nil, 0)
	assert.ErrorIs(t, err, ErrNotInitialized)
	f.tc.Destroy()
}
