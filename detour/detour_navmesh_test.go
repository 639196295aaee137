package detour

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quadParams(tx, ty int32) *DtNavMeshCreateParams {
	return &DtNavMeshCreateParams{
		Verts:     []uint16{0, 0, 0, 0, 0, 4, 4, 0, 4, 4, 0, 0},
		VertCount: 4,
		Polys:     []uint16{0, 1, 2, 3, DT_NULL_IDX, DT_NULL_IDX},
		PolyFlags: []uint16{1},
		PolyAreas: []uint8{63},
		PolyCount: 1,
		Nvp:       DT_VERTS_PER_POLYGON,
		TileX:     tx,
		TileY:     ty,
		Bmin:      [3]float32{float32(tx) * 4, 0, float32(ty) * 4},
		Bmax:      [3]float32{float32(tx)*4 + 4, 1, float32(ty)*4 + 4},
		Cs:        1,
		Ch:        0.5,
	}
}

func newTestNavMesh(t *testing.T) *DtNavMesh {
	t.Helper()
	nav := &DtNavMesh{}
	status := nav.Init(&DtNavMeshParams{TileWidth: 4, TileHeight: 4, MaxTiles: 16, MaxPolys: 64})
	require.True(t, status.DtStatusSucceed(), status.String())
	return nav
}

func TestStatusHelpers(t *testing.T) {
	s := DT_FAILURE | DT_OUT_OF_MEMORY
	assert.True(t, s.DtStatusFailed())
	assert.False(t, s.DtStatusSucceed())
	assert.True(t, s.DtStatusDetail(DT_OUT_OF_MEMORY))
	assert.False(t, s.DtStatusDetail(DT_INVALID_PARAM))
	assert.Equal(t, "failure, out of memory", s.String())
	assert.Equal(t, "success", DT_SUCCESS.String())
}

func TestInitRejectsBadParams(t *testing.T) {
	nav := &DtNavMesh{}
	assert.True(t, nav.Init(&DtNavMeshParams{TileWidth: 4, TileHeight: 4}).DtStatusFailed())
	assert.True(t, nav.Init(&DtNavMeshParams{TileWidth: 4, TileHeight: 4, MaxTiles: 1 << 16, MaxPolys: 1 << 16}).DtStatusFailed(),
		"too few salt bits")
}

func TestCreateNavMeshDataWorldSpace(t *testing.T) {
	data, ok := DtCreateNavMeshData(quadParams(1, 0))
	require.True(t, ok)
	assert.Equal(t, int32(1), data.Header.PolyCount)
	assert.Equal(t, []float32{4, 0, 0}, data.Verts[0:3])
	assert.Equal(t, []float32{4, 0, 4}, data.Verts[3:6])
	assert.Equal(t, uint8(4), data.Polys[0].VertCount)
	assert.Equal(t, uint8(63), data.Polys[0].GetArea())
	assert.Equal(t, uint8(DT_POLYTYPE_GROUND), data.Polys[0].GetType())
}

func TestCreateNavMeshDataRejectsEmpty(t *testing.T) {
	p := quadParams(0, 0)
	p.PolyCount = 0
	_, ok := DtCreateNavMeshData(p)
	assert.False(t, ok)

	p = quadParams(0, 0)
	p.Polys[1] = 9
	_, ok = DtCreateNavMeshData(p)
	assert.False(t, ok, "vertex index out of range")
}

func TestAddRemoveTile(t *testing.T) {
	nav := newTestNavMesh(t)
	data, ok := DtCreateNavMeshData(quadParams(2, 3))
	require.True(t, ok)

	ref, status := nav.AddTile(data, DT_TILE_FREE_DATA, 0)
	require.True(t, status.DtStatusSucceed())
	assert.NotZero(t, ref)
	assert.Equal(t, ref, nav.GetTileRefAt(2, 3, 0))
	assert.Len(t, nav.GetTilesAt(2, 3), 1)
	assert.Equal(t, 1, nav.TileCount())

	_, status = nav.AddTile(data, DT_TILE_FREE_DATA, 0)
	assert.True(t, status.DtStatusDetail(DT_ALREADY_OCCUPIED))

	owned, status := nav.RemoveTile(ref)
	require.True(t, status.DtStatusSucceed())
	assert.Nil(t, owned, "navmesh owned the data")
	assert.Zero(t, nav.GetTileRefAt(2, 3, 0))
	assert.Equal(t, 0, nav.TileCount())

	_, status = nav.RemoveTile(ref)
	assert.True(t, status.DtStatusFailed(), "stale ref after salt bump")
}

func TestRemoveTileReturnsUnownedData(t *testing.T) {
	nav := newTestNavMesh(t)
	data, _ := DtCreateNavMeshData(quadParams(0, 0))
	ref, _ := nav.AddTile(data, 0, 0)

	got, status := nav.RemoveTile(ref)
	require.True(t, status.DtStatusSucceed())
	assert.Same(t, data, got)

	restored, status := nav.AddTile(got, 0, ref)
	require.True(t, status.DtStatusSucceed())
	assert.Equal(t, ref, restored, "lastRef restores slot and salt")
}

func TestPolyFlagsAndArea(t *testing.T) {
	nav := newTestNavMesh(t)
	data, _ := DtCreateNavMeshData(quadParams(0, 0))
	_, status := nav.AddTile(data, DT_TILE_FREE_DATA, 0)
	require.True(t, status.DtStatusSucceed())

	base := nav.GetPolyRefBase(nav.GetTileAt(0, 0, 0))
	flags, status := nav.GetPolyFlags(base)
	require.True(t, status.DtStatusSucceed())
	assert.Equal(t, uint16(1), flags)

	require.True(t, nav.SetPolyFlags(base, 0x10).DtStatusSucceed())
	require.True(t, nav.SetPolyArea(base, 3).DtStatusSucceed())
	flags, _ = nav.GetPolyFlags(base)
	area, _ := nav.GetPolyArea(base)
	assert.Equal(t, uint16(0x10), flags)
	assert.Equal(t, uint8(3), area)

	assert.False(t, nav.IsValidPolyRef(base+1))
	assert.False(t, nav.IsValidPolyRef(0))
}
