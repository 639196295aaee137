package tilecache

import (
	"github.com/gorustyt/navcache/common"
	"github.com/gorustyt/navcache/detour"
	dtc "github.com/gorustyt/navcache/detour_tile_cache"
	"github.com/gorustyt/navcache/raw"
)

// Poly areas assigned by DefaultMeshProcess.
const (
	POLYAREA_GROUND = iota
	POLYAREA_WATER
	POLYAREA_ROAD
	POLYAREA_DOOR
	POLYAREA_GRASS
	POLYAREA_JUMP
)

// Poly flags assigned by DefaultMeshProcess.
const (
	POLYFLAGS_WALK     = 0x01   // Ability to walk (ground, grass, road)
	POLYFLAGS_SWIM     = 0x02   // Ability to swim (water).
	POLYFLAGS_DOOR     = 0x04   // Ability to move through doors.
	POLYFLAGS_JUMP     = 0x08   // Ability to jump.
	POLYFLAGS_DISABLED = 0x10   // Disabled polygon
	POLYFLAGS_ALL      = 0xffff // All abilities.
)

// MeshProcessFunc classifies the polygons of a rebuilt tile. The arrays are
// views into the tile being built and are freed when the function returns.
type MeshProcessFunc func(params *detour.DtNavMeshCreateParams, polyAreas *raw.Array[uint8], polyFlags *raw.Array[uint16])

// MeshProcess adapts a MeshProcessFunc to the native mesh-process hook.
type MeshProcess struct {
	fn    MeshProcessFunc
	calls int
}

var _ dtc.DtTileCacheMeshProcess = (*MeshProcess)(nil)

func NewMeshProcess(reg *raw.Registry, fn MeshProcessFunc) *MeshProcess {
	common.AssertTrue(reg != nil && reg.Ready(), "tilecache: mesh process created before registry Initialize")
	common.AssertTrue(fn != nil, "tilecache: nil mesh process func")
	return &MeshProcess{fn: fn}
}

// DefaultMeshProcess turns walkable polygons into walkable ground.
func DefaultMeshProcess(reg *raw.Registry) *MeshProcess {
	return NewMeshProcess(reg, func(params *detour.DtNavMeshCreateParams, polyAreas *raw.Array[uint8], polyFlags *raw.Array[uint16]) {
		for i := 0; i < params.PolyCount; i++ {
			if polyAreas.Get(i) == dtc.DT_TILECACHE_WALKABLE_AREA {
				polyAreas.Set(i, POLYAREA_GROUND)
			}
			switch polyAreas.Get(i) {
			case POLYAREA_GROUND, POLYAREA_GRASS, POLYAREA_ROAD:
				polyFlags.Set(i, POLYFLAGS_WALK)
			case POLYAREA_WATER:
				polyFlags.Set(i, POLYFLAGS_SWIM)
			case POLYAREA_DOOR:
				polyFlags.Set(i, POLYFLAGS_WALK|POLYFLAGS_DOOR)
			}
		}
	})
}

func (m *MeshProcess) Process(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16) {
	areas := raw.ViewOf(polyAreas)
	flags := raw.ViewOf(polyFlags)
	defer areas.Free()
	defer flags.Free()
	m.calls++
	m.fn(params, areas, flags)
}

// Calls is the number of tiles processed so far.
func (m *MeshProcess) Calls() int { return m.calls }
