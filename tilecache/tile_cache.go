// Package tilecache maintains a navmesh under dynamic obstacles. Obstacle
// adds and removes are queued; Update applies them by rebuilding the tiles
// they touch, a bounded amount of work per call.
package tilecache

import (
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcache/common"
	"github.com/gorustyt/navcache/common/log"
	"github.com/gorustyt/navcache/detour"
	dtc "github.com/gorustyt/navcache/detour_tile_cache"
	"github.com/gorustyt/navcache/raw"
	"go.uber.org/zap"
)

// UpdateResult is the outcome of one Update call. UpToDate means no rebuild
// work remains until the obstacle set changes again.
type UpdateResult struct {
	Status   detour.DtStatus
	UpToDate bool
}

// Tile is a stored compressed tile.
type Tile struct {
	Ref   dtc.DtCompressedTileRef
	X, Y  int32
	Layer int32
	Data  []byte
}

type TileCache struct {
	reg         *raw.Registry
	native      *dtc.DtTileCache
	params      *Params
	obstacles   map[dtc.DtObstacleRef]Obstacle
	initialized bool
	log         *zap.Logger
}

// New panics when reg has not been initialized.
func New(reg *raw.Registry) *TileCache {
	common.AssertTrue(reg != nil && reg.Ready(), "tilecache: registry used before Initialize")
	return &TileCache{
		reg:       reg,
		native:    &dtc.DtTileCache{},
		obstacles: map[dtc.DtObstacleRef]Obstacle{},
		log:       log.Named("tilecache"),
	}
}

// Init binds the cache to its scratch allocator, tile compressor and mesh
// process. It must be called exactly once.
func (tc *TileCache) Init(params *Params, alloc *dtc.LinearAllocator, comp dtc.DtTileCacheCompressor, mp *MeshProcess) error {
	if tc.initialized {
		return ErrAlreadyInitialized
	}
	if params == nil {
		return ErrInvalidParams
	}
	if err := raw.CheckHandle(raw.LinearAllocator, alloc); err != nil {
		return err
	}
	if err := raw.CheckHandle(raw.TileCacheCompressor, comp); err != nil {
		return err
	}
	if err := raw.CheckHandle("TileCacheMeshProcess", mp); err != nil {
		return err
	}
	if status := tc.native.Init(params.native(tc.reg), alloc, comp, mp); status.DtStatusFailed() {
		tc.log.Error("tile cache init failed", zap.Stringer("status", status))
		return &TileCacheInitError{Status: status}
	}
	tc.params = params
	tc.initialized = true
	tc.log.Debug("tile cache initialized",
		zap.Int("max_tiles", params.MaxTiles()),
		zap.Int("max_obstacles", params.MaxObstacles()),
		zap.Int("allocator", alloc.Capacity()))
	return nil
}

func (tc *TileCache) Initialized() bool { return tc.initialized }

func (tc *TileCache) Params() *Params { return tc.params }

// Native exposes the underlying store.
func (tc *TileCache) Native() *dtc.DtTileCache { return tc.native }

// AddBoxObstacle queues a box obstacle. An angle of zero is stored as an
// axis aligned box.
func (tc *TileCache) AddBoxObstacle(position, halfExtents mgl32.Vec3, angle float32) (*BoxObstacle, error) {
	if !tc.initialized {
		return nil, ErrNotInitialized
	}
	var (
		ref    dtc.DtObstacleRef
		status detour.DtStatus
	)
	if angle == 0 {
		bmin, bmax := position.Sub(halfExtents), position.Add(halfExtents)
		ref, status = tc.native.AddBoxObstacle(bmin[:], bmax[:])
	} else {
		ref, status = tc.native.AddOrientedBoxObstacle(position[:], halfExtents[:], angle)
	}
	if status.DtStatusFailed() {
		tc.log.Warn("add box obstacle failed", zap.Stringer("status", status))
		return nil, &ObstacleOperationError{Op: "add box", Status: status}
	}
	o := &BoxObstacle{Ref: ref, Position: position, HalfExtents: halfExtents, Angle: angle}
	tc.obstacles[ref] = o
	return o, nil
}

func (tc *TileCache) AddCylinderObstacle(position mgl32.Vec3, radius, height float32) (*CylinderObstacle, error) {
	if !tc.initialized {
		return nil, ErrNotInitialized
	}
	ref, status := tc.native.AddObstacle(position[:], radius, height)
	if status.DtStatusFailed() {
		tc.log.Warn("add cylinder obstacle failed", zap.Stringer("status", status))
		return nil, &ObstacleOperationError{Op: "add cylinder", Status: status}
	}
	o := &CylinderObstacle{Ref: ref, Position: position, Radius: radius, Height: height}
	tc.obstacles[ref] = o
	return o, nil
}

func (tc *TileCache) RemoveObstacle(o Obstacle) error {
	if o == nil {
		return nil
	}
	return tc.RemoveObstacleRef(o.ObstacleRef())
}

// RemoveObstacleRef always asks the native store to free ref, so refs that
// were never tracked here are released too. The mapping entry is dropped only
// once the native store has accepted the request.
func (tc *TileCache) RemoveObstacleRef(ref dtc.DtObstacleRef) error {
	if !tc.initialized {
		return ErrNotInitialized
	}
	if status := tc.native.RemoveObstacle(ref); status.DtStatusFailed() {
		tc.log.Warn("remove obstacle failed", zap.Uint32("ref", uint32(ref)), zap.Stringer("status", status))
		return &ObstacleOperationError{Op: "remove", Ref: ref, Status: status}
	}
	delete(tc.obstacles, ref)
	return nil
}

// Obstacles returns the tracked obstacles ordered by reference.
func (tc *TileCache) Obstacles() []Obstacle {
	refs := slices.Sorted(maps.Keys(tc.obstacles))
	out := make([]Obstacle, len(refs))
	for i, ref := range refs {
		out[i] = tc.obstacles[ref]
	}
	return out
}

// ObstacleRefs returns the tracked references in ascending order.
func (tc *TileCache) ObstacleRefs() []dtc.DtObstacleRef {
	return slices.Sorted(maps.Keys(tc.obstacles))
}

func (tc *TileCache) Obstacle(ref dtc.DtObstacleRef) (Obstacle, bool) {
	o, ok := tc.obstacles[ref]
	return o, ok
}

func (tc *TileCache) ObstacleCount() int { return len(tc.obstacles) }

// Update applies queued obstacle changes and rebuilds at most one tile.
func (tc *TileCache) Update(nav *detour.DtNavMesh) UpdateResult {
	if !tc.initialized {
		return UpdateResult{Status: detour.DT_FAILURE | detour.DT_INVALID_PARAM}
	}
	upToDate, status := tc.native.Update(nav)
	if status.DtStatusFailed() {
		tc.log.Warn("tile rebuild failed", zap.Stringer("status", status))
	}
	return UpdateResult{Status: status, UpToDate: upToDate}
}

// AddTile stores compressed layer data, typically produced by GenerateTiles
// or read back from a tile store.
func (tc *TileCache) AddTile(data []byte, flags int) (dtc.DtCompressedTileRef, error) {
	if !tc.initialized {
		return 0, ErrNotInitialized
	}
	ref, status := tc.native.AddTile(data, flags)
	if status.DtStatusFailed() {
		return 0, &TileOperationError{Op: "add tile", Status: status}
	}
	return ref, nil
}

func (tc *TileCache) BuildNavMeshTile(ref dtc.DtCompressedTileRef, nav *detour.DtNavMesh) error {
	if !tc.initialized {
		return ErrNotInitialized
	}
	if status := tc.native.BuildNavMeshTile(ref, nav); status.DtStatusFailed() {
		return &TileOperationError{Op: "build tile", Status: status}
	}
	return nil
}

func (tc *TileCache) BuildNavMeshTilesAt(tx, ty int32, nav *detour.DtNavMesh) error {
	if !tc.initialized {
		return ErrNotInitialized
	}
	if status := tc.native.BuildNavMeshTilesAt(tx, ty, nav); status.DtStatusFailed() {
		return &TileOperationError{Op: "build tiles at", Status: status}
	}
	return nil
}

// BuildAll builds every stored tile into nav.
func (tc *TileCache) BuildAll(nav *detour.DtNavMesh) error {
	for _, tile := range tc.Tiles() {
		if err := tc.BuildNavMeshTile(tile.Ref, nav); err != nil {
			return err
		}
	}
	return nil
}

// Tiles exports the stored tiles.
func (tc *TileCache) Tiles() []Tile {
	if !tc.initialized {
		return nil
	}
	exported := tc.reg.Exporter().Export(tc.native)
	tiles := make([]Tile, 0, len(exported))
	for _, t := range exported {
		tiles = append(tiles, Tile{
			Ref:   tc.native.GetTileRef(tc.native.GetTileAt(t.Header.Tx, t.Header.Ty, t.Header.Tlayer)),
			X:     t.Header.Tx,
			Y:     t.Header.Ty,
			Layer: t.Header.Tlayer,
			Data:  t.Data,
		})
	}
	return tiles
}

// Import adds previously exported tile data.
func (tc *TileCache) Import(data [][]byte) ([]dtc.DtCompressedTileRef, error) {
	if !tc.initialized {
		return nil, ErrNotInitialized
	}
	refs, status := tc.reg.Importer().Import(tc.native, data)
	if status.DtStatusFailed() {
		return refs, &TileOperationError{Op: "import", Status: status}
	}
	tc.log.Debug("tiles imported", zap.Int("count", len(refs)))
	return refs, nil
}

// NewNavMesh creates a navmesh whose tile grid matches the cache.
func (tc *TileCache) NewNavMesh(maxPolys int) (*detour.DtNavMesh, error) {
	if !tc.initialized {
		return nil, ErrNotInitialized
	}
	tw, th := tc.params.TileWorldSize()
	np := tc.reg.NewNavMeshParams()
	np.Orig = tc.params.Origin()
	np.TileWidth = tw
	np.TileHeight = th
	np.MaxTiles = tc.params.MaxTiles()
	np.MaxPolys = maxPolys
	nav := tc.reg.NewNavMesh()
	if status := nav.Init(np); status.DtStatusFailed() {
		return nil, &TileOperationError{Op: "navmesh init", Status: status}
	}
	return nav, nil
}

// Destroy releases the native store. The cache must not be used afterwards.
func (tc *TileCache) Destroy() {
	tc.native.Destroy()
	clear(tc.obstacles)
	tc.initialized = false
}
