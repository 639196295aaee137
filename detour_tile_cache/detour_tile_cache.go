package detour_tile_cache

import (
	"slices"

	"github.com/gorustyt/navcache/common"
	"github.com/gorustyt/navcache/detour"
)

type DtObstacleRef uint32

type DtCompressedTileRef uint32

// / Flags for addTile
const DT_COMPRESSEDTILE_FREE_DATA = 0x01 ///< Tile cache owns the tile memory.

type DtCompressedTile struct {
	salt   uint32 ///< Counter describing modifications to the tile.
	index  int
	Header *DtTileCacheLayerHeader
	Data   []byte
	Flags  int
	next   *DtCompressedTile
}

func (t *DtCompressedTile) Salt() uint32 { return t.salt }

const (
	DT_OBSTACLE_EMPTY = iota
	DT_OBSTACLE_PROCESSING
	DT_OBSTACLE_PROCESSED
	DT_OBSTACLE_REMOVING
)

const (
	DT_OBSTACLE_CYLINDER     = iota
	DT_OBSTACLE_BOX          // AABB
	DT_OBSTACLE_ORIENTED_BOX // OBB
)

type dtObstacleCylinder struct {
	pos    [3]float32
	radius float32
	height float32
}

type dtObstacleBox struct {
	bmin [3]float32
	bmax [3]float32
}

type dtObstacleOrientedBox struct {
	center      [3]float32
	halfExtents [3]float32
	rotAux      [2]float32 //{ cos(0.5f*angle)*sin(-0.5f*angle); cos(0.5f*angle)*cos(0.5f*angle) - 0.5 }
}

// DtTileCacheParams describes the tile grid. Width and Height are the number
// of cells along each side of a tile.
type DtTileCacheParams struct {
	Orig                   [3]float32
	Cs, Ch                 float32
	Width, Height          int
	WalkableHeight         float32
	WalkableRadius         float32
	WalkableClimb          float32
	MaxSimplificationError float32
	MaxTiles               int
	MaxObstacles           int
}

const (
	TileCache_MAX_UPDATE   = 64
	TileCache_MAX_REQUESTS = 64
)

const DT_MAX_TOUCHED_TILES = 8

const (
	REQUEST_ADD = iota
	REQUEST_REMOVE
)

type DtTileCacheObstacle struct {
	cylinder    dtObstacleCylinder
	box         dtObstacleBox
	orientedBox dtObstacleOrientedBox

	touched []DtCompressedTileRef
	pending []DtCompressedTileRef
	queued  int
	salt    uint16
	index   int
	Type    uint8
	State   uint8
	next    *DtTileCacheObstacle
}

func (o *DtTileCacheObstacle) Salt() uint16 { return o.salt }

// Touched lists the tiles the obstacle was rasterized into on its last add.
func (o *DtTileCacheObstacle) Touched() []DtCompressedTileRef { return o.touched }

// Pending lists the touched tiles still waiting for a rebuild.
func (o *DtTileCacheObstacle) Pending() []DtCompressedTileRef { return o.pending }

type ObstacleRequest struct {
	action int
	ref    DtObstacleRef
}

// DtTileCache stores compressed tile layers together with a set of temporary
// obstacles and rebuilds navmesh tiles as obstacles come and go.
type DtTileCache struct {
	m_tileLutSize int32 ///< Tile hash lookup size (must be pot).
	m_tileLutMask int32 ///< Tile hash lookup mask.

	m_posLookup    []*DtCompressedTile ///< Tile hash lookup.
	m_nextFreeTile *DtCompressedTile   ///< Freelist of tiles.
	m_tiles        []*DtCompressedTile ///< List of tiles.

	m_saltBits uint32 ///< Number of salt bits in the tile ID.
	m_tileBits uint32 ///< Number of tile bits in the tile ID.

	m_params *DtTileCacheParams
	m_talloc DtTileCacheAlloc
	m_tcomp  DtTileCacheCompressor
	m_tmproc DtTileCacheMeshProcess

	m_obstacles        []*DtTileCacheObstacle
	m_nextFreeObstacle *DtTileCacheObstacle

	m_reqs   []ObstacleRequest
	m_update []DtCompressedTileRef
}

func (d *DtTileCache) GetAlloc() DtTileCacheAlloc             { return d.m_talloc }
func (d *DtTileCache) GetCompressor() DtTileCacheCompressor   { return d.m_tcomp }
func (d *DtTileCache) GetMeshProcess() DtTileCacheMeshProcess { return d.m_tmproc }
func (d *DtTileCache) GetParams() *DtTileCacheParams          { return d.m_params }

func (d *DtTileCache) GetTileCount() int               { return len(d.m_tiles) }
func (d *DtTileCache) GetTile(i int) *DtCompressedTile { return d.m_tiles[i] }

func (d *DtTileCache) GetObstacleCount() int                  { return len(d.m_obstacles) }
func (d *DtTileCache) GetObstacle(i int) *DtTileCacheObstacle { return d.m_obstacles[i] }

// PendingRequests is the number of queued obstacle adds and removes.
func (d *DtTileCache) PendingRequests() int { return len(d.m_reqs) }

// PendingUpdates is the number of tiles waiting for a rebuild.
func (d *DtTileCache) PendingUpdates() int { return len(d.m_update) }

// / Encodes a tile id.
func (d *DtTileCache) encodeTileId(salt uint32, it int) DtCompressedTileRef {
	return DtCompressedTileRef(salt<<d.m_tileBits | uint32(it))
}

// / Decodes a tile salt.
func (d *DtTileCache) decodeTileIdSalt(ref DtCompressedTileRef) uint32 {
	saltMask := uint32(1)<<d.m_saltBits - 1
	return (uint32(ref) >> d.m_tileBits) & saltMask
}

// / Decodes a tile id.
func (d *DtTileCache) decodeTileIdTile(ref DtCompressedTileRef) uint32 {
	tileMask := uint32(1)<<d.m_tileBits - 1
	return uint32(ref) & tileMask
}

// / Encodes an obstacle id.
func encodeObstacleId(salt uint16, it int) DtObstacleRef {
	return DtObstacleRef(uint32(salt)<<16 | uint32(it))
}

// / Decodes an obstacle salt.
func decodeObstacleIdSalt(ref DtObstacleRef) uint16 {
	return uint16(uint32(ref) >> 16)
}

// / Decodes an obstacle id.
func decodeObstacleIdObstacle(ref DtObstacleRef) int {
	return int(uint32(ref) & 0xffff)
}

func (d *DtTileCache) Init(params *DtTileCacheParams, talloc DtTileCacheAlloc,
	tcomp DtTileCacheCompressor, tmproc DtTileCacheMeshProcess) detour.DtStatus {
	if params == nil || talloc == nil || tcomp == nil {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	if params.MaxTiles <= 0 || params.MaxObstacles <= 0 || params.MaxObstacles > 0xffff ||
		params.Width <= 0 || params.Width > 255 || params.Height <= 0 || params.Height > 255 ||
		params.Cs <= 0 || params.Ch <= 0 {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	p := *params
	d.m_params = &p
	d.m_talloc = talloc
	d.m_tcomp = tcomp
	d.m_tmproc = tmproc
	d.m_reqs = make([]ObstacleRequest, 0, TileCache_MAX_REQUESTS)
	d.m_update = make([]DtCompressedTileRef, 0, TileCache_MAX_UPDATE)

	// Alloc space for obstacles.
	d.m_obstacles = make([]*DtTileCacheObstacle, p.MaxObstacles)
	d.m_nextFreeObstacle = nil
	for i := p.MaxObstacles - 1; i >= 0; i-- {
		d.m_obstacles[i] = &DtTileCacheObstacle{
			salt:  1,
			index: i,
			next:  d.m_nextFreeObstacle,
		}
		d.m_nextFreeObstacle = d.m_obstacles[i]
	}

	// Init tiles
	d.m_tileLutSize = int32(common.NextPow2(uint32(p.MaxTiles / 4)))
	if d.m_tileLutSize == 0 {
		d.m_tileLutSize = 1
	}
	d.m_tileLutMask = d.m_tileLutSize - 1

	d.m_tiles = make([]*DtCompressedTile, p.MaxTiles)
	d.m_posLookup = make([]*DtCompressedTile, d.m_tileLutSize)
	d.m_nextFreeTile = nil
	for i := p.MaxTiles - 1; i >= 0; i-- {
		d.m_tiles[i] = &DtCompressedTile{
			salt:  1,
			index: i,
			next:  d.m_nextFreeTile,
		}
		d.m_nextFreeTile = d.m_tiles[i]
	}

	// Init ID generator values.
	d.m_tileBits = common.Ilog2(common.NextPow2(uint32(p.MaxTiles)))
	// Only allow 31 salt bits, since the salt mask is calculated using 32bit uint and it will overflow.
	d.m_saltBits = min(31, 32-d.m_tileBits)
	if d.m_saltBits < 10 {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	return detour.DT_SUCCESS
}

func (d *DtTileCache) GetTilesAt(tx, ty int32) []DtCompressedTileRef {
	var tiles []DtCompressedTileRef
	// Find tile based on hash.
	h := common.ComputeTileHash(tx, ty, d.m_tileLutMask)
	for tile := d.m_posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil && tile.Header.Tx == tx && tile.Header.Ty == ty {
			tiles = append(tiles, d.GetTileRef(tile))
		}
	}
	return tiles
}

func (d *DtTileCache) GetTileAt(tx, ty, tlayer int32) *DtCompressedTile {
	// Find tile based on hash.
	h := common.ComputeTileHash(tx, ty, d.m_tileLutMask)
	for tile := d.m_posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil && tile.Header.Tx == tx && tile.Header.Ty == ty && tile.Header.Tlayer == tlayer {
			return tile
		}
	}
	return nil
}

func (d *DtTileCache) GetTileRef(tile *DtCompressedTile) DtCompressedTileRef {
	if tile == nil {
		return 0
	}
	return d.encodeTileId(tile.salt, tile.index)
}

func (d *DtTileCache) GetTileByRef(ref DtCompressedTileRef) *DtCompressedTile {
	if ref == 0 {
		return nil
	}
	tileIndex := d.decodeTileIdTile(ref)
	tileSalt := d.decodeTileIdSalt(ref)
	if int(tileIndex) >= len(d.m_tiles) {
		return nil
	}
	tile := d.m_tiles[tileIndex]
	if tile.salt != tileSalt {
		return nil
	}
	return tile
}

func (d *DtTileCache) GetObstacleRef(ob *DtTileCacheObstacle) DtObstacleRef {
	if ob == nil {
		return 0
	}
	return encodeObstacleId(ob.salt, ob.index)
}

func (d *DtTileCache) GetObstacleByRef(ref DtObstacleRef) *DtTileCacheObstacle {
	if ref == 0 {
		return nil
	}
	idx := decodeObstacleIdObstacle(ref)
	if idx >= len(d.m_obstacles) {
		return nil
	}
	ob := d.m_obstacles[idx]
	if ob.salt != decodeObstacleIdSalt(ref) {
		return nil
	}
	return ob
}

// AddTile stores compressed tile data. The tile cache keeps a reference to
// data; flags is recorded for callers that track ownership.
func (d *DtTileCache) AddTile(data []byte, flags int) (DtCompressedTileRef, detour.DtStatus) {
	header, status := DecodeTileCacheLayerHeader(data)
	if status.DtStatusFailed() {
		return 0, status
	}

	// Make sure the location is free.
	if d.GetTileAt(header.Tx, header.Ty, header.Tlayer) != nil {
		return 0, detour.DT_FAILURE | detour.DT_ALREADY_OCCUPIED
	}

	// Allocate a tile.
	if d.m_nextFreeTile == nil {
		return 0, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}
	tile := d.m_nextFreeTile
	d.m_nextFreeTile = tile.next
	tile.next = nil

	// Insert tile into the position lut.
	h := common.ComputeTileHash(header.Tx, header.Ty, d.m_tileLutMask)
	tile.next = d.m_posLookup[h]
	d.m_posLookup[h] = tile

	tile.Header = header
	tile.Data = data
	tile.Flags = flags
	return d.GetTileRef(tile), detour.DT_SUCCESS
}

// RemoveTile frees the tile slot and returns its data.
func (d *DtTileCache) RemoveTile(ref DtCompressedTileRef) ([]byte, detour.DtStatus) {
	if ref == 0 {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	tileIndex := d.decodeTileIdTile(ref)
	tileSalt := d.decodeTileIdSalt(ref)
	if int(tileIndex) >= len(d.m_tiles) {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	tile := d.m_tiles[tileIndex]
	if tile.salt != tileSalt || tile.Header == nil {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	// Remove tile from hash lookup.
	h := common.ComputeTileHash(tile.Header.Tx, tile.Header.Ty, d.m_tileLutMask)
	var prev *DtCompressedTile
	for cur := d.m_posLookup[h]; cur != nil; cur = cur.next {
		if cur == tile {
			if prev != nil {
				prev.next = cur.next
			} else {
				d.m_posLookup[h] = cur.next
			}
			break
		}
		prev = cur
	}

	data := tile.Data
	tile.Header = nil
	tile.Data = nil
	tile.Flags = 0

	// Update salt, salt should never be zero.
	tile.salt = (tile.salt + 1) & (uint32(1)<<d.m_saltBits - 1)
	if tile.salt == 0 {
		tile.salt++
	}

	// Add to free list.
	tile.next = d.m_nextFreeTile
	d.m_nextFreeTile = tile

	d.m_update = slices.DeleteFunc(d.m_update, func(r DtCompressedTileRef) bool { return r == ref })
	d.settleObstacles(ref)
	return data, detour.DT_SUCCESS
}

func (d *DtTileCache) allocObstacle() (*DtTileCacheObstacle, detour.DtStatus) {
	if len(d.m_reqs) >= TileCache_MAX_REQUESTS {
		return nil, detour.DT_FAILURE | detour.DT_BUFFER_TOO_SMALL
	}
	if d.m_nextFreeObstacle == nil {
		return nil, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}
	ob := d.m_nextFreeObstacle
	d.m_nextFreeObstacle = ob.next

	salt, index := ob.salt, ob.index
	*ob = DtTileCacheObstacle{salt: salt, index: index}
	ob.State = DT_OBSTACLE_PROCESSING
	return ob, detour.DT_SUCCESS
}

func (d *DtTileCache) queueAdd(ob *DtTileCacheObstacle) DtObstacleRef {
	ref := d.GetObstacleRef(ob)
	ob.queued++
	d.m_reqs = append(d.m_reqs, ObstacleRequest{action: REQUEST_ADD, ref: ref})
	return ref
}

// / Adds a cylinder obstacle. pos is the center of the base.
func (d *DtTileCache) AddObstacle(pos []float32, radius, height float32) (DtObstacleRef, detour.DtStatus) {
	ob, status := d.allocObstacle()
	if status.DtStatusFailed() {
		return 0, status
	}
	ob.Type = DT_OBSTACLE_CYLINDER
	copy(ob.cylinder.pos[:], pos)
	ob.cylinder.radius = radius
	ob.cylinder.height = height
	return d.queueAdd(ob), detour.DT_SUCCESS
}

// / Adds an axis aligned box obstacle.
func (d *DtTileCache) AddBoxObstacle(bmin, bmax []float32) (DtObstacleRef, detour.DtStatus) {
	ob, status := d.allocObstacle()
	if status.DtStatusFailed() {
		return 0, status
	}
	ob.Type = DT_OBSTACLE_BOX
	copy(ob.box.bmin[:], bmin)
	copy(ob.box.bmax[:], bmax)
	return d.queueAdd(ob), detour.DT_SUCCESS
}

// / Adds a box obstacle rotated by yRadians about the y axis.
func (d *DtTileCache) AddOrientedBoxObstacle(center, halfExtents []float32, yRadians float32) (DtObstacleRef, detour.DtStatus) {
	ob, status := d.allocObstacle()
	if status.DtStatusFailed() {
		return 0, status
	}
	ob.Type = DT_OBSTACLE_ORIENTED_BOX
	copy(ob.orientedBox.center[:], center)
	copy(ob.orientedBox.halfExtents[:], halfExtents)
	ob.orientedBox.rotAux = OrientedBoxRotAux(yRadians)
	return d.queueAdd(ob), detour.DT_SUCCESS
}

// RemoveObstacle queues the obstacle for removal. A stale ref is accepted
// and ignored when the queue is processed.
func (d *DtTileCache) RemoveObstacle(ref DtObstacleRef) detour.DtStatus {
	if ref == 0 {
		return detour.DT_SUCCESS
	}
	if len(d.m_reqs) >= TileCache_MAX_REQUESTS {
		return detour.DT_FAILURE | detour.DT_BUFFER_TOO_SMALL
	}
	if ob := d.GetObstacleByRef(ref); ob != nil {
		ob.queued++
	}
	d.m_reqs = append(d.m_reqs, ObstacleRequest{action: REQUEST_REMOVE, ref: ref})
	return detour.DT_SUCCESS
}

func (d *DtTileCache) QueryTiles(bmin, bmax []float32, maxResults int) []DtCompressedTileRef {
	var results []DtCompressedTileRef
	tw := float32(d.m_params.Width) * d.m_params.Cs
	th := float32(d.m_params.Height) * d.m_params.Cs
	tx0 := int32(common.Floor((bmin[0] - d.m_params.Orig[0]) / tw))
	tx1 := int32(common.Floor((bmax[0] - d.m_params.Orig[0]) / tw))
	ty0 := int32(common.Floor((bmin[2] - d.m_params.Orig[2]) / th))
	ty1 := int32(common.Floor((bmax[2] - d.m_params.Orig[2]) / th))

	var tbmin, tbmax [3]float32
	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			for _, ref := range d.GetTilesAt(tx, ty) {
				if len(results) >= maxResults {
					return results
				}
				tile := d.GetTileByRef(ref)
				d.CalcTightTileBounds(tile.Header, tbmin[:], tbmax[:])
				if common.OverlapBounds(bmin, bmax, tbmin[:], tbmax[:]) {
					results = append(results, ref)
				}
			}
		}
	}
	return results
}

// Update processes queued obstacle requests and rebuilds at most one tile.
// upToDate reports whether no work remains.
func (d *DtTileCache) Update(navmesh *detour.DtNavMesh) (upToDate bool, status detour.DtStatus) {
	if len(d.m_update) == 0 {
		// Process requests.
		var bmin, bmax [3]float32
		for _, req := range d.m_reqs {
			ob := d.GetObstacleByRef(req.ref)
			if ob == nil {
				continue
			}
			ob.queued--
			switch req.action {
			case REQUEST_ADD:
				if ob.State != DT_OBSTACLE_PROCESSING {
					continue
				}
				// Find touched tiles.
				d.GetObstacleBounds(ob, bmin[:], bmax[:])
				ob.touched = d.QueryTiles(bmin[:], bmax[:], DT_MAX_TOUCHED_TILES)
			case REQUEST_REMOVE:
				if ob.State == DT_OBSTACLE_EMPTY {
					continue
				}
				// Prepare to remove obstacle.
				ob.State = DT_OBSTACLE_REMOVING
			}
			// Add tiles to update list.
			ob.pending = ob.pending[:0]
			for _, ref := range ob.touched {
				if len(d.m_update) >= TileCache_MAX_UPDATE {
					break
				}
				if !slices.Contains(d.m_update, ref) {
					d.m_update = append(d.m_update, ref)
				}
				ob.pending = append(ob.pending, ref)
			}
		}
		d.m_reqs = d.m_reqs[:0]
		// Obstacles that touch no tile settle right away.
		d.settleObstacles(0)
	}

	status = detour.DT_SUCCESS
	// Process updates
	if len(d.m_update) > 0 {
		ref := d.m_update[0]
		d.m_update = slices.Delete(d.m_update, 0, 1)
		status = d.BuildNavMeshTile(ref, navmesh)
		d.settleObstacles(ref)
	}

	return len(d.m_update) == 0 && len(d.m_reqs) == 0, status
}

// settleObstacles drops ref from every pending list and finishes the state
// transition of obstacles with nothing left to rebuild. Obstacles with a
// queued request wait for it to be processed.
func (d *DtTileCache) settleObstacles(ref DtCompressedTileRef) {
	for _, ob := range d.m_obstacles {
		if ob.State != DT_OBSTACLE_PROCESSING && ob.State != DT_OBSTACLE_REMOVING {
			continue
		}
		if ob.queued > 0 {
			continue
		}
		if ref != 0 {
			ob.pending = slices.DeleteFunc(ob.pending, func(r DtCompressedTileRef) bool { return r == ref })
		}
		if len(ob.pending) != 0 {
			continue
		}
		switch ob.State {
		case DT_OBSTACLE_PROCESSING:
			ob.State = DT_OBSTACLE_PROCESSED
		case DT_OBSTACLE_REMOVING:
			ob.State = DT_OBSTACLE_EMPTY
			// Update salt, salt should never be zero.
			ob.salt++
			if ob.salt == 0 {
				ob.salt++
			}
			// Return obstacle to free list.
			ob.next = d.m_nextFreeObstacle
			d.m_nextFreeObstacle = ob
		}
	}
}

func (d *DtTileCache) BuildNavMeshTilesAt(tx, ty int32, navmesh *detour.DtNavMesh) detour.DtStatus {
	for _, ref := range d.GetTilesAt(tx, ty) {
		status := d.BuildNavMeshTile(ref, navmesh)
		if status.DtStatusFailed() {
			return status
		}
	}
	return detour.DT_SUCCESS
}

// BuildNavMeshTile decompresses a tile, carves the active obstacles into it
// and replaces the matching navmesh tile.
func (d *DtTileCache) BuildNavMeshTile(ref DtCompressedTileRef, navmesh *detour.DtNavMesh) detour.DtStatus {
	tile := d.GetTileByRef(ref)
	if tile == nil || navmesh == nil {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	d.m_talloc.Reset()
	layer, status := DtDecompressTileCacheLayer(d.m_talloc, d.m_tcomp, tile.Data)
	if status.DtStatusFailed() {
		return status
	}

	walkableClimbVx := int(d.m_params.WalkableClimb / d.m_params.Ch)

	// Rasterize obstacles.
	for _, ob := range d.m_obstacles {
		if ob.State == DT_OBSTACLE_EMPTY || ob.State == DT_OBSTACLE_REMOVING {
			continue
		}
		if !slices.Contains(ob.touched, ref) {
			continue
		}
		switch ob.Type {
		case DT_OBSTACLE_CYLINDER:
			DtMarkCylinderArea(layer, tile.Header.Bmin[:], d.m_params.Cs, d.m_params.Ch,
				ob.cylinder.pos[:], ob.cylinder.radius, ob.cylinder.height, DT_TILECACHE_NULL_AREA)
		case DT_OBSTACLE_BOX:
			DtMarkBoxArea(layer, tile.Header.Bmin[:], d.m_params.Cs, d.m_params.Ch,
				ob.box.bmin[:], ob.box.bmax[:], DT_TILECACHE_NULL_AREA)
		case DT_OBSTACLE_ORIENTED_BOX:
			DtMarkOrientedBoxArea(layer, tile.Header.Bmin[:], d.m_params.Cs, d.m_params.Ch,
				ob.orientedBox.center[:], ob.orientedBox.halfExtents[:], ob.orientedBox.rotAux[:], DT_TILECACHE_NULL_AREA)
		}
	}

	lmesh, status := DtBuildTileCachePolyMesh(layer, walkableClimbVx)
	if status.DtStatusFailed() {
		return status
	}

	hdr := tile.Header
	// Early out if the mesh tile is empty.
	if lmesh.Npolys == 0 {
		// Remove existing tile.
		navmesh.RemoveTile(navmesh.GetTileRefAt(hdr.Tx, hdr.Ty, hdr.Tlayer))
		return detour.DT_SUCCESS
	}

	params := &detour.DtNavMeshCreateParams{
		Verts:          lmesh.Verts,
		VertCount:      lmesh.Nverts,
		Polys:          lmesh.Polys,
		PolyAreas:      lmesh.Areas,
		PolyFlags:      lmesh.Flags,
		PolyCount:      lmesh.Npolys,
		Nvp:            lmesh.Nvp,
		WalkableHeight: d.m_params.WalkableHeight,
		WalkableRadius: d.m_params.WalkableRadius,
		WalkableClimb:  d.m_params.WalkableClimb,
		TileX:          hdr.Tx,
		TileY:          hdr.Ty,
		TileLayer:      hdr.Tlayer,
		Cs:             d.m_params.Cs,
		Ch:             d.m_params.Ch,
		BuildBvTree:    false,
		Bmin:           hdr.Bmin,
		Bmax:           hdr.Bmax,
	}

	if d.m_tmproc != nil {
		d.m_tmproc.Process(params, lmesh.Areas, lmesh.Flags)
	}

	navData, ok := detour.DtCreateNavMeshData(params)
	if !ok {
		return detour.DT_FAILURE
	}

	// Remove existing tile.
	navmesh.RemoveTile(navmesh.GetTileRefAt(hdr.Tx, hdr.Ty, hdr.Tlayer))

	// Add new tile, or leave the location empty.
	if _, status = navmesh.AddTile(navData, detour.DT_TILE_FREE_DATA, 0); status.DtStatusFailed() {
		return status
	}
	return detour.DT_SUCCESS
}

func (d *DtTileCache) CalcTightTileBounds(header *DtTileCacheLayerHeader, bmin, bmax []float32) {
	cs := d.m_params.Cs
	bmin[0] = header.Bmin[0] + float32(header.Minx)*cs
	bmin[1] = header.Bmin[1]
	bmin[2] = header.Bmin[2] + float32(header.Miny)*cs
	bmax[0] = header.Bmin[0] + float32(header.Maxx+1)*cs
	bmax[1] = header.Bmax[1]
	bmax[2] = header.Bmin[2] + float32(header.Maxy+1)*cs
}

func (d *DtTileCache) GetObstacleBounds(ob *DtTileCacheObstacle, bmin, bmax []float32) {
	switch ob.Type {
	case DT_OBSTACLE_CYLINDER:
		cl := &ob.cylinder
		bmin[0] = cl.pos[0] - cl.radius
		bmin[1] = cl.pos[1]
		bmin[2] = cl.pos[2] - cl.radius
		bmax[0] = cl.pos[0] + cl.radius
		bmax[1] = cl.pos[1] + cl.height
		bmax[2] = cl.pos[2] + cl.radius
	case DT_OBSTACLE_BOX:
		copy(bmin, ob.box.bmin[:])
		copy(bmax, ob.box.bmax[:])
	case DT_OBSTACLE_ORIENTED_BOX:
		orientedBox := &ob.orientedBox
		maxr := 1.41 * max(orientedBox.halfExtents[0], orientedBox.halfExtents[2])
		bmin[0] = orientedBox.center[0] - maxr
		bmax[0] = orientedBox.center[0] + maxr
		bmin[1] = orientedBox.center[1] - orientedBox.halfExtents[1]
		bmax[1] = orientedBox.center[1] + orientedBox.halfExtents[1]
		bmin[2] = orientedBox.center[2] - maxr
		bmax[2] = orientedBox.center[2] + maxr
	}
}

// GetCompressedSize is the total size of stored tile data.
func (d *DtTileCache) GetCompressedSize() int {
	n := 0
	for _, tile := range d.m_tiles {
		n += len(tile.Data)
	}
	return n
}

// GetRawSize is the size stored tiles would take uncompressed.
func (d *DtTileCache) GetRawSize() int {
	n := 0
	for _, tile := range d.m_tiles {
		if tile.Header != nil {
			n += DT_TILECACHE_HEADER_SIZE + int(tile.Header.Width)*int(tile.Header.Height)*3
		}
	}
	return n
}

// Destroy releases all tiles and obstacles. The cache must be re-initialized
// before further use.
func (d *DtTileCache) Destroy() {
	*d = DtTileCache{}
}
