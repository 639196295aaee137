package detour

import (
	"math"

	"github.com/gorustyt/navcache/common"
)

// / Configuration parameters used to define multi-tile navigation meshes.
type DtNavMeshParams struct {
	Orig       [3]float32 ///< The world space origin of the navigation mesh's tile space.
	TileWidth  float32    ///< The width of each tile. (Along the x-axis.)
	TileHeight float32    ///< The height of each tile. (Along the z-axis.)
	MaxTiles   int        ///< The maximum number of tiles the navigation mesh can contain.
	MaxPolys   int        ///< The maximum number of polygons each tile can contain.
}

// DtNavMesh is the live, tiled navigation mesh that the tile cache rebuilds into.
type DtNavMesh struct {
	m_params      DtNavMeshParams
	m_orig        [3]float32
	m_tileWidth   float32
	m_tileHeight  float32
	m_maxTiles    int
	m_tileLutSize int32
	m_tileLutMask int32
	m_posLookup   []*DtMeshTile
	m_nextFree    *DtMeshTile
	m_tiles       []*DtMeshTile
	m_tileCount   int

	m_saltBits uint32
	m_tileBits uint32
	m_polyBits uint32
}

// / Initializes the navigation mesh for tiled use.
func (mesh *DtNavMesh) Init(params *DtNavMeshParams) DtStatus {
	if params == nil || params.MaxTiles <= 0 || params.MaxPolys <= 0 ||
		params.TileWidth <= 0 || params.TileHeight <= 0 {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	mesh.m_params = *params
	mesh.m_orig = params.Orig
	mesh.m_tileWidth = params.TileWidth
	mesh.m_tileHeight = params.TileHeight

	// Init tiles
	mesh.m_maxTiles = params.MaxTiles
	mesh.m_tileLutSize = int32(common.NextPow2(uint32(params.MaxTiles / 4)))
	if mesh.m_tileLutSize == 0 {
		mesh.m_tileLutSize = 1
	}
	mesh.m_tileLutMask = mesh.m_tileLutSize - 1
	mesh.m_posLookup = make([]*DtMeshTile, mesh.m_tileLutSize)
	mesh.m_tiles = make([]*DtMeshTile, mesh.m_maxTiles)
	mesh.m_nextFree = nil
	for i := mesh.m_maxTiles - 1; i >= 0; i-- {
		mesh.m_tiles[i] = &DtMeshTile{salt: 1, index: i, Next: mesh.m_nextFree}
		mesh.m_nextFree = mesh.m_tiles[i]
	}
	mesh.m_tileCount = 0

	// Init ID generator values.
	mesh.m_tileBits = common.Ilog2(common.NextPow2(uint32(params.MaxTiles)))
	mesh.m_polyBits = common.Ilog2(common.NextPow2(uint32(params.MaxPolys)))
	// Only allow 31 salt bits, since the salt mask is calculated using 32bit uint and it will overflow.
	mesh.m_saltBits = min(31, 32-mesh.m_tileBits-mesh.m_polyBits)
	if mesh.m_tileBits+mesh.m_polyBits >= 32 || mesh.m_saltBits < 10 {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	return DT_SUCCESS
}

func (mesh *DtNavMesh) GetParams() *DtNavMeshParams {
	return &mesh.m_params
}

// / Derives a standard polygon reference.
func (mesh *DtNavMesh) EncodePolyId(salt, it, ip uint32) DtPolyRef {
	return DtPolyRef((salt << (mesh.m_polyBits + mesh.m_tileBits)) | (it << mesh.m_polyBits) | ip)
}

// / Decodes a standard polygon reference.
func (mesh *DtNavMesh) DecodePolyId(ref DtPolyRef) (salt, it, ip uint32) {
	saltMask := (uint32(1) << mesh.m_saltBits) - 1
	tileMask := (uint32(1) << mesh.m_tileBits) - 1
	polyMask := (uint32(1) << mesh.m_polyBits) - 1
	salt = (uint32(ref) >> (mesh.m_polyBits + mesh.m_tileBits)) & saltMask
	it = (uint32(ref) >> mesh.m_polyBits) & tileMask
	ip = uint32(ref) & polyMask
	return
}

// / Calculates the tile grid location for the specified world position.
func (mesh *DtNavMesh) CalcTileLoc(pos common.Vec3) (tx, ty int32) {
	tx = int32(math.Floor(float64((pos[0] - mesh.m_orig[0]) / mesh.m_tileWidth)))
	ty = int32(math.Floor(float64((pos[2] - mesh.m_orig[2]) / mesh.m_tileHeight)))
	return tx, ty
}

func (mesh *DtNavMesh) GetMaxTiles() int { return mesh.m_maxTiles }

// TileCount returns the number of tiles currently holding data.
func (mesh *DtNavMesh) TileCount() int { return mesh.m_tileCount }

func (mesh *DtNavMesh) GetTile(i int) *DtMeshTile { return mesh.m_tiles[i] }

func (mesh *DtNavMesh) GetTileRef(tile *DtMeshTile) DtTileRef {
	if tile == nil {
		return 0
	}
	return DtTileRef(mesh.EncodePolyId(tile.salt, uint32(tile.index), 0))
}

// / Gets the polygon reference for the tile's base polygon.
func (mesh *DtNavMesh) GetPolyRefBase(tile *DtMeshTile) DtPolyRef {
	if tile == nil {
		return 0
	}
	return mesh.EncodePolyId(tile.salt, uint32(tile.index), 0)
}

func (mesh *DtNavMesh) GetTileAt(x, y, layer int32) *DtMeshTile {
	// Find tile based on hash.
	h := common.ComputeTileHash(x, y, mesh.m_tileLutMask)
	tile := mesh.m_posLookup[h]
	for tile != nil {
		if tile.Header != nil && tile.Header.X == x && tile.Header.Y == y && tile.Header.Layer == layer {
			return tile
		}
		tile = tile.Next
	}
	return nil
}

func (mesh *DtNavMesh) GetTileRefAt(x, y, layer int32) DtTileRef {
	return mesh.GetTileRef(mesh.GetTileAt(x, y, layer))
}

// / Gets all tiles at the specified grid location. (All layers.)
func (mesh *DtNavMesh) GetTilesAt(x, y int32) []*DtMeshTile {
	var tiles []*DtMeshTile
	h := common.ComputeTileHash(x, y, mesh.m_tileLutMask)
	tile := mesh.m_posLookup[h]
	for tile != nil {
		if tile.Header != nil && tile.Header.X == x && tile.Header.Y == y {
			tiles = append(tiles, tile)
		}
		tile = tile.Next
	}
	return tiles
}

func (mesh *DtNavMesh) getTileByRef(ref DtTileRef) (*DtMeshTile, DtStatus) {
	if ref == 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	salt, it, _ := mesh.DecodePolyId(DtPolyRef(ref))
	if int(it) >= mesh.m_maxTiles {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tile := mesh.m_tiles[it]
	if tile.salt != salt || tile.Header == nil {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	return tile, DT_SUCCESS
}

// / Adds a tile to the navigation mesh.
// / When lastRef is non-zero the tile is restored to the slot and salt it was
// / removed from, so previously issued polygon references stay valid.
func (mesh *DtNavMesh) AddTile(data *DtMeshData, flags int, lastRef DtTileRef) (result DtTileRef, status DtStatus) {
	if data == nil || data.Header == nil {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	// Make sure the data is in right format.
	header := data.Header
	if header.Magic != DT_NAVMESH_MAGIC {
		return 0, DT_FAILURE | DT_WRONG_MAGIC
	}
	if header.Version != DT_NAVMESH_VERSION {
		return 0, DT_FAILURE | DT_WRONG_VERSION
	}

	// Do not allow adding more polygons than specified in the NavMesh's maxPolys constraint.
	// Otherwise, the poly ID cannot be represented with the given number of bits.
	if mesh.m_polyBits < common.Ilog2(common.NextPow2(uint32(header.PolyCount))) {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}

	// Make sure the location is free.
	if mesh.GetTileAt(header.X, header.Y, header.Layer) != nil {
		return 0, DT_FAILURE | DT_ALREADY_OCCUPIED
	}

	var tile *DtMeshTile
	if lastRef == 0 {
		if mesh.m_nextFree != nil {
			tile = mesh.m_nextFree
			mesh.m_nextFree = tile.Next
			tile.Next = nil
		}
	} else {
		// Try to relocate the tile to specific index with same salt.
		salt, tileIndex, _ := mesh.DecodePolyId(DtPolyRef(lastRef))
		if int(tileIndex) >= mesh.m_maxTiles {
			return 0, DT_FAILURE | DT_OUT_OF_MEMORY
		}
		target := mesh.m_tiles[tileIndex]
		var prev *DtMeshTile
		tile = mesh.m_nextFree
		for tile != nil && tile != target {
			prev = tile
			tile = tile.Next
		}
		// Could not find the correct location.
		if tile != target {
			return 0, DT_FAILURE | DT_OUT_OF_MEMORY
		}
		// Remove from freelist
		if prev == nil {
			mesh.m_nextFree = tile.Next
		} else {
			prev.Next = tile.Next
		}
		tile.Next = nil
		tile.salt = salt
	}

	// Make sure we could allocate a tile.
	if tile == nil {
		return 0, DT_FAILURE | DT_OUT_OF_MEMORY
	}

	// Insert tile into the position lut.
	h := common.ComputeTileHash(header.X, header.Y, mesh.m_tileLutMask)
	tile.Next = mesh.m_posLookup[h]
	mesh.m_posLookup[h] = tile

	tile.Verts = data.Verts
	tile.Polys = data.Polys
	tile.Header = header
	tile.Data = data
	tile.Flags = flags
	mesh.m_tileCount++

	return mesh.GetTileRef(tile), DT_SUCCESS
}

// / Removes the specified tile from the navigation mesh.
// / The tile data is returned unless the navmesh owns it (DT_TILE_FREE_DATA).
func (mesh *DtNavMesh) RemoveTile(ref DtTileRef) (data *DtMeshData, status DtStatus) {
	tile, status := mesh.getTileByRef(ref)
	if status.DtStatusFailed() {
		return nil, status
	}

	// Remove tile from hash lookup.
	h := common.ComputeTileHash(tile.Header.X, tile.Header.Y, mesh.m_tileLutMask)
	var prev *DtMeshTile
	cur := mesh.m_posLookup[h]
	for cur != nil {
		if cur == tile {
			if prev != nil {
				prev.Next = cur.Next
			} else {
				mesh.m_posLookup[h] = cur.Next
			}
			break
		}
		prev = cur
		cur = cur.Next
	}

	// Reset tile.
	if tile.Flags&DT_TILE_FREE_DATA == 0 {
		data = tile.Data
	}
	tile.Data = nil
	tile.Header = nil
	tile.Flags = 0
	tile.Polys = nil
	tile.Verts = nil

	// Update salt, salt should never be zero.
	tile.salt = (tile.salt + 1) & ((1 << mesh.m_saltBits) - 1)
	if tile.salt == 0 {
		tile.salt++
	}

	// Add to free list.
	tile.Next = mesh.m_nextFree
	mesh.m_nextFree = tile
	mesh.m_tileCount--

	return data, DT_SUCCESS
}

func (mesh *DtNavMesh) polyByRef(ref DtPolyRef) (*DtPoly, DtStatus) {
	if ref == 0 {
		return nil, DT_FAILURE
	}
	salt, it, ip := mesh.DecodePolyId(ref)
	if int(it) >= mesh.m_maxTiles {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tile := mesh.m_tiles[it]
	if tile.salt != salt || tile.Header == nil {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if int(ip) >= int(tile.Header.PolyCount) {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	return &tile.Polys[ip], DT_SUCCESS
}

// / Checks the validity of a polygon reference.
func (mesh *DtNavMesh) IsValidPolyRef(ref DtPolyRef) bool {
	_, status := mesh.polyByRef(ref)
	return status.DtStatusSucceed()
}

func (mesh *DtNavMesh) SetPolyFlags(ref DtPolyRef, flags uint16) DtStatus {
	poly, status := mesh.polyByRef(ref)
	if status.DtStatusFailed() {
		return status
	}
	poly.Flags = flags
	return DT_SUCCESS
}

func (mesh *DtNavMesh) GetPolyFlags(ref DtPolyRef) (uint16, DtStatus) {
	poly, status := mesh.polyByRef(ref)
	if status.DtStatusFailed() {
		return 0, status
	}
	return poly.Flags, DT_SUCCESS
}

func (mesh *DtNavMesh) SetPolyArea(ref DtPolyRef, area uint8) DtStatus {
	poly, status := mesh.polyByRef(ref)
	if status.DtStatusFailed() {
		return status
	}
	poly.SetArea(area)
	return DT_SUCCESS
}

func (mesh *DtNavMesh) GetPolyArea(ref DtPolyRef) (uint8, DtStatus) {
	poly, status := mesh.polyByRef(ref)
	if status.DtStatusFailed() {
		return 0, status
	}
	return poly.GetArea(), DT_SUCCESS
}
