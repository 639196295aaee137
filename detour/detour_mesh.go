package detour

const (
	// / The maximum number of vertices per navigation polygon.
	DT_VERTS_PER_POLYGON = 6

	// / A magic number used to detect compatibility of navigation tile data.
	DT_NAVMESH_MAGIC = 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V'

	// / A version number used to detect compatibility of navigation tile data.
	DT_NAVMESH_VERSION = 7

	// / The maximum number of user defined area ids.
	DT_MAX_AREAS = 64

	DT_NULL_IDX = 0xffff
)

const (
	// / The polygon is a standard convex polygon that is part of the surface of the mesh.
	DT_POLYTYPE_GROUND = 0
	// / The polygon is an off-mesh connection consisting of two vertices.
	DT_POLYTYPE_OFFMESH_CONNECTION = 1
)

// / The navigation mesh owns the tile memory and is responsible for freeing it.
const DT_TILE_FREE_DATA = 0x01

const DT_SALT_BITS = 16

type DtPolyRef uint32
type DtTileRef uint32

// / Defines a polygon within a DtMeshTile object.
type DtPoly struct {
	// / The indices of the polygon's vertices.
	Verts [DT_VERTS_PER_POLYGON]uint16

	// / The user defined polygon flags.
	Flags uint16

	// / The number of vertices in the polygon.
	VertCount uint8

	// / The bit packed area id and polygon type.
	AreaAndtype uint8
}

func (p *DtPoly) SetArea(a uint8) {
	p.AreaAndtype = (p.AreaAndtype & 0xc0) | (a & 0x3f)
}

func (p *DtPoly) SetType(t uint8) {
	p.AreaAndtype = (p.AreaAndtype & 0x3f) | (t << 6)
}

func (p *DtPoly) GetArea() uint8 {
	return p.AreaAndtype & 0x3f
}

func (p *DtPoly) GetType() uint8 {
	return p.AreaAndtype >> 6
}

// / Provides high level information related to a DtMeshTile object.
type DtMeshHeader struct {
	Magic          int32
	Version        int32
	X, Y, Layer    int32
	UserId         uint32
	PolyCount      int32
	VertCount      int32
	WalkableHeight float32
	WalkableRadius float32
	WalkableClimb  float32
	Bmin, Bmax     [3]float32
	// / The bounding volume quantization factor.
	BvQuantFactor float32
}

// DtMeshData is the payload produced by DtCreateNavMeshData and owned by a tile once added.
type DtMeshData struct {
	Header *DtMeshHeader
	Verts  []float32 // 3 floats per vertex, world space
	Polys  []DtPoly
}

// / Defines a navigation mesh tile.
type DtMeshTile struct {
	salt   uint32
	index  int
	Header *DtMeshHeader
	Verts  []float32
	Polys  []DtPoly
	Data   *DtMeshData
	Flags  int
	Next   *DtMeshTile
}

func (t *DtMeshTile) Salt() uint32 { return t.salt }
