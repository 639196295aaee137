package detour_tile_cache

import (
	"math"

	"github.com/gorustyt/navcache/common"
	"github.com/gorustyt/navcache/common/rw"
	"github.com/gorustyt/navcache/detour"
)

const DT_TILECACHE_MAGIC = 'D'<<24 | 'T'<<16 | 'L'<<8 | 'R' ///< 'DTLR';
const DT_TILECACHE_VERSION = 1

const DT_TILECACHE_NULL_AREA = 0
const DT_TILECACHE_WALKABLE_AREA = 63
const DT_TILECACHE_NULL_IDX = 0xffff

// Encoded size of DtTileCacheLayerHeader.
const DT_TILECACHE_HEADER_SIZE = 5*4 + 6*4 + 2*2 + 6

type DtTileCacheLayerHeader struct {
	Magic                  int32 ///< Data magic
	Version                int32 ///< Data version
	Tx, Ty, Tlayer         int32
	Bmin, Bmax             [3]float32
	Hmin, Hmax             uint16 ///< Height min/max range
	Width, Height          uint8  ///< Dimension of the layer.
	Minx, Maxx, Miny, Maxy uint8  ///< Usable sub-region.
}

func (h *DtTileCacheLayerHeader) ToBin(w *rw.ReaderWriter) {
	w.WriteInt32(h.Magic)
	w.WriteInt32(h.Version)
	w.WriteInt32(h.Tx)
	w.WriteInt32(h.Ty)
	w.WriteInt32(h.Tlayer)
	w.WriteFloat32s(h.Bmin[:])
	w.WriteFloat32s(h.Bmax[:])
	w.WriteUInt16(h.Hmin)
	w.WriteUInt16(h.Hmax)
	w.WriteUInt8(h.Width)
	w.WriteUInt8(h.Height)
	w.WriteUInt8(h.Minx)
	w.WriteUInt8(h.Maxx)
	w.WriteUInt8(h.Miny)
	w.WriteUInt8(h.Maxy)
}

func (h *DtTileCacheLayerHeader) FromBin(r *rw.ReaderWriter) error {
	h.Magic = r.ReadInt32()
	h.Version = r.ReadInt32()
	h.Tx = r.ReadInt32()
	h.Ty = r.ReadInt32()
	h.Tlayer = r.ReadInt32()
	r.ReadFloat32s(h.Bmin[:])
	r.ReadFloat32s(h.Bmax[:])
	h.Hmin = r.ReadUInt16()
	h.Hmax = r.ReadUInt16()
	h.Width = r.ReadUInt8()
	h.Height = r.ReadUInt8()
	h.Minx = r.ReadUInt8()
	h.Maxx = r.ReadUInt8()
	h.Miny = r.ReadUInt8()
	h.Maxy = r.ReadUInt8()
	return r.Err()
}

// DecodeTileCacheLayerHeader reads the uncompressed header at the start of tile data.
func DecodeTileCacheLayerHeader(data []byte) (*DtTileCacheLayerHeader, detour.DtStatus) {
	header := &DtTileCacheLayerHeader{}
	if err := header.FromBin(rw.NewReader(data)); err != nil {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	if header.Magic != DT_TILECACHE_MAGIC {
		return nil, detour.DT_FAILURE | detour.DT_WRONG_MAGIC
	}
	if header.Version != DT_TILECACHE_VERSION {
		return nil, detour.DT_FAILURE | detour.DT_WRONG_VERSION
	}
	return header, detour.DT_SUCCESS
}

// DtTileCacheLayer is a decompressed tile. Heights, Areas and Cons hold one byte
// per cell; Cons keeps one bit per walkable 4-neighbour.
type DtTileCacheLayer struct {
	Header   *DtTileCacheLayerHeader
	RegCount int
	Heights  []uint8
	Areas    []uint8
	Cons     []uint8
	Regs     []uint8
}

type DtTileCachePolyMesh struct {
	Nvp    int
	Nverts int      ///< Number of vertices.
	Npolys int      ///< Number of polygons.
	Verts  []uint16 ///< Vertices of the mesh, 3 elements per vertex.
	Polys  []uint16 ///< Polygons of the mesh, nvp elements per polygon.
	Flags  []uint16 ///< Per polygon flags.
	Areas  []uint8  ///< Area ID of polygons.
}

type DtTileCacheCompressor interface {
	MaxCompressedSize(bufferSize int) int
	Compress(buffer []byte) ([]byte, detour.DtStatus)
	Decompress(compressed []byte, buffer []byte) (int, detour.DtStatus)
}

// DtTileCacheMeshProcess classifies the polygons of a freshly built tile
// before it is committed to the navmesh. polyAreas and polyFlags must not be
// retained after Process returns.
type DtTileCacheMeshProcess interface {
	Process(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16)
}

// TileCacheBuilder exposes the layer codec as a stateless service.
type TileCacheBuilder struct{}

func (TileCacheBuilder) BuildTileCacheLayer(comp DtTileCacheCompressor, header *DtTileCacheLayerHeader,
	heights, areas, cons []uint8) ([]byte, detour.DtStatus) {
	return DtBuildTileCacheLayer(comp, header, heights, areas, cons)
}

func (TileCacheBuilder) DecompressTileCacheLayer(alloc DtTileCacheAlloc, comp DtTileCacheCompressor,
	data []byte) (*DtTileCacheLayer, detour.DtStatus) {
	return DtDecompressTileCacheLayer(alloc, comp, data)
}

// DtBuildTileCacheLayer packs a layer grid into compressed tile data:
// the raw header followed by compressed heights|areas|cons.
func DtBuildTileCacheLayer(comp DtTileCacheCompressor, header *DtTileCacheLayerHeader,
	heights, areas, cons []uint8) ([]byte, detour.DtStatus) {
	if comp == nil || header == nil {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	gridSize := int(header.Width) * int(header.Height)
	if gridSize == 0 || len(heights) < gridSize || len(areas) < gridSize || len(cons) < gridSize {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	buffer := make([]byte, 0, gridSize*3)
	buffer = append(buffer, heights[:gridSize]...)
	buffer = append(buffer, areas[:gridSize]...)
	buffer = append(buffer, cons[:gridSize]...)

	compressed, status := comp.Compress(buffer)
	if status.DtStatusFailed() {
		return nil, status
	}

	w := rw.NewWriter()
	hdr := *header
	hdr.Magic = DT_TILECACHE_MAGIC
	hdr.Version = DT_TILECACHE_VERSION
	hdr.ToBin(w)
	w.WriteBytes(compressed)
	return w.GetWriteBytes(), detour.DT_SUCCESS
}

// DtDecompressTileCacheLayer unpacks tile data into memory taken from alloc.
func DtDecompressTileCacheLayer(alloc DtTileCacheAlloc, comp DtTileCacheCompressor,
	data []byte) (*DtTileCacheLayer, detour.DtStatus) {
	if alloc == nil || comp == nil {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	header, status := DecodeTileCacheLayerHeader(data)
	if status.DtStatusFailed() {
		return nil, status
	}
	gridSize := int(header.Width) * int(header.Height)
	buffer := alloc.Alloc(gridSize * 3)
	if buffer == nil {
		return nil, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}
	n, status := comp.Decompress(data[DT_TILECACHE_HEADER_SIZE:], buffer)
	if status.DtStatusFailed() {
		return nil, status
	}
	if n != gridSize*3 {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	return &DtTileCacheLayer{
		Header:  header,
		Heights: buffer[:gridSize],
		Areas:   buffer[gridSize : gridSize*2],
		Cons:    buffer[gridSize*2 : gridSize*3],
	}, detour.DT_SUCCESS
}

func clampCellRange(minx, maxx, minz, maxz, w, h int) (int, int, int, int, bool) {
	if maxx < 0 || minx >= w || maxz < 0 || minz >= h {
		return 0, 0, 0, 0, false
	}
	return max(minx, 0), min(maxx, w-1), max(minz, 0), min(maxz, h-1), true
}

func DtMarkCylinderArea(layer *DtTileCacheLayer, orig []float32, cs, ch float32,
	pos []float32, radius, height float32, areaId uint8) detour.DtStatus {
	bmin := [3]float32{pos[0] - radius, pos[1], pos[2] - radius}
	bmax := [3]float32{pos[0] + radius, pos[1] + height, pos[2] + radius}
	r2 := common.Sqr(radius/cs + 0.5)

	w := int(layer.Header.Width)
	h := int(layer.Header.Height)
	ics := 1.0 / cs
	ich := 1.0 / ch

	px := (pos[0] - orig[0]) * ics
	pz := (pos[2] - orig[2]) * ics

	minx, maxx, minz, maxz, ok := clampCellRange(
		common.Floor((bmin[0]-orig[0])*ics), common.Floor((bmax[0]-orig[0])*ics),
		common.Floor((bmin[2]-orig[2])*ics), common.Floor((bmax[2]-orig[2])*ics), w, h)
	if !ok {
		return detour.DT_SUCCESS
	}
	miny := common.Floor((bmin[1] - orig[1]) * ich)
	maxy := common.Floor((bmax[1] - orig[1]) * ich)

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			dx := float32(x) + 0.5 - px
			dz := float32(z) + 0.5 - pz
			if dx*dx+dz*dz > r2 {
				continue
			}
			y := int(layer.Heights[x+z*w])
			if y < miny || y > maxy {
				continue
			}
			layer.Areas[x+z*w] = areaId
		}
	}
	return detour.DT_SUCCESS
}

func DtMarkBoxArea(layer *DtTileCacheLayer, orig []float32, cs, ch float32,
	bmin, bmax []float32, areaId uint8) detour.DtStatus {
	w := int(layer.Header.Width)
	h := int(layer.Header.Height)
	ics := 1.0 / cs
	ich := 1.0 / ch

	minx, maxx, minz, maxz, ok := clampCellRange(
		common.Floor((bmin[0]-orig[0])*ics), common.Floor((bmax[0]-orig[0])*ics),
		common.Floor((bmin[2]-orig[2])*ics), common.Floor((bmax[2]-orig[2])*ics), w, h)
	if !ok {
		return detour.DT_SUCCESS
	}
	miny := common.Floor((bmin[1] - orig[1]) * ich)
	maxy := common.Floor((bmax[1] - orig[1]) * ich)

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			y := int(layer.Heights[x+z*w])
			if y < miny || y > maxy {
				continue
			}
			layer.Areas[x+z*w] = areaId
		}
	}
	return detour.DT_SUCCESS
}

// DtMarkOrientedBoxArea marks a box rotated about the y axis. rotAux holds
// {cos(a/2)*sin(-a/2), cos(a/2)*cos(a/2) - 0.5}.
func DtMarkOrientedBoxArea(layer *DtTileCacheLayer, orig []float32, cs, ch float32,
	center, halfExtents, rotAux []float32, areaId uint8) detour.DtStatus {
	w := int(layer.Header.Width)
	h := int(layer.Header.Height)
	ics := 1.0 / cs
	ich := 1.0 / ch

	cx := (center[0] - orig[0]) * ics
	cz := (center[2] - orig[2]) * ics

	maxr := 1.41 * max(halfExtents[0], halfExtents[2])
	minx, maxx, minz, maxz, ok := clampCellRange(
		common.Floor(cx-maxr*ics), common.Floor(cx+maxr*ics),
		common.Floor(cz-maxr*ics), common.Floor(cz+maxr*ics), w, h)
	if !ok {
		return detour.DT_SUCCESS
	}
	miny := common.Floor((center[1] - halfExtents[1] - orig[1]) * ich)
	maxy := common.Floor((center[1] + halfExtents[1] - orig[1]) * ich)

	xhalf := halfExtents[0]*ics + 0.5
	zhalf := halfExtents[2]*ics + 0.5

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			x2 := 2.0 * (float32(x) - cx)
			z2 := 2.0 * (float32(z) - cz)
			xrot := rotAux[1]*x2 + rotAux[0]*z2
			if xrot > xhalf || xrot < -xhalf {
				continue
			}
			zrot := rotAux[1]*z2 - rotAux[0]*x2
			if zrot > zhalf || zrot < -zhalf {
				continue
			}
			y := int(layer.Heights[x+z*w])
			if y < miny || y > maxy {
				continue
			}
			layer.Areas[x+z*w] = areaId
		}
	}
	return detour.DT_SUCCESS
}

// OrientedBoxRotAux precomputes the rotation terms used by DtMarkOrientedBoxArea.
func OrientedBoxRotAux(yRadians float32) [2]float32 {
	coshalf := math.Cos(0.5 * float64(yRadians))
	sinhalf := math.Sin(-0.5 * float64(yRadians))
	return [2]float32{float32(coshalf * sinhalf), float32(coshalf*coshalf) - 0.5}
}

// DtBuildTileCachePolyMesh merges walkable cells of equal area into
// axis-aligned quads. Cells merge across an edge only when the edge is
// connected in Cons and the height step is within walkableClimb.
func DtBuildTileCachePolyMesh(layer *DtTileCacheLayer, walkableClimb int) (*DtTileCachePolyMesh, detour.DtStatus) {
	hdr := layer.Header
	w := int(hdr.Width)
	nvp := detour.DT_VERTS_PER_POLYGON
	mesh := &DtTileCachePolyMesh{Nvp: nvp}
	used := make([]bool, len(layer.Areas))
	vertIndex := map[[3]uint16]uint16{}

	addVert := func(x, y, z int) (uint16, bool) {
		key := [3]uint16{uint16(x), uint16(y), uint16(z)}
		if idx, ok := vertIndex[key]; ok {
			return idx, true
		}
		if mesh.Nverts >= DT_TILECACHE_NULL_IDX-1 {
			return 0, false
		}
		idx := uint16(mesh.Nverts)
		vertIndex[key] = idx
		mesh.Verts = append(mesh.Verts, key[:]...)
		mesh.Nverts++
		return idx, true
	}

	mergeable := func(from, dir, to int, area, hgt uint8) bool {
		if layer.Cons[from]&(1<<dir) == 0 {
			return false
		}
		if used[to] || layer.Areas[to] != area {
			return false
		}
		return common.Abs(int(layer.Heights[to])-int(hgt)) <= walkableClimb
	}

	for y := int(hdr.Miny); y <= int(hdr.Maxy); y++ {
		for x := int(hdr.Minx); x <= int(hdr.Maxx); x++ {
			i := x + y*w
			if used[i] || layer.Areas[i] == DT_TILECACHE_NULL_AREA {
				continue
			}
			area := layer.Areas[i]
			hgt := layer.Heights[i]

			// Grow along +x.
			x1 := x
			for x1 < int(hdr.Maxx) && mergeable(x1+y*w, 2, x1+1+y*w, area, hgt) {
				x1++
			}
			// Grow along +y while the whole next row joins.
			y1 := y
			for y1 < int(hdr.Maxy) {
				ok := true
				for xx := x; xx <= x1 && ok; xx++ {
					ok = mergeable(xx+y1*w, 1, xx+(y1+1)*w, area, hgt)
					if ok && xx < x1 {
						ok = layer.Cons[xx+(y1+1)*w]&(1<<2) != 0
					}
				}
				if !ok {
					break
				}
				y1++
			}
			for yy := y; yy <= y1; yy++ {
				for xx := x; xx <= x1; xx++ {
					used[xx+yy*w] = true
				}
			}

			corners := [4][2]int{{x, y}, {x, y1 + 1}, {x1 + 1, y1 + 1}, {x1 + 1, y}}
			poly := make([]uint16, nvp)
			for j := range poly {
				poly[j] = DT_TILECACHE_NULL_IDX
			}
			for j, c := range corners {
				idx, ok := addVert(c[0], int(hgt), c[1])
				if !ok {
					return nil, detour.DT_FAILURE | detour.DT_BUFFER_TOO_SMALL
				}
				poly[j] = idx
			}
			mesh.Polys = append(mesh.Polys, poly...)
			mesh.Areas = append(mesh.Areas, area)
			mesh.Flags = append(mesh.Flags, 0)
			mesh.Npolys++
		}
	}
	return mesh, detour.DT_SUCCESS
}
