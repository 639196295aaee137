package detour

// / Represents the source data used to build a navigation mesh tile.
// / Vertices are in cell coordinates relative to Bmin; Polys holds Nvp vertex
// / indices per polygon, padded with DT_NULL_IDX.
type DtNavMeshCreateParams struct {
	Verts     []uint16
	VertCount int
	Polys     []uint16
	PolyFlags []uint16
	PolyAreas []uint8
	PolyCount int
	Nvp       int

	UserId    uint32
	TileX     int32
	TileY     int32
	TileLayer int32
	Bmin      [3]float32
	Bmax      [3]float32

	WalkableHeight float32
	WalkableRadius float32
	WalkableClimb  float32
	Cs             float32
	Ch             float32

	BuildBvTree bool
}

// NavMeshBuilder exposes DtCreateNavMeshData as a stateless service.
type NavMeshBuilder struct{}

func (NavMeshBuilder) CreateNavMeshData(params *DtNavMeshCreateParams) (*DtMeshData, bool) {
	return DtCreateNavMeshData(params)
}

// / Builds navigation mesh tile data from the provided tile creation data.
func DtCreateNavMeshData(params *DtNavMeshCreateParams) (*DtMeshData, bool) {
	if params == nil || params.Nvp <= 0 || params.Nvp > DT_VERTS_PER_POLYGON {
		return nil, false
	}
	if params.VertCount <= 0 || params.VertCount >= 0xffff || params.PolyCount <= 0 {
		return nil, false
	}
	if len(params.Verts) < params.VertCount*3 || len(params.Polys) < params.PolyCount*params.Nvp ||
		len(params.PolyAreas) < params.PolyCount || len(params.PolyFlags) < params.PolyCount {
		return nil, false
	}

	header := &DtMeshHeader{
		Magic:          DT_NAVMESH_MAGIC,
		Version:        DT_NAVMESH_VERSION,
		X:              params.TileX,
		Y:              params.TileY,
		Layer:          params.TileLayer,
		UserId:         params.UserId,
		PolyCount:      int32(params.PolyCount),
		VertCount:      int32(params.VertCount),
		WalkableHeight: params.WalkableHeight,
		WalkableRadius: params.WalkableRadius,
		WalkableClimb:  params.WalkableClimb,
		Bmin:           params.Bmin,
		Bmax:           params.Bmax,
	}
	if params.Cs > 0 {
		header.BvQuantFactor = 1.0 / params.Cs
	}

	// Store vertices in world space.
	verts := make([]float32, params.VertCount*3)
	for i := 0; i < params.VertCount; i++ {
		iv := params.Verts[i*3 : i*3+3]
		v := verts[i*3 : i*3+3]
		v[0] = params.Bmin[0] + float32(iv[0])*params.Cs
		v[1] = params.Bmin[1] + float32(iv[1])*params.Ch
		v[2] = params.Bmin[2] + float32(iv[2])*params.Cs
	}

	polys := make([]DtPoly, params.PolyCount)
	for i := range polys {
		p := &polys[i]
		src := params.Polys[i*params.Nvp : (i+1)*params.Nvp]
		p.Flags = params.PolyFlags[i]
		p.SetArea(params.PolyAreas[i])
		p.SetType(DT_POLYTYPE_GROUND)
		for j := 0; j < params.Nvp; j++ {
			if src[j] == DT_NULL_IDX {
				break
			}
			if int(src[j]) >= params.VertCount {
				return nil, false
			}
			p.Verts[j] = src[j]
			p.VertCount++
		}
	}

	return &DtMeshData{Header: header, Verts: verts, Polys: polys}, true
}
