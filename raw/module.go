package raw

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorustyt/navcache/detour"
	dtc "github.com/gorustyt/navcache/detour_tile_cache"
	"go.uber.org/multierr"
)

type ArrayKind int

const (
	KindInt ArrayKind = iota + 1
	KindUnsignedInt
	KindUnsignedChar
	KindUnsignedShort
	KindFloat
)

func (k ArrayKind) String() string {
	switch k {
	case KindInt:
		return "int32"
	case KindUnsignedInt:
		return "uint32"
	case KindUnsignedChar:
		return "uint8"
	case KindUnsignedShort:
		return "uint16"
	case KindFloat:
		return "float32"
	}
	return fmt.Sprintf("ArrayKind(%d)", int(k))
}

// Singleton services shared by every consumer of a registry.
const (
	DetourTileCacheBuilder = "DetourTileCacheBuilder"
	DetourNavMeshBuilder   = "DetourNavMeshBuilder"
	TileCacheExporter      = "TileCacheExporter"
	TileCacheImporter      = "TileCacheImporter"
)

// Value-type constructors.
const (
	DtTileCacheParams      = "DtTileCacheParams"
	DtNavMeshParams        = "DtNavMeshParams"
	DtTileCacheLayerHeader = "DtTileCacheLayerHeader"
	DtNavMesh              = "DtNavMesh"
	LinearAllocator        = "LinearAllocator"
	TileCacheCompressor    = "TileCacheCompressor"
)

// Numeric array kinds and their aliases.
const (
	IntArray           = "IntArray"
	UnsignedIntArray   = "UnsignedIntArray"
	UnsignedCharArray  = "UnsignedCharArray"
	UnsignedShortArray = "UnsignedShortArray"
	FloatArray         = "FloatArray"

	VertsArray    = "VertsArray"
	TrisArray     = "TrisArray"
	TriAreasArray = "TriAreasArray"
	ChunkIdsArray = "ChunkIdsArray"
	TileCacheData = "TileCacheData"
)

var (
	InstanceNames = []string{DetourTileCacheBuilder, DetourNavMeshBuilder, TileCacheExporter, TileCacheImporter}
	ClassNames    = []string{DtTileCacheParams, DtNavMeshParams, DtTileCacheLayerHeader, DtNavMesh, LinearAllocator, TileCacheCompressor}
	ArrayNames    = []string{IntArray, UnsignedIntArray, UnsignedCharArray, UnsignedShortArray, FloatArray}
	ArrayAliases  = map[string]string{
		VertsArray:    FloatArray,
		TrisArray:     IntArray,
		TriAreasArray: UnsignedCharArray,
		ChunkIdsArray: IntArray,
		TileCacheData: UnsignedCharArray,
	}
)

// Module is a loaded native module: its singleton instances, value-type
// constructors and array kinds, all keyed by name.
type Module struct {
	Instances map[string]any
	Classes   map[string]any
	Arrays    map[string]ArrayKind
}

// Loader produces a module. It may block while the module loads.
type Loader func(ctx context.Context) (*Module, error)

// DefaultLoader assembles the in-process Detour tile cache module.
func DefaultLoader(ctx context.Context) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Module{
		Instances: map[string]any{
			DetourTileCacheBuilder: dtc.TileCacheBuilder{},
			DetourNavMeshBuilder:   detour.NavMeshBuilder{},
			TileCacheExporter:      dtc.TileCacheExporter{},
			TileCacheImporter:      dtc.TileCacheImporter{},
		},
		Classes: map[string]any{
			DtTileCacheParams:      func() *dtc.DtTileCacheParams { return &dtc.DtTileCacheParams{} },
			DtNavMeshParams:        func() *detour.DtNavMeshParams { return &detour.DtNavMeshParams{} },
			DtTileCacheLayerHeader: func() *dtc.DtTileCacheLayerHeader { return &dtc.DtTileCacheLayerHeader{} },
			DtNavMesh:              func() *detour.DtNavMesh { return &detour.DtNavMesh{} },
			LinearAllocator:        dtc.NewLinearAllocator,
			TileCacheCompressor:    func() dtc.DtTileCacheCompressor { return dtc.S2Compressor{} },
		},
		Arrays: map[string]ArrayKind{
			IntArray:           KindInt,
			UnsignedIntArray:   KindUnsignedInt,
			UnsignedCharArray:  KindUnsignedChar,
			UnsignedShortArray: KindUnsignedShort,
			FloatArray:         KindFloat,
		},
	}, nil
}

func (m *Module) validate() error {
	if m == nil {
		return errors.New("loader returned no module")
	}
	var err error
	for _, name := range InstanceNames {
		if m.Instances[name] == nil {
			err = multierr.Append(err, fmt.Errorf("missing instance %s", name))
		}
	}
	for _, name := range ClassNames {
		if m.Classes[name] == nil {
			err = multierr.Append(err, fmt.Errorf("missing class %s", name))
		}
	}
	for _, name := range ArrayNames {
		if _, ok := m.Arrays[name]; !ok {
			err = multierr.Append(err, fmt.Errorf("missing array %s", name))
		}
	}
	return err
}
