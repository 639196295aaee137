// Package raw is the binding layer between the tile cache and the native
// Detour module. A Registry loads the module once and hands out its
// singleton services, value-type constructors and typed arrays.
package raw

import (
	"context"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gorustyt/navcache/common"
	"github.com/gorustyt/navcache/common/log"
	"github.com/gorustyt/navcache/detour"
	dtc "github.com/gorustyt/navcache/detour_tile_cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Registry struct {
	loader Loader
	group  singleflight.Group
	mu     sync.RWMutex
	module *Module
	loads  atomic.Int32
}

func NewRegistry(loader Loader) *Registry {
	if loader == nil {
		loader = DefaultLoader
	}
	return &Registry{loader: loader}
}

// Initialize loads the module. Concurrent callers share one load; calls
// after a successful load return immediately.
func (r *Registry) Initialize(ctx context.Context) error {
	if r.Ready() {
		return nil
	}
	_, err, _ := r.group.Do("initialize", func() (any, error) {
		if r.Ready() {
			return nil, nil
		}
		r.loads.Add(1)
		m, err := r.loader(ctx)
		if err == nil {
			err = m.validate()
		}
		if err != nil {
			log.Error("native module load failed", zap.Error(err))
			return nil, &InitializationError{Err: err}
		}
		r.mu.Lock()
		r.module = m
		r.mu.Unlock()
		log.Debug("native module loaded",
			zap.Int("instances", len(m.Instances)),
			zap.Int("classes", len(m.Classes)),
			zap.Int("arrays", len(m.Arrays)))
		return nil, nil
	})
	return err
}

func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.module != nil
}

// Loads is the number of times the loader ran.
func (r *Registry) Loads() int { return int(r.loads.Load()) }

// Module returns the loaded module. It panics before Initialize.
func (r *Registry) Module() *Module {
	r.mu.RLock()
	m := r.module
	r.mu.RUnlock()
	common.AssertTrue(m != nil, "raw: registry used before Initialize")
	return m
}

// Instance returns the named singleton service.
func Instance[T any](r *Registry, name string) T {
	m := r.Module()
	common.AssertTrue(slices.Contains(InstanceNames, name), "raw: undeclared instance %q", name)
	v, ok := m.Instances[name].(T)
	common.AssertTrue(ok, "raw: instance %q is %T, not %v", name, m.Instances[name], reflect.TypeFor[T]())
	return v
}

// Class returns the named value-type constructor.
func Class[T any](r *Registry, name string) T {
	m := r.Module()
	common.AssertTrue(slices.Contains(ClassNames, name), "raw: undeclared class %q", name)
	v, ok := m.Classes[name].(T)
	common.AssertTrue(ok, "raw: class %q is %T, not %v", name, m.Classes[name], reflect.TypeFor[T]())
	return v
}

// ArrayKindOf resolves name, following aliases, to its element kind.
func (r *Registry) ArrayKindOf(name string) ArrayKind {
	m := r.Module()
	if target, ok := ArrayAliases[name]; ok {
		name = target
	}
	common.AssertTrue(slices.Contains(ArrayNames, name), "raw: undeclared array %q", name)
	return m.Arrays[name]
}

func (r *Registry) TileCacheBuilder() dtc.TileCacheBuilder {
	return Instance[dtc.TileCacheBuilder](r, DetourTileCacheBuilder)
}

func (r *Registry) NavMeshBuilder() detour.NavMeshBuilder {
	return Instance[detour.NavMeshBuilder](r, DetourNavMeshBuilder)
}

func (r *Registry) Exporter() dtc.TileCacheExporter {
	return Instance[dtc.TileCacheExporter](r, TileCacheExporter)
}

func (r *Registry) Importer() dtc.TileCacheImporter {
	return Instance[dtc.TileCacheImporter](r, TileCacheImporter)
}

// NewLinearAllocator returns an allocator; a non-positive capacity yields a
// null handle.
func (r *Registry) NewLinearAllocator(capacity int) *dtc.LinearAllocator {
	return Class[func(int) *dtc.LinearAllocator](r, LinearAllocator)(capacity)
}

func (r *Registry) NewCompressor() dtc.DtTileCacheCompressor {
	return Class[func() dtc.DtTileCacheCompressor](r, TileCacheCompressor)()
}

func (r *Registry) NewNavMesh() *detour.DtNavMesh {
	return Class[func() *detour.DtNavMesh](r, DtNavMesh)()
}

func (r *Registry) NewNavMeshParams() *detour.DtNavMeshParams {
	return Class[func() *detour.DtNavMeshParams](r, DtNavMeshParams)()
}

func (r *Registry) NewTileCacheParams() *dtc.DtTileCacheParams {
	return Class[func() *dtc.DtTileCacheParams](r, DtTileCacheParams)()
}

func (r *Registry) NewLayerHeader() *dtc.DtTileCacheLayerHeader {
	return Class[func() *dtc.DtTileCacheLayerHeader](r, DtTileCacheLayerHeader)()
}
