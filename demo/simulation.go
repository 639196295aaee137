package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcache/common/config"
	"github.com/gorustyt/navcache/common/log"
	"github.com/gorustyt/navcache/debug_utils"
	"github.com/gorustyt/navcache/detour"
	"github.com/gorustyt/navcache/detour_crowd"
	"github.com/gorustyt/navcache/raw"
	"github.com/gorustyt/navcache/reconcile"
	"github.com/gorustyt/navcache/tilecache"
	"github.com/gorustyt/navcache/tilestore"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxPolysPerTile  = 256
	obstacleInterval = 10 // ticks between obstacle spawns
	liveObstacles    = 8
	spawnedAgents    = 8
)

var agentParams = detour_crowd.DtCrowdAgentParams{
	Radius:          0.6,
	Height:          2,
	MaxAcceleration: 8,
	MaxSpeed:        3.5,
}

type simulation struct {
	cfg   *config.Config
	reg   *raw.Registry
	tc    *tilecache.TileCache
	nav   *detour.DtNavMesh
	crowd *detour_crowd.DtCrowd

	store      tilestore.Store
	closeStore func()

	obstacleGroup *reconcile.Group
	agentGroup    *reconcile.Group
	obstacleSync  *reconcile.TileCacheHelper
	agentSync     *reconcile.CrowdHelper
	viewer        *viewer

	rng     *rand.Rand
	spawned []tilecache.Obstacle
	tick    int
	log     *zap.Logger
}

func newSimulation(ctx context.Context, cfg *config.Config) (sim *simulation, err error) {
	s := &simulation{
		cfg:        cfg,
		reg:        raw.NewRegistry(nil),
		rng:        rand.New(rand.NewPCG(1, 2)),
		closeStore: func() {},
		log:        log.Named("demo"),
	}
	if err := s.reg.Initialize(ctx); err != nil {
		return nil, err
	}

	params, err := tilecache.ParamsFromConfig(cfg.TileCache)
	if err != nil {
		return nil, err
	}
	s.tc = tilecache.New(s.reg)
	if err := s.tc.Init(params, s.reg.NewLinearAllocator(cfg.Allocator.Capacity), s.reg.NewCompressor(),
		tilecache.DefaultMeshProcess(s.reg)); err != nil {
		return nil, err
	}

	if s.store, s.closeStore, err = openStore(ctx, cfg.Store); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.closeStore()
		}
	}()

	tiles, err := s.loadTiles(ctx, params)
	if err != nil {
		return nil, err
	}
	if _, err := s.tc.Import(tiles); err != nil {
		return nil, err
	}
	if s.nav, err = s.tc.NewNavMesh(maxPolysPerTile); err != nil {
		return nil, err
	}
	if err := s.tc.BuildAll(s.nav); err != nil {
		return nil, err
	}

	s.crowd = detour_crowd.NewDtCrowd(cfg.Simulation.MaxAgents, agentParams.Radius, s.nav)
	s.obstacleGroup = reconcile.NewGroup("obstacles")
	s.agentGroup = reconcile.NewGroup("agents")
	s.obstacleSync = reconcile.NewTileCacheHelper(s.tc, s.obstacleGroup)
	s.agentSync = reconcile.NewCrowdHelper(s.crowd, s.agentGroup)
	if cfg.Viewer.Enabled {
		s.viewer = newViewer(cfg.Viewer.ListenAddr)
		s.obstacleGroup.Observe(s.viewer.hub)
		s.agentGroup.Observe(s.viewer.hub)
	}
	s.spawnAgents(min(spawnedAgents, cfg.Simulation.MaxAgents))
	return s, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (tilestore.Store, func(), error) {
	switch cfg.Driver {
	case "file":
		return tilestore.NewFileStore(cfg.Path), func() {}, nil
	case "postgres":
		if err := tilestore.Migrate(ctx, cfg.DSN); err != nil {
			return nil, nil, err
		}
		pg, err := tilestore.Open(ctx, cfg.DSN, cfg.CacheID)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	return nil, func() {}, nil
}

// loadTiles prefers persisted tiles built for the same grid and falls back
// to generating flat ground.
func (s *simulation) loadTiles(ctx context.Context, params *tilecache.Params) ([][]byte, error) {
	if s.store != nil {
		a, err := s.store.Load(ctx)
		switch {
		case err == nil && a.Params == params.Config():
			s.log.Info("tiles loaded from store", zap.Int("tiles", len(a.Tiles)))
			return a.TileData(), nil
		case err == nil:
			s.log.Warn("stored tiles were built for a different grid, regenerating")
		case errors.Is(err, tilestore.ErrNotFound):
		default:
			return nil, err
		}
	}
	tc := s.cfg.TileCache
	return tilecache.GenerateTiles(s.reg, params, s.reg.NewCompressor(), tilecache.FlatGround{}, tc.GridWidth, tc.GridHeight)
}

// bounds is the world space extent of the generated grid.
func (s *simulation) bounds() (mgl32.Vec3, mgl32.Vec3) {
	params := s.tc.Params()
	tw, th := params.TileWorldSize()
	orig := params.Origin()
	size := mgl32.Vec3{tw * float32(s.cfg.TileCache.GridWidth), 0, th * float32(s.cfg.TileCache.GridHeight)}
	return orig, orig.Add(size)
}

func (s *simulation) randomPoint() mgl32.Vec3 {
	bmin, bmax := s.bounds()
	return mgl32.Vec3{
		bmin.X() + s.rng.Float32()*(bmax.X()-bmin.X()),
		bmin.Y(),
		bmin.Z() + s.rng.Float32()*(bmax.Z()-bmin.Z()),
	}
}

func (s *simulation) spawnAgents(n int) {
	for i := 0; i < n; i++ {
		idx, err := s.crowd.AddAgent(s.randomPoint(), agentParams)
		if err != nil {
			s.log.Warn("spawn agent", zap.Error(err))
			return
		}
		heading := mgl32.Rotate3DY(s.rng.Float32() * 2 * math.Pi)
		s.crowd.RequestMoveVelocity(idx, heading.Mul3x1(mgl32.Vec3{agentParams.MaxSpeed, 0, 0}))
	}
}

// churnObstacles spawns an obstacle every obstacleInterval ticks and retires
// the oldest once liveObstacles exist.
func (s *simulation) churnObstacles() {
	if s.tick%obstacleInterval != 0 {
		return
	}
	if len(s.spawned) >= liveObstacles {
		oldest := s.spawned[0]
		if err := s.tc.RemoveObstacle(oldest); err != nil {
			s.log.Warn("remove obstacle", zap.Error(err))
			return
		}
		s.spawned = s.spawned[1:]
	}

	pos := s.randomPoint()
	var (
		o   tilecache.Obstacle
		err error
	)
	if s.rng.IntN(2) == 0 {
		o, err = s.tc.AddCylinderObstacle(pos, 0.5+s.rng.Float32(), 2)
	} else {
		he := mgl32.Vec3{0.5 + s.rng.Float32(), 1, 0.5 + s.rng.Float32()}
		o, err = s.tc.AddBoxObstacle(pos.Add(mgl32.Vec3{0, 1, 0}), he, s.rng.Float32()*math.Pi)
	}
	var opErr *tilecache.ObstacleOperationError
	switch {
	case errors.As(err, &opErr) && opErr.Full():
		// the cache is saturated this tick, try again on the next spawn
	case err != nil:
		s.log.Warn("add obstacle", zap.Error(err))
	default:
		s.spawned = append(s.spawned, o)
	}
}

// steerAgents turns agents around at the grid border.
func (s *simulation) steerAgents() {
	bmin, bmax := s.bounds()
	for _, idx := range s.crowd.GetActiveAgents() {
		pos, vel := s.crowd.GetAgentPosition(idx), s.crowd.GetAgent(idx).Dvel
		if (pos.X() < bmin.X() && vel.X() < 0) || (pos.X() > bmax.X() && vel.X() > 0) {
			vel[0] = -vel[0]
		}
		if (pos.Z() < bmin.Z() && vel.Z() < 0) || (pos.Z() > bmax.Z() && vel.Z() > 0) {
			vel[2] = -vel[2]
		}
		s.crowd.RequestMoveVelocity(idx, vel)
	}
}

func (s *simulation) step(dt float32) error {
	s.tick++
	s.churnObstacles()
	s.steerAgents()
	s.crowd.Update(dt)

	if res := s.tc.Update(s.nav); res.Status.DtStatusFailed() {
		s.log.Warn("tile cache update failed", zap.Stringer("status", res.Status))
	}
	if _, err := s.obstacleSync.Update(); err != nil {
		return fmt.Errorf("sync obstacles: %w", err)
	}
	if _, err := s.agentSync.UpdateAgents(); err != nil {
		return fmt.Errorf("sync agents: %w", err)
	}
	return nil
}

// run ticks until ctx ends or ticks steps have run. The viewer, when
// enabled, is served for the same span.
func (s *simulation) run(ctx context.Context, ticks int) error {
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	if s.viewer != nil {
		g.Go(func() error { return s.viewer.serve(ctx) })
	}
	g.Go(func() error {
		defer cancel()
		interval := s.cfg.Simulation.Tick
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for ticks <= 0 || s.tick < ticks {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			if err := s.step(float32(interval.Seconds())); err != nil {
				return err
			}
		}
		s.log.Info("simulation finished",
			zap.Int("ticks", s.tick),
			zap.Int("obstacles", s.tc.ObstacleCount()),
			zap.Int("agents", s.agentSync.Len()))
		return nil
	})
	return g.Wait()
}

func (s *simulation) dump(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	obj, err := os.Create(filepath.Join(dir, "navmesh.obj"))
	if err != nil {
		return err
	}
	err = multierr.Append(debug_utils.DumpNavMeshToObj(obj, s.nav), obj.Close())
	for _, t := range s.tc.Tiles() {
		name := filepath.Join(dir, fmt.Sprintf("tile_%d_%d_%d.bmp", t.X, t.Y, t.Layer))
		f, ferr := os.Create(name)
		if ferr != nil {
			err = multierr.Append(err, ferr)
			continue
		}
		err = multierr.Append(err, debug_utils.DumpTileAreas(f, s.reg.NewCompressor(), t.Data))
		err = multierr.Append(err, f.Close())
	}
	return err
}

// close persists the tiles and releases everything newSimulation acquired.
func (s *simulation) close(ctx context.Context) error {
	var err error
	if s.store != nil {
		err = multierr.Append(err, s.store.Save(ctx, tilestore.Snapshot(s.tc)))
	}
	s.obstacleSync.Clear()
	s.agentSync.Clear()
	if s.viewer != nil {
		err = multierr.Append(err, s.viewer.hub.Close())
	}
	s.closeStore()
	s.tc.Destroy()
	return err
}
