package reconcile

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcache/common/log"
	dtc "github.com/gorustyt/navcache/detour_tile_cache"
	"github.com/gorustyt/navcache/tilecache"
	"go.uber.org/zap"
)

const cylinderSegments = 16

// ObstacleSource is satisfied by *tilecache.TileCache.
type ObstacleSource interface {
	Obstacles() []tilecache.Obstacle
}

// NewObstacleProxy builds the proxy for one obstacle.
func NewObstacleProxy(o tilecache.Obstacle) (*Proxy, error) {
	shape, pos, rot, err := obstaclePose(o)
	if err != nil {
		return nil, err
	}
	p := NewProxy(fmt.Sprintf("obstacle-%d", o.ObstacleRef()), shape)
	p.SetPose(pos, rot)
	return p, nil
}

func obstaclePose(o tilecache.Obstacle) (Shape, mgl32.Vec3, mgl32.Quat, error) {
	switch o := o.(type) {
	case *tilecache.BoxObstacle:
		return BoxShape{Size: o.HalfExtents.Mul(2)},
			o.Position,
			mgl32.QuatRotate(o.Angle, mgl32.Vec3{0, 1, 0}),
			nil
	case *tilecache.CylinderObstacle:
		return CylinderShape{RadiusTop: o.Radius, RadiusBottom: o.Radius, Height: o.Height, Segments: cylinderSegments},
			o.Position.Add(mgl32.Vec3{0, o.Height / 2, 0}),
			mgl32.QuatIdent(),
			nil
	}
	return nil, mgl32.Vec3{}, mgl32.Quat{}, &UnknownVariantError{Value: o}
}

// TileCacheHelper mirrors the obstacles of a tile cache into a Group.
type TileCacheHelper struct {
	source  ObstacleSource
	group   *Group
	tracker *Tracker[dtc.DtObstacleRef, *Proxy]
	current map[dtc.DtObstacleRef]tilecache.Obstacle
}

func NewTileCacheHelper(source ObstacleSource, group *Group) *TileCacheHelper {
	h := &TileCacheHelper{source: source, group: group}
	h.tracker = NewTracker(Hooks[dtc.DtObstacleRef, *Proxy]{
		Create: func(ref dtc.DtObstacleRef) (*Proxy, error) {
			p, err := NewObstacleProxy(h.current[ref])
			if err != nil {
				return nil, err
			}
			group.Add(p)
			return p, nil
		},
		Update: func(ref dtc.DtObstacleRef, p *Proxy) error {
			shape, pos, rot, err := obstaclePose(h.current[ref])
			if err != nil {
				return err
			}
			changed := p.SetPose(pos, rot)
			if shape != p.Shape {
				p.Shape = shape
				changed = true
			}
			if changed {
				group.Touch(p)
			}
			return nil
		},
		Destroy: func(_ dtc.DtObstacleRef, p *Proxy) {
			group.Remove(p)
		},
	})
	return h
}

// Update brings the group in line with the current obstacle set.
func (h *TileCacheHelper) Update() (Delta[dtc.DtObstacleRef], error) {
	obstacles := h.source.Obstacles()
	h.current = make(map[dtc.DtObstacleRef]tilecache.Obstacle, len(obstacles))
	refs := make([]dtc.DtObstacleRef, 0, len(obstacles))
	for _, o := range obstacles {
		h.current[o.ObstacleRef()] = o
		refs = append(refs, o.ObstacleRef())
	}
	delta, err := h.tracker.Reconcile(refs)
	h.current = nil
	if delta.Changed() {
		log.Debug("obstacle proxies reconciled",
			zap.Int("created", len(delta.Created)),
			zap.Int("destroyed", len(delta.Destroyed)))
	}
	return delta, err
}

// Proxy returns the proxy tracked for ref.
func (h *TileCacheHelper) Proxy(ref dtc.DtObstacleRef) (*Proxy, bool) {
	return h.tracker.Get(ref)
}

func (h *TileCacheHelper) Len() int { return h.tracker.Len() }

// Clear removes every obstacle proxy from the group.
func (h *TileCacheHelper) Clear() { h.tracker.Clear() }
