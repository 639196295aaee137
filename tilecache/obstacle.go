package tilecache

import (
	"github.com/go-gl/mathgl/mgl32"
	dtc "github.com/gorustyt/navcache/detour_tile_cache"
)

// Obstacle is either a *BoxObstacle or a *CylinderObstacle.
type Obstacle interface {
	ObstacleRef() dtc.DtObstacleRef
	// Bounds is the world space AABB the obstacle can carve.
	Bounds() (bmin, bmax mgl32.Vec3)
	obstacle()
}

// BoxObstacle is a box centred on Position, rotated by Angle radians about y.
type BoxObstacle struct {
	Ref         dtc.DtObstacleRef
	Position    mgl32.Vec3
	HalfExtents mgl32.Vec3
	Angle       float32
}

func (o *BoxObstacle) ObstacleRef() dtc.DtObstacleRef { return o.Ref }

func (o *BoxObstacle) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	he := o.HalfExtents
	if o.Angle != 0 {
		r := 1.41 * max(he.X(), he.Z())
		he = mgl32.Vec3{r, he.Y(), r}
	}
	return o.Position.Sub(he), o.Position.Add(he)
}

func (*BoxObstacle) obstacle() {}

// CylinderObstacle stands on Position.
type CylinderObstacle struct {
	Ref      dtc.DtObstacleRef
	Position mgl32.Vec3
	Radius   float32
	Height   float32
}

func (o *CylinderObstacle) ObstacleRef() dtc.DtObstacleRef { return o.Ref }

func (o *CylinderObstacle) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	return o.Position.Sub(mgl32.Vec3{o.Radius, 0, o.Radius}),
		o.Position.Add(mgl32.Vec3{o.Radius, o.Height, o.Radius})
}

func (*CylinderObstacle) obstacle() {}
