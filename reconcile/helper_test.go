package reconcile

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcache/detour_crowd"
	dtc "github.com/gorustyt/navcache/detour_tile_cache"
	"github.com/gorustyt/navcache/tilecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource []tilecache.Obstacle

func (s *staticSource) Obstacles() []tilecache.Obstacle { return *s }

type recorder struct {
	added, updated, removed []string
}

func (r *recorder) ProxyAdded(p *Proxy)   { r.added = append(r.added, p.Name) }
func (r *recorder) ProxyUpdated(p *Proxy) { r.updated = append(r.updated, p.Name) }
func (r *recorder) ProxyRemoved(p *Proxy) { r.removed = append(r.removed, p.Name) }

func assertVec3InDelta(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d of %v", i, got)
	}
}

func TestObstacleProxyShapes(t *testing.T) {
	box := &tilecache.BoxObstacle{
		Ref:         1,
		Position:    mgl32.Vec3{1, 2, 3},
		HalfExtents: mgl32.Vec3{0.5, 1, 2},
		Angle:       math.Pi / 2,
	}
	p, err := NewObstacleProxy(box)
	require.NoError(t, err)
	assert.Equal(t, BoxShape{Size: mgl32.Vec3{1, 2, 4}}, p.Shape)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, p.Position)
	// a quarter turn about y maps +x onto -z
	x := p.Rotation.Rotate(mgl32.Vec3{1, 0, 0})
	assertVec3InDelta(t, mgl32.Vec3{0, 0, -1}, x)

	cyl := &tilecache.CylinderObstacle{Ref: 2, Position: mgl32.Vec3{4, 0, 4}, Radius: 0.75, Height: 2}
	p, err = NewObstacleProxy(cyl)
	require.NoError(t, err)
	assert.Equal(t, CylinderShape{RadiusTop: 0.75, RadiusBottom: 0.75, Height: 2, Segments: 16}, p.Shape)
	assert.Equal(t, mgl32.Vec3{4, 1, 4}, p.Position)
	assert.Equal(t, "cylinder", p.Shape.Kind())

	m := p.Transform()
	assert.Equal(t, mgl32.Vec3{4, 1, 4}, m.Col(3).Vec3())
}

func TestObstacleProxyUnknownVariant(t *testing.T) {
	odd := struct{ *tilecache.CylinderObstacle }{&tilecache.CylinderObstacle{Ref: 9}}
	_, err := NewObstacleProxy(odd)
	require.ErrorIs(t, err, ErrUnknownVariant)
	var uv *UnknownVariantError
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, odd, uv.Value)

	src := &staticSource{odd}
	h := NewTileCacheHelper(src, NewGroup("obstacles"))
	_, err = h.Update()
	require.ErrorIs(t, err, ErrUnknownVariant)
	assert.Zero(t, h.Len())
}

func TestTileCacheHelperDiff(t *testing.T) {
	obs := func(ref dtc.DtObstacleRef) tilecache.Obstacle {
		return &tilecache.CylinderObstacle{Ref: ref, Position: mgl32.Vec3{float32(ref), 0, 0}, Radius: 1, Height: 2}
	}
	src := &staticSource{obs(1), obs(2), obs(3)}
	group := NewGroup("obstacles")
	rec := &recorder{}
	group.Observe(rec)
	h := NewTileCacheHelper(src, group)

	_, err := h.Update()
	require.NoError(t, err)
	assert.Equal(t, 3, group.Len())

	*src = staticSource{obs(2), obs(3), obs(4)}
	delta, err := h.Update()
	require.NoError(t, err)
	assert.Equal(t, []dtc.DtObstacleRef{4}, delta.Created)
	assert.Equal(t, []dtc.DtObstacleRef{2, 3}, delta.Updated)
	assert.Equal(t, []dtc.DtObstacleRef{1}, delta.Destroyed)
	assert.Equal(t, []string{"obstacle-1"}, rec.removed)
	assert.Len(t, rec.added, 4)
	assert.Empty(t, rec.updated)
	assert.Equal(t, 3, group.Len())

	delta, err = h.Update()
	require.NoError(t, err)
	assert.False(t, delta.Changed())
	assert.Empty(t, rec.updated)

	h.Clear()
	assert.Zero(t, group.Len())
}

type fakeCrowd struct {
	active []int
	pos    map[int]mgl32.Vec3
	vel    map[int]mgl32.Vec3
	params detour_crowd.DtCrowdAgentParams
}

func (c *fakeCrowd) GetActiveAgents() []int                                 { return c.active }
func (c *fakeCrowd) GetAgentPosition(idx int) mgl32.Vec3                    { return c.pos[idx] }
func (c *fakeCrowd) GetAgentVelocity(idx int) mgl32.Vec3                    { return c.vel[idx] }
func (c *fakeCrowd) GetAgentParameters(int) detour_crowd.DtCrowdAgentParams { return c.params }

func TestCrowdHelperCapsules(t *testing.T) {
	c := &fakeCrowd{
		active: []int{0, 1},
		pos:    map[int]mgl32.Vec3{0: {1, 0, 1}, 1: {3, 0, 3}},
		vel:    map[int]mgl32.Vec3{0: {0, 0, 1}},
		params: detour_crowd.DtCrowdAgentParams{Radius: 0.5, Height: 2, MaxSpeed: 3, MaxAcceleration: 8},
	}
	group := NewGroup("agents")
	rec := &recorder{}
	group.Observe(rec)
	h := NewCrowdHelper(c, group)

	delta, err := h.UpdateAgents()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, delta.Created)

	p, ok := h.Proxy(0)
	require.True(t, ok)
	assert.Equal(t, CapsuleShape{Radius: 0.5, Length: 1}, p.Shape)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, p.Position)

	c.pos[0] = mgl32.Vec3{2, 0, 1}
	c.vel[0] = mgl32.Vec3{1, 0, 0}
	c.active = []int{0}
	delta, err = h.UpdateAgents()
	require.NoError(t, err)
	assert.Equal(t, []int{0}, delta.Updated)
	assert.Equal(t, []int{1}, delta.Destroyed)
	assert.Equal(t, []string{"agent-0"}, rec.updated)
	assert.Equal(t, mgl32.Vec3{2, 1, 1}, p.Position)
	fwd := p.Rotation.Rotate(mgl32.Vec3{0, 0, 1})
	assertVec3InDelta(t, mgl32.Vec3{1, 0, 0}, fwd)

	// stopping keeps the heading
	c.vel[0] = mgl32.Vec3{}
	_, err = h.UpdateAgents()
	require.NoError(t, err)
	fwd = p.Rotation.Rotate(mgl32.Vec3{0, 0, 1})
	assertVec3InDelta(t, mgl32.Vec3{1, 0, 0}, fwd)
	assert.Len(t, rec.updated, 1)
}

func TestCrowdHelperWithDtCrowd(t *testing.T) {
	crowd := detour_crowd.NewDtCrowd(4, 1, nil)
	params := detour_crowd.DtCrowdAgentParams{Radius: 0.4, Height: 1.8, MaxSpeed: 2, MaxAcceleration: 10}
	a, err := crowd.AddAgent(mgl32.Vec3{0, 0, 0}, params)
	require.NoError(t, err)
	_, err = crowd.AddAgent(mgl32.Vec3{5, 0, 5}, params)
	require.NoError(t, err)

	group := NewGroup("agents")
	h := NewCrowdHelper(crowd, group)
	_, err = h.UpdateAgents()
	require.NoError(t, err)
	assert.Equal(t, 2, group.Len())

	crowd.RemoveAgent(a)
	delta, err := h.UpdateAgents()
	require.NoError(t, err)
	assert.Equal(t, []int{a}, delta.Destroyed)
	assert.Equal(t, 1, group.Len())
}

func TestGroupObservers(t *testing.T) {
	g := NewGroup("g")
	rec := &recorder{}
	g.Observe(rec)
	p := NewProxy("p", BoxShape{Size: mgl32.Vec3{1, 1, 1}})
	g.Add(p)
	g.Add(p)
	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Remove(p))
	assert.False(t, g.Remove(p))
	assert.Equal(t, []string{"p"}, rec.added)
	assert.Equal(t, []string{"p"}, rec.removed)
}
