package reconcile

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcache/common/log"
	"github.com/gorustyt/navcache/detour_crowd"
	"go.uber.org/zap"
)

// Crowd is satisfied by *detour_crowd.DtCrowd.
type Crowd interface {
	GetActiveAgents() []int
	GetAgentPosition(idx int) mgl32.Vec3
	GetAgentVelocity(idx int) mgl32.Vec3
	GetAgentParameters(idx int) detour_crowd.DtCrowdAgentParams
}

// CrowdHelper mirrors the active agents of a crowd into a Group as capsules.
type CrowdHelper struct {
	crowd   Crowd
	group   *Group
	tracker *Tracker[int, *Proxy]
}

func NewCrowdHelper(crowd Crowd, group *Group) *CrowdHelper {
	h := &CrowdHelper{crowd: crowd, group: group}
	h.tracker = NewTracker(Hooks[int, *Proxy]{
		Create: func(idx int) (*Proxy, error) {
			p := NewProxy(fmt.Sprintf("agent-%d", idx), h.agentShape(idx))
			h.pose(idx, p)
			group.Add(p)
			return p, nil
		},
		Update: func(idx int, p *Proxy) error {
			changed := h.pose(idx, p)
			if shape := h.agentShape(idx); shape != p.Shape {
				p.Shape = shape
				changed = true
			}
			if changed {
				group.Touch(p)
			}
			return nil
		},
		Destroy: func(_ int, p *Proxy) {
			group.Remove(p)
		},
	})
	return h
}

func (h *CrowdHelper) agentShape(idx int) Shape {
	params := h.crowd.GetAgentParameters(idx)
	return CapsuleShape{Radius: params.Radius, Length: max(params.Height-2*params.Radius, 0)}
}

// pose centres the capsule on the agent body and turns it to face the
// direction of travel. A stationary agent keeps its last heading.
func (h *CrowdHelper) pose(idx int, p *Proxy) bool {
	params := h.crowd.GetAgentParameters(idx)
	pos := h.crowd.GetAgentPosition(idx).Add(mgl32.Vec3{0, params.Height / 2, 0})
	rot := p.Rotation
	if yaw, ok := detour_crowd.Yaw(h.crowd.GetAgentVelocity(idx)); ok {
		rot = mgl32.QuatRotate(yaw, mgl32.Vec3{0, 1, 0})
	}
	return p.SetPose(pos, rot)
}

// UpdateAgents brings the group in line with the active agent set.
func (h *CrowdHelper) UpdateAgents() (Delta[int], error) {
	delta, err := h.tracker.Reconcile(h.crowd.GetActiveAgents())
	if delta.Changed() {
		log.Debug("agent proxies reconciled",
			zap.Int("created", len(delta.Created)),
			zap.Int("destroyed", len(delta.Destroyed)))
	}
	return delta, err
}

func (h *CrowdHelper) Proxy(idx int) (*Proxy, bool) {
	return h.tracker.Get(idx)
}

func (h *CrowdHelper) Len() int { return h.tracker.Len() }

func (h *CrowdHelper) Clear() { h.tracker.Clear() }
