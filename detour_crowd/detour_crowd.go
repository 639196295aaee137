package detour_crowd

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcache/common"
	"github.com/gorustyt/navcache/detour"
)

var ErrCrowdFull = errors.New("detour_crowd: no free agent slot")

// / The type of navigation mesh polygon the agent is currently traversing.
const (
	DT_CROWDAGENT_STATE_INVALID = 0 ///< The agent is not in a valid state.
	DT_CROWDAGENT_STATE_WALKING = 1 ///< The agent is traversing a normal navigation mesh polygon.
)

const (
	DT_CROWDAGENT_TARGET_NONE = iota
	DT_CROWDAGENT_TARGET_VELOCITY
)

// / Configuration parameters for a crowd agent.
type DtCrowdAgentParams struct {
	Radius          float32 ///< Agent radius. [Limit: >= 0]
	Height          float32 ///< Agent height. [Limit: > 0]
	MaxAcceleration float32 ///< Maximum allowed acceleration. [Limit: >= 0]
	MaxSpeed        float32 ///< Maximum allowed speed. [Limit: >= 0]
}

type DtCrowdAgent struct {
	// / True if the agent is active, false if the agent is in an unused slot in the agent pool.
	Active bool

	// / Whether a navmesh tile lies under the agent. (See: #CrowdAgentState)
	State int

	Npos mgl32.Vec3 ///< The current agent position. [(x, y, z)]
	Dvel mgl32.Vec3 ///< The desired velocity of the agent.
	Vel  mgl32.Vec3 ///< The actual velocity of the agent. The change from dvel -> vel is constrained by max acceleration.

	// / The agent's configuration parameters.
	Params DtCrowdAgentParams

	TargetState int ///< State of the movement request.
}

// DtCrowd is a fixed-size agent pool. Agents move by requested velocity;
// there is no path following or local avoidance.
type DtCrowd struct {
	m_maxAgents      int
	m_agents         []*DtCrowdAgent
	m_maxAgentRadius float32
	m_nav            *detour.DtNavMesh
}

// NewDtCrowd creates a pool of maxAgents. nav may be nil, in which case every
// agent counts as walking.
func NewDtCrowd(maxAgents int, maxAgentRadius float32, nav *detour.DtNavMesh) *DtCrowd {
	d := &DtCrowd{
		m_maxAgents:      max(maxAgents, 0),
		m_maxAgentRadius: maxAgentRadius,
		m_nav:            nav,
	}
	d.m_agents = make([]*DtCrowdAgent, d.m_maxAgents)
	for i := range d.m_agents {
		d.m_agents[i] = &DtCrowdAgent{}
	}
	return d
}

func (d *DtCrowd) GetAgentCount() int { return d.m_maxAgents }

// / Agents in the pool may not be in use.  Check #DtCrowdAgent.active before using the returned object.
func (d *DtCrowd) GetAgent(idx int) *DtCrowdAgent {
	if idx < 0 || idx >= d.m_maxAgents {
		return nil
	}
	return d.m_agents[idx]
}

func (d *DtCrowd) activeAgent(idx int) *DtCrowdAgent {
	ag := d.GetAgent(idx)
	if ag == nil || !ag.Active {
		return nil
	}
	return ag
}

func (d *DtCrowd) UpdateAgentParameters(idx int, params DtCrowdAgentParams) {
	if ag := d.activeAgent(idx); ag != nil {
		ag.Params = params
	}
}

// AddAgent places an agent in the first free slot and returns its index.
func (d *DtCrowd) AddAgent(pos mgl32.Vec3, params DtCrowdAgentParams) (int, error) {
	common.AssertTrue(params.Radius <= d.m_maxAgentRadius || d.m_maxAgentRadius <= 0,
		"detour_crowd: agent radius %v exceeds %v", params.Radius, d.m_maxAgentRadius)
	// Find empty slot.
	idx := -1
	for i := 0; i < d.m_maxAgents; i++ {
		if !d.m_agents[i].Active {
			idx = i
			break
		}
	}
	if idx == -1 {
		return -1, ErrCrowdFull
	}

	ag := d.m_agents[idx]
	*ag = DtCrowdAgent{
		Active:      true,
		Npos:        pos,
		Params:      params,
		TargetState: DT_CROWDAGENT_TARGET_NONE,
	}
	ag.State = d.stateAt(pos)
	return idx, nil
}

func (d *DtCrowd) RemoveAgent(idx int) {
	if idx >= 0 && idx < d.m_maxAgents {
		d.m_agents[idx].Active = false
	}
}

// GetActiveAgents returns the indices of agents in use, ascending.
func (d *DtCrowd) GetActiveAgents() []int {
	var agents []int
	for i, ag := range d.m_agents {
		if ag.Active {
			agents = append(agents, i)
		}
	}
	return agents
}

func (d *DtCrowd) GetAgentPosition(idx int) mgl32.Vec3 {
	if ag := d.activeAgent(idx); ag != nil {
		return ag.Npos
	}
	return mgl32.Vec3{}
}

func (d *DtCrowd) GetAgentVelocity(idx int) mgl32.Vec3 {
	if ag := d.activeAgent(idx); ag != nil {
		return ag.Vel
	}
	return mgl32.Vec3{}
}

func (d *DtCrowd) GetAgentParameters(idx int) DtCrowdAgentParams {
	if ag := d.activeAgent(idx); ag != nil {
		return ag.Params
	}
	return DtCrowdAgentParams{}
}

func (d *DtCrowd) RequestMoveVelocity(idx int, vel mgl32.Vec3) bool {
	ag := d.activeAgent(idx)
	if ag == nil {
		return false
	}
	ag.Dvel = vel
	ag.TargetState = DT_CROWDAGENT_TARGET_VELOCITY
	return true
}

func (d *DtCrowd) ResetMoveTarget(idx int) bool {
	ag := d.activeAgent(idx)
	if ag == nil {
		return false
	}
	ag.Dvel = mgl32.Vec3{}
	ag.TargetState = DT_CROWDAGENT_TARGET_NONE
	return true
}

// Update steers every active agent toward its requested velocity and
// advances it by dt seconds.
func (d *DtCrowd) Update(dt float32) {
	for _, ag := range d.m_agents {
		if !ag.Active {
			continue
		}
		dvel := ag.Dvel
		if speed := dvel.Len(); speed > ag.Params.MaxSpeed {
			if speed > 0 {
				dvel = dvel.Mul(ag.Params.MaxSpeed / speed)
			}
		}
		integrate(ag, dvel, dt)
		ag.State = d.stateAt(ag.Npos)
	}
}

func integrate(ag *DtCrowdAgent, dvel mgl32.Vec3, dt float32) {
	// Fake dynamic constraint.
	maxDelta := ag.Params.MaxAcceleration * dt
	dv := dvel.Sub(ag.Vel)
	if ds := dv.Len(); ds > maxDelta {
		dv = dv.Mul(maxDelta / ds)
	}
	ag.Vel = ag.Vel.Add(dv)

	// Integrate
	if ag.Vel.Len() > 0.0001 {
		ag.Npos = ag.Npos.Add(ag.Vel.Mul(dt))
	} else {
		ag.Vel = mgl32.Vec3{}
	}
}

func (d *DtCrowd) stateAt(pos mgl32.Vec3) int {
	if d.m_nav == nil {
		return DT_CROWDAGENT_STATE_WALKING
	}
	tx, ty := d.m_nav.CalcTileLoc(pos)
	if len(d.m_nav.GetTilesAt(tx, ty)) == 0 {
		return DT_CROWDAGENT_STATE_INVALID
	}
	return DT_CROWDAGENT_STATE_WALKING
}

// Yaw is the heading, in radians about y, that faces along v. ok is false
// when v has no horizontal component.
func Yaw(v mgl32.Vec3) (yaw float32, ok bool) {
	if math.Abs(float64(v.X())) < 1e-6 && math.Abs(float64(v.Z())) < 1e-6 {
		return 0, false
	}
	return float32(math.Atan2(float64(v.X()), float64(v.Z()))), true
}
