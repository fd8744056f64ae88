// Package vehicle implements the FOPDT steering actuator and the
// non-linear longitudinal model, integrated via a midpoint-speed kinematic
// bicycle step, as the dynamics Node the Executor schedules at (typically)
// clock_rate_hz.
package vehicle

import (
	"fmt"
	"math"

	"github.com/driveresearch/simcore/internal/blackboard"
	"github.com/driveresearch/simcore/internal/control"
	"github.com/driveresearch/simcore/internal/node"
)

// PitchFunc returns the road pitch angle θ (radians) at the ego's current
// position, for the gravity term in the longitudinal model. The default is
// flat ground (always 0), matching §4.2's "defaulting to zero".
type PitchFunc func(state State) float64

// FlatGround is the default PitchFunc: the world is always level.
func FlatGround(State) float64 { return 0 }

// Node is the dynamics Node. It owns the ego VehicleState and the steering
// dead-time ring buffer; both are private to this node per §3's ownership
// rule.
type Node struct {
	name     string
	rateHz   float64
	priority int

	params Params
	pitch  PitchFunc
	bb     *blackboard.Blackboard

	state State
	ring  *deadTimeBuffer

	lastSeenCmd control.Command
	haveCmd     bool
}

// Config bundles the construction-time dependencies for a dynamics Node.
type Config struct {
	Name        string
	RateHz      float64
	Priority    int
	Params      Params
	InitialPose State
	Pitch       PitchFunc // nil defaults to FlatGround
	Blackboard  *blackboard.Blackboard
}

// New constructs a dynamics Node. Returns a ConfigError-class error if
// Params fails validation.
func New(cfg Config) (*Node, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.RateHz <= 0 {
		return nil, fmt.Errorf("vehicle: rate_hz must be positive, got %v", cfg.RateHz)
	}
	pitch := cfg.Pitch
	if pitch == nil {
		pitch = FlatGround
	}
	return &Node{
		name:     cfg.Name,
		rateHz:   cfg.RateHz,
		priority: cfg.Priority,
		params:   cfg.Params,
		pitch:    pitch,
		bb:       cfg.Blackboard,
		state:    cfg.InitialPose.Normalize(),
		ring:     newDeadTimeBuffer(cfg.Params.LDeadSteer, cfg.RateHz),
	}, nil
}

func (n *Node) Name() string    { return n.name }
func (n *Node) RateHz() float64 { return n.rateHz }
func (n *Node) Priority() int   { return n.priority }

func (n *Node) OnInit() error {
	blackboard.Set(n.bb, blackboard.TopicEgoState, n.state)
	return nil
}

func (n *Node) OnShutdown() error { return nil }

// State returns the current ego state. Exposed for tests; other nodes read
// the published state from the blackboard, and the dynamics node remains
// the sole writer.
func (n *Node) State() State { return n.state }

// OnRun integrates one dt of FOPDT steering plus longitudinal dynamics, and
// publishes the resulting State. A non-finite result is a fatal error
// (promoted per SPEC_FULL.md §4.2, resolving spec.md's Open Question (a)).
func (n *Node) OnRun(simTime float64) (node.Status, error) {
	dt := 1 / n.rateHz

	cmd := n.currentCommand(simTime)
	n.ring.push(simTime, cmd.SteerCmd)

	delayedCmd := n.ring.delayed(simTime, n.params.LDeadSteer)
	steerEff := n.state.SteerEff + (dt/n.params.TauSteer)*(n.params.KSteer*delayedCmd-n.state.SteerEff)
	steerEff = clamp(steerEff, -n.params.MaxSteer, n.params.MaxSteer)

	theta := n.pitch(n.state)
	accel := n.params.KAcc*cmd.AccelCmd + n.params.Offset -
		n.params.CDrag*n.state.Vx*n.state.Vx -
		n.params.CCorner*math.Abs(steerEff)*n.state.Vx*n.state.Vx -
		9.80665*math.Sin(theta)
	accel = clamp(accel, n.params.AccelLimits.Min, n.params.AccelLimits.Max)

	vNext := n.state.Vx + accel*dt
	if !n.params.AllowReverse && vNext < 0 {
		vNext = 0
	}
	vAvg := 0.5 * (n.state.Vx + vNext)
	yawRate := (vAvg / n.params.Wheelbase) * math.Tan(steerEff)

	next := State{
		X:            n.state.X + vAvg*math.Cos(n.state.Yaw)*dt,
		Y:            n.state.Y + vAvg*math.Sin(n.state.Yaw)*dt,
		Yaw:          n.state.Yaw + yawRate*dt,
		Vx:           vNext,
		SteerEff:     steerEff,
		SteerCmdLast: cmd.SteerCmd,
	}.Normalize()

	if !next.Finite() {
		return node.Failed, &node.FatalError{Node: n.name, Err: fmt.Errorf("non-finite vehicle state: %+v", next)}
	}

	n.state = next
	blackboard.Set(n.bb, blackboard.TopicEgoState, n.state)
	return node.OK, nil
}

// currentCommand reads the latest published control.Command, or reuses the
// last one observed when the planner has not yet published at this rate
// (§6's "if absent, dynamics reuses the last published command").
func (n *Node) currentCommand(simTime float64) control.Command {
	if cmd, ok := blackboard.Get[control.Command](n.bb, blackboard.TopicControlCmd); ok {
		n.lastSeenCmd = cmd
		n.haveCmd = true
		return cmd
	}
	if n.haveCmd {
		return n.lastSeenCmd
	}
	return control.Command{Timestamp: simTime}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
