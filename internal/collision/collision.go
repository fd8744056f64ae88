// Package collision implements the dedicated termination node: collision
// detection against every obstacle polygon, off-track detection against the
// centreline, goal detection against the last checkpoint, with the §4.5
// tie-break collision > off_track > goal_reached > timeout. Timeout itself
// is detected by the Executor, not this node.
package collision

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/driveresearch/simcore/internal/blackboard"
	"github.com/driveresearch/simcore/internal/geometry"
	"github.com/driveresearch/simcore/internal/node"
	"github.com/driveresearch/simcore/internal/obstacle"
	"github.com/driveresearch/simcore/internal/vehicle"
	"github.com/driveresearch/simcore/internal/world"
)

// Reason is the terminal status a completed episode ends with.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonCollision   Reason = "collision"
	ReasonOffTrack    Reason = "off_track"
	ReasonGoalReached Reason = "goal_reached"
	ReasonTimeout     Reason = "timeout"
	ReasonError       Reason = "error"
)

// OffTrackMargin is added to the road half-width before a lateral deviation
// counts as off-track, per §4.5's "small margin".
const OffTrackMargin = 0.25

// Node is the collision/termination Node.
type Node struct {
	name     string
	rateHz   float64
	priority int

	world *world.Geometry
	bb    *blackboard.Blackboard

	egoLength, egoWidth, egoRearOverhang float64

	reason               Reason
	maxLateralDeviation  float64
	distanceTravelled    float64
	checkpointsPassed    int
	lastX, lastY         float64
	haveLast             bool
}

// Config bundles construction-time dependencies for a collision Node.
type Config struct {
	Name            string
	RateHz          float64
	Priority        int
	World           *world.Geometry
	EgoLength       float64
	EgoWidth        float64
	EgoRearOverhang float64
	Blackboard      *blackboard.Blackboard
}

// New constructs a collision Node.
func New(cfg Config) *Node {
	return &Node{
		name:            cfg.Name,
		rateHz:          cfg.RateHz,
		priority:        cfg.Priority,
		world:           cfg.World,
		bb:              cfg.Blackboard,
		egoLength:       cfg.EgoLength,
		egoWidth:        cfg.EgoWidth,
		egoRearOverhang: cfg.EgoRearOverhang,
	}
}

func (n *Node) Name() string     { return n.name }
func (n *Node) RateHz() float64  { return n.rateHz }
func (n *Node) Priority() int    { return n.priority }
func (n *Node) OnInit() error    { return nil }
func (n *Node) OnShutdown() error { return nil }

// Reason returns the terminal status reached so far (ReasonNone if the
// episode has not yet terminated via this node).
func (n *Node) Reason() Reason { return n.reason }

// MaxLateralDeviation returns the largest |lateral offset| observed.
func (n *Node) MaxLateralDeviation() float64 { return n.maxLateralDeviation }

// DistanceTravelled returns the cumulative path length of the ego pose.
func (n *Node) DistanceTravelled() float64 { return n.distanceTravelled }

// CheckpointsPassed returns how many checkpoints have been passed.
func (n *Node) CheckpointsPassed() int { return n.checkpointsPassed }

func (n *Node) OnRun(simTime float64) (node.Status, error) {
	ego, ok := blackboard.Get[vehicle.State](n.bb, blackboard.TopicEgoState)
	if !ok {
		return node.Skipped, nil
	}

	n.trackDistance(ego.X, ego.Y)

	s, lateral := geometry.ProjectFrenet(n.world.Centreline, ego.X, ego.Y)
	if math.Abs(lateral) > n.maxLateralDeviation {
		n.maxLateralDeviation = math.Abs(lateral)
	}
	for n.checkpointsPassed < len(n.world.Checkpoints) && s >= n.world.Checkpoints[n.checkpointsPassed] {
		n.checkpointsPassed++
	}

	if n.collided(ego) {
		n.reason = ReasonCollision
		n.bb.Terminate()
		return node.OK, nil
	}
	if math.Abs(lateral) > n.world.RoadHalfWidth+OffTrackMargin {
		n.reason = ReasonOffTrack
		n.bb.Terminate()
		return node.OK, nil
	}
	if len(n.world.Checkpoints) > 0 && s >= n.world.Checkpoints[len(n.world.Checkpoints)-1] {
		n.reason = ReasonGoalReached
		n.bb.Terminate()
		return node.OK, nil
	}
	return node.OK, nil
}

func (n *Node) trackDistance(x, y float64) {
	if n.haveLast {
		n.distanceTravelled += math.Hypot(x-n.lastX, y-n.lastY)
	}
	n.lastX, n.lastY = x, y
	n.haveLast = true
}

func (n *Node) collided(ego vehicle.State) bool {
	placed, ok := blackboard.Get[[]obstacle.Placed](n.bb, blackboard.TopicObstacles)
	if !ok {
		return false
	}
	// ego.X/Y is the rear-axle bicycle-model reference point; the SAT
	// rectangle must be centred on the body, forward of the rear axle by
	// half the length less the rear overhang.
	rearAxlePose := geometry.Pose{X: ego.X, Y: ego.Y, Yaw: ego.Yaw}
	bodyCentre := geometry.TransformBody(rearAxlePose, r2.Point{X: n.egoLength/2 - n.egoRearOverhang})
	egoPolygon := geometry.RectangleCorners(geometry.Pose{X: bodyCentre.X, Y: bodyCentre.Y, Yaw: ego.Yaw}, n.egoLength, n.egoWidth)
	for _, p := range placed {
		if geometry.SATOverlap(egoPolygon[:], p.Polygon) {
			return true
		}
	}
	return false
}
