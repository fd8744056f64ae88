package obstacle

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/golang/geo/r2"

	"github.com/driveresearch/simcore/internal/blackboard"
	"github.com/driveresearch/simcore/internal/geometry"
	"github.com/driveresearch/simcore/internal/node"
	"github.com/driveresearch/simcore/internal/world"
)

// Manager is the obstacle-manager Node: per tick it resolves every
// obstacle's current pose and polygon and publishes the resulting []Placed
// slice. Obstacles are owned exclusively by this node per §3.
type Manager struct {
	name     string
	rateHz   float64
	priority int

	obstacles []*Obstacle
	bb        *blackboard.Blackboard

	// placed is reused across ticks to avoid a per-tick slice allocation,
	// per §9's "avoid per-tick heap allocation" note. polyBufs holds one
	// scratch polygon buffer per obstacle, reused the same way so resolving
	// every obstacle's polygon each tick doesn't allocate either.
	placed   []Placed
	polyBufs [][]r2.Point
}

// GeneratorConfig procedurally lays out dynamic obstacles crossing the
// centreline at random arc-length offsets, drawn from the episode RNG
// (SPEC_FULL.md §4.4's "Procedural dynamic obstacles").
type GeneratorConfig struct {
	Count       int
	SpeedMin    float64
	SpeedMax    float64
	CrossSpan   float64 // lateral extent, metres, of the cross-track waypoints
	Period      float64 // crossing time, seconds, used when the drawn speed is not positive
}

// Config bundles construction-time dependencies for a Manager.
type Config struct {
	Name       string
	RateHz     float64
	Priority   int
	Obstacles  []*Obstacle
	Blackboard *blackboard.Blackboard
}

// New constructs a Manager, validating every obstacle.
func New(cfg Config) (*Manager, error) {
	if cfg.RateHz <= 0 {
		return nil, fmt.Errorf("obstacle: rate_hz must be positive, got %v", cfg.RateHz)
	}
	for _, o := range cfg.Obstacles {
		if err := o.Validate(); err != nil {
			return nil, err
		}
	}
	polyBufs := make([][]r2.Point, len(cfg.Obstacles))
	for i, o := range cfg.Obstacles {
		capacity := 4
		if o.Shape.Kind == ShapeCircle {
			capacity = geometry.CircleApproxVertices
		}
		polyBufs[i] = make([]r2.Point, 0, capacity)
	}
	return &Manager{
		name:      cfg.Name,
		rateHz:    cfg.RateHz,
		priority:  cfg.Priority,
		obstacles: cfg.Obstacles,
		bb:        cfg.Blackboard,
		placed:    make([]Placed, len(cfg.Obstacles)),
		polyBufs:  polyBufs,
	}, nil
}

// GenerateCrossing builds GeneratorConfig.Count dynamic obstacles that cross
// the centreline at random arc-length offsets. Each moves from one side of
// the road to the other over its own crossing time (CrossSpan divided by a
// randomly drawn speed), then restarts from the first side as its two-point
// waypoint cycle repeats. rng must be the episode's single seeded source so
// placement is reproducible.
func GenerateCrossing(cfg GeneratorConfig, w *world.Geometry, shape Shape, rng *rand.Rand) []*Obstacle {
	out := make([]*Obstacle, 0, cfg.Count)
	half := cfg.CrossSpan / 2
	for i := 0; i < cfg.Count; i++ {
		s := rng.Float64() * w.SMax()
		sample := nearestSample(w, s)

		speed := cfg.SpeedMin + rng.Float64()*(cfg.SpeedMax-cfg.SpeedMin)
		crossTime := cfg.Period
		if speed > 0 {
			crossTime = cfg.CrossSpan / speed
		}

		nx, ny := -math.Sin(sample.YawRef), math.Cos(sample.YawRef)
		x0, y0 := sample.X-half*nx, sample.Y-half*ny
		x1, y1 := sample.X+half*nx, sample.Y+half*ny
		crossYaw := sample.YawRef + math.Pi/2

		out = append(out, &Obstacle{
			ID:    fmt.Sprintf("generated_%d", i),
			Kind:  KindDynamic,
			Shape: shape,
			Waypoints: []Waypoint{
				{T: 0, X: x0, Y: y0, Yaw: crossYaw},
				{T: crossTime, X: x1, Y: y1, Yaw: crossYaw},
			},
		})
	}
	return out
}

func nearestSample(w *world.Geometry, s float64) struct{ X, Y, YawRef float64 } {
	best := w.Centreline[0]
	bestDiff := math.Abs(best.S - s)
	for _, c := range w.Centreline {
		if d := math.Abs(c.S - s); d < bestDiff {
			bestDiff = d
			best = c
		}
	}
	return struct{ X, Y, YawRef float64 }{best.X, best.Y, best.YawRef}
}

func (m *Manager) Name() string    { return m.name }
func (m *Manager) RateHz() float64 { return m.rateHz }
func (m *Manager) Priority() int   { return m.priority }

func (m *Manager) OnInit() error {
	m.publish(0)
	return nil
}

func (m *Manager) OnShutdown() error { return nil }

func (m *Manager) OnRun(simTime float64) (node.Status, error) {
	m.publish(simTime)
	return node.OK, nil
}

func (m *Manager) publish(simTime float64) {
	for i, o := range m.obstacles {
		pose := o.PoseAt(simTime)
		m.polyBufs[i] = o.PolygonInto(pose, m.polyBufs[i])
		m.placed[i] = Placed{ID: o.ID, Pose: pose, Polygon: m.polyBufs[i]}
	}
	blackboard.Set(m.bb, blackboard.TopicObstacles, m.placed)
}
