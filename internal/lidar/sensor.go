package lidar

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/driveresearch/simcore/internal/blackboard"
	"github.com/driveresearch/simcore/internal/geometry"
	"github.com/driveresearch/simcore/internal/node"
	"github.com/driveresearch/simcore/internal/obstacle"
	"github.com/driveresearch/simcore/internal/vehicle"
	"github.com/driveresearch/simcore/internal/world"
)

// Mount is the sensor's body-frame offset from the ego vehicle's rear-axle
// origin.
type Mount struct {
	X, Y, Yaw float64
}

// BeamConfig configures the beam fan.
type BeamConfig struct {
	NBeams     int
	AngleMin   float64
	AngleMax   float64
	RangeMin   float64
	RangeMax   float64
	NoiseSigma float64 // 0 disables noise
}

// Sensor is the LiDAR Node. World segments come from the geometry pointer
// given at construction; obstacle polygons are read fresh from the
// blackboard every tick.
type Sensor struct {
	name     string
	rateHz   float64
	priority int

	mount Mount
	beam  BeamConfig

	world *world.Geometry
	bb    *blackboard.Blackboard
	rng   *rand.Rand

	// segBuf is reused across ticks: world segments plus every obstacle
	// polygon's edges, to avoid allocating inside the per-beam loop.
	segBuf []geometry.Segment

	// ranges is reused across ticks, sized once to beam.NBeams, so casting
	// the whole beam fan doesn't allocate.
	ranges []float64
}

// Config bundles construction-time dependencies for a Sensor.
type Config struct {
	Name       string
	RateHz     float64
	Priority   int
	Mount      Mount
	Beam       BeamConfig
	World      *world.Geometry
	Blackboard *blackboard.Blackboard
	Rand       *rand.Rand // episode-seeded; required if Beam.NoiseSigma > 0
}

// New constructs a Sensor.
func New(cfg Config) (*Sensor, error) {
	if cfg.RateHz <= 0 {
		return nil, fmt.Errorf("lidar: rate_hz must be positive, got %v", cfg.RateHz)
	}
	if cfg.Beam.NBeams <= 0 {
		return nil, fmt.Errorf("lidar: n_beams must be positive, got %v", cfg.Beam.NBeams)
	}
	if cfg.Beam.RangeMin < 0 || cfg.Beam.RangeMax <= cfg.Beam.RangeMin {
		return nil, fmt.Errorf("lidar: range_min/range_max invalid (%v, %v)", cfg.Beam.RangeMin, cfg.Beam.RangeMax)
	}
	return &Sensor{
		name:     cfg.Name,
		rateHz:   cfg.RateHz,
		priority: cfg.Priority,
		mount:    cfg.Mount,
		beam:     cfg.Beam,
		world:    cfg.World,
		bb:       cfg.Blackboard,
		rng:      cfg.Rand,
		ranges:   make([]float64, cfg.Beam.NBeams),
	}, nil
}

func (s *Sensor) Name() string      { return s.name }
func (s *Sensor) RateHz() float64   { return s.rateHz }
func (s *Sensor) Priority() int     { return s.priority }
func (s *Sensor) OnInit() error     { return nil }
func (s *Sensor) OnShutdown() error { return nil }

// OnRun generates the beam fan from the sensor's current pose (ego pose
// offset by Mount) and casts every beam against world segments plus every
// currently active obstacle polygon's edges.
func (s *Sensor) OnRun(simTime float64) (node.Status, error) {
	ego, ok := blackboard.Get[vehicle.State](s.bb, blackboard.TopicEgoState)
	if !ok {
		return node.Skipped, nil
	}

	sensorPose := geometry.TransformBody(geometry.Pose{X: ego.X, Y: ego.Y, Yaw: ego.Yaw},
		r2.Point{X: s.mount.X, Y: s.mount.Y})
	sensorYaw := ego.Yaw + s.mount.Yaw

	s.rebuildSegmentBuffer()

	n := s.beam.NBeams
	angleIncrement := 0.0
	if n > 1 {
		angleIncrement = (s.beam.AngleMax - s.beam.AngleMin) / float64(n-1)
	}

	origin := r2.Point{X: sensorPose.X, Y: sensorPose.Y}
	for i := 0; i < n; i++ {
		angle := sensorYaw + s.beam.AngleMin + float64(i)*angleIncrement
		dir := r2.Point{X: math.Cos(angle), Y: math.Sin(angle)}
		rng := castBeam(origin, dir, s.segBuf, s.beam.RangeMin, s.beam.RangeMax)
		s.ranges[i] = s.applyNoise(rng)
	}

	blackboard.Set(s.bb, blackboard.TopicLidarScan, Scan{
		Timestamp:      simTime,
		OriginX:        sensorPose.X,
		OriginY:        sensorPose.Y,
		AngleMin:       sensorYaw + s.beam.AngleMin,
		AngleIncrement: angleIncrement,
		Ranges:         s.ranges,
	})
	return node.OK, nil
}

// expRandSource adapts a *math/rand.Rand to gonum's distuv.Normal.Src,
// which expects golang.org/x/exp/rand.Source (Uint64/Seed(uint64)).
type expRandSource struct{ r *rand.Rand }

func (s expRandSource) Uint64() uint64   { return s.r.Uint64() }
func (s expRandSource) Seed(seed uint64) { s.r.Seed(int64(seed)) }

// applyNoise adds seeded Gaussian noise after clamping, then re-clamps so
// the §8 LiDAR range-bound invariant still holds.
func (s *Sensor) applyNoise(rng float64) float64 {
	if s.beam.NoiseSigma <= 0 || s.rng == nil {
		return rng
	}
	noise := distuv.Normal{Mu: 0, Sigma: s.beam.NoiseSigma, Src: expRandSource{s.rng}}
	noisy := rng + noise.Rand()
	if noisy < s.beam.RangeMin {
		return s.beam.RangeMin
	}
	if noisy > s.beam.RangeMax {
		return s.beam.RangeMax
	}
	return noisy
}

func (s *Sensor) rebuildSegmentBuffer() {
	s.segBuf = s.segBuf[:0]
	s.segBuf = append(s.segBuf, s.world.Segments...)

	if placed, ok := blackboard.Get[[]obstacle.Placed](s.bb, blackboard.TopicObstacles); ok {
		for _, p := range placed {
			poly := p.Polygon
			for i := range poly {
				j := (i + 1) % len(poly)
				s.segBuf = append(s.segBuf, geometry.Segment{P: poly[i], Q: poly[j]})
			}
		}
	}
}
