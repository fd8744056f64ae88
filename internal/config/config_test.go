package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveresearch/simcore/internal/blackboard"
	"github.com/driveresearch/simcore/internal/config"
	"github.com/driveresearch/simcore/internal/control"
	"github.com/driveresearch/simcore/internal/episode"
	"github.com/driveresearch/simcore/internal/geometry"
	"github.com/driveresearch/simcore/internal/lidar"
	"github.com/driveresearch/simcore/internal/node"
	"github.com/driveresearch/simcore/internal/obstacle"
	"github.com/driveresearch/simcore/internal/vehicle"
	"github.com/driveresearch/simcore/internal/world"
)

// constantPlanner is a stand-in for the planner/controller external
// collaborator (§6): it publishes a fixed ControlCommand every tick.
type constantPlanner struct {
	rateHz   float64
	priority int
	cmd      control.Command
	bb       *blackboard.Blackboard
}

func (p *constantPlanner) Name() string      { return "planner" }
func (p *constantPlanner) RateHz() float64   { return p.rateHz }
func (p *constantPlanner) Priority() int     { return p.priority }
func (p *constantPlanner) OnInit() error     { return nil }
func (p *constantPlanner) OnShutdown() error { return nil }
func (p *constantPlanner) OnRun(simTime float64) (node.Status, error) {
	cmd := p.cmd
	cmd.Timestamp = simTime
	blackboard.Set(p.bb, blackboard.TopicControlCmd, cmd)
	return node.OK, nil
}

func straightWorldGeometry() world.Geometry {
	cl := make([]geometry.FrenetPoint, 0, 201)
	for i := 0; i <= 200; i++ {
		cl = append(cl, geometry.FrenetPoint{S: float64(i) * 0.5, X: float64(i) * 0.5, Y: 0, YawRef: 0})
	}
	return world.Geometry{
		Centreline:    cl,
		Checkpoints:   []float64{95},
		RoadHalfWidth: 3,
	}
}

func testVehicleParams() vehicle.Params {
	return vehicle.Params{
		Wheelbase:   2.5,
		Width:       1.8,
		Length:      4.5,
		KSteer:      1.0,
		TauSteer:    0.2,
		LDeadSteer:  0.1,
		KAcc:        1.0,
		CDrag:       0.0,
		CCorner:     0.0,
		MaxSteer:    0.5,
		AccelLimits: vehicle.AccelLimits{Min: -5, Max: 5},
	}
}

func baseConfig() config.Config {
	return config.Config{
		ClockRateHz: 100,
		DurationSim: 2.0,
		Seed:        1,
		Vehicle:     testVehicleParams(),
		World:       straightWorldGeometry(),
		Lidar: config.LidarSpec{
			Beam: lidar.BeamConfig{NBeams: 1, RangeMin: 0, RangeMax: 10},
		},
	}
}

func TestBuildRejectsNonPositiveClockRate(t *testing.T) {
	cfg := baseConfig()
	cfg.ClockRateHz = 0
	_, err := cfg.Build(nil)
	require.Error(t, err)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestBuildRejectsInvalidVehicleParams(t *testing.T) {
	cfg := baseConfig()
	cfg.Vehicle.Wheelbase = 0
	_, err := cfg.Build(nil)
	require.Error(t, err)
}

func TestBuildRejectsMalformedWorld(t *testing.T) {
	cfg := baseConfig()
	cfg.World = world.Geometry{}
	_, err := cfg.Build(nil)
	require.Error(t, err)
}

// End-to-end scenario 1 (straight-line coast), driven through the full
// Config -> Episode -> Executor wiring rather than the dynamics node alone.
func TestStraightLineCoastEndToEnd(t *testing.T) {
	cfg := baseConfig()
	ep, err := cfg.Build(nil)
	require.NoError(t, err)

	planner := &constantPlanner{
		rateHz:   100,
		priority: -1, // runs before dynamics, so its command is fresh this tick
		cmd:      control.Command{SteerCmd: 0, AccelCmd: 1.0},
		bb:       ep.Blackboard(),
	}
	require.NoError(t, ep.RegisterExternal(planner))

	outcome := ep.Run(2.0, nil)
	assert.Equal(t, episode.StatusTimeout, outcome.Result.Status)
	assert.InDelta(t, 2.0, outcome.Result.DistanceTravelled, 0.1)
}

// A malformed dynamic obstacle (non-zero t0) is rejected at Build time, per
// §7's "abort before on_init" contract.
func TestObstacleValidationSurfacesAsConfigError(t *testing.T) {
	cfg := baseConfig()
	cfg.Obstacles = []*obstacle.Obstacle{{
		ID:    "bad",
		Kind:  obstacle.KindDynamic,
		Shape: obstacle.Shape{Kind: obstacle.ShapeRectangle, Width: 1, Length: 1},
		Waypoints: []obstacle.Waypoint{
			{T: 1, X: 0, Y: 0},
			{T: 2, X: 1, Y: 0},
		},
	}}
	_, err := cfg.Build(nil)
	require.Error(t, err)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

// A generator block is accepted by Build: the generated crossing obstacles
// pass the obstacle manager's validation and the episode is assembled.
func TestGeneratedCrossingObstaclesAreRegistered(t *testing.T) {
	cfg := baseConfig()
	cfg.Generator = &config.GeneratorSpec{
		Count:     3,
		SpeedMin:  1,
		SpeedMax:  2,
		CrossSpan: 6,
		Period:    4,
		Shape:     obstacle.Shape{Kind: obstacle.ShapeRectangle, Width: 1, Length: 1},
	}
	ep, err := cfg.Build(nil)
	require.NoError(t, err)
	require.NotNil(t, ep)
}
