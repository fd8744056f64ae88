// Package config is the single entry point for constructing an episode: a
// JSON-shaped Config (mirroring the teacher's SimulationInput) that
// Config.Build validates and assembles into a ready-to-run
// *episode.Episode. No other package constructs an Episode's nodes
// directly from raw parameters; config.Build is where wiring order (and so
// priority order, per §4.5) is decided once.
package config

import (
	"fmt"
	"math/rand"

	"log/slog"

	"github.com/driveresearch/simcore/internal/blackboard"
	"github.com/driveresearch/simcore/internal/clock"
	"github.com/driveresearch/simcore/internal/collision"
	"github.com/driveresearch/simcore/internal/episode"
	"github.com/driveresearch/simcore/internal/executor"
	"github.com/driveresearch/simcore/internal/lidar"
	"github.com/driveresearch/simcore/internal/node"
	"github.com/driveresearch/simcore/internal/obstacle"
	"github.com/driveresearch/simcore/internal/telemetry"
	"github.com/driveresearch/simcore/internal/vehicle"
	"github.com/driveresearch/simcore/internal/world"
)

// ConfigError reports a malformed Config; per §7 it aborts the run before
// on_init, never mid-episode.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(field string, err error) error {
	return &ConfigError{Field: field, Err: err}
}

// NodeRate is the per-node rate/priority pair §6 calls out as a recognised
// configuration option.
type NodeRate struct {
	RateHz   float64 `json:"rate_hz"`
	Priority int     `json:"priority"`
}

// GeneratorSpec configures the obstacle manager's procedural crossing
// generator (SPEC_FULL.md §4.4). Nil means no generated obstacles.
type GeneratorSpec struct {
	Count     int            `json:"count"`
	SpeedMin  float64        `json:"speed_min"`
	SpeedMax  float64        `json:"speed_max"`
	CrossSpan float64        `json:"cross_span"`
	Period    float64        `json:"period"`
	Shape     obstacle.Shape `json:"shape"`
}

// Config is the JSON-serialisable root of a single episode's configuration.
type Config struct {
	ClockRateHz float64 `json:"clock_rate_hz"`
	DurationSim float64 `json:"duration_sim"`
	Seed        int64   `json:"seed"`

	Vehicle     vehicle.Params `json:"vehicle"`
	InitialPose vehicle.State  `json:"initial_pose"`

	World world.Geometry `json:"world"`

	Obstacles []*obstacle.Obstacle `json:"obstacles,omitempty"`
	Generator *GeneratorSpec       `json:"generator,omitempty"`

	Dynamics  NodeRate  `json:"dynamics"`
	Obstacle  NodeRate  `json:"obstacle_manager"`
	Lidar     LidarSpec `json:"lidar"`
	Collision NodeRate  `json:"collision"`
	Logger    NodeRate  `json:"logger"`
}

// LidarSpec bundles the LiDAR node's rate/priority with its mount and beam
// parameters, since none of those are meaningful without the others.
type LidarSpec struct {
	RateHz   float64          `json:"rate_hz"`
	Priority int              `json:"priority"`
	Mount    lidar.Mount      `json:"mount"`
	Beam     lidar.BeamConfig `json:"beam"`
}

// Build validates cfg and assembles a ready-to-run Episode. Node priorities
// follow §4.5's normative ordering: obstacle manager and dynamics both run
// before collision (dynamics strictly before collision, resolving spec.md's
// Open Question (b)), and the logger runs last so it observes every other
// node's output from the same tick.
func (cfg Config) Build(log *slog.Logger) (*episode.Episode, error) {
	if cfg.ClockRateHz <= 0 {
		return nil, configErr("clock_rate_hz", fmt.Errorf("must be positive, got %v", cfg.ClockRateHz))
	}
	if cfg.DurationSim <= 0 {
		return nil, configErr("duration_sim", fmt.Errorf("must be positive, got %v", cfg.DurationSim))
	}
	if err := cfg.Vehicle.Validate(); err != nil {
		return nil, configErr("vehicle", err)
	}
	if err := cfg.World.Validate(); err != nil {
		return nil, configErr("world", err)
	}

	c, err := clock.New(cfg.ClockRateHz)
	if err != nil {
		return nil, configErr("clock_rate_hz", err)
	}
	bb := blackboard.New()
	rng := rand.New(rand.NewSource(cfg.Seed))

	world := cfg.World
	blackboard.Set(bb, blackboard.TopicWorld, world)

	dynamicsNode, err := vehicle.New(vehicle.Config{
		Name:        "dynamics",
		RateHz:      nodeRateOrDefault(cfg.Dynamics.RateHz, cfg.ClockRateHz),
		Priority:    cfg.Dynamics.Priority,
		Params:      cfg.Vehicle,
		InitialPose: cfg.InitialPose,
		Blackboard:  bb,
	})
	if err != nil {
		return nil, configErr("dynamics", err)
	}

	obstacles := append([]*obstacle.Obstacle(nil), cfg.Obstacles...)
	if cfg.Generator != nil {
		generated := obstacle.GenerateCrossing(obstacle.GeneratorConfig{
			Count:     cfg.Generator.Count,
			SpeedMin:  cfg.Generator.SpeedMin,
			SpeedMax:  cfg.Generator.SpeedMax,
			CrossSpan: cfg.Generator.CrossSpan,
			Period:    cfg.Generator.Period,
		}, &world, cfg.Generator.Shape, rng)
		obstacles = append(obstacles, generated...)
	}
	obstacleManager, err := obstacle.New(obstacle.Config{
		Name:       "obstacle_manager",
		RateHz:     nodeRateOrDefault(cfg.Obstacle.RateHz, cfg.ClockRateHz),
		Priority:   cfg.Obstacle.Priority,
		Obstacles:  obstacles,
		Blackboard: bb,
	})
	if err != nil {
		return nil, configErr("obstacles", err)
	}

	lidarSensor, err := lidar.New(lidar.Config{
		Name:       "lidar",
		RateHz:     nodeRateOrDefault(cfg.Lidar.RateHz, cfg.ClockRateHz),
		Priority:   cfg.Lidar.Priority,
		Mount:      cfg.Lidar.Mount,
		Beam:       cfg.Lidar.Beam,
		World:      &world,
		Blackboard: bb,
		Rand:       rng,
	})
	if err != nil {
		return nil, configErr("lidar", err)
	}

	collisionNode := collision.New(collision.Config{
		Name:            "collision",
		RateHz:          nodeRateOrDefault(cfg.Collision.RateHz, cfg.ClockRateHz),
		Priority:        cfg.Collision.Priority,
		World:           &world,
		EgoLength:       cfg.Vehicle.Length,
		EgoWidth:        cfg.Vehicle.Width,
		EgoRearOverhang: cfg.Vehicle.RearOverhang,
		Blackboard:      bb,
	})

	recorder := telemetry.New(telemetry.Config{
		Name:       "logger",
		RateHz:     nodeRateOrDefault(cfg.Logger.RateHz, cfg.ClockRateHz),
		Priority:   cfg.Logger.Priority,
		Blackboard: bb,
		Log:        log,
	})

	ex := executor.New(c, bb, log)

	if err := ex.Register(dynamicsNode); err != nil {
		return nil, configErr("dynamics", err)
	}
	if err := ex.Register(obstacleManager); err != nil {
		return nil, configErr("obstacle_manager", err)
	}
	if err := ex.Register(lidarSensor); err != nil {
		return nil, configErr("lidar", err)
	}
	if err := ex.Register(collisionNode); err != nil {
		return nil, configErr("collision", err)
	}
	if err := ex.Register(recorder); err != nil {
		return nil, configErr("logger", err)
	}

	return episode.New(c, bb, ex, collisionNode, recorder, log), nil
}

// RunDeterministic builds and runs a single episode from cfg, constructing
// and registering any externals (typically a planner/controller stand-in,
// which needs the episode's blackboard to be built first) before running.
// Build seeds its RNG solely from cfg.Seed, so this is a pure function of
// its arguments: identical cfg and externals reproduce an identical
// Outcome, which is what the parallel-episode determinism harness in
// internal/episode's tests relies on.
func RunDeterministic(cfg Config, externals ...func(*blackboard.Blackboard) node.Node) (episode.Outcome, error) {
	ep, err := cfg.Build(nil)
	if err != nil {
		return episode.Outcome{}, err
	}
	for _, mk := range externals {
		if err := ep.RegisterExternal(mk(ep.Blackboard())); err != nil {
			return episode.Outcome{}, err
		}
	}
	return ep.Run(cfg.DurationSim, nil), nil
}

func nodeRateOrDefault(rateHz, fallback float64) float64 {
	if rateHz > 0 {
		return rateHz
	}
	return fallback
}
