package lidar_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveresearch/simcore/internal/blackboard"
	"github.com/driveresearch/simcore/internal/geometry"
	"github.com/driveresearch/simcore/internal/lidar"
	"github.com/driveresearch/simcore/internal/node"
	"github.com/driveresearch/simcore/internal/vehicle"
	"github.com/driveresearch/simcore/internal/world"
)

// Scenario 5: ego at origin facing +x, a single wall segment from
// (10,-5) to (10,5); beams into the wall's angular span return ~10m, beams
// outside return range_max.
func TestFrontWallScenario(t *testing.T) {
	w := &world.Geometry{
		Segments: []geometry.Segment{
			{P: geometry.PointAt(10, -5), Q: geometry.PointAt(10, 5)},
		},
		Centreline:    []geometry.FrenetPoint{{S: 0, X: 0, Y: 0, YawRef: 0}, {S: 100, X: 100, Y: 0, YawRef: 0}},
		Checkpoints:   []float64{100},
		RoadHalfWidth: 10,
	}

	bb := blackboard.New()
	blackboard.Set(bb, blackboard.TopicEgoState, vehicle.State{X: 0, Y: 0, Yaw: 0})

	s, err := lidar.New(lidar.Config{
		Name:   "lidar",
		RateHz: 10,
		World:  w,
		Beam: lidar.BeamConfig{
			NBeams:   21,
			AngleMin: -math.Pi / 2,
			AngleMax: math.Pi / 2,
			RangeMin: 0,
			RangeMax: 50,
		},
		Blackboard: bb,
	})
	require.NoError(t, err)

	_, err = s.OnRun(0)
	require.NoError(t, err)

	scan, ok := blackboard.Get[lidar.Scan](bb, blackboard.TopicLidarScan)
	require.True(t, ok)

	for i, r := range scan.Ranges {
		angle := scan.AngleMin + float64(i)*scan.AngleIncrement
		// Wall spans atan2(±5,10) ~ ±0.4636 rad around the +x axis.
		if math.Abs(angle) < math.Atan2(5, 10)-0.01 {
			assert.InDelta(t, 10.0/math.Cos(angle), r, 1e-6, "beam %d angle %v", i, angle)
		} else if math.Abs(angle) > math.Atan2(5, 10)+0.05 {
			assert.Equal(t, 50.0, r, "beam %d angle %v", i, angle)
		}
	}
}

func TestRangesAlwaysWithinBounds(t *testing.T) {
	w := &world.Geometry{
		Segments: []geometry.Segment{
			{P: geometry.PointAt(3, -1), Q: geometry.PointAt(3, 1)},
		},
		Centreline:    []geometry.FrenetPoint{{S: 0, X: 0, Y: 0, YawRef: 0}, {S: 100, X: 100, Y: 0, YawRef: 0}},
		Checkpoints:   []float64{100},
		RoadHalfWidth: 10,
	}
	bb := blackboard.New()
	blackboard.Set(bb, blackboard.TopicEgoState, vehicle.State{X: 0, Y: 0, Yaw: 0})

	s, err := lidar.New(lidar.Config{
		Name:   "lidar",
		RateHz: 10,
		World:  w,
		Beam: lidar.BeamConfig{
			NBeams:   360,
			AngleMin: -math.Pi,
			AngleMax: math.Pi,
			RangeMin: 0.5,
			RangeMax: 20,
		},
		Blackboard: bb,
	})
	require.NoError(t, err)
	_, err = s.OnRun(0)
	require.NoError(t, err)

	scan, _ := blackboard.Get[lidar.Scan](bb, blackboard.TopicLidarScan)
	for _, r := range scan.Ranges {
		assert.GreaterOrEqual(t, r, 0.5)
		assert.LessOrEqual(t, r, 20.0)
	}
}

func TestTangentBeamReportsRangeMaxNotSpuriousHit(t *testing.T) {
	// A segment lying exactly along the beam's direction is parallel, not
	// a hit.
	w := &world.Geometry{
		Segments: []geometry.Segment{
			{P: geometry.PointAt(1, 0), Q: geometry.PointAt(5, 0)},
		},
		Centreline:    []geometry.FrenetPoint{{S: 0, X: 0, Y: 0, YawRef: 0}, {S: 100, X: 100, Y: 0, YawRef: 0}},
		Checkpoints:   []float64{100},
		RoadHalfWidth: 10,
	}
	bb := blackboard.New()
	blackboard.Set(bb, blackboard.TopicEgoState, vehicle.State{X: 0, Y: 0, Yaw: 0})

	s, err := lidar.New(lidar.Config{
		Name:   "lidar",
		RateHz: 10,
		World:  w,
		Beam: lidar.BeamConfig{
			NBeams:   1,
			AngleMin: 0,
			AngleMax: 0,
			RangeMin: 0,
			RangeMax: 30,
		},
		Blackboard: bb,
	})
	require.NoError(t, err)
	_, err = s.OnRun(0)
	require.NoError(t, err)

	scan, _ := blackboard.Get[lidar.Scan](bb, blackboard.TopicLidarScan)
	assert.Equal(t, 30.0, scan.Ranges[0])
}

func TestSkippedWithoutEgoState(t *testing.T) {
	w := &world.Geometry{
		Centreline:    []geometry.FrenetPoint{{S: 0, X: 0, Y: 0, YawRef: 0}, {S: 100, X: 100, Y: 0, YawRef: 0}},
		Checkpoints:   []float64{100},
		RoadHalfWidth: 10,
	}
	bb := blackboard.New()
	s, err := lidar.New(lidar.Config{
		Name:   "lidar",
		RateHz: 10,
		World:  w,
		Beam:   lidar.BeamConfig{NBeams: 1, RangeMin: 0, RangeMax: 10},
		Blackboard: bb,
	})
	require.NoError(t, err)
	status, err := s.OnRun(0)
	require.NoError(t, err)
	assert.Equal(t, node.Skipped, status)
}
