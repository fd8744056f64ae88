package obstacle_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveresearch/simcore/internal/geometry"
	"github.com/driveresearch/simcore/internal/obstacle"
)

func TestShapeDiscriminatorRoundTrips(t *testing.T) {
	raw := `{"shape":"rectangle","width":2,"length":4}`
	var s obstacle.Shape
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, obstacle.ShapeRectangle, s.Kind)
	assert.Equal(t, 2.0, s.Width)
	assert.Equal(t, 4.0, s.Length)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	var s2 obstacle.Shape
	require.NoError(t, json.Unmarshal(out, &s2))
	assert.Equal(t, s, s2)
}

func TestUnknownShapeIsRejected(t *testing.T) {
	var s obstacle.Shape
	err := json.Unmarshal([]byte(`{"shape":"triangle"}`), &s)
	assert.Error(t, err)
}

func TestDynamicWaypointCyclicContract(t *testing.T) {
	o := &obstacle.Obstacle{
		Kind:  obstacle.KindDynamic,
		Shape: obstacle.Shape{Kind: obstacle.ShapeCircle, Radius: 1},
		Waypoints: []obstacle.Waypoint{
			{T: 0, X: 10, Y: -5, Yaw: 0},
			{T: 2, X: 10, Y: 5, Yaw: 0},
		},
	}
	require.NoError(t, o.Validate())

	p0 := o.PoseAt(0)
	pN := o.PoseAt(2)
	assert.InDelta(t, p0.X, pN.X, 1e-9)
	assert.InDelta(t, p0.Y, pN.Y, 1e-9)
}

func TestDynamicWaypointMidpointInterpolation(t *testing.T) {
	o := &obstacle.Obstacle{
		Kind:  obstacle.KindDynamic,
		Shape: obstacle.Shape{Kind: obstacle.ShapeCircle, Radius: 1},
		Waypoints: []obstacle.Waypoint{
			{T: 0, X: 10, Y: -5, Yaw: 0},
			{T: 2, X: 10, Y: 5, Yaw: 0},
		},
	}
	require.NoError(t, o.Validate())

	p := o.PoseAt(1.0)
	assert.InDelta(t, 10.0, p.X, 1e-9)
	assert.InDelta(t, 0.0, p.Y, 1e-9)
}

func TestDynamicWaypointRejectsNonzeroStart(t *testing.T) {
	o := &obstacle.Obstacle{
		Kind: obstacle.KindDynamic,
		Waypoints: []obstacle.Waypoint{
			{T: 1, X: 0, Y: 0},
			{T: 2, X: 1, Y: 1},
		},
	}
	assert.Error(t, o.Validate())
}

func TestStaticObstaclePoseIsConstant(t *testing.T) {
	o := &obstacle.Obstacle{
		Kind: obstacle.KindStatic,
		Pose: geometry.Pose{X: 5, Y: 0, Yaw: 0},
	}
	require.NoError(t, o.Validate())
	assert.Equal(t, geometry.Pose{X: 5, Y: 0, Yaw: 0}, o.PoseAt(0))
	assert.Equal(t, geometry.Pose{X: 5, Y: 0, Yaw: 0}, o.PoseAt(100))
}

func TestRectanglePolygonHasFourCorners(t *testing.T) {
	o := &obstacle.Obstacle{
		Kind:  obstacle.KindStatic,
		Shape: obstacle.Shape{Kind: obstacle.ShapeRectangle, Width: 2, Length: 2},
		Pose:  geometry.Pose{X: 5, Y: 0, Yaw: 0},
	}
	require.NoError(t, o.Validate())
	poly := o.Polygon(o.PoseAt(0))
	assert.Len(t, poly, 4)
}
