package geometry_test

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"

	"github.com/driveresearch/simcore/internal/geometry"
)

func TestNormalizeAngleWrapsIntoRange(t *testing.T) {
	assert.InDelta(t, 0.0, geometry.NormalizeAngle(0), 1e-12)
	assert.InDelta(t, math.Pi, geometry.NormalizeAngle(math.Pi), 1e-9)
	assert.InDelta(t, -math.Pi+0.1, geometry.NormalizeAngle(math.Pi+0.1), 1e-9)
	assert.InDelta(t, 0.5, geometry.NormalizeAngle(0.5+4*math.Pi), 1e-9)
}

func TestRectangleCornersRoundTrip(t *testing.T) {
	pose := geometry.Pose{X: 10, Y: 5, Yaw: math.Pi / 4}
	length, width := 4.0, 2.0
	corners := geometry.RectangleCorners(pose, length, width)

	// Projecting each world corner back into the body frame must recover
	// the original half-extents.
	for _, c := range corners {
		local := geometry.Rotate(geometry.Sub(c, r2.Point{X: pose.X, Y: pose.Y}), -pose.Yaw)
		assert.InDelta(t, length/2, math.Abs(local.X), 1e-9)
		assert.InDelta(t, width/2, math.Abs(local.Y), 1e-9)
	}
}

func TestSATOverlapDetectsIntersectingRectangles(t *testing.T) {
	a := geometry.RectangleCorners(geometry.Pose{X: 0, Y: 0, Yaw: 0}, 2, 2)
	b := geometry.RectangleCorners(geometry.Pose{X: 1, Y: 0, Yaw: 0}, 2, 2)
	assert.True(t, geometry.SATOverlap(a[:], b[:]))
}

func TestSATOverlapRejectsDisjointRectangles(t *testing.T) {
	a := geometry.RectangleCorners(geometry.Pose{X: 0, Y: 0, Yaw: 0}, 2, 2)
	b := geometry.RectangleCorners(geometry.Pose{X: 10, Y: 10, Yaw: 0}, 2, 2)
	assert.False(t, geometry.SATOverlap(a[:], b[:]))
}

func TestSATOverlapDegeneratePolygonNeverOverlaps(t *testing.T) {
	degenerate := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	normal := geometry.RectangleCorners(geometry.Pose{X: 0, Y: 0, Yaw: 0}, 2, 2)
	assert.False(t, geometry.SATOverlap(degenerate, normal[:]))
}

func TestFrenetRoundTripWithinTolerance(t *testing.T) {
	samples := make([]geometry.FrenetPoint, 0, 100)
	for i := 0; i < 100; i++ {
		s := float64(i)
		samples = append(samples, geometry.FrenetPoint{S: s, X: s, Y: 0, YawRef: 0})
	}
	s, lateral := geometry.ProjectFrenet(samples, 50, 0)
	x, y := geometry.FrenetToCartesian(samples, s, lateral)
	assert.InDelta(t, 50.0, x, 1e-6)
	assert.InDelta(t, 0.0, y, 1e-6)
}

func TestCirclePolygonHasFixedVertexCount(t *testing.T) {
	poly := geometry.CirclePolygon(0, 0, 1)
	assert.Len(t, poly, geometry.CircleApproxVertices)
	for _, p := range poly {
		assert.InDelta(t, 1.0, geometry.Norm(p), 1e-9)
	}
}
