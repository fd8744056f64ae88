// Package geometry provides the rigid-transform, polygon-corner, SAT, and
// Frenet-projection primitives shared by the LiDAR kernel, the obstacle
// manager, and the collision node. Points are represented with
// github.com/golang/geo's r2.Point so the hot-path arrays (segments, beam
// directions, polygon corners) share one vector type across packages
// instead of each owning a local (x, y) struct.
package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// Segment is a directed line segment p->q used for both world boundaries
// and obstacle polygon edges.
type Segment struct {
	P, Q r2.Point
}

// Pose is a rigid 2D transform: position plus heading, in radians,
// normalised to (-π, π].
type Pose struct {
	X, Y, Yaw float64
}

// NormalizeAngle wraps a into (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// ShortestArc returns the signed shortest-arc difference b-a, in (-π, π].
func ShortestArc(a, b float64) float64 {
	return NormalizeAngle(b - a)
}

// PointAt is a small constructor so callers outside this package don't need
// to spell out r2.Point{X: ..., Y: ...} for every literal point.
func PointAt(x, y float64) r2.Point { return r2.Point{X: x, Y: y} }

// Add returns p+q.
func Add(p, q r2.Point) r2.Point { return r2.Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func Sub(p, q r2.Point) r2.Point { return r2.Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p scaled by k.
func Scale(p r2.Point, k float64) r2.Point { return r2.Point{X: p.X * k, Y: p.Y * k} }

// Dot returns the dot product of p and q.
func Dot(p, q r2.Point) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the 2D (scalar) cross product p×q.
func Cross(p, q r2.Point) float64 { return p.X*q.Y - p.Y*q.X }

// Norm returns the Euclidean length of p.
func Norm(p r2.Point) float64 { return math.Hypot(p.X, p.Y) }

// Rotate returns p rotated counter-clockwise by theta radians about the origin.
func Rotate(p r2.Point, theta float64) r2.Point {
	c, s := math.Cos(theta), math.Sin(theta)
	return r2.Point{X: p.X*c - p.Y*s, Y: p.X*s + p.Y*c}
}

// TransformBody maps a point in a body frame (given by origin pose) into the
// world frame: rotate by the pose's yaw, then translate to the pose's
// position.
func TransformBody(pose Pose, bodyPoint r2.Point) r2.Point {
	rotated := Rotate(bodyPoint, pose.Yaw)
	return r2.Point{X: rotated.X + pose.X, Y: rotated.Y + pose.Y}
}

// RectangleCorners returns the four corners, in world frame, of a rectangle
// of the given length (along x, body frame) and width (along y, body frame)
// centred at pose. Corners are ordered counter-clockwise starting from the
// rear-right corner, matching the order SAT needs to derive edge normals.
func RectangleCorners(pose Pose, length, width float64) [4]r2.Point {
	hl, hw := length/2, width/2
	body := [4]r2.Point{
		{X: -hl, Y: -hw},
		{X: hl, Y: -hw},
		{X: hl, Y: hw},
		{X: -hl, Y: hw},
	}
	var world [4]r2.Point
	for i, bp := range body {
		world[i] = TransformBody(pose, bp)
	}
	return world
}

// CircleApproxVertices is the fixed polygon-approximation vertex count used
// for circular obstacles. Used only for collision, never for rendering.
const CircleApproxVertices = 16

// CirclePolygon returns a CircleApproxVertices-gon approximation of a circle
// of radius r centred at (cx, cy).
func CirclePolygon(cx, cy, r float64) []r2.Point {
	return CirclePolygonInto(cx, cy, r, nil)
}

// CirclePolygonInto is CirclePolygon but appends onto dst[:0], reusing its
// backing array when dst already has CircleApproxVertices of capacity. Used
// on the per-tick hot path to avoid reallocating the approximation every
// call.
func CirclePolygonInto(cx, cy, r float64, dst []r2.Point) []r2.Point {
	dst = dst[:0]
	for i := 0; i < CircleApproxVertices; i++ {
		theta := 2 * math.Pi * float64(i) / float64(CircleApproxVertices)
		dst = append(dst, r2.Point{X: cx + r*math.Cos(theta), Y: cy + r*math.Sin(theta)})
	}
	return dst
}

// PolygonArea returns the signed area of a simple polygon via the shoelace
// formula. Degenerate (collinear or <3-point) polygons have area ~0.
func PolygonArea(poly []r2.Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	area := 0.0
	for i := range poly {
		j := (i + 1) % len(poly)
		area += Cross(poly[i], poly[j])
	}
	return area / 2
}

// edgeNormals returns a normal (the edge rotated 90° counter-clockwise) of
// every edge of poly, one per edge.
func edgeNormals(poly []r2.Point) []r2.Point {
	normals := make([]r2.Point, len(poly))
	for i := range poly {
		j := (i + 1) % len(poly)
		edge := Sub(poly[j], poly[i])
		// Perpendicular; SAT only needs the axis, not a specific outward sign.
		normals[i] = r2.Point{X: -edge.Y, Y: edge.X}
	}
	return normals
}

func projectExtent(poly []r2.Point, axis r2.Point) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, p := range poly {
		d := Dot(p, axis)
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return min, max
}

// SATOverlap reports whether two convex polygons overlap, via the
// Separating Axis Theorem over the union of both polygons' edge normals.
// Degenerate (zero-area) polygons never overlap anything.
func SATOverlap(a, b []r2.Point) bool {
	if math.Abs(PolygonArea(a)) < 1e-12 || math.Abs(PolygonArea(b)) < 1e-12 {
		return false
	}
	axes := append(edgeNormals(a), edgeNormals(b)...)
	for _, axis := range axes {
		if Norm(axis) < 1e-12 {
			continue
		}
		aMin, aMax := projectExtent(a, axis)
		bMin, bMax := projectExtent(b, axis)
		if aMax < bMin || bMax < aMin {
			return false // this axis separates them
		}
	}
	return true
}

// FrenetPoint is a single sample on a centreline, carrying the reference
// heading used for lateral-offset sign conventions.
type FrenetPoint struct {
	S      float64 // arc length from the start of the centreline
	X, Y   float64
	YawRef float64
}

// ProjectFrenet finds the centreline sample nearest to (x, y) among samples
// (assumed ordered by increasing S) and returns the arc length of that
// sample and the signed lateral offset of (x, y) from the centreline
// tangent there (positive = left of the reference heading).
func ProjectFrenet(samples []FrenetPoint, x, y float64) (s, lateral float64) {
	bestIdx := 0
	bestDist := math.Inf(1)
	for i, p := range samples {
		d := math.Hypot(x-p.X, y-p.Y)
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	p := samples[bestIdx]
	dx, dy := x-p.X, y-p.Y
	// Lateral = component of (dx,dy) along the left-hand normal of YawRef.
	nx, ny := -math.Sin(p.YawRef), math.Cos(p.YawRef)
	lateral = dx*nx + dy*ny
	return p.S, lateral
}

// FrenetToCartesian recovers an approximate (x, y) for a given (s, lateral)
// by locating the nearest sample to s and offsetting along its normal. It is
// the inverse used by the round-trip invariant in §8: composing
// ProjectFrenet then FrenetToCartesian on a centreline sample itself must
// recover the original (x, y) within 1e-6.
func FrenetToCartesian(samples []FrenetPoint, s, lateral float64) (x, y float64) {
	bestIdx := 0
	bestDist := math.Inf(1)
	for i, p := range samples {
		d := math.Abs(p.S - s)
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	p := samples[bestIdx]
	nx, ny := -math.Sin(p.YawRef), math.Cos(p.YawRef)
	return p.X + lateral*nx, p.Y + lateral*ny
}
