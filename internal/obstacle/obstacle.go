// Package obstacle maintains the set of static and dynamic obstacles and,
// per tick, produces their current poses and polygons: waypoint
// interpolation for dynamic obstacles, and oriented-rectangle / circle
// polygon synthesis for collision queries.
package obstacle

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"github.com/driveresearch/simcore/internal/geometry"
)

// ShapeKind discriminates the closed set of recognised obstacle shapes.
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
)

// Shape is the JSON-discriminated obstacle footprint, resolved the same way
// the teacher resolves a vehicle's kinematics model: a "shape" discriminator
// key selects which of Width/Length or Radius applies.
type Shape struct {
	Kind   ShapeKind
	Width  float64 // rectangle only
	Length float64 // rectangle only
	Radius float64 // circle only
}

type shapeDisc struct {
	Shape string `json:"shape"`
}

type shapeJSON struct {
	Shape  string  `json:"shape"`
	Width  float64 `json:"width,omitempty"`
	Length float64 `json:"length,omitempty"`
	Radius float64 `json:"radius,omitempty"`
}

// UnmarshalJSON resolves the shape discriminator exactly as
// service.Vehicle.UnmarshalJSON resolves a kinematics model in the teacher.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var disc shapeDisc
	if err := json.Unmarshal(data, &disc); err != nil {
		return fmt.Errorf("obstacle: reading shape discriminator: %w", err)
	}
	var aux shapeJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("obstacle: parsing shape: %w", err)
	}
	switch ShapeKind(disc.Shape) {
	case ShapeRectangle:
		if aux.Width <= 0 || aux.Length <= 0 {
			return fmt.Errorf("obstacle: rectangle shape needs positive width and length")
		}
		*s = Shape{Kind: ShapeRectangle, Width: aux.Width, Length: aux.Length}
	case ShapeCircle:
		if aux.Radius <= 0 {
			return fmt.Errorf("obstacle: circle shape needs positive radius")
		}
		*s = Shape{Kind: ShapeCircle, Radius: aux.Radius}
	default:
		return fmt.Errorf("obstacle: unknown shape %q", disc.Shape)
	}
	return nil
}

// MarshalJSON writes back the discriminated shape.
func (s Shape) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case ShapeRectangle:
		return json.Marshal(shapeJSON{Shape: string(ShapeRectangle), Width: s.Width, Length: s.Length})
	case ShapeCircle:
		return json.Marshal(shapeJSON{Shape: string(ShapeCircle), Radius: s.Radius})
	default:
		return nil, fmt.Errorf("obstacle: shape has no kind set")
	}
}

// Waypoint is one sample of a dynamic obstacle's pose at a point in time.
type Waypoint struct {
	T   float64 `json:"t"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Yaw float64 `json:"yaw"`
}

// Kind discriminates static vs dynamic obstacles.
type Kind string

const (
	KindStatic  Kind = "static"
	KindDynamic Kind = "dynamic"
)

// Obstacle is the static definition of a single obstacle, either fixed
// (Kind=static, Pose set) or time-parameterised (Kind=dynamic, Waypoints
// set, t_0=0, strictly increasing times).
type Obstacle struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	Shape     Shape         `json:"shape"`
	Pose      geometry.Pose `json:"pose,omitempty"`
	Waypoints []Waypoint    `json:"waypoints,omitempty"`

	// times is Waypoints' T field hoisted into a contiguous array for the
	// binary search in PoseAt, per §9's "hot-path arrays" note.
	times []float64
}

// Validate checks the §3 invariants: dynamic obstacles need t_0=0,
// strictly increasing times, and at least two waypoints.
func (o *Obstacle) Validate() error {
	switch o.Kind {
	case KindStatic:
		return nil
	case KindDynamic:
		if len(o.Waypoints) < 2 {
			return fmt.Errorf("obstacle %q: dynamic obstacle needs at least 2 waypoints", o.ID)
		}
		if o.Waypoints[0].T != 0 {
			return fmt.Errorf("obstacle %q: first waypoint must have t=0", o.ID)
		}
		for i := 1; i < len(o.Waypoints); i++ {
			if o.Waypoints[i].T <= o.Waypoints[i-1].T {
				return fmt.Errorf("obstacle %q: waypoint times must be strictly increasing", o.ID)
			}
		}
		o.times = make([]float64, len(o.Waypoints))
		for i, wp := range o.Waypoints {
			o.times[i] = wp.T
		}
		return nil
	default:
		return fmt.Errorf("obstacle %q: unknown kind %q", o.ID, o.Kind)
	}
}

// PoseAt returns the obstacle's pose at virtual time tSim. For static
// obstacles the pose is constant. For dynamic obstacles tSim is taken
// modulo the final waypoint's time (the "cyclic interpolation contract":
// t=t_N samples the same pose as t=0), the containing interval is located
// via binary search over the precomputed times array, and (x, y) are
// linearly interpolated while yaw is unwrapped to its shortest arc before
// interpolating and renormalising.
func (o *Obstacle) PoseAt(tSim float64) geometry.Pose {
	if o.Kind == KindStatic {
		return o.Pose
	}

	period := o.times[len(o.times)-1]
	t := math.Mod(tSim, period)
	if t < 0 {
		t += period
	}

	// sort.Search finds the first index i such that times[i] > t; the
	// containing interval is [i-1, i].
	i := sort.Search(len(o.times), func(i int) bool { return o.times[i] > t })
	if i == 0 {
		i = 1
	}
	if i >= len(o.times) {
		i = len(o.times) - 1
	}
	a, b := o.Waypoints[i-1], o.Waypoints[i]
	span := b.T - a.T
	frac := 0.0
	if span > 0 {
		frac = (t - a.T) / span
	}

	x := a.X + frac*(b.X-a.X)
	y := a.Y + frac*(b.Y-a.Y)
	dYaw := geometry.ShortestArc(a.Yaw, b.Yaw)
	yaw := geometry.NormalizeAngle(a.Yaw + frac*dYaw)

	return geometry.Pose{X: x, Y: y, Yaw: yaw}
}

// Polygon returns the world-frame polygon for the obstacle at pose.
func (o *Obstacle) Polygon(pose geometry.Pose) []r2.Point {
	return o.PolygonInto(pose, nil)
}

// PolygonInto is Polygon but appends onto dst[:0], reusing its backing
// array across calls. The obstacle manager keeps one such buffer per
// obstacle so resolving every obstacle's polygon each tick does not
// allocate.
func (o *Obstacle) PolygonInto(pose geometry.Pose, dst []r2.Point) []r2.Point {
	switch o.Shape.Kind {
	case ShapeRectangle:
		corners := geometry.RectangleCorners(pose, o.Shape.Length, o.Shape.Width)
		dst = dst[:0]
		return append(dst, corners[:]...)
	case ShapeCircle:
		return geometry.CirclePolygonInto(pose.X, pose.Y, o.Shape.Radius, dst)
	default:
		return dst[:0]
	}
}

// Placed is a single obstacle's resolved pose and polygon for the current
// tick, as published on the blackboard for the LiDAR and collision nodes to
// consume without recomputing interpolation themselves.
type Placed struct {
	ID      string
	Pose    geometry.Pose
	Polygon []r2.Point
}
