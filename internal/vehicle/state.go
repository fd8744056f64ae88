package vehicle

import (
	"fmt"
	"math"

	"github.com/driveresearch/simcore/internal/geometry"
)

// State is the ego vehicle's pose and internal actuator state in the world
// frame. SteerCmdLast is the last control command seen, reused by the
// dynamics node when the planner has not yet published a new one.
type State struct {
	X, Y, Yaw    float64
	Vx           float64 // longitudinal speed, m/s; >= 0 unless reverse is enabled
	SteerEff     float64 // effective (actuator) steering angle, radians
	SteerCmdLast float64 // most recently observed steering command, radians
}

// Finite reports whether every field of s is a finite float. A non-finite
// VehicleState is always a fatal error per §4.2.
func (s State) Finite() bool {
	return isFinite(s.X) && isFinite(s.Y) && isFinite(s.Yaw) &&
		isFinite(s.Vx) && isFinite(s.SteerEff) && isFinite(s.SteerCmdLast)
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Normalize wraps Yaw into (-π, π] in place and returns s for chaining.
func (s State) Normalize() State {
	s.Yaw = geometry.NormalizeAngle(s.Yaw)
	return s
}

// Validate checks the §3 invariant vx >= 0 unless AllowReverse is set.
func (s State) Validate(allowReverse bool) error {
	if !allowReverse && s.Vx < 0 {
		return fmt.Errorf("vehicle: vx=%v is negative and reverse is not enabled", s.Vx)
	}
	if s.Yaw <= -math.Pi || s.Yaw > math.Pi {
		return fmt.Errorf("vehicle: yaw=%v is not normalised to (-pi, pi]", s.Yaw)
	}
	return nil
}
