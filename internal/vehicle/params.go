package vehicle

import "fmt"

// AccelLimits bounds commanded longitudinal acceleration after the
// longitudinal model is applied.
type AccelLimits struct {
	Min, Max float64 // m/s^2
}

// Params holds the geometric and actuator/physics parameters calibrated by
// system identification (§3). Geometric fields describe the vehicle
// footprint used for polygon-level collision checks; the rest parameterise
// the FOPDT steering model and the non-linear longitudinal model.
type Params struct {
	// Geometric.
	Wheelbase    float64 `json:"wheelbase"`
	Width        float64 `json:"width"`
	Length       float64 `json:"length"`
	RearOverhang float64 `json:"rear_overhang"`

	// Steering actuator (FOPDT).
	KSteer     float64 `json:"k_steer"`
	TauSteer   float64 `json:"tau_steer"`
	LDeadSteer float64 `json:"l_dead_steer"` // seconds

	// Longitudinal.
	KAcc    float64 `json:"k_acc"`
	Offset  float64 `json:"offset"`
	CDrag   float64 `json:"c_drag"`
	CCorner float64 `json:"c_corner"`

	MaxSteer    float64     `json:"max_steer"`
	AccelLimits AccelLimits `json:"accel_limits"`

	// AllowReverse relaxes the vx >= 0 invariant in §3. Defaults to false.
	AllowReverse bool `json:"allow_reverse,omitempty"`
}

// Validate checks the parameters the dynamics node assumes are well-formed
// at construction time, so a malformed config fails fast as a ConfigError
// rather than producing NaN mid-episode.
func (p Params) Validate() error {
	if p.Wheelbase <= 0 {
		return fmt.Errorf("vehicle: wheelbase must be positive, got %v", p.Wheelbase)
	}
	if p.TauSteer <= 0 {
		return fmt.Errorf("vehicle: tau_steer must be positive, got %v", p.TauSteer)
	}
	if p.LDeadSteer < 0 {
		return fmt.Errorf("vehicle: l_dead_steer must be non-negative, got %v", p.LDeadSteer)
	}
	if p.MaxSteer <= 0 {
		return fmt.Errorf("vehicle: max_steer must be positive, got %v", p.MaxSteer)
	}
	if p.AccelLimits.Min > p.AccelLimits.Max {
		return fmt.Errorf("vehicle: accel_limits min %v exceeds max %v", p.AccelLimits.Min, p.AccelLimits.Max)
	}
	return nil
}
