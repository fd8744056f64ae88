// Package lidar implements the 2D LiDAR sensor: beam fan generation and the
// ray/segment intersection kernel that is the dominant hot path of the core
// (§4.3). The kernel treats each beam independently and is written to avoid
// per-beam heap allocation.
package lidar

// Scan is a single LiDAR reading: a fan of n_beams rays starting at
// angle_min with a uniform angular step, each clamped to [range_min,
// range_max].
type Scan struct {
	Timestamp      float64
	OriginX        float64
	OriginY        float64
	AngleMin       float64
	AngleIncrement float64
	Ranges         []float64
}

// NBeams returns len(Ranges).
func (s Scan) NBeams() int { return len(s.Ranges) }
