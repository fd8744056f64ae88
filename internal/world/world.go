// Package world holds the static map the episode drives through: the
// drivable-area boundary segments, the centreline samples (parameterised by
// arc length), and the ordered checkpoints along it. It is produced once by
// the map-loader external collaborator (§6) and never mutated after
// on_init; the LiDAR kernel and the collision node both read it on every
// tick without copying.
package world

import (
	"fmt"

	"github.com/driveresearch/simcore/internal/geometry"
)

// Geometry is the immutable world the episode runs in.
type Geometry struct {
	// Segments are the drivable-area boundary walls, in a single
	// contiguous slice so the LiDAR kernel can iterate without per-tick
	// allocation.
	Segments []geometry.Segment

	// Centreline is ordered by strictly increasing S.
	Centreline []geometry.FrenetPoint

	// Checkpoints are S values along the centreline, in ascending order.
	// The last checkpoint is the goal.
	Checkpoints []float64

	// RoadHalfWidth is half the drivable corridor width, in metres,
	// measured perpendicular to the centreline.
	RoadHalfWidth float64
}

// Validate checks the invariants the rest of the core assumes hold for the
// lifetime of the episode: a centreline of at least two samples with
// strictly increasing arc length, strictly ascending checkpoints, and a
// positive road half-width.
func (g *Geometry) Validate() error {
	if len(g.Centreline) < 2 {
		return fmt.Errorf("world: centreline needs at least 2 samples, got %d", len(g.Centreline))
	}
	for i := 1; i < len(g.Centreline); i++ {
		if g.Centreline[i].S <= g.Centreline[i-1].S {
			return fmt.Errorf("world: centreline S must be strictly increasing at index %d", i)
		}
	}
	for i := 1; i < len(g.Checkpoints); i++ {
		if g.Checkpoints[i] <= g.Checkpoints[i-1] {
			return fmt.Errorf("world: checkpoints must be strictly increasing at index %d", i)
		}
	}
	if g.RoadHalfWidth <= 0 {
		return fmt.Errorf("world: road_half_width must be positive, got %v", g.RoadHalfWidth)
	}
	return nil
}

// SMax returns the total arc length of the centreline.
func (g *Geometry) SMax() float64 {
	if len(g.Centreline) == 0 {
		return 0
	}
	return g.Centreline[len(g.Centreline)-1].S
}
