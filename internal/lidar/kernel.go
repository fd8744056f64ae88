package lidar

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/driveresearch/simcore/internal/geometry"
)

// parallelEpsilon is δ in §4.3: segments with |edge × beam| below this are
// treated as parallel to the beam and skipped rather than risking a
// division by a near-zero denominator.
const parallelEpsilon = 1e-12

// intersectRaySegment solves O + t*d = p + u*(q-p), u ∈ [0,1], t ≥ 0, via
// Cramer's rule on the 2x2 system. ok is false for a parallel segment or a
// solution outside the segment / behind the ray origin.
func intersectRaySegment(origin, dir r2.Point, seg geometry.Segment) (t float64, ok bool) {
	edge := geometry.Sub(seg.Q, seg.P)
	denom := geometry.Cross(edge, dir)
	if math.Abs(denom) < parallelEpsilon {
		return 0, false
	}
	r := geometry.Sub(seg.P, origin)
	tCandidate := geometry.Cross(edge, r) / denom
	u := geometry.Cross(dir, r) / denom
	if tCandidate < 0 || u < 0 || u > 1 {
		return 0, false
	}
	return tCandidate, true
}

// castBeam returns the clamped range along (origin, dir) against every
// segment in segments, reused across calls by the caller to avoid
// reallocating the slice per beam.
func castBeam(origin, dir r2.Point, segments []geometry.Segment, rangeMin, rangeMax float64) float64 {
	best := math.Inf(1)
	for _, seg := range segments {
		t, ok := intersectRaySegment(origin, dir, seg)
		if !ok {
			continue
		}
		if t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) {
		return rangeMax
	}
	if best < rangeMin {
		return rangeMin
	}
	if best > rangeMax {
		return rangeMax
	}
	return best
}
