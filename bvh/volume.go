package bvh

import (
	"math"

	"github.com/golang/geo/r3"
)

// Volume is the bounding shape stored at each tree node. All coordinates are in the tree's
// local frame.
type Volume interface {
	// UpdateBounds grows min and max to include the volume.
	UpdateBounds(min, max *r3.Vector)
	Contains(pt r3.Vector) bool
	IntersectsSphere(center r3.Vector, r float64) bool
	// IntersectsLine clips the parameter range [lo, hi] of the line origin + t*dir against the
	// volume and reports the clipped range. The clip is conservative: lines grazing the boundary
	// are kept.
	IntersectsLine(origin, dir r3.Vector, lo, hi float64) (float64, float64, bool)
	// IntersectsPlane reports whether the plane n.x = d passes through the volume.
	IntersectsPlane(n r3.Vector, d float64) bool
	// DistanceToPoint returns 0 for points inside the volume.
	DistanceToPoint(pt r3.Vector) float64
	// DistanceAlongLine returns the smallest |t| in [lo, hi] for which origin + t*dir lies in the
	// volume, or +Inf if there is none.
	DistanceAlongLine(origin, dir r3.Vector, lo, hi float64) float64
	Center() r3.Vector
	// Radius returns half the length of the volume's diagonal.
	Radius() float64
	// Corners returns the eight box corners.
	Corners() [8]r3.Vector
}

// slabTol widens each slab relative to the magnitude of the coordinates involved, so that a line
// through a point on the boundary of a tight box is never clipped away by rounding.
const slabTol = 1e-13

// clipSlab intersects the parameter range [lo, hi] with the slab min <= o + t*d <= max along a
// single axis. The slab is widened by slabTol.
func clipSlab(o, d, min, max, lo, hi float64) (float64, float64, bool) {
	pad := slabTol * (math.Abs(min) + math.Abs(max) + math.Abs(o))
	min -= pad
	max += pad
	if d == 0 {
		if min-o > 0 || max-o < 0 {
			return lo, hi, false
		}
		return lo, hi, true
	}
	inv := 1 / d
	t0 := (min - o) * inv
	t1 := (max - o) * inv
	if d < 0 {
		t0, t1 = t1, t0
	}
	if t0 > lo {
		lo = t0
	}
	if t1 < hi {
		hi = t1
	}
	return lo, hi, lo <= hi
}

// clipBox clips the line origin + t*dir against the box [min, max].
func clipBox(origin, dir, min, max r3.Vector, lo, hi float64) (float64, float64, bool) {
	var ok bool
	if lo, hi, ok = clipSlab(origin.X, dir.X, min.X, max.X, lo, hi); !ok {
		return lo, hi, false
	}
	if lo, hi, ok = clipSlab(origin.Y, dir.Y, min.Y, max.Y, lo, hi); !ok {
		return lo, hi, false
	}
	return clipSlab(origin.Z, dir.Z, min.Z, max.Z, lo, hi)
}

func distanceAlongLine(v Volume, origin, dir r3.Vector, lo, hi float64) float64 {
	tmin, tmax, ok := v.IntersectsLine(origin, dir, lo, hi)
	switch {
	case !ok:
		return math.Inf(1)
	case tmin > 0:
		return tmin
	case tmax < 0:
		return -tmax
	}
	return 0
}

// boxDistance returns the distance from a point expressed in a box's frame to the box centered
// at the origin with half-widths hw.
func boxDistance(p, hw r3.Vector) float64 {
	d := r3.Vector{
		X: math.Max(math.Abs(p.X)-hw.X, 0),
		Y: math.Max(math.Abs(p.Y)-hw.Y, 0),
		Z: math.Max(math.Abs(p.Z)-hw.Z, 0),
	}
	return d.Norm()
}

func boxCorners(center, hw r3.Vector, axes [3]r3.Vector) [8]r3.Vector {
	var out [8]r3.Vector
	for i := 0; i < 8; i++ {
		sx, sy, sz := 1., 1., 1.
		if i&1 != 0 {
			sx = -1
		}
		if i&2 != 0 {
			sy = -1
		}
		if i&4 != 0 {
			sz = -1
		}
		out[i] = center.
			Add(axes[0].Mul(sx * hw.X)).
			Add(axes[1].Mul(sy * hw.Y)).
			Add(axes[2].Mul(sz * hw.Z))
	}
	return out
}

// cornersStraddlePlane reports whether the corners are not all strictly on one side of n.x = d.
func cornersStraddlePlane(corners [8]r3.Vector, n r3.Vector, d float64) bool {
	up, down := false, false
	for _, c := range corners {
		b := n.Dot(c) - d
		up = up || b >= 0
		down = down || b <= 0
		if up && down {
			return true
		}
	}
	return false
}
