package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

const floatEpsilon = 1e-6

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}

// PlaneNormal returns the unit normal of the plane through three points, following the right hand rule.
// Collinear points produce the zero vector.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	norm := n.Norm()
	if norm == 0 {
		return r3.Vector{}
	}
	return n.Mul(1 / norm)
}

// ClosestPointSegmentPoint takes a line segment and a point, and returns the point on the segment closest to the point.
func ClosestPointSegmentPoint(segStart, segEnd, pt r3.Vector) r3.Vector {
	segVec := segEnd.Sub(segStart)
	lenSq := segVec.Norm2()
	if lenSq == 0 {
		return segStart
	}
	t := pt.Sub(segStart).Dot(segVec) / lenSq
	if t <= 0 {
		return segStart
	}
	if t >= 1 {
		return segEnd
	}
	return segStart.Add(segVec.Mul(t))
}

// MinVector returns the componentwise minimum of a and b.
func MinVector(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// MaxVector returns the componentwise maximum of a and b.
func MaxVector(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

// VectorComponent returns component i (0=X, 1=Y, 2=Z) of v.
func VectorComponent(v r3.Vector, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// UpdateBounds grows the box [min, max] so that it includes pt.
func UpdateBounds(min, max *r3.Vector, pt r3.Vector) {
	*min = MinVector(*min, pt)
	*max = MaxVector(*max, pt)
}

// EmptyBounds returns a [min, max] pair that any call to UpdateBounds will overwrite.
func EmptyBounds() (r3.Vector, r3.Vector) {
	inf := math.Inf(1)
	return r3.Vector{X: inf, Y: inf, Z: inf}, r3.Vector{X: -inf, Y: -inf, Z: -inf}
}
