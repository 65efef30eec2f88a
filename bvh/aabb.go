package bvh

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/bvh/spatialmath"
)

// AABB is an axis aligned bounding box.
type AABB struct {
	min, max r3.Vector
}

// NewAABB returns the box spanning min to max.
func NewAABB(min, max r3.Vector) *AABB {
	return &AABB{min: min, max: max}
}

// Min returns the minimum corner.
func (b *AABB) Min() r3.Vector {
	return b.min
}

// Max returns the maximum corner.
func (b *AABB) Max() r3.Vector {
	return b.max
}

// HalfWidths returns half the box extent along each axis.
func (b *AABB) HalfWidths() r3.Vector {
	return b.max.Sub(b.min).Mul(0.5)
}

func (b *AABB) String() string {
	return fmt.Sprintf("AABB{min: %v, max: %v}", b.min, b.max)
}

// set bounds the elements and inflates the result by margin.
func (b *AABB) set(elements []Boundable, margin float64) {
	b.min, b.max = spatialmath.EmptyBounds()
	for _, e := range elements {
		e.UpdateBounds(&b.min, &b.max)
	}
	b.inflate(margin)
}

// setUnion bounds a set of boxes that already carry their margin.
func (b *AABB) setUnion(boxes ...*AABB) {
	b.min, b.max = spatialmath.EmptyBounds()
	for _, c := range boxes {
		c.UpdateBounds(&b.min, &b.max)
	}
}

func (b *AABB) inflate(margin float64) {
	m := r3.Vector{X: margin, Y: margin, Z: margin}
	b.min = b.min.Sub(m)
	b.max = b.max.Add(m)
}

// UpdateBounds grows min and max to include the box.
func (b *AABB) UpdateBounds(min, max *r3.Vector) {
	*min = spatialmath.MinVector(*min, b.min)
	*max = spatialmath.MaxVector(*max, b.max)
}

// Contains reports whether pt is inside the closed box.
func (b *AABB) Contains(pt r3.Vector) bool {
	return b.min.X <= pt.X && pt.X <= b.max.X &&
		b.min.Y <= pt.Y && pt.Y <= b.max.Y &&
		b.min.Z <= pt.Z && pt.Z <= b.max.Z
}

// IntersectsSphere is a conservative test against the sphere's bounding box.
func (b *AABB) IntersectsSphere(center r3.Vector, r float64) bool {
	return b.min.X <= center.X+r && center.X-r <= b.max.X &&
		b.min.Y <= center.Y+r && center.Y-r <= b.max.Y &&
		b.min.Z <= center.Z+r && center.Z-r <= b.max.Z
}

// IntersectsLine clips [lo, hi] against the box using the slab method.
func (b *AABB) IntersectsLine(origin, dir r3.Vector, lo, hi float64) (float64, float64, bool) {
	return clipBox(origin, dir, b.min, b.max, lo, hi)
}

// IntersectsPlane reports whether the box has corners on both sides of n.x = d.
func (b *AABB) IntersectsPlane(n r3.Vector, d float64) bool {
	return cornersStraddlePlane(b.Corners(), n, d)
}

// DistanceToPoint returns the Euclidean distance from pt to the box.
func (b *AABB) DistanceToPoint(pt r3.Vector) float64 {
	return r3.Vector{
		X: math.Max(0, math.Max(b.min.X-pt.X, pt.X-b.max.X)),
		Y: math.Max(0, math.Max(b.min.Y-pt.Y, pt.Y-b.max.Y)),
		Z: math.Max(0, math.Max(b.min.Z-pt.Z, pt.Z-b.max.Z)),
	}.Norm()
}

// DistanceAlongLine returns the smallest |t| in [lo, hi] at which the line is inside the box.
func (b *AABB) DistanceAlongLine(origin, dir r3.Vector, lo, hi float64) float64 {
	return distanceAlongLine(b, origin, dir, lo, hi)
}

// Center returns the box center.
func (b *AABB) Center() r3.Vector {
	return b.min.Add(b.max).Mul(0.5)
}

// Radius returns half the box diagonal.
func (b *AABB) Radius() float64 {
	return b.max.Sub(b.min).Norm() / 2
}

// Corners returns the eight corners of the box.
func (b *AABB) Corners() [8]r3.Vector {
	return boxCorners(b.Center(), b.HalfWidths(), [3]r3.Vector{{X: 1}, {Y: 1}, {Z: 1}})
}

// Scale scales the box about its center.
func (b *AABB) Scale(s float64) {
	c := b.Center()
	hw := b.HalfWidths().Mul(s)
	b.min = c.Sub(hw)
	b.max = c.Add(hw)
}

// aabbOverlap reports whether two boxes share at least one point; touching boxes overlap.
func aabbOverlap(min1, max1, min2, max2 r3.Vector) bool {
	return min1.X <= max2.X && max1.X >= min2.X &&
		min1.Y <= max2.Y && max1.Y >= min2.Y &&
		min1.Z <= max2.Z && max1.Z >= min2.Z
}

// aabbDistance returns the distance between two boxes, 0 if they overlap.
func aabbDistance(min1, max1, min2, max2 r3.Vector) float64 {
	gap := func(lo1, hi1, lo2, hi2 float64) float64 {
		return math.Max(0, math.Max(lo2-hi1, lo1-hi2))
	}
	return r3.Vector{
		X: gap(min1.X, max1.X, min2.X, max2.X),
		Y: gap(min1.Y, max1.Y, min2.Y, max2.Y),
		Z: gap(min1.Z, max1.Z, min2.Z, max2.Z),
	}.Norm()
}

// transformAABB returns the axis aligned bounds of the box [min, max] after moving it by pose.
func transformAABB(min, max r3.Vector, pose spatialmath.Pose) (r3.Vector, r3.Vector) {
	rm := pose.Orientation().RotationMatrix()
	center := spatialmath.TransformPoint(pose, min.Add(max).Mul(0.5))
	hw := max.Sub(min).Mul(0.5)
	ext := r3.Vector{}
	for i := 0; i < 3; i++ {
		row := rm.Row(i)
		e := math.Abs(row.X)*hw.X + math.Abs(row.Y)*hw.Y + math.Abs(row.Z)*hw.Z
		switch i {
		case 0:
			ext.X = e
		case 1:
			ext.Y = e
		default:
			ext.Z = e
		}
	}
	return center.Sub(ext), center.Add(ext)
}
