package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestBasicTriangleFunctions(t *testing.T) {
	expectedPts := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 3, Z: 0}, {X: 3, Y: 0, Z: 0}}
	tri := NewIndexedTriangle(expectedPts[0], expectedPts[1], expectedPts[2], 4, 5, 6)

	expectedNormal := r3.Vector{X: 0, Y: 0, Z: 1}
	expectedArea := 4.5
	expectedCentroid := r3.Vector{X: 1, Y: 1, Z: 0}

	t.Run("constructor", func(t *testing.T) {
		test.That(t, tri.Points(), test.ShouldResemble, expectedPts)
		test.That(t, tri.VertexIndices(), test.ShouldResemble, [3]int{4, 5, 6})
		// the cross product of the normal with what is expected should result in nothing
		test.That(t, tri.Normal().Cross(expectedNormal), test.ShouldResemble, r3.Vector{})
		test.That(t, NewTriangle(expectedPts[0], expectedPts[1], expectedPts[2]).VertexIndices(), test.ShouldResemble, [3]int{-1, -1, -1})
	})

	t.Run("area", func(t *testing.T) {
		test.That(t, tri.Area(), test.ShouldEqual, expectedArea)
	})

	t.Run("centroid", func(t *testing.T) {
		test.That(t, tri.Centroid(), test.ShouldResemble, expectedCentroid)
	})

	t.Run("bounds", func(t *testing.T) {
		min, max := EmptyBounds()
		tri.UpdateBounds(&min, &max)
		test.That(t, min, test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 0})
		test.That(t, max, test.ShouldResemble, r3.Vector{X: 3, Y: 3, Z: 0})
		test.That(t, tri.PointCount(), test.ShouldEqual, 3)
		test.That(t, tri.Point(2), test.ShouldResemble, expectedPts[2])
	})

	t.Run("covariance", func(t *testing.T) {
		c, size := tri.Covariance()
		test.That(t, size, test.ShouldEqual, expectedArea)
		// E[x^2] over the triangle is (0 + 0 + 9 + 9)/12 = 1.5
		test.That(t, c.At(0, 0), test.ShouldAlmostEqual, 1.5*expectedArea, 1e-12)
		test.That(t, c.At(2, 2), test.ShouldEqual, 0.)
		test.That(t, c.At(0, 1), test.ShouldEqual, c.At(1, 0))
	})

	t.Run("transform", func(t *testing.T) {
		tf := NewPose(r3.Vector{X: 1, Y: 1, Z: 1}, &R4AA{Theta: math.Pi, RZ: 1})
		tri2 := tri.Transform(tf)
		test.That(t, tri2.VertexIndices(), test.ShouldResemble, tri.VertexIndices())
		for i := range tri2.Points() {
			test.That(t, R3VectorAlmostEqual(tri2.Points()[i], TransformPoint(tf, expectedPts[i]), 1e-12), test.ShouldBeTrue)
		}
		test.That(t, R3VectorAlmostEqual(tri2.Point(1), r3.Vector{X: 1, Y: -2, Z: 1}, 1e-12), test.ShouldBeTrue)
	})

	t.Run("closest triangle inside point", func(t *testing.T) {
		// interior
		closestPoint, isInside := tri.ClosestInsidePoint(r3.Vector{X: 1, Y: 1, Z: 1})
		test.That(t, R3VectorAlmostEqual(closestPoint, r3.Vector{X: 1, Y: 1, Z: 0}, 1e-9), test.ShouldBeTrue)
		test.That(t, isInside, test.ShouldBeTrue)

		// above edge
		closestPoint, isInside = tri.ClosestInsidePoint(r3.Vector{X: 2, Y: 0, Z: 1})
		test.That(t, R3VectorAlmostEqual(closestPoint, r3.Vector{X: 2, Y: 0, Z: 0}, 1e-9), test.ShouldBeTrue)
		test.That(t, isInside, test.ShouldBeTrue)

		// above vertex
		closestPoint, isInside = tri.ClosestInsidePoint(r3.Vector{X: 0, Y: 3, Z: 1})
		test.That(t, R3VectorAlmostEqual(closestPoint, r3.Vector{X: 0, Y: 3, Z: 0}, 1e-9), test.ShouldBeTrue)
		test.That(t, isInside, test.ShouldBeTrue)

		// outside (obtuse with triangle)
		_, isInside = tri.ClosestInsidePoint(r3.Vector{X: 1, Y: -1, Z: 1})
		test.That(t, isInside, test.ShouldBeFalse)

		// outside (straight with triangle)
		_, isInside = tri.ClosestInsidePoint(r3.Vector{X: 0, Y: 4, Z: 0})
		test.That(t, isInside, test.ShouldBeFalse)

		// interior, testing a triangle rotated off the xy-plane
		rotatedTri := NewTriangle(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 50, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 30, Z: 40})
		closestPoint, isInside = rotatedTri.ClosestInsidePoint(r3.Vector{X: 1, Y: 3 + 4, Z: 4 - 3})
		test.That(t, R3VectorAlmostEqual(closestPoint, r3.Vector{X: 1, Y: 3, Z: 4}, 1e-9), test.ShouldBeTrue)
		test.That(t, isInside, test.ShouldBeTrue)
	})

	t.Run("closest triangle point", func(t *testing.T) {
		// double check on interior point
		closestPoint := tri.ClosestPointToPoint(r3.Vector{X: 1, Y: 1, Z: 1})
		test.That(t, R3VectorAlmostEqual(closestPoint, r3.Vector{X: 1, Y: 1, Z: 0}, 1e-9), test.ShouldBeTrue)

		// closest point is edge
		closestPoint = tri.ClosestPointToPoint(r3.Vector{X: 3, Y: 2, Z: 1})
		test.That(t, R3VectorAlmostEqual(closestPoint, r3.Vector{X: 2, Y: 1, Z: 0}, 1e-9), test.ShouldBeTrue)

		// closest point is vertex
		closestPoint = tri.ClosestPointToPoint(r3.Vector{X: -1, Y: -1, Z: 1})
		test.That(t, R3VectorAlmostEqual(closestPoint, r3.Vector{X: 0, Y: 0, Z: 0}, 1e-9), test.ShouldBeTrue)

		// coplanar variant
		closestPoint = tri.ClosestPointToCoplanarPoint(r3.Vector{X: -1, Y: 1, Z: 0})
		test.That(t, R3VectorAlmostEqual(closestPoint, r3.Vector{X: 0, Y: 1, Z: 0}, 1e-9), test.ShouldBeTrue)
	})
}

func TestTrianglePlaneSegment(t *testing.T) {
	tri := NewTriangle(r3.Vector{X: 0, Y: 0, Z: -1}, r3.Vector{X: 2, Y: 0, Z: 1}, r3.Vector{X: 0, Y: 2, Z: 1})
	up := r3.Vector{X: 0, Y: 0, Z: 1}

	t.Run("crossing plane", func(t *testing.T) {
		test.That(t, tri.IntersectsPlane(up, 0), test.ShouldBeTrue)
		p0, p1, ok := tri.PlaneSegment(up, 0)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, R3VectorAlmostEqual(p0, r3.Vector{X: 1, Y: 0, Z: 0}, 1e-12), test.ShouldBeTrue)
		test.That(t, R3VectorAlmostEqual(p1, r3.Vector{X: 0, Y: 1, Z: 0}, 1e-12), test.ShouldBeTrue)

		// a scaled normal describes the same plane
		p0, p1, ok = tri.PlaneSegment(up.Mul(4), 2)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, p0.Z, test.ShouldAlmostEqual, 0.5)
		test.That(t, p1.Z, test.ShouldAlmostEqual, 0.5)
	})

	t.Run("missing plane", func(t *testing.T) {
		test.That(t, tri.IntersectsPlane(up, 5), test.ShouldBeFalse)
		_, _, ok := tri.PlaneSegment(up, 5)
		test.That(t, ok, test.ShouldBeFalse)
	})

	t.Run("touching at a vertex", func(t *testing.T) {
		p0, p1, ok := tri.PlaneSegment(up, -1)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, p0, test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: -1})
		test.That(t, p1, test.ShouldResemble, p0)
	})

	t.Run("through a vertex", func(t *testing.T) {
		slanted := NewTriangle(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 2, Y: 0, Z: 1}, r3.Vector{X: 2, Y: 0, Z: -1})
		p0, p1, ok := slanted.PlaneSegment(up, 0)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, p0, test.ShouldResemble, r3.Vector{})
		test.That(t, R3VectorAlmostEqual(p1, r3.Vector{X: 2, Y: 0, Z: 0}, 1e-12), test.ShouldBeTrue)
	})

	t.Run("lying in plane", func(t *testing.T) {
		flat := NewTriangle(r3.Vector{}, r3.Vector{X: 4, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 1, Z: 0})
		p0, p1, ok := flat.PlaneSegment(up, 0)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, p0, test.ShouldResemble, r3.Vector{X: 4, Y: 0, Z: 0})
		test.That(t, p1, test.ShouldResemble, r3.Vector{X: 0, Y: 1, Z: 0})
	})
}

func TestSegmentAndVertex(t *testing.T) {
	seg := NewIndexedSegment(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 2, Y: 0, Z: 0}, 1, 2)
	test.That(t, seg.Length(), test.ShouldEqual, 2.)
	test.That(t, seg.Centroid(), test.ShouldResemble, r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, seg.ClosestPointToPoint(r3.Vector{X: 5, Y: 1, Z: 0}), test.ShouldResemble, r3.Vector{X: 2, Y: 0, Z: 0})
	test.That(t, seg.VertexIndices(), test.ShouldResemble, [2]int{1, 2})
	c, size := seg.Covariance()
	test.That(t, size, test.ShouldEqual, 2.)
	// E[x^2] along [0,2] is 4/3
	test.That(t, c.At(0, 0), test.ShouldAlmostEqual, 2*4./3, 1e-12)

	v := NewVertex(r3.Vector{X: 1, Y: 2, Z: 3}, 9)
	test.That(t, v.Index(), test.ShouldEqual, 9)
	c, size = v.Covariance()
	test.That(t, size, test.ShouldEqual, 1.)
	test.That(t, c.At(1, 2), test.ShouldEqual, 6.)
	min, max := EmptyBounds()
	v.UpdateBounds(&min, &max)
	test.That(t, min, test.ShouldResemble, max)
}
