// Package bvh implements bounding volume hierarchies over mesh elements.
//
// A Tree is built top-down over a set of Boundable elements, using either axis aligned (AABB) or
// oriented (OBB) bounding boxes, and can be refit in place after the elements move. Queries
// (nearest point, ray casts, region enumeration and tree-tree overlap) are read-only and may run
// concurrently on a tree that is not being built or refit.
package bvh

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Boundable is a geometric element that can be placed in a tree. Trees hold references to
// elements and never modify them.
type Boundable interface {
	// PointCount returns the number of points that define the element, 0 if it has none.
	PointCount() int
	// Point returns the i-th defining point.
	Point(i int) r3.Vector
	Centroid() r3.Vector
	// UpdateBounds grows min and max to include the element.
	UpdateBounds(min, max *r3.Vector)
	// Covariance returns the size weighted second moment of the element about the origin along
	// with its size. A size of -1 means the element does not support covariance.
	Covariance() (*mat.SymDense, float64)
}

// PointProjector is implemented by elements that can find their closest point to a query point.
type PointProjector interface {
	ClosestPointToPoint(pt r3.Vector) r3.Vector
}

// TriangleElement is implemented by triangular faces. Vertex indices identify shared vertices
// between faces and are used to break ties in exact intersection tests.
type TriangleElement interface {
	Vertices() [3]r3.Vector
	VertexIndices() [3]int
}
