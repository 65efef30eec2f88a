package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Segment is a mesh edge between two indexed points.
type Segment struct {
	p0, p1 r3.Vector
	idx    [2]int
}

// NewSegment creates an unindexed segment.
func NewSegment(p0, p1 r3.Vector) *Segment {
	return NewIndexedSegment(p0, p1, -1, -1)
}

// NewIndexedSegment creates a segment whose endpoints carry mesh vertex indices.
func NewIndexedSegment(p0, p1 r3.Vector, i0, i1 int) *Segment {
	return &Segment{p0: p0, p1: p1, idx: [2]int{i0, i1}}
}

// Endpoints returns the tail and head of the segment.
func (s *Segment) Endpoints() (r3.Vector, r3.Vector) {
	return s.p0, s.p1
}

// VertexIndices returns the mesh vertex indices of the tail and head.
func (s *Segment) VertexIndices() [2]int {
	return s.idx
}

// Length returns the length of the segment.
func (s *Segment) Length() float64 {
	return s.p1.Sub(s.p0).Norm()
}

// PointCount returns 2.
func (s *Segment) PointCount() int {
	return 2
}

// Point returns the tail for 0 and the head otherwise.
func (s *Segment) Point(i int) r3.Vector {
	if i == 0 {
		return s.p0
	}
	return s.p1
}

// Centroid returns the midpoint.
func (s *Segment) Centroid() r3.Vector {
	return s.p0.Add(s.p1).Mul(0.5)
}

// UpdateBounds grows [min, max] to include the segment.
func (s *Segment) UpdateBounds(min, max *r3.Vector) {
	UpdateBounds(min, max, s.p0)
	UpdateBounds(min, max, s.p1)
}

// Covariance returns the length weighted second moment of the segment about the origin, and the length.
// E[x xᵀ] = (p0p0ᵀ + p1p1ᵀ)/3 + (p0p1ᵀ + p1p0ᵀ)/6.
func (s *Segment) Covariance() (*mat.SymDense, float64) {
	length := s.Length()
	c := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			a0, a1 := VectorComponent(s.p0, i), VectorComponent(s.p1, i)
			b0, b1 := VectorComponent(s.p0, j), VectorComponent(s.p1, j)
			c.SetSym(i, j, length*((a0*b0+a1*b1)/3+(a0*b1+a1*b0)/6))
		}
	}
	return c, length
}

// ClosestPointToPoint returns the point on the segment nearest pt.
func (s *Segment) ClosestPointToPoint(pt r3.Vector) r3.Vector {
	return ClosestPointSegmentPoint(s.p0, s.p1, pt)
}
