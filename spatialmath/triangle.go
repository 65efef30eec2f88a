package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Triangle is three points and a normal vector. Each vertex optionally carries the index of the
// mesh vertex it came from, which exact predicates use to break ties consistently across faces.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	idx    [3]int
	normal r3.Vector
}

// NewTriangle creates a Triangle from three points. Its vertices are not indexed.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return NewIndexedTriangle(p0, p1, p2, -1, -1, -1)
}

// NewIndexedTriangle creates a Triangle whose vertices carry the given mesh vertex indices.
func NewIndexedTriangle(p0, p1, p2 r3.Vector, i0, i1, i2 int) *Triangle {
	return &Triangle{
		p0:     p0,
		p1:     p1,
		p2:     p2,
		idx:    [3]int{i0, i1, i2},
		normal: PlaneNormal(p0, p1, p2),
	}
}

// Points returns the vertices of the triangle in order.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Vertices returns the vertices of the triangle in order.
func (t *Triangle) Vertices() [3]r3.Vector {
	return [3]r3.Vector{t.p0, t.p1, t.p2}
}

// VertexIndices returns the mesh vertex indices of the triangle, -1 where unindexed.
func (t *Triangle) VertexIndices() [3]int {
	return t.idx
}

// Normal returns the unit normal following the right hand rule over p0, p1, p2.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Area returns the area of the triangle.
func (t *Triangle) Area() float64 {
	return 0.5 * t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0)).Norm()
}

// Centroid returns the centroid of the triangle.
func (t *Triangle) Centroid() r3.Vector {
	return t.p0.Add(t.p1).Add(t.p2).Mul(1. / 3.)
}

// PointCount returns 3.
func (t *Triangle) PointCount() int {
	return 3
}

// Point returns vertex i.
func (t *Triangle) Point(i int) r3.Vector {
	switch i {
	case 0:
		return t.p0
	case 1:
		return t.p1
	default:
		return t.p2
	}
}

// UpdateBounds grows [min, max] to include the triangle.
func (t *Triangle) UpdateBounds(min, max *r3.Vector) {
	UpdateBounds(min, max, t.p0)
	UpdateBounds(min, max, t.p1)
	UpdateBounds(min, max, t.p2)
}

// Covariance returns the area weighted second moment of the triangle about the origin, and the area.
func (t *Triangle) Covariance() (*mat.SymDense, float64) {
	area := t.Area()
	c := mat.NewSymDense(3, nil)
	addTriangleCovariance(c, t.p0, t.p1, t.p2, area)
	return c, area
}

// addTriangleCovariance accumulates area * E[x xᵀ] over the triangle into c.
// E[x xᵀ] = (p0p0ᵀ + p1p1ᵀ + p2p2ᵀ + 9 ccᵀ) / 12 where c is the centroid.
func addTriangleCovariance(c *mat.SymDense, p0, p1, p2 r3.Vector, area float64) {
	s := p0.Add(p1).Add(p2)
	pts := [4]r3.Vector{p0, p1, p2, s}
	scale := area / 12
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			sum := 0.
			for _, p := range pts {
				sum += VectorComponent(p, i) * VectorComponent(p, j)
			}
			c.SetSym(i, j, c.At(i, j)+scale*sum)
		}
	}
}

// Transform premultiplies the triangle's points by a pose. Vertex indices are kept.
func (t *Triangle) Transform(p Pose) *Triangle {
	return NewIndexedTriangle(
		TransformPoint(p, t.p0),
		TransformPoint(p, t.p1),
		TransformPoint(p, t.p2),
		t.idx[0], t.idx[1], t.idx[2],
	)
}

// ClosestPointToCoplanarPoint takes a point, and returns the closest point on the triangle to the given point
// The given point *MUST* be coplanar with the triangle. If it is known ahead of time that the point is coplanar, this is faster.
func (t *Triangle) ClosestPointToCoplanarPoint(pt r3.Vector) r3.Vector {
	// Determine whether point is inside all triangle edges:
	c0 := pt.Sub(t.p0).Cross(t.p1.Sub(t.p0))
	c1 := pt.Sub(t.p1).Cross(t.p2.Sub(t.p1))
	c2 := pt.Sub(t.p2).Cross(t.p0.Sub(t.p2))
	inside := c0.Dot(t.normal) <= 0 && c1.Dot(t.normal) <= 0 && c2.Dot(t.normal) <= 0

	if inside {
		return pt
	}
	return t.closestEdgePoint(pt)
}

// ClosestPointToPoint takes a point, and returns the closest point on the triangle to the given point.
// This is slower than ClosestPointToCoplanarPoint.
func (t *Triangle) ClosestPointToPoint(point r3.Vector) r3.Vector {
	closestPtInside, inside := t.ClosestInsidePoint(point)
	if inside {
		return closestPtInside
	}
	if t.normal.Norm2() == 0 {
		return t.closestEdgePoint(point)
	}
	// the closest point to point is the closest point to its projection onto the triangle's plane
	return t.ClosestPointToCoplanarPoint(point.Sub(t.normal.Mul(point.Sub(t.p0).Dot(t.normal))))
}

func (t *Triangle) closestEdgePoint(pt r3.Vector) r3.Vector {
	closestPt := ClosestPointSegmentPoint(t.p0, t.p1, pt)
	bestDist := pt.Sub(closestPt).Norm2()

	newPt := ClosestPointSegmentPoint(t.p1, t.p2, pt)
	if newDist := pt.Sub(newPt).Norm2(); newDist < bestDist {
		closestPt = newPt
		bestDist = newDist
	}

	newPt = ClosestPointSegmentPoint(t.p2, t.p0, pt)
	if newDist := pt.Sub(newPt).Norm2(); newDist < bestDist {
		return newPt
	}
	return closestPt
}

// ClosestInsidePoint returns the closest point on a triangle IF AND ONLY IF the query point's projection overlaps the triangle.
// Otherwise it will return the query point.
// To visualize this- if one draws a tetrahedron using the triangle and the query point, all angles from the triangle to the query point
// must be <= 90 degrees.
func (t *Triangle) ClosestInsidePoint(point r3.Vector) (r3.Vector, bool) {
	eps := 1e-6

	// Parametrize the triangle s.t. a point inside the triangle is
	// Q = p0 + u * e0 + v * e1, when 0 <= u <= 1, 0 <= v <= 1, and
	// 0 <= u + v <= 1. Let e0 = (p1 - p0) and e1 = (p2 - p0).
	// We analytically minimize the distance between the point pt and Q.
	e0 := t.p1.Sub(t.p0)
	e1 := t.p2.Sub(t.p0)
	a := e0.Norm2()
	b := e0.Dot(e1)
	c := e1.Norm2()
	d := point.Sub(t.p0)
	// The determinant is 0 only if the angle between e1 and e0 is 0
	// (i.e. the triangle has overlapping lines).
	det := (a*c - b*b)
	if det == 0 {
		return point, false
	}
	u := (c*e0.Dot(d) - b*e1.Dot(d)) / det
	v := (-b*e0.Dot(d) + a*e1.Dot(d)) / det
	inside := (0 <= u+eps) && (u <= 1+eps) && (0 <= v+eps) && (v <= 1+eps) && (u+v <= 1+eps)
	if !inside {
		return point, false
	}
	return t.p0.Add(e0.Mul(u)).Add(e1.Mul(v)), true
}

// planeDistances returns n.p - d for each vertex p.
func (t *Triangle) planeDistances(n r3.Vector, d float64) [3]float64 {
	return [3]float64{n.Dot(t.p0) - d, n.Dot(t.p1) - d, n.Dot(t.p2) - d}
}

// IntersectsPlane reports whether the triangle touches the plane n.x = d. Vertices within
// floatEpsilon of the plane count as touching it.
func (t *Triangle) IntersectsPlane(n r3.Vector, d float64) bool {
	tol := floatEpsilon * n.Norm()
	above, below := true, true
	for _, s := range t.planeDistances(n, d) {
		above = above && s > tol
		below = below && s < -tol
	}
	return !above && !below
}

// PlaneSegment returns the segment in which the triangle meets the plane n.x = d. A triangle that
// touches the plane at one vertex returns that vertex twice, and a triangle lying in the plane
// returns its longest edge.
func (t *Triangle) PlaneSegment(n r3.Vector, d float64) (r3.Vector, r3.Vector, bool) {
	if !t.IntersectsPlane(n, d) {
		return r3.Vector{}, r3.Vector{}, false
	}
	tol := floatEpsilon * n.Norm()
	dist := t.planeDistances(n, d)
	pts := t.Vertices()
	var on [3]bool
	for i, s := range dist {
		on[i] = math.Abs(s) <= tol
	}
	if on[0] && on[1] && on[2] {
		best := 0
		for i := 1; i < 3; i++ {
			if pts[(i+1)%3].Sub(pts[i]).Norm2() > pts[(best+1)%3].Sub(pts[best]).Norm2() {
				best = i
			}
		}
		return pts[best], pts[(best+1)%3], true
	}

	var cut []r3.Vector
	for i := 0; i < 3; i++ {
		j := (i + 1) % 3
		switch {
		case on[i]:
			cut = append(cut, pts[i])
		case !on[j] && dist[i]*dist[j] < 0:
			s := dist[i] / (dist[i] - dist[j])
			cut = append(cut, pts[i].Add(pts[j].Sub(pts[i]).Mul(s)))
		}
	}
	switch len(cut) {
	case 0:
		return r3.Vector{}, r3.Vector{}, false
	case 1:
		return cut[0], cut[0], true
	}
	return cut[0], cut[1], true
}
