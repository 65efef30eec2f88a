package robust

import (
	"fmt"
	"math"
	"math/big"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// State is the exact geometric configuration of a segment against a closed triangle.
type State int

const (
	// Disjoint means the segment and the closed triangle share no point.
	Disjoint State = iota
	// TransversalInterior means the segment meets the triangle's open interior at a single point.
	TransversalInterior
	// OnEdge means the segment meets the triangle at a single point on the relative interior of an edge.
	OnEdge
	// OnVertex means the segment passes through a vertex of the triangle.
	OnVertex
	// CoplanarThrough means the segment lies in the triangle's plane and overlaps its open interior.
	CoplanarThrough
	// CoplanarTangent means the segment lies in the triangle's plane and touches only its boundary.
	CoplanarTangent
)

func (s State) String() string {
	switch s {
	case Disjoint:
		return "disjoint"
	case TransversalInterior:
		return "transversal-interior"
	case OnEdge:
		return "on-edge"
	case OnVertex:
		return "on-vertex"
	case CoplanarThrough:
		return "coplanar-through"
	case CoplanarTangent:
		return "coplanar-tangent"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Kind says whether a classification counts as a crossing.
type Kind int

const (
	// NoIntersection means the segment misses the triangle.
	NoIntersection Kind = iota
	// Transversal means the segment crosses the triangle's interior with both endpoints strictly off its plane.
	Transversal
	// DegenerateIntersection means the contact is degenerate and the tie-break counts it as a crossing.
	DegenerateIntersection
	// DegenerateNonIntersection means the contact is degenerate and the tie-break does not count it.
	DegenerateNonIntersection
)

func (k Kind) String() string {
	switch k {
	case NoIntersection:
		return "none"
	case Transversal:
		return "transversal"
	case DegenerateIntersection:
		return "degenerate"
	case DegenerateNonIntersection:
		return "degenerate-non-intersection"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Flags describe an intersection in more detail.
type Flags uint8

const (
	// Intersects is set when the segment crosses the triangle after tie-breaking.
	Intersects Flags = 1 << iota
	// TailOutside is set for crossings whose tail lies on the side the triangle normal points to.
	TailOutside
	// TailOnTriangle is set when the tail lies exactly on the closed triangle.
	TailOnTriangle
	// HeadOnTriangle is set when the head lies exactly on the closed triangle.
	HeadOnTriangle
	// E01OnSegment is set when the edge v0-v1 exactly touches the segment.
	E01OnSegment
	// E12OnSegment is set when the edge v1-v2 exactly touches the segment.
	E12OnSegment
	// E20OnSegment is set when the edge v2-v0 exactly touches the segment.
	E20OnSegment
)

// Intersection is the classification of a segment against a triangle.
type Intersection struct {
	Kind  Kind
	State State
	Flags Flags
	// Point is the contact point, the first one along the segment for coplanar overlaps.
	Point r3.Vector
	// Bary holds the barycentric weights of Point with respect to v0, v1, v2.
	Bary r3.Vector
	// Param is the position of Point along the segment, 0 at the tail and 1 at the head.
	Param float64
}

// Intersects reports whether the classification counts as a crossing.
func (i Intersection) Intersects() bool {
	return i.Kind == Transversal || i.Kind == DegenerateIntersection
}

// Crosses reports whether the segment p0-p1 crosses the triangle after Simulation of Simplicity.
// For a closed, consistently oriented mesh whose vertices carry distinct indices, the number of
// triangles a segment crosses is odd exactly when its endpoints are on different sides of the surface.
func Crosses(p0, p1 Point, tri [3]Point) bool {
	if Orient3DSoS(tri[0], tri[1], tri[2], p0) == Orient3DSoS(tri[0], tri[1], tri[2], p1) {
		return false
	}
	s01 := Orient3DSoS(p0, p1, tri[0], tri[1])
	if s01 != Orient3DSoS(p0, p1, tri[1], tri[2]) {
		return false
	}
	return s01 == Orient3DSoS(p0, p1, tri[2], tri[0])
}

// ClassifySegmentTriangle returns the exact configuration of the segment p0-p1 against the triangle
// tri, and whether that configuration counts as a crossing. The result depends only on the exact
// input coordinates and indices.
func ClassifySegmentTriangle(p0, p1 Point, tri [3]Point) Intersection {
	var res Intersection
	if Crosses(p0, p1, tri) {
		res.Flags |= Intersects
		if Orient3DSoS(tri[0], tri[1], tri[2], p0) > 0 {
			res.Flags |= TailOutside
		}
	}
	crosses := res.Flags&Intersects != 0

	v0, v1, v2 := tri[0].Pos, tri[1].Pos, tri[2].Pos
	s0 := Orient3D(v0, v1, v2, p0.Pos)
	s1 := Orient3D(v0, v1, v2, p1.Pos)

	switch {
	case s0 == 0 && s1 == 0:
		classifyCoplanar(&res, p0.Pos, p1.Pos, tri)
	case s0 == s1:
		res.State = Disjoint
	default:
		classifyPiercing(&res, p0.Pos, p1.Pos, tri, s0, s1)
	}

	switch {
	case res.State == Disjoint:
		res.Kind = NoIntersection
		res.Flags = 0
	case res.State == TransversalInterior && s0 != 0 && s1 != 0:
		res.Kind = Transversal
	case crosses:
		res.Kind = DegenerateIntersection
	default:
		res.Kind = DegenerateNonIntersection
	}
	return res
}

// classifyPiercing handles segments whose supporting line is not in the triangle's plane and whose
// endpoints are not strictly on the same side of it.
func classifyPiercing(res *Intersection, p0, p1 r3.Vector, tri [3]Point, s0, s1 int) {
	v0, v1, v2 := tri[0].Pos, tri[1].Pos, tri[2].Pos
	e01 := Orient3D(p0, p1, v0, v1)
	e12 := Orient3D(p0, p1, v1, v2)
	e20 := Orient3D(p0, p1, v2, v0)

	pos, neg, zeros := 0, 0, 0
	for _, e := range [3]int{e01, e12, e20} {
		switch {
		case e > 0:
			pos++
		case e < 0:
			neg++
		default:
			zeros++
		}
	}
	if pos > 0 && neg > 0 {
		res.State = Disjoint
		return
	}
	switch zeros {
	case 0:
		res.State = TransversalInterior
	case 1:
		res.State = OnEdge
	default:
		res.State = OnVertex
	}
	if s0 == 0 {
		res.Flags |= TailOnTriangle
	}
	if s1 == 0 {
		res.Flags |= HeadOnTriangle
	}
	if e01 == 0 {
		res.Flags |= E01OnSegment
	}
	if e12 == 0 {
		res.Flags |= E12OnSegment
	}
	if e20 == 0 {
		res.Flags |= E20OnSegment
	}

	switch {
	case s0 == 0:
		res.Param = 0
	case s1 == 0:
		res.Param = 1
	default:
		d0 := orient3DValue(v0, v1, v2, p0)
		d1 := orient3DValue(v0, v1, v2, p1)
		res.Param = clamp01(d0 / (d0 - d1))
	}
	res.Point = p0.Add(p1.Sub(p0).Mul(res.Param))

	weights := [3]float64{orient3DValue(p0, p1, v1, v2), orient3DValue(p0, p1, v2, v0), orient3DValue(p0, p1, v0, v1)}
	for i, e := range [3]int{e12, e20, e01} {
		if e == 0 {
			weights[i] = 0
		}
	}
	res.Bary = normalizeWeights(weights)
}

// classifyCoplanar handles segments lying exactly in the triangle's plane, using exact 2D
// orientation tests in the projection that drops the dominant normal axis.
func classifyCoplanar(res *Intersection, p0, p1 r3.Vector, tri [3]Point) {
	v := [3]r3.Vector{tri[0].Pos, tri[1].Pos, tri[2].Pos}
	axis, area := projectionAxis(v)
	if axis < 0 {
		// zero area triangle: only a symbolic crossing can be reported.
		if res.Flags&Intersects != 0 {
			res.State = OnEdge
			res.Point = p0
		} else {
			res.State = Disjoint
		}
		return
	}

	q0, q1 := project(p0, axis), project(p1, axis)
	w := [3]r2.Point{project(v[0], axis), project(v[1], axis), project(v[2], axis)}

	// f_i(t) = sign(area) * orient2d(w_i, w_i+1, q(t)) is affine in t and positive inside.
	var a, b [3]*big.Rat
	tailOn, headOn := true, true
	for i := 0; i < 3; i++ {
		f0 := orient2DExact(w[i], w[(i+1)%3], q0)
		f1 := orient2DExact(w[i], w[(i+1)%3], q1)
		if area < 0 {
			f0.Neg(f0)
			f1.Neg(f1)
		}
		a[i], _ = f0.Rat(nil)
		r1, _ := f1.Rat(nil)
		b[i] = new(big.Rat).Sub(r1, a[i])
		tailOn = tailOn && a[i].Sign() >= 0
		headOn = headOn && r1.Sign() >= 0
	}

	closed := newUnitInterval()
	open := newUnitInterval()
	for i := 0; i < 3; i++ {
		closed.constrain(a[i], b[i], false)
		open.constrain(a[i], b[i], true)
	}
	switch {
	case !closed.nonEmpty():
		res.State = Disjoint
		return
	case open.nonEmpty():
		res.State = CoplanarThrough
	default:
		res.State = CoplanarTangent
	}
	if tailOn {
		res.Flags |= TailOnTriangle
	}
	if headOn {
		res.Flags |= HeadOnTriangle
	}

	res.Param, _ = closed.lo.Float64()
	res.Point = p0.Add(p1.Sub(p0).Mul(res.Param))
	x := project(res.Point, axis)
	res.Bary = normalizeWeights([3]float64{
		w[1].Sub(x).Cross(w[2].Sub(x)),
		w[2].Sub(x).Cross(w[0].Sub(x)),
		w[0].Sub(x).Cross(w[1].Sub(x)),
	})
}

// projectionAxis returns the coordinate axis to drop when projecting the triangle to 2D and the
// sign of the projected area, or -1 if the triangle has exactly zero area.
func projectionAxis(v [3]r3.Vector) (int, int) {
	n := v[1].Sub(v[0]).Cross(v[2].Sub(v[0]))
	axes := [3]int{0, 1, 2}
	comp := [3]float64{math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)}
	for i := 1; i < 3; i++ {
		for j := i; j > 0 && comp[axes[j]] > comp[axes[j-1]]; j-- {
			axes[j], axes[j-1] = axes[j-1], axes[j]
		}
	}
	for _, axis := range axes {
		if s := Orient2D(project(v[0], axis), project(v[1], axis), project(v[2], axis)); s != 0 {
			return axis, s
		}
	}
	return -1, 0
}

func project(v r3.Vector, axis int) r2.Point {
	switch axis {
	case 0:
		return r2.Point{X: v.Y, Y: v.Z}
	case 1:
		return r2.Point{X: v.Z, Y: v.X}
	default:
		return r2.Point{X: v.X, Y: v.Y}
	}
}

// orient3DValue is the plain double precision orientation determinant, used only for
// interpolation once signs are known exactly.
func orient3DValue(a, b, c, d r3.Vector) float64 {
	return b.Sub(a).Cross(c.Sub(a)).Dot(d.Sub(a))
}

func normalizeWeights(w [3]float64) r3.Vector {
	sum := w[0] + w[1] + w[2]
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return r3.Vector{X: 1. / 3, Y: 1. / 3, Z: 1. / 3}
	}
	return r3.Vector{X: w[0] / sum, Y: w[1] / sum, Z: w[2] / sum}
}

func clamp01(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// interval is a subinterval of [0, 1] with exact rational bounds.
type interval struct {
	lo, hi         *big.Rat
	loOpen, hiOpen bool
	empty          bool
}

func newUnitInterval() *interval {
	return &interval{lo: new(big.Rat), hi: big.NewRat(1, 1)}
}

// constrain intersects the interval with {t : a + t*b > 0} when strict, or >= 0 otherwise.
func (iv *interval) constrain(a, b *big.Rat, strict bool) {
	if iv.empty {
		return
	}
	if b.Sign() == 0 {
		if a.Sign() < 0 || (strict && a.Sign() == 0) {
			iv.empty = true
		}
		return
	}
	bound := new(big.Rat).Quo(new(big.Rat).Neg(a), b)
	if b.Sign() > 0 {
		switch bound.Cmp(iv.lo) {
		case 1:
			iv.lo, iv.loOpen = bound, strict
		case 0:
			iv.loOpen = iv.loOpen || strict
		}
		return
	}
	switch bound.Cmp(iv.hi) {
	case -1:
		iv.hi, iv.hiOpen = bound, strict
	case 0:
		iv.hiOpen = iv.hiOpen || strict
	}
}

func (iv *interval) nonEmpty() bool {
	if iv.empty {
		return false
	}
	switch iv.lo.Cmp(iv.hi) {
	case -1:
		return true
	case 0:
		return !iv.loOpen && !iv.hiOpen
	}
	return false
}

// ClosestIntersection compares where the segment p0-p1 meets the planes of triangles c and d.
// It returns 1 if d is met closer to p0 than c, 0 if both are met at the same point and -1 if d
// is farther. A plane parallel to the segment is treated as infinitely far.
func ClosestIntersection(p0, p1 Point, c, d [3]Point) int {
	tc, okc := planeParam(p0.Pos, p1.Pos, c)
	td, okd := planeParam(p0.Pos, p1.Pos, d)
	switch {
	case !okc && !okd:
		return 0
	case !okc:
		return 1
	case !okd:
		return -1
	}
	return tc.Cmp(td)
}

// planeParam returns the exact parameter along p0-p1 at which the line meets the triangle's plane.
func planeParam(p0, p1 r3.Vector, tri [3]Point) (*big.Rat, bool) {
	a, _ := orient3DExact(tri[0].Pos, tri[1].Pos, tri[2].Pos, p0).Rat(nil)
	b, _ := orient3DExact(tri[0].Pos, tri[1].Pos, tri[2].Pos, p1).Rat(nil)
	den := new(big.Rat).Sub(a, b)
	if den.Sign() == 0 {
		return nil, false
	}
	return new(big.Rat).Quo(a, den), true
}
