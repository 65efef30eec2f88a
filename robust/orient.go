// Package robust implements exact geometric predicates over float64 coordinates.
//
// Every predicate first evaluates in double precision with a forward error bound
// (Aftosmis et al., "Robust and Efficient Cartesian Mesh Generation for Component-Based
// Geometry", 1998, eq. 5). When the result is within the bound the determinant is recomputed
// exactly with arbitrary precision floats. Exact zeros are resolved by Simulation of Simplicity
// (Edelsbrunner and Mücke, 1990) using caller supplied vertex indices, so that predicates over
// shared mesh vertices agree with each other.
package robust

import (
	"math"
	"math/big"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

const (
	doublePrec = 2e-16
	orientEps  = (7 + 56*doublePrec) * doublePrec
)

// newBigFloat constructs a new big.Float with maximum precision.
func newBigFloat() *big.Float { return new(big.Float).SetPrec(big.MaxPrec) }

// orient3DFilter returns ((b-a)x(c-a)).(d-a) when its sign can be trusted, and 0 otherwise.
func orient3DFilter(a, b, c, d r3.Vector) float64 {
	r1 := b.Sub(a)
	r2 := c.Sub(a)
	r3v := d.Sub(a)
	maxSqr := math.Max(r1.Norm2(), math.Max(r2.Norm2(), r3v.Norm2()))
	maxlen := math.Sqrt(maxSqr)
	return orient3DFast(r1, r2, r3v, orientEps*6*maxlen*maxlen*maxlen)
}

// orient3DFast computes the volume of the tet spanned by a, b, c along with its rounding error.
// The coarse bound is tried first, then a per-term bound. Inside the bound the result is 0.
func orient3DFast(a, b, c r3.Vector, maxerr float64) float64 {
	cybx := c.Y * b.X
	cxby := c.X * b.Y
	cxay := c.X * a.Y
	cyax := c.Y * a.X
	axby := a.X * b.Y
	aybx := a.Y * b.X

	res := a.Z*(cybx-cxby) + b.Z*(cxay-cyax) + c.Z*(axby-aybx)
	abs := math.Abs(res)
	if abs > maxerr {
		return res
	}

	maxerr = orientEps * (math.Abs(a.Z)*(math.Abs(cybx)+math.Abs(cxby)) +
		math.Abs(b.Z)*(math.Abs(cxay)+math.Abs(cyax)) +
		math.Abs(c.Z)*(math.Abs(axby)+math.Abs(aybx)))
	if abs > maxerr {
		return res
	}
	return 0
}

// orient3DExact returns ((b-a)x(c-a)).(d-a) computed without rounding.
func orient3DExact(a, b, c, d r3.Vector) *big.Float {
	pa := r3.PreciseVectorFromVector(a)
	pb := r3.PreciseVectorFromVector(b)
	pc := r3.PreciseVectorFromVector(c)
	pd := r3.PreciseVectorFromVector(d)
	return pb.Sub(pa).Cross(pc.Sub(pa)).Dot(pd.Sub(pa))
}

// Orient3D returns +1 if d lies on the side of the plane through a, b, c that the right hand
// normal (b-a)x(c-a) points to, -1 if it lies on the other side, and 0 if the four points are
// exactly coplanar.
func Orient3D(a, b, c, d r3.Vector) int {
	if det := orient3DFilter(a, b, c, d); det != 0 {
		if det > 0 {
			return 1
		}
		return -1
	}
	return orient3DExact(a, b, c, d).Sign()
}

// Orient2D returns +1 if a, b, c are in counterclockwise order, -1 if clockwise and 0 if they
// are exactly collinear.
func Orient2D(a, b, c r2.Point) int {
	det := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	detsum := math.Abs((b.X-a.X)*(c.Y-a.Y)) + math.Abs((b.Y-a.Y)*(c.X-a.X))
	if math.Abs(det) > 4*doublePrec*detsum {
		if det > 0 {
			return 1
		}
		return -1
	}
	return orient2DExact(a, b, c).Sign()
}

func orient2DExact(a, b, c r2.Point) *big.Float {
	bx := newBigFloat().Sub(newBigFloat().SetFloat64(b.X), newBigFloat().SetFloat64(a.X))
	by := newBigFloat().Sub(newBigFloat().SetFloat64(b.Y), newBigFloat().SetFloat64(a.Y))
	cx := newBigFloat().Sub(newBigFloat().SetFloat64(c.X), newBigFloat().SetFloat64(a.X))
	cy := newBigFloat().Sub(newBigFloat().SetFloat64(c.Y), newBigFloat().SetFloat64(a.Y))
	return newBigFloat().Sub(newBigFloat().Mul(bx, cy), newBigFloat().Mul(by, cx))
}
