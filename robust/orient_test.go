package robust

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestOrient3D(t *testing.T) {
	a := r3.Vector{X: 0, Y: 0, Z: 0}
	b := r3.Vector{X: 1, Y: 0, Z: 0}
	c := r3.Vector{X: 0, Y: 1, Z: 0}

	t.Run("sides", func(t *testing.T) {
		test.That(t, Orient3D(a, b, c, r3.Vector{X: 0.1, Y: 0.1, Z: 1}), test.ShouldEqual, 1)
		test.That(t, Orient3D(a, b, c, r3.Vector{X: 0.1, Y: 0.1, Z: -1}), test.ShouldEqual, -1)
		test.That(t, Orient3D(a, c, b, r3.Vector{X: 0.1, Y: 0.1, Z: 1}), test.ShouldEqual, -1)
	})

	t.Run("exactly coplanar", func(t *testing.T) {
		test.That(t, Orient3D(a, b, c, r3.Vector{X: 0.5, Y: 0.5, Z: 0}), test.ShouldEqual, 0)
		// a plane that is not axis aligned, sampled at dyadic coordinates so every point is exact
		p := func(x, y float64) r3.Vector { return r3.Vector{X: x, Y: y, Z: 3*x - 5*y} }
		test.That(t, Orient3D(p(0.5, 0.75), p(1024.125, -2), p(-3, 0.0625), p(11.5, 0.25)), test.ShouldEqual, 0)
	})

	t.Run("tiny offsets are resolved exactly", func(t *testing.T) {
		// d sits one denormal above the plane z = 0 far from the origin
		far := 1e8
		test.That(t, Orient3D(a, b, c, r3.Vector{X: far, Y: far, Z: 5e-324}), test.ShouldEqual, 1)
		test.That(t, Orient3D(a, b, c, r3.Vector{X: far, Y: -far, Z: -5e-324}), test.ShouldEqual, -1)
	})

	t.Run("filter agrees with exact sign", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 500; i++ {
			pts := [4]r3.Vector{}
			for j := range pts {
				pts[j] = r3.Vector{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
			}
			fast := orient3DFilter(pts[0], pts[1], pts[2], pts[3])
			if fast == 0 {
				continue
			}
			exact := orient3DExact(pts[0], pts[1], pts[2], pts[3]).Sign()
			test.That(t, exact, test.ShouldEqual, sign(fast))
		}
	})
}

func TestOrient2D(t *testing.T) {
	test.That(t, Orient2D(r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 0}, r2.Point{X: 0, Y: 1}), test.ShouldEqual, 1)
	test.That(t, Orient2D(r2.Point{X: 0, Y: 0}, r2.Point{X: 0, Y: 1}, r2.Point{X: 1, Y: 0}), test.ShouldEqual, -1)
	test.That(t, Orient2D(r2.Point{X: 0.1, Y: 0.1}, r2.Point{X: 0.2, Y: 0.2}, r2.Point{X: 0.3, Y: 0.3}), test.ShouldEqual, 0)
}

func TestOrient3DSoS(t *testing.T) {
	// four exactly coplanar points
	pts := []Point{
		{r3.Vector{X: 0, Y: 0, Z: 0}, 3},
		{r3.Vector{X: 1, Y: 0, Z: 0}, 1},
		{r3.Vector{X: 0, Y: 1, Z: 0}, 7},
		{r3.Vector{X: 1, Y: 1, Z: 0}, 2},
	}
	base := Orient3DSoS(pts[0], pts[1], pts[2], pts[3])
	test.That(t, base, test.ShouldNotEqual, 0)

	t.Run("antisymmetric under argument swaps", func(t *testing.T) {
		for _, perm := range permutations(4) {
			got := Orient3DSoS(pts[perm[0]], pts[perm[1]], pts[perm[2]], pts[perm[3]])
			test.That(t, got, test.ShouldEqual, base*permutationSign(perm))
		}
	})

	t.Run("agrees with exact sign when nonzero", func(t *testing.T) {
		q := append([]Point(nil), pts...)
		q[3].Pos.Z = 1e-300
		test.That(t, Orient3DSoS(q[0], q[1], q[2], q[3]), test.ShouldEqual, 1)
	})

	t.Run("coincident points", func(t *testing.T) {
		same := r3.Vector{X: 2, Y: 2, Z: 2}
		s := Orient3DSoS(Point{same, 0}, Point{same, 1}, Point{same, 2}, Point{same, 3})
		test.That(t, s == 1 || s == -1, test.ShouldBeTrue)
	})

	t.Run("terms are ordered and complete", func(t *testing.T) {
		test.That(t, len(sosTerms), test.ShouldEqual, 73)
		test.That(t, sosTerms[0].mask, test.ShouldEqual, uint(0))
		for i := 1; i < len(sosTerms); i++ {
			test.That(t, sosTerms[i].mask, test.ShouldBeGreaterThan, sosTerms[i-1].mask)
		}
	})
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
