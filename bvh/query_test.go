package bvh

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/bvh/robust"
	"go.viam.com/bvh/spatialmath"
	"go.viam.com/bvh/testutils"
)

func nearestByScan(elements []Boundable, q r3.Vector) float64 {
	best := math.Inf(1)
	for _, e := range elements {
		if d := e.(PointProjector).ClosestPointToPoint(q).Distance(q); d < best {
			best = d
		}
	}
	return best
}

// firstHitByScan casts the same segment NearestAlongRay casts against every element.
func firstHitByScan(tr *Tree, elements []Boundable, origin, dir r3.Vector) (float64, bool) {
	_, hi, ok := tr.Root().Volume().IntersectsLine(origin, dir, 0, math.Inf(1))
	if !ok {
		return 0, false
	}
	far := 2*hi + 1
	tail := robust.Point{Pos: origin, Index: QueryTailIndex}
	head := robust.Point{Pos: origin.Add(dir.Mul(far)), Index: QueryHeadIndex}
	best := math.Inf(1)
	for _, e := range elements {
		tri, _ := robustTriangle(e)
		if res := robust.ClassifySegmentTriangle(tail, head, tri); res.State != robust.Disjoint && res.Param < best {
			best = res.Param
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return best * far, true
}

// leafElements returns the set of elements owned by the given leaves.
func leafElements(leaves []*Node) map[Boundable]bool {
	out := map[Boundable]bool{}
	for _, leaf := range leaves {
		for _, e := range leaf.Elements() {
			out[e] = true
		}
	}
	return out
}

func TestNearestPoint(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	sets := map[string][]Boundable{
		"sphere": TriangleElements(testutils.Icosphere(3, 1).Triangles()),
		"soup":   TriangleElements(testutils.RandomTriangles(rng, 600, 10, 0.5)),
	}
	for name, elements := range sets {
		queries := testutils.RandomPoints(rng, 150, 12)
		if name == "sphere" {
			queries = testutils.RandomPoints(rng, 150, 2)
		}
		for _, kind := range kinds {
			for _, maxLeaf := range []int{1, 2, 8} {
				tr := buildTree(t, kind, elements, WithMaxLeafElements(maxLeaf))
				for _, q := range queries {
					e, pt, ok := tr.NearestPoint(q)
					test.That(t, ok, test.ShouldBeTrue)
					test.That(t, pt.Distance(q), test.ShouldAlmostEqual, nearestByScan(elements, q), 1e-12)
					test.That(t, e.(PointProjector).ClosestPointToPoint(q), test.ShouldResemble, pt)
				}
			}
		}
	}
}

func TestNearestPointElements(t *testing.T) {
	t.Run("vertices", func(t *testing.T) {
		verts := testutils.Icosphere(2, 1).VertexElements()
		tr := buildTree(t, KindOBB, VertexElements(verts))
		e, pt, ok := tr.NearestPoint(r3.Vector{X: 5})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, pt, test.ShouldResemble, e.Centroid())
		test.That(t, pt.Distance(r3.Vector{X: 5}), test.ShouldAlmostEqual, nearestByScan(VertexElements(verts), r3.Vector{X: 5}))
	})

	t.Run("segments", func(t *testing.T) {
		elements := SegmentElements(testutils.Icosphere(1, 1).Edges())
		tr := buildTree(t, KindAABB, elements)
		q := r3.Vector{X: 0.2, Y: -0.1, Z: 0.3}
		_, pt, ok := tr.NearestPoint(q)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, pt.Distance(q), test.ShouldAlmostEqual, nearestByScan(elements, q), 1e-12)
	})

	t.Run("elements without projection are skipped", func(t *testing.T) {
		tri := spatialmath.NewTriangle(r3.Vector{X: 10}, r3.Vector{X: 11}, r3.Vector{X: 10, Y: 1})
		tr := buildTree(t, KindAABB, []Boundable{boundsOnly{tri}, tri})
		e, _, ok := tr.NearestPoint(r3.Vector{})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, e, test.ShouldEqual, tri)

		tr = buildTree(t, KindAABB, []Boundable{boundsOnly{tri}})
		_, _, ok = tr.NearestPoint(r3.Vector{})
		test.That(t, ok, test.ShouldBeFalse)
	})
}

func TestNearestK(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	elements := TriangleElements(testutils.RandomTriangles(rng, 500, 10, 0.5))
	for _, kind := range kinds {
		tr := buildTree(t, kind, elements)
		for _, q := range testutils.RandomPoints(rng, 50, 10) {
			dists := make([]float64, 0, len(elements))
			for _, e := range elements {
				dists = append(dists, e.(PointProjector).ClosestPointToPoint(q).Distance(q))
			}
			sort.Float64s(dists)

			results := tr.NearestK(q, 7)
			test.That(t, len(results), test.ShouldEqual, 7)
			for i, r := range results {
				test.That(t, r.Distance, test.ShouldAlmostEqual, dists[i], 1e-12)
				test.That(t, r.Point.Distance(q), test.ShouldEqual, r.Distance)
			}
			_, _, ok := tr.NearestPoint(q)
			test.That(t, ok, test.ShouldBeTrue)
		}
	}

	tr := buildTree(t, KindAABB, elements[:3])
	test.That(t, len(tr.NearestK(r3.Vector{}, 10)), test.ShouldEqual, 3)
	test.That(t, tr.NearestK(r3.Vector{}, 0), test.ShouldBeNil)
}

func TestEmptyTreeQueries(t *testing.T) {
	for _, kind := range kinds {
		tr := buildTree(t, kind, nil)
		_, _, ok := tr.NearestPoint(r3.Vector{})
		test.That(t, ok, test.ShouldBeFalse)
		test.That(t, tr.NearestK(r3.Vector{}, 3), test.ShouldBeEmpty)
		_, _, ok = tr.NearestAlongRay(r3.Vector{}, r3.Vector{X: 1})
		test.That(t, ok, test.ShouldBeFalse)
		_, _, ok = tr.NearestAlongSegment(r3.Vector{}, r3.Vector{X: 1})
		test.That(t, ok, test.ShouldBeFalse)
		test.That(t, tr.ElementsInSphere(r3.Vector{}, 10), test.ShouldBeEmpty)
		test.That(t, tr.IntersectRay(r3.Vector{}, r3.Vector{X: 1}), test.ShouldBeEmpty)
		test.That(t, tr.CountCrossings(robust.Point{}, robust.Point{Pos: r3.Vector{X: 1}, Index: 1}), test.ShouldEqual, 0)
		test.That(t, IsInsideMesh(tr, r3.Vector{}), test.ShouldBeFalse)
		test.That(t, ClassifyPoint(tr, r3.Vector{}), test.ShouldEqual, Outside)
		test.That(t, tr.OverlappingLeafPairs(tr), test.ShouldBeEmpty)
	}
}

func TestNearestAlongRay(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	tris := testutils.RandomTriangles(rng, 600, 10, 0.5)
	elements := TriangleElements(tris)
	for _, kind := range kinds {
		tr := buildTree(t, kind, elements)
		hits := 0
		for i := 0; i < 200; i++ {
			origin := testutils.RandomPoints(rng, 1, 12)[0]
			dir := testutils.RandomDirection(rng)
			if i%2 == 0 {
				// aim at a triangle so that about half the rays hit something
				dir = tris[rng.Intn(len(tris))].Centroid().Sub(origin)
			}
			want, wantOK := firstHitByScan(tr, elements, origin, dir)
			e, s, ok := tr.NearestAlongRay(origin, dir)
			test.That(t, ok, test.ShouldEqual, wantOK)
			if !ok {
				continue
			}
			hits++
			test.That(t, s, test.ShouldAlmostEqual, want, 1e-12)
			test.That(t, s, test.ShouldBeGreaterThanOrEqualTo, 0)
			_, ok = e.(TriangleElement)
			test.That(t, ok, test.ShouldBeTrue)
		}
		test.That(t, hits, test.ShouldBeGreaterThanOrEqualTo, 100)
	}

	t.Run("sphere from inside", func(t *testing.T) {
		mesh := testutils.Icosphere(3, 1)
		tr, err := NewMeshTree(mesh, KindOBB)
		test.That(t, err, test.ShouldBeNil)
		for i := 0; i < 100; i++ {
			_, s, ok := tr.NearestAlongRay(r3.Vector{}, testutils.RandomDirection(rng))
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, s, test.ShouldBeBetweenOrEqual, 0.95, 1+1e-9)
		}
	})

	t.Run("misses", func(t *testing.T) {
		tr := buildTree(t, KindAABB, TriangleElements(testutils.Icosphere(1, 1).Triangles()))
		_, _, ok := tr.NearestAlongRay(r3.Vector{X: 5}, r3.Vector{X: 1})
		test.That(t, ok, test.ShouldBeFalse)
		_, _, ok = tr.NearestAlongRay(r3.Vector{X: 5}, r3.Vector{})
		test.That(t, ok, test.ShouldBeFalse)
		_, s, ok := tr.NearestAlongRay(r3.Vector{X: 5}, r3.Vector{X: -1})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, s, test.ShouldAlmostEqual, 4, 1e-9)
	})

	t.Run("segment", func(t *testing.T) {
		tr := buildTree(t, KindAABB, TriangleElements(testutils.Icosphere(1, 1).Triangles()))
		_, _, ok := tr.NearestAlongSegment(r3.Vector{X: 5}, r3.Vector{X: 2})
		test.That(t, ok, test.ShouldBeFalse)
		_, param, ok := tr.NearestAlongSegment(r3.Vector{X: 5}, r3.Vector{X: -5})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, param, test.ShouldAlmostEqual, 0.4)
		// a segment that starts on a mesh vertex touches the surface at its tail
		v := testutils.Icosphere(1, 1).Vertices()[0]
		_, param, ok = tr.NearestAlongSegment(v, v.Mul(3))
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, param, test.ShouldEqual, 0)
	})
}

func TestRegionQueries(t *testing.T) {
	rng := rand.New(rand.NewSource(34))
	elements := TriangleElements(testutils.RandomTriangles(rng, 400, 10, 0.5))
	for _, kind := range kinds {
		tr := buildTree(t, kind, elements)

		t.Run(kind.String()+"/sphere", func(t *testing.T) {
			for _, c := range testutils.RandomPoints(rng, 20, 10) {
				found := leafElements(tr.ElementsInSphere(c, 2))
				for _, e := range elements {
					if e.(PointProjector).ClosestPointToPoint(c).Distance(c) <= 2 {
						test.That(t, found[e], test.ShouldBeTrue)
					}
				}
			}
		})

		t.Run(kind.String()+"/point", func(t *testing.T) {
			for _, e := range elements[:50] {
				found := leafElements(tr.IntersectPoint(e.Point(1)))
				test.That(t, found[e], test.ShouldBeTrue)
			}
			test.That(t, tr.IntersectPoint(r3.Vector{X: 100}), test.ShouldBeEmpty)
		})

		t.Run(kind.String()+"/plane", func(t *testing.T) {
			n := r3.Vector{X: 1, Y: 2, Z: -1}.Normalize()
			for _, d := range []float64{-3, 0, 2.5} {
				found := leafElements(tr.IntersectPlane(n, d))
				for _, e := range elements {
					above, below := false, false
					for i := 0; i < e.PointCount(); i++ {
						s := n.Dot(e.Point(i)) - d
						above = above || s >= 0
						below = below || s <= 0
					}
					if above && below {
						test.That(t, found[e], test.ShouldBeTrue)
					}
				}
			}
		})

		t.Run(kind.String()+"/segment", func(t *testing.T) {
			for i := 0; i < 30; i++ {
				pts := testutils.RandomPoints(rng, 2, 10)
				found := leafElements(tr.IntersectLineSegment(pts[0], pts[1]))
				tail := robust.Point{Pos: pts[0], Index: QueryTailIndex}
				head := robust.Point{Pos: pts[1], Index: QueryHeadIndex}
				for _, e := range elements {
					tri, _ := robustTriangle(e)
					if robust.ClassifySegmentTriangle(tail, head, tri).State != robust.Disjoint {
						test.That(t, found[e], test.ShouldBeTrue)
					}
				}
			}
		})

		t.Run(kind.String()+"/ray", func(t *testing.T) {
			for i := 0; i < 30; i++ {
				origin := testutils.RandomPoints(rng, 1, 12)[0]
				dir := elements[rng.Intn(len(elements))].Centroid().Sub(origin)
				e, _, ok := tr.NearestAlongRay(origin, dir)
				test.That(t, ok, test.ShouldBeTrue)
				test.That(t, leafElements(tr.IntersectRay(origin, dir))[e], test.ShouldBeTrue)
				test.That(t, leafElements(tr.IntersectLine(origin, dir, math.Inf(-1), math.Inf(1)))[e], test.ShouldBeTrue)
			}
		})
	}
}

func TestBatchQueries(t *testing.T) {
	rng := rand.New(rand.NewSource(35))
	elements := TriangleElements(testutils.RandomTriangles(rng, 300, 10, 0.5))
	tr := buildTree(t, KindAABB, elements)
	ctx := context.Background()

	queries := testutils.RandomPoints(rng, 64, 10)
	results, err := tr.BatchNearestPoints(ctx, queries)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(results), test.ShouldEqual, len(queries))
	for i, q := range queries {
		e, pt, ok := tr.NearestPoint(q)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, results[i].Element, test.ShouldEqual, e)
		test.That(t, results[i].Point, test.ShouldResemble, pt)
		test.That(t, results[i].Distance, test.ShouldEqual, pt.Distance(q))
	}

	origins := testutils.RandomPoints(rng, 64, 12)
	dirs := make([]r3.Vector, len(origins))
	for i := range dirs {
		dirs[i] = testutils.RandomDirection(rng)
	}
	hits, err := tr.BatchNearestAlongRays(ctx, origins, dirs)
	test.That(t, err, test.ShouldBeNil)
	for i := range origins {
		e, s, ok := tr.NearestAlongRay(origins[i], dirs[i])
		if !ok {
			test.That(t, hits[i].Element, test.ShouldBeNil)
			continue
		}
		test.That(t, hits[i].Element, test.ShouldEqual, e)
		test.That(t, hits[i].Param, test.ShouldEqual, s)
	}

	_, err = tr.BatchNearestAlongRays(ctx, origins, dirs[:3])
	test.That(t, err, test.ShouldNotBeNil)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = tr.BatchNearestPoints(canceled, queries)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

// boundsOnly hides every method of an element except the ones a tree needs to hold it.
type boundsOnly struct {
	tri *spatialmath.Triangle
}

func (b boundsOnly) PointCount() int                      { return b.tri.PointCount() }
func (b boundsOnly) Point(i int) r3.Vector                { return b.tri.Point(i) }
func (b boundsOnly) Centroid() r3.Vector                  { return b.tri.Centroid() }
func (b boundsOnly) UpdateBounds(min, max *r3.Vector)     { b.tri.UpdateBounds(min, max) }
func (b boundsOnly) Covariance() (*mat.SymDense, float64) { return b.tri.Covariance() }

func TestNearestAlongRayThroughVertices(t *testing.T) {
	sphere := testutils.Icosphere(3, 1)
	for _, kind := range kinds {
		for _, margin := range []float64{0, DefaultMargin} {
			tr, err := NewMeshTree(sphere, kind, WithMargin(margin))
			test.That(t, err, test.ShouldBeNil)
			for _, v := range sphere.Vertices() {
				_, s, ok := tr.NearestAlongRay(v.Mul(3), v.Mul(-1))
				test.That(t, ok, test.ShouldBeTrue)
				test.That(t, s, test.ShouldAlmostEqual, 2, 1e-9)
			}
		}
	}
}

func TestSlicePlane(t *testing.T) {
	sphere := testutils.Icosphere(3, 1)
	up := r3.Vector{Z: 1}
	want := 0
	for _, tri := range sphere.Triangles() {
		if _, _, ok := tri.PlaneSegment(up, 0.3); ok {
			want++
		}
	}
	test.That(t, want, test.ShouldBeGreaterThan, 0)
	circumference := 2 * math.Pi * math.Sqrt(1-0.3*0.3)

	for _, kind := range kinds {
		tr, err := NewMeshTree(sphere, kind)
		test.That(t, err, test.ShouldBeNil)
		cuts := tr.SlicePlane(up, 0.3)
		test.That(t, len(cuts), test.ShouldEqual, want)
		length := 0.
		for _, c := range cuts {
			test.That(t, c.P0.Z, test.ShouldAlmostEqual, 0.3, 1e-9)
			test.That(t, c.P1.Z, test.ShouldAlmostEqual, 0.3, 1e-9)
			_, ok := c.Element.(*spatialmath.Triangle)
			test.That(t, ok, test.ShouldBeTrue)
			length += c.P0.Distance(c.P1)
		}
		test.That(t, length, test.ShouldBeBetween, 0.9*circumference, circumference)

		test.That(t, tr.SlicePlane(up, 2), test.ShouldBeEmpty)
		// vertices carry no segment
		vtree, err := NewAABBTree(VertexElements(sphere.VertexElements()))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, vtree.SlicePlane(up, 0.3), test.ShouldBeEmpty)
	}
}
