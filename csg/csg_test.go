package csg

import (
	"context"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/bvh/bvh"
	"go.viam.com/bvh/logging"
	"go.viam.com/bvh/spatialmath"
	"go.viam.com/bvh/testutils"
)

func TestOpFromString(t *testing.T) {
	for _, op := range []Op{OpUnion, OpIntersection, OpDifference} {
		parsed, err := OpFromString(op.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, op)
	}
	_, err := OpFromString("xor")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, Op(9).String(), test.ShouldEqual, "Op(9)")
}

func TestComposeDisjoint(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	a := testutils.BoxMesh(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1})
	b := testutils.BoxMesh(r3.Vector{X: 5}, r3.Vector{X: 1, Y: 2, Z: 1})

	union, err := Union(ctx, a, b, WithLogger(logger))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, union.Crossings, test.ShouldBeEmpty)
	test.That(t, union.CutFacesA, test.ShouldBeEmpty)
	test.That(t, union.CutFacesB, test.ShouldBeEmpty)
	test.That(t, len(union.Mesh.Triangles()), test.ShouldEqual, 24)
	test.That(t, union.Mesh.IsClosed(), test.ShouldBeTrue)
	test.That(t, union.Mesh.SignedVolume(), test.ShouldAlmostEqual, 8+16)

	inter, err := Intersection(ctx, a, b, WithLogger(logger))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, inter.Mesh.Triangles(), test.ShouldBeEmpty)

	diff, err := Difference(ctx, a, b, WithLogger(logger))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(diff.FacesA), test.ShouldEqual, 12)
	test.That(t, diff.FacesB, test.ShouldBeEmpty)
	test.That(t, diff.Mesh.SignedVolume(), test.ShouldAlmostEqual, 8)
}

func TestComposeNested(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	outer := testutils.BoxMesh(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1})
	inner := testutils.BoxMesh(r3.Vector{}, r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}).Transform(
		spatialmath.NewPose(r3.Vector{X: 0.1}, &spatialmath.R4AA{Theta: 0.3, RZ: 1}))

	for _, kind := range []bvh.Kind{bvh.KindAABB, bvh.KindOBB} {
		t.Run(kind.String(), func(t *testing.T) {
			opts := []Option{WithTreeKind(kind), WithLogger(logger)}

			union, err := Union(ctx, outer, inner, opts...)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, union.Crossings, test.ShouldBeEmpty)
			test.That(t, len(union.FacesA), test.ShouldEqual, 12)
			test.That(t, union.FacesB, test.ShouldBeEmpty)
			test.That(t, union.Mesh.IsClosed(), test.ShouldBeTrue)
			test.That(t, union.Mesh.SignedVolume(), test.ShouldAlmostEqual, 8)

			inter, err := Intersection(ctx, outer, inner, opts...)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, inter.FacesA, test.ShouldBeEmpty)
			test.That(t, len(inter.FacesB), test.ShouldEqual, 12)
			test.That(t, inter.Mesh.IsClosed(), test.ShouldBeTrue)
			test.That(t, inter.Mesh.SignedVolume(), test.ShouldAlmostEqual, 1)

			// the inner faces are reversed to bound the hollow
			diff, err := Difference(ctx, outer, inner, opts...)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, len(diff.Mesh.Triangles()), test.ShouldEqual, 24)
			test.That(t, diff.Mesh.IsClosed(), test.ShouldBeTrue)
			test.That(t, diff.Mesh.SignedVolume(), test.ShouldAlmostEqual, 7)

			empty, err := Difference(ctx, inner, outer, opts...)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, empty.Mesh.Triangles(), test.ShouldBeEmpty)
		})
	}
}

func TestComposeOverlappingSpheres(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	a := testutils.Icosphere(2, 1)
	b := testutils.Icosphere(2, 1).Transform(spatialmath.NewPose(r3.Vector{X: 1, Y: 0.1}, &spatialmath.R4AA{Theta: 0.4, RY: 1}))

	union, err := Union(ctx, a, b, WithLogger(logger))
	test.That(t, err, test.ShouldBeNil)
	inter, err := Intersection(ctx, a, b, WithLogger(logger))
	test.That(t, err, test.ShouldBeNil)
	diff, err := Difference(ctx, a, b, WithLogger(logger))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, union.Crossings, test.ShouldNotBeEmpty)
	test.That(t, union.CutFacesA, test.ShouldNotBeEmpty)
	test.That(t, union.CutFacesB, test.ShouldNotBeEmpty)
	test.That(t, inter.Crossings, test.ShouldResemble, union.Crossings)
	test.That(t, diff.FacesA, test.ShouldResemble, union.FacesA)
	test.That(t, diff.FacesB, test.ShouldResemble, inter.FacesB)

	t.Run("faces are partitioned", func(t *testing.T) {
		for _, c := range []struct {
			n               int
			outside, inside []int
			cut             []int
		}{
			{len(a.Triangles()), union.FacesA, inter.FacesA, union.CutFacesA},
			{len(b.Triangles()), union.FacesB, inter.FacesB, union.CutFacesB},
		} {
			seen := make([]int, c.n)
			for _, group := range [][]int{c.outside, c.inside, c.cut} {
				for _, i := range group {
					seen[i]++
				}
			}
			for i := range seen {
				test.That(t, seen[i], test.ShouldEqual, 1)
			}
		}
	})

	t.Run("crossings lie on both surfaces", func(t *testing.T) {
		worldA, worldB := a.WorldTriangles(), b.WorldTriangles()
		for _, c := range union.Crossings {
			edgeMesh, faces := a, worldB
			if c.FromB {
				edgeMesh, faces = b, worldA
			}
			p0 := spatialmath.TransformPoint(edgeMesh.Pose(), edgeMesh.Vertices()[c.Edge[0]])
			p1 := spatialmath.TransformPoint(edgeMesh.Pose(), edgeMesh.Vertices()[c.Edge[1]])
			test.That(t, spatialmath.ClosestPointSegmentPoint(p0, p1, c.Point).Distance(c.Point), test.ShouldBeLessThan, 1e-9)
			test.That(t, faces[c.Face].ClosestPointToPoint(c.Point).Distance(c.Point), test.ShouldBeLessThan, 1e-9)
		}
	})

	t.Run("cut faces are left out", func(t *testing.T) {
		test.That(t, len(union.Mesh.Triangles()), test.ShouldEqual, len(union.FacesA)+len(union.FacesB))
		test.That(t, union.Mesh.IsClosed(), test.ShouldBeFalse)
	})

	t.Run("tree kinds agree", func(t *testing.T) {
		aabb, err := Union(ctx, a, b, WithTreeKind(bvh.KindAABB), WithLogger(logger))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, aabb.Crossings, test.ShouldResemble, union.Crossings)
		test.That(t, aabb.FacesA, test.ShouldResemble, union.FacesA)
		test.That(t, aabb.FacesB, test.ShouldResemble, union.FacesB)
	})
}

func TestComposeErrors(t *testing.T) {
	ctx := context.Background()
	box := testutils.BoxMesh(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1})
	flap := spatialmath.NewMesh(spatialmath.NewZeroPose(),
		[]*spatialmath.Triangle{spatialmath.NewTriangle(r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1})}, "flap")

	_, err := Union(ctx, box, flap)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `mesh "flap" is not closed`)

	_, err = Intersection(ctx, nil, box)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Compose(ctx, Op(7), box, box)
	test.That(t, err, test.ShouldNotBeNil)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Difference(canceled, box, testutils.Octahedron(1))
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestComposeLogs(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	_, err := Union(context.Background(), testutils.Octahedron(1), testutils.BoxMesh(r3.Vector{X: 1}, r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}),
		WithLogger(logger))
	test.That(t, err, test.ShouldBeNil)
	entries := logs.FilterMessage("composed meshes").All()
	test.That(t, len(entries), test.ShouldEqual, 1)
	test.That(t, entries[0].ContextMap()["op"], test.ShouldEqual, "union")
}
