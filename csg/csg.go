// Package csg composes closed triangle meshes with Boolean operations. It finds where the surfaces
// of two meshes cross, selects the whole faces of each mesh that belong to the result and reports
// the faces that are cut by the other surface. Cut faces are not re-triangulated.
package csg

import (
	"context"
	"fmt"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/bvh/bvh"
	"go.viam.com/bvh/logging"
	"go.viam.com/bvh/robust"
	"go.viam.com/bvh/spatialmath"
	"go.viam.com/bvh/utils"
)

// Op is a Boolean operation on two solids.
type Op int

const (
	// OpUnion keeps everything enclosed by either mesh.
	OpUnion Op = iota
	// OpIntersection keeps what is enclosed by both meshes.
	OpIntersection
	// OpDifference keeps what the first mesh encloses and the second does not.
	OpDifference
)

func (op Op) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpIntersection:
		return "intersection"
	case OpDifference:
		return "difference"
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// OpFromString parses the name of an operation.
func OpFromString(s string) (Op, error) {
	for _, op := range []Op{OpUnion, OpIntersection, OpDifference} {
		if op.String() == s {
			return op, nil
		}
	}
	return OpUnion, errors.Errorf("unknown boolean operation %q", s)
}

// Crossing is an edge of one mesh passing through a face of the other.
type Crossing struct {
	// FromB is set when the edge belongs to the second mesh and the face to the first.
	FromB bool
	// Edge holds the edge's vertex indices in its own mesh, lowest first.
	Edge [2]int
	// Face is the index of the crossed face in the other mesh.
	Face int
	// Point is the world position of the crossing.
	Point r3.Vector
}

// Result is the outcome of a Boolean operation.
type Result struct {
	// Mesh holds the selected faces in world coordinates.
	Mesh *spatialmath.Mesh
	// FacesA and FacesB are the indices of the faces each input contributed to Mesh.
	FacesA, FacesB []int
	// CutFacesA and CutFacesB are the faces that meet the other surface, either crossed by it or
	// lying on it. They are left out of Mesh.
	CutFacesA, CutFacesB []int
	Crossings            []Crossing
}

type options struct {
	kind   bvh.Kind
	logger logging.Logger
}

// Option configures a Boolean operation.
type Option func(*options)

// WithTreeKind selects the bounding volume used to find candidate face pairs.
func WithTreeKind(kind bvh.Kind) Option {
	return func(o *options) { o.kind = kind }
}

// WithLogger sets the logger the operation reports to.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Union returns the faces of a outside b and the faces of b outside a.
func Union(ctx context.Context, a, b *spatialmath.Mesh, opts ...Option) (*Result, error) {
	return Compose(ctx, OpUnion, a, b, opts...)
}

// Intersection returns the faces of a inside b and the faces of b inside a.
func Intersection(ctx context.Context, a, b *spatialmath.Mesh, opts ...Option) (*Result, error) {
	return Compose(ctx, OpIntersection, a, b, opts...)
}

// Difference returns the faces of a outside b and the faces of b inside a, reversed so that they
// face into the removed region.
func Difference(ctx context.Context, a, b *spatialmath.Mesh, opts ...Option) (*Result, error) {
	return Compose(ctx, OpDifference, a, b, opts...)
}

// side is one input of a composition.
type side struct {
	mesh  *spatialmath.Mesh
	tree  *bvh.Tree
	faces map[*spatialmath.Triangle]int
	// edgeFaces maps each undirected edge to the faces that share it.
	edgeFaces map[[2]int][]int
	// world holds the vertices mapped through the mesh pose, indexed so that no vertex of either
	// input shares an index with another.
	world []robust.Point
}

func newSide(m *spatialmath.Mesh, kind bvh.Kind, offset int, logger logging.Logger) (*side, error) {
	if m == nil {
		return nil, errors.New("cannot compose a nil mesh")
	}
	if !m.IsClosed() {
		return nil, errors.Errorf("mesh %q is not closed", m.Label())
	}
	tree, err := bvh.NewMeshTree(m, kind, bvh.WithLogger(logger))
	if err != nil {
		return nil, errors.Wrapf(err, "building tree for mesh %q", m.Label())
	}
	s := &side{
		mesh:      m,
		tree:      tree,
		faces:     make(map[*spatialmath.Triangle]int, len(m.Triangles())),
		edgeFaces: map[[2]int][]int{},
	}
	for i, tri := range m.Triangles() {
		s.faces[tri] = i
	}
	for i, f := range m.Faces() {
		for k := 0; k < 3; k++ {
			e := edgeKey(f[k], f[(k+1)%3])
			s.edgeFaces[e] = append(s.edgeFaces[e], i)
		}
	}
	for i, v := range m.Vertices() {
		s.world = append(s.world, robust.Point{Pos: spatialmath.TransformPoint(m.Pose(), v), Index: offset + i})
	}
	return s, nil
}

func edgeKey(u, v int) [2]int {
	if u > v {
		u, v = v, u
	}
	return [2]int{u, v}
}

func (s *side) triangle(face int) [3]robust.Point {
	f := s.mesh.Faces()[face]
	return [3]robust.Point{s.world[f[0]], s.world[f[1]], s.world[f[2]]}
}

// edgeCrossings returns the edges of the face edgeFace that cross the face of other.
func edgeCrossings(edges *side, edgeFace int, other *side, face int, fromB bool) []Crossing {
	var out []Crossing
	tri := other.triangle(face)
	f := edges.mesh.Faces()[edgeFace]
	for k := 0; k < 3; k++ {
		// both faces sharing an edge test it in the same direction
		e := edgeKey(f[k], f[(k+1)%3])
		hit := robust.ClassifySegmentTriangle(edges.world[e[0]], edges.world[e[1]], tri)
		if hit.Intersects() {
			out = append(out, Crossing{FromB: fromB, Edge: e, Face: face, Point: hit.Point})
		}
	}
	return out
}

// findCrossings tests the faces of every overlapping leaf pair in parallel.
func findCrossings(ctx context.Context, a, b *side) ([]Crossing, error) {
	pairs := a.tree.OverlappingLeafPairs(b.tree)
	var groups [][]Crossing
	err := utils.GroupWorkParallel(
		ctx,
		len(pairs),
		func(numGroups int) {
			groups = make([][]Crossing, numGroups)
		},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			var found []Crossing
			memberWork := func(memberNum, workNum int) {
				pair := pairs[workNum]
				for _, ea := range pair.A.Elements() {
					fa := a.faces[ea.(*spatialmath.Triangle)]
					for _, eb := range pair.B.Elements() {
						fb := b.faces[eb.(*spatialmath.Triangle)]
						found = append(found, edgeCrossings(a, fa, b, fb, false)...)
						found = append(found, edgeCrossings(b, fb, a, fa, true)...)
					}
				}
			}
			return memberWork, func() {
				groups[groupNum] = found
			}
		},
	)
	if err != nil {
		return nil, err
	}

	// an edge is tested once from each of its faces
	crossings := lo.UniqBy(lo.Flatten(groups), func(c Crossing) Crossing {
		return Crossing{FromB: c.FromB, Edge: c.Edge, Face: c.Face}
	})
	sort.Slice(crossings, func(i, j int) bool {
		ci, cj := crossings[i], crossings[j]
		if ci.FromB != cj.FromB {
			return !ci.FromB
		}
		if ci.Edge != cj.Edge {
			return ci.Edge[0] < cj.Edge[0] || (ci.Edge[0] == cj.Edge[0] && ci.Edge[1] < cj.Edge[1])
		}
		return ci.Face < cj.Face
	})
	return crossings, nil
}

// classify returns where the centroid of every face of s lies relative to the closed surface of other.
func classify(ctx context.Context, s, other *side) ([]bvh.InsideResult, error) {
	tris := s.mesh.Triangles()
	out := make([]bvh.InsideResult, len(tris))
	err := utils.ForEachParallel(ctx, len(tris), func(ctx context.Context, i int) error {
		tri := s.triangle(i)
		centroid := tri[0].Pos.Add(tri[1].Pos).Add(tri[2].Pos).Mul(1. / 3)
		out[i] = bvh.ClassifyPoint(other.tree, spatialmath.InverseTransformPoint(other.mesh.Pose(), centroid))
		return nil
	})
	return out, err
}

// Compose applies op to a and b. Both meshes must be closed and consistently oriented.
func Compose(ctx context.Context, op Op, a, b *spatialmath.Mesh, opts ...Option) (*Result, error) {
	o := options{kind: bvh.KindOBB, logger: logging.Global()}
	for _, opt := range opts {
		opt(&o)
	}
	if op < OpUnion || op > OpDifference {
		return nil, errors.Errorf("unknown boolean operation %v", op)
	}
	logger := o.logger.Sublogger("csg")

	sa, err := newSide(a, o.kind, 0, logger)
	if err != nil {
		return nil, err
	}
	sb, err := newSide(b, o.kind, len(a.Vertices()), logger)
	if err != nil {
		return nil, err
	}

	crossings, err := findCrossings(ctx, sa, sb)
	if err != nil {
		return nil, err
	}
	cutA, cutB := map[int]bool{}, map[int]bool{}
	for _, c := range crossings {
		edgeSide, edgeCut, faceCut := sa, cutA, cutB
		if c.FromB {
			edgeSide, edgeCut, faceCut = sb, cutB, cutA
		}
		for _, f := range edgeSide.edgeFaces[c.Edge] {
			edgeCut[f] = true
		}
		faceCut[c.Face] = true
	}

	sidesA, err := classify(ctx, sa, sb)
	if err != nil {
		return nil, err
	}
	sidesB, err := classify(ctx, sb, sa)
	if err != nil {
		return nil, err
	}

	keepA, keepB := bvh.Outside, bvh.Outside
	switch op {
	case OpIntersection:
		keepA, keepB = bvh.Inside, bvh.Inside
	case OpDifference:
		keepB = bvh.Inside
	}
	res := &Result{Crossings: crossings}
	res.FacesA, res.CutFacesA = selectFaces(sidesA, cutA, keepA)
	res.FacesB, res.CutFacesB = selectFaces(sidesB, cutB, keepB)

	tris := make([]*spatialmath.Triangle, 0, len(res.FacesA)+len(res.FacesB))
	for _, i := range res.FacesA {
		t := sa.triangle(i)
		tris = append(tris, spatialmath.NewTriangle(t[0].Pos, t[1].Pos, t[2].Pos))
	}
	for _, i := range res.FacesB {
		t := sb.triangle(i)
		if op == OpDifference {
			t[1], t[2] = t[2], t[1]
		}
		tris = append(tris, spatialmath.NewTriangle(t[0].Pos, t[1].Pos, t[2].Pos))
	}
	res.Mesh = spatialmath.NewMesh(spatialmath.NewZeroPose(), tris, a.Label()+" "+op.String()+" "+b.Label())

	logger.Debugw("composed meshes",
		"op", op.String(),
		"crossings", len(crossings),
		"faces_a", len(res.FacesA),
		"faces_b", len(res.FacesB),
		"cut_a", len(res.CutFacesA),
		"cut_b", len(res.CutFacesB),
	)
	return res, nil
}

// selectFaces splits faces into those kept whole and those that meet the other surface.
func selectFaces(sides []bvh.InsideResult, cut map[int]bool, keep bvh.InsideResult) ([]int, []int) {
	faces := lo.Range(len(sides))
	onSurface := lo.Filter(faces, func(i, _ int) bool { return cut[i] || sides[i] == bvh.OnSurface })
	kept := lo.Filter(faces, func(i, _ int) bool { return !cut[i] && sides[i] == keep })
	return kept, onSurface
}
