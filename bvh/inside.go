package bvh

import (
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/bvh/robust"
)

// InsideResult classifies a point against a closed surface.
type InsideResult int

const (
	// Outside means the point is outside the surface.
	Outside InsideResult = iota
	// Inside means the point is enclosed by the surface.
	Inside
	// OnSurface means the point lies exactly on one of the surface's triangles.
	OnSurface
)

func (r InsideResult) String() string {
	switch r {
	case Outside:
		return "outside"
	case Inside:
		return "inside"
	case OnSurface:
		return "on-surface"
	}
	return fmt.Sprintf("InsideResult(%d)", int(r))
}

// parityDirection is the direction of the rays cast by inside tests. Any direction gives the
// same answer; one that is not axis aligned keeps the number of leaves visited small on meshes
// with axis aligned features.
var parityDirection = r3.Vector{X: 0.5773502691896258, Y: 0.6123724356957945, Z: 0.5400617248673217}

// exitPoint returns a point outside the tree's root bound along parityDirection from pt.
func (t *Tree) exitPoint(pt r3.Vector) r3.Vector {
	reach := pt.Distance(t.Center()) + 2*t.Radius() + 1
	return pt.Add(parityDirection.Mul(reach))
}

// IsInsideMesh reports whether pt is enclosed by the closed, consistently oriented triangle mesh
// in the tree, by counting the exact crossings of a segment from pt to outside the mesh. Points
// exactly on the surface are resolved consistently by the symbolic perturbation.
func IsInsideMesh(t *Tree, pt r3.Vector) bool {
	if t.root < 0 || !t.nodes[t.root].volume.Contains(pt) {
		return false
	}
	n := t.CountCrossings(
		robust.Point{Pos: pt, Index: QueryTailIndex},
		robust.Point{Pos: t.exitPoint(pt), Index: QueryHeadIndex},
	)
	return n%2 == 1
}

// ClassifyPoint returns whether pt is exactly on a triangle of the tree's closed mesh, and
// otherwise whether it is inside or outside.
func ClassifyPoint(t *Tree, pt r3.Vector) InsideResult {
	p := robust.Point{Pos: pt, Index: QueryTailIndex}
	for _, leaf := range t.IntersectPoint(pt) {
		for _, e := range leaf.Elements() {
			tri, ok := robustTriangle(e)
			if !ok {
				continue
			}
			if robust.ClassifySegmentTriangle(p, p, tri).State != robust.Disjoint {
				return OnSurface
			}
		}
	}
	if IsInsideMesh(t, pt) {
		return Inside
	}
	return Outside
}
