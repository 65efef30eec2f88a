package bvh

import (
	"math"

	"github.com/golang/geo/r3"
)

// collectLeaves returns, in depth-first order, the leaves reached by descending only into nodes
// whose volume satisfies keep.
func (t *Tree) collectLeaves(keep func(Volume) bool) []*Node {
	if t.root < 0 {
		return nil
	}
	var out []*Node
	stack := []int{t.root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := &t.nodes[idx]
		if !keep(nd.volume) {
			continue
		}
		if nd.isLeaf() {
			out = append(out, t.handle(idx))
			continue
		}
		for i := len(nd.children) - 1; i >= 0; i-- {
			stack = append(stack, nd.children[i])
		}
	}
	return out
}

// ElementsInSphere returns the leaves whose bounds intersect the sphere. The caller tests the
// leaves' elements exactly.
func (t *Tree) ElementsInSphere(center r3.Vector, r float64) []*Node {
	return t.collectLeaves(func(v Volume) bool { return v.IntersectsSphere(center, r) })
}

// IntersectPoint returns the leaves whose bounds contain pt.
func (t *Tree) IntersectPoint(pt r3.Vector) []*Node {
	return t.collectLeaves(func(v Volume) bool { return v.Contains(pt) })
}

// IntersectPlane returns the leaves whose bounds meet the plane n.x = d.
func (t *Tree) IntersectPlane(n r3.Vector, d float64) []*Node {
	return t.collectLeaves(func(v Volume) bool { return v.IntersectsPlane(n, d) })
}

// IntersectLine returns the leaves whose bounds meet the line origin + s*dir for s in [lo, hi].
// Use -Inf and +Inf for an unbounded line.
func (t *Tree) IntersectLine(origin, dir r3.Vector, lo, hi float64) []*Node {
	return t.collectLeaves(func(v Volume) bool {
		_, _, ok := v.IntersectsLine(origin, dir, lo, hi)
		return ok
	})
}

// IntersectLineSegment returns the leaves whose bounds meet the segment p0-p1.
func (t *Tree) IntersectLineSegment(p0, p1 r3.Vector) []*Node {
	return t.IntersectLine(p0, p1.Sub(p0), 0, 1)
}

// IntersectRay returns the leaves whose bounds meet the ray origin + s*dir, s >= 0.
func (t *Tree) IntersectRay(origin, dir r3.Vector) []*Node {
	return t.IntersectLine(origin, dir, 0, math.Inf(1))
}

// PlaneSlicer is implemented by elements that can report the segment in which they meet a plane.
type PlaneSlicer interface {
	PlaneSegment(n r3.Vector, d float64) (r3.Vector, r3.Vector, bool)
}

// PlaneCut is the segment in which one element meets a plane. The endpoints coincide when the
// element only touches the plane.
type PlaneCut struct {
	Element Boundable
	P0, P1  r3.Vector
}

// SlicePlane returns the segments in which the elements meet the plane n.x = d, in leaf order.
// Elements that do not implement PlaneSlicer are skipped.
func (t *Tree) SlicePlane(n r3.Vector, d float64) []PlaneCut {
	var out []PlaneCut
	for _, leaf := range t.IntersectPlane(n, d) {
		for _, e := range leaf.Elements() {
			s, ok := e.(PlaneSlicer)
			if !ok {
				continue
			}
			if p0, p1, ok := s.PlaneSegment(n, d); ok {
				out = append(out, PlaneCut{Element: e, P0: p0, P1: p1})
			}
		}
	}
	return out
}
