package bvh

import (
	"container/heap"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/bvh/robust"
)

const (
	// QueryTailIndex is the vertex index given to the start of a query segment in exact tests.
	// Mesh vertex indices should be non-negative, or -1 for unindexed triangles.
	QueryTailIndex = -2
	// QueryHeadIndex is the vertex index given to the end of a query segment in exact tests.
	QueryHeadIndex = -3
)

// robustTriangle returns the element as input to the exact predicates if it is a triangle.
func robustTriangle(e Boundable) ([3]robust.Point, bool) {
	tri, ok := e.(TriangleElement)
	if !ok {
		return [3]robust.Point{}, false
	}
	v := tri.Vertices()
	idx := tri.VertexIndices()
	return [3]robust.Point{{Pos: v[0], Index: idx[0]}, {Pos: v[1], Index: idx[1]}, {Pos: v[2], Index: idx[2]}}, true
}

// NearestAlongRay returns the first triangle touched by the ray origin + s*dir, s >= 0, and the
// ray parameter s of the contact. Elements that do not implement TriangleElement are ignored.
func (t *Tree) NearestAlongRay(origin, dir r3.Vector) (Boundable, float64, bool) {
	if t.root < 0 || dir.Norm2() == 0 {
		return nil, 0, false
	}
	_, hi, ok := t.nodes[t.root].volume.IntersectsLine(origin, dir, 0, math.Inf(1))
	if !ok {
		return nil, 0, false
	}
	// extend past the root bound so no contact is at the segment's end by construction
	far := 2*hi + 1
	e, s, ok := t.NearestAlongSegment(origin, origin.Add(dir.Mul(far)))
	return e, s * far, ok
}

// NearestAlongSegment returns the first triangle touched by the segment p0-p1, and the position of
// the contact along it, 0 at p0 and 1 at p1. Contacts are decided exactly: grazing an edge or a
// vertex counts.
func (t *Tree) NearestAlongSegment(p0, p1 r3.Vector) (Boundable, float64, bool) {
	if t.root < 0 {
		return nil, 0, false
	}
	dir := p1.Sub(p0)
	tail := robust.Point{Pos: p0, Index: QueryTailIndex}
	head := robust.Point{Pos: p1, Index: QueryHeadIndex}

	var best Boundable
	bestParam := math.Inf(1)
	pq := &nodeQueue{{idx: t.root, dist: t.nodes[t.root].volume.DistanceAlongLine(p0, dir, 0, 1)}}
	seq := 1
	for pq.Len() > 0 {
		//nolint:forcetypeassert
		item := heap.Pop(pq).(queueItem)
		if math.IsInf(item.dist, 1) || item.dist > bestParam {
			break
		}
		nd := &t.nodes[item.idx]
		if !nd.isLeaf() {
			for _, c := range nd.children {
				heap.Push(pq, queueItem{idx: c, dist: t.nodes[c].volume.DistanceAlongLine(p0, dir, 0, 1), seq: seq})
				seq++
			}
			continue
		}
		for _, e := range t.elems[nd.lo:nd.hi] {
			tri, ok := robustTriangle(e)
			if !ok {
				continue
			}
			res := robust.ClassifySegmentTriangle(tail, head, tri)
			if res.State != robust.Disjoint && res.Param < bestParam {
				best, bestParam = e, res.Param
			}
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestParam, true
}

// CountCrossings returns the number of triangles the segment p0-p1 crosses after exact
// tie-breaking, where p0 and p1 carry the given vertex indices. For a closed, consistently
// oriented mesh with distinct vertex indices the count is odd exactly when p0 and p1 are on
// different sides of the surface.
func (t *Tree) CountCrossings(p0, p1 robust.Point) int {
	count := 0
	for _, leaf := range t.IntersectLineSegment(p0.Pos, p1.Pos) {
		for _, e := range leaf.Elements() {
			if tri, ok := robustTriangle(e); ok && robust.Crosses(p0, p1, tri) {
				count++
			}
		}
	}
	return count
}
