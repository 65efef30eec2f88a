package bvh

import (
	"container/heap"
	"math"
	"sort"

	"github.com/golang/geo/r3"
)

// NearestResult is an element together with its closest point to a query.
type NearestResult struct {
	Element  Boundable
	Point    r3.Vector
	Distance float64
}

type queueItem struct {
	idx  int
	dist float64
	seq  int
}

// nodeQueue is a min-heap of nodes keyed by a lower bound on their distance to the query, with
// insertion order breaking ties.
type nodeQueue []queueItem

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].seq < q[j].seq
}

func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *nodeQueue) Push(x interface{}) {
	//nolint:forcetypeassert
	*q = append(*q, x.(queueItem))
}

func (q *nodeQueue) Pop() interface{} {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}

// nearestSearch visits nodes in order of increasing lower bound distance to q, calling visit on
// the elements of each leaf, until the next node's bound exceeds the value returned by bound.
func (t *Tree) nearestSearch(q r3.Vector, bound func() float64, visit func(e Boundable)) {
	if t.root < 0 {
		return
	}
	pq := &nodeQueue{{idx: t.root, dist: t.nodes[t.root].volume.DistanceToPoint(q)}}
	seq := 1
	for pq.Len() > 0 {
		//nolint:forcetypeassert
		item := heap.Pop(pq).(queueItem)
		if item.dist > bound() {
			return
		}
		nd := &t.nodes[item.idx]
		if nd.isLeaf() {
			for _, e := range t.elems[nd.lo:nd.hi] {
				visit(e)
			}
			continue
		}
		for _, c := range nd.children {
			heap.Push(pq, queueItem{idx: c, dist: t.nodes[c].volume.DistanceToPoint(q), seq: seq})
			seq++
		}
	}
}

// NearestPoint returns the element closest to q and the closest point on it. Only elements that
// implement PointProjector are considered. Ties go to the element visited first. ok is false if
// the tree has no such element.
func (t *Tree) NearestPoint(q r3.Vector) (Boundable, r3.Vector, bool) {
	var (
		best   Boundable
		bestPt r3.Vector
	)
	bestDist := math.Inf(1)
	t.nearestSearch(q, func() float64 { return bestDist }, func(e Boundable) {
		proj, ok := e.(PointProjector)
		if !ok {
			return
		}
		pt := proj.ClosestPointToPoint(q)
		if d := pt.Distance(q); d < bestDist {
			best, bestPt, bestDist = e, pt, d
		}
	})
	return best, bestPt, best != nil
}

// NearestK returns up to k elements closest to q, nearest first.
func (t *Tree) NearestK(q r3.Vector, k int) []NearestResult {
	if k <= 0 {
		return nil
	}
	results := make([]NearestResult, 0, k+1)
	bound := func() float64 {
		if len(results) < k {
			return math.Inf(1)
		}
		return results[len(results)-1].Distance
	}
	t.nearestSearch(q, bound, func(e Boundable) {
		proj, ok := e.(PointProjector)
		if !ok {
			return
		}
		pt := proj.ClosestPointToPoint(q)
		d := pt.Distance(q)
		if len(results) == k && d >= bound() {
			return
		}
		i := sort.Search(len(results), func(i int) bool { return results[i].Distance > d })
		results = append(results, NearestResult{})
		copy(results[i+1:], results[i:])
		results[i] = NearestResult{Element: e, Point: pt, Distance: d}
		if len(results) > k {
			results = results[:k]
		}
	})
	return results
}
