package bvh

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/bvh/spatialmath"
)

// maxSplitAttempts bounds how many OBB axes are tried before a node is made a leaf.
const maxSplitAttempts = 3

// Build discards the tree's structure and builds a new one over elements, top down. Nodes with
// at most MaxLeafElements elements become leaves; larger ones are split by a plane through their
// centroids until a split leaves both sides non-empty. An empty element set gives a tree with no
// root.
func (t *Tree) Build(elements []Boundable) error {
	t.nodes = nil
	t.order = nil
	t.root = -1
	t.elems = append([]Boundable(nil), elements...)
	t.margin = t.opts.margin
	if len(t.elems) == 0 {
		if t.margin == DefaultMargin {
			t.margin = 0
		}
		t.logger.Debugw("built empty tree")
		return nil
	}
	if t.margin == DefaultMargin {
		t.margin = relativeMargin * elementRadius(t.elems)
	}

	t.root = t.addNode(-1, 0, len(t.elems))
	stack := []int{t.root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := t.setVolume(idx); err != nil {
			t.nodes, t.elems, t.root = nil, nil, -1
			return errors.Wrapf(err, "building %v tree", t.kind)
		}
		lo, hi := t.nodes[idx].lo, t.nodes[idx].hi
		if hi-lo <= t.opts.maxLeafElements {
			continue
		}
		mid, ok := t.split(idx)
		if !ok {
			continue
		}
		lower := t.addNode(idx, lo, mid)
		upper := t.addNode(idx, mid, hi)
		t.nodes[idx].children = []int{lower, upper}
		stack = append(stack, upper, lower)
	}
	t.NumberNodes()
	t.logger.Debugw("built tree",
		"elements", len(t.elems),
		"nodes", len(t.nodes),
		"depth", t.Depth(),
		"margin", t.margin,
	)
	return nil
}

func (t *Tree) addNode(parent, lo, hi int) int {
	depth := 0
	if parent >= 0 {
		depth = t.nodes[parent].depth + 1
	}
	t.nodes = append(t.nodes, node{parent: parent, lo: lo, hi: hi, depth: depth})
	return len(t.nodes) - 1
}

func (t *Tree) setVolume(idx int) error {
	nd := &t.nodes[idx]
	span := t.elems[nd.lo:nd.hi]
	switch t.kind {
	case KindOBB:
		box := &OBB{}
		if err := box.set(span, t.margin, t.opts.obbMethod); err != nil {
			return err
		}
		nd.volume = box
	default:
		box := &AABB{}
		box.set(span, t.margin)
		nd.volume = box
	}
	return nil
}

// split partitions the node's elements so that the ones below the split plane come first, and
// returns the index of the first element above it.
func (t *Tree) split(idx int) (int, bool) {
	nd := &t.nodes[idx]
	span := t.elems[nd.lo:nd.hi]
	cents := make([]r3.Vector, len(span))
	for i, e := range span {
		cents[i] = e.Centroid()
	}

	if box, ok := nd.volume.(*OBB); ok {
		center := box.Center()
		axes := box.SortedAxes()
		for _, axis := range axes[:maxSplitAttempts] {
			mid := partition(span, cents, func(c r3.Vector) bool { return c.Sub(center).Dot(axis) >= 0 })
			if mid > 0 && mid < len(span) {
				return nd.lo + mid, true
			}
		}
		return 0, false
	}

	cmin, cmax := spatialmath.EmptyBounds()
	var sum r3.Vector
	for _, c := range cents {
		spatialmath.UpdateBounds(&cmin, &cmax, c)
		sum = sum.Add(c)
	}
	spread := cmax.Sub(cmin)
	axis := 0
	for i := 1; i < 3; i++ {
		if spatialmath.VectorComponent(spread, i) > spatialmath.VectorComponent(spread, axis) {
			axis = i
		}
	}
	if spatialmath.VectorComponent(spread, axis) == 0 {
		// all centroids coincide, no plane separates them
		return 0, false
	}
	mean := spatialmath.VectorComponent(sum, axis) / float64(len(span))
	mid := partition(span, cents, func(c r3.Vector) bool { return spatialmath.VectorComponent(c, axis) >= mean })
	switch mid {
	case 0:
		mid = 1
	case len(span):
		mid = len(span) - 1
	}
	return nd.lo + mid, true
}

// partition stably reorders span and cents so that elements whose centroid is not upper come
// first, and returns their count.
func partition(span []Boundable, cents []r3.Vector, upper func(r3.Vector) bool) int {
	lowerElems := make([]Boundable, 0, len(span))
	upperElems := make([]Boundable, 0, len(span))
	lowerCents := make([]r3.Vector, 0, len(span))
	upperCents := make([]r3.Vector, 0, len(span))
	for i, c := range cents {
		if upper(c) {
			upperElems = append(upperElems, span[i])
			upperCents = append(upperCents, c)
		} else {
			lowerElems = append(lowerElems, span[i])
			lowerCents = append(lowerCents, c)
		}
	}
	n := copy(span, lowerElems)
	copy(span[n:], upperElems)
	copy(cents, lowerCents)
	copy(cents[n:], upperCents)
	return n
}

// elementRadius returns half the diagonal of the elements' axis aligned bounds.
func elementRadius(elements []Boundable) float64 {
	min, max := spatialmath.EmptyBounds()
	for _, e := range elements {
		e.UpdateBounds(&min, &max)
	}
	return max.Sub(min).Norm() / 2
}
