package bvh

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/bvh/spatialmath"
	"go.viam.com/bvh/utils"
)

const parallelAxisEps = 1e-6

// OverlappingLeafPairs returns every pair of leaves, one from t and one from other, whose bounds
// overlap once both trees are placed by their local-to-world transforms. The result is a superset
// of the leaf pairs whose elements intersect; the caller tests the elements exactly.
func (t *Tree) OverlappingLeafPairs(other *Tree) []NodePair {
	if t.root < 0 || other.root < 0 {
		return nil
	}
	// maps other's local frame into t's local frame
	rel := spatialmath.PoseBetween(t.toWorld, other.toWorld)
	identity := spatialmath.IsIdentity(rel)

	var out []NodePair
	stack := [][2]int{{t.root, other.root}}
	for len(stack) > 0 {
		pair := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		a, b := &t.nodes[pair[0]], &other.nodes[pair[1]]
		if !volumesOverlap(a.volume, b.volume, rel, identity) {
			continue
		}
		switch {
		case a.isLeaf() && b.isLeaf():
			out = append(out, NodePair{A: t.handle(pair[0]), B: other.handle(pair[1])})
		case b.isLeaf() || (!a.isLeaf() && a.volume.Radius() >= b.volume.Radius()):
			for i := len(a.children) - 1; i >= 0; i-- {
				stack = append(stack, [2]int{a.children[i], pair[1]})
			}
		default:
			for i := len(b.children) - 1; i >= 0; i-- {
				stack = append(stack, [2]int{pair[0], b.children[i]})
			}
		}
	}
	return out
}

// volumesOverlap tests a against b after b is moved by rel into a's frame.
func volumesOverlap(a, b Volume, rel spatialmath.Pose, identity bool) bool {
	aBox, aOK := a.(*AABB)
	bBox, bOK := b.(*AABB)
	if aOK && bOK {
		if identity {
			return aabbOverlap(aBox.min, aBox.max, bBox.min, bBox.max)
		}
		min, max := transformAABB(bBox.min, bBox.max, rel)
		if !aabbOverlap(aBox.min, aBox.max, min, max) {
			return false
		}
	}
	return obbOverlap(asOBB(a), asOBB(b).transform(rel))
}

func asOBB(v Volume) *OBB {
	switch box := v.(type) {
	case *OBB:
		return box
	case *AABB:
		return obbFromAABB(box)
	}
	min, max := spatialmath.EmptyBounds()
	v.UpdateBounds(&min, &max)
	return obbFromAABB(NewAABB(min, max))
}

// Overlaps reports whether two boxes expressed in the same frame share a point.
func (b *OBB) Overlaps(other *OBB) bool {
	return obbOverlap(b, other)
}

// obbOverlap runs the separating axis test over the 15 candidate axes. Touching boxes overlap.
func obbOverlap(a, b *OBB) bool {
	centerDist := b.center.Sub(a.center)
	if centerDist.Norm() > a.Radius()+b.Radius() {
		return false
	}
	rmA, rmB := a.rot, b.rot
	hwA := [3]float64{a.halfWidths.X, a.halfWidths.Y, a.halfWidths.Z}
	hwB := [3]float64{b.halfWidths.X, b.halfWidths.Y, b.halfWidths.Z}
	for i := 0; i < 3; i++ {
		if separatingAxisTest(centerDist, rmA.Col(i), hwA, hwB, rmA, rmB) > 0 {
			return false
		}
		if separatingAxisTest(centerDist, rmB.Col(i), hwA, hwB, rmA, rmB) > 0 {
			return false
		}
		for j := 0; j < 3; j++ {
			crossProductPlane := rmA.Col(i).Cross(rmB.Col(j))
			// parallel edges are covered by the face axes
			if utils.Float64AlmostEqual(crossProductPlane.Norm(), 0, parallelAxisEps) {
				continue
			}
			if separatingAxisTest(centerDist, crossProductPlane.Normalize(), hwA, hwB, rmA, rmB) > 0 {
				return false
			}
		}
	}
	return true
}

// separatingAxisTest returns the gap between the projections of two boxes onto an axis; a
// positive gap separates them.
func separatingAxisTest(positionDelta, plane r3.Vector, halfSizeA, halfSizeB [3]float64, rmA, rmB *spatialmath.RotationMatrix) float64 {
	sum := math.Abs(positionDelta.Dot(plane))
	for i := 0; i < 3; i++ {
		sum -= math.Abs(rmA.Col(i).Mul(halfSizeA[i]).Dot(plane))
		sum -= math.Abs(rmB.Col(i).Mul(halfSizeB[i]).Dot(plane))
	}
	return sum
}
