package bvh

// Update refits every bound to the current positions of the elements, bottom up, without changing
// which elements are under which node. It must only be called when the elements have moved; if
// elements were added or removed the tree has to be rebuilt.
//
// Axis aligned leaves are rebound from their elements and internal boxes become the union of their
// children, which equals a fresh bound of the same elements, so an AABB refit takes time linear in
// the number of nodes. Oriented boxes keep their axes and refit their center and half-widths to
// every point below them, which takes time proportional to the elements times the tree depth. An
// oriented parent encloses those points but is not guaranteed to enclose its children's boxes.
func (t *Tree) Update() {
	// children are always stored after their parent
	for idx := len(t.nodes) - 1; idx >= 0; idx-- {
		nd := &t.nodes[idx]
		span := t.elems[nd.lo:nd.hi]
		switch v := nd.volume.(type) {
		case *AABB:
			if nd.isLeaf() {
				v.set(span, t.margin)
				continue
			}
			boxes := make([]*AABB, 0, len(nd.children))
			for _, c := range nd.children {
				//nolint:forcetypeassert
				boxes = append(boxes, t.nodes[c].volume.(*AABB))
			}
			v.setUnion(boxes...)
		case *OBB:
			v.refit(span, t.margin)
		}
	}
	t.logger.Debugw("refit tree", "nodes", len(t.nodes))
}
