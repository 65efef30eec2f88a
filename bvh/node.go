package bvh

// node is an arena entry. A node is a leaf exactly when it has no children; every node keeps the
// contiguous span of the tree's element slice that lies under it.
type node struct {
	volume   Volume
	children []int
	parent   int
	lo, hi   int
	number   int
	depth    int
}

func (n *node) isLeaf() bool {
	return len(n.children) == 0
}

// Node is a read-only handle to a node of a Tree.
type Node struct {
	tree *Tree
	idx  int
}

func (n *Node) node() *node {
	return &n.tree.nodes[n.idx]
}

// Number returns the depth-first number assigned to the node after the last build.
func (n *Node) Number() int {
	return n.node().number
}

// IsLeaf reports whether the node owns elements.
func (n *Node) IsLeaf() bool {
	return n.node().isLeaf()
}

// Elements returns the elements owned by a leaf, or nil for an internal node.
func (n *Node) Elements() []Boundable {
	nd := n.node()
	if !nd.isLeaf() {
		return nil
	}
	return n.tree.elems[nd.lo:nd.hi:nd.hi]
}

// NumElements returns the number of elements below the node.
func (n *Node) NumElements() int {
	nd := n.node()
	return nd.hi - nd.lo
}

// Children returns the node's children in order.
func (n *Node) Children() []*Node {
	nd := n.node()
	out := make([]*Node, 0, len(nd.children))
	for _, c := range nd.children {
		out = append(out, n.tree.handle(c))
	}
	return out
}

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node {
	p := n.node().parent
	if p < 0 {
		return nil
	}
	return n.tree.handle(p)
}

// Volume returns the node's bounding shape in the tree's local frame.
func (n *Node) Volume() Volume {
	return n.node().volume
}

// Depth returns the node's distance from the root.
func (n *Node) Depth() int {
	return n.node().depth
}

// NodePair is a pair of overlapping leaves, one from each tree.
type NodePair struct {
	A, B *Node
}
