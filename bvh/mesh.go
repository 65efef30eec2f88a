package bvh

import (
	"go.viam.com/bvh/spatialmath"
)

// TriangleElements returns the triangles as tree elements.
func TriangleElements(tris []*spatialmath.Triangle) []Boundable {
	out := make([]Boundable, 0, len(tris))
	for _, tri := range tris {
		out = append(out, tri)
	}
	return out
}

// SegmentElements returns the segments as tree elements.
func SegmentElements(segs []*spatialmath.Segment) []Boundable {
	out := make([]Boundable, 0, len(segs))
	for _, s := range segs {
		out = append(out, s)
	}
	return out
}

// VertexElements returns the vertices as tree elements.
func VertexElements(verts []*spatialmath.Vertex) []Boundable {
	out := make([]Boundable, 0, len(verts))
	for _, v := range verts {
		out = append(out, v)
	}
	return out
}

// NewMeshTree builds a tree of the given kind over the mesh's faces in the mesh's local frame, with
// the mesh pose as the tree's local-to-world transform.
func NewMeshTree(m *spatialmath.Mesh, kind Kind, opts ...Option) (*Tree, error) {
	elements := TriangleElements(m.Triangles())
	var (
		t   *Tree
		err error
	)
	if kind == KindOBB {
		t, err = NewOBBTree(elements, opts...)
	} else {
		t, err = NewAABBTree(elements, opts...)
	}
	if err != nil {
		return nil, err
	}
	t.SetToWorld(m.Pose())
	return t, nil
}
