// Package collision finds contacts between triangle meshes using bounding volume trees and exact
// segment-triangle predicates.
package collision

import (
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/bvh/bvh"
	"go.viam.com/bvh/robust"
	"go.viam.com/bvh/spatialmath"
)

// Contact is a pair of intersecting faces, one from each mesh.
type Contact struct {
	FaceA, FaceB int
	// Points are the world positions where an edge of either face meets the other face.
	Points []r3.Vector
}

// Body is a mesh with a tree built over its faces. The tree is built once in the mesh's frame and
// reused as the body moves.
type Body struct {
	mesh  *spatialmath.Mesh
	tree  *bvh.Tree
	pose  spatialmath.Pose
	faces map[*spatialmath.Triangle]int
	// world holds every face mapped through pose.
	world [][3]robust.Point
}

// NewBody builds a tree of the given kind over the mesh and places the body at the mesh pose.
func NewBody(m *spatialmath.Mesh, kind bvh.Kind, opts ...bvh.Option) (*Body, error) {
	if m == nil {
		return nil, errors.New("cannot create a collision body from a nil mesh")
	}
	tree, err := bvh.NewMeshTree(m, kind, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "building tree for mesh %q", m.Label())
	}
	b := &Body{
		mesh:  m,
		tree:  tree,
		faces: make(map[*spatialmath.Triangle]int, len(m.Triangles())),
	}
	for i, tri := range m.Triangles() {
		b.faces[tri] = i
	}
	b.SetPose(m.Pose())
	return b, nil
}

// Mesh returns the mesh the body was built from.
func (b *Body) Mesh() *spatialmath.Mesh {
	return b.mesh
}

// Tree returns the tree over the body's faces.
func (b *Body) Tree() *bvh.Tree {
	return b.tree
}

// Pose returns the body's current mesh-to-world transform.
func (b *Body) Pose() spatialmath.Pose {
	return b.pose
}

// SetPose moves the body without rebuilding its tree.
func (b *Body) SetPose(pose spatialmath.Pose) {
	b.pose = pose
	b.tree.SetToWorld(pose)
	b.world = make([][3]robust.Point, len(b.mesh.Triangles()))
	for i, tri := range b.mesh.Triangles() {
		v := tri.Vertices()
		idx := tri.VertexIndices()
		for k := 0; k < 3; k++ {
			b.world[i][k] = robust.Point{Pos: spatialmath.TransformPoint(pose, v[k]), Index: idx[k]}
		}
	}
}

// Contacts returns every pair of intersecting faces of a and b, ordered by face indices. Faces that
// only touch count as intersecting.
func Contacts(a, b *Body) []Contact {
	return contacts(a, b, false)
}

// Collide reports whether any face of a intersects any face of b.
func Collide(a, b *Body) bool {
	return len(contacts(a, b, true)) > 0
}

func contacts(a, b *Body, first bool) []Contact {
	// vertices of b are numbered after those of a so that every vertex has a distinct index
	offset := len(a.mesh.Vertices())
	var out []Contact
	for _, pair := range a.tree.OverlappingLeafPairs(b.tree) {
		for _, ea := range pair.A.Elements() {
			i := a.faces[ea.(*spatialmath.Triangle)]
			for _, eb := range pair.B.Elements() {
				j := b.faces[eb.(*spatialmath.Triangle)]
				pts := facePoints(a.world[i], shiftIndices(b.world[j], offset))
				if len(pts) == 0 {
					continue
				}
				out = append(out, Contact{FaceA: i, FaceB: j, Points: pts})
				if first {
					return out
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FaceA != out[j].FaceA {
			return out[i].FaceA < out[j].FaceA
		}
		return out[i].FaceB < out[j].FaceB
	})
	return out
}

func shiftIndices(tri [3]robust.Point, offset int) [3]robust.Point {
	for k := range tri {
		if tri[k].Index >= 0 {
			tri[k].Index += offset
		}
	}
	return tri
}

// facePoints returns the distinct points where an edge of either triangle meets the other.
func facePoints(ta, tb [3]robust.Point) []r3.Vector {
	var pts []r3.Vector
	for _, pair := range [2][2][3]robust.Point{{ta, tb}, {tb, ta}} {
		edges, tri := pair[0], pair[1]
		for k := 0; k < 3; k++ {
			hit := robust.ClassifySegmentTriangle(edges[k], edges[(k+1)%3], tri)
			if hit.State != robust.Disjoint {
				pts = append(pts, hit.Point)
			}
		}
	}
	return lo.Uniq(pts)
}

// MeshContacts builds oriented box trees over both meshes and returns their face contacts.
func MeshContacts(a, b *spatialmath.Mesh, opts ...bvh.Option) ([]Contact, error) {
	bodyA, bodyB, err := bodies(a, b, opts)
	if err != nil {
		return nil, err
	}
	return Contacts(bodyA, bodyB), nil
}

// MeshesCollide reports whether two meshes placed at their poses share a point.
func MeshesCollide(a, b *spatialmath.Mesh, opts ...bvh.Option) (bool, error) {
	bodyA, bodyB, err := bodies(a, b, opts)
	if err != nil {
		return false, err
	}
	return Collide(bodyA, bodyB), nil
}

func bodies(a, b *spatialmath.Mesh, opts []bvh.Option) (*Body, *Body, error) {
	bodyA, err := NewBody(a, bvh.KindOBB, opts...)
	if err != nil {
		return nil, nil, err
	}
	bodyB, err := NewBody(b, bvh.KindOBB, opts...)
	if err != nil {
		return nil, nil, err
	}
	return bodyA, bodyB, nil
}

// BoxesCollide reports whether two boxes, each given by its center pose and half-widths, share a point.
func BoxesCollide(poseA spatialmath.Pose, halfA r3.Vector, poseB spatialmath.Pose, halfB r3.Vector) bool {
	return bvh.NewOBB(poseA, halfA).Overlaps(bvh.NewOBB(poseB, halfB))
}
