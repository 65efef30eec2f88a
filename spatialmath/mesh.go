package spatialmath

import (
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/bvh/utils"
)

// Mesh is a set of indexed triangles placed at a pose. Triangle points are in the frame of the mesh,
// like the corners of a box, and the pose maps them into the parent frame.
type Mesh struct {
	pose      Pose
	vertices  []r3.Vector
	faces     [][3]int
	triangles []*Triangle
	label     string
}

// NewMesh creates a mesh from loose triangles. Coincident vertex positions are welded into a single
// indexed vertex so that neighbouring faces share vertex indices.
func NewMesh(pose Pose, triangles []*Triangle, label string) *Mesh {
	lookup := make(map[r3.Vector]int, len(triangles))
	vertices := make([]r3.Vector, 0, len(triangles))
	faces := make([][3]int, 0, len(triangles))
	for _, tri := range triangles {
		var face [3]int
		for i, pt := range tri.Vertices() {
			idx, ok := lookup[pt]
			if !ok {
				idx = len(vertices)
				lookup[pt] = idx
				vertices = append(vertices, pt)
			}
			face[i] = idx
		}
		faces = append(faces, face)
	}
	m, _ := NewMeshFromFaces(pose, vertices, faces, label)
	return m
}

// NewMeshFromFaces creates a mesh from a vertex array and faces indexing into it.
func NewMeshFromFaces(pose Pose, vertices []r3.Vector, faces [][3]int, label string) (*Mesh, error) {
	if pose == nil {
		pose = NewZeroPose()
	}
	triangles := make([]*Triangle, 0, len(faces))
	for fi, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(vertices) {
				return nil, errors.Wrapf(utils.NewIndexOutOfRangeError("vertex", idx, len(vertices)), "face %d", fi)
			}
		}
		triangles = append(triangles, NewIndexedTriangle(vertices[f[0]], vertices[f[1]], vertices[f[2]], f[0], f[1], f[2]))
	}
	return &Mesh{
		pose:      pose,
		vertices:  vertices,
		faces:     faces,
		triangles: triangles,
		label:     label,
	}, nil
}

// Pose returns the pose of the mesh.
func (m *Mesh) Pose() Pose {
	return m.pose
}

// Label returns the label of the mesh.
func (m *Mesh) Label() string {
	return m.label
}

// Triangles returns the triangles of the mesh in the mesh's local frame.
func (m *Mesh) Triangles() []*Triangle {
	return m.triangles
}

// Vertices returns the vertex positions in the mesh's local frame.
func (m *Mesh) Vertices() []r3.Vector {
	return m.vertices
}

// Faces returns the vertex indices of each face.
func (m *Mesh) Faces() [][3]int {
	return m.faces
}

// Transform premultiplies the mesh pose with a transform.
func (m *Mesh) Transform(pose Pose) *Mesh {
	return &Mesh{
		pose:      Compose(pose, m.pose),
		vertices:  m.vertices,
		faces:     m.faces,
		triangles: m.triangles,
		label:     m.label,
	}
}

// WorldTriangles returns the triangles of the mesh mapped through the mesh pose.
func (m *Mesh) WorldTriangles() []*Triangle {
	if IsIdentity(m.pose) {
		return m.triangles
	}
	out := make([]*Triangle, 0, len(m.triangles))
	for _, tri := range m.triangles {
		out = append(out, tri.Transform(m.pose))
	}
	return out
}

// Edges returns each undirected edge of the mesh once, ordered by vertex indices.
func (m *Mesh) Edges() []*Segment {
	seen := make(map[[2]int]struct{}, 3*len(m.faces)/2)
	keys := make([][2]int, 0, 3*len(m.faces)/2)
	for _, f := range m.faces {
		for i := 0; i < 3; i++ {
			a, b := f[i], f[(i+1)%3]
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	edges := make([]*Segment, 0, len(keys))
	for _, k := range keys {
		edges = append(edges, NewIndexedSegment(m.vertices[k[0]], m.vertices[k[1]], k[0], k[1]))
	}
	return edges
}

// VertexElements returns the mesh vertices as indexed points.
func (m *Mesh) VertexElements() []*Vertex {
	out := make([]*Vertex, 0, len(m.vertices))
	for i, v := range m.vertices {
		out = append(out, NewVertex(v, i))
	}
	return out
}

// IsClosed returns whether every directed edge of the mesh is matched by exactly one opposite edge,
// i.e. the mesh is a closed, consistently oriented 2-manifold.
func (m *Mesh) IsClosed() bool {
	directed := make(map[[2]int]int, 3*len(m.faces))
	for _, f := range m.faces {
		for i := 0; i < 3; i++ {
			directed[[2]int{f[i], f[(i+1)%3]}]++
		}
	}
	for e, n := range directed {
		if n != 1 || directed[[2]int{e[1], e[0]}] != 1 {
			return false
		}
	}
	return len(m.faces) > 0
}

// SignedVolume returns the volume enclosed by the mesh, positive when faces are oriented outward.
func (m *Mesh) SignedVolume() float64 {
	vol := 0.
	for _, tri := range m.triangles {
		vol += tri.p0.Dot(tri.p1.Cross(tri.p2))
	}
	return vol / 6
}

// Flipped returns a copy of the mesh with every face orientation reversed.
func (m *Mesh) Flipped() *Mesh {
	faces := make([][3]int, 0, len(m.faces))
	for _, f := range m.faces {
		faces = append(faces, [3]int{f[0], f[2], f[1]})
	}
	flipped, _ := NewMeshFromFaces(m.pose, m.vertices, faces, m.label)
	return flipped
}
