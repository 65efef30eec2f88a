// Package testutils provides mesh fixtures shared by the package tests and the benchmark tool.
package testutils

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"

	"go.viam.com/bvh/spatialmath"
)

// orientOutward flips faces whose normal points towards center. Only valid for meshes that are
// star shaped about center.
func orientOutward(vertices []r3.Vector, faces [][3]int, center r3.Vector) {
	for i, f := range faces {
		p0, p1, p2 := vertices[f[0]], vertices[f[1]], vertices[f[2]]
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		cent := p0.Add(p1).Add(p2).Mul(1. / 3)
		if n.Dot(cent.Sub(center)) < 0 {
			faces[i] = [3]int{f[0], f[2], f[1]}
		}
	}
}

func mustMesh(vertices []r3.Vector, faces [][3]int, label string) *spatialmath.Mesh {
	m, err := spatialmath.NewMeshFromFaces(spatialmath.NewZeroPose(), vertices, faces, label)
	if err != nil {
		panic(err)
	}
	return m
}

// Icosphere returns a closed, outward oriented sphere of the given radius centered at the origin,
// made by subdividing an icosahedron. It has 20*4^subdivisions faces.
func Icosphere(subdivisions int, radius float64) *spatialmath.Mesh {
	t := (1 + math.Sqrt(5)) / 2
	vertices := []r3.Vector{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	for i, v := range vertices {
		vertices[i] = v.Normalize()
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	for s := 0; s < subdivisions; s++ {
		midpoints := map[[2]int]int{}
		midpoint := func(a, b int) int {
			key := [2]int{a, b}
			if a > b {
				key = [2]int{b, a}
			}
			if idx, ok := midpoints[key]; ok {
				return idx
			}
			vertices = append(vertices, vertices[a].Add(vertices[b]).Normalize())
			midpoints[key] = len(vertices) - 1
			return len(vertices) - 1
		}
		next := make([][3]int, 0, 4*len(faces))
		for _, f := range faces {
			a := midpoint(f[0], f[1])
			b := midpoint(f[1], f[2])
			c := midpoint(f[2], f[0])
			next = append(next, [3]int{f[0], a, c}, [3]int{f[1], b, a}, [3]int{f[2], c, b}, [3]int{a, b, c})
		}
		faces = next
	}
	for i, v := range vertices {
		vertices[i] = v.Mul(radius)
	}
	orientOutward(vertices, faces, r3.Vector{})
	return mustMesh(vertices, faces, "icosphere")
}

// BoxMesh returns a closed, outward oriented box with the given center and half-widths, two
// triangles per side.
func BoxMesh(center, halfWidths r3.Vector) *spatialmath.Mesh {
	vertices := make([]r3.Vector, 8)
	for i := range vertices {
		p := halfWidths.Mul(-1)
		if i&1 != 0 {
			p.X = halfWidths.X
		}
		if i&2 != 0 {
			p.Y = halfWidths.Y
		}
		if i&4 != 0 {
			p.Z = halfWidths.Z
		}
		vertices[i] = center.Add(p)
	}
	quads := [][4]int{{0, 2, 6, 4}, {1, 3, 7, 5}, {0, 1, 5, 4}, {2, 3, 7, 6}, {0, 1, 3, 2}, {4, 5, 7, 6}}
	faces := make([][3]int, 0, 12)
	for _, q := range quads {
		faces = append(faces, [3]int{q[0], q[1], q[2]}, [3]int{q[0], q[2], q[3]})
	}
	orientOutward(vertices, faces, center)
	return mustMesh(vertices, faces, "box")
}

// Octahedron returns the closed, outward oriented octahedron with vertices at distance radius
// along each axis.
func Octahedron(radius float64) *spatialmath.Mesh {
	vertices := []r3.Vector{
		{X: radius}, {X: -radius}, {Y: radius}, {Y: -radius}, {Z: radius}, {Z: -radius},
	}
	var faces [][3]int
	for _, x := range []int{0, 1} {
		for _, y := range []int{2, 3} {
			for _, z := range []int{4, 5} {
				faces = append(faces, [3]int{x, y, z})
			}
		}
	}
	orientOutward(vertices, faces, r3.Vector{})
	return mustMesh(vertices, faces, "octahedron")
}

// RandomTriangles returns n triangles with centers uniform in [-extent, extent]^3 and vertices
// within size of their center along each axis. Every vertex gets its own index.
func RandomTriangles(rng *rand.Rand, n int, extent, size float64) []*spatialmath.Triangle {
	out := make([]*spatialmath.Triangle, 0, n)
	for i := 0; i < n; i++ {
		c := randomVector(rng, extent)
		out = append(out, spatialmath.NewIndexedTriangle(
			c.Add(randomVector(rng, size)),
			c.Add(randomVector(rng, size)),
			c.Add(randomVector(rng, size)),
			3*i, 3*i+1, 3*i+2,
		))
	}
	return out
}

// FlatTriangles returns n random triangles that all lie in the plane z = 0.
func FlatTriangles(rng *rand.Rand, n int, extent, size float64) []*spatialmath.Triangle {
	tris := RandomTriangles(rng, n, extent, size)
	flat := func(p r3.Vector) r3.Vector { return r3.Vector{X: p.X, Y: p.Y} }
	for i, tri := range tris {
		v := tri.Vertices()
		idx := tri.VertexIndices()
		tris[i] = spatialmath.NewIndexedTriangle(flat(v[0]), flat(v[1]), flat(v[2]), idx[0], idx[1], idx[2])
	}
	return tris
}

// NeedleTriangles returns n thin triangles strung along the x axis.
func NeedleTriangles(rng *rand.Rand, n int, length float64) []*spatialmath.Triangle {
	out := make([]*spatialmath.Triangle, 0, n)
	for i := 0; i < n; i++ {
		x := rng.Float64() * length
		w := 1e-3 * (1 + rng.Float64())
		out = append(out, spatialmath.NewIndexedTriangle(
			r3.Vector{X: x},
			r3.Vector{X: x + w, Y: w * 1e-3},
			r3.Vector{X: x + w/2, Z: w * 1e-3},
			3*i, 3*i+1, 3*i+2,
		))
	}
	return out
}

// RandomPoints returns n points uniform in [-extent, extent]^3.
func RandomPoints(rng *rand.Rand, n int, extent float64) []r3.Vector {
	out := make([]r3.Vector, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, randomVector(rng, extent))
	}
	return out
}

// RandomDirection returns a uniformly distributed unit vector.
func RandomDirection(rng *rand.Rand) r3.Vector {
	for {
		v := randomVector(rng, 1)
		if n := v.Norm(); n > 1e-3 && n <= 1 {
			return v.Mul(1 / n)
		}
	}
}

func randomVector(rng *rand.Rand, extent float64) r3.Vector {
	return r3.Vector{
		X: (2*rng.Float64() - 1) * extent,
		Y: (2*rng.Float64() - 1) * extent,
		Z: (2*rng.Float64() - 1) * extent,
	}
}
