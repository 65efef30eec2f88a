package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Vertex is a single indexed mesh point.
type Vertex struct {
	pt  r3.Vector
	idx int
}

// NewVertex creates a vertex with the given mesh index.
func NewVertex(pt r3.Vector, idx int) *Vertex {
	return &Vertex{pt: pt, idx: idx}
}

// Index returns the mesh index of the vertex.
func (v *Vertex) Index() int {
	return v.idx
}

// PointCount returns 1.
func (v *Vertex) PointCount() int {
	return 1
}

// Point returns the vertex position.
func (v *Vertex) Point(int) r3.Vector {
	return v.pt
}

// Centroid returns the vertex position.
func (v *Vertex) Centroid() r3.Vector {
	return v.pt
}

// UpdateBounds grows [min, max] to include the vertex.
func (v *Vertex) UpdateBounds(min, max *r3.Vector) {
	UpdateBounds(min, max, v.pt)
}

// Covariance returns ppᵀ with unit weight.
func (v *Vertex) Covariance() (*mat.SymDense, float64) {
	c := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			c.SetSym(i, j, VectorComponent(v.pt, i)*VectorComponent(v.pt, j))
		}
	}
	return c, 1
}

// ClosestPointToPoint returns the vertex position.
func (v *Vertex) ClosestPointToPoint(r3.Vector) r3.Vector {
	return v.pt
}
