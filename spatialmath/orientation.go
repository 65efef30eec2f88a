package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Orientation is an interface used to express the different parameterizations of the orientation of a rigid object or a frame
// of reference in 3D Euclidean space.
type Orientation interface {
	Quaternion() quat.Number
	RotationMatrix() *RotationMatrix
}

// NewZeroOrientation returns an orientation which signifies no rotation.
func NewZeroOrientation() Orientation {
	return &Quaternion{Real: 1}
}

// OrientationAlmostEqual will return a bool describing whether 2 poses have approximately the same orientation.
func OrientationAlmostEqual(o1, o2 Orientation) bool {
	return QuaternionAlmostEqual(o1.Quaternion(), o2.Quaternion(), 1e-5)
}

// QuaternionAlmostEqual is an equality test for two quaternions, accounting for the double cover of rotations.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	near := func(x, y quat.Number) bool {
		return math.Abs(x.Real-y.Real) < tol && math.Abs(x.Imag-y.Imag) < tol &&
			math.Abs(x.Jmag-y.Jmag) < tol && math.Abs(x.Kmag-y.Kmag) < tol
	}
	return near(a, b) || near(a, quat.Scale(-1, b))
}

// Quaternion is an orientation expressed as a unit quaternion.
type Quaternion quat.Number

// Quaternion returns the orientation as a gonum quaternion.
func (q *Quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (q *Quaternion) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(q.Quaternion())
}

// R4AA represents an R4 axis angle.
type R4AA struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// Quaternion returns orientation in quaternion representation.
// See: https://www.euclideanspace.com/maths/geometry/rotations/conversions/angleToQuaternion/index.htm
func (r4 *R4AA) Quaternion() quat.Number {
	axis := r3.Vector{X: r4.RX, Y: r4.RY, Z: r4.RZ}
	norm := axis.Norm()
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	axis = axis.Mul(math.Sin(r4.Theta/2) / norm)
	return quat.Number{Real: math.Cos(r4.Theta / 2), Imag: axis.X, Jmag: axis.Y, Kmag: axis.Z}
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (r4 *R4AA) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(r4.Quaternion())
}

// RotationMatrix is a 3x3 rotation. Columns are the rotated frame's axes expressed in the parent frame,
// so R.Mul(v) maps a direction from the rotated frame into the parent frame.
type RotationMatrix struct {
	mat mgl64.Mat3
}

// NewRotationMatrixFromColumns builds a rotation whose columns are the given axes.
// The axes are expected to be orthonormal and right handed.
func NewRotationMatrixFromColumns(x, y, z r3.Vector) *RotationMatrix {
	return &RotationMatrix{mat: mgl64.Mat3FromCols(toVec3(x), toVec3(y), toVec3(z))}
}

// NewIdentityRotationMatrix returns the identity rotation.
func NewIdentityRotationMatrix() *RotationMatrix {
	return &RotationMatrix{mat: mgl64.Ident3()}
}

// QuatToRotationMatrix converts a quaternion to a rotation matrix.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	mq := mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}.Normalize()
	return &RotationMatrix{mat: mq.Mat4().Mat3()}
}

// Quaternion returns the rotation as a unit quaternion.
func (rm *RotationMatrix) Quaternion() quat.Number {
	q := mgl64.Mat4ToQuat(rm.mat.Mat4())
	return quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]}
}

// RotationMatrix returns itself.
func (rm *RotationMatrix) RotationMatrix() *RotationMatrix {
	return rm
}

// At returns the entry at row, col.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat.At(row, col)
}

// Row returns the row of the rotation matrix.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return fromVec3(rm.mat.Row(row))
}

// Col returns the column of the rotation matrix.
func (rm *RotationMatrix) Col(col int) r3.Vector {
	return fromVec3(rm.mat.Col(col))
}

// Mul returns R * v.
func (rm *RotationMatrix) Mul(v r3.Vector) r3.Vector {
	return fromVec3(rm.mat.Mul3x1(toVec3(v)))
}

// TransposeMul returns Rᵀ * v, i.e. v expressed in the rotated frame.
func (rm *RotationMatrix) TransposeMul(v r3.Vector) r3.Vector {
	return r3.Vector{X: rm.Col(0).Dot(v), Y: rm.Col(1).Dot(v), Z: rm.Col(2).Dot(v)}
}

// MulMatrix returns rm * other.
func (rm *RotationMatrix) MulMatrix(other *RotationMatrix) *RotationMatrix {
	return &RotationMatrix{mat: rm.mat.Mul3(other.mat)}
}

// Transpose returns the inverse rotation.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	return &RotationMatrix{mat: rm.mat.Transpose()}
}

// Det returns the determinant, +1 for a proper rotation.
func (rm *RotationMatrix) Det() float64 {
	return rm.mat.Det()
}

func toVec3(v r3.Vector) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

func fromVec3(v mgl64.Vec3) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
