package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Pose represents a 6dof pose, position and orientation, with respect to the origin.
// The Point() method returns the position in (x,y,z) mm coordinates,
// and the Orientation() method returns an Orientation object.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type rigidPose struct {
	point r3.Vector
	rot   *RotationMatrix
}

// NewZeroPose returns a pose at (0,0,0) with same orientation as whatever frame it is placed in.
func NewZeroPose() Pose {
	return &rigidPose{rot: NewIdentityRotationMatrix()}
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return &rigidPose{point: p, rot: o.RotationMatrix()}
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &rigidPose{point: point, rot: NewIdentityRotationMatrix()}
}

// NewPoseFromOrientation takes in an orientation and returns a pose at the origin.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

func (p *rigidPose) Point() r3.Vector {
	return p.point
}

func (p *rigidPose) Orientation() Orientation {
	return p.rot
}

func (p *rigidPose) String() string {
	q := p.rot.Quaternion()
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f qW:%.4f qX:%.4f qY:%.4f qZ:%.4f}",
		p.point.X, p.point.Y, p.point.Z, q.Real, q.Imag, q.Jmag, q.Kmag)
}

// Compose treats Poses as functions A(x) and B(x), and produces a new function C(x) = A(B(x)).
func Compose(a, b Pose) Pose {
	ra := a.Orientation().RotationMatrix()
	return &rigidPose{
		point: ra.Mul(b.Point()).Add(a.Point()),
		rot:   ra.MulMatrix(b.Orientation().RotationMatrix()),
	}
}

// PoseInverse will return the inverse of a pose.
func PoseInverse(p Pose) Pose {
	rt := p.Orientation().RotationMatrix().Transpose()
	return &rigidPose{point: rt.Mul(p.Point()).Mul(-1), rot: rt}
}

// PoseBetween returns the difference between two Poses, such that Compose(a, PoseBetween(a, b)) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// TransformPoint maps a point from the pose's local frame into its parent frame.
func TransformPoint(p Pose, pt r3.Vector) r3.Vector {
	return p.Orientation().RotationMatrix().Mul(pt).Add(p.Point())
}

// InverseTransformPoint maps a point from the pose's parent frame into its local frame.
func InverseTransformPoint(p Pose, pt r3.Vector) r3.Vector {
	return p.Orientation().RotationMatrix().TransposeMul(pt.Sub(p.Point()))
}

// RotateVector rotates a direction from the pose's local frame into its parent frame.
func RotateVector(p Pose, v r3.Vector) r3.Vector {
	return p.Orientation().RotationMatrix().Mul(v)
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-6)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon) &&
		QuaternionAlmostEqual(a.Orientation().Quaternion(), b.Orientation().Quaternion(), epsilon)
}

// IsIdentity reports whether the pose leaves points unchanged.
func IsIdentity(p Pose) bool {
	return PoseAlmostEqualEps(p, NewZeroPose(), 1e-12)
}
